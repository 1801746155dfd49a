package status

import (
	"encoding/json"
	"net/http"
	"strconv"

	"med-reminder/internal/domain/medications"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, engine *Engine) {
	h := &handler{engine: engine}

	r.Post("/medications/{medID}/taken", h.markTaken)
	r.Post("/medications/{medID}/not-taken", h.markNotTaken)
	r.Post("/medications/{medID}/toggle", h.toggle)

	r.Route("/status", func(sr chi.Router) {
		sr.Get("/current", h.current)
		sr.Get("/upcoming", h.upcoming)
		sr.Get("/overdue", h.overdue)
		sr.Get("/summary", h.summary)
		sr.Get("/compliance", h.compliance)
	})
}

type handler struct {
	engine *Engine
}

type markRequest struct {
	Date string `json:"date"` // YYYY-MM-DD; vacío = hoy
}

// infoResponse es la vista derivada que consume el dashboard.
type infoResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Dosage       string `json:"dosage"`
	Frequency    string `json:"frequency"`
	Time         string `json:"time"`
	Taken        bool   `json:"taken"`
	MinutesUntil int    `json:"minutesUntil"`
	IsPastDue    bool   `json:"isPastDue"`
	IsCurrent    bool   `json:"isCurrent"`
	IsUpcoming   bool   `json:"isUpcoming"`
}

// markTaken godoc
// @Summary Marcar dosis como tomada
// @Description Upsert del status del día; takenAt queda en ahora.
// @Tags status
// @Accept json
// @Produce json
// @Param medID path int true "ID del medicamento"
// @Param payload body markRequest false "Fecha opcional (default hoy)"
// @Success 200 {object} map[string]any
// @Failure 404 {string} string "NOT_FOUND"
// @Router /medications/{medID}/taken [post]
func (h *handler) markTaken(w http.ResponseWriter, r *http.Request) {
	h.mark(w, r, true)
}

// markNotTaken godoc
// @Summary Marcar dosis como no tomada
// @Description Upsert del status del día; takenAt queda nulo.
// @Tags status
// @Accept json
// @Produce json
// @Param medID path int true "ID del medicamento"
// @Param payload body markRequest false "Fecha opcional (default hoy)"
// @Success 200 {object} map[string]any
// @Router /medications/{medID}/not-taken [post]
func (h *handler) markNotTaken(w http.ResponseWriter, r *http.Request) {
	h.mark(w, r, false)
}

func (h *handler) mark(w http.ResponseWriter, r *http.Request, taken bool) {
	id, err := parseID(r)
	if err != nil {
		medications.WriteError(w, err)
		return
	}

	var req markRequest
	if r.Body != nil {
		// body opcional; un body vacío equivale a "hoy"
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	var st medications.Status
	if taken {
		st, err = h.engine.MarkTaken(r.Context(), id, req.Date)
	} else {
		st, err = h.engine.MarkNotTaken(r.Context(), id, req.Date)
	}
	if err != nil {
		medications.WriteError(w, err)
		return
	}
	medications.WriteData(w, http.StatusOK, st)
}

// toggle godoc
// @Summary Invertir el status de hoy
// @Description Lee el status de hoy (false si no existe) y lo invierte.
// @Tags status
// @Produce json
// @Param medID path int true "ID del medicamento"
// @Success 200 {object} map[string]any
// @Router /medications/{medID}/toggle [post]
func (h *handler) toggle(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		medications.WriteError(w, err)
		return
	}

	st, err := h.engine.Toggle(r.Context(), id)
	if err != nil {
		medications.WriteError(w, err)
		return
	}
	medications.WriteData(w, http.StatusOK, st)
}

// current godoc
// @Summary Medicamentos en la ventana actual
// @Tags status
// @Produce json
// @Param includeTaken query bool false "Incluir ya tomados (default false)"
// @Param hoursBefore query int false "Horas hacia atrás (default 1)"
// @Param hoursAfter query int false "Horas hacia adelante (default 1)"
// @Param sortBy query string false "time|name|taken (default time)"
// @Success 200 {array} infoResponse
// @Router /status/current [get]
func (h *handler) current(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	opts := CurrentOptions{
		IncludeTaken: q.Get("includeTaken") == "true",
		SortBy:       SortBy(q.Get("sortBy")),
	}
	if n, err := strconv.Atoi(q.Get("hoursBefore")); err == nil && n > 0 {
		opts.HoursBefore = n
	}
	if n, err := strconv.Atoi(q.Get("hoursAfter")); err == nil && n > 0 {
		opts.HoursAfter = n
	}

	infos, err := h.engine.CurrentMedications(r.Context(), opts)
	if err != nil {
		medications.WriteError(w, err)
		return
	}
	medications.WriteData(w, http.StatusOK, toInfoResponses(infos))
}

// upcoming godoc
// @Summary Próximos no tomados
// @Tags status
// @Produce json
// @Param hours query int false "Ventana en horas (default 4)"
// @Success 200 {array} infoResponse
// @Router /status/upcoming [get]
func (h *handler) upcoming(w http.ResponseWriter, r *http.Request) {
	hours := 0
	if n, err := strconv.Atoi(r.URL.Query().Get("hours")); err == nil {
		hours = n
	}

	infos, err := h.engine.UpcomingMedications(r.Context(), hours)
	if err != nil {
		medications.WriteError(w, err)
		return
	}
	medications.WriteData(w, http.StatusOK, toInfoResponses(infos))
}

// overdue godoc
// @Summary Vencidos sin tomar
// @Tags status
// @Produce json
// @Success 200 {array} infoResponse
// @Router /status/overdue [get]
func (h *handler) overdue(w http.ResponseWriter, r *http.Request) {
	infos, err := h.engine.OverdueMedications(r.Context())
	if err != nil {
		medications.WriteError(w, err)
		return
	}
	medications.WriteData(w, http.StatusOK, toInfoResponses(infos))
}

// summary godoc
// @Summary Totales para dashboard
// @Tags status
// @Produce json
// @Success 200 {object} Summary
// @Router /status/summary [get]
func (h *handler) summary(w http.ResponseWriter, r *http.Request) {
	sm, err := h.engine.Summary(r.Context())
	if err != nil {
		medications.WriteError(w, err)
		return
	}
	medications.WriteData(w, http.StatusOK, sm)
}

// compliance godoc
// @Summary Estadísticas de adherencia
// @Tags status
// @Produce json
// @Param days query int false "Días hacia atrás, hoy inclusive (default 7)"
// @Success 200 {object} ComplianceStats
// @Router /status/compliance [get]
func (h *handler) compliance(w http.ResponseWriter, r *http.Request) {
	days := 0
	if n, err := strconv.Atoi(r.URL.Query().Get("days")); err == nil {
		days = n
	}

	stats, err := h.engine.Compliance(r.Context(), days)
	if err != nil {
		medications.WriteError(w, err)
		return
	}
	medications.WriteData(w, http.StatusOK, stats)
}

func toInfoResponses(infos []Info) []infoResponse {
	out := make([]infoResponse, 0, len(infos))
	for _, info := range infos {
		out = append(out, infoResponse{
			ID:           info.ID,
			Name:         info.Name,
			Dosage:       info.Dosage,
			Frequency:    info.Frequency,
			Time:         info.Time,
			Taken:        info.Taken(),
			MinutesUntil: info.MinutesUntil,
			IsPastDue:    info.IsPastDue,
			IsCurrent:    info.IsCurrent,
			IsUpcoming:   info.IsUpcoming,
		})
	}
	return out
}

func parseID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "medID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, medications.NewErrorf(medications.CodeInvalidInput, "medID must be an integer, got %q", raw)
	}
	return id, nil
}
