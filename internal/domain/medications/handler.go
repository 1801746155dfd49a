package medications

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"med-reminder/internal/platform/timeparse"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	h := &handler{svc: svc, parser: timeparse.New()}

	// Rutas planas: el módulo de status también cuelga comandos bajo
	// /medications/{medID}, así que acá no se montan subrouters.
	r.Post("/medications", h.create)
	r.Get("/medications", h.list)
	r.Get("/medications/by-date/{date}", h.listByDate)
	r.Get("/medications/with-status/{date}", h.listWithStatus)
	r.Get("/medications/{medID}", h.get)
	r.Patch("/medications/{medID}", h.update)
	r.Delete("/medications/{medID}", h.remove)
}

type handler struct {
	svc    *Service
	parser *timeparse.Parser
}

// createMedicationRequest es el cuerpo del alta. El campo time acepta
// cualquier formato que entienda el parser ("14:30", "2:30 PM", "8");
// se guarda siempre en forma canónica HH:MM.
type createMedicationRequest struct {
	Name         string  `json:"name"`
	Dosage       string  `json:"dosage"`
	Frequency    string  `json:"frequency"`
	Time         string  `json:"time"`
	Instructions string  `json:"instructions"`
	StartDate    string  `json:"startDate"` // YYYY-MM-DD
	EndDate      *string `json:"endDate"`   // opcional
}

type updateMedicationRequest struct {
	Name         *string `json:"name"`
	Dosage       *string `json:"dosage"`
	Frequency    *string `json:"frequency"`
	Time         *string `json:"time"`
	Instructions *string `json:"instructions"`
	StartDate    *string `json:"startDate"`
	EndDate      *string `json:"endDate"`
	ClearEndDate bool    `json:"clearEndDate"`
}

// medicationResponse representa un medicamento devuelto por la API.
type medicationResponse struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Dosage       string    `json:"dosage"`
	Frequency    string    `json:"frequency"`
	Time         string    `json:"time"`
	Time12       string    `json:"time12h"`
	Instructions string    `json:"instructions,omitempty"`
	StartDate    string    `json:"startDate"`
	EndDate      *string   `json:"endDate"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type statusResponse struct {
	ID           int64      `json:"id"`
	MedicationID int64      `json:"medicationId"`
	Date         string     `json:"date"`
	Taken        bool       `json:"taken"`
	TakenAt      *time.Time `json:"takenAt"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

type withStatusResponse struct {
	medicationResponse
	Status *statusResponse `json:"status"`
}

// create godoc
// @Summary Crear medicamento
// @Description Da de alta un medicamento. time acepta formatos 24h, 12h AM/PM o solo horas y se normaliza a HH:MM.
// @Tags medications
// @Accept json
// @Produce json
// @Param payload body createMedicationRequest true "Datos del medicamento"
// @Success 201 {object} medicationResponse
// @Failure 400 {string} string "INVALID_INPUT"
// @Router /medications [post]
func (h *handler) create(w http.ResponseWriter, r *http.Request) {
	var req createMedicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, NewError(CodeInvalidInput, "invalid json"))
		return
	}

	canonical, err := h.canonicalTime(req.Time)
	if err != nil {
		writeError(w, err)
		return
	}

	id, err := h.svc.Add(r.Context(), NewMedication{
		Name:         req.Name,
		Dosage:       req.Dosage,
		Frequency:    req.Frequency,
		Time:         canonical,
		Instructions: req.Instructions,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	m, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, h.toResponse(m))
}

// list godoc
// @Summary Listar medicamentos
// @Description Lista todos los medicamentos ordenados por hora ascendente.
// @Tags medications
// @Produce json
// @Success 200 {array} medicationResponse
// @Router /medications [get]
func (h *handler) list(w http.ResponseWriter, r *http.Request) {
	meds, err := h.svc.GetAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, h.toResponses(meds))
}

// get godoc
// @Summary Obtener medicamento
// @Tags medications
// @Produce json
// @Param medID path int true "ID del medicamento"
// @Success 200 {object} medicationResponse
// @Failure 404 {string} string "NOT_FOUND"
// @Router /medications/{medID} [get]
func (h *handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	m, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, h.toResponse(m))
}

// update godoc
// @Summary Actualizar medicamento (parcial)
// @Description Solo los campos presentes tocan la fila; id y createdAt nunca cambian.
// @Tags medications
// @Accept json
// @Produce json
// @Param medID path int true "ID del medicamento"
// @Param payload body updateMedicationRequest true "Campos a actualizar"
// @Success 200 {object} medicationResponse
// @Failure 400 {string} string "INVALID_INPUT"
// @Failure 404 {string} string "NOT_FOUND"
// @Router /medications/{medID} [patch]
func (h *handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req updateMedicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, NewError(CodeInvalidInput, "invalid json"))
		return
	}

	in := UpdateInput{
		Name:         req.Name,
		Dosage:       req.Dosage,
		Frequency:    req.Frequency,
		Instructions: req.Instructions,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		ClearEndDate: req.ClearEndDate,
	}
	if req.Time != nil {
		canonical, err := h.canonicalTime(*req.Time)
		if err != nil {
			writeError(w, err)
			return
		}
		in.Time = &canonical
	}

	if err := h.svc.Update(r.Context(), id, in); err != nil {
		writeError(w, err)
		return
	}

	m, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, h.toResponse(m))
}

// remove godoc
// @Summary Borrar medicamento
// @Description Borra el medicamento y cascadea todas sus filas de status.
// @Tags medications
// @Param medID path int true "ID del medicamento"
// @Success 204
// @Failure 404 {string} string "NOT_FOUND"
// @Router /medications/{medID} [delete]
func (h *handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// listByDate godoc
// @Summary Medicamentos activos en una fecha
// @Tags medications
// @Produce json
// @Param date path string true "Fecha YYYY-MM-DD"
// @Success 200 {array} medicationResponse
// @Router /medications/by-date/{date} [get]
func (h *handler) listByDate(w http.ResponseWriter, r *http.Request) {
	meds, err := h.svc.GetByDate(r.Context(), chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, h.toResponses(meds))
}

// listWithStatus godoc
// @Summary Medicamentos activos con su status para una fecha
// @Tags medications
// @Produce json
// @Param date path string true "Fecha YYYY-MM-DD"
// @Success 200 {array} withStatusResponse
// @Router /medications/with-status/{date} [get]
func (h *handler) listWithStatus(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.GetWithStatusForDate(r.Context(), chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]withStatusResponse, 0, len(list))
	for _, ws := range list {
		resp := withStatusResponse{medicationResponse: h.toResponse(ws.Medication)}
		if ws.Status != nil {
			st := toStatusResponse(*ws.Status)
			resp.Status = &st
		}
		out = append(out, resp)
	}
	writeData(w, http.StatusOK, out)
}

// canonicalTime normaliza el input humano a HH:MM vía parser.
func (h *handler) canonicalTime(input string) (string, error) {
	res, err := h.parser.Parse(input)
	if err != nil {
		if errors.Is(err, timeparse.ErrInputRequired) {
			return "", NewError(CodeInvalidInput, "time is required")
		}
		return "", WrapError(CodeInvalidInput, "unparseable time", err)
	}
	return res.Formatted24, nil
}

func (h *handler) toResponse(m Medication) medicationResponse {
	resp := medicationResponse{
		ID:           m.ID,
		Name:         m.Name,
		Dosage:       m.Dosage,
		Frequency:    m.Frequency,
		Time:         m.Time,
		Instructions: m.Instructions,
		StartDate:    m.StartDate,
		EndDate:      m.EndDate,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	if r, err := h.parser.Parse(m.Time); err == nil {
		resp.Time12 = r.Formatted12
	}
	return resp
}

func (h *handler) toResponses(meds []Medication) []medicationResponse {
	out := make([]medicationResponse, 0, len(meds))
	for _, m := range meds {
		out = append(out, h.toResponse(m))
	}
	return out
}

func toStatusResponse(st Status) statusResponse {
	return statusResponse{
		ID:           st.ID,
		MedicationID: st.MedicationID,
		Date:         st.Date,
		Taken:        st.Taken,
		TakenAt:      st.TakenAt,
		CreatedAt:    st.CreatedAt,
		UpdatedAt:    st.UpdatedAt,
	}
}

func parseID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "medID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, NewErrorf(CodeInvalidInput, "medID must be an integer, got %q", raw)
	}
	return id, nil
}

// Envelope estable hacia la UI: nunca cruza una excepción cruda.
type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

// HTTPStatus mapea la taxonomía a códigos HTTP.
func HTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConnectionFailed, CodeInitFailed:
		return http.StatusServiceUnavailable
	case CodeConstraintViolation:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// WriteData y WriteError se comparten con el handler de status para
// que ambos módulos hablen el mismo envelope.
func WriteData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func WriteError(w http.ResponseWriter, err error) {
	e := Classify(err)
	writeJSON(w, HTTPStatus(e.Code), envelope{
		Success: false,
		Error:   &errorBody{Code: e.Code, Message: e.Message},
	})
}

func writeData(w http.ResponseWriter, status int, data any) { WriteData(w, status, data) }
func writeError(w http.ResponseWriter, err error)           { WriteError(w, err) }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
