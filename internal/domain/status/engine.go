package status

import (
	"context"
	"sort"
	"strings"
	"time"

	"med-reminder/internal/domain/medications"
	"med-reminder/internal/platform/logger"
	"med-reminder/internal/platform/timeparse"
)

// Ventanas de clasificación, en minutos desde "ahora".
const (
	currentWindowMinutes  = 60
	upcomingWindowMinutes = 240
)

// MedicationStore es lo que el engine necesita del store validado.
type MedicationStore interface {
	GetWithStatusForDate(ctx context.Context, date string) ([]medications.WithStatus, error)
	GetStatus(ctx context.Context, medicationID int64, date string) (*medications.Status, error)
	UpsertStatus(ctx context.Context, medicationID int64, date string, taken bool) (medications.Status, error)
}

// Info es la vista derivada por-medicamento, por-"ahora". No se
// persiste; se recalcula en cada consulta.
//
// IsPastDue, IsCurrent e IsUpcoming son mutuamente excluyentes por
// construcción; el cuarto estado ("vence en más de 4 horas") queda
// implícito sin flag y los consumidores filtran por lo que necesitan.
type Info struct {
	medications.WithStatus

	MinutesUntil int
	IsPastDue    bool
	IsCurrent    bool
	IsUpcoming   bool
}

// Taken indica si la dosis de hoy ya se registró como tomada.
func (i Info) Taken() bool {
	return i.Status != nil && i.Status.Taken
}

// Engine combina el store y el parser de horarios para derivar el
// estado de cada medicamento relativo a "ahora".
type Engine struct {
	store  MedicationStore
	parser *timeparse.Parser
	log    logger.Logger
	now    func() time.Time
}

type Options struct {
	Logger logger.Logger
	Now    func() time.Time
}

func NewEngine(store MedicationStore, opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		store:  store,
		parser: timeparse.NewWithClock(opts.Now),
		log:    opts.Logger,
		now:    opts.Now,
	}
}

func (e *Engine) today() string {
	return e.now().Format("2006-01-02")
}

func (e *Engine) nowMinutes() int {
	now := e.now()
	return now.Hour()*60 + now.Minute()
}

// infosForToday trae los medicamentos activos hoy con su status y
// calcula la vista derivada de cada uno.
func (e *Engine) infosForToday(ctx context.Context) ([]Info, error) {
	list, err := e.store.GetWithStatusForDate(ctx, e.today())
	if err != nil {
		return nil, err
	}

	out := make([]Info, 0, len(list))
	for _, ws := range list {
		out = append(out, e.derive(ws))
	}
	return out, nil
}

func (e *Engine) derive(ws medications.WithStatus) Info {
	info := Info{WithStatus: ws}

	passed, err := e.parser.HasPassed(ws.Time)
	if err != nil {
		// hora corrupta en el store; no debería pasar con la validación
		e.log.Warn("unparseable medication time", map[string]any{
			"medication": ws.ID,
			"time":       ws.Time,
		})
		return info
	}
	mu, _ := e.parser.MinutesUntil(ws.Time)

	taken := info.Taken()
	info.MinutesUntil = mu
	info.IsPastDue = passed && !taken
	info.IsCurrent = !passed && mu <= currentWindowMinutes
	info.IsUpcoming = !passed && mu > currentWindowMinutes && mu <= upcomingWindowMinutes
	return info
}

// SortBy opciones de orden para CurrentMedications.
type SortBy string

const (
	SortByTime  SortBy = "time"
	SortByName  SortBy = "name"
	SortByTaken SortBy = "taken" // no tomados primero, luego por hora
)

type CurrentOptions struct {
	IncludeTaken bool
	HoursBefore  int // ventana hacia atrás desde ahora (default 1)
	HoursAfter   int // ventana hacia adelante desde ahora (default 1)
	SortBy       SortBy
}

// CurrentMedications filtra por la ventana pedida alrededor de "ahora"
// (mismo día calendario, sin envolver medianoche) y por el flag de
// tomados.
func (e *Engine) CurrentMedications(ctx context.Context, opts CurrentOptions) ([]Info, error) {
	if opts.HoursBefore <= 0 {
		opts.HoursBefore = 1
	}
	if opts.HoursAfter <= 0 {
		opts.HoursAfter = 1
	}

	infos, err := e.infosForToday(ctx)
	if err != nil {
		return nil, err
	}

	nowMin := e.nowMinutes()
	out := make([]Info, 0, len(infos))
	for _, info := range infos {
		r, err := e.parser.Parse(info.Time)
		if err != nil {
			continue
		}
		diff := r.MinutesOfDay() - nowMin // <0 ya pasó hoy, >0 viene
		if diff < -opts.HoursBefore*60 || diff > opts.HoursAfter*60 {
			continue
		}
		if !opts.IncludeTaken && info.Taken() {
			continue
		}
		out = append(out, info)
	}

	sortInfos(out, opts.SortBy)
	return out, nil
}

func sortInfos(infos []Info, by SortBy) {
	switch by {
	case SortByName:
		sort.SliceStable(infos, func(i, j int) bool {
			return strings.ToLower(infos[i].Name) < strings.ToLower(infos[j].Name)
		})
	case SortByTaken:
		sort.SliceStable(infos, func(i, j int) bool {
			if infos[i].Taken() != infos[j].Taken() {
				return !infos[i].Taken()
			}
			return infos[i].Time < infos[j].Time
		})
	default:
		sort.SliceStable(infos, func(i, j int) bool {
			return infos[i].Time < infos[j].Time
		})
	}
}

// UpcomingMedications devuelve los no tomados con minutesUntil en
// (0, hours*60].
func (e *Engine) UpcomingMedications(ctx context.Context, hours int) ([]Info, error) {
	if hours <= 0 {
		hours = 4
	}

	infos, err := e.infosForToday(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Info, 0, len(infos))
	for _, info := range infos {
		if info.Taken() {
			continue
		}
		if info.MinutesUntil > 0 && info.MinutesUntil <= hours*60 && !info.IsPastDue {
			out = append(out, info)
		}
	}
	return out, nil
}

// OverdueMedications devuelve todos los vencidos sin tomar.
// Un medicamento ya tomado nunca figura vencido aunque su hora pasó.
func (e *Engine) OverdueMedications(ctx context.Context) ([]Info, error) {
	infos, err := e.infosForToday(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Info, 0, len(infos))
	for _, info := range infos {
		if info.IsPastDue {
			out = append(out, info)
		}
	}
	return out, nil
}

// MarkTaken registra la dosis como tomada para la fecha (hoy si viene
// vacía). El store setea takenAt=ahora.
func (e *Engine) MarkTaken(ctx context.Context, medicationID int64, date string) (medications.Status, error) {
	if date == "" {
		date = e.today()
	}
	return e.store.UpsertStatus(ctx, medicationID, date, true)
}

// MarkNotTaken registra la dosis como no tomada; takenAt queda nulo.
func (e *Engine) MarkNotTaken(ctx context.Context, medicationID int64, date string) (medications.Status, error) {
	if date == "" {
		date = e.today()
	}
	return e.store.UpsertStatus(ctx, medicationID, date, false)
}

// Toggle lee el status de hoy (false si no hay fila) y lo invierte.
// No es atómico contra otros upserts concurrentes: entre la lectura y
// la escritura puede colarse otro caller. El upsert del store sí es
// atómico por sí mismo.
func (e *Engine) Toggle(ctx context.Context, medicationID int64) (medications.Status, error) {
	today := e.today()

	current, err := e.store.GetStatus(ctx, medicationID, today)
	if err != nil {
		return medications.Status{}, err
	}

	taken := false
	if current != nil {
		taken = current.Taken
	}
	return e.store.UpsertStatus(ctx, medicationID, today, !taken)
}

// DailyCompliance es el desglose de un día con al menos una dosis
// programada. Los días sin dosis no figuran en el desglose.
type DailyCompliance struct {
	Date       string
	Taken      int
	Total      int
	Percentage float64
}

type ComplianceStats struct {
	Days       int
	Taken      int
	Total      int
	Percentage float64
	Daily      []DailyCompliance
}

// Compliance recorre los últimos days días calendario (hoy inclusive,
// hacia atrás) acumulando tomadas vs. programadas.
func (e *Engine) Compliance(ctx context.Context, days int) (ComplianceStats, error) {
	if days <= 0 {
		days = 7
	}

	stats := ComplianceStats{Days: days}
	now := e.now()

	for i := 0; i < days; i++ {
		date := now.AddDate(0, 0, -i).Format("2006-01-02")

		list, err := e.store.GetWithStatusForDate(ctx, date)
		if err != nil {
			return ComplianceStats{}, err
		}

		total := len(list)
		taken := 0
		for _, ws := range list {
			if ws.Status != nil && ws.Status.Taken {
				taken++
			}
		}

		stats.Total += total
		stats.Taken += taken
		if total > 0 {
			stats.Daily = append(stats.Daily, DailyCompliance{
				Date:       date,
				Taken:      taken,
				Total:      total,
				Percentage: percentage(taken, total),
			})
		}
	}

	stats.Percentage = percentage(stats.Taken, stats.Total)
	return stats, nil
}

func percentage(taken, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(taken) / float64(total) * 100
}

// Summary agrega current/upcoming/overdue en totales para dashboard.
type Summary struct {
	Current    int
	Upcoming   int
	Overdue    int
	Total      int // medicamentos activos hoy
	TakenToday int
}

func (e *Engine) Summary(ctx context.Context) (Summary, error) {
	infos, err := e.infosForToday(ctx)
	if err != nil {
		return Summary{}, err
	}

	var sm Summary
	sm.Total = len(infos)
	for _, info := range infos {
		if info.Taken() {
			sm.TakenToday++
		}
		switch {
		case info.IsPastDue:
			sm.Overdue++
		case info.IsCurrent:
			sm.Current++
		case info.IsUpcoming:
			sm.Upcoming++
		}
	}
	return sm, nil
}

// ReminderTuple es lo único que consume el scheduler de notificaciones.
type ReminderTuple struct {
	Name   string `json:"name"`
	Dosage string `json:"dosage"`
	Time   string `json:"time"`
}

// ReminderTuples produce las tuplas de los próximos no tomados dentro
// de la ventana pedida.
func (e *Engine) ReminderTuples(ctx context.Context, hours int) ([]ReminderTuple, error) {
	infos, err := e.UpcomingMedications(ctx, hours)
	if err != nil {
		return nil, err
	}

	out := make([]ReminderTuple, 0, len(infos))
	for _, info := range infos {
		out = append(out, ReminderTuple{
			Name:   info.Name,
			Dosage: info.Dosage,
			Time:   info.Time,
		})
	}
	return out, nil
}
