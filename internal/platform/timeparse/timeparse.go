package timeparse

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInputRequired distingue "no hay input" de "input malformado".
	// Los callers necesitan diferenciar ambos casos (form vacío vs typo).
	ErrInputRequired = errors.New("time input required")
)

// Result es el resultado canónico de un parse exitoso.
type Result struct {
	Hour24      int    // 0-23
	Minute      int    // 0-59
	Formatted24 string // "HH:MM"
	Formatted12 string // "H:MM AM/PM" sin cero inicial en la hora
}

// MinutesOfDay devuelve los minutos desde medianoche (0-1439).
func (r Result) MinutesOfDay() int {
	return r.Hour24*60 + r.Minute
}

var (
	re24       = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
	re12       = regexp.MustCompile(`(?i)^(\d{1,2})\s*:\s*(\d{2})\s*(AM|PM)$`)
	reHourOnly = regexp.MustCompile(`^(\d{1,2})$`)
)

// Parser normaliza strings de hora-del-día y compara contra "ahora".
// El reloj es inyectable para tests (mismo patrón que los services).
type Parser struct {
	now func() time.Time
}

func New() *Parser {
	return &Parser{now: time.Now}
}

func NewWithClock(now func() time.Time) *Parser {
	if now == nil {
		now = time.Now
	}
	return &Parser{now: now}
}

// Parse acepta, en orden de prioridad:
//   - 24h "HH:MM" (hora 0-23, minuto 0-59)
//   - 12h "H:MM AM/PM" (case-insensitive, tolera espacios internos de más)
//   - solo horas "H"/"HH" (0-23, minuto 0)
//
// Cualquier otra forma, o valores fuera de rango, falla con error descriptivo.
func (p *Parser) Parse(input string) (Result, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return Result{}, ErrInputRequired
	}

	// Colapsar espacios internos ("2:30   pm" => "2:30 pm")
	trimmed = strings.Join(strings.Fields(trimmed), " ")

	if m := re24.FindStringSubmatch(trimmed); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if hour > 23 {
			return Result{}, fmt.Errorf("hour out of range (0-23): %q", input)
		}
		if minute > 59 {
			return Result{}, fmt.Errorf("minute out of range (0-59): %q", input)
		}
		return newResult(hour, minute), nil
	}

	if m := re12.FindStringSubmatch(trimmed); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if hour < 1 || hour > 12 {
			return Result{}, fmt.Errorf("hour out of range (1-12): %q", input)
		}
		if minute > 59 {
			return Result{}, fmt.Errorf("minute out of range (0-59): %q", input)
		}
		hour24 := hour % 12
		if strings.EqualFold(m[3], "PM") {
			hour24 += 12
		}
		return newResult(hour24, minute), nil
	}

	if m := reHourOnly.FindStringSubmatch(trimmed); m != nil {
		hour, _ := strconv.Atoi(m[1])
		if hour > 23 {
			return Result{}, fmt.Errorf("hour out of range (0-23): %q", input)
		}
		return newResult(hour, 0), nil
	}

	return Result{}, fmt.Errorf("unrecognized time format: %q", input)
}

func newResult(hour24, minute int) Result {
	return Result{
		Hour24:      hour24,
		Minute:      minute,
		Formatted24: fmt.Sprintf("%02d:%02d", hour24, minute),
		Formatted12: format12(hour24, minute),
	}
}

func format12(hour24, minute int) string {
	suffix := "AM"
	if hour24 >= 12 {
		suffix = "PM"
	}
	hour12 := hour24 % 12
	if hour12 == 0 {
		hour12 = 12 // medianoche => 12:xx AM, mediodía => 12:xx PM
	}
	return fmt.Sprintf("%d:%02d %s", hour12, minute, suffix)
}

// HasPassed indica si la hora actual del día está en o después de t.
// Solo mira el día calendario actual; no cruza medianoche.
func (p *Parser) HasPassed(t string) (bool, error) {
	r, err := p.Parse(t)
	if err != nil {
		return false, err
	}
	return p.nowMinutes() >= r.MinutesOfDay(), nil
}

// MinutesUntil devuelve los minutos hasta la próxima ocurrencia de t.
// Si la hora de hoy ya pasó, envuelve 24h hacia adelante.
// Convención documentada: igualdad exacta con "ahora" cuenta como pasada
// y devuelve 1440 ("recién mañana"). No es un bug.
func (p *Parser) MinutesUntil(t string) (int, error) {
	r, err := p.Parse(t)
	if err != nil {
		return 0, err
	}
	diff := r.MinutesOfDay() - p.nowMinutes()
	if diff <= 0 {
		diff += 24 * 60
	}
	return diff, nil
}

// TimeDifference devuelve los minutos de a hasta b, envolviendo por
// medianoche si resulta negativo. Siempre en [0, 1440).
func (p *Parser) TimeDifference(a, b string) (int, error) {
	ra, err := p.Parse(a)
	if err != nil {
		return 0, err
	}
	rb, err := p.Parse(b)
	if err != nil {
		return 0, err
	}
	diff := rb.MinutesOfDay() - ra.MinutesOfDay()
	if diff < 0 {
		diff += 24 * 60
	}
	return diff, nil
}

// IsSameTime compara solo hora/minuto parseados, ignorando el formato
// original. Entradas no parseables nunca son iguales a nada.
func (p *Parser) IsSameTime(a, b string) bool {
	ra, err := p.Parse(a)
	if err != nil {
		return false
	}
	rb, err := p.Parse(b)
	if err != nil {
		return false
	}
	return ra.Hour24 == rb.Hour24 && ra.Minute == rb.Minute
}

// SortTimes ordena cronológicamente por minutos-del-día (orden estable).
// Las entradas que no parsean sobreviven al sort: van al final en su
// orden relativo original, sin romper nada.
func (p *Parser) SortTimes(times []string) []string {
	type keyed struct {
		value string
		key   int
	}

	const unparseableKey = 1 << 30

	entries := make([]keyed, 0, len(times))
	for _, t := range times {
		k := unparseableKey
		if r, err := p.Parse(t); err == nil {
			k = r.MinutesOfDay()
		}
		entries = append(entries, keyed{value: t, key: k})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].key < entries[j].key
	})

	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.value)
	}
	return out
}

// FormatDuration renderiza minutos como texto humano:
// "N minute(s)", "N hour(s)" o "H hour(s) and M minute(s)".
func FormatDuration(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	if minutes < 60 {
		return fmt.Sprintf("%d %s", minutes, plural(minutes, "minute"))
	}
	hours := minutes / 60
	rest := minutes % 60
	if rest == 0 {
		return fmt.Sprintf("%d %s", hours, plural(hours, "hour"))
	}
	return fmt.Sprintf("%d %s and %d %s",
		hours, plural(hours, "hour"),
		rest, plural(rest, "minute"))
}

func plural(n int, unit string) string {
	if n == 1 {
		return unit
	}
	return unit + "s"
}

func (p *Parser) nowMinutes() int {
	now := p.now()
	return now.Hour()*60 + now.Minute()
}
