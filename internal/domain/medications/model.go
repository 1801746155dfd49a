package medications

import "time"

// Medication representa un medicamento recetado con su horario de toma.
// Time siempre está en forma canónica 24h "HH:MM".
// Las fechas son fechas calendario "YYYY-MM-DD" (sin hora); EndDate nil
// significa tratamiento sin fecha de fin.
type Medication struct {
	ID           int64
	Name         string
	Dosage       string
	Frequency    string
	Time         string
	Instructions string
	StartDate    string
	EndDate      *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ActiveOn indica si el medicamento está activo en la fecha dada:
// startDate <= date y (endDate nulo o endDate >= date), a granularidad
// de día calendario. Las fechas "YYYY-MM-DD" comparan lexicográficamente.
func (m Medication) ActiveOn(date string) bool {
	if m.StartDate > date {
		return false
	}
	if m.EndDate != nil && *m.EndDate < date {
		return false
	}
	return true
}

// Status es la fila por (medicamento, día) que registra si la dosis
// se tomó. A lo sumo una fila por par (MedicationID, Date).
// TakenAt solo se setea cuando Taken es true.
type Status struct {
	ID           int64
	MedicationID int64
	Date         string
	Taken        bool
	TakenAt      *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// WithStatus es la composición de solo-lectura: medicamento más su
// status opcional para una fecha puntual. No se persiste.
type WithStatus struct {
	Medication
	Status *Status
}

// NewMedication es el input del alta. El ID lo asigna el store.
type NewMedication struct {
	Name         string
	Dosage       string
	Frequency    string
	Time         string
	Instructions string
	StartDate    string
	EndDate      *string
}

// UpdateInput es el update parcial: solo los campos no-nil tocan la fila.
// ClearEndDate pone endDate en nulo (volver a tratamiento abierto).
// ID y CreatedAt nunca se tocan; UpdatedAt se refresca siempre.
type UpdateInput struct {
	Name         *string
	Dosage       *string
	Frequency    *string
	Time         *string
	Instructions *string
	StartDate    *string
	EndDate      *string
	ClearEndDate bool
}

// IsEmpty indica si el update no trae ningún campo.
func (u UpdateInput) IsEmpty() bool {
	return u.Name == nil &&
		u.Dosage == nil &&
		u.Frequency == nil &&
		u.Time == nil &&
		u.Instructions == nil &&
		u.StartDate == nil &&
		u.EndDate == nil &&
		!u.ClearEndDate
}
