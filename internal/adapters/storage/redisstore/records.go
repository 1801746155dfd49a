package redisstore

import (
	"time"

	"med-reminder/internal/domain/medications"
)

// Shapes JSON de los blobs. Mismos nombres de campo que expone la API
// para que el blob sea legible/debuggeable tal cual.

type medicationRecord struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Dosage       string    `json:"dosage"`
	Frequency    string    `json:"frequency"`
	Time         string    `json:"time"`
	Instructions string    `json:"instructions,omitempty"`
	StartDate    string    `json:"startDate"`
	EndDate      *string   `json:"endDate"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type statusRecord struct {
	ID           int64      `json:"id"`
	MedicationID int64      `json:"medicationId"`
	Date         string     `json:"date"`
	Taken        bool       `json:"taken"`
	TakenAt      *time.Time `json:"takenAt"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func toMedication(r medicationRecord) medications.Medication {
	return medications.Medication{
		ID:           r.ID,
		Name:         r.Name,
		Dosage:       r.Dosage,
		Frequency:    r.Frequency,
		Time:         r.Time,
		Instructions: r.Instructions,
		StartDate:    r.StartDate,
		EndDate:      r.EndDate,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func toStatus(r statusRecord) medications.Status {
	return medications.Status{
		ID:           r.ID,
		MedicationID: r.MedicationID,
		Date:         r.Date,
		Taken:        r.Taken,
		TakenAt:      r.TakenAt,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}
