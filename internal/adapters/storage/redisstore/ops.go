package redisstore

import (
	"context"

	"med-reminder/internal/domain/medications"
)

func (s *Store) GetAll(ctx context.Context) ([]medications.Medication, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	recs, err := s.readMedications(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]medications.Medication, 0, len(recs))
	for _, r := range recs {
		out = append(out, toMedication(r))
	}
	sortByTime(out)
	return out, nil
}

func (s *Store) GetByID(ctx context.Context, id int64) (medications.Medication, error) {
	if err := s.ready(); err != nil {
		return medications.Medication{}, err
	}

	recs, err := s.readMedications(ctx)
	if err != nil {
		return medications.Medication{}, err
	}
	for _, r := range recs {
		if r.ID == id {
			return toMedication(r), nil
		}
	}
	return medications.Medication{}, medications.NewErrorf(medications.CodeNotFound, "medication %d not found", id)
}

func (s *Store) Add(ctx context.Context, in medications.NewMedication) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}

	var id int64
	err := s.enqueue(ctx, func(ctx context.Context) error {
		recs, err := s.readMedications(ctx)
		if err != nil {
			return err
		}

		now := s.now()
		id = nextMedicationID(recs)
		recs = append(recs, medicationRecord{
			ID:           id,
			Name:         in.Name,
			Dosage:       in.Dosage,
			Frequency:    in.Frequency,
			Time:         in.Time,
			Instructions: in.Instructions,
			StartDate:    in.StartDate,
			EndDate:      in.EndDate,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		return s.writeMedications(ctx, recs)
	})
	return id, err
}

func (s *Store) Update(ctx context.Context, id int64, in medications.UpdateInput) error {
	if err := s.ready(); err != nil {
		return err
	}

	return s.enqueue(ctx, func(ctx context.Context) error {
		recs, err := s.readMedications(ctx)
		if err != nil {
			return err
		}

		for i := range recs {
			if recs[i].ID != id {
				continue
			}

			r := &recs[i]
			if in.Name != nil {
				r.Name = *in.Name
			}
			if in.Dosage != nil {
				r.Dosage = *in.Dosage
			}
			if in.Frequency != nil {
				r.Frequency = *in.Frequency
			}
			if in.Time != nil {
				r.Time = *in.Time
			}
			if in.Instructions != nil {
				r.Instructions = *in.Instructions
			}
			if in.StartDate != nil {
				r.StartDate = *in.StartDate
			}
			if in.EndDate != nil {
				v := *in.EndDate
				r.EndDate = &v
			}
			if in.ClearEndDate {
				r.EndDate = nil
			}
			r.UpdatedAt = s.now()

			return s.writeMedications(ctx, recs)
		}
		return medications.NewErrorf(medications.CodeNotFound, "medication %d not found", id)
	})
}

// Delete saca el medicamento y cascadea sus filas de status en el
// mismo turno de la cola.
func (s *Store) Delete(ctx context.Context, id int64) error {
	if err := s.ready(); err != nil {
		return err
	}

	return s.enqueue(ctx, func(ctx context.Context) error {
		recs, err := s.readMedications(ctx)
		if err != nil {
			return err
		}

		kept := recs[:0]
		found := false
		for _, r := range recs {
			if r.ID == id {
				found = true
				continue
			}
			kept = append(kept, r)
		}
		if !found {
			return medications.NewErrorf(medications.CodeNotFound, "medication %d not found", id)
		}
		if err := s.writeMedications(ctx, kept); err != nil {
			return err
		}

		sts, err := s.readStatuses(ctx)
		if err != nil {
			return err
		}
		keptSts := sts[:0]
		for _, st := range sts {
			if st.MedicationID != id {
				keptSts = append(keptSts, st)
			}
		}
		return s.writeStatuses(ctx, keptSts)
	})
}

func (s *Store) GetByDate(ctx context.Context, date string) ([]medications.Medication, error) {
	all, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]medications.Medication, 0, len(all))
	for _, m := range all {
		if m.ActiveOn(date) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Store) GetStatus(ctx context.Context, medicationID int64, date string) (*medications.Status, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	sts, err := s.readStatuses(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range sts {
		if r.MedicationID == medicationID && r.Date == date {
			st := toStatus(r)
			return &st, nil
		}
	}
	return nil, nil
}

func (s *Store) GetAllStatusesForDate(ctx context.Context, date string) ([]medications.Status, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	sts, err := s.readStatuses(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]medications.Status, 0)
	for _, r := range sts {
		if r.Date == date {
			out = append(out, toStatus(r))
		}
	}
	return out, nil
}

// UpsertStatus corre entero dentro de la cola: leer el blob, tocar la
// fila y reescribir es atómico respecto de cualquier otro upsert.
func (s *Store) UpsertStatus(ctx context.Context, medicationID int64, date string, taken bool) (medications.Status, error) {
	if err := s.ready(); err != nil {
		return medications.Status{}, err
	}

	var out medications.Status
	err := s.enqueue(ctx, func(ctx context.Context) error {
		recs, err := s.readMedications(ctx)
		if err != nil {
			return err
		}
		exists := false
		for _, r := range recs {
			if r.ID == medicationID {
				exists = true
				break
			}
		}
		if !exists {
			return medications.NewErrorf(medications.CodeNotFound, "medication %d not found", medicationID)
		}

		sts, err := s.readStatuses(ctx)
		if err != nil {
			return err
		}

		now := s.now()
		for i := range sts {
			if sts[i].MedicationID == medicationID && sts[i].Date == date {
				sts[i].Taken = taken
				if taken {
					t := now
					sts[i].TakenAt = &t
				} else {
					sts[i].TakenAt = nil
				}
				sts[i].UpdatedAt = now
				out = toStatus(sts[i])
				return s.writeStatuses(ctx, sts)
			}
		}

		rec := statusRecord{
			ID:           nextStatusID(sts),
			MedicationID: medicationID,
			Date:         date,
			Taken:        taken,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if taken {
			t := now
			rec.TakenAt = &t
		}
		sts = append(sts, rec)
		out = toStatus(rec)
		return s.writeStatuses(ctx, sts)
	})
	return out, err
}

func (s *Store) GetWithStatusForDate(ctx context.Context, date string) ([]medications.WithStatus, error) {
	meds, err := s.GetByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	sts, err := s.GetAllStatusesForDate(ctx, date)
	if err != nil {
		return nil, err
	}

	byMed := make(map[int64]medications.Status, len(sts))
	for _, st := range sts {
		byMed[st.MedicationID] = st
	}

	out := make([]medications.WithStatus, 0, len(meds))
	for _, m := range meds {
		ws := medications.WithStatus{Medication: m}
		if st, ok := byMed[m.ID]; ok {
			stCopy := st
			ws.Status = &stCopy
		}
		out = append(out, ws)
	}
	return out, nil
}

// Seed siembra el set fijo solo si el blob de medicamentos está vacío.
func (s *Store) Seed(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}

	return s.enqueue(ctx, func(ctx context.Context) error {
		recs, err := s.readMedications(ctx)
		if err != nil {
			return err
		}
		if len(recs) > 0 {
			return nil
		}

		now := s.now()
		for _, in := range medications.SampleSeed {
			recs = append(recs, medicationRecord{
				ID:           nextMedicationID(recs),
				Name:         in.Name,
				Dosage:       in.Dosage,
				Frequency:    in.Frequency,
				Time:         in.Time,
				Instructions: in.Instructions,
				StartDate:    in.StartDate,
				EndDate:      in.EndDate,
				CreatedAt:    now,
				UpdatedAt:    now,
			})
		}

		if err := s.writeMedications(ctx, recs); err != nil {
			return err
		}
		s.log.Info("seeded sample medications", map[string]any{"count": len(medications.SampleSeed)})
		return nil
	})
}
