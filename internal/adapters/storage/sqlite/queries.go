package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"med-reminder/internal/domain/medications"

	"github.com/mattn/go-sqlite3"
)

const medColumns = `id, name, dosage, frequency, time, instructions, startDate, endDate, createdAt, updatedAt`

func (s *Store) GetAll(ctx context.Context) ([]medications.Medication, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+medColumns+`
		FROM medications
		ORDER BY time ASC, id ASC
	`)
	if err != nil {
		return nil, classify(err, "list medications")
	}
	defer rows.Close()

	return scanMedications(rows)
}

func (s *Store) GetByID(ctx context.Context, id int64) (medications.Medication, error) {
	if err := s.ready(); err != nil {
		return medications.Medication{}, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+medColumns+`
		FROM medications
		WHERE id = ?
	`, id)

	m, err := scanMedication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return medications.Medication{}, medications.NewErrorf(medications.CodeNotFound, "medication %d not found", id)
		}
		return medications.Medication{}, classify(err, "get medication")
	}
	return m, nil
}

func (s *Store) Add(ctx context.Context, in medications.NewMedication) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}

	now := s.now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO medications (name, dosage, frequency, time, instructions, startDate, endDate, createdAt, updatedAt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		in.Name,
		in.Dosage,
		in.Frequency,
		in.Time,
		in.Instructions,
		in.StartDate,
		toNullString(in.EndDate),
		now,
		now,
	)
	if err != nil {
		return 0, classify(err, "insert medication")
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, classify(err, "read inserted id")
	}
	return id, nil
}

// Update arma el SET parcial solo con los campos presentes en el input.
// id y createdAt nunca entran; updatedAt se refresca siempre.
func (s *Store) Update(ctx context.Context, id int64, in medications.UpdateInput) error {
	if err := s.ready(); err != nil {
		return err
	}

	set := make([]string, 0, 8)
	args := make([]any, 0, 9)

	add := func(col string, v any) {
		set = append(set, col+" = ?")
		args = append(args, v)
	}

	if in.Name != nil {
		add("name", *in.Name)
	}
	if in.Dosage != nil {
		add("dosage", *in.Dosage)
	}
	if in.Frequency != nil {
		add("frequency", *in.Frequency)
	}
	if in.Time != nil {
		add("time", *in.Time)
	}
	if in.Instructions != nil {
		add("instructions", *in.Instructions)
	}
	if in.StartDate != nil {
		add("startDate", *in.StartDate)
	}
	if in.EndDate != nil {
		add("endDate", *in.EndDate)
	}
	if in.ClearEndDate {
		add("endDate", nil)
	}
	add("updatedAt", s.now())

	args = append(args, id)
	res, err := s.db.ExecContext(ctx, `
		UPDATE medications SET `+strings.Join(set, ", ")+` WHERE id = ?
	`, args...)
	if err != nil {
		return classify(err, "update medication")
	}

	n, _ := res.RowsAffected()
	if n == 0 {
		return medications.NewErrorf(medications.CodeNotFound, "medication %d not found", id)
	}
	return nil
}

// Delete borra el medicamento; las filas de status caen por FK cascade.
func (s *Store) Delete(ctx context.Context, id int64) error {
	if err := s.ready(); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM medications WHERE id = ?`, id)
	if err != nil {
		return classify(err, "delete medication")
	}

	n, _ := res.RowsAffected()
	if n == 0 {
		return medications.NewErrorf(medications.CodeNotFound, "medication %d not found", id)
	}
	return nil
}

func (s *Store) GetByDate(ctx context.Context, date string) ([]medications.Medication, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+medColumns+`
		FROM medications
		WHERE startDate <= ? AND (endDate IS NULL OR endDate >= ?)
		ORDER BY time ASC, id ASC
	`, date, date)
	if err != nil {
		return nil, classify(err, "list medications by date")
	}
	defer rows.Close()

	return scanMedications(rows)
}

const statusColumns = `id, medicationId, date, taken, takenAt, createdAt, updatedAt`

// GetStatus devuelve nil sin error cuando no hay fila: "pendiente,
// sin registro" no es un not-found.
func (s *Store) GetStatus(ctx context.Context, medicationID int64, date string) (*medications.Status, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+statusColumns+`
		FROM medication_status
		WHERE medicationId = ? AND date = ?
	`, medicationID, date)

	st, err := scanStatus(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, classify(err, "get status")
	}
	return &st, nil
}

func (s *Store) GetAllStatusesForDate(ctx context.Context, date string) ([]medications.Status, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+statusColumns+`
		FROM medication_status
		WHERE date = ?
		ORDER BY medicationId ASC
	`, date)
	if err != nil {
		return nil, classify(err, "list statuses for date")
	}
	defer rows.Close()

	out := make([]medications.Status, 0)
	for rows.Next() {
		st, err := scanStatus(rows)
		if err != nil {
			return nil, classify(err, "scan status")
		}
		out = append(out, st)
	}
	return out, classify(rows.Err(), "iterate statuses")
}

// UpsertStatus es un upsert nativo en una sola sentencia: sin ventana
// de carrera check-then-write. createdAt se conserva en el update.
func (s *Store) UpsertStatus(ctx context.Context, medicationID int64, date string, taken bool) (medications.Status, error) {
	if err := s.ready(); err != nil {
		return medications.Status{}, err
	}

	now := s.now()
	var takenAt any
	if taken {
		takenAt = now
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO medication_status (medicationId, date, taken, takenAt, createdAt, updatedAt)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(medicationId, date) DO UPDATE SET
			taken = excluded.taken,
			takenAt = excluded.takenAt,
			updatedAt = excluded.updatedAt
	`, medicationID, date, taken, takenAt, now, now)
	if err != nil {
		var se sqlite3.Error
		if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintForeignKey {
			return medications.Status{}, medications.NewErrorf(medications.CodeNotFound, "medication %d not found", medicationID)
		}
		return medications.Status{}, classify(err, "upsert status")
	}

	st, err := s.GetStatus(ctx, medicationID, date)
	if err != nil {
		return medications.Status{}, err
	}
	if st == nil {
		return medications.Status{}, medications.NewError(medications.CodeQueryFailed, "status row missing after upsert")
	}
	return *st, nil
}

func (s *Store) GetWithStatusForDate(ctx context.Context, date string) ([]medications.WithStatus, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT
			m.id, m.name, m.dosage, m.frequency, m.time, m.instructions,
			m.startDate, m.endDate, m.createdAt, m.updatedAt,
			ms.id, ms.medicationId, ms.date, ms.taken, ms.takenAt, ms.createdAt, ms.updatedAt
		FROM medications m
		LEFT JOIN medication_status ms
			ON ms.medicationId = m.id AND ms.date = ?
		WHERE m.startDate <= ? AND (m.endDate IS NULL OR m.endDate >= ?)
		ORDER BY m.time ASC, m.id ASC
	`, date, date, date)
	if err != nil {
		return nil, classify(err, "list medications with status")
	}
	defer rows.Close()

	out := make([]medications.WithStatus, 0)
	for rows.Next() {
		var (
			m            medications.Medication
			instructions sql.NullString
			endDate      sql.NullString

			stID      sql.NullInt64
			stMedID   sql.NullInt64
			stDate    sql.NullString
			stTaken   sql.NullBool
			stTakenAt sql.NullTime
			stCreated sql.NullTime
			stUpdated sql.NullTime
		)

		if err := rows.Scan(
			&m.ID, &m.Name, &m.Dosage, &m.Frequency, &m.Time, &instructions,
			&m.StartDate, &endDate, &m.CreatedAt, &m.UpdatedAt,
			&stID, &stMedID, &stDate, &stTaken, &stTakenAt, &stCreated, &stUpdated,
		); err != nil {
			return nil, classify(err, "scan medication with status")
		}

		m.Instructions = instructions.String
		if endDate.Valid {
			v := endDate.String
			m.EndDate = &v
		}

		ws := medications.WithStatus{Medication: m}
		if stID.Valid {
			st := medications.Status{
				ID:           stID.Int64,
				MedicationID: stMedID.Int64,
				Date:         stDate.String,
				Taken:        stTaken.Bool,
				CreatedAt:    stCreated.Time,
				UpdatedAt:    stUpdated.Time,
			}
			if stTakenAt.Valid {
				t := stTakenAt.Time
				st.TakenAt = &t
			}
			ws.Status = &st
		}
		out = append(out, ws)
	}
	return out, classify(rows.Err(), "iterate medications with status")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMedication(row rowScanner) (medications.Medication, error) {
	var (
		m            medications.Medication
		instructions sql.NullString
		endDate      sql.NullString
	)
	if err := row.Scan(
		&m.ID, &m.Name, &m.Dosage, &m.Frequency, &m.Time, &instructions,
		&m.StartDate, &endDate, &m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return medications.Medication{}, err
	}
	m.Instructions = instructions.String
	if endDate.Valid {
		v := endDate.String
		m.EndDate = &v
	}
	return m, nil
}

func scanMedications(rows *sql.Rows) ([]medications.Medication, error) {
	out := make([]medications.Medication, 0)
	for rows.Next() {
		m, err := scanMedication(rows)
		if err != nil {
			return nil, classify(err, "scan medication")
		}
		out = append(out, m)
	}
	return out, classify(rows.Err(), "iterate medications")
}

func scanStatus(row rowScanner) (medications.Status, error) {
	var (
		st      medications.Status
		takenAt sql.NullTime
	)
	if err := row.Scan(
		&st.ID, &st.MedicationID, &st.Date, &st.Taken, &takenAt, &st.CreatedAt, &st.UpdatedAt,
	); err != nil {
		return medications.Status{}, err
	}
	if takenAt.Valid {
		t := takenAt.Time
		st.TakenAt = &t
	}
	return st, nil
}

func toNullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
