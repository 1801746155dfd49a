package sqlite

import (
	"context"

	"med-reminder/internal/domain/medications"
)

// Seed siembra el set fijo de ejemplo solo si la tabla está vacía.
func (s *Store) Seed(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM medications`).Scan(&count); err != nil {
		return classify(err, "count medications for seed")
	}
	if count > 0 {
		return nil
	}

	for _, in := range medications.SampleSeed {
		if _, err := s.Add(ctx, in); err != nil {
			return err
		}
	}

	s.log.Info("seeded sample medications", map[string]any{"count": len(medications.SampleSeed)})
	return nil
}
