package sqlite

import (
	"context"
	"database/sql"

	"med-reminder/internal/domain/medications"
)

// Migración incremental: lista ordenada de pasos versionados.
// schema_version guarda la versión aplicada y se chequea en cada Init.
// El drop total quedó solo como recuperación de último recurso cuando
// el chequeo estructural detecta un schema ajeno o corrupto.

type migration struct {
	version int
	ddl     string
}

var migrations = []migration{
	{
		version: 1,
		ddl: `
		CREATE TABLE IF NOT EXISTS medications (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			dosage TEXT NOT NULL,
			frequency TEXT NOT NULL,
			time TEXT NOT NULL,
			instructions TEXT,
			startDate TEXT NOT NULL,
			endDate TEXT,
			createdAt TIMESTAMP NOT NULL,
			updatedAt TIMESTAMP NOT NULL
		);

		CREATE TABLE IF NOT EXISTS medication_status (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			medicationId INTEGER NOT NULL REFERENCES medications(id) ON DELETE CASCADE,
			date TEXT NOT NULL,
			taken BOOLEAN NOT NULL DEFAULT 0,
			takenAt TIMESTAMP,
			createdAt TIMESTAMP NOT NULL,
			updatedAt TIMESTAMP NOT NULL
		);
		`,
	},
	{
		version: 2,
		ddl: `
		CREATE INDEX IF NOT EXISTS idx_medications_start_date ON medications(startDate);
		CREATE INDEX IF NOT EXISTS idx_medications_time ON medications(time);

		-- UNIQUE respalda el invariante "a lo sumo una fila por (med, día)"
		-- y habilita el upsert nativo ON CONFLICT.
		CREATE UNIQUE INDEX IF NOT EXISTS idx_status_medication_date
			ON medication_status(medicationId, date);
		`,
	},
}

const expectedVersion = 2

var requiredColumns = map[string][]string{
	"medications": {
		"id", "name", "dosage", "frequency", "time",
		"instructions", "startDate", "endDate", "createdAt", "updatedAt",
	},
	"medication_status": {
		"id", "medicationId", "date", "taken", "takenAt", "createdAt", "updatedAt",
	},
}

func (s *Store) migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`); err != nil {
		return medications.WrapError(medications.CodeInitFailed, "create schema_version table", err)
	}

	current, err := readVersion(ctx, db)
	if err != nil {
		return err
	}

	// Un marker por delante del esperado, o tablas con columnas faltantes,
	// significa schema de otra cosa: reset destructivo como último recurso.
	if current > expectedVersion || (current > 0 && !s.structureOK(ctx, db)) {
		s.log.Warn("schema check failed, resetting database", map[string]any{
			"found":    current,
			"expected": expectedVersion,
		})
		if err := reset(ctx, db); err != nil {
			return err
		}
		current = 0
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := applyMigration(ctx, db, m); err != nil {
			return err
		}
		s.log.Info("applied schema migration", map[string]any{"version": m.version})
	}

	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return medications.WrapError(medications.CodeTransactionFailed, "begin migration tx", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.ddl); err != nil {
		return medications.WrapError(medications.CodeInitFailed, "apply migration ddl", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM schema_version`); err != nil {
		return medications.WrapError(medications.CodeInitFailed, "clear schema version", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, m.version); err != nil {
		return medications.WrapError(medications.CodeInitFailed, "write schema version", err)
	}
	if err := tx.Commit(); err != nil {
		return medications.WrapError(medications.CodeTransactionFailed, "commit migration", err)
	}
	return nil
}

func readVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v int
	err := db.QueryRowContext(ctx, `SELECT version FROM schema_version LIMIT 1`).Scan(&v)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, medications.WrapError(medications.CodeInitFailed, "read schema version", err)
	}
	return v, nil
}

// structureOK hace el chequeo liviano: que existan todas las columnas
// requeridas de ambas tablas.
func (s *Store) structureOK(ctx context.Context, db *sql.DB) bool {
	for table, cols := range requiredColumns {
		found := map[string]bool{}

		rows, err := db.QueryContext(ctx, `SELECT name FROM pragma_table_info(?)`, table)
		if err != nil {
			return false
		}
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				rows.Close()
				return false
			}
			found[name] = true
		}
		rows.Close()
		if rows.Err() != nil {
			return false
		}

		for _, c := range cols {
			if !found[c] {
				return false
			}
		}
	}
	return true
}

func reset(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`DROP TABLE IF EXISTS medication_status`,
		`DROP TABLE IF EXISTS medications`,
		`DELETE FROM schema_version`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return medications.WrapError(medications.CodeInitFailed, "reset schema", err)
		}
	}
	return nil
}
