package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"med-reminder/internal/domain/medications"
	"med-reminder/internal/platform/logger"

	"github.com/mattn/go-sqlite3"
)

// Store implementa medications.Store sobre SQLite embebido.
// Abre con WAL y foreign_keys activas; el cascade de status depende
// de las FK.
type Store struct {
	path string
	db   *sql.DB
	log  logger.Logger
	now  func() time.Time
}

type Options struct {
	Logger logger.Logger
	Now    func() time.Time
}

// New crea el store sin abrir nada; la apertura real pasa en Init.
// Usar ":memory:" como path para una base en memoria (tests).
func New(path string, opts Options) *Store {
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		path: path,
		log:  opts.Logger,
		now:  opts.Now,
	}
}

// Init abre/crea la base, verifica la versión de schema aplicando
// migraciones incrementales y siembra datos de ejemplo si la tabla
// de medicamentos está vacía.
func (s *Store) Init(ctx context.Context) error {
	if s.db != nil {
		return nil
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL", s.path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return medications.WrapError(medications.CodeInitFailed, "open sqlite database", err)
	}

	// SQLite embebido: un solo writer; más conexiones solo traen SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return medications.WrapError(medications.CodeConnectionFailed, "ping sqlite database", err)
	}

	if err := s.migrate(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db

	if err := s.Seed(ctx); err != nil {
		s.db = nil
		_ = db.Close()
		return err
	}

	s.log.Info("sqlite store ready", map[string]any{"path": s.path})
	return nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) ready() error {
	if s.db == nil {
		return medications.NewError(medications.CodeConnectionFailed, "sqlite store not initialized")
	}
	return nil
}

// classify mapea errores del driver a la taxonomía estable.
func classify(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return medications.WrapError(medications.CodeNotFound, msg, err)
	}

	var se sqlite3.Error
	if errors.As(err, &se) {
		switch se.Code {
		case sqlite3.ErrConstraint:
			return medications.WrapError(medications.CodeConstraintViolation, msg, err)
		case sqlite3.ErrCantOpen, sqlite3.ErrBusy, sqlite3.ErrLocked:
			return medications.WrapError(medications.CodeConnectionFailed, msg, err)
		}
	}
	return medications.WrapError(medications.CodeQueryFailed, msg, err)
}
