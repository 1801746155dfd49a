package medications

import (
	"context"
	"sync/atomic"
	"time"

	"med-reminder/internal/platform/logger"
)

// Service envuelve un Store con validación, clasificación de errores y
// reintentos con backoff exponencial para fallas transitorias.
// Las fallas de validación vuelven como INVALID_INPUT sin tocar el
// adapter ni consumir intentos. Toda operación exige Init() previo.
type Service struct {
	store Store
	log   logger.Logger

	attempts    int
	baseDelay   time.Duration
	initTimeout time.Duration

	initialized atomic.Bool

	// inyectable para tests (evita dormir de verdad)
	sleep func(ctx context.Context, d time.Duration) error
}

type ServiceOptions struct {
	Attempts    int           // intentos totales por operación (default 3)
	BaseDelay   time.Duration // delay base del backoff (default 100ms)
	InitTimeout time.Duration // timeout global solo para Init (default 5s)
	Logger      logger.Logger
}

func NewService(store Store, opts ServiceOptions) *Service {
	if opts.Attempts <= 0 {
		opts.Attempts = 3
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 100 * time.Millisecond
	}
	if opts.InitTimeout <= 0 {
		opts.InitTimeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	return &Service{
		store:       store,
		log:         opts.Logger,
		attempts:    opts.Attempts,
		baseDelay:   opts.BaseDelay,
		initTimeout: opts.InitTimeout,
		sleep:       sleepCtx,
	}
}

// Init inicializa el adapter con timeout global. Es la única operación
// con timeout propio; el resto corre con el contexto del caller.
func (s *Service) Init(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.initTimeout)
	defer cancel()

	err := s.withRetry(ctx, "init", func(c context.Context) error {
		return s.store.Init(c)
	})
	if err != nil {
		e := Classify(err)
		if e.Code == CodeQueryFailed {
			e = WrapError(CodeInitFailed, "store initialization failed", err)
		}
		s.log.Error("store init failed", map[string]any{"code": e.Code, "err": e.Error()})
		return e
	}

	s.initialized.Store(true)
	s.log.Info("store initialized", nil)
	return nil
}

func (s *Service) Close() error {
	s.initialized.Store(false)
	return s.store.Close()
}

// ensureInit corta cualquier operación previa a un Init exitoso sin
// invocar el adapter.
func (s *Service) ensureInit() *Error {
	if !s.initialized.Load() {
		return NewError(CodeConnectionFailed, "store not initialized; call Init first")
	}
	return nil
}

func (s *Service) GetAll(ctx context.Context) ([]Medication, error) {
	if err := s.ensureInit(); err != nil {
		return nil, err
	}
	var out []Medication
	err := s.withRetry(ctx, "get_all", func(c context.Context) error {
		var err error
		out, err = s.store.GetAll(c)
		return err
	})
	return out, err
}

func (s *Service) GetByID(ctx context.Context, id int64) (Medication, error) {
	if err := s.ensureInit(); err != nil {
		return Medication{}, err
	}
	if err := validateID(id); err != nil {
		return Medication{}, err
	}
	var out Medication
	err := s.withRetry(ctx, "get_by_id", func(c context.Context) error {
		var err error
		out, err = s.store.GetByID(c, id)
		return err
	})
	return out, err
}

func (s *Service) Add(ctx context.Context, in NewMedication) (int64, error) {
	if err := s.ensureInit(); err != nil {
		return 0, err
	}
	if err := validateNew(in); err != nil {
		return 0, err
	}
	var id int64
	err := s.withRetry(ctx, "add", func(c context.Context) error {
		var err error
		id, err = s.store.Add(c, in)
		return err
	})
	return id, err
}

func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) error {
	if err := s.ensureInit(); err != nil {
		return err
	}
	if err := validateID(id); err != nil {
		return err
	}
	if err := validateUpdate(in); err != nil {
		return err
	}

	// mover una sola punta del rango puede invalidar la otra: se chequea
	// el par resultante contra la fila existente antes de escribir
	if (in.StartDate != nil) != (in.EndDate != nil) && !in.ClearEndDate {
		current, err := s.GetByID(ctx, id)
		if err != nil {
			return err
		}

		start := current.StartDate
		if in.StartDate != nil {
			start = *in.StartDate
		}
		end := current.EndDate
		if in.EndDate != nil {
			end = in.EndDate
		}
		if end != nil && *end < start {
			return NewErrorf(CodeInvalidInput, "endDate %s is before startDate %s", *end, start)
		}
	}

	return s.withRetry(ctx, "update", func(c context.Context) error {
		return s.store.Update(c, id, in)
	})
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.ensureInit(); err != nil {
		return err
	}
	if err := validateID(id); err != nil {
		return err
	}
	return s.withRetry(ctx, "delete", func(c context.Context) error {
		return s.store.Delete(c, id)
	})
}

func (s *Service) GetByDate(ctx context.Context, date string) ([]Medication, error) {
	if err := s.ensureInit(); err != nil {
		return nil, err
	}
	if err := validateDate(date); err != nil {
		return nil, err
	}
	var out []Medication
	err := s.withRetry(ctx, "get_by_date", func(c context.Context) error {
		var err error
		out, err = s.store.GetByDate(c, date)
		return err
	})
	return out, err
}

func (s *Service) GetStatus(ctx context.Context, medicationID int64, date string) (*Status, error) {
	if err := s.ensureInit(); err != nil {
		return nil, err
	}
	if err := validateID(medicationID); err != nil {
		return nil, err
	}
	if err := validateDate(date); err != nil {
		return nil, err
	}
	var out *Status
	err := s.withRetry(ctx, "get_status", func(c context.Context) error {
		var err error
		out, err = s.store.GetStatus(c, medicationID, date)
		return err
	})
	return out, err
}

func (s *Service) GetAllStatusesForDate(ctx context.Context, date string) ([]Status, error) {
	if err := s.ensureInit(); err != nil {
		return nil, err
	}
	if err := validateDate(date); err != nil {
		return nil, err
	}
	var out []Status
	err := s.withRetry(ctx, "get_statuses_for_date", func(c context.Context) error {
		var err error
		out, err = s.store.GetAllStatusesForDate(c, date)
		return err
	})
	return out, err
}

func (s *Service) UpsertStatus(ctx context.Context, medicationID int64, date string, taken bool) (Status, error) {
	if err := s.ensureInit(); err != nil {
		return Status{}, err
	}
	if err := validateID(medicationID); err != nil {
		return Status{}, err
	}
	if err := validateDate(date); err != nil {
		return Status{}, err
	}
	var out Status
	err := s.withRetry(ctx, "upsert_status", func(c context.Context) error {
		var err error
		out, err = s.store.UpsertStatus(c, medicationID, date, taken)
		return err
	})
	return out, err
}

func (s *Service) GetWithStatusForDate(ctx context.Context, date string) ([]WithStatus, error) {
	if err := s.ensureInit(); err != nil {
		return nil, err
	}
	if err := validateDate(date); err != nil {
		return nil, err
	}
	var out []WithStatus
	err := s.withRetry(ctx, "get_with_status_for_date", func(c context.Context) error {
		var err error
		out, err = s.store.GetWithStatusForDate(c, date)
		return err
	})
	return out, err
}

func (s *Service) Seed(ctx context.Context) error {
	if err := s.ensureInit(); err != nil {
		return err
	}
	return s.withRetry(ctx, "seed", func(c context.Context) error {
		return s.store.Seed(c)
	})
}

// withRetry ejecuta fn hasta attempts veces. Solo reintenta fallas
// transitorias; backoff = baseDelay * 2^(intento-1).
func (s *Service) withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var last error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		e := Classify(err)
		last = e
		if !IsTransient(e) {
			return e
		}
		if attempt == s.attempts {
			break
		}

		delay := s.baseDelay * (1 << (attempt - 1))
		s.log.Warn("transient store failure, retrying", map[string]any{
			"op":      op,
			"attempt": attempt,
			"delay":   delay.String(),
			"err":     e.Error(),
		})
		if err := s.sleep(ctx, delay); err != nil {
			return WrapError(CodeConnectionFailed, "retry aborted by context", err)
		}
	}

	s.log.Error("store operation exhausted retries", map[string]any{
		"op":  op,
		"err": last.Error(),
	})
	return last
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
