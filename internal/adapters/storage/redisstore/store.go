package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"med-reminder/internal/domain/medications"
	"med-reminder/internal/platform/logger"

	"github.com/go-redis/redis/v8"
)

// Claves fijas: dos blobs independientes, cada uno un array JSON
// con la colección completa.
const (
	keyMedications = "medreminder:medications"
	keyStatuses    = "medreminder:medication_status"
)

// Store implementa medications.Store sobre un key-value plano (Redis).
// Toda mutación es read-modify-write del blob completo, por lo que las
// escrituras van en serie por una cola de operaciones de un solo slot:
// el backend no tiene locking propio y sin la cola dos upserts
// concurrentes pisarían snapshots viejos. La cola es obligatoria, no
// una optimización.
type Store struct {
	client *redis.Client
	log    logger.Logger
	now    func() time.Time

	mu   sync.Mutex // protege ops/done contra Init/Close concurrentes
	ops  chan queuedOp
	done chan struct{}
}

type queuedOp struct {
	ctx    context.Context
	fn     func(ctx context.Context) error
	result chan error
}

type Options struct {
	Logger logger.Logger
	Now    func() time.Time
}

// New crea el store sobre un cliente ya configurado. El store toma
// ownership del cliente: Close() lo cierra.
func New(client *redis.Client, opts Options) *Store {
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		client: client,
		log:    opts.Logger,
		now:    opts.Now,
	}
}

// Init verifica la conexión, arranca el worker de la cola y siembra
// si la colección está vacía.
func (s *Store) Init(ctx context.Context) error {
	s.mu.Lock()
	if s.ops != nil {
		s.mu.Unlock()
		return nil
	}

	if err := s.client.Ping(ctx).Err(); err != nil {
		s.mu.Unlock()
		return medications.WrapError(medications.CodeConnectionFailed, "ping redis", err)
	}

	s.ops = make(chan queuedOp)
	s.done = make(chan struct{})
	go s.worker(s.ops, s.done)
	s.mu.Unlock()

	if err := s.Seed(ctx); err != nil {
		s.stopWorker()
		return err
	}

	s.log.Info("redis flat store ready", nil)
	return nil
}

func (s *Store) Close() error {
	s.stopWorker()
	return s.client.Close()
}

func (s *Store) stopWorker() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		close(s.done)
		s.done = nil
		s.ops = nil
	}
}

// channels devuelve el par (ops, done) vigente bajo lock; nil si el
// store no está inicializado o ya se cerró.
func (s *Store) channels() (chan queuedOp, chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ops, s.done
}

// worker aplica las mutaciones de a una, en orden de llegada.
func (s *Store) worker(ops chan queuedOp, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case op := <-ops:
			op.result <- op.fn(op.ctx)
		}
	}
}

// enqueue serializa fn por el worker y espera su resultado. El select
// también escucha done: un Close con escrituras encoladas no deja
// callers colgados esperando un worker que ya salió.
func (s *Store) enqueue(ctx context.Context, fn func(ctx context.Context) error) error {
	ops, done := s.channels()
	if ops == nil {
		return medications.NewError(medications.CodeConnectionFailed, "redis store not initialized")
	}

	op := queuedOp{ctx: ctx, fn: fn, result: make(chan error, 1)}
	select {
	case ops <- op:
		return <-op.result
	case <-done:
		return medications.NewError(medications.CodeConnectionFailed, "redis store closed")
	case <-ctx.Done():
		return medications.WrapError(medications.CodeConnectionFailed, "enqueue aborted by context", ctx.Err())
	}
}

func (s *Store) ready() error {
	if ops, _ := s.channels(); ops == nil {
		return medications.NewError(medications.CodeConnectionFailed, "redis store not initialized")
	}
	return nil
}

// readMedications lee y decodifica el blob completo; clave ausente
// equivale a colección vacía.
func (s *Store) readMedications(ctx context.Context) ([]medicationRecord, error) {
	raw, err := s.client.Get(ctx, keyMedications).Result()
	if errors.Is(err, redis.Nil) {
		return []medicationRecord{}, nil
	}
	if err != nil {
		return nil, medications.WrapError(medications.CodeQueryFailed, "read medications blob", err)
	}

	var out []medicationRecord
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, medications.WrapError(medications.CodeQueryFailed, "decode medications blob", err)
	}
	return out, nil
}

func (s *Store) writeMedications(ctx context.Context, recs []medicationRecord) error {
	raw, err := json.Marshal(recs)
	if err != nil {
		return medications.WrapError(medications.CodeQueryFailed, "encode medications blob", err)
	}
	if err := s.client.Set(ctx, keyMedications, raw, 0).Err(); err != nil {
		return medications.WrapError(medications.CodeQueryFailed, "write medications blob", err)
	}
	return nil
}

func (s *Store) readStatuses(ctx context.Context) ([]statusRecord, error) {
	raw, err := s.client.Get(ctx, keyStatuses).Result()
	if errors.Is(err, redis.Nil) {
		return []statusRecord{}, nil
	}
	if err != nil {
		return nil, medications.WrapError(medications.CodeQueryFailed, "read statuses blob", err)
	}

	var out []statusRecord
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, medications.WrapError(medications.CodeQueryFailed, "decode statuses blob", err)
	}
	return out, nil
}

func (s *Store) writeStatuses(ctx context.Context, recs []statusRecord) error {
	raw, err := json.Marshal(recs)
	if err != nil {
		return medications.WrapError(medications.CodeQueryFailed, "encode statuses blob", err)
	}
	if err := s.client.Set(ctx, keyStatuses, raw, 0).Err(); err != nil {
		return medications.WrapError(medications.CodeQueryFailed, "write statuses blob", err)
	}
	return nil
}

// nextID asigna max(ids)+1, o 1 si está vacío. Solo es seguro dentro
// de la cola.
func nextMedicationID(recs []medicationRecord) int64 {
	var max int64
	for _, r := range recs {
		if r.ID > max {
			max = r.ID
		}
	}
	return max + 1
}

func nextStatusID(recs []statusRecord) int64 {
	var max int64
	for _, r := range recs {
		if r.ID > max {
			max = r.ID
		}
	}
	return max + 1
}

func sortByTime(meds []medications.Medication) {
	sort.SliceStable(meds, func(i, j int) bool {
		if meds[i].Time != meds[j].Time {
			return meds[i].Time < meds[j].Time
		}
		return meds[i].ID < meds[j].ID
	})
}
