package medications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore registra llamadas y devuelve errores programados por operación.
type fakeStore struct {
	calls map[string]int
	fail  map[string][]error // errores a devolver en orden; luego nil
	med   *Medication        // fila que sirve GetByID (default: solo el id)
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		calls: map[string]int{},
		fail:  map[string][]error{},
	}
}

func (f *fakeStore) step(op string) error {
	f.calls[op]++
	if errs := f.fail[op]; len(errs) > 0 {
		err := errs[0]
		f.fail[op] = errs[1:]
		return err
	}
	return nil
}

func (f *fakeStore) Init(ctx context.Context) error { return f.step("init") }
func (f *fakeStore) Close() error                   { return nil }

func (f *fakeStore) GetAll(ctx context.Context) ([]Medication, error) {
	return nil, f.step("get_all")
}

func (f *fakeStore) GetByID(ctx context.Context, id int64) (Medication, error) {
	m := Medication{ID: id}
	if f.med != nil {
		m = *f.med
		m.ID = id
	}
	return m, f.step("get_by_id")
}

func (f *fakeStore) Add(ctx context.Context, in NewMedication) (int64, error) {
	return 1, f.step("add")
}

func (f *fakeStore) Update(ctx context.Context, id int64, in UpdateInput) error {
	return f.step("update")
}

func (f *fakeStore) Delete(ctx context.Context, id int64) error { return f.step("delete") }

func (f *fakeStore) GetByDate(ctx context.Context, date string) ([]Medication, error) {
	return nil, f.step("get_by_date")
}

func (f *fakeStore) GetStatus(ctx context.Context, medicationID int64, date string) (*Status, error) {
	return nil, f.step("get_status")
}

func (f *fakeStore) GetAllStatusesForDate(ctx context.Context, date string) ([]Status, error) {
	return nil, f.step("get_statuses")
}

func (f *fakeStore) UpsertStatus(ctx context.Context, medicationID int64, date string, taken bool) (Status, error) {
	return Status{MedicationID: medicationID, Date: date, Taken: taken}, f.step("upsert_status")
}

func (f *fakeStore) GetWithStatusForDate(ctx context.Context, date string) ([]WithStatus, error) {
	return nil, f.step("get_with_status")
}

func (f *fakeStore) Seed(ctx context.Context) error { return f.step("seed") }

func newTestService(store Store) *Service {
	svc := NewService(store, ServiceOptions{Attempts: 3, BaseDelay: time.Millisecond})
	svc.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return svc
}

func validNew() NewMedication {
	return NewMedication{
		Name:      "Aspirin",
		Dosage:    "100mg",
		Frequency: "daily",
		Time:      "08:00",
		StartDate: "2025-01-01",
	}
}

func TestService_RequiresInit(t *testing.T) {
	fs := newFakeStore()
	svc := newTestService(fs)

	_, err := svc.GetAll(context.Background())
	require.Error(t, err)
	assert.Equal(t, CodeConnectionFailed, CodeOf(err))
	// nunca tocó el adapter
	assert.Zero(t, fs.calls["get_all"])
}

func TestService_InitFailureClassified(t *testing.T) {
	fs := newFakeStore()
	fs.fail["init"] = []error{
		NewError(CodeInvalidInput, "bad schema config"),
	}
	svc := newTestService(fs)

	err := svc.Init(context.Background())
	require.Error(t, err)
	assert.Equal(t, CodeInvalidInput, CodeOf(err))
}

func TestService_InitGenericFailureBecomesInitFailed(t *testing.T) {
	fs := newFakeStore()
	fs.fail["init"] = []error{
		errors.New("disk on fire"),
		errors.New("disk still on fire"),
		errors.New("disk very much on fire"),
	}
	svc := newTestService(fs)

	err := svc.Init(context.Background())
	require.Error(t, err)
	assert.Equal(t, CodeInitFailed, CodeOf(err))
	assert.Equal(t, 3, fs.calls["init"]) // transitorio => agotó reintentos
}

func TestService_ValidationDoesNotTouchAdapter(t *testing.T) {
	fs := newFakeStore()
	svc := newTestService(fs)
	require.NoError(t, svc.Init(context.Background()))

	tests := []struct {
		name string
		call func() error
	}{
		{"add missing name", func() error {
			in := validNew()
			in.Name = "  "
			_, err := svc.Add(context.Background(), in)
			return err
		}},
		{"add non canonical time", func() error {
			in := validNew()
			in.Time = "8:00 AM"
			_, err := svc.Add(context.Background(), in)
			return err
		}},
		{"add end before start", func() error {
			in := validNew()
			end := "2024-12-31"
			in.EndDate = &end
			_, err := svc.Add(context.Background(), in)
			return err
		}},
		{"update empty payload", func() error {
			return svc.Update(context.Background(), 1, UpdateInput{})
		}},
		{"update blank name", func() error {
			blank := ""
			return svc.Update(context.Background(), 1, UpdateInput{Name: &blank})
		}},
		{"update end before start", func() error {
			start := "2025-06-01"
			end := "2025-01-01"
			return svc.Update(context.Background(), 1, UpdateInput{StartDate: &start, EndDate: &end})
		}},
		{"non positive id", func() error {
			_, err := svc.GetByID(context.Background(), 0)
			return err
		}},
		{"bad date", func() error {
			_, err := svc.GetByDate(context.Background(), "03/10/2025")
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.Equal(t, CodeInvalidInput, CodeOf(err))
		})
	}

	// ninguna validación fallida llegó al adapter
	for _, op := range []string{"add", "update", "get_by_id", "get_by_date"} {
		assert.Zero(t, fs.calls[op], op)
	}
}

// Actualizar una sola punta del rango de fechas no puede dejar la fila
// con endDate < startDate: el par resultante se chequea contra lo ya
// guardado.
func TestService_UpdateKeepsDateWindowConsistent(t *testing.T) {
	fs := newFakeStore()
	end := "2025-06-30"
	fs.med = &Medication{
		Name:      "Aspirin",
		StartDate: "2025-01-01",
		EndDate:   &end,
	}
	svc := newTestService(fs)
	require.NoError(t, svc.Init(context.Background()))

	// endDate solo, anterior al startDate existente
	before := "2024-12-31"
	err := svc.Update(context.Background(), 1, UpdateInput{EndDate: &before})
	require.Error(t, err)
	assert.Equal(t, CodeInvalidInput, CodeOf(err))

	// startDate solo, posterior al endDate existente
	late := "2025-07-15"
	err = svc.Update(context.Background(), 1, UpdateInput{StartDate: &late})
	require.Error(t, err)
	assert.Equal(t, CodeInvalidInput, CodeOf(err))

	// ninguna violación tocó el update del adapter
	assert.Zero(t, fs.calls["update"])

	// mover una punta dentro del rango sí pasa
	ok := "2025-03-01"
	require.NoError(t, svc.Update(context.Background(), 1, UpdateInput{StartDate: &ok}))
	assert.Equal(t, 1, fs.calls["update"])

	// correr startDate más allá del endDate junto con clearEndDate es
	// válido: el rango queda abierto
	require.NoError(t, svc.Update(context.Background(), 1, UpdateInput{StartDate: &late, ClearEndDate: true}))
	assert.Equal(t, 2, fs.calls["update"])
}

func TestService_RetriesTransientFailures(t *testing.T) {
	fs := newFakeStore()
	fs.fail["get_all"] = []error{
		errors.New("connection reset"),
		NewError(CodeConnectionFailed, "still down"),
	}
	svc := newTestService(fs)
	require.NoError(t, svc.Init(context.Background()))

	_, err := svc.GetAll(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 3, fs.calls["get_all"]) // 2 fallas + 1 éxito
}

func TestService_ExhaustsRetries(t *testing.T) {
	fs := newFakeStore()
	fs.fail["get_all"] = []error{
		errors.New("down"), errors.New("down"), errors.New("down"),
	}
	svc := newTestService(fs)
	require.NoError(t, svc.Init(context.Background()))

	_, err := svc.GetAll(context.Background())
	require.Error(t, err)
	assert.Equal(t, CodeQueryFailed, CodeOf(err))
	assert.Equal(t, 3, fs.calls["get_all"])
}

func TestService_PermanentFailuresNotRetried(t *testing.T) {
	fs := newFakeStore()
	fs.fail["get_by_id"] = []error{
		NewError(CodeNotFound, "medication 9 not found"),
	}
	svc := newTestService(fs)
	require.NoError(t, svc.Init(context.Background()))

	_, err := svc.GetByID(context.Background(), 9)
	require.Error(t, err)
	assert.Equal(t, CodeNotFound, CodeOf(err))
	assert.Equal(t, 1, fs.calls["get_by_id"])
}

func TestService_BackoffIsExponential(t *testing.T) {
	fs := newFakeStore()
	fs.fail["get_all"] = []error{
		errors.New("down"), errors.New("down"), errors.New("down"),
	}
	svc := NewService(fs, ServiceOptions{Attempts: 3, BaseDelay: 100 * time.Millisecond})

	var delays []time.Duration
	svc.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	require.NoError(t, svc.Init(context.Background()))

	_, err := svc.GetAll(context.Background())
	require.Error(t, err)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, delays)
}
