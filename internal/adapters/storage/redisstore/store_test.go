package redisstore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"med-reminder/internal/domain/medications"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	s := New(client, Options{
		Now: func() time.Time {
			return time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
		},
	})
	require.NoError(t, s.Init(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestInit_SeedsWhenEmpty(t *testing.T) {
	s := newTestStore(t)

	meds, err := s.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, meds, 3)

	// ids max+1 desde colección vacía
	assert.Equal(t, int64(1), meds[0].ID) // Aspirin 08:00
	assert.Equal(t, "Aspirin", meds[0].Name)
	assert.Equal(t, "Metformin", meds[1].Name)
	assert.Equal(t, "Atorvastatin", meds[2].Name)

	require.NoError(t, s.Seed(context.Background()))
	meds, err = s.GetAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, meds, 3)
}

func TestAdd_AssignsMaxPlusOne(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Add(ctx, medications.NewMedication{
		Name:      "Ibuprofen",
		Dosage:    "200mg",
		Frequency: "As needed",
		Time:      "10:15",
		StartDate: "2025-02-01",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), id)

	require.NoError(t, s.Delete(ctx, 2))
	id, err = s.Add(ctx, medications.NewMedication{
		Name:      "Paracetamol",
		Dosage:    "500mg",
		Frequency: "As needed",
		Time:      "22:00",
		StartDate: "2025-02-01",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), id) // max existente sigue siendo 4
}

func TestGetAll_SortedByTime(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Add(ctx, medications.NewMedication{
		Name:      "Early",
		Dosage:    "1mg",
		Frequency: "Once daily",
		Time:      "06:00",
		StartDate: "2025-01-01",
	})
	require.NoError(t, err)

	meds, err := s.GetAll(ctx)
	require.NoError(t, err)

	var times []string
	for _, m := range meds {
		times = append(times, m.Time)
	}
	assert.Equal(t, []string{"06:00", "08:00", "12:30", "20:00"}, times)
}

func TestUpdate_PartialMerge(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	newTime := "09:30"
	require.NoError(t, s.Update(ctx, 1, medications.UpdateInput{Time: &newTime}))

	m, err := s.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "09:30", m.Time)
	assert.Equal(t, "Aspirin", m.Name) // lo no presente queda igual

	err = s.Update(ctx, 999, medications.UpdateInput{Time: &newTime})
	assert.Equal(t, medications.CodeNotFound, medications.CodeOf(err))
}

func TestGetByDate_ActiveWindow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	end := "2025-03-01"
	ended, err := s.Add(ctx, medications.NewMedication{
		Name:      "Finished",
		Dosage:    "5mg",
		Frequency: "Once daily",
		Time:      "07:00",
		StartDate: "2025-02-01",
		EndDate:   &end,
	})
	require.NoError(t, err)

	meds, err := s.GetByDate(ctx, "2025-03-10")
	require.NoError(t, err)
	for _, m := range meds {
		assert.NotEqual(t, ended, m.ID)
	}

	meds, err = s.GetByDate(ctx, "2025-03-01")
	require.NoError(t, err)
	found := false
	for _, m := range meds {
		if m.ID == ended {
			found = true
		}
	}
	assert.True(t, found, "endDate es inclusive")
}

func TestUpsertStatus_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	st1, err := s.UpsertStatus(ctx, 1, "2025-03-10", true)
	require.NoError(t, err)
	require.NotNil(t, st1.TakenAt)

	st2, err := s.UpsertStatus(ctx, 1, "2025-03-10", true)
	require.NoError(t, err)
	assert.Equal(t, st1.ID, st2.ID)

	all, err := s.GetAllStatusesForDate(ctx, "2025-03-10")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUpsertStatus_UnknownMedication(t *testing.T) {
	s := newTestStore(t)

	_, err := s.UpsertStatus(context.Background(), 999, "2025-03-10", true)
	assert.Equal(t, medications.CodeNotFound, medications.CodeOf(err))
}

// Propiedad de serialización de la cola: N upserts concurrentes sobre el
// mismo (med, día) terminan en exactamente una fila, sin pérdidas ni
// duplicados, reflejando la última escritura aplicada.
func TestUpsertStatus_ConcurrentCallersSerialized(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			_, err := s.UpsertStatus(ctx, 1, "2025-03-10", i%2 == 0)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	all, err := s.GetAllStatusesForDate(ctx, "2025-03-10")
	require.NoError(t, err)
	require.Len(t, all, 1, "exactamente una fila por (med, día)")

	// y upserts concurrentes sobre pares distintos tampoco se pisan
	var wg2 sync.WaitGroup
	for med := int64(1); med <= 3; med++ {
		for d := 1; d <= 5; d++ {
			wg2.Add(1)
			go func(med int64, d int) {
				defer wg2.Done()
				date := fmt.Sprintf("2025-04-%02d", d)
				_, err := s.UpsertStatus(ctx, med, date, true)
				assert.NoError(t, err)
			}(med, d)
		}
	}
	wg2.Wait()

	for d := 1; d <= 5; d++ {
		all, err := s.GetAllStatusesForDate(ctx, fmt.Sprintf("2025-04-%02d", d))
		require.NoError(t, err)
		assert.Len(t, all, 3)
	}
}

func TestDelete_CascadesStatuses(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertStatus(ctx, 1, "2025-03-09", true)
	require.NoError(t, err)
	_, err = s.UpsertStatus(ctx, 2, "2025-03-09", true)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, 1))

	all, err := s.GetAllStatusesForDate(ctx, "2025-03-09")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, int64(2), all[0].MedicationID)
}

func TestGetWithStatusForDate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertStatus(ctx, 2, "2025-03-10", true)
	require.NoError(t, err)

	list, err := s.GetWithStatusForDate(ctx, "2025-03-10")
	require.NoError(t, err)
	require.Len(t, list, 3)

	for _, ws := range list {
		if ws.ID == 2 {
			require.NotNil(t, ws.Status)
			assert.True(t, ws.Status.Taken)
		} else {
			assert.Nil(t, ws.Status)
		}
	}
}

// Cerrar con escrituras en vuelo no deja goroutines colgadas: las que
// no alcanzaron al worker vuelven con error clasificado en vez de
// esperar para siempre un worker que ya salió.
func TestClose_DoesNotStrandQueuedWriters(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := New(client, Options{})
	require.NoError(t, s.Init(context.Background()))

	ctx := context.Background()
	const n = 25
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := s.UpsertStatus(ctx, 1, "2025-03-10", true)
			if err != nil {
				var e *medications.Error
				assert.ErrorAs(t, err, &e)
			}
		}()
	}

	require.NoError(t, s.Close())

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("writers left hanging after Close")
	}

	// y toda operación posterior corta limpio
	_, err := s.UpsertStatus(ctx, 1, "2025-03-10", true)
	assert.Equal(t, medications.CodeConnectionFailed, medications.CodeOf(err))
}

func TestOpsRequireInit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := New(client, Options{})

	_, err := s.GetAll(context.Background())
	assert.Equal(t, medications.CodeConnectionFailed, medications.CodeOf(err))

	_, err = s.UpsertStatus(context.Background(), 1, "2025-03-10", true)
	assert.Equal(t, medications.CodeConnectionFailed, medications.CodeOf(err))
}
