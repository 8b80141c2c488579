package reservation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-api/internal/model"
	apperrors "github.com/jwalitptl/booking-api/pkg/errors"
	"github.com/jwalitptl/booking-api/pkg/logger"
	"github.com/jwalitptl/booking-api/pkg/metrics"
)

// fakeReservationRepo reproduces the store's admission rule in memory so
// the service can be exercised under real goroutine contention.
type fakeReservationRepo struct {
	mu           sync.Mutex
	reservations map[uuid.UUID]*model.Reservation
	// Confirmed appointment slots also consume capacity.
	booked []model.Slot
}

func newFakeReservationRepo() *fakeReservationRepo {
	return &fakeReservationRepo{reservations: make(map[uuid.UUID]*model.Reservation)}
}

func (f *fakeReservationRepo) CreateWithCapacityCheck(ctx context.Context, r *model.Reservation) (*model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	for id, existing := range f.reservations {
		sameKey := existing.BusinessID == r.BusinessID &&
			existing.ServiceID == r.ServiceID &&
			existing.SlotStart.Equal(r.SlotStart) &&
			existing.SlotEnd.Equal(r.SlotEnd) &&
			existing.IdempotencyKey == r.IdempotencyKey
		if !sameKey {
			continue
		}
		if existing.Expired(now) {
			delete(f.reservations, id)
			continue
		}
		return existing, nil
	}

	if f.countActive(r.BusinessID, r.ServiceID, r.SlotStart, r.SlotEnd, now) >= r.MaxSimultaneousBookings {
		return nil, apperrors.NewCapacityExceeded()
	}

	r.ID = uuid.New()
	r.CreatedAt = now
	f.reservations[r.ID] = r
	return r, nil
}

func (f *fakeReservationRepo) Get(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.reservations[id]; ok {
		return r, nil
	}
	return nil, apperrors.NewReservationNotFound(nil)
}

func (f *fakeReservationRepo) CountActive(ctx context.Context, businessID, serviceID uuid.UUID, start, end, now time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.countActive(businessID, serviceID, start, end, now), nil
}

func (f *fakeReservationRepo) countActive(businessID, serviceID uuid.UUID, start, end, now time.Time) int {
	count := 0
	for _, r := range f.reservations {
		if r.BusinessID == businessID && r.ServiceID == serviceID &&
			!r.Expired(now) &&
			r.SlotEnd.After(start) && r.SlotStart.Before(end) {
			count++
		}
	}
	for _, s := range f.booked {
		if s.BusinessID == businessID && s.ServiceID == serviceID && s.Overlaps(start, end) {
			count++
		}
	}
	return count
}

func (f *fakeReservationRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted int64
	for id, r := range f.reservations {
		if r.Expired(now) {
			delete(f.reservations, id)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeReservationRepo) CountExpired(ctx context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, r := range f.reservations {
		if r.Expired(now) {
			count++
		}
	}
	return count, nil
}

func newTestService(repo *fakeReservationRepo) *Service {
	m := metrics.NewMetrics(prometheus.NewRegistry(), "booking", "test")
	return NewService(repo, logger.NewLogger(nil), m, model.DefaultHoldTTL)
}

func testParams(capacity int, key string) CreateParams {
	start := time.Now().Add(24 * time.Hour).Truncate(time.Hour)
	return CreateParams{
		BusinessID:              uuid.New(),
		ServiceID:               uuid.New(),
		SlotStart:               start,
		SlotEnd:                 start.Add(time.Hour),
		IdempotencyKey:          key,
		MaxSimultaneousBookings: capacity,
	}
}

func TestCreateReservation(t *testing.T) {
	svc := newTestService(newFakeReservationRepo())

	granted, err := svc.CreateReservation(context.Background(), testParams(1, "key-1"))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, granted.ID)
	assert.True(t, granted.ExpiresAt.After(time.Now()))
}

func TestCreateReservationCapacityExceeded(t *testing.T) {
	svc := newTestService(newFakeReservationRepo())
	p := testParams(2, "key-1")

	for i := 0; i < 2; i++ {
		p.IdempotencyKey = fmt.Sprintf("key-%d", i)
		_, err := svc.CreateReservation(context.Background(), p)
		require.NoError(t, err)
	}

	p.IdempotencyKey = "key-over"
	_, err := svc.CreateReservation(context.Background(), p)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCapacityExceeded))
}

func TestCreateReservationIdempotentReplay(t *testing.T) {
	svc := newTestService(newFakeReservationRepo())
	p := testParams(1, "same-key")

	first, err := svc.CreateReservation(context.Background(), p)
	require.NoError(t, err)

	// Same key replays the existing hold instead of consuming capacity.
	second, err := svc.CreateReservation(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.ExpiresAt, second.ExpiresAt)
}

func TestExpiredHoldReleasesCapacity(t *testing.T) {
	repo := newFakeReservationRepo()
	svc := newTestService(repo)
	p := testParams(1, "key-1")

	granted, err := svc.CreateReservation(context.Background(), p)
	require.NoError(t, err)

	// Force the hold past its expiry.
	repo.mu.Lock()
	granted.ExpiresAt = time.Now().Add(-time.Minute)
	repo.mu.Unlock()

	p.IdempotencyKey = "key-2"
	_, err = svc.CreateReservation(context.Background(), p)
	assert.NoError(t, err)
}

func TestCreateReservationValidation(t *testing.T) {
	svc := newTestService(newFakeReservationRepo())

	p := testParams(1, "key")
	p.SlotEnd = p.SlotStart
	_, err := svc.CreateReservation(context.Background(), p)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))

	p = testParams(1, "")
	_, err = svc.CreateReservation(context.Background(), p)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))

	p = testParams(0, "key")
	_, err = svc.CreateReservation(context.Background(), p)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))
}

func TestTTLClamping(t *testing.T) {
	svc := newTestService(newFakeReservationRepo())

	p := testParams(10, "short")
	p.TTL = time.Minute
	granted, err := svc.CreateReservation(context.Background(), p)
	require.NoError(t, err)
	assert.InDelta(t, model.MinHoldTTL.Seconds(), time.Until(granted.ExpiresAt).Seconds(), 5)

	p.IdempotencyKey = "long"
	p.TTL = 4 * time.Hour
	granted, err = svc.CreateReservation(context.Background(), p)
	require.NoError(t, err)
	assert.InDelta(t, model.MaxHoldTTL.Seconds(), time.Until(granted.ExpiresAt).Seconds(), 5)
}

func TestNoOverbookingUnderContention(t *testing.T) {
	const capacity = 3
	const contenders = 20

	svc := newTestService(newFakeReservationRepo())
	base := testParams(capacity, "")

	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := base
			p.IdempotencyKey = fmt.Sprintf("contender-%d", i)
			_, errs[i] = svc.CreateReservation(context.Background(), p)
		}(i)
	}
	wg.Wait()

	granted := 0
	for _, err := range errs {
		if err == nil {
			granted++
		} else {
			assert.True(t, apperrors.IsCode(err, apperrors.ErrCapacityExceeded))
		}
	}
	assert.Equal(t, capacity, granted)
}

func TestAvailableCapacity(t *testing.T) {
	repo := newFakeReservationRepo()
	svc := newTestService(repo)
	p := testParams(3, "key-1")

	_, err := svc.CreateReservation(context.Background(), p)
	require.NoError(t, err)

	available, err := svc.AvailableCapacity(context.Background(),
		p.BusinessID, p.ServiceID, p.SlotStart, p.SlotEnd, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, available)

	// Never negative, even if the ceiling was lowered after grants.
	available, err = svc.AvailableCapacity(context.Background(),
		p.BusinessID, p.ServiceID, p.SlotStart, p.SlotEnd, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, available)
}

func TestSweepIfBacklogged(t *testing.T) {
	repo := newFakeReservationRepo()
	svc := newTestService(repo)

	for i := 0; i < 3; i++ {
		p := testParams(10, fmt.Sprintf("key-%d", i))
		granted, err := svc.CreateReservation(context.Background(), p)
		require.NoError(t, err)
		repo.mu.Lock()
		granted.ExpiresAt = time.Now().Add(-time.Minute)
		repo.mu.Unlock()
	}

	// Below threshold: no work.
	deleted, swept, err := svc.SweepIfBacklogged(context.Background(), 5)
	require.NoError(t, err)
	assert.False(t, swept)
	assert.Zero(t, deleted)

	// At threshold: sweep fires.
	deleted, swept, err = svc.SweepIfBacklogged(context.Background(), 3)
	require.NoError(t, err)
	assert.True(t, swept)
	assert.Equal(t, int64(3), deleted)
}

func TestCleanupExpired(t *testing.T) {
	repo := newFakeReservationRepo()
	svc := newTestService(repo)

	p := testParams(10, "live")
	_, err := svc.CreateReservation(context.Background(), p)
	require.NoError(t, err)

	p.IdempotencyKey = "dead"
	dead, err := svc.CreateReservation(context.Background(), p)
	require.NoError(t, err)
	repo.mu.Lock()
	dead.ExpiresAt = time.Now().Add(-time.Minute)
	repo.mu.Unlock()

	deleted, err := svc.CleanupExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}
