package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-api/pkg/logger"
	"github.com/jwalitptl/booking-api/pkg/metrics"
)

type fakeSweeper struct {
	deleted int64
	err     error
	calls   atomic.Int64
}

func (f *fakeSweeper) CleanupExpired(ctx context.Context) (int64, error) {
	f.calls.Add(1)
	return f.deleted, f.err
}

func newTestReaper(sweeper *fakeSweeper, interval time.Duration) *ReservationReaper {
	m := metrics.NewMetrics(prometheus.NewRegistry(), "booking", "test")
	return NewReservationReaper(sweeper, interval, 100, logger.NewLogger(nil), m)
}

func TestRunOnce(t *testing.T) {
	sweeper := &fakeSweeper{deleted: 7}
	reaper := newTestReaper(sweeper, time.Minute)

	deleted, err := reaper.RunOnce(context.Background(), "manual")
	require.NoError(t, err)
	assert.Equal(t, int64(7), deleted)
	assert.Equal(t, int64(1), sweeper.calls.Load())
}

func TestRunOnceError(t *testing.T) {
	sweeper := &fakeSweeper{err: errors.New("db down")}
	reaper := newTestReaper(sweeper, time.Minute)

	_, err := reaper.RunOnce(context.Background(), "manual")
	assert.Error(t, err)
}

func TestStartStopsOnContextCancel(t *testing.T) {
	sweeper := &fakeSweeper{}
	reaper := newTestReaper(sweeper, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		reaper.Start(ctx)
		close(done)
	}()

	// Let a few ticks fire, then cancel.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop after context cancel")
	}
	assert.Greater(t, sweeper.calls.Load(), int64(0))
}
