package worker

import (
	"context"
	"time"

	"github.com/jwalitptl/booking-api/pkg/logger"
	"github.com/jwalitptl/booking-api/pkg/metrics"
)

// Sweeper is the cleanup entry point the reaper drives.
type Sweeper interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// ReservationReaper bounds the lifetime of abandoned holds so capacity is
// reclaimed even when no commit ever arrives.
type ReservationReaper struct {
	sweeper        Sweeper
	interval       time.Duration
	spikeThreshold int64
	logger         *logger.Logger
	metrics        *metrics.Metrics
}

func NewReservationReaper(sweeper Sweeper, interval time.Duration, spikeThreshold int64, logger *logger.Logger, m *metrics.Metrics) *ReservationReaper {
	return &ReservationReaper{
		sweeper:        sweeper,
		interval:       interval,
		spikeThreshold: spikeThreshold,
		logger:         logger,
		metrics:        m,
	}
}

func (w *ReservationReaper) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.RunOnce(ctx, "scheduled"); err != nil {
				// Log and keep ticking; the next sweep will catch up.
				w.logger.Error(err, "reservation sweep failed")
			}
		}
	}
}

// RunOnce performs a single sweep. A burst of expiries is tolerated but
// flagged for operator attention once it crosses the spike threshold.
func (w *ReservationReaper) RunOnce(ctx context.Context, trigger string) (int64, error) {
	start := time.Now()

	deleted, err := w.sweeper.CleanupExpired(ctx)
	if err != nil {
		return 0, err
	}

	duration := time.Since(start)
	w.metrics.ReaperDeleted.Add(float64(deleted))
	w.metrics.ReaperDuration.Observe(duration.Seconds())
	w.metrics.ReaperRuns.WithLabelValues(trigger).Inc()

	if w.spikeThreshold > 0 && deleted > w.spikeThreshold {
		w.logger.Warn("anomalously high expired reservation count",
			"deleted", deleted, "threshold", w.spikeThreshold)
	} else if deleted > 0 {
		w.logger.Info("swept expired reservations",
			"deleted", deleted, "duration", duration.String())
	}

	return deleted, nil
}
