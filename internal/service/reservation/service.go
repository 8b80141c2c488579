package reservation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
	apperrors "github.com/jwalitptl/booking-api/pkg/errors"
	"github.com/jwalitptl/booking-api/pkg/logger"
	"github.com/jwalitptl/booking-api/pkg/metrics"
)

// Service grants short-lived, capacity-respecting holds on slots.
type Service struct {
	repo       repository.ReservationRepository
	logger     *logger.Logger
	metrics    *metrics.Metrics
	defaultTTL time.Duration
}

func NewService(repo repository.ReservationRepository, logger *logger.Logger, m *metrics.Metrics, defaultTTL time.Duration) *Service {
	if defaultTTL == 0 {
		defaultTTL = model.DefaultHoldTTL
	}
	return &Service{
		repo:       repo,
		logger:     logger,
		metrics:    m,
		defaultTTL: defaultTTL,
	}
}

// CreateParams carries a fully resolved hold request. The capacity ceiling
// comes from the tenant configuration via the caller; the core never
// re-derives it.
type CreateParams struct {
	BusinessID              uuid.UUID
	ServiceID               uuid.UUID
	SlotStart               time.Time
	SlotEnd                 time.Time
	IdempotencyKey          string
	TTL                     time.Duration
	MaxSimultaneousBookings int
}

func (p CreateParams) validate() error {
	if p.BusinessID == uuid.Nil {
		return apperrors.NewValidation("business id is required", "business_id")
	}
	if p.ServiceID == uuid.Nil {
		return apperrors.NewValidation("service id is required", "service_id")
	}
	if !p.SlotStart.Before(p.SlotEnd) {
		return apperrors.NewValidation("slot start must be before slot end", "slot_start", "slot_end")
	}
	if p.IdempotencyKey == "" {
		return apperrors.NewValidation("idempotency key is required", "idempotency_key")
	}
	if p.MaxSimultaneousBookings < 1 {
		return apperrors.NewValidation("capacity must be at least 1", "max_simultaneous_bookings")
	}
	return nil
}

// CreateReservation grants a hold, replays an existing one for a repeated
// idempotency key, or fails with ErrCapacityExceeded when the slot is full.
func (s *Service) CreateReservation(ctx context.Context, p CreateParams) (*model.Reservation, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	ttl := clampTTL(p.TTL, s.defaultTTL)

	reservation := &model.Reservation{
		BusinessID:              p.BusinessID,
		ServiceID:               p.ServiceID,
		SlotStart:               p.SlotStart,
		SlotEnd:                 p.SlotEnd,
		IdempotencyKey:          p.IdempotencyKey,
		MaxSimultaneousBookings: p.MaxSimultaneousBookings,
		ExpiresAt:               time.Now().Add(ttl),
	}

	granted, err := s.repo.CreateWithCapacityCheck(ctx, reservation)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrCapacityExceeded) {
			s.metrics.CapacityConflicts.Inc()
			s.logger.Debug("hold rejected, slot full",
				"business_id", p.BusinessID.String(),
				"service_id", p.ServiceID.String())
		}
		return nil, err
	}

	if granted != reservation {
		s.metrics.HoldsReplayed.Inc()
		return granted, nil
	}

	s.metrics.HoldsGranted.Inc()
	return granted, nil
}

// AvailableCapacity returns the remaining units for the interval using the
// same counting rule as CreateReservation, so displayed availability never
// overstates what a hold request would be granted.
func (s *Service) AvailableCapacity(ctx context.Context, businessID, serviceID uuid.UUID, start, end time.Time, maxSimultaneousBookings int) (int, error) {
	if !start.Before(end) {
		return 0, apperrors.NewValidation("slot start must be before slot end", "slot_start", "slot_end")
	}
	active, err := s.repo.CountActive(ctx, businessID, serviceID, start, end, time.Now())
	if err != nil {
		return 0, err
	}
	remaining := maxSimultaneousBookings - active
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// CleanupExpired deletes all expired holds and returns the count. Safe to
// run concurrently with itself and with CreateReservation.
func (s *Service) CleanupExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, time.Now())
}

// SweepIfBacklogged is the fallback cleanup path: it only sweeps once the
// expired backlog crosses the threshold, guarding against a silently dead
// cron without paying for a sweep on every booking request.
func (s *Service) SweepIfBacklogged(ctx context.Context, threshold int64) (int64, bool, error) {
	backlog, err := s.repo.CountExpired(ctx, time.Now())
	if err != nil {
		return 0, false, err
	}
	if backlog < threshold {
		return 0, false, nil
	}

	s.logger.Warn("expired reservation backlog over threshold, sweeping",
		"backlog", backlog, "threshold", threshold)

	deleted, err := s.CleanupExpired(ctx)
	if err != nil {
		return 0, false, err
	}
	return deleted, true, nil
}

func clampTTL(ttl, fallback time.Duration) time.Duration {
	if ttl == 0 {
		ttl = fallback
	}
	if ttl < model.MinHoldTTL {
		return model.MinHoldTTL
	}
	if ttl > model.MaxHoldTTL {
		return model.MaxHoldTTL
	}
	return ttl
}
