package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
	"github.com/jwalitptl/booking-api/internal/service/audit"
	"github.com/jwalitptl/booking-api/internal/service/notification"
	apperrors "github.com/jwalitptl/booking-api/pkg/errors"
	"github.com/jwalitptl/booking-api/pkg/logger"
	"github.com/jwalitptl/booking-api/pkg/metrics"
	"github.com/jwalitptl/booking-api/pkg/token"
)

// Actor is the authenticated identity behind a mutation. Nil for guest and
// system-initiated actions.
type Actor struct {
	ID    uuid.UUID
	Email string
}

// Service converts valid reservations into durable appointments exactly
// once and owns the appointment state machine thereafter.
type Service struct {
	repo          repository.AppointmentRepository
	auditor       *audit.Service
	notifier      notification.Dispatcher
	logger        *logger.Logger
	metrics       *metrics.Metrics
	guestTokenTTL time.Duration
}

func NewService(repo repository.AppointmentRepository, auditor *audit.Service, notifier notification.Dispatcher, logger *logger.Logger, m *metrics.Metrics, guestTokenTTL time.Duration) *Service {
	return &Service{
		repo:          repo,
		auditor:       auditor,
		notifier:      notifier,
		logger:        logger,
		metrics:       m,
		guestTokenTTL: guestTokenTTL,
	}
}

// Commit turns the reservation into a confirmed appointment. The booking
// code is generated by the caller; a collision surfaces as ErrConflict and
// is retryable with a fresh code. For guest bookings a management token is
// issued; the raw value is returned exactly once.
func (s *Service) Commit(ctx context.Context, req *model.CommitReservationRequest, bookingID string) (*model.CommitResult, error) {
	if err := validateIdentity(req); err != nil {
		return nil, err
	}
	if bookingID == "" {
		return nil, apperrors.NewValidation("booking id is required", "booking_id")
	}

	appointment := &model.Appointment{
		BookingID:  bookingID,
		CustomerID: req.CustomerID,
		GuestName:  req.GuestName,
		GuestEmail: req.GuestEmail,
		GuestPhone: req.GuestPhone,
	}

	var rawToken string
	if req.CustomerID == nil {
		raw, err := token.NewRaw()
		if err != nil {
			return nil, apperrors.NewInternal(err)
		}
		rawToken = raw
		hash := token.Hash(raw)
		expiresAt := time.Now().Add(s.guestTokenTTL)
		appointment.GuestTokenHash = &hash
		appointment.GuestTokenExpiresAt = &expiresAt
	}

	persisted, err := s.repo.Commit(ctx, req.ReservationID, appointment)
	if err != nil {
		s.metrics.CommitFailures.WithLabelValues(commitFailureReason(err)).Inc()
		return nil, err
	}

	s.metrics.Commits.Inc()
	s.auditor.Record(ctx, &model.AuditLogEntry{
		AppointmentID: persisted.ID,
		Action:        model.AuditActionCreated,
		NewStatus:     statusPtr(persisted.Status),
	})
	s.notifier.Dispatch(ctx, notification.EventAppointmentCreated, persisted)

	result := &model.CommitResult{Appointment: persisted}
	if rawToken != "" {
		result.GuestRawToken = rawToken
		result.ManagePath = fmt.Sprintf("/manage/%s?token=%s", persisted.BookingID, rawToken)
		result.TokenExpiresAt = persisted.GuestTokenExpiresAt
	}
	return result, nil
}

// UpdateStatus applies an owner-initiated transition. Authorization is the
// caller's job; this only guards state-machine legality and the optimistic
// version.
func (s *Service) UpdateStatus(ctx context.Context, businessID, appointmentID uuid.UUID, newStatus model.AppointmentStatus, expectedVersion int64, actor *Actor) (*model.Appointment, error) {
	if !newStatus.Valid() {
		return nil, apperrors.NewValidation("unknown appointment status", "status")
	}

	appointment, err := s.repo.Get(ctx, businessID, appointmentID)
	if err != nil {
		return nil, err
	}

	oldStatus := appointment.Status
	if !oldStatus.CanTransitionTo(newStatus) {
		return nil, apperrors.NewConflict(
			fmt.Sprintf("cannot transition appointment from %s to %s", oldStatus, newStatus), nil)
	}

	appointment.Status = newStatus
	switch newStatus {
	case model.AppointmentStatusCanceled:
		now := time.Now()
		appointment.DeletedAt = &now
	case model.AppointmentStatusConfirmed:
		// Sanctioned cancel-undo clears the soft-delete marker.
		appointment.DeletedAt = nil
	}

	if err := s.repo.UpdateStatus(ctx, appointment, expectedVersion, false); err != nil {
		if apperrors.IsCode(err, apperrors.ErrConcurrentModification) {
			s.metrics.VersionConflicts.Inc()
		}
		return nil, err
	}

	s.metrics.StatusTransitions.WithLabelValues(string(oldStatus), string(newStatus)).Inc()

	entry := &model.AuditLogEntry{
		AppointmentID: appointment.ID,
		Action:        auditAction(oldStatus, newStatus),
		OldStatus:     statusPtr(oldStatus),
		NewStatus:     statusPtr(newStatus),
	}
	if actor != nil {
		entry.ActorID = &actor.ID
		if actor.Email != "" {
			entry.ActorEmail = &actor.Email
		}
	}
	s.auditor.Record(ctx, entry)

	if actor != nil {
		// Attribute any earlier guest/system entry still missing an actor.
		s.auditor.BackfillActor(ctx, appointment.ID, actor.ID, actor.Email)
	}

	s.notifier.Dispatch(ctx, notificationEvent(newStatus), appointment)
	return appointment, nil
}

// GuestView returns the appointment behind a management link. Read-only
// token use never invalidates the token.
func (s *Service) GuestView(ctx context.Context, bookingID, rawToken string) (*model.Appointment, error) {
	return s.authenticateGuest(ctx, bookingID, rawToken)
}

// GuestCancel cancels via a management token. The token is invalidated in
// the same transaction as the status change, so it cannot be replayed.
func (s *Service) GuestCancel(ctx context.Context, bookingID, rawToken string) (*model.Appointment, error) {
	appointment, err := s.authenticateGuest(ctx, bookingID, rawToken)
	if err != nil {
		return nil, err
	}

	oldStatus := appointment.Status
	if !oldStatus.CanTransitionTo(model.AppointmentStatusCanceled) {
		return nil, apperrors.NewConflict(
			fmt.Sprintf("cannot cancel appointment in status %s", oldStatus), nil)
	}

	now := time.Now()
	appointment.Status = model.AppointmentStatusCanceled
	appointment.DeletedAt = &now

	if err := s.repo.UpdateStatus(ctx, appointment, appointment.Version, true); err != nil {
		if apperrors.IsCode(err, apperrors.ErrConcurrentModification) {
			s.metrics.VersionConflicts.Inc()
		}
		return nil, err
	}

	s.metrics.StatusTransitions.WithLabelValues(string(oldStatus), string(model.AppointmentStatusCanceled)).Inc()
	s.auditor.Record(ctx, &model.AuditLogEntry{
		AppointmentID: appointment.ID,
		Action:        model.AuditActionGuestCancel,
		OldStatus:     statusPtr(oldStatus),
		NewStatus:     statusPtr(model.AppointmentStatusCanceled),
	})
	s.notifier.Dispatch(ctx, notification.EventAppointmentCanceled, appointment)
	return appointment, nil
}

func (s *Service) Get(ctx context.Context, businessID, id uuid.UUID) (*model.Appointment, error) {
	return s.repo.Get(ctx, businessID, id)
}

func (s *Service) List(ctx context.Context, businessID uuid.UUID, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	return s.repo.List(ctx, businessID, filters)
}

func (s *Service) authenticateGuest(ctx context.Context, bookingID, rawToken string) (*model.Appointment, error) {
	appointment, err := s.repo.GetByBookingID(ctx, bookingID)
	if err != nil {
		// A missing booking and a bad token are indistinguishable to the
		// caller; don't give brute-forcers an oracle.
		if apperrors.IsCode(err, apperrors.ErrNotFound) {
			s.metrics.TokenValidationFailures.Inc()
			return nil, apperrors.NewInvalidToken()
		}
		return nil, err
	}

	if !appointment.HasActiveGuestToken(time.Now()) ||
		!token.Verify(rawToken, *appointment.GuestTokenHash) {
		s.metrics.TokenValidationFailures.Inc()
		return nil, apperrors.NewInvalidToken()
	}
	return appointment, nil
}

func validateIdentity(req *model.CommitReservationRequest) error {
	hasCustomer := req.CustomerID != nil
	hasGuest := req.GuestEmail != nil && *req.GuestEmail != ""
	if hasCustomer == hasGuest {
		return apperrors.NewValidation(
			"exactly one of customer_id or guest_email must be supplied",
			"customer_id", "guest_email")
	}
	return nil
}

func auditAction(from, to model.AppointmentStatus) string {
	if from == model.AppointmentStatusCanceled && to == model.AppointmentStatusConfirmed {
		return model.AuditActionReconfirm
	}
	return model.AuditActionStatusChange
}

func notificationEvent(status model.AppointmentStatus) string {
	if status == model.AppointmentStatusCanceled {
		return notification.EventAppointmentCanceled
	}
	return notification.EventAppointmentStatusChanged
}

func statusPtr(s model.AppointmentStatus) *model.AppointmentStatus {
	return &s
}

func commitFailureReason(err error) string {
	switch apperrors.CodeOf(err) {
	case apperrors.ErrReservationNotFound:
		return "reservation_not_found"
	case apperrors.ErrReservationExpired:
		return "reservation_expired"
	case apperrors.ErrConflict:
		return "booking_id_collision"
	case apperrors.ErrStoreUnavailable:
		return "store_unavailable"
	default:
		return "other"
	}
}
