package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/booking-api/internal/model"
)

// All repository interfaces in one file
type (
	// ReservationRepository handles short-lived slot holds.
	ReservationRepository interface {
		// CreateWithCapacityCheck atomically counts confirmed appointments
		// plus unexpired reservations overlapping the slot and inserts the
		// hold only while the count is below the capacity ceiling. A replay
		// through the idempotency key returns the existing unexpired hold.
		CreateWithCapacityCheck(ctx context.Context, reservation *model.Reservation) (*model.Reservation, error)
		Get(ctx context.Context, id uuid.UUID) (*model.Reservation, error)
		// CountActive sums confirmed appointments and unexpired reservations
		// strictly overlapping [start, end). Same counting rule as
		// CreateWithCapacityCheck.
		CountActive(ctx context.Context, businessID, serviceID uuid.UUID, start, end, now time.Time) (int, error)
		DeleteExpired(ctx context.Context, now time.Time) (int64, error)
		CountExpired(ctx context.Context, now time.Time) (int64, error)
	}

	// AppointmentRepository owns the durable booking records.
	AppointmentRepository interface {
		// Commit inserts the appointment and deletes the consumed
		// reservation in one transaction. The reservation row is locked and
		// re-checked for expiry under the lock; on any failure the
		// reservation remains intact for a future retry.
		Commit(ctx context.Context, reservationID uuid.UUID, appointment *model.Appointment) (*model.Appointment, error)
		Get(ctx context.Context, businessID, id uuid.UUID) (*model.Appointment, error)
		GetByBookingID(ctx context.Context, bookingID string) (*model.Appointment, error)
		List(ctx context.Context, businessID uuid.UUID, filters *model.AppointmentFilters) ([]*model.Appointment, error)
		// UpdateStatus performs a compare-and-swap on the version column.
		// A stale expectedVersion fails with ErrConcurrentModification.
		// invalidateToken clears the guest token hash and expiry in the same
		// statement so a used cancel token cannot be replayed.
		UpdateStatus(ctx context.Context, appointment *model.Appointment, expectedVersion int64, invalidateToken bool) error
	}

	// AuditRepository is append-only apart from actor back-fill.
	AuditRepository interface {
		Create(ctx context.Context, entry *model.AuditLogEntry) error
		ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*model.AuditLogEntry, error)
		// BackfillActor attributes the most recent null-actor entry for the
		// appointment. Inherently racy when two null-actor transitions land
		// close together; callers treat it as best-effort.
		BackfillActor(ctx context.Context, appointmentID, actorID uuid.UUID, actorEmail string) (bool, error)
	}
)
