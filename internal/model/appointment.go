package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCanceled  AppointmentStatus = "canceled"
	AppointmentStatusNoShow    AppointmentStatus = "no_show"
)

// validTransitions is the appointment state machine. All states are
// terminal except confirmed; canceled -> confirmed is the sanctioned
// administrative undo and additionally clears the soft-delete marker.
var validTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentStatusConfirmed: {
		AppointmentStatusCompleted,
		AppointmentStatusCanceled,
		AppointmentStatusNoShow,
	},
	AppointmentStatusCanceled: {
		AppointmentStatusConfirmed,
	},
}

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusConfirmed, AppointmentStatusCompleted,
		AppointmentStatusCanceled, AppointmentStatusNoShow:
		return true
	}
	return false
}

// CanTransitionTo reports whether the state machine permits s -> next.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Appointment is the durable system of record for a booking.
type Appointment struct {
	Base
	BookingID  string    `db:"booking_id" json:"booking_id"`
	BusinessID uuid.UUID `db:"business_id" json:"business_id"`
	ServiceID  uuid.UUID `db:"service_id" json:"service_id"`
	SlotStart  time.Time `db:"slot_start" json:"slot_start"`
	SlotEnd    time.Time `db:"slot_end" json:"slot_end"`

	// Exactly one identity path is populated: customer or guest.
	CustomerID *uuid.UUID `db:"customer_id" json:"customer_id,omitempty"`
	GuestName  *string    `db:"guest_name" json:"guest_name,omitempty"`
	GuestEmail *string    `db:"guest_email" json:"guest_email,omitempty"`
	GuestPhone *string    `db:"guest_phone" json:"guest_phone,omitempty"`

	Status  AppointmentStatus `db:"status" json:"status"`
	Version int64             `db:"version" json:"version"`

	GuestTokenHash      *string    `db:"guest_token_hash" json:"-"`
	GuestTokenExpiresAt *time.Time `db:"guest_token_expires_at" json:"-"`
}

// IsGuest reports whether the appointment was booked via the guest path.
func (a *Appointment) IsGuest() bool {
	return a.CustomerID == nil
}

// HasActiveGuestToken reports whether a guest management token is set and
// unexpired at the given instant.
func (a *Appointment) HasActiveGuestToken(now time.Time) bool {
	return a.GuestTokenHash != nil &&
		a.GuestTokenExpiresAt != nil &&
		a.GuestTokenExpiresAt.After(now)
}

type CommitReservationRequest struct {
	ReservationID uuid.UUID  `json:"reservation_id" binding:"required"`
	CustomerID    *uuid.UUID `json:"customer_id"`
	GuestName     *string    `json:"guest_name" binding:"omitempty,max=200"`
	GuestEmail    *string    `json:"guest_email" binding:"omitempty,email"`
	GuestPhone    *string    `json:"guest_phone" binding:"omitempty,max=32"`
}

// CommitResult carries the persisted appointment plus, for guest bookings,
// the raw management token. The raw token is returned exactly once and is
// never stored.
type CommitResult struct {
	Appointment    *Appointment `json:"appointment"`
	GuestRawToken  string       `json:"guest_token,omitempty"`
	ManagePath     string       `json:"manage_path,omitempty"`
	TokenExpiresAt *time.Time   `json:"token_expires_at,omitempty"`
}

type UpdateStatusRequest struct {
	Status          AppointmentStatus `json:"status" binding:"required,oneof=confirmed completed canceled no_show"`
	ExpectedVersion int64             `json:"expected_version" binding:"required,min=1"`
}

type AppointmentFilters struct {
	Status    AppointmentStatus
	ServiceID uuid.UUID
	StartDate time.Time
	EndDate   time.Time
}
