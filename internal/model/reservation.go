package model

import (
	"time"

	"github.com/google/uuid"
)

// Hold TTL bounds. Client-requested TTLs are clamped, never rejected.
const (
	MinHoldTTL     = 5 * time.Minute
	MaxHoldTTL     = 30 * time.Minute
	DefaultHoldTTL = 15 * time.Minute
)

// Slot is a bookable time interval for one service. Derived per request,
// never persisted on its own.
type Slot struct {
	BusinessID uuid.UUID `json:"business_id"`
	ServiceID  uuid.UUID `json:"service_id"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
}

func (s Slot) Valid() bool {
	return s.Start.Before(s.End)
}

// Overlaps reports whether the slot strictly overlaps [start, end).
// Touching endpoints do not overlap.
func (s Slot) Overlaps(start, end time.Time) bool {
	return s.End.After(start) && s.Start.Before(end)
}

// Reservation is a short-lived hold on a slot's capacity. It has no state
// field: it either exists and is unexpired, exists and is expired (pending
// cleanup), or is absent (consumed or swept).
type Reservation struct {
	ID                      uuid.UUID `json:"id" db:"id"`
	BusinessID              uuid.UUID `json:"business_id" db:"business_id"`
	ServiceID               uuid.UUID `json:"service_id" db:"service_id"`
	SlotStart               time.Time `json:"slot_start" db:"slot_start"`
	SlotEnd                 time.Time `json:"slot_end" db:"slot_end"`
	IdempotencyKey          string    `json:"idempotency_key" db:"idempotency_key"`
	MaxSimultaneousBookings int       `json:"max_simultaneous_bookings" db:"max_simultaneous_bookings"`
	ExpiresAt               time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt               time.Time `json:"created_at" db:"created_at"`
}

func (r *Reservation) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

type CreateReservationRequest struct {
	BusinessID     uuid.UUID `json:"business_id" binding:"required"`
	ServiceID      string    `json:"service_id" binding:"required"`
	SlotStart      time.Time `json:"slot_start" binding:"required"`
	SlotEnd        time.Time `json:"slot_end" binding:"required"`
	IdempotencyKey string    `json:"idempotency_key" binding:"required,max=128"`
	TTLMinutes     int       `json:"ttl_minutes" binding:"omitempty,min=1"`
}

// CreateReservationResponse is the public shape of a granted hold.
type CreateReservationResponse struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	SlotStart     time.Time `json:"slot_start"`
	SlotEnd       time.Time `json:"slot_end"`
	ExpiresAt     time.Time `json:"expires_at"`
}
