package model

import (
	"time"

	"github.com/google/uuid"
)

// AuditLogEntry is an append-only record of an appointment state
// transition. Entries are never mutated except for best-effort actor
// back-fill on rows written before the actor was known.
type AuditLogEntry struct {
	ID            uuid.UUID          `json:"id" db:"id"`
	AppointmentID uuid.UUID          `json:"appointment_id" db:"appointment_id"`
	ActorID       *uuid.UUID         `json:"actor_id,omitempty" db:"actor_id"`
	ActorEmail    *string            `json:"actor_email,omitempty" db:"actor_email"`
	Action        string             `json:"action" db:"action"`
	OldStatus     *AppointmentStatus `json:"old_status,omitempty" db:"old_status"`
	NewStatus     *AppointmentStatus `json:"new_status,omitempty" db:"new_status"`
	CreatedAt     time.Time          `json:"created_at" db:"created_at"`
}

const (
	AuditActionCreated      = "created"
	AuditActionStatusChange = "status_change"
	AuditActionGuestCancel  = "guest_cancel"
	AuditActionReconfirm    = "reconfirm"
)
