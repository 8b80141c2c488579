package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/booking-api/internal/model"
)

func (r *auditRepository) Create(ctx context.Context, entry *model.AuditLogEntry) error {
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()

	_, err := r.GetDB().ExecContext(ctx, `
		INSERT INTO audit_logs (
			id, appointment_id, actor_id, actor_email,
			action, old_status, new_status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, entry.ID, entry.AppointmentID, entry.ActorID, entry.ActorEmail,
		entry.Action, entry.OldStatus, entry.NewStatus, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create audit log entry: %w", translateError(err))
	}
	return nil
}

func (r *auditRepository) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*model.AuditLogEntry, error) {
	var entries []*model.AuditLogEntry
	err := r.GetDB().SelectContext(ctx, &entries, `
		SELECT id, appointment_id, actor_id, actor_email,
		       action, old_status, new_status, created_at
		FROM audit_logs
		WHERE appointment_id = $1
		ORDER BY created_at ASC
	`, appointmentID)
	if err != nil {
		return nil, translateError(err)
	}
	return entries, nil
}

// BackfillActor attributes the most recent null-actor entry. Two null-actor
// transitions in quick succession can attribute the wrong row; accepted as
// a best-effort correlation.
func (r *auditRepository) BackfillActor(ctx context.Context, appointmentID, actorID uuid.UUID, actorEmail string) (bool, error) {
	result, err := r.GetDB().ExecContext(ctx, `
		UPDATE audit_logs
		SET actor_id = $1, actor_email = $2
		WHERE id = (
			SELECT id FROM audit_logs
			WHERE appointment_id = $3 AND actor_id IS NULL
			ORDER BY created_at DESC
			LIMIT 1
		)
	`, actorID, actorEmail, appointmentID)
	if err != nil {
		return false, translateError(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}
