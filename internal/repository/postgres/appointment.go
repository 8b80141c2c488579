package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/booking-api/internal/model"
	apperrors "github.com/jwalitptl/booking-api/pkg/errors"
)

const appointmentBookingIDConstraint = "appointments_booking_id_key"

const appointmentColumns = `
	id, booking_id, business_id, service_id, slot_start, slot_end,
	customer_id, guest_name, guest_email, guest_phone,
	status, version, guest_token_hash, guest_token_expires_at,
	created_at, updated_at, deleted_at
`

func (r *appointmentRepository) Commit(ctx context.Context, reservationID uuid.UUID, appointment *model.Appointment) (*model.Appointment, error) {
	now := time.Now()
	appointment.ID = uuid.New()
	appointment.Status = model.AppointmentStatusConfirmed
	appointment.Version = 1
	appointment.CreatedAt = now
	appointment.UpdatedAt = now

	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		// Lock the reservation row so a concurrent commit of the same hold
		// blocks here and then fails the not-found check.
		var reservation model.Reservation
		err := tx.GetContext(ctx, &reservation, `
			SELECT `+reservationColumns+`
			FROM reservations
			WHERE id = $1
			FOR UPDATE
		`, reservationID)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NewReservationNotFound(err)
		}
		if err != nil {
			return translateError(err)
		}

		if reservation.Expired(now) {
			return apperrors.NewReservationExpired()
		}

		// Slot fields carry over from the hold, never from the request.
		appointment.BusinessID = reservation.BusinessID
		appointment.ServiceID = reservation.ServiceID
		appointment.SlotStart = reservation.SlotStart
		appointment.SlotEnd = reservation.SlotEnd

		_, err = tx.ExecContext(ctx, `
			INSERT INTO appointments (`+appointmentColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			        $11, $12, $13, $14, $15, $16, $17)
		`, appointment.ID, appointment.BookingID, appointment.BusinessID,
			appointment.ServiceID, appointment.SlotStart, appointment.SlotEnd,
			appointment.CustomerID, appointment.GuestName,
			appointment.GuestEmail, appointment.GuestPhone,
			appointment.Status, appointment.Version,
			appointment.GuestTokenHash, appointment.GuestTokenExpiresAt,
			appointment.CreatedAt, appointment.UpdatedAt, appointment.DeletedAt)
		if err != nil {
			if isUniqueViolation(err, appointmentBookingIDConstraint) {
				return apperrors.NewConflict("booking code already in use", err)
			}
			return translateError(err)
		}

		result, err := tx.ExecContext(ctx, `
			DELETE FROM reservations WHERE id = $1
		`, reservationID)
		if err != nil {
			return translateError(err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return apperrors.NewReservationNotFound(nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return appointment, nil
}

func (r *appointmentRepository) Get(ctx context.Context, businessID, id uuid.UUID) (*model.Appointment, error) {
	var appointment model.Appointment
	err := r.GetDB().GetContext(ctx, &appointment, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1 AND business_id = $2
	`, id, businessID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("appointment", err)
	}
	if err != nil {
		return nil, translateError(err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) GetByBookingID(ctx context.Context, bookingID string) (*model.Appointment, error) {
	var appointment model.Appointment
	err := r.GetDB().GetContext(ctx, &appointment, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE booking_id = $1
	`, bookingID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("appointment", err)
	}
	if err != nil {
		return nil, translateError(err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) List(ctx context.Context, businessID uuid.UUID, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE business_id = $1
	`
	args := []interface{}{businessID}
	argCount := 2

	if filters != nil {
		if filters.Status != "" {
			query += fmt.Sprintf(" AND status = $%d", argCount)
			args = append(args, filters.Status)
			argCount++
		}
		if filters.ServiceID != uuid.Nil {
			query += fmt.Sprintf(" AND service_id = $%d", argCount)
			args = append(args, filters.ServiceID)
			argCount++
		}
		if !filters.StartDate.IsZero() {
			query += fmt.Sprintf(" AND slot_start >= $%d", argCount)
			args = append(args, filters.StartDate)
			argCount++
		}
		if !filters.EndDate.IsZero() {
			query += fmt.Sprintf(" AND slot_start < $%d", argCount)
			args = append(args, filters.EndDate)
			argCount++
		}
	}

	query += " ORDER BY slot_start ASC"

	var appointments []*model.Appointment
	err := r.GetDB().SelectContext(ctx, &appointments, query, args...)
	if err != nil {
		return nil, translateError(err)
	}
	return appointments, nil
}

func (r *appointmentRepository) UpdateStatus(ctx context.Context, appointment *model.Appointment, expectedVersion int64, invalidateToken bool) error {
	now := time.Now()

	query := `
		UPDATE appointments
		SET status = $1, deleted_at = $2, updated_at = $3, version = version + 1
	`
	if invalidateToken {
		query += ", guest_token_hash = NULL, guest_token_expires_at = NULL"
	}
	query += `
		WHERE id = $4 AND business_id = $5 AND version = $6
	`

	result, err := r.GetDB().ExecContext(ctx, query,
		appointment.Status, appointment.DeletedAt, now,
		appointment.ID, appointment.BusinessID, expectedVersion)
	if err != nil {
		return translateError(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		// Distinguish a vanished row from a lost version race.
		if _, err := r.Get(ctx, appointment.BusinessID, appointment.ID); err != nil {
			return err
		}
		return apperrors.NewConcurrentModification()
	}

	appointment.Version = expectedVersion + 1
	appointment.UpdatedAt = now
	if invalidateToken {
		appointment.GuestTokenHash = nil
		appointment.GuestTokenExpiresAt = nil
	}
	return nil
}
