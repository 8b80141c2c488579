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

const reservationIdempotencyIndex = "reservations_idempotency_idx"

// activeCountQuery sums unexpired reservations and confirmed appointments
// strictly overlapping [$3, $4). Capacity admission and the availability
// read both go through this query so they can never disagree.
const activeCountQuery = `
	SELECT
		(SELECT COUNT(*) FROM reservations
		 WHERE business_id = $1 AND service_id = $2
		   AND slot_end > $3 AND slot_start < $4
		   AND expires_at > $5)
		+
		(SELECT COUNT(*) FROM appointments
		 WHERE business_id = $1 AND service_id = $2
		   AND slot_end > $3 AND slot_start < $4
		   AND status = 'confirmed' AND deleted_at IS NULL)
`

const reservationColumns = `
	id, business_id, service_id, slot_start, slot_end,
	idempotency_key, max_simultaneous_bookings, expires_at, created_at
`

func (r *reservationRepository) CreateWithCapacityCheck(ctx context.Context, reservation *model.Reservation) (*model.Reservation, error) {
	now := time.Now()

	// Idempotency dedup is exact-match on slot + key, unlike the
	// overlap-based capacity count.
	existing, err := r.findByIdempotencyKey(ctx, reservation, now)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	reservation.ID = uuid.New()
	reservation.CreatedAt = now

	err = r.WithSerializableTx(ctx, func(tx *sqlx.Tx) error {
		// An expired hold with the same key would trip the unique index, so
		// reclaim it here before counting.
		_, err := tx.ExecContext(ctx, `
			DELETE FROM reservations
			WHERE business_id = $1 AND service_id = $2
			  AND slot_start = $3 AND slot_end = $4
			  AND idempotency_key = $5 AND expires_at <= $6
		`, reservation.BusinessID, reservation.ServiceID,
			reservation.SlotStart, reservation.SlotEnd,
			reservation.IdempotencyKey, now)
		if err != nil {
			return translateError(err)
		}

		var active int
		err = tx.GetContext(ctx, &active, activeCountQuery,
			reservation.BusinessID, reservation.ServiceID,
			reservation.SlotStart, reservation.SlotEnd, now)
		if err != nil {
			return translateError(err)
		}

		if active >= reservation.MaxSimultaneousBookings {
			return apperrors.NewCapacityExceeded()
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO reservations (`+reservationColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, reservation.ID, reservation.BusinessID, reservation.ServiceID,
			reservation.SlotStart, reservation.SlotEnd,
			reservation.IdempotencyKey, reservation.MaxSimultaneousBookings,
			reservation.ExpiresAt, reservation.CreatedAt)
		return err
	})
	if err != nil {
		// A racing retry with the same key won the insert; return its hold.
		if isUniqueViolation(err, reservationIdempotencyIndex) {
			existing, ferr := r.findByIdempotencyKey(ctx, reservation, now)
			if ferr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, err
	}

	return reservation, nil
}

func (r *reservationRepository) findByIdempotencyKey(ctx context.Context, reservation *model.Reservation, now time.Time) (*model.Reservation, error) {
	var existing model.Reservation
	err := r.GetDB().GetContext(ctx, &existing, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE business_id = $1 AND service_id = $2
		  AND slot_start = $3 AND slot_end = $4
		  AND idempotency_key = $5 AND expires_at > $6
	`, reservation.BusinessID, reservation.ServiceID,
		reservation.SlotStart, reservation.SlotEnd,
		reservation.IdempotencyKey, now)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, translateError(err)
	}
	return &existing, nil
}

func (r *reservationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	var reservation model.Reservation
	err := r.GetDB().GetContext(ctx, &reservation, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewReservationNotFound(err)
	}
	if err != nil {
		return nil, translateError(err)
	}
	return &reservation, nil
}

func (r *reservationRepository) CountActive(ctx context.Context, businessID, serviceID uuid.UUID, start, end, now time.Time) (int, error) {
	var active int
	err := r.GetDB().GetContext(ctx, &active, activeCountQuery,
		businessID, serviceID, start, end, now)
	if err != nil {
		return 0, translateError(err)
	}
	return active, nil
}

func (r *reservationRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.GetDB().ExecContext(ctx, `
		DELETE FROM reservations
		WHERE expires_at <= $1
	`, now)
	if err != nil {
		return 0, translateError(err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

func (r *reservationRepository) CountExpired(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	err := r.GetDB().GetContext(ctx, &count, `
		SELECT COUNT(*) FROM reservations
		WHERE expires_at <= $1
	`, now)
	if err != nil {
		return 0, translateError(err)
	}
	return count, nil
}
