package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	apperrors "github.com/jwalitptl/booking-api/pkg/errors"
)

// Postgres error codes this layer translates into the booking taxonomy.
const (
	pqSerializationFailure = "40001"
	pqUniqueViolation      = "23505"
)

const serializableRetries = 3

// BaseRepository provides common functionality for all repositories
type BaseRepository struct {
	db *sqlx.DB
}

func NewBaseRepository(db *sqlx.DB) BaseRepository {
	return BaseRepository{db: db}
}

func (r *BaseRepository) GetDB() *sqlx.DB {
	return r.db
}

// WithTx executes a function within a transaction
func (r *BaseRepository) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperrors.NewStoreUnavailable(err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return translateError(err)
	}
	return nil
}

// WithSerializableTx runs fn at SERIALIZABLE isolation and retries a
// bounded number of times on serialization failure. The isolation level is
// what makes the capacity check-then-insert safe under concurrent callers.
func (r *BaseRepository) WithSerializableTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	var lastErr error
	for attempt := 0; attempt < serializableRetries; attempt++ {
		tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
		if err != nil {
			return apperrors.NewStoreUnavailable(err)
		}

		err = fn(tx)
		if err == nil {
			err = tx.Commit()
		}
		if err == nil {
			return nil
		}
		tx.Rollback()

		if isSerializationFailure(err) {
			lastErr = err
			continue
		}
		return err
	}
	return apperrors.NewStoreUnavailable(lastErr)
}

func isSerializationFailure(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pqSerializationFailure
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || string(pqErr.Code) != pqUniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

// translateError maps driver-level failures into the error taxonomy.
// Connection-class failures become StoreUnavailable; everything else is
// passed through for the caller to classify.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// Class 08: connection exception. Class 57: operator intervention.
		if len(pqErr.Code) >= 2 && (pqErr.Code[:2] == "08" || pqErr.Code[:2] == "57") {
			return apperrors.NewStoreUnavailable(err)
		}
	}
	if errors.Is(err, sql.ErrConnDone) {
		return apperrors.NewStoreUnavailable(err)
	}
	return err
}
