package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code
type ErrorCode int

// Error codes for the booking taxonomy. Callers branch on the code,
// never on the message text.
const (
	ErrValidation ErrorCode = iota + 1000
	ErrNotFound
	ErrUnauthorized
	ErrForbidden
	ErrInternal
	ErrCapacityExceeded
	ErrReservationNotFound
	ErrReservationExpired
	ErrConcurrentModification
	ErrInvalidToken
	ErrConflict
	ErrStoreUnavailable
)

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Fields  []string  `json:"fields,omitempty"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches on the error code so wrapped taxonomy members compare equal.
func (e *AppError) Is(target error) bool {
	var appErr *AppError
	if !errors.As(target, &appErr) {
		return false
	}
	return e.Code == appErr.Code
}

// CodeOf returns the taxonomy code of err, or ErrInternal for foreign errors.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// Error constructors

func NewValidation(message string, fields ...string) *AppError {
	return &AppError{Code: ErrValidation, Message: message, Fields: fields}
}

func NewNotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

// NewCapacityExceeded is the "slot no longer available" condition: a race
// winner took the last unit of capacity. Transient from the caller's view.
func NewCapacityExceeded() *AppError {
	return &AppError{Code: ErrCapacityExceeded, Message: "slot no longer available"}
}

func NewReservationNotFound(err error) *AppError {
	return &AppError{
		Code:    ErrReservationNotFound,
		Message: "reservation no longer valid, please retry",
		Err:     err,
	}
}

func NewReservationExpired() *AppError {
	return &AppError{
		Code:    ErrReservationExpired,
		Message: "reservation no longer valid, please retry",
	}
}

func NewConcurrentModification() *AppError {
	return &AppError{
		Code:    ErrConcurrentModification,
		Message: "appointment was modified concurrently, please re-read and retry",
	}
}

func NewInvalidToken() *AppError {
	return &AppError{Code: ErrInvalidToken, Message: "invalid or expired token"}
}

func NewConflict(message string, err error) *AppError {
	return &AppError{Code: ErrConflict, Message: message, Err: err}
}

func NewStoreUnavailable(err error) *AppError {
	return &AppError{Code: ErrStoreUnavailable, Message: "storage unavailable", Err: err}
}

func NewUnauthorized(err error) *AppError {
	return &AppError{Code: ErrUnauthorized, Message: "unauthorized", Err: err}
}

func NewInternal(err error) *AppError {
	return &AppError{Code: ErrInternal, Message: "internal server error", Err: err}
}
