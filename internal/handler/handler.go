package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/jwalitptl/booking-api/pkg/errors"
)

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, NewSuccessResponse(gin.H{"status": "healthy"}))
}

// RespondError maps the error taxonomy onto HTTP statuses so callers can
// branch on expected outcomes without string-matching messages.
func RespondError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		c.JSON(http.StatusInternalServerError, NewErrorResponse("internal server error"))
		return
	}

	status := http.StatusInternalServerError
	switch appErr.Code {
	case apperrors.ErrValidation:
		status = http.StatusBadRequest
	case apperrors.ErrNotFound:
		status = http.StatusNotFound
	case apperrors.ErrUnauthorized, apperrors.ErrInvalidToken:
		status = http.StatusUnauthorized
	case apperrors.ErrForbidden:
		status = http.StatusForbidden
	case apperrors.ErrCapacityExceeded,
		apperrors.ErrReservationNotFound,
		apperrors.ErrReservationExpired,
		apperrors.ErrConflict:
		status = http.StatusConflict
	case apperrors.ErrConcurrentModification:
		status = http.StatusPreconditionFailed
	case apperrors.ErrStoreUnavailable:
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, &Response{
		Status:  "error",
		Message: appErr.Message,
		Fields:  appErr.Fields,
	})
}
