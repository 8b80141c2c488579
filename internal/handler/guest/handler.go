package guest

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/booking-api/internal/handler"
	"github.com/jwalitptl/booking-api/internal/middleware"
	"github.com/jwalitptl/booking-api/internal/model"
	apperrors "github.com/jwalitptl/booking-api/pkg/errors"
)

type Service interface {
	GuestView(ctx context.Context, bookingID, rawToken string) (*model.Appointment, error)
	GuestCancel(ctx context.Context, bookingID, rawToken string) (*model.Appointment, error)
}

// Handler serves the guest self-service management link
// /manage/{bookingId}?token={rawToken}.
type Handler struct {
	service Service
	limiter *middleware.TokenRateLimiter
}

func NewHandler(service Service, limiter *middleware.TokenRateLimiter) *Handler {
	return &Handler{service: service, limiter: limiter}
}

type manageURI struct {
	BookingID string `uri:"bookingId" binding:"required,bookingcode"`
}

func (h *Handler) ViewAppointment(c *gin.Context) {
	uri, rawToken, ok := manageParams(c)
	if !ok {
		return
	}

	appt, err := h.service.GuestView(c.Request.Context(), uri.BookingID, rawToken)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(appt))
}

func (h *Handler) CancelAppointment(c *gin.Context) {
	uri, rawToken, ok := manageParams(c)
	if !ok {
		return
	}

	appt, err := h.service.GuestCancel(c.Request.Context(), uri.BookingID, rawToken)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(appt))
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	manage := r.Group("/manage")
	manage.Use(h.limiter.Limit("bookingId"))
	{
		manage.GET("/:bookingId", h.ViewAppointment)
		manage.POST("/:bookingId/cancel", h.CancelAppointment)
	}
}

func manageParams(c *gin.Context) (manageURI, string, bool) {
	var uri manageURI
	if err := c.ShouldBindUri(&uri); err != nil {
		// Malformed codes get the same answer as bad tokens.
		handler.RespondError(c, apperrors.NewInvalidToken())
		return uri, "", false
	}

	rawToken := c.Query("token")
	if rawToken == "" {
		handler.RespondError(c, apperrors.NewInvalidToken())
		return uri, "", false
	}

	return uri, rawToken, true
}
