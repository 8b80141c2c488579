package reservation

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/booking-api/internal/handler"
	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/service/reservation"
	"github.com/jwalitptl/booking-api/internal/service/tenant"
)

type Service interface {
	CreateReservation(ctx context.Context, p reservation.CreateParams) (*model.Reservation, error)
	AvailableCapacity(ctx context.Context, businessID, serviceID uuid.UUID, start, end time.Time, maxSimultaneousBookings int) (int, error)
	SweepIfBacklogged(ctx context.Context, threshold int64) (int64, bool, error)
}

type Handler struct {
	service        Service
	resolver       tenant.Resolver
	sweepThreshold int64
}

func NewHandler(service Service, resolver tenant.Resolver, sweepThreshold int64) *Handler {
	return &Handler{
		service:        service,
		resolver:       resolver,
		sweepThreshold: sweepThreshold,
	}
}

func (h *Handler) CreateReservation(c *gin.Context) {
	var req model.CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	ctx := c.Request.Context()

	serviceID, err := h.resolver.ResolveServiceID(ctx, req.BusinessID, req.ServiceID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	capacity, err := h.resolver.MaxSimultaneousBookings(ctx, req.BusinessID, serviceID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	granted, err := h.service.CreateReservation(ctx, reservation.CreateParams{
		BusinessID:              req.BusinessID,
		ServiceID:               serviceID,
		SlotStart:               req.SlotStart,
		SlotEnd:                 req.SlotEnd,
		IdempotencyKey:          req.IdempotencyKey,
		TTL:                     time.Duration(req.TTLMinutes) * time.Minute,
		MaxSimultaneousBookings: capacity,
	})
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(model.CreateReservationResponse{
		ReservationID: granted.ID,
		SlotStart:     granted.SlotStart,
		SlotEnd:       granted.SlotEnd,
		ExpiresAt:     granted.ExpiresAt,
	}))
}

func (h *Handler) GetAvailability(c *gin.Context) {
	businessID, err := uuid.Parse(c.Query("business_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid business ID"))
		return
	}

	ctx := c.Request.Context()

	serviceID, err := h.resolver.ResolveServiceID(ctx, businessID, c.Query("service_id"))
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid start time"))
		return
	}

	end, err := time.Parse(time.RFC3339, c.Query("end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid end time"))
		return
	}

	capacity, err := h.resolver.MaxSimultaneousBookings(ctx, businessID, serviceID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	available, err := h.service.AvailableCapacity(ctx, businessID, serviceID, start, end, capacity)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"available": available}))
}

// Sweep is the fallback cleanup path, callable without the cron credential.
// It only performs work once the expired backlog crosses the threshold.
func (h *Handler) Sweep(c *gin.Context) {
	deleted, swept, err := h.service.SweepIfBacklogged(c.Request.Context(), h.sweepThreshold)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"swept":   swept,
		"deleted": deleted,
	}))
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/reservations", h.CreateReservation)
	r.POST("/reservations/sweep", h.Sweep)
	r.GET("/availability", h.GetAvailability)
}
