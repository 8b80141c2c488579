package appointment

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/booking-api/internal/handler"
	"github.com/jwalitptl/booking-api/internal/middleware"
	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/service/appointment"
	apperrors "github.com/jwalitptl/booking-api/pkg/errors"
	"github.com/jwalitptl/booking-api/pkg/token"
)

type Service interface {
	Commit(ctx context.Context, req *model.CommitReservationRequest, bookingID string) (*model.CommitResult, error)
	UpdateStatus(ctx context.Context, businessID, appointmentID uuid.UUID, newStatus model.AppointmentStatus, expectedVersion int64, actor *appointment.Actor) (*model.Appointment, error)
	Get(ctx context.Context, businessID, id uuid.UUID) (*model.Appointment, error)
	List(ctx context.Context, businessID uuid.UUID, filters *model.AppointmentFilters) ([]*model.Appointment, error)
}

type AuditService interface {
	List(ctx context.Context, appointmentID uuid.UUID) ([]*model.AuditLogEntry, error)
}

type Handler struct {
	service Service
	audit   AuditService
}

func NewHandler(service Service, audit AuditService) *Handler {
	return &Handler{service: service, audit: audit}
}

func (h *Handler) CommitReservation(c *gin.Context) {
	var req model.CommitReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	bookingID, err := token.NewBookingCode()
	if err != nil {
		handler.RespondError(c, apperrors.NewInternal(err))
		return
	}

	result, err := h.service.Commit(c.Request.Context(), &req, bookingID)
	if apperrors.IsCode(err, apperrors.ErrConflict) {
		// Booking code collision; one retry with a fresh code.
		bookingID, err = token.NewBookingCode()
		if err != nil {
			handler.RespondError(c, apperrors.NewInternal(err))
			return
		}
		result, err = h.service.Commit(c.Request.Context(), &req, bookingID)
	}
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(result))
}

func (h *Handler) GetAppointment(c *gin.Context) {
	businessID, id, ok := pathIDs(c)
	if !ok {
		return
	}

	appt, err := h.service.Get(c.Request.Context(), businessID, id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(appt))
}

func (h *Handler) ListAppointments(c *gin.Context) {
	businessID, err := uuid.Parse(c.Param("businessId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid business ID"))
		return
	}

	filters := &model.AppointmentFilters{}

	if status := c.Query("status"); status != "" {
		filters.Status = model.AppointmentStatus(status)
		if !filters.Status.Valid() {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid status filter"))
			return
		}
	}

	if id := c.Query("service_id"); id != "" {
		serviceID, err := uuid.Parse(id)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid service ID"))
			return
		}
		filters.ServiceID = serviceID
	}

	if date := c.Query("start_date"); date != "" {
		start, err := time.Parse(time.RFC3339, date)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid start date"))
			return
		}
		filters.StartDate = start
	}

	if date := c.Query("end_date"); date != "" {
		end, err := time.Parse(time.RFC3339, date)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid end date"))
			return
		}
		filters.EndDate = end
	}

	appointments, err := h.service.List(c.Request.Context(), businessID, filters)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(appointments))
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	businessID, id, ok := pathIDs(c)
	if !ok {
		return
	}

	var req model.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	actor := actorFromContext(c)

	appt, err := h.service.UpdateStatus(c.Request.Context(), businessID, id, req.Status, req.ExpectedVersion, actor)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(appt))
}

func (h *Handler) GetAuditTrail(c *gin.Context) {
	businessID, id, ok := pathIDs(c)
	if !ok {
		return
	}

	// Confirm tenancy before exposing the trail.
	if _, err := h.service.Get(c.Request.Context(), businessID, id); err != nil {
		handler.RespondError(c, err)
		return
	}

	entries, err := h.audit.List(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(entries))
}

func (h *Handler) RegisterRoutes(public, owner *gin.RouterGroup) {
	public.POST("/appointments", h.CommitReservation)

	appointments := owner.Group("/businesses/:businessId/appointments")
	{
		appointments.GET("", h.ListAppointments)
		appointments.GET("/:id", h.GetAppointment)
		appointments.PATCH("/:id/status", h.UpdateStatus)
		appointments.GET("/:id/audit", h.GetAuditTrail)
	}
}

func pathIDs(c *gin.Context) (businessID, id uuid.UUID, ok bool) {
	businessID, err := uuid.Parse(c.Param("businessId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid business ID"))
		return uuid.Nil, uuid.Nil, false
	}
	id, err = uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid appointment ID"))
		return uuid.Nil, uuid.Nil, false
	}
	return businessID, id, true
}

func actorFromContext(c *gin.Context) *appointment.Actor {
	actorID, err := uuid.Parse(c.GetString(middleware.ContextActorID))
	if err != nil {
		return nil
	}
	return &appointment.Actor{
		ID:    actorID,
		Email: c.GetString(middleware.ContextActorEmail),
	}
}
