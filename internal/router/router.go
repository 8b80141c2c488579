package router

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jwalitptl/booking-api/internal/handler"
	appointmenthandler "github.com/jwalitptl/booking-api/internal/handler/appointment"
	guesthandler "github.com/jwalitptl/booking-api/internal/handler/guest"
	reservationhandler "github.com/jwalitptl/booking-api/internal/handler/reservation"
	"github.com/jwalitptl/booking-api/internal/middleware"
)

// Reaper is the on-demand sweep entry point exposed to the cron caller.
type Reaper interface {
	RunOnce(ctx context.Context, trigger string) (int64, error)
}

type Router struct {
	engine       *gin.Engine
	base         *handler.Handler
	reservations *reservationhandler.Handler
	appointments *appointmenthandler.Handler
	guest        *guesthandler.Handler
	auth         *middleware.AuthMiddleware
	reaper       Reaper
	cronToken    string
	registry     *prometheus.Registry
}

func NewRouter(
	base *handler.Handler,
	reservations *reservationhandler.Handler,
	appointments *appointmenthandler.Handler,
	guest *guesthandler.Handler,
	auth *middleware.AuthMiddleware,
	reaper Reaper,
	cronToken string,
	registry *prometheus.Registry,
) *Router {
	return &Router{
		engine:       gin.New(),
		base:         base,
		reservations: reservations,
		appointments: appointments,
		guest:        guest,
		auth:         auth,
		reaper:       reaper,
		cronToken:    cronToken,
		registry:     registry,
	}
}

func (r *Router) Setup() *gin.Engine {
	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.Logger())
	r.engine.Use(middleware.Recovery())

	r.engine.GET("/health", r.base.HealthCheck)
	r.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})))

	v1 := r.engine.Group("/api/v1")
	{
		r.reservations.RegisterRoutes(v1)
		r.guest.RegisterRoutes(v1)

		owner := v1.Group("")
		owner.Use(r.auth.Authenticate())
		owner.Use(r.auth.RequireBusiness())
		r.appointments.RegisterRoutes(v1, owner)
	}

	internal := r.engine.Group("/internal")
	internal.Use(r.requireCronToken())
	{
		internal.POST("/reaper/run", r.runReaper)
	}

	return r.engine
}

func (r *Router) runReaper(c *gin.Context) {
	deleted, err := r.reaper.RunOnce(c.Request.Context(), "manual")
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"deleted": deleted}))
}

func (r *Router) requireCronToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		supplied := c.GetHeader("X-Cron-Token")
		if r.cronToken == "" ||
			subtle.ConstantTimeCompare([]byte(supplied), []byte(r.cronToken)) != 1 {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid cron credential"))
			c.Abort()
			return
		}
		c.Next()
	}
}
