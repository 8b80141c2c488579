package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/booking-api/internal/config"
	"github.com/jwalitptl/booking-api/internal/handler"
	appointmentHandler "github.com/jwalitptl/booking-api/internal/handler/appointment"
	guestHandler "github.com/jwalitptl/booking-api/internal/handler/guest"
	reservationHandler "github.com/jwalitptl/booking-api/internal/handler/reservation"
	"github.com/jwalitptl/booking-api/internal/middleware"
	"github.com/jwalitptl/booking-api/internal/repository/postgres"
	"github.com/jwalitptl/booking-api/internal/router"
	appointmentService "github.com/jwalitptl/booking-api/internal/service/appointment"
	auditService "github.com/jwalitptl/booking-api/internal/service/audit"
	notificationService "github.com/jwalitptl/booking-api/internal/service/notification"
	reservationService "github.com/jwalitptl/booking-api/internal/service/reservation"
	"github.com/jwalitptl/booking-api/internal/service/tenant"
	"github.com/jwalitptl/booking-api/internal/worker"
	"github.com/jwalitptl/booking-api/pkg/auth"
	"github.com/jwalitptl/booking-api/pkg/logger"
	redisBroker "github.com/jwalitptl/booking-api/pkg/messaging/redis"
	"github.com/jwalitptl/booking-api/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(registry, "booking", "api")

	broker, err := redisBroker.NewRedisBroker(redisBroker.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: time.Duration(cfg.Redis.RetryBackoff) * time.Millisecond,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, &appLogger.ZL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	// Repositories
	reservationRepo := postgres.NewReservationRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	auditRepo := postgres.NewAuditRepository(db)

	// Services
	auditSvc := auditService.NewService(auditRepo, appLogger, m)
	notifier := notificationService.NewService(broker, cfg.SMTP, appLogger, m)
	reservationSvc := reservationService.NewService(reservationRepo, appLogger, m,
		time.Duration(cfg.Booking.DefaultHoldTTLMinutes)*time.Minute)
	appointmentSvc := appointmentService.NewService(appointmentRepo, auditSvc, notifier,
		appLogger, m, cfg.Booking.GuestTokenTTL())

	resolver := &tenant.Static{Capacity: cfg.Booking.DefaultCapacity}

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(auth.NewValidator(cfg.JWT.Secret))
	tokenLimiter := middleware.NewTokenRateLimiter(cfg.Booking.TokenRatePerMinute, cfg.Booking.TokenRateBurst, m)

	// Handlers
	handler.RegisterValidations()
	h := handler.NewHandler()
	reservationH := reservationHandler.NewHandler(reservationSvc, resolver, cfg.Booking.FallbackSweepThreshold)
	appointmentH := appointmentHandler.NewHandler(appointmentSvc, auditSvc)
	guestH := guestHandler.NewHandler(appointmentSvc, tokenLimiter)

	reaper := worker.NewReservationReaper(reservationSvc, cfg.Booking.ReaperInterval(),
		cfg.Booking.ExpirySpikeThreshold, appLogger, m)

	r := router.NewRouter(h, reservationH, appointmentH, guestH, authMiddleware,
		reaper, cfg.Booking.CronToken, registry)
	engine := r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
	}

	reaperCtx, stopReaper := context.WithCancel(context.Background())
	go reaper.Start(reaperCtx)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()
	appLogger.Info("server started", "port", cfg.Server.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	stopReaper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
