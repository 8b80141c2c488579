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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/booking-api/internal/config"
	"github.com/jwalitptl/booking-api/internal/repository/postgres"
	reservationService "github.com/jwalitptl/booking-api/internal/service/reservation"
	"github.com/jwalitptl/booking-api/internal/worker"
	"github.com/jwalitptl/booking-api/pkg/logger"
	"github.com/jwalitptl/booking-api/pkg/metrics"
)

// Standalone reaper process. Runs the expired-reservation sweep on a
// schedule so capacity held by abandoned reservations is reclaimed even
// when the API process is not deployed with an embedded reaper.
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
	m := metrics.NewMetrics(registry, "booking", "worker")

	reservationRepo := postgres.NewReservationRepository(db)
	reservationSvc := reservationService.NewService(reservationRepo, appLogger, m,
		time.Duration(cfg.Booking.DefaultHoldTTLMinutes)*time.Minute)

	reaper := worker.NewReservationReaper(reservationSvc, cfg.Booking.ReaperInterval(),
		cfg.Booking.ExpirySpikeThreshold, appLogger, m)

	ctx, cancel := context.WithCancel(context.Background())
	go reaper.Start(ctx)
	appLogger.Info("reservation reaper started",
		"interval", cfg.Booking.ReaperInterval().String())

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"status":"healthy"}`)
	})
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start health server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down worker...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker exited properly")
}
