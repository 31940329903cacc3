// Entry point for the time-clock attendance agent.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"timeclock.agent/internal/api"
	"timeclock.agent/internal/api/handler"
	"timeclock.agent/internal/config"
	"timeclock.agent/internal/core"
	"timeclock.agent/internal/core/model"
	"timeclock.agent/internal/ports/device"
	"timeclock.agent/internal/ports/remoteapi"
	"timeclock.agent/internal/ports/timesource"
	"timeclock.agent/internal/queue"
	"timeclock.agent/internal/scheduler"
	"timeclock.agent/internal/store"
	"timeclock.agent/pkg/logger"
	"timeclock.agent/pkg/telemetry"
)

func main() {
	// Load config. A missing execution time is the only fatal startup error.
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Could not load configuration")
	}

	// Configure structured logging
	logger.Setup(cfg.IsLocalDev)

	// Configure OpenTelemetry tracing
	shutdownTracer, err := telemetry.InitTracer("timeclock-agent", cfg.OTLPEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to init tracer")
	}
	defer func() {
		_ = shutdownTracer(context.Background())
	}()

	// Durable queue storage
	db, err := queue.Open(cfg.QueueDBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening queue database")
	}
	defer db.Close()
	log.Info().Str("path", cfg.QueueDBPath).Msg("Queue database ready")

	documents, err := store.NewFileStore(cfg.DataDir, logger.Component("store"))
	if err != nil {
		log.Fatal().Err(err).Msg("Error preparing document store")
	}

	// Initialize dependencies
	pendingQueue := queue.New(db, cfg.RetryMaxAttempts, logger.Component("queue"))
	connector := device.NewHTTPConnector(cfg.DeviceBridgeURL, cfg.DeviceTimeout, logger.Component("device"))
	apiClient := remoteapi.NewHTTPClient(remoteapi.Options{
		BaseURL:        cfg.APIBaseURL,
		TokenPath:      cfg.TokenPath,
		AttendancePath: cfg.AttendancePath,
		DevicePath:     cfg.DevicePath,
		Email:          cfg.LoginEmail,
		Password:       cfg.LoginPassword,
		Timeout:        cfg.APITimeout,
	}, logger.Component("remoteapi"))
	service := core.NewAttendanceService(connector, documents, pendingQueue, apiClient, logger.Component("attendance"))

	timeSource, err := timesource.NewNTPSource(cfg.NTPServer, cfg.Timezone, cfg.NTPTimeout, logger.Component("timesource"))
	if err != nil {
		log.Fatal().Err(err).Msg("Error configuring time source")
	}
	daily := scheduler.New(timeSource, cfg.ExecutionTime, cfg.PollInterval, service.RunCycle, logger.Component("scheduler"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The retry loop is the single delivery authority for queued payloads.
	sendQueued := func(ctx context.Context, kind model.PayloadKind, payload json.RawMessage) bool {
		return apiClient.Send(ctx, kind, payload) == nil
	}
	go pendingQueue.RunRetryLoop(ctx, cfg.RetryInterval, sendQueued)

	go daily.Run(ctx)

	// Operational status surface
	statusHandler := &handler.StatusHandler{Service: service, Queue: pendingQueue}
	router := api.NewRouter(statusHandler)

	loggerMiddleware := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(logger.EnrichContextWithLogger(r.Context())))
		})
	}

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: otelhttp.NewHandler(loggerMiddleware(router), "api"),
	}

	go func() {
		log.Info().Str("port", cfg.ServerPort).Msg("Status server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	// Wait for interrupt signal to gracefully shut everything down.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down agent...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Agent exiting")
}
