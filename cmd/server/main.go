package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gsdc-platform/adminq/service/config"
	"github.com/gsdc-platform/adminq/service/db"
	"github.com/gsdc-platform/adminq/service/metrics"
	natspkg "github.com/gsdc-platform/adminq/service/nats"
	"github.com/gsdc-platform/adminq/service/queue"
	"github.com/gsdc-platform/adminq/service/server"
	"github.com/gsdc-platform/adminq/service/temporal"
	"github.com/gsdc-platform/adminq/service/token"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	// Load and validate configuration from environment
	cfg := config.MustLoad()

	// Setup structured logging
	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting adminq server",
		"addr", cfg.ServerAddr,
		"log_level", cfg.LogLevel,
		"cooldown_period", cfg.CooldownPeriod.String(),
		"min_approvers", cfg.MinApprovers,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	// Verify database connection
	if err := dbPool.Ping(ctx); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	// Initialize database store
	store := db.NewStore(dbPool)

	// Initialize Prometheus metrics collector
	metricsCollector := metrics.NewMetrics(nil) // nil uses default registry

	// Initialize token gateway client
	tokenClient := token.NewGateway(cfg.TokenGatewayURL, nil, logger)
	logger.Info("initialized token gateway client", "url", cfg.TokenGatewayURL)

	// Initialize NATS publisher
	natsPublisher, err := natspkg.NewPublisher(cfg.NATSURL, logger)
	if err != nil {
		logger.Error("failed to create NATS publisher", "error", err)
		os.Exit(1)
	}
	defer natsPublisher.Close()
	logger.Info("connected to NATS", "url", cfg.NATSURL)

	// Initialize Temporal client and ensure the cooldown sweep schedule exists
	temporalClient, err := temporal.NewClient(
		cfg.TemporalHost,
		cfg.TemporalNamespace,
		cfg.TemporalTaskQueue,
		logger,
	)
	if err != nil {
		logger.Error("failed to create temporal client", "error", err)
		os.Exit(1)
	}
	defer temporalClient.Close()

	if err := temporalClient.EnsureSweepSchedule(ctx, cfg.SweepInterval); err != nil {
		logger.Error("failed to ensure sweep schedule", "error", err)
		os.Exit(1)
	}
	logger.Info("sweep schedule ensured",
		"interval", cfg.SweepInterval.String(),
		"task_queue", cfg.TemporalTaskQueue,
	)

	// Initialize queue service
	svc := queue.NewService(
		store,
		tokenClient,
		natsPublisher,
		metricsCollector,
		logger,
		cfg.CooldownPeriod,
		int64(cfg.MinApprovers),
	)

	// Initialize HTTP server
	httpServer := server.New(cfg.ServerAddr, svc, metricsCollector, logger)

	// Start server in background
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", "addr", cfg.ServerAddr)
		serverErrors <- httpServer.Start()
	}()

	// Wait for shutdown signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", "error", err)
		os.Exit(1)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
			os.Exit(1)
		}

		logger.Info("shutdown complete")
	}
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
