package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/BadGenius22/vouch-protocol-sub001/service/activity"
	"github.com/BadGenius22/vouch-protocol-sub001/service/config"
	"github.com/BadGenius22/vouch-protocol-sub001/service/db"
	"github.com/BadGenius22/vouch-protocol-sub001/service/helius"
	"github.com/BadGenius22/vouch-protocol-sub001/service/metrics"
	"github.com/BadGenius22/vouch-protocol-sub001/service/price"
	"github.com/BadGenius22/vouch-protocol-sub001/service/server"
	"github.com/BadGenius22/vouch-protocol-sub001/service/temporal"
)

func main() {
	// Load and validate configuration from environment.
	// This fails fast if any required config is missing or invalid.
	cfg := config.MustLoad()

	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting server",
		"addr", cfg.ServerAddr,
		"log_level", cfg.LogLevel,
		"network", cfg.SolanaNetwork,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(registry)

	// Database connection pool
	dbPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	if err := db.EnsureSchema(ctx, dbPool); err != nil {
		logger.Error("failed to ensure database schema", "error", err)
		os.Exit(1)
	}
	store := db.NewStore(dbPool, m)
	logger.Info("connected to database")

	// Temporal client for managing refresh schedules
	temporalClient, err := temporal.NewClient(cfg.TemporalHost, cfg.TemporalNamespace, cfg.TemporalTaskQueue, logger)
	if err != nil {
		logger.Error("failed to connect to temporal", "error", err)
		os.Exit(1)
	}
	defer temporalClient.Close()

	// Indexer: real Helius client, or the deterministic mock when no
	// API key is configured or the network is not mainnet.
	var indexer activity.Indexer
	if cfg.UseMockData() {
		logger.Warn("using mock indexer data", "network", cfg.SolanaNetwork)
		indexer = helius.NewMockClient()
	} else {
		indexer = helius.NewClient(cfg.HeliusRPCURL, cfg.HeliusParseURL, cfg.HeliusAPIKey, m, logger)
	}

	oracle := price.NewOracle(price.NewHTTPFetcher(cfg.PriceURL), cfg.PriceCacheTTL, m, logger)
	analysis := activity.NewService(indexer, oracle, cfg.ActivityCacheTTL, m, logger)

	httpServer := server.New(cfg.ServerAddr, cfg, analysis, store, temporalClient, registry, m, logger)

	serverErrors := make(chan error, 1)
	go func() {
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
			logger.Error("failed to shutdown server gracefully", "error", err)
			os.Exit(1)
		}

		logger.Info("server shutdown complete")
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

	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
