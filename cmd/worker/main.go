package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/BadGenius22/vouch-protocol-sub001/service/activity"
	"github.com/BadGenius22/vouch-protocol-sub001/service/config"
	"github.com/BadGenius22/vouch-protocol-sub001/service/db"
	"github.com/BadGenius22/vouch-protocol-sub001/service/helius"
	"github.com/BadGenius22/vouch-protocol-sub001/service/metrics"
	natspkg "github.com/BadGenius22/vouch-protocol-sub001/service/nats"
	"github.com/BadGenius22/vouch-protocol-sub001/service/price"
	"github.com/BadGenius22/vouch-protocol-sub001/service/temporal"
)

func main() {
	cfg := config.MustLoad()

	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting worker",
		"temporal_host", cfg.TemporalHost,
		"task_queue", cfg.TemporalTaskQueue,
		"network", cfg.SolanaNetwork,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.NewMetrics(prometheus.NewRegistry())

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

	// NATS publisher for snapshot events
	publisher, err := natspkg.NewPublisher(cfg.NATSURL, m, logger)
	if err != nil {
		logger.Error("failed to connect to NATS", "url", cfg.NATSURL, "error", err)
		os.Exit(1)
	}
	defer publisher.Close()
	logger.Info("connected to NATS", "url", cfg.NATSURL)

	// The analysis pipeline the refresh activities run.
	var indexer activity.Indexer
	if cfg.UseMockData() {
		logger.Warn("using mock indexer data", "network", cfg.SolanaNetwork)
		indexer = helius.NewMockClient()
	} else {
		indexer = helius.NewClient(cfg.HeliusRPCURL, cfg.HeliusParseURL, cfg.HeliusAPIKey, m, logger)
	}
	oracle := price.NewOracle(price.NewHTTPFetcher(cfg.PriceURL), cfg.PriceCacheTTL, m, logger)
	analysis := activity.NewService(indexer, oracle, cfg.ActivityCacheTTL, m, logger)

	w, err := temporal.NewWorker(temporal.WorkerConfig{
		TemporalHost:      cfg.TemporalHost,
		TemporalNamespace: cfg.TemporalNamespace,
		TaskQueue:         cfg.TemporalTaskQueue,
		Analysis:          analysis,
		Store:             store,
		Publisher:         publisher,
		Metrics:           m,
		Logger:            logger,
	})
	if err != nil {
		logger.Error("failed to create temporal worker", "error", err)
		os.Exit(1)
	}

	// Blocks until interrupted.
	if err := w.Start(); err != nil {
		logger.Error("worker stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("worker shutdown complete")
}

func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
