package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/BadGenius22/vouch-protocol-sub001/service/activity"
	"github.com/BadGenius22/vouch-protocol-sub001/service/config"
	"github.com/BadGenius22/vouch-protocol-sub001/service/db"
	"github.com/BadGenius22/vouch-protocol-sub001/service/metrics"
	"github.com/BadGenius22/vouch-protocol-sub001/service/temporal"
)

// Analysis is the slice of the activity pipeline the HTTP layer needs.
type Analysis interface {
	DeployedPrograms(ctx context.Context, wallet string) (*activity.DeployedProgramsResult, error)
	TradingVolume(ctx context.Context, wallet string, days int) (*activity.TradingVolumeResult, error)
}

// WalletStore is the slice of the database layer the HTTP layer needs.
type WalletStore interface {
	CreateWallet(ctx context.Context, params db.CreateWalletParams) (*db.Wallet, error)
	GetWallet(ctx context.Context, address, network string) (*db.Wallet, error)
	ListWallets(ctx context.Context, status string) ([]*db.Wallet, error)
	DeleteWallet(ctx context.Context, address, network string) error
	ListSnapshots(ctx context.Context, address, network, kind string, limit int32) ([]*db.MetricSnapshot, error)
}

// Server is the HTTP front for the wallet analysis service.
type Server struct {
	addr      string
	cfg       *config.Config
	analysis  Analysis
	store     WalletStore
	scheduler temporal.Scheduler
	registry  prometheus.Gatherer
	metrics   *metrics.Metrics
	logger    *slog.Logger
	server    *http.Server
}

// New creates a new HTTP server with the given dependencies.
// The scheduler is used to create/delete Temporal schedules for wallet
// refreshes. The registry and metrics are optional; if nil, the
// /metrics endpoint and per-request metrics are disabled.
func New(addr string, cfg *config.Config, analysis Analysis, store WalletStore, scheduler temporal.Scheduler, registry prometheus.Gatherer, m *metrics.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:      addr,
		cfg:       cfg,
		analysis:  analysis,
		store:     store,
		scheduler: scheduler,
		registry:  registry,
		metrics:   m,
		logger:    logger,
	}
}

// Handler builds the full route table. Exposed separately from Start so
// tests can drive it through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Analysis routes
	mux.Handle("GET /api/v1/wallets/{address}/programs",
		s.instrument("programs", handleDeployedPrograms(s.analysis, s.logger)))
	mux.Handle("GET /api/v1/wallets/{address}/volume",
		s.instrument("volume", handleTradingVolume(s.analysis, s.logger)))

	// Wallet registration routes
	mux.Handle("POST /api/v1/wallets",
		s.instrument("register_wallet", handleRegisterWallet(s.store, s.scheduler, s.cfg, s.logger)))
	mux.Handle("DELETE /api/v1/wallets/{address}",
		s.instrument("unregister_wallet", handleUnregisterWallet(s.store, s.scheduler, s.logger)))
	mux.Handle("GET /api/v1/wallets/{address}",
		s.instrument("get_wallet", handleGetWallet(s.store, s.logger)))
	mux.Handle("GET /api/v1/wallets",
		s.instrument("list_wallets", handleListWallets(s.store, s.logger)))

	// Snapshot history routes
	mux.Handle("GET /api/v1/wallets/{address}/snapshots",
		s.instrument("list_snapshots", handleListSnapshots(s.store, s.logger)))

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
	})

	// Prometheus metrics endpoint (if a registry is configured)
	if s.registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}

	return corsMiddleware(mux)
}

func (s *Server) instrument(name string, h http.Handler) http.Handler {
	if s.metrics == nil {
		return h
	}
	return metrics.HTTPMetricsMiddleware(s.metrics, name)(h)
}

// Start starts the HTTP server and blocks until it exits.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// corsMiddleware adds CORS headers to all responses and handles OPTIONS preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
