package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/BadGenius22/vouch-protocol-sub001/service/activity"
	"github.com/BadGenius22/vouch-protocol-sub001/service/config"
	"github.com/BadGenius22/vouch-protocol-sub001/service/db"
	"github.com/BadGenius22/vouch-protocol-sub001/service/temporal"
)

const (
	maxRequestBodySize = 1 << 20 // 1MB, plenty for wallet registration
	defaultLookback    = 30
	defaultPageLimit   = 20
	maxPageLimit       = 100
)

// apiResponse is the envelope every JSON endpoint uses. Partial is set
// when the underlying pipeline degraded but still produced a result.
type apiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Partial bool   `json:"partial,omitempty"`
}

// handleDeployedPrograms returns a handler for the deployed-programs pipeline.
// GET /api/v1/wallets/{address}/programs
func handleDeployedPrograms(analysis Analysis, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		address, err := activity.ValidateAddress(r.PathValue("address"))
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		result, err := analysis.DeployedPrograms(r.Context(), address)
		if err != nil {
			writePipelineError(w, logger, "deployed programs", address, err)
			return
		}

		writeResult(w, result, result.Partial)
	})
}

// handleTradingVolume returns a handler for the trading-volume pipeline.
// GET /api/v1/wallets/{address}/volume?days={n}
func handleTradingVolume(analysis Analysis, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		address, err := activity.ValidateAddress(r.PathValue("address"))
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		days := defaultLookback
		if raw := r.URL.Query().Get("days"); raw != "" {
			days, err = strconv.Atoi(raw)
			if err != nil {
				writeError(w, "days must be an integer", http.StatusBadRequest)
				return
			}
		}
		if err := activity.ValidateLookbackDays(days); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		result, err := analysis.TradingVolume(r.Context(), address, days)
		if err != nil {
			writePipelineError(w, logger, "trading volume", address, err)
			return
		}

		writeResult(w, result, result.Partial)
	})
}

type registerWalletRequest struct {
	Address                string `json:"address"`
	Network                string `json:"network"`
	RefreshIntervalSeconds int64  `json:"refresh_interval_seconds"`
	PeriodDays             int    `json:"period_days"`
}

type walletResponse struct {
	Address                string    `json:"address"`
	Network                string    `json:"network"`
	RefreshIntervalSeconds int64     `json:"refresh_interval_seconds"`
	Status                 string    `json:"status"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

func walletToResponse(w *db.Wallet) walletResponse {
	return walletResponse{
		Address:                w.Address,
		Network:                w.Network,
		RefreshIntervalSeconds: int64(w.RefreshInterval / time.Second),
		Status:                 w.Status,
		CreatedAt:              w.CreatedAt,
		UpdatedAt:              w.UpdatedAt,
	}
}

// handleRegisterWallet returns a handler that registers a wallet for
// scheduled metric refreshes.
// POST /api/v1/wallets
func handleRegisterWallet(store WalletStore, scheduler temporal.Scheduler, cfg *config.Config, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		var req registerWalletRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, "invalid request body", http.StatusBadRequest)
			return
		}

		address, err := activity.ValidateAddress(req.Address)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		network := req.Network
		if network == "" {
			network = "mainnet"
		}
		if err := validateNetwork(network); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		periodDays := req.PeriodDays
		if periodDays == 0 {
			periodDays = defaultLookback
		}
		if err := activity.ValidateLookbackDays(periodDays); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		interval := cfg.DefaultRefreshInterval
		if req.RefreshIntervalSeconds > 0 {
			interval = time.Duration(req.RefreshIntervalSeconds) * time.Second
		}
		if interval < cfg.MinRefreshInterval {
			writeError(w, fmt.Sprintf("refresh interval must be at least %v", cfg.MinRefreshInterval), http.StatusBadRequest)
			return
		}

		wallet, err := store.CreateWallet(r.Context(), db.CreateWalletParams{
			Address:         address,
			Network:         network,
			RefreshInterval: interval,
		})
		if err != nil {
			logger.Error("failed to register wallet", "address", address, "network", network, "error", err)
			writeError(w, "failed to register wallet", http.StatusInternalServerError)
			return
		}

		if err := scheduler.UpsertWalletSchedule(r.Context(), address, network, periodDays, interval); err != nil {
			// Roll back the row so a retry starts clean.
			if delErr := store.DeleteWallet(r.Context(), address, network); delErr != nil {
				logger.Error("failed to roll back wallet registration", "address", address, "error", delErr)
			}
			logger.Error("failed to create refresh schedule", "address", address, "network", network, "error", err)
			writeError(w, "failed to create refresh schedule", http.StatusInternalServerError)
			return
		}

		logger.Info("wallet registered",
			"address", address,
			"network", network,
			"refresh_interval", interval,
			"period_days", periodDays,
		)
		writeJSON(w, apiResponse{Success: true, Data: walletToResponse(wallet)}, http.StatusCreated)
	})
}

// handleUnregisterWallet returns a handler that removes a wallet and
// its refresh schedule.
// DELETE /api/v1/wallets/{address}?network={network}
func handleUnregisterWallet(store WalletStore, scheduler temporal.Scheduler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		address, err := activity.ValidateAddress(r.PathValue("address"))
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		network := r.URL.Query().Get("network")
		if network == "" {
			network = "mainnet"
		}
		if err := validateNetwork(network); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		if _, err := store.GetWallet(r.Context(), address, network); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				writeError(w, "wallet not found", http.StatusNotFound)
				return
			}
			logger.Error("failed to check wallet", "address", address, "network", network, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		// The schedule may already be gone; the row is the source of
		// truth, so a failed schedule delete is logged and skipped.
		if err := scheduler.DeleteWalletSchedule(r.Context(), address, network); err != nil {
			logger.Warn("failed to delete refresh schedule", "address", address, "network", network, "error", err)
		}

		if err := store.DeleteWallet(r.Context(), address, network); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				writeError(w, "wallet not found", http.StatusNotFound)
				return
			}
			logger.Error("failed to delete wallet", "address", address, "network", network, "error", err)
			writeError(w, "failed to unregister wallet", http.StatusInternalServerError)
			return
		}

		logger.Info("wallet unregistered", "address", address, "network", network)
		w.WriteHeader(http.StatusNoContent)
	})
}

// handleGetWallet returns a handler that retrieves a registered wallet.
// GET /api/v1/wallets/{address}?network={network}
func handleGetWallet(store WalletStore, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		address, err := activity.ValidateAddress(r.PathValue("address"))
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		network := r.URL.Query().Get("network")
		if network == "" {
			network = "mainnet"
		}

		wallet, err := store.GetWallet(r.Context(), address, network)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				writeError(w, "wallet not found", http.StatusNotFound)
				return
			}
			logger.Error("failed to get wallet", "address", address, "network", network, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeResult(w, walletToResponse(wallet), false)
	})
}

// handleListWallets returns a handler that lists registered wallets.
// GET /api/v1/wallets?status={status}
func handleListWallets(store WalletStore, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := r.URL.Query().Get("status")

		wallets, err := store.ListWallets(r.Context(), status)
		if err != nil {
			logger.Error("failed to list wallets", "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		resp := make([]walletResponse, len(wallets))
		for i, wallet := range wallets {
			resp[i] = walletToResponse(wallet)
		}
		writeResult(w, map[string]any{"wallets": resp, "count": len(resp)}, false)
	})
}

// handleListSnapshots returns a handler that lists stored metric
// snapshots for a wallet, newest first.
// GET /api/v1/wallets/{address}/snapshots?network={network}&kind={kind}&limit={n}
func handleListSnapshots(store WalletStore, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		address, err := activity.ValidateAddress(r.PathValue("address"))
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		network := r.URL.Query().Get("network")
		if network == "" {
			network = "mainnet"
		}

		kind := r.URL.Query().Get("kind")
		if kind != "" && kind != "programs" && kind != "volume" {
			writeError(w, "kind must be 'programs' or 'volume'", http.StatusBadRequest)
			return
		}

		limit := defaultPageLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			limit, err = strconv.Atoi(raw)
			if err != nil || limit < 1 {
				writeError(w, "limit must be a positive integer", http.StatusBadRequest)
				return
			}
			if limit > maxPageLimit {
				limit = maxPageLimit
			}
		}

		snapshots, err := store.ListSnapshots(r.Context(), address, network, kind, int32(limit))
		if err != nil {
			logger.Error("failed to list snapshots", "address", address, "network", network, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeResult(w, map[string]any{"snapshots": snapshots, "count": len(snapshots)}, false)
	})
}

// writePipelineError maps pipeline failures onto HTTP status codes.
// Validation problems are the caller's fault; anything else is a 502
// because the upstream indexer could not serve the request.
func writePipelineError(w http.ResponseWriter, logger *slog.Logger, pipeline, address string, err error) {
	var verr *activity.ValidationError
	if errors.As(err, &verr) {
		writeError(w, verr.Error(), http.StatusBadRequest)
		return
	}
	logger.Error("pipeline failed", "pipeline", pipeline, "address", address, "error", err)
	writeError(w, "upstream data source unavailable", http.StatusBadGateway)
}

func validateNetwork(network string) error {
	if network != "mainnet" && network != "devnet" {
		return fmt.Errorf("invalid network: must be 'mainnet' or 'devnet'")
	}
	return nil
}

func writeResult(w http.ResponseWriter, data any, partial bool) {
	writeJSON(w, apiResponse{Success: true, Data: data, Partial: partial}, http.StatusOK)
}

func writeJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response in the standard envelope.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, apiResponse{Success: false, Error: message}, statusCode)
}
