package temporal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/BadGenius22/vouch-protocol-sub001/service/activity"
	"github.com/BadGenius22/vouch-protocol-sub001/service/db"
	"github.com/BadGenius22/vouch-protocol-sub001/service/metrics"
	natspkg "github.com/BadGenius22/vouch-protocol-sub001/service/nats"
)

// RefreshWalletMetricsInput contains the parameters for one scheduled
// metric refresh.
type RefreshWalletMetricsInput struct {
	WalletAddress string `json:"wallet_address"`
	Network       string `json:"network"` // "mainnet" or "devnet"
	PeriodDays    int    `json:"period_days"`
}

// RefreshWalletMetricsResult summarizes a completed refresh.
type RefreshWalletMetricsResult struct {
	WalletAddress string    `json:"wallet_address"`
	ProgramCount  int       `json:"program_count"`
	TradeCount    int       `json:"trade_count"`
	TotalVolume   int64     `json:"total_volume"`
	Partial       bool      `json:"partial"`
	RefreshTime   time.Time `json:"refresh_time"`
	Error         *string   `json:"error,omitempty"`
}

// ComputeDeployedProgramsInput contains parameters for the
// ComputeDeployedPrograms activity.
type ComputeDeployedProgramsInput struct {
	WalletAddress string `json:"wallet_address"`
}

// ComputeDeployedProgramsResult carries the pipeline output.
type ComputeDeployedProgramsResult struct {
	Result *activity.DeployedProgramsResult `json:"result"`
}

// ComputeTradingVolumeInput contains parameters for the
// ComputeTradingVolume activity.
type ComputeTradingVolumeInput struct {
	WalletAddress string `json:"wallet_address"`
	PeriodDays    int    `json:"period_days"`
}

// ComputeTradingVolumeResult carries the pipeline output.
type ComputeTradingVolumeResult struct {
	Result *activity.TradingVolumeResult `json:"result"`
}

// StoreSnapshotsInput contains parameters for the StoreSnapshots activity.
type StoreSnapshotsInput struct {
	WalletAddress string                           `json:"wallet_address"`
	Network       string                           `json:"network"`
	PeriodDays    int                              `json:"period_days"`
	Programs      *activity.DeployedProgramsResult `json:"programs"`
	Volume        *activity.TradingVolumeResult    `json:"volume"`
	ComputedAt    time.Time                        `json:"computed_at"`
}

// StoreSnapshotsResult carries the persisted snapshots so the publish
// step can emit them without re-reading the database.
type StoreSnapshotsResult struct {
	Snapshots []*db.MetricSnapshot `json:"snapshots"`
}

// PublishSnapshotsInput contains parameters for the PublishSnapshots activity.
type PublishSnapshotsInput struct {
	Snapshots []*db.MetricSnapshot `json:"snapshots"`
}

// PublishSnapshotsResult reports how many events went out.
type PublishSnapshotsResult struct {
	Published int `json:"published"`
}

// AnalysisInterface defines the pipeline operations needed by activities.
// This allows for easy mocking in tests.
type AnalysisInterface interface {
	DeployedPrograms(ctx context.Context, wallet string) (*activity.DeployedProgramsResult, error)
	TradingVolume(ctx context.Context, wallet string, days int) (*activity.TradingVolumeResult, error)
}

// StoreInterface defines the database operations needed by activities.
type StoreInterface interface {
	InsertSnapshot(ctx context.Context, params db.InsertSnapshotParams) (*db.MetricSnapshot, error)
}

// PublisherInterface defines the NATS publishing operations needed by
// activities.
type PublisherInterface interface {
	PublishSnapshot(ctx context.Context, event *natspkg.SnapshotEvent) error
}

// Activities holds the dependencies needed by Temporal activities.
// All dependencies are explicit.
type Activities struct {
	analysis  AnalysisInterface
	store     StoreInterface
	publisher PublisherInterface
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewActivities creates a new Activities instance with explicit
// dependencies. If m is nil, no metrics will be recorded.
func NewActivities(
	analysis AnalysisInterface,
	store StoreInterface,
	publisher PublisherInterface,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Activities {
	if logger == nil {
		logger = slog.Default()
	}
	return &Activities{
		analysis:  analysis,
		store:     store,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

// ComputeDeployedPrograms runs the deployed-programs pipeline for one
// wallet.
func (a *Activities) ComputeDeployedPrograms(ctx context.Context, input ComputeDeployedProgramsInput) (*ComputeDeployedProgramsResult, error) {
	start := time.Now()
	result, err := a.analysis.DeployedPrograms(ctx, input.WalletAddress)
	a.record("ComputeDeployedPrograms", input.WalletAddress, start)
	if err != nil {
		return nil, fmt.Errorf("deployed-programs pipeline: %w", err)
	}

	a.logger.InfoContext(ctx, "computed deployed programs",
		"wallet", input.WalletAddress,
		"programs", len(result.Programs),
		"partial", result.Partial,
	)
	return &ComputeDeployedProgramsResult{Result: result}, nil
}

// ComputeTradingVolume runs the trading-volume pipeline for one wallet.
func (a *Activities) ComputeTradingVolume(ctx context.Context, input ComputeTradingVolumeInput) (*ComputeTradingVolumeResult, error) {
	start := time.Now()
	result, err := a.analysis.TradingVolume(ctx, input.WalletAddress, input.PeriodDays)
	a.record("ComputeTradingVolume", input.WalletAddress, start)
	if err != nil {
		return nil, fmt.Errorf("trading-volume pipeline: %w", err)
	}

	a.logger.InfoContext(ctx, "computed trading volume",
		"wallet", input.WalletAddress,
		"days", input.PeriodDays,
		"trades", result.TradeCount,
		"total_volume", result.TotalVolume,
		"partial", result.Partial,
	)
	return &ComputeTradingVolumeResult{Result: result}, nil
}

// StoreSnapshots persists both pipeline results as metric snapshots.
func (a *Activities) StoreSnapshots(ctx context.Context, input StoreSnapshotsInput) (*StoreSnapshotsResult, error) {
	start := time.Now()
	defer a.record("StoreSnapshots", input.WalletAddress, start)

	var snapshots []*db.MetricSnapshot

	if input.Programs != nil {
		payload, err := json.Marshal(input.Programs)
		if err != nil {
			return nil, fmt.Errorf("marshal programs snapshot: %w", err)
		}
		snap, err := a.store.InsertSnapshot(ctx, db.InsertSnapshotParams{
			WalletAddress: input.WalletAddress,
			Network:       input.Network,
			Kind:          "programs",
			Payload:       payload,
			Partial:       input.Programs.Partial,
			ComputedAt:    input.ComputedAt,
		})
		if err != nil {
			return nil, fmt.Errorf("store programs snapshot: %w", err)
		}
		snapshots = append(snapshots, snap)
	}

	if input.Volume != nil {
		payload, err := json.Marshal(input.Volume)
		if err != nil {
			return nil, fmt.Errorf("marshal volume snapshot: %w", err)
		}
		snap, err := a.store.InsertSnapshot(ctx, db.InsertSnapshotParams{
			WalletAddress: input.WalletAddress,
			Network:       input.Network,
			Kind:          "volume",
			PeriodDays:    input.PeriodDays,
			Payload:       payload,
			Partial:       input.Volume.Partial,
			ComputedAt:    input.ComputedAt,
		})
		if err != nil {
			return nil, fmt.Errorf("store volume snapshot: %w", err)
		}
		snapshots = append(snapshots, snap)
	}

	a.logger.InfoContext(ctx, "stored metric snapshots",
		"wallet", input.WalletAddress,
		"count", len(snapshots),
	)
	return &StoreSnapshotsResult{Snapshots: snapshots}, nil
}

// PublishSnapshots emits each snapshot to NATS. A failed publish is
// logged and skipped so one bad event does not block the rest.
func (a *Activities) PublishSnapshots(ctx context.Context, input PublishSnapshotsInput) (*PublishSnapshotsResult, error) {
	start := time.Now()
	published := 0
	for _, snap := range input.Snapshots {
		event := natspkg.FromSnapshot(snap)
		if err := a.publisher.PublishSnapshot(ctx, event); err != nil {
			a.logger.ErrorContext(ctx, "failed to publish snapshot event",
				"wallet", snap.WalletAddress,
				"kind", snap.Kind,
				"error", err,
			)
			continue
		}
		published++
	}
	if len(input.Snapshots) > 0 {
		a.record("PublishSnapshots", input.Snapshots[0].WalletAddress, start)
	}

	return &PublishSnapshotsResult{Published: published}, nil
}

func (a *Activities) record(name, wallet string, start time.Time) {
	if a.metrics != nil {
		a.metrics.RecordActivityDuration(name, wallet, time.Since(start).Seconds())
	}
}
