package temporal

import (
	"fmt"
	"time"

	temporalsdk "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

var a *Activities // for type-safe activity invocation

// RefreshWalletMetricsWorkflow recomputes a registered wallet's metrics
// on a schedule. It is triggered by a per-wallet Temporal schedule.
//
// The workflow performs these steps:
// 1. Run the deployed-programs pipeline (ComputeDeployedPrograms activity)
// 2. Run the trading-volume pipeline (ComputeTradingVolume activity)
// 3. Persist both results as snapshots (StoreSnapshots activity)
// 4. Publish the snapshots to NATS (PublishSnapshots activity)
func RefreshWalletMetricsWorkflow(ctx workflow.Context, input RefreshWalletMetricsInput) (*RefreshWalletMetricsResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("RefreshWalletMetricsWorkflow started",
		"address", input.WalletAddress,
		"period_days", input.PeriodDays,
	)

	result := &RefreshWalletMetricsResult{
		WalletAddress: input.WalletAddress,
		RefreshTime:   workflow.Now(ctx),
	}

	activityOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 300 * time.Second,
		RetryPolicy: &temporalsdk.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions)

	// Step 1: deployed programs.
	var programsResult *ComputeDeployedProgramsResult
	err := workflow.ExecuteActivity(ctx, a.ComputeDeployedPrograms, ComputeDeployedProgramsInput{
		WalletAddress: input.WalletAddress,
	}).Get(ctx, &programsResult)
	if err != nil {
		errMsg := fmt.Sprintf("failed to compute deployed programs: %v", err)
		result.Error = &errMsg
		return result, fmt.Errorf("failed to compute deployed programs: %w", err)
	}
	logger.Info("computed deployed programs",
		"address", input.WalletAddress,
		"programs", len(programsResult.Result.Programs),
	)

	// Step 2: trading volume.
	var volumeResult *ComputeTradingVolumeResult
	err = workflow.ExecuteActivity(ctx, a.ComputeTradingVolume, ComputeTradingVolumeInput{
		WalletAddress: input.WalletAddress,
		PeriodDays:    input.PeriodDays,
	}).Get(ctx, &volumeResult)
	if err != nil {
		errMsg := fmt.Sprintf("failed to compute trading volume: %v", err)
		result.Error = &errMsg
		return result, fmt.Errorf("failed to compute trading volume: %w", err)
	}
	logger.Info("computed trading volume",
		"address", input.WalletAddress,
		"trades", volumeResult.Result.TradeCount,
	)

	result.ProgramCount = len(programsResult.Result.Programs)
	result.TradeCount = volumeResult.Result.TradeCount
	result.TotalVolume = volumeResult.Result.TotalVolume
	result.Partial = programsResult.Result.Partial || volumeResult.Result.Partial

	// Step 3: persist snapshots.
	var storeResult *StoreSnapshotsResult
	err = workflow.ExecuteActivity(ctx, a.StoreSnapshots, StoreSnapshotsInput{
		WalletAddress: input.WalletAddress,
		Network:       input.Network,
		PeriodDays:    input.PeriodDays,
		Programs:      programsResult.Result,
		Volume:        volumeResult.Result,
		ComputedAt:    workflow.Now(ctx),
	}).Get(ctx, &storeResult)
	if err != nil {
		errMsg := fmt.Sprintf("failed to store snapshots: %v", err)
		result.Error = &errMsg
		return result, fmt.Errorf("failed to store snapshots: %w", err)
	}

	// Step 4: publish. A publish failure is logged by the activity and
	// does not fail the refresh; the snapshots are already durable.
	var publishResult *PublishSnapshotsResult
	err = workflow.ExecuteActivity(ctx, a.PublishSnapshots, PublishSnapshotsInput{
		Snapshots: storeResult.Snapshots,
	}).Get(ctx, &publishResult)
	if err != nil {
		logger.Warn("failed to publish snapshots, continuing",
			"address", input.WalletAddress,
			"error", err,
		)
	}

	logger.Info("RefreshWalletMetricsWorkflow completed successfully",
		"address", input.WalletAddress,
		"programs", result.ProgramCount,
		"trades", result.TradeCount,
		"partial", result.Partial,
	)
	return result, nil
}
