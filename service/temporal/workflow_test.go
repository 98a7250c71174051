package temporal

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	"github.com/BadGenius22/vouch-protocol-sub001/service/activity"
	"github.com/BadGenius22/vouch-protocol-sub001/service/db"
)

const testWallet = "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T"

func testPrograms(partial bool) *ComputeDeployedProgramsResult {
	return &ComputeDeployedProgramsResult{
		Result: &activity.DeployedProgramsResult{
			Wallet: testWallet,
			Programs: []activity.ProgramRecord{
				{Address: "Prog111111111111111111111111111111111111111", EstimatedTVL: 300},
			},
			Partial: partial,
		},
	}
}

func testVolume(partial bool) *ComputeTradingVolumeResult {
	return &ComputeTradingVolumeResult{
		Result: &activity.TradingVolumeResult{
			Wallet:      testWallet,
			TotalVolume: 1200,
			TradeCount:  4,
			PeriodDays:  30,
			Partial:     partial,
		},
	}
}

func testStored() *StoreSnapshotsResult {
	return &StoreSnapshotsResult{
		Snapshots: []*db.MetricSnapshot{
			{ID: 1, WalletAddress: testWallet, Kind: "programs", Payload: []byte(`{}`), ComputedAt: time.Now()},
			{ID: 2, WalletAddress: testWallet, Kind: "volume", PeriodDays: 30, Payload: []byte(`{}`), ComputedAt: time.Now()},
		},
	}
}

func TestRefreshWalletMetricsWorkflow(t *testing.T) {
	input := RefreshWalletMetricsInput{
		WalletAddress: testWallet,
		Network:       "mainnet",
		PeriodDays:    30,
	}

	t.Run("successful refresh", func(t *testing.T) {
		var suite testsuite.WorkflowTestSuite
		env := suite.NewTestWorkflowEnvironment()

		env.OnActivity(a.ComputeDeployedPrograms, mock.Anything, mock.Anything).Return(testPrograms(false), nil)
		env.OnActivity(a.ComputeTradingVolume, mock.Anything, mock.Anything).Return(testVolume(false), nil)
		env.OnActivity(a.StoreSnapshots, mock.Anything, mock.Anything).Return(testStored(), nil)
		env.OnActivity(a.PublishSnapshots, mock.Anything, mock.Anything).Return(&PublishSnapshotsResult{Published: 2}, nil)

		env.ExecuteWorkflow(RefreshWalletMetricsWorkflow, input)

		require.True(t, env.IsWorkflowCompleted())
		require.NoError(t, env.GetWorkflowError())

		var result RefreshWalletMetricsResult
		require.NoError(t, env.GetWorkflowResult(&result))
		assert.Equal(t, testWallet, result.WalletAddress)
		assert.Equal(t, 1, result.ProgramCount)
		assert.Equal(t, 4, result.TradeCount)
		assert.Equal(t, int64(1200), result.TotalVolume)
		assert.False(t, result.Partial)
		assert.Nil(t, result.Error)
		env.AssertExpectations(t)
	})

	t.Run("partial pipeline result marks the refresh partial", func(t *testing.T) {
		var suite testsuite.WorkflowTestSuite
		env := suite.NewTestWorkflowEnvironment()

		env.OnActivity(a.ComputeDeployedPrograms, mock.Anything, mock.Anything).Return(testPrograms(false), nil)
		env.OnActivity(a.ComputeTradingVolume, mock.Anything, mock.Anything).Return(testVolume(true), nil)
		env.OnActivity(a.StoreSnapshots, mock.Anything, mock.Anything).Return(testStored(), nil)
		env.OnActivity(a.PublishSnapshots, mock.Anything, mock.Anything).Return(&PublishSnapshotsResult{Published: 2}, nil)

		env.ExecuteWorkflow(RefreshWalletMetricsWorkflow, input)

		require.NoError(t, env.GetWorkflowError())
		var result RefreshWalletMetricsResult
		require.NoError(t, env.GetWorkflowResult(&result))
		assert.True(t, result.Partial)
	})

	t.Run("compute failure fails the workflow", func(t *testing.T) {
		var suite testsuite.WorkflowTestSuite
		env := suite.NewTestWorkflowEnvironment()

		env.OnActivity(a.ComputeDeployedPrograms, mock.Anything, mock.Anything).
			Return(nil, errors.New("invalid address"))

		env.ExecuteWorkflow(RefreshWalletMetricsWorkflow, input)

		require.True(t, env.IsWorkflowCompleted())
		assert.Error(t, env.GetWorkflowError())
	})

	t.Run("publish failure does not fail the refresh", func(t *testing.T) {
		var suite testsuite.WorkflowTestSuite
		env := suite.NewTestWorkflowEnvironment()

		env.OnActivity(a.ComputeDeployedPrograms, mock.Anything, mock.Anything).Return(testPrograms(false), nil)
		env.OnActivity(a.ComputeTradingVolume, mock.Anything, mock.Anything).Return(testVolume(false), nil)
		env.OnActivity(a.StoreSnapshots, mock.Anything, mock.Anything).Return(testStored(), nil)
		env.OnActivity(a.PublishSnapshots, mock.Anything, mock.Anything).
			Return(nil, errors.New("nats unavailable"))

		env.ExecuteWorkflow(RefreshWalletMetricsWorkflow, input)

		require.True(t, env.IsWorkflowCompleted())
		require.NoError(t, env.GetWorkflowError())

		var result RefreshWalletMetricsResult
		require.NoError(t, env.GetWorkflowResult(&result))
		assert.Equal(t, 1, result.ProgramCount)
	})
}
