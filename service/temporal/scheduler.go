package temporal

import (
	"context"
	"time"
)

// Scheduler manages Temporal schedules for wallet metric refresh.
// Each registered wallet gets its own schedule that triggers the
// RefreshWalletMetricsWorkflow.
type Scheduler interface {
	// CreateWalletSchedule creates a new refresh schedule for a wallet.
	CreateWalletSchedule(ctx context.Context, address, network string, periodDays int, interval time.Duration) error

	// UpsertWalletSchedule creates the schedule or updates its interval
	// if it already exists.
	UpsertWalletSchedule(ctx context.Context, address, network string, periodDays int, interval time.Duration) error

	// DeleteWalletSchedule deletes the schedule for a wallet, stopping
	// further refreshes.
	DeleteWalletSchedule(ctx context.Context, address, network string) error
}

// scheduleID generates a unique schedule ID for a wallet.
func scheduleID(address, network string) string {
	return "refresh-metrics-" + network + "-" + address
}
