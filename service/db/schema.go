package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied at startup. Statements are idempotent so repeated
// boots against the same database are safe.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS wallets (
		address TEXT NOT NULL,
		network TEXT NOT NULL,
		refresh_interval_seconds BIGINT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (address, network)
	)`,
	`CREATE TABLE IF NOT EXISTS metric_snapshots (
		id BIGSERIAL PRIMARY KEY,
		wallet_address TEXT NOT NULL,
		network TEXT NOT NULL,
		kind TEXT NOT NULL,
		period_days INT NOT NULL DEFAULT 0,
		payload JSONB NOT NULL,
		partial BOOLEAN NOT NULL DEFAULT false,
		computed_at TIMESTAMPTZ NOT NULL,
		FOREIGN KEY (wallet_address, network) REFERENCES wallets (address, network) ON DELETE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_metric_snapshots_wallet
		ON metric_snapshots (wallet_address, network, kind, computed_at DESC)`,
}

// EnsureSchema creates the tables and indexes if they do not exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
