package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BadGenius22/vouch-protocol-sub001/service/metrics"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store provides database operations for the service: the registered
// wallet roster and the metric snapshot audit trail.
type Store struct {
	pool    *pgxpool.Pool
	metrics *metrics.Metrics
}

// NewStore creates a new Store with the given database connection pool.
// If m is nil, no metrics are recorded.
func NewStore(pool *pgxpool.Pool, m *metrics.Metrics) *Store {
	return &Store{pool: pool, metrics: m}
}

// Wallet is a registered wallet whose metrics are refreshed on a
// schedule.
type Wallet struct {
	Address         string
	Network         string // "mainnet" or "devnet"
	RefreshInterval time.Duration
	Status          string // "active" or "paused"
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// MetricSnapshot is one computed pipeline result, persisted so the
// numbers fed downstream stay reproducible after the fact.
type MetricSnapshot struct {
	ID            int64
	WalletAddress string
	Network       string
	Kind          string // "programs" or "volume"
	PeriodDays    int    // 0 for kinds without a lookback window
	Payload       []byte // the result object, as JSON
	Partial       bool
	ComputedAt    time.Time
}

// CreateWalletParams contains the parameters for registering a wallet.
type CreateWalletParams struct {
	Address         string
	Network         string
	RefreshInterval time.Duration
}

// CreateWallet registers a wallet, or refreshes the interval and
// reactivates it if it already exists.
func (s *Store) CreateWallet(ctx context.Context, params CreateWalletParams) (*Wallet, error) {
	query := `
		INSERT INTO wallets (address, network, refresh_interval_seconds, status)
		VALUES ($1, $2, $3, 'active')
		ON CONFLICT (address, network) DO UPDATE
			SET refresh_interval_seconds = EXCLUDED.refresh_interval_seconds,
			    status = 'active',
			    updated_at = now()
		RETURNING address, network, refresh_interval_seconds, status, created_at, updated_at
	`

	start := time.Now()
	row := s.pool.QueryRow(ctx, query,
		params.Address, params.Network, int64(params.RefreshInterval.Seconds()))
	wallet, err := scanWallet(row)
	s.record("insert", "wallets", start, err)
	if err != nil {
		return nil, fmt.Errorf("create wallet: %w", err)
	}
	return wallet, nil
}

// GetWallet retrieves a registered wallet.
func (s *Store) GetWallet(ctx context.Context, address, network string) (*Wallet, error) {
	query := `
		SELECT address, network, refresh_interval_seconds, status, created_at, updated_at
		FROM wallets
		WHERE address = $1 AND network = $2
	`

	start := time.Now()
	wallet, err := scanWallet(s.pool.QueryRow(ctx, query, address, network))
	s.record("select", "wallets", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	return wallet, nil
}

// ListWallets returns all registered wallets, optionally filtered to
// one status.
func (s *Store) ListWallets(ctx context.Context, status string) ([]*Wallet, error) {
	query := `
		SELECT address, network, refresh_interval_seconds, status, created_at, updated_at
		FROM wallets
		WHERE $1 = '' OR status = $1
		ORDER BY created_at
	`

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, status)
	s.record("select", "wallets", start, err)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	var wallets []*Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("list wallets: %w", err)
		}
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

// UpdateWalletStatus sets a wallet's status.
func (s *Store) UpdateWalletStatus(ctx context.Context, address, network, status string) error {
	query := `
		UPDATE wallets SET status = $3, updated_at = now()
		WHERE address = $1 AND network = $2
	`

	start := time.Now()
	tag, err := s.pool.Exec(ctx, query, address, network, status)
	s.record("update", "wallets", start, err)
	if err != nil {
		return fmt.Errorf("update wallet status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteWallet removes a wallet and its snapshots.
func (s *Store) DeleteWallet(ctx context.Context, address, network string) error {
	start := time.Now()
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM wallets WHERE address = $1 AND network = $2`, address, network)
	s.record("delete", "wallets", start, err)
	if err != nil {
		return fmt.Errorf("delete wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertSnapshotParams contains the parameters for persisting one
// computed result.
type InsertSnapshotParams struct {
	WalletAddress string
	Network       string
	Kind          string
	PeriodDays    int
	Payload       []byte
	Partial       bool
	ComputedAt    time.Time
}

// InsertSnapshot persists a computed metric snapshot.
func (s *Store) InsertSnapshot(ctx context.Context, params InsertSnapshotParams) (*MetricSnapshot, error) {
	query := `
		INSERT INTO metric_snapshots
			(wallet_address, network, kind, period_days, payload, partial, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, wallet_address, network, kind, period_days, payload, partial, computed_at
	`

	start := time.Now()
	row := s.pool.QueryRow(ctx, query,
		params.WalletAddress, params.Network, params.Kind,
		params.PeriodDays, params.Payload, params.Partial, params.ComputedAt)
	snap, err := scanSnapshot(row)
	s.record("insert", "metric_snapshots", start, err)
	if err != nil {
		return nil, fmt.Errorf("insert snapshot: %w", err)
	}
	return snap, nil
}

// ListSnapshots returns the most recent snapshots for a wallet, newest
// first, optionally filtered to one kind.
func (s *Store) ListSnapshots(ctx context.Context, address, network, kind string, limit int32) ([]*MetricSnapshot, error) {
	query := `
		SELECT id, wallet_address, network, kind, period_days, payload, partial, computed_at
		FROM metric_snapshots
		WHERE wallet_address = $1 AND network = $2 AND ($3 = '' OR kind = $3)
		ORDER BY computed_at DESC
		LIMIT $4
	`

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, address, network, kind, limit)
	s.record("select", "metric_snapshots", start, err)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []*MetricSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("list snapshots: %w", err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// LatestSnapshot returns the newest snapshot of one kind for a wallet.
func (s *Store) LatestSnapshot(ctx context.Context, address, network, kind string) (*MetricSnapshot, error) {
	query := `
		SELECT id, wallet_address, network, kind, period_days, payload, partial, computed_at
		FROM metric_snapshots
		WHERE wallet_address = $1 AND network = $2 AND kind = $3
		ORDER BY computed_at DESC
		LIMIT 1
	`

	start := time.Now()
	snap, err := scanSnapshot(s.pool.QueryRow(ctx, query, address, network, kind))
	s.record("select", "metric_snapshots", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest snapshot: %w", err)
	}
	return snap, nil
}

func scanWallet(row pgx.Row) (*Wallet, error) {
	var (
		w       Wallet
		seconds int64
	)
	if err := row.Scan(&w.Address, &w.Network, &seconds, &w.Status, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	w.RefreshInterval = time.Duration(seconds) * time.Second
	return &w, nil
}

func scanSnapshot(row pgx.Row) (*MetricSnapshot, error) {
	var snap MetricSnapshot
	err := row.Scan(&snap.ID, &snap.WalletAddress, &snap.Network, &snap.Kind,
		&snap.PeriodDays, &snap.Payload, &snap.Partial, &snap.ComputedAt)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *Store) record(operation, table string, start time.Time, err error) {
	if s.metrics != nil && !errors.Is(err, pgx.ErrNoRows) {
		s.metrics.RecordDBQuery(operation, table, time.Since(start).Seconds(), err)
	}
}
