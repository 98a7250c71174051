package nats

import (
	"encoding/json"
	"time"

	"github.com/BadGenius22/vouch-protocol-sub001/service/db"
)

// SnapshotEvent is a refreshed metric snapshot published to NATS.
// Events go to the subject "metrics.{wallet_address}" in JetStream.
type SnapshotEvent struct {
	WalletAddress string `json:"wallet_address"`
	Network       string `json:"network"`

	// Kind is "programs" or "volume"; PeriodDays is zero for kinds
	// without a lookback window.
	Kind       string `json:"kind"`
	PeriodDays int    `json:"period_days,omitempty"`

	// Payload is the computed result object.
	Payload json.RawMessage `json:"payload"`
	Partial bool            `json:"partial,omitempty"`

	ComputedAt  time.Time `json:"computed_at"`
	PublishedAt time.Time `json:"published_at"`
}

// FromSnapshot converts a persisted snapshot to an event for publishing.
func FromSnapshot(snap *db.MetricSnapshot) *SnapshotEvent {
	return &SnapshotEvent{
		WalletAddress: snap.WalletAddress,
		Network:       snap.Network,
		Kind:          snap.Kind,
		PeriodDays:    snap.PeriodDays,
		Payload:       json.RawMessage(snap.Payload),
		Partial:       snap.Partial,
		ComputedAt:    snap.ComputedAt,
		PublishedAt:   time.Now().UTC(),
	}
}
