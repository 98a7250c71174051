package nats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BadGenius22/vouch-protocol-sub001/service/db"
)

func TestFromSnapshot(t *testing.T) {
	computedAt := time.Now().UTC().Truncate(time.Second)
	snap := &db.MetricSnapshot{
		ID:            7,
		WalletAddress: "So11111111111111111111111111111111111111112",
		Network:       "mainnet",
		Kind:          "volume",
		PeriodDays:    30,
		Payload:       []byte(`{"total_volume":900}`),
		Partial:       true,
		ComputedAt:    computedAt,
	}

	event := FromSnapshot(snap)
	assert.Equal(t, snap.WalletAddress, event.WalletAddress)
	assert.Equal(t, "volume", event.Kind)
	assert.Equal(t, 30, event.PeriodDays)
	assert.True(t, event.Partial)
	assert.Equal(t, computedAt, event.ComputedAt)
	assert.JSONEq(t, `{"total_volume":900}`, string(event.Payload))
	assert.False(t, event.PublishedAt.IsZero())
}

func TestMockPublisherRecordsEvents(t *testing.T) {
	pub := NewMockPublisher()

	err := pub.PublishSnapshot(context.Background(), &SnapshotEvent{
		WalletAddress: "wallet-a",
		Kind:          "programs",
	})
	require.NoError(t, err)
	err = pub.PublishSnapshot(context.Background(), &SnapshotEvent{
		WalletAddress: "wallet-b",
		Kind:          "volume",
	})
	require.NoError(t, err)

	assert.Len(t, pub.GetPublishedEvents(), 2)
	assert.Len(t, pub.GetPublishedEventsForWallet("wallet-a"), 1)

	pub.SetPublishError(errors.New("down"))
	err = pub.PublishSnapshot(context.Background(), &SnapshotEvent{WalletAddress: "wallet-c"})
	require.Error(t, err)
	assert.Len(t, pub.GetPublishedEvents(), 2, "failed publishes are not recorded")

	pub.Reset()
	assert.Empty(t, pub.GetPublishedEvents())

	require.NoError(t, pub.Close())
	assert.True(t, pub.IsClosed())
}
