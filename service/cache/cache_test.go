package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_GetSet(t *testing.T) {
	s := New[string](time.Minute, 16)

	_, ok := s.Get("programs:W1")
	assert.False(t, ok)

	s.Set("programs:W1", "value-1")

	got, ok := s.Get("programs:W1")
	require.True(t, ok)
	assert.Equal(t, "value-1", got)
}

func TestStore_DistinctKeysDoNotCollide(t *testing.T) {
	s := New[int](time.Minute, 16)

	s.Set("volume:W1:30", 100)
	s.Set("volume:W1:7", 7)

	got, ok := s.Get("volume:W1:30")
	require.True(t, ok)
	assert.Equal(t, 100, got)

	got, ok = s.Get("volume:W1:7")
	require.True(t, ok)
	assert.Equal(t, 7, got)
}

func TestStore_ExpiryRemovesEntry(t *testing.T) {
	s := New[string](time.Minute, 16)

	current := time.Now()
	s.now = func() time.Time { return current }

	s.Set("programs:W1", "value-1")

	// Still fresh just before the TTL elapses.
	current = current.Add(59 * time.Second)
	_, ok := s.Get("programs:W1")
	assert.True(t, ok)

	// Expired entries are removed on read.
	current = current.Add(2 * time.Second)
	_, ok = s.Get("programs:W1")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestStore_SetSupersedes(t *testing.T) {
	s := New[string](time.Minute, 16)

	s.Set("k", "old")
	s.Set("k", "new")

	got, ok := s.Get("k")
	require.True(t, ok)
	assert.Equal(t, "new", got)
	assert.Equal(t, 1, s.Len())
}

func TestStore_EmptyKeyIgnored(t *testing.T) {
	s := New[string](time.Minute, 16)

	s.Set("", "value")
	_, ok := s.Get("")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}
