// Package cache provides a small keyed response cache with TTL expiry.
//
// The cache is advisory: entries avoid redundant upstream calls within a
// short window, but nothing depends on a value being present. Expiry is
// evaluated on read; an expired entry is removed and treated as absent.
package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMaxEntries bounds the underlying LRU. The working set is the
// number of distinct wallet/parameter combinations seen within one TTL
// window, so a few thousand entries is generous.
const DefaultMaxEntries = 4096

type entry[V any] struct {
	value    V
	storedAt time.Time
}

// Store is a TTL cache keyed by request fingerprint strings.
// Safe for concurrent use.
type Store[V any] struct {
	ttl time.Duration
	mu  sync.Mutex
	lru *lru.Cache[string, entry[V]]

	// now is swappable for tests.
	now func() time.Time
}

// New creates a Store with the given TTL and a bounded entry count.
func New[V any](ttl time.Duration, maxEntries int) *Store[V] {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	c, _ := lru.New[string, entry[V]](maxEntries)
	return &Store[V]{
		ttl: ttl,
		lru: c,
		now: time.Now,
	}
}

// Get returns the cached value for key if it exists and has not expired.
// An expired entry is removed and reported as absent.
func (s *Store[V]) Get(key string) (V, bool) {
	var zero V
	if s == nil || key == "" {
		return zero, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lru.Get(key)
	if !ok {
		return zero, false
	}
	if s.now().Sub(e.storedAt) >= s.ttl {
		s.lru.Remove(key)
		return zero, false
	}
	return e.value, true
}

// Set stores value under key, superseding any previous entry.
func (s *Store[V]) Set(key string, value V) {
	if s == nil || key == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lru.Add(key, entry[V]{value: value, storedAt: s.now()})
}

// Len returns the number of entries currently held, including any that
// have expired but not yet been evicted on read.
func (s *Store[V]) Len() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Len()
}
