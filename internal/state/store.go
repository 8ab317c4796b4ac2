package state

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/node-pulse/apcupsd-exporter/internal/apcaccess"
)

// Sample is a snapshot together with the time it was fetched.
// It is immutable once stored.
type Sample struct {
	Snapshot  apcaccess.Snapshot
	FetchedAt time.Time
}

// Health describes how recent polls went
type Health struct {
	LastSuccess         time.Time
	LastError           error
	LastErrorAt         time.Time
	ConsecutiveFailures int
	TotalFailures       uint64
}

// Store holds the latest complete sample. Readers get either the previous
// sample or the new one, never a mix, because samples are replaced whole.
type Store struct {
	sample atomic.Pointer[Sample]

	mu     sync.RWMutex
	health Health
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{}
}

// Load returns the current sample, or nil before the first success
func (s *Store) Load() *Sample {
	return s.sample.Load()
}

// Swap publishes snap as the current sample and returns the one it replaced
func (s *Store) Swap(snap apcaccess.Snapshot, at time.Time) *Sample {
	prev := s.sample.Swap(&Sample{Snapshot: snap, FetchedAt: at})

	s.mu.Lock()
	s.health.LastSuccess = at
	s.health.ConsecutiveFailures = 0
	s.mu.Unlock()

	return prev
}

// RecordFailure notes a failed poll. The current sample is left in place.
func (s *Store) RecordFailure(err error, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.health.LastError = err
	s.health.LastErrorAt = at
	s.health.ConsecutiveFailures++
	s.health.TotalFailures++
}

// Health returns a copy of the poll health counters
func (s *Store) Health() Health {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.health
}
