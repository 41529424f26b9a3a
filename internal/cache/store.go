// Package cache holds the in-memory working set the dashboard is computed
// from: normalized logs, the candidate master and locally added logs the
// upstream has not returned yet.
package cache

import (
	"sync"
	"time"

	"github.com/dennisdiepolder/monti/outreach/internal/identity"
	"github.com/dennisdiepolder/monti/outreach/internal/types"
)

// Snapshot is an immutable view of the working set. Slices must not be
// modified by holders.
type Snapshot struct {
	Logs       []types.CallLogEntry
	Candidates []types.Candidate
	Resolver   *identity.Resolver
	Targets    map[string]float64
	LoadedAt   time.Time
}

// Store keeps the current snapshot and the pending local logs
type Store struct {
	snap    Snapshot
	pending []types.CallLogEntry
	mu      sync.RWMutex
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		snap: Snapshot{Resolver: identity.NewResolver(identity.DefaultRegion, nil)},
	}
}

// Snapshot returns the current working set
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Replace installs a freshly loaded working set and the pending logs the
// server still has not returned
func (s *Store) Replace(snap Snapshot, stillPending []types.CallLogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
	s.pending = append([]types.CallLogEntry(nil), stillPending...)
}

// AddPending records a locally created log
func (s *Store) AddPending(entry types.CallLogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, entry)
}

// Pending returns a copy of the pending logs
func (s *Store) Pending() []types.CallLogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.CallLogEntry(nil), s.pending...)
}

// Size returns the number of logs in the current snapshot
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snap.Logs)
}
