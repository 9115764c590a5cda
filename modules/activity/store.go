package activity

import (
	"sync"
	"time"
)

// DefaultLimit is the number of entries kept per owner.
const DefaultLimit = 100

// Entry is one recorded change to a task.
type Entry struct {
	TaskID     string    `json:"task_id"`
	Kind       string    `json:"kind"`
	Summary    string    `json:"summary"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Entry kinds.
const (
	KindCreated = "created"
	KindUpdated = "updated"
	KindTrashed = "trashed"
)

// Store keeps the most recent entries of every owner in memory.
type Store struct {
	mu      sync.RWMutex
	limit   int
	entries map[string][]Entry
}

// NewStore creates a Store keeping at most limit entries per owner.
func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Store{
		limit:   limit,
		entries: make(map[string][]Entry),
	}
}

// Record appends an entry to the owner's log, dropping the oldest entry
// once the log is full.
func (s *Store) Record(ownerID string, e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := append(s.entries[ownerID], e)
	if len(log) > s.limit {
		log = append([]Entry(nil), log[len(log)-s.limit:]...)
	}
	s.entries[ownerID] = log
}

// List returns up to limit entries of the owner, most recently recorded
// first. A non-positive limit returns every kept entry.
func (s *Store) List(ownerID string, limit int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.entries[ownerID]
	n := len(log)
	if limit > 0 && limit < n {
		n = limit
	}

	result := make([]Entry, 0, n)
	for i := len(log) - 1; i >= 0 && len(result) < n; i-- {
		result = append(result, log[i])
	}
	return result
}

// Owners returns the number of owners with at least one entry.
func (s *Store) Owners() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
