package ratelimit

import (
	"sync"
	"time"
)

// Decision is the result of an admission check
type Decision struct {
	Allowed   bool
	Remaining int
}

// Store tracks per-client daily request counts. Admit and Increment are
// deliberately separate calls: the admission check never mutates the
// count, and concurrent requests from one client may both be admitted
// against the last free slot. That race is accepted for this low-stakes
// quota; only the map mutations themselves are atomic per key.
type Store interface {
	// Admit reports whether the client has quota left today
	Admit(clientKey string) Decision
	// Increment consumes one unit of today's quota
	Increment(clientKey string)
	// Remaining returns the client's remaining quota without mutating it
	Remaining(clientKey string) int
}

type record struct {
	count     int
	lastReset string // calendar date, YYYY-MM-DD
}

// MemoryStore is the process-lifetime in-memory Store implementation.
// Counters are not persisted: a restart silently grants a fresh quota.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*record
	quota   int
	now     func() time.Time
}

// NewMemoryStore creates a store with the given daily quota
func NewMemoryStore(quota int) *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*record),
		quota:   quota,
		now:     time.Now,
	}
}

// SetClock overrides the wall clock, for tests
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.now = now
}

// Admit reports whether clientKey may make another request today.
// First sight of a key initializes a zero count; a stored date other
// than today resets the count before evaluating.
func (s *MemoryStore) Admit(clientKey string) Decision {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.getOrReset(clientKey)
	remaining := s.quota - rec.count
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   remaining > 0,
		Remaining: remaining,
	}
}

// Increment consumes one unit of today's quota for clientKey
func (s *MemoryStore) Increment(clientKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.getOrReset(clientKey)
	rec.count++
}

// Remaining returns the remaining quota for clientKey
func (s *MemoryStore) Remaining(clientKey string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.getOrReset(clientKey)
	remaining := s.quota - rec.count
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// getOrReset returns the record for clientKey, creating it on first
// sight and resetting the count when the stored date is not today.
// Callers must hold s.mu.
func (s *MemoryStore) getOrReset(clientKey string) *record {
	today := s.now().Format("2006-01-02")

	rec, ok := s.records[clientKey]
	if !ok {
		rec = &record{lastReset: today}
		s.records[clientKey] = rec
		return rec
	}

	if rec.lastReset != today {
		rec.count = 0
		rec.lastReset = today
	}

	return rec
}
