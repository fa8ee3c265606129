// Package credstore holds OneDrive credentials for authenticated users.
// Records live in process memory for the process lifetime — there is no
// persistence across restarts, so users re-authenticate after a deploy.
package credstore

import (
	"sync"
	"time"
)

// Record is the credential set cached for one user. Replacement is always
// whole-record: a Record in the store is never partially updated.
type Record struct {
	AccessToken  string
	RefreshToken string // empty when the provider issued none
	ExpiresAt    time.Time
}

// Store maps user IDs to credential records. Reads and writes are safe for
// concurrent use; callers that need to make a read-decide-write decision
// (the refresh policy) serialize per user via Lock so that two simultaneous
// refreshes for the same user cannot clobber each other, while requests for
// distinct users proceed in parallel.
type Store struct {
	mu      sync.RWMutex
	records map[string]Record

	lockMu    sync.Mutex
	userLocks map[string]*sync.Mutex
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		records:   make(map[string]Record),
		userLocks: make(map[string]*sync.Mutex),
	}
}

// Get returns the record for userID and whether one exists.
func (s *Store) Get(userID string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[userID]

	return rec, ok
}

// Put inserts or atomically replaces the record for userID.
func (s *Store) Put(userID string, rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[userID] = rec
}

// Delete removes the record for userID. Deleting an absent record is a no-op.
func (s *Store) Delete(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, userID)
}

// Len returns the number of cached records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}

// Lock acquires the per-user mutex for userID and returns its unlock
// function. User mutexes are created on first use and retained — the set of
// users in one process stays small enough that reaping them is not worth the
// bookkeeping.
func (s *Store) Lock(userID string) (unlock func()) {
	s.lockMu.Lock()

	m, ok := s.userLocks[userID]
	if !ok {
		m = &sync.Mutex{}
		s.userLocks[userID] = m
	}

	s.lockMu.Unlock()

	m.Lock()

	return m.Unlock
}
