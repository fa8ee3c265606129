package msauth

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

// stateTokenBytes is the number of random bytes behind each OAuth2 state
// value. crypto/rand so a state cannot be guessed by a CSRF attacker.
const stateTokenBytes = 16

// stateTTL bounds how long an issued state stays redeemable. A consent page
// left open longer than this forces the user to restart the flow.
const stateTTL = 10 * time.Minute

// stateStore tracks pending authorization flows. Each state value is issued
// once, redeemable once, and expires after stateTTL.
type stateStore struct {
	mu      sync.Mutex
	pending map[string]time.Time
	now     func() time.Time
}

func newStateStore() *stateStore {
	return &stateStore{
		pending: map[string]time.Time{},
		now:     time.Now,
	}
}

// Issue generates a fresh random state and records it as pending.
func (s *stateStore) Issue() (string, error) {
	b := make([]byte, stateTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	state := hex.EncodeToString(b)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()
	s.pending[state] = s.now().Add(stateTTL)

	return state, nil
}

// Consume redeems a state value. Returns true exactly once per issued,
// unexpired state; a second redemption or an unknown value returns false.
func (s *stateStore) Consume(state string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	deadline, ok := s.pending[state]
	if !ok {
		return false
	}

	delete(s.pending, state)

	return s.now().Before(deadline)
}

// sweepLocked drops expired entries. Called with s.mu held.
func (s *stateStore) sweepLocked() {
	now := s.now()
	for state, deadline := range s.pending {
		if !now.Before(deadline) {
			delete(s.pending, state)
		}
	}
}
