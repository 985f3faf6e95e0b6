package store

import (
	"context"
	"sync"
	"time"

	"github.com/HumansWindow/lastproject-sub007/core"
)

// MemoryRecoveryStore is an in-memory RecoveryStore.
type MemoryRecoveryStore struct {
	mu       sync.Mutex
	failures map[string]time.Time          // address -> failure marker expiry
	tokens   map[string]core.RecoveryToken // keyed by token hash
}

// NewMemoryRecoveryStore creates an empty in-memory recovery store.
func NewMemoryRecoveryStore() *MemoryRecoveryStore {
	return &MemoryRecoveryStore{
		failures: make(map[string]time.Time),
		tokens:   make(map[string]core.RecoveryToken),
	}
}

// RecordFailure marks a failed signature attempt for an address.
func (s *MemoryRecoveryStore) RecordFailure(ctx context.Context, address string, now time.Time, window time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures[address] = now.Add(window)
	return nil
}

// HasRecentFailure reports whether the address failed a signature check
// within the eligibility window.
func (s *MemoryRecoveryStore) HasRecentFailure(ctx context.Context, address string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, ok := s.failures[address]
	if !ok || !expiry.After(now) {
		return false, nil
	}

	return true, nil
}

// Put stores a recovery token keyed by its hash.
func (s *MemoryRecoveryStore) Put(ctx context.Context, token core.RecoveryToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[token.TokenHash] = token
	return nil
}

// Consume removes and returns the token for a hash in one step.
func (s *MemoryRecoveryStore) Consume(ctx context.Context, tokenHash string) (core.RecoveryToken, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.tokens[tokenHash]
	if !ok {
		return core.RecoveryToken{}, false, nil
	}
	delete(s.tokens, tokenHash)

	return token, true, nil
}

// Sweep removes expired tokens and failure markers.
func (s *MemoryRecoveryStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for hash, token := range s.tokens {
		if token.Expired(now) {
			delete(s.tokens, hash)
			removed++
		}
	}
	for address, expiry := range s.failures {
		if !expiry.After(now) {
			delete(s.failures, address)
			removed++
		}
	}

	return removed, nil
}
