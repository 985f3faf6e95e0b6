package store

import (
	"context"
	"sync"
	"time"

	"github.com/HumansWindow/lastproject-sub007/core"
)

// MemoryChallengeStore is an in-memory ChallengeStore. Consume is a single
// get-and-delete under one lock, so a challenge can be spent at most once
// regardless of concurrent attempts.
type MemoryChallengeStore struct {
	mu         sync.Mutex
	challenges map[string]core.Challenge
}

// NewMemoryChallengeStore creates an empty in-memory challenge store.
func NewMemoryChallengeStore() *MemoryChallengeStore {
	return &MemoryChallengeStore{challenges: make(map[string]core.Challenge)}
}

// Put stores a challenge, overwriting any prior entry for the address.
func (s *MemoryChallengeStore) Put(ctx context.Context, challenge core.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.challenges[challenge.Address] = challenge
	return nil
}

// Consume removes and returns the challenge for an address.
func (s *MemoryChallengeStore) Consume(ctx context.Context, address string) (core.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	challenge, ok := s.challenges[address]
	if !ok {
		return core.Challenge{}, core.ErrChallengeNotFound
	}
	delete(s.challenges, address)

	return challenge, nil
}

// Sweep removes expired entries and returns the number removed.
func (s *MemoryChallengeStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for address, challenge := range s.challenges {
		if challenge.Expired(now) {
			delete(s.challenges, address)
			removed++
		}
	}

	return removed, nil
}
