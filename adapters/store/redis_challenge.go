package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/HumansWindow/lastproject-sub007/core"
)

// RedisChallengeStore is a Redis ChallengeStore. Entries carry their TTL on
// the key, and Consume uses GETDEL so a challenge can be spent at most once
// across instances.
type RedisChallengeStore struct {
	client *redis.Client
	prefix string
}

// NewRedisChallengeStore creates a Redis-backed challenge store.
func NewRedisChallengeStore(client *redis.Client) *RedisChallengeStore {
	return &RedisChallengeStore{
		client: client,
		prefix: "auth:challenge:",
	}
}

// Put stores a challenge with its remaining TTL, overwriting any prior entry.
func (s *RedisChallengeStore) Put(ctx context.Context, challenge core.Challenge) error {
	payload, err := json.Marshal(challenge)
	if err != nil {
		return fmt.Errorf("failed to marshal challenge: %w", err)
	}

	ttl := time.Until(challenge.ExpiresAt)
	if ttl <= 0 {
		return core.ErrChallengeExpired
	}

	if err := s.client.Set(ctx, s.prefix+challenge.Address, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store challenge: %w", err)
	}

	return nil
}

// Consume atomically removes and returns the challenge for an address.
func (s *RedisChallengeStore) Consume(ctx context.Context, address string) (core.Challenge, error) {
	payload, err := s.client.GetDel(ctx, s.prefix+address).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return core.Challenge{}, core.ErrChallengeNotFound
		}
		return core.Challenge{}, fmt.Errorf("failed to consume challenge: %w", err)
	}

	var challenge core.Challenge
	if err := json.Unmarshal([]byte(payload), &challenge); err != nil {
		return core.Challenge{}, fmt.Errorf("failed to unmarshal challenge: %w", err)
	}

	return challenge, nil
}

// Sweep is a no-op for Redis; key TTLs already bound memory.
func (s *RedisChallengeStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}
