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

// RedisRecoveryStore is a Redis RecoveryStore. Failure markers and tokens
// expire via key TTLs; Consume uses GETDEL for single use across instances.
type RedisRecoveryStore struct {
	client        *redis.Client
	tokenPrefix   string
	failurePrefix string
}

// NewRedisRecoveryStore creates a Redis-backed recovery store.
func NewRedisRecoveryStore(client *redis.Client) *RedisRecoveryStore {
	return &RedisRecoveryStore{
		client:        client,
		tokenPrefix:   "auth:recovery:",
		failurePrefix: "auth:sigfail:",
	}
}

// RecordFailure marks a failed signature attempt for an address.
func (s *RedisRecoveryStore) RecordFailure(ctx context.Context, address string, now time.Time, window time.Duration) error {
	if err := s.client.Set(ctx, s.failurePrefix+address, "1", window).Err(); err != nil {
		return fmt.Errorf("failed to record signature failure: %w", err)
	}
	return nil
}

// HasRecentFailure reports whether a failure marker still exists for the address.
func (s *RedisRecoveryStore) HasRecentFailure(ctx context.Context, address string, now time.Time) (bool, error) {
	n, err := s.client.Exists(ctx, s.failurePrefix+address).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check signature failure: %w", err)
	}
	return n > 0, nil
}

// Put stores a recovery token with its remaining TTL.
func (s *RedisRecoveryStore) Put(ctx context.Context, token core.RecoveryToken) error {
	payload, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal recovery token: %w", err)
	}

	ttl := time.Until(token.ExpiresAt)
	if ttl <= 0 {
		return core.ErrRecoveryTokenInvalid
	}

	if err := s.client.Set(ctx, s.tokenPrefix+token.TokenHash, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store recovery token: %w", err)
	}

	return nil
}

// Consume atomically removes and returns the token for a hash.
func (s *RedisRecoveryStore) Consume(ctx context.Context, tokenHash string) (core.RecoveryToken, bool, error) {
	payload, err := s.client.GetDel(ctx, s.tokenPrefix+tokenHash).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return core.RecoveryToken{}, false, nil
		}
		return core.RecoveryToken{}, false, fmt.Errorf("failed to consume recovery token: %w", err)
	}

	var token core.RecoveryToken
	if err := json.Unmarshal([]byte(payload), &token); err != nil {
		return core.RecoveryToken{}, false, fmt.Errorf("failed to unmarshal recovery token: %w", err)
	}

	return token, true, nil
}

// Sweep is a no-op for Redis; key TTLs already bound memory.
func (s *RedisRecoveryStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}
