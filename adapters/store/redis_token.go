package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/HumansWindow/lastproject-sub007/core"
)

// markRotatedScript transitions a record from active to revoked{replacedBy}
// in one server-side step, so concurrent rotations of the same token have
// exactly one winner across instances.
var markRotatedScript = redis.NewScript(`
if redis.call("HGET", KEYS[1], "state") == "active" then
  redis.call("HSET", KEYS[1],
    "state", "revoked",
    "revoked_reason", ARGV[1],
    "revoked_at", ARGV[2],
    "replaced_by", ARGV[3])
  return 1
end
return 0
`)

// revokeScript revokes an active record; an already revoked record keeps its
// original reason.
var revokeScript = redis.NewScript(`
if redis.call("HGET", KEYS[1], "state") == "active" then
  redis.call("HSET", KEYS[1],
    "state", "revoked",
    "revoked_reason", ARGV[1],
    "revoked_at", ARGV[2])
end
return 0
`)

// RedisRefreshTokenStore is a Redis RefreshTokenStore. Records live in hashes
// keyed by token hash and expire with the token; a per-session set tracks the
// family for revocation.
type RedisRefreshTokenStore struct {
	client        *redis.Client
	tokenPrefix   string
	sessionPrefix string
}

// NewRedisRefreshTokenStore creates a Redis-backed refresh token store.
func NewRedisRefreshTokenStore(client *redis.Client) *RedisRefreshTokenStore {
	return &RedisRefreshTokenStore{
		client:        client,
		tokenPrefix:   "auth:refresh:",
		sessionPrefix: "auth:refreshfam:",
	}
}

// Create stores a new record and adds it to its session family.
func (s *RedisRefreshTokenStore) Create(ctx context.Context, record core.RefreshTokenRecord) error {
	ttl := time.Until(record.ExpiresAt)
	if ttl <= 0 {
		return core.ErrTokenExpired
	}

	key := s.tokenPrefix + record.TokenHash
	familyKey := s.sessionPrefix + record.SessionID

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key,
		"id", record.ID,
		"identity_id", record.IdentityID,
		"device_id", record.DeviceID,
		"session_id", record.SessionID,
		"issued_at", record.IssuedAt.Format(time.RFC3339Nano),
		"expires_at", record.ExpiresAt.Format(time.RFC3339Nano),
		"state", string(record.State),
	)
	pipe.Expire(ctx, key, ttl)
	pipe.SAdd(ctx, familyKey, record.TokenHash)
	pipe.Expire(ctx, familyKey, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}

	return nil
}

// GetByHash returns the record whose TokenHash matches.
func (s *RedisRefreshTokenStore) GetByHash(ctx context.Context, tokenHash string) (core.RefreshTokenRecord, bool, error) {
	fields, err := s.client.HGetAll(ctx, s.tokenPrefix+tokenHash).Result()
	if err != nil {
		return core.RefreshTokenRecord{}, false, fmt.Errorf("failed to load refresh token: %w", err)
	}
	if len(fields) == 0 {
		return core.RefreshTokenRecord{}, false, nil
	}

	record, err := parseTokenFields(tokenHash, fields)
	if err != nil {
		return core.RefreshTokenRecord{}, false, err
	}

	return record, true, nil
}

// MarkRotated transitions active -> revoked{replacedBy} in one step.
func (s *RedisRefreshTokenStore) MarkRotated(ctx context.Context, tokenHash string, now time.Time, replacedByHash string) (bool, error) {
	won, err := markRotatedScript.Run(ctx, s.client,
		[]string{s.tokenPrefix + tokenHash},
		core.RevokeReasonRotated, now.Format(time.RFC3339Nano), replacedByHash,
	).Int()
	if err != nil {
		return false, fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	return won == 1, nil
}

// Revoke marks a single record revoked. Idempotent.
func (s *RedisRefreshTokenStore) Revoke(ctx context.Context, tokenHash string, now time.Time, reason string) error {
	err := revokeScript.Run(ctx, s.client,
		[]string{s.tokenPrefix + tokenHash},
		reason, now.Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	return nil
}

// RevokeSession revokes every record in a session family.
func (s *RedisRefreshTokenStore) RevokeSession(ctx context.Context, sessionID string, now time.Time, reason string) error {
	hashes, err := s.client.SMembers(ctx, s.sessionPrefix+sessionID).Result()
	if err != nil {
		return fmt.Errorf("failed to load session family: %w", err)
	}

	for _, hash := range hashes {
		if err := s.Revoke(ctx, hash, now, reason); err != nil {
			return err
		}
	}

	return nil
}

func parseTokenFields(tokenHash string, fields map[string]string) (core.RefreshTokenRecord, error) {
	issuedAt, err := time.Parse(time.RFC3339Nano, fields["issued_at"])
	if err != nil {
		return core.RefreshTokenRecord{}, fmt.Errorf("failed to parse refresh token record: %w", err)
	}
	expiresAt, err := time.Parse(time.RFC3339Nano, fields["expires_at"])
	if err != nil {
		return core.RefreshTokenRecord{}, fmt.Errorf("failed to parse refresh token record: %w", err)
	}

	record := core.RefreshTokenRecord{
		ID:             fields["id"],
		TokenHash:      tokenHash,
		IdentityID:     fields["identity_id"],
		DeviceID:       fields["device_id"],
		SessionID:      fields["session_id"],
		IssuedAt:       issuedAt,
		ExpiresAt:      expiresAt,
		State:          core.RefreshTokenState(fields["state"]),
		RevokedReason:  fields["revoked_reason"],
		ReplacedByHash: fields["replaced_by"],
	}

	if raw, ok := fields["revoked_at"]; ok && raw != "" {
		revokedAt, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return core.RefreshTokenRecord{}, fmt.Errorf("failed to parse refresh token record: %w", err)
		}
		record.RevokedAt = &revokedAt
	}

	return record, nil
}
