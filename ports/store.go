package ports

import (
	"context"
	"time"

	"github.com/HumansWindow/lastproject-sub007/core"
)

// ChallengeStore keeps at most one active challenge per address.
//
// Consume must be an atomic get-and-delete so that two concurrent
// authentication attempts cannot both succeed off one challenge.
type ChallengeStore interface {
	// Put stores a challenge for its address, overwriting any prior entry.
	Put(ctx context.Context, challenge core.Challenge) error

	// Consume removes and returns the challenge for an address in one step.
	// Returns core.ErrChallengeNotFound if absent.
	Consume(ctx context.Context, address string) (core.Challenge, error)

	// Sweep removes entries expired before now and reports how many were removed.
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// DeviceStore persists device-to-wallet bindings.
//
// BindIfAbsent must be a single atomic check-and-insert; two concurrent
// binds of one unseen device must have exactly one creator, or two wallets
// could end up sharing a device.
type DeviceStore interface {
	// Get returns the record for a device id; ok is false when the device
	// has never been seen.
	Get(ctx context.Context, deviceID string) (core.DeviceRecord, bool, error)

	// BindIfAbsent binds the device to the address unless a record already
	// exists, in one step. It returns the stored record; created is true
	// when this call made the binding.
	BindIfAbsent(ctx context.Context, deviceID, address string, now time.Time) (core.DeviceRecord, bool, error)

	// Upsert writes a record keyed by its DeviceID.
	Upsert(ctx context.Context, record core.DeviceRecord) error
}

// SessionStore persists session state.
//
// Implementations must serialize Open-time eviction per identity; callers
// rely on count-evict-insert being consistent under concurrent opens.
type SessionStore interface {
	Create(ctx context.Context, session core.Session) error
	Get(ctx context.Context, sessionID string) (core.Session, error)

	// ActiveByIdentity returns active sessions ordered oldest activity first.
	ActiveByIdentity(ctx context.Context, identityID string) ([]core.Session, error)

	// Touch updates LastActiveAt and the observed client context. Returns
	// false when the session is not active.
	Touch(ctx context.Context, sessionID string, now time.Time, ip, userAgent string) (core.Session, bool, error)

	// Close marks the session inactive with a reason. Idempotent.
	Close(ctx context.Context, sessionID string, now time.Time, reason string) error
}

// RefreshTokenStore persists stateful refresh token records.
type RefreshTokenStore interface {
	Create(ctx context.Context, record core.RefreshTokenRecord) error

	// GetByHash returns the record whose TokenHash matches.
	GetByHash(ctx context.Context, tokenHash string) (core.RefreshTokenRecord, bool, error)

	// MarkRotated transitions a record from active to revoked{replacedBy} in
	// one conditional step. Returns false when the record was not active,
	// which is how concurrent rotation losers and replay are detected.
	MarkRotated(ctx context.Context, tokenHash string, now time.Time, replacedByHash string) (bool, error)

	// Revoke marks a single record revoked with a reason. Idempotent.
	Revoke(ctx context.Context, tokenHash string, now time.Time, reason string) error

	// RevokeSession revokes every record in a session family. Idempotent.
	RevokeSession(ctx context.Context, sessionID string, now time.Time, reason string) error
}

// RecoveryStore persists recovery tokens and failed-signature markers.
type RecoveryStore interface {
	// RecordFailure marks a recent failed signature attempt for an address.
	RecordFailure(ctx context.Context, address string, now time.Time, window time.Duration) error

	// HasRecentFailure reports whether the address failed a signature check
	// within the eligibility window.
	HasRecentFailure(ctx context.Context, address string, now time.Time) (bool, error)

	Put(ctx context.Context, token core.RecoveryToken) error

	// Consume removes and returns the token for a hash in one step.
	Consume(ctx context.Context, tokenHash string) (core.RecoveryToken, bool, error)

	// Sweep removes expired tokens and failure markers.
	Sweep(ctx context.Context, now time.Time) (int, error)
}
