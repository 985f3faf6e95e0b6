package core

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// RefreshTokenState is the lifecycle state of a refresh token record.
type RefreshTokenState string

const (
	// RefreshStateActive means the token can still be rotated once.
	RefreshStateActive RefreshTokenState = "active"
	// RefreshStateRevoked means the token was consumed, logged out, or
	// revoked as part of a security incident.
	RefreshStateRevoked RefreshTokenState = "revoked"
)

// Refresh token revocation reasons.
const (
	RevokeReasonRotated  = "rotated"
	RevokeReasonLogout   = "logout"
	RevokeReasonTheft    = "theft_suspected"
	RevokeReasonMismatch = "device_mismatch"
	RevokeReasonEvicted  = "session_evicted"
	RevokeReasonAdmin    = "admin"
)

// RefreshTokenRecord is the persisted, stateful half of a token pair.
// The plaintext refresh token is opaque to the server and never stored;
// only its SHA-256 hash is kept.
type RefreshTokenRecord struct {
	ID             string
	TokenHash      string
	IdentityID     string
	DeviceID       string
	SessionID      string
	IssuedAt       time.Time
	ExpiresAt      time.Time
	State          RefreshTokenState
	RevokedAt      *time.Time
	RevokedReason  string
	ReplacedByHash string
}

// Expired reports whether the record is past its expiry at the given time.
func (r RefreshTokenRecord) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

// TokenPair is the result of authentication or refresh rotation: a stateless
// short-lived access token plus a single-use opaque refresh token.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	SessionID        string
}

// HashToken returns the hex SHA-256 digest used to look up refresh and
// recovery tokens at rest.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
