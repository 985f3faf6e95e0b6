package ports

import "time"

// AccessClaims are the self-contained claims carried by an access token.
type AccessClaims struct {
	IdentityID string
	SessionID  string
	DeviceID   string
	ExpiresAt  time.Time
}

// AccessTokenizer mints and verifies stateless access tokens.
type AccessTokenizer interface {
	// Issue returns a signed access token embedding the claims, expiring at
	// now + the configured access TTL.
	Issue(identityID, sessionID, deviceID string, now time.Time) (token string, expiresAt time.Time, err error)

	// Verify parses and validates a token and returns its claims.
	Verify(token string, now time.Time) (AccessClaims, error)
}
