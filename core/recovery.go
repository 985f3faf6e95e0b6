package core

import "time"

// RecoveryToken is a short-lived, single-use fallback credential issued when
// wallet signing is unavailable. It is only issued for addresses that
// recently failed signature verification, and it is stored hashed.
type RecoveryToken struct {
	TokenHash string
	Address   string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Consumed  bool
}

// Expired reports whether the token is past its expiry at the given time.
func (t RecoveryToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}
