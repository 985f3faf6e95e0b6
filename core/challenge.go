package core

import "time"

// Challenge represents a one-time authentication challenge issued for a
// wallet address. At most one challenge is active per address; issuing a
// new one overwrites the previous entry.
type Challenge struct {
	Address   string    // Normalized wallet address the challenge was issued for
	Nonce     string    // Random nonce embedded in the message
	Message   string    // Exact message the wallet must sign
	IssuedAt  time.Time // When the challenge was created
	ExpiresAt time.Time // IssuedAt + challenge TTL
}

// Expired reports whether the challenge is past its expiry at the given time.
func (c Challenge) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}
