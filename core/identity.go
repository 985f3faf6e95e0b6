package core

import (
	"strings"
	"time"
)

// Identity is an opaque user created on first successful authentication
// with a previously unseen wallet address. It is never deleted by this
// subsystem; only LastSeenAt is mutated.
type Identity struct {
	ID         string
	Addresses  []string
	CreatedAt  time.Time
	LastSeenAt time.Time
}

// NormalizeAddress lowercases a wallet address so that one address always
// maps to exactly one identity regardless of checksum casing.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
