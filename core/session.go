package core

import "time"

// Session close reasons recorded on Session.EndedReason.
const (
	CloseReasonLogout   = "logout"
	CloseReasonEvicted  = "evicted"
	CloseReasonTheft    = "token_theft"
	CloseReasonMismatch = "device_mismatch"
	CloseReasonAdmin    = "admin"
)

// Session represents an authenticated login from one device. It is created
// on successful authentication, touched on heartbeat and token refresh, and
// terminated by logout, eviction, admin revocation, or a security incident.
type Session struct {
	ID           string
	IdentityID   string
	DeviceID     string
	IPAddress    string
	UserAgent    string
	CreatedAt    time.Time
	LastActiveAt time.Time
	IsActive     bool
	EndedAt      *time.Time
	EndedReason  string
}
