package ports

import "context"

// SecurityEvent is published when the subsystem observes something an
// external monitor should know about.
type SecurityEvent struct {
	Kind       string `json:"kind"`
	IdentityID string `json:"identity_id"`
	SessionID  string `json:"session_id,omitempty"`
	DeviceID   string `json:"device_id,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

// Security event kinds.
const (
	EventLogout         = "logout"
	EventTheftSuspected = "token_theft_suspected"
	EventSessionAnomaly = "session_anomaly"
	EventDeviceMismatch = "device_wallet_mismatch"
)

// EventPublisher publishes security events to notify other instances and
// external monitoring. Publish failures must never fail the request that
// produced the event.
type EventPublisher interface {
	Publish(ctx context.Context, event SecurityEvent) error
}
