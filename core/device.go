package core

import "time"

// DeviceRecord binds a device identifier to a single wallet address.
// The binding is the anti-Sybil invariant: a device authenticates with at
// most one wallet at a time; rebinding is an administrative operation.
type DeviceRecord struct {
	DeviceID     string
	BoundAddress string
	FirstSeen    time.Time
	LastSeen     time.Time
}
