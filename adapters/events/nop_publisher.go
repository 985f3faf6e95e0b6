package events

import (
	"context"

	"github.com/HumansWindow/lastproject-sub007/ports"
)

// NopPublisher discards events. Used when no broker is configured.
type NopPublisher struct{}

// NewNopPublisher creates a NopPublisher.
func NewNopPublisher() *NopPublisher {
	return &NopPublisher{}
}

// Publish discards the event.
func (p *NopPublisher) Publish(ctx context.Context, event ports.SecurityEvent) error {
	return nil
}
