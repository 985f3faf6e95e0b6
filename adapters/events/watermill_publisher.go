package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/HumansWindow/lastproject-sub007/ports"
)

// Topics per event kind. External monitors subscribe to the theft topic for
// security alerting.
const (
	TopicLogout         = "auth.logout"
	TopicTheftSuspected = "auth.token_theft"
	TopicSessionAnomaly = "auth.session_anomaly"
	TopicDeviceMismatch = "auth.device_mismatch"
)

// WatermillPublisher implements ports.EventPublisher on a watermill
// message.Publisher.
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new watermill-backed publisher.
func NewWatermillPublisher(publisher message.Publisher) *WatermillPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// Publish serializes the event and publishes it to the topic for its kind.
func (p *WatermillPublisher) Publish(ctx context.Context, event ports.SecurityEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)

	if err := p.publisher.Publish(topicFor(event.Kind), msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

func topicFor(kind string) string {
	switch kind {
	case ports.EventTheftSuspected:
		return TopicTheftSuspected
	case ports.EventSessionAnomaly:
		return TopicSessionAnomaly
	case ports.EventDeviceMismatch:
		return TopicDeviceMismatch
	default:
		return TopicLogout
	}
}
