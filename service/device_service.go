package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/HumansWindow/lastproject-sub007/core"
	"github.com/HumansWindow/lastproject-sub007/ports"
)

// DeviceService enforces the one-wallet-per-device binding.
type DeviceService struct {
	store  ports.DeviceStore
	events ports.EventPublisher
	logger *slog.Logger
	strict bool

	now func() time.Time
}

// NewDeviceService creates a device binding service.
func NewDeviceService(store ports.DeviceStore, events ports.EventPublisher, cfg Config, logger *slog.Logger) *DeviceService {
	return &DeviceService{
		store:  store,
		events: events,
		logger: logger,
		strict: cfg.StrictDeviceBinding,
		now:    time.Now,
	}
}

// ValidatePairing checks the device against its recorded wallet binding.
// An unseen device is bound to the address in one atomic step, so two
// concurrent first sights of one device have exactly one winner. A matching
// binding is allowed and touched. A conflicting binding is rejected in
// strict mode; in advisory mode it is allowed but logged and published, and
// the binding is kept.
func (s *DeviceService) ValidatePairing(ctx context.Context, deviceID, address string) error {
	if deviceID == "" {
		return fmt.Errorf("empty device id: %w", core.ErrDeviceWalletMismatch)
	}
	normalized := core.NormalizeAddress(address)
	now := s.now()

	record, created, err := s.store.BindIfAbsent(ctx, deviceID, normalized, now)
	if err != nil {
		return fmt.Errorf("failed to bind device: %w", err)
	}
	if created {
		return nil
	}

	if record.BoundAddress == normalized {
		record.LastSeen = now
		return s.store.Upsert(ctx, record)
	}

	s.logger.Warn("device bound to a different wallet",
		"device_id", deviceID, "bound", record.BoundAddress, "presented", normalized)
	s.publishMismatch(ctx, deviceID, normalized)

	if s.strict {
		return core.ErrDeviceWalletMismatch
	}

	// Advisory mode: allow but keep the original binding.
	record.LastSeen = now
	return s.store.Upsert(ctx, record)
}

// Rebind transfers a device to a new wallet. This is an administrative
// operation and is not reachable from the authentication path.
func (s *DeviceService) Rebind(ctx context.Context, deviceID, address string) error {
	normalized := core.NormalizeAddress(address)
	if deviceID == "" || normalized == "" {
		return core.ErrInvalidAddress
	}
	now := s.now()

	record, ok, err := s.store.Get(ctx, deviceID)
	if err != nil {
		return fmt.Errorf("failed to load device record: %w", err)
	}
	if !ok {
		record = core.DeviceRecord{DeviceID: deviceID, FirstSeen: now}
	}

	record.BoundAddress = normalized
	record.LastSeen = now

	return s.store.Upsert(ctx, record)
}

func (s *DeviceService) publishMismatch(ctx context.Context, deviceID, address string) {
	err := s.events.Publish(ctx, ports.SecurityEvent{
		Kind:     ports.EventDeviceMismatch,
		DeviceID: deviceID,
		Detail:   "presented wallet " + address,
	})
	if err != nil {
		s.logger.Warn("failed to publish device mismatch event", "error", err)
	}
}
