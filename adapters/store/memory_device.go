package store

import (
	"context"
	"sync"
	"time"

	"github.com/HumansWindow/lastproject-sub007/core"
)

// MemoryDeviceStore is an in-memory DeviceStore. BindIfAbsent is a single
// check-and-insert under one lock, so an unseen device has exactly one
// binding creator regardless of concurrent attempts.
type MemoryDeviceStore struct {
	mu      sync.RWMutex
	devices map[string]core.DeviceRecord
}

// NewMemoryDeviceStore creates an empty in-memory device store.
func NewMemoryDeviceStore() *MemoryDeviceStore {
	return &MemoryDeviceStore{devices: make(map[string]core.DeviceRecord)}
}

// Get returns the record for a device id.
func (s *MemoryDeviceStore) Get(ctx context.Context, deviceID string) (core.DeviceRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.devices[deviceID]
	return record, ok, nil
}

// BindIfAbsent binds the device to the address unless a record already exists.
func (s *MemoryDeviceStore) BindIfAbsent(ctx context.Context, deviceID, address string, now time.Time) (core.DeviceRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record, ok := s.devices[deviceID]; ok {
		return record, false, nil
	}

	record := core.DeviceRecord{
		DeviceID:     deviceID,
		BoundAddress: address,
		FirstSeen:    now,
		LastSeen:     now,
	}
	s.devices[deviceID] = record

	return record, true, nil
}

// Upsert writes a record keyed by its DeviceID.
func (s *MemoryDeviceStore) Upsert(ctx context.Context, record core.DeviceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.devices[record.DeviceID] = record
	return nil
}
