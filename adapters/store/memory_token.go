package store

import (
	"context"
	"sync"
	"time"

	"github.com/HumansWindow/lastproject-sub007/core"
)

// MemoryRefreshTokenStore is an in-memory RefreshTokenStore. MarkRotated is
// a conditional transition under one lock, so concurrent rotations of the
// same token have exactly one winner.
type MemoryRefreshTokenStore struct {
	mu      sync.Mutex
	records map[string]core.RefreshTokenRecord // keyed by token hash
}

// NewMemoryRefreshTokenStore creates an empty in-memory refresh token store.
func NewMemoryRefreshTokenStore() *MemoryRefreshTokenStore {
	return &MemoryRefreshTokenStore{records: make(map[string]core.RefreshTokenRecord)}
}

// Create stores a new refresh token record.
func (s *MemoryRefreshTokenStore) Create(ctx context.Context, record core.RefreshTokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[record.TokenHash] = record
	return nil
}

// GetByHash returns the record whose TokenHash matches.
func (s *MemoryRefreshTokenStore) GetByHash(ctx context.Context, tokenHash string) (core.RefreshTokenRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[tokenHash]
	return record, ok, nil
}

// MarkRotated transitions active -> revoked{replacedBy} in one step.
// Returns false when the record is missing or no longer active.
func (s *MemoryRefreshTokenStore) MarkRotated(ctx context.Context, tokenHash string, now time.Time, replacedByHash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[tokenHash]
	if !ok || record.State != core.RefreshStateActive {
		return false, nil
	}

	record.State = core.RefreshStateRevoked
	record.RevokedAt = &now
	record.RevokedReason = core.RevokeReasonRotated
	record.ReplacedByHash = replacedByHash
	s.records[tokenHash] = record

	return true, nil
}

// Revoke marks a single record revoked. Idempotent; an already revoked
// record keeps its original reason.
func (s *MemoryRefreshTokenStore) Revoke(ctx context.Context, tokenHash string, now time.Time, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[tokenHash]
	if !ok || record.State == core.RefreshStateRevoked {
		return nil
	}

	record.State = core.RefreshStateRevoked
	record.RevokedAt = &now
	record.RevokedReason = reason
	s.records[tokenHash] = record

	return nil
}

// RevokeSession revokes every active record in a session family.
func (s *MemoryRefreshTokenStore) RevokeSession(ctx context.Context, sessionID string, now time.Time, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for hash, record := range s.records {
		if record.SessionID != sessionID || record.State == core.RefreshStateRevoked {
			continue
		}
		record.State = core.RefreshStateRevoked
		record.RevokedAt = &now
		record.RevokedReason = reason
		s.records[hash] = record
	}

	return nil
}
