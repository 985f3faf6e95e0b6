package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/HumansWindow/lastproject-sub007/core"
	"github.com/HumansWindow/lastproject-sub007/ports"
)

// RecoveryService issues short-lived single-use recovery tokens as a
// fallback when wallet signing is unavailable. Issuance requires a recent
// failed signature attempt so the flow cannot bypass signature checks.
type RecoveryService struct {
	store         ports.RecoveryStore
	ttl           time.Duration
	window        time.Duration
	tokenBytes    int
	sweepInterval time.Duration
	logger        *slog.Logger

	now func() time.Time
}

// NewRecoveryService creates a recovery service.
func NewRecoveryService(store ports.RecoveryStore, cfg Config, logger *slog.Logger) *RecoveryService {
	return &RecoveryService{
		store:         store,
		ttl:           cfg.RecoveryTokenTTL,
		window:        cfg.FailedSignatureWindow,
		tokenBytes:    cfg.RefreshTokenBytes,
		sweepInterval: cfg.SweepInterval,
		logger:        logger,
		now:           time.Now,
	}
}

// RecordFailedSignature marks an address as having just failed signature
// verification, opening its recovery eligibility window.
func (s *RecoveryService) RecordFailedSignature(ctx context.Context, address string) error {
	return s.store.RecordFailure(ctx, core.NormalizeAddress(address), s.now(), s.window)
}

// IssueToken issues a recovery token for an address. Returns
// ErrRecoveryNotEligible when no failed signature attempt happened within
// the window.
func (s *RecoveryService) IssueToken(ctx context.Context, address string) (token string, expiresAt time.Time, err error) {
	normalized := core.NormalizeAddress(address)
	if normalized == "" {
		return "", time.Time{}, core.ErrInvalidAddress
	}
	now := s.now()

	eligible, err := s.store.HasRecentFailure(ctx, normalized, now)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to check eligibility: %w", err)
	}
	if !eligible {
		return "", time.Time{}, core.ErrRecoveryNotEligible
	}

	b := make([]byte, s.tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate recovery token: %w", err)
	}
	plain := base64.RawURLEncoding.EncodeToString(b)
	expiry := now.Add(s.ttl)

	record := core.RecoveryToken{
		TokenHash: core.HashToken(plain),
		Address:   normalized,
		IssuedAt:  now,
		ExpiresAt: expiry,
	}
	if err := s.store.Put(ctx, record); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to store recovery token: %w", err)
	}

	return plain, expiry, nil
}

// Consume spends a recovery token and returns the wallet address it was
// bound to. Expired, consumed, or unknown tokens all return
// ErrRecoveryTokenInvalid.
func (s *RecoveryService) Consume(ctx context.Context, token string) (string, error) {
	record, ok, err := s.store.Consume(ctx, core.HashToken(token))
	if err != nil {
		return "", fmt.Errorf("failed to consume recovery token: %w", err)
	}
	if !ok || record.Consumed || record.Expired(s.now()) {
		return "", core.ErrRecoveryTokenInvalid
	}

	return record.Address, nil
}

// StartSweeper runs the expiry sweep until ctx is cancelled. Failures are
// logged and retried on the next tick.
func (s *RecoveryService) StartSweeper(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.store.Sweep(ctx, s.now())
			if err != nil {
				s.logger.Warn("recovery sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				s.logger.Debug("swept expired recovery state", "removed", removed)
			}
		}
	}
}
