package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/HumansWindow/lastproject-sub007/core"
	"github.com/HumansWindow/lastproject-sub007/ports"
)

// ChallengeService issues and consumes one-time authentication challenges.
type ChallengeService struct {
	store         ports.ChallengeStore
	ttl           time.Duration
	sweepInterval time.Duration
	logger        *slog.Logger

	now func() time.Time
}

// NewChallengeService creates a challenge service.
func NewChallengeService(store ports.ChallengeStore, cfg Config, logger *slog.Logger) *ChallengeService {
	return &ChallengeService{
		store:         store,
		ttl:           cfg.ChallengeTTL,
		sweepInterval: cfg.SweepInterval,
		logger:        logger,
		now:           time.Now,
	}
}

// Issue creates a challenge for an address, overwriting any prior unconsumed
// one, and returns it with the exact message the wallet must sign.
func (s *ChallengeService) Issue(ctx context.Context, address string) (core.Challenge, error) {
	normalized := core.NormalizeAddress(address)
	if normalized == "" {
		return core.Challenge{}, core.ErrInvalidAddress
	}

	nonceBytes := make([]byte, 32)
	if _, err := rand.Read(nonceBytes); err != nil {
		return core.Challenge{}, fmt.Errorf("failed to generate nonce: %w", err)
	}
	nonce := hex.EncodeToString(nonceBytes)

	now := s.now()
	challenge := core.Challenge{
		Address:   normalized,
		Nonce:     nonce,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}
	challenge.Message = composeMessage(normalized, nonce, now)

	if err := s.store.Put(ctx, challenge); err != nil {
		return core.Challenge{}, fmt.Errorf("failed to store challenge: %w", err)
	}

	return challenge, nil
}

// Consume atomically removes the stored challenge for an address and checks
// the presented message against the originally issued one byte for byte.
func (s *ChallengeService) Consume(ctx context.Context, address, presentedMessage string) error {
	normalized := core.NormalizeAddress(address)

	challenge, err := s.store.Consume(ctx, normalized)
	if err != nil {
		return err
	}

	if challenge.Expired(s.now()) {
		return core.ErrChallengeExpired
	}

	// Exact-string match; the server never reformats between issuance and
	// verification. A mismatch spends the challenge all the same.
	if challenge.Message != presentedMessage {
		return core.ErrChallengeNotFound
	}

	return nil
}

// StartSweeper runs the expiry sweep until ctx is cancelled. Sweep failures
// are logged and retried on the next tick, never fatal.
func (s *ChallengeService) StartSweeper(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.store.Sweep(ctx, s.now())
			if err != nil {
				s.logger.Warn("challenge sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				s.logger.Debug("swept expired challenges", "removed", removed)
			}
		}
	}
}

func composeMessage(address, nonce string, issuedAt time.Time) string {
	return fmt.Sprintf(
		"Sign this message to authenticate your wallet.\n\nAddress: %s\nNonce: %s\nIssued At: %s",
		address, nonce, issuedAt.UTC().Format(time.RFC3339),
	)
}
