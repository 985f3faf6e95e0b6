package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/HumansWindow/lastproject-sub007/core"
	"github.com/HumansWindow/lastproject-sub007/ports"
)

// TokenService issues, verifies, and rotates access/refresh token pairs and
// detects refresh-token reuse.
type TokenService struct {
	store     ports.RefreshTokenStore
	tokenizer ports.AccessTokenizer
	sessions  *SessionService
	events    ports.EventPublisher
	logger    *slog.Logger

	refreshTTL   time.Duration
	refreshBytes int

	now func() time.Time
}

// NewTokenService creates a token service bound to the session registry.
func NewTokenService(
	store ports.RefreshTokenStore,
	tokenizer ports.AccessTokenizer,
	sessions *SessionService,
	events ports.EventPublisher,
	cfg Config,
	logger *slog.Logger,
) *TokenService {
	return &TokenService{
		store:        store,
		tokenizer:    tokenizer,
		sessions:     sessions,
		events:       events,
		logger:       logger,
		refreshTTL:   cfg.RefreshTokenTTL,
		refreshBytes: cfg.RefreshTokenBytes,
		now:          time.Now,
	}
}

// IssuePair mints a short-lived access token plus a new single-use refresh
// token for a session.
func (s *TokenService) IssuePair(ctx context.Context, identityID, deviceID, sessionID string) (core.TokenPair, error) {
	now := s.now()

	refreshPlain, refreshHash, err := s.newOpaqueToken()
	if err != nil {
		return core.TokenPair{}, err
	}
	refreshExpiry := now.Add(s.refreshTTL)

	record := core.RefreshTokenRecord{
		ID:         uuid.New().String(),
		TokenHash:  refreshHash,
		IdentityID: identityID,
		DeviceID:   deviceID,
		SessionID:  sessionID,
		IssuedAt:   now,
		ExpiresAt:  refreshExpiry,
		State:      core.RefreshStateActive,
	}
	if err := s.store.Create(ctx, record); err != nil {
		return core.TokenPair{}, fmt.Errorf("failed to store refresh token: %w", err)
	}

	accessToken, accessExpiry, err := s.tokenizer.Issue(identityID, sessionID, deviceID, now)
	if err != nil {
		return core.TokenPair{}, fmt.Errorf("failed to issue access token: %w", err)
	}

	return core.TokenPair{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpiry,
		RefreshToken:     refreshPlain,
		RefreshExpiresAt: refreshExpiry,
		SessionID:        sessionID,
	}, nil
}

// Rotate exchanges a valid refresh token for a new pair. Presenting an
// unknown or already-rotated token is treated as theft: the whole session
// family is revoked and ErrTokenTheftSuspected returned. A device mismatch
// revokes the token and returns ErrDeviceMismatch.
func (s *TokenService) Rotate(ctx context.Context, presentedToken, deviceID, ipAddress string) (core.TokenPair, error) {
	now := s.now()
	presentedHash := core.HashToken(presentedToken)

	record, ok, err := s.store.GetByHash(ctx, presentedHash)
	if err != nil {
		return core.TokenPair{}, fmt.Errorf("failed to look up refresh token: %w", err)
	}
	if !ok {
		// Unknown token: possible theft, but there is no family to revoke.
		s.logger.Warn("unknown refresh token presented", "device_id", deviceID, "ip", ipAddress)
		return core.TokenPair{}, core.ErrTokenTheftSuspected
	}

	if record.State == core.RefreshStateRevoked {
		switch record.RevokedReason {
		case core.RevokeReasonRotated, core.RevokeReasonTheft, core.RevokeReasonMismatch:
			// Reuse of a spent token, or a token already tied to an incident.
			return core.TokenPair{}, s.suspectTheft(ctx, record, now)
		default:
			// Logout, eviction, admin: a stale client, not an attack.
			return core.TokenPair{}, core.ErrTokenRevoked
		}
	}

	if record.Expired(now) {
		return core.TokenPair{}, core.ErrTokenExpired
	}

	if record.DeviceID != deviceID {
		if err := s.store.Revoke(ctx, presentedHash, now, core.RevokeReasonMismatch); err != nil {
			return core.TokenPair{}, fmt.Errorf("failed to revoke mismatched token: %w", err)
		}
		s.logger.Warn("refresh token presented from a different device",
			"identity_id", record.IdentityID, "session_id", record.SessionID,
			"bound_device", record.DeviceID, "presented_device", deviceID)
		return core.TokenPair{}, core.ErrDeviceMismatch
	}

	active, err := s.sessions.IsActive(ctx, record.SessionID)
	if err != nil {
		return core.TokenPair{}, fmt.Errorf("failed to check session: %w", err)
	}
	if !active {
		if err := s.store.Revoke(ctx, presentedHash, now, core.RevokeReasonLogout); err != nil {
			return core.TokenPair{}, fmt.Errorf("failed to revoke orphaned token: %w", err)
		}
		return core.TokenPair{}, core.ErrSessionRevoked
	}

	// Pre-generate the replacement so the transition can record it, then
	// transition the old token conditionally. Exactly one concurrent
	// rotation wins; losers fall into the theft path.
	newPlain, newHash, err := s.newOpaqueToken()
	if err != nil {
		return core.TokenPair{}, err
	}

	rotated, err := s.store.MarkRotated(ctx, presentedHash, now, newHash)
	if err != nil {
		return core.TokenPair{}, fmt.Errorf("failed to rotate refresh token: %w", err)
	}
	if !rotated {
		return core.TokenPair{}, s.suspectTheft(ctx, record, now)
	}

	refreshExpiry := now.Add(s.refreshTTL)
	newRecord := core.RefreshTokenRecord{
		ID:         uuid.New().String(),
		TokenHash:  newHash,
		IdentityID: record.IdentityID,
		DeviceID:   record.DeviceID,
		SessionID:  record.SessionID,
		IssuedAt:   now,
		ExpiresAt:  refreshExpiry,
		State:      core.RefreshStateActive,
	}
	if err := s.store.Create(ctx, newRecord); err != nil {
		return core.TokenPair{}, fmt.Errorf("failed to store rotated token: %w", err)
	}

	// Refresh re-validates the existing session rather than creating one;
	// a heartbeat also surfaces an IP change between refreshes.
	if _, err := s.sessions.Heartbeat(ctx, record.SessionID, ipAddress, ""); err != nil {
		s.logger.Warn("failed to touch session on refresh", "session_id", record.SessionID, "error", err)
	}

	accessToken, accessExpiry, err := s.tokenizer.Issue(record.IdentityID, record.SessionID, record.DeviceID, now)
	if err != nil {
		return core.TokenPair{}, fmt.Errorf("failed to issue access token: %w", err)
	}

	return core.TokenPair{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpiry,
		RefreshToken:     newPlain,
		RefreshExpiresAt: refreshExpiry,
		SessionID:        record.SessionID,
	}, nil
}

// Revoke marks a single refresh token revoked. Idempotent.
func (s *TokenService) Revoke(ctx context.Context, refreshToken, reason string) error {
	return s.store.Revoke(ctx, core.HashToken(refreshToken), s.now(), reason)
}

// RevokeSession revokes every refresh token of a session family. Idempotent.
func (s *TokenService) RevokeSession(ctx context.Context, sessionID, reason string) error {
	return s.store.RevokeSession(ctx, sessionID, s.now(), reason)
}

// VerifyAccess validates a stateless access token and then checks that its
// session is still active, so revocation takes effect before token expiry.
func (s *TokenService) VerifyAccess(ctx context.Context, accessToken string) (ports.AccessClaims, error) {
	claims, err := s.tokenizer.Verify(accessToken, s.now())
	if err != nil {
		return ports.AccessClaims{}, err
	}

	active, err := s.sessions.IsActive(ctx, claims.SessionID)
	if err != nil {
		return ports.AccessClaims{}, fmt.Errorf("failed to check session: %w", err)
	}
	if !active {
		return ports.AccessClaims{}, core.ErrSessionRevoked
	}

	return claims, nil
}

// suspectTheft handles reuse of a rotated or revoked token: the entire
// session family becomes unusable and monitoring is notified.
func (s *TokenService) suspectTheft(ctx context.Context, record core.RefreshTokenRecord, now time.Time) error {
	if err := s.store.RevokeSession(ctx, record.SessionID, now, core.RevokeReasonTheft); err != nil {
		return fmt.Errorf("failed to revoke session family: %w", err)
	}
	// Closing cascades back into RevokeSession, which is idempotent by now.
	if err := s.sessions.Close(ctx, record.SessionID, core.CloseReasonTheft); err != nil && !errors.Is(err, core.ErrSessionNotFound) {
		s.logger.Warn("failed to close session on theft", "session_id", record.SessionID, "error", err)
	}

	s.logger.Error("refresh token reuse detected",
		"identity_id", record.IdentityID, "session_id", record.SessionID, "device_id", record.DeviceID)

	err := s.events.Publish(ctx, ports.SecurityEvent{
		Kind:       ports.EventTheftSuspected,
		IdentityID: record.IdentityID,
		SessionID:  record.SessionID,
		DeviceID:   record.DeviceID,
		Detail:     "revoked refresh token presented again",
	})
	if err != nil {
		s.logger.Warn("failed to publish theft event", "error", err)
	}

	return core.ErrTokenTheftSuspected
}

func (s *TokenService) newOpaqueToken() (plain, hash string, err error) {
	b := make([]byte, s.refreshBytes)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("failed to generate token: %w", err)
	}

	plain = base64.RawURLEncoding.EncodeToString(b)
	return plain, core.HashToken(plain), nil
}
