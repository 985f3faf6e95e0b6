package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/HumansWindow/lastproject-sub007/core"
	"github.com/HumansWindow/lastproject-sub007/ports"
)

// TokenRevoker revokes all refresh tokens of a session family. Implemented
// by TokenService; held behind an interface because session closure and
// token revocation cascade into each other.
type TokenRevoker interface {
	RevokeSession(ctx context.Context, sessionID, reason string) error
}

const sessionLockStripes = 64

// SessionService tracks live sessions per identity, enforces the concurrent
// session cap, records heartbeats, and supports forced revocation.
type SessionService struct {
	store       ports.SessionStore
	events      ports.EventPublisher
	logger      *slog.Logger
	maxSessions int
	revoker     TokenRevoker

	// identityLocks serializes count-evict-insert per identity so concurrent
	// opens cannot both evict and recreate inconsistently.
	identityLocks [sessionLockStripes]sync.Mutex

	now func() time.Time
}

// NewSessionService creates a session registry service. Call SetTokenRevoker
// before serving requests so closures cascade to token revocation.
func NewSessionService(store ports.SessionStore, events ports.EventPublisher, cfg Config, logger *slog.Logger) *SessionService {
	return &SessionService{
		store:       store,
		events:      events,
		logger:      logger,
		maxSessions: cfg.MaxSessions,
		now:         time.Now,
	}
}

// SetTokenRevoker wires the token-side revocation cascade.
func (s *SessionService) SetTokenRevoker(revoker TokenRevoker) {
	s.revoker = revoker
}

// Open creates an active session. When the identity already holds the
// maximum number of active sessions, the least recently active one is
// evicted (closed and its tokens revoked) first.
func (s *SessionService) Open(ctx context.Context, identityID, deviceID, ipAddress, userAgent string) (core.Session, error) {
	lock := s.lockFor(identityID)
	lock.Lock()
	defer lock.Unlock()

	now := s.now()

	active, err := s.store.ActiveByIdentity(ctx, identityID)
	if err != nil {
		return core.Session{}, fmt.Errorf("failed to list active sessions: %w", err)
	}

	for len(active) >= s.maxSessions {
		oldest := active[0]
		if err := s.closeLocked(ctx, oldest, now, core.CloseReasonEvicted); err != nil {
			return core.Session{}, fmt.Errorf("failed to evict session %s: %w", oldest.ID, err)
		}
		s.logger.Info("evicted least recently active session",
			"identity_id", identityID, "session_id", oldest.ID)
		active = active[1:]
	}

	session := core.Session{
		ID:           uuid.New().String(),
		IdentityID:   identityID,
		DeviceID:     deviceID,
		IPAddress:    ipAddress,
		UserAgent:    userAgent,
		CreatedAt:    now,
		LastActiveAt: now,
		IsActive:     true,
	}

	if err := s.store.Create(ctx, session); err != nil {
		return core.Session{}, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// Heartbeat updates the session's last activity. It returns false, never an
// error callers must treat as fatal, when the session is not active. A
// material change of IP address between heartbeats is published as an
// anomaly; whether to force re-authentication is the integrator's policy.
func (s *SessionService) Heartbeat(ctx context.Context, sessionID, ipAddress, userAgent string) (bool, error) {
	prev, err := s.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, core.ErrSessionNotFound) {
			return false, nil
		}
		return false, err
	}

	session, ok, err := s.store.Touch(ctx, sessionID, s.now(), ipAddress, userAgent)
	if err != nil || !ok {
		return false, err
	}

	if ipAddress != "" && prev.IPAddress != "" && prev.IPAddress != ipAddress {
		s.publishAnomaly(ctx, session, fmt.Sprintf("ip changed from %s to %s", prev.IPAddress, ipAddress))
	}

	return true, nil
}

// IsActive reports whether a session exists and is active. Used to reject
// access tokens of closed sessions before the tokens themselves expire.
func (s *SessionService) IsActive(ctx context.Context, sessionID string) (bool, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, core.ErrSessionNotFound) {
			return false, nil
		}
		return false, err
	}

	return session.IsActive, nil
}

// Get returns a session by id.
func (s *SessionService) Get(ctx context.Context, sessionID string) (core.Session, error) {
	return s.store.Get(ctx, sessionID)
}

// ActiveSessions lists the identity's active sessions, oldest activity first.
func (s *SessionService) ActiveSessions(ctx context.Context, identityID string) ([]core.Session, error) {
	return s.store.ActiveByIdentity(ctx, identityID)
}

// Close marks a session inactive and cascades revocation to its refresh
// tokens. Idempotent.
func (s *SessionService) Close(ctx context.Context, sessionID, reason string) error {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	return s.closeLocked(ctx, session, s.now(), reason)
}

func (s *SessionService) closeLocked(ctx context.Context, session core.Session, now time.Time, reason string) error {
	if err := s.store.Close(ctx, session.ID, now, reason); err != nil {
		return err
	}

	if s.revoker != nil {
		if err := s.revoker.RevokeSession(ctx, session.ID, revokeReasonFor(reason)); err != nil {
			return fmt.Errorf("failed to revoke session tokens: %w", err)
		}
	}

	return nil
}

func (s *SessionService) publishAnomaly(ctx context.Context, session core.Session, detail string) {
	err := s.events.Publish(ctx, ports.SecurityEvent{
		Kind:       ports.EventSessionAnomaly,
		IdentityID: session.IdentityID,
		SessionID:  session.ID,
		DeviceID:   session.DeviceID,
		Detail:     detail,
	})
	if err != nil {
		s.logger.Warn("failed to publish session anomaly event", "error", err)
	}
}

func (s *SessionService) lockFor(identityID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(identityID))
	return &s.identityLocks[h.Sum32()%sessionLockStripes]
}

func revokeReasonFor(closeReason string) string {
	switch closeReason {
	case core.CloseReasonEvicted:
		return core.RevokeReasonEvicted
	case core.CloseReasonTheft:
		return core.RevokeReasonTheft
	case core.CloseReasonMismatch:
		return core.RevokeReasonMismatch
	case core.CloseReasonAdmin:
		return core.RevokeReasonAdmin
	default:
		return core.RevokeReasonLogout
	}
}
