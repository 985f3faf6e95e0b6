package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/HumansWindow/lastproject-sub007/core"
)

// MemorySessionStore is an in-memory SessionStore.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]core.Session
}

// NewMemorySessionStore creates an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]core.Session)}
}

// Create stores a new session.
func (s *MemorySessionStore) Create(ctx context.Context, session core.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.ID] = session
	return nil
}

// Get returns the session for an id.
func (s *MemorySessionStore) Get(ctx context.Context, sessionID string) (core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return core.Session{}, core.ErrSessionNotFound
	}

	return session, nil
}

// ActiveByIdentity returns active sessions ordered oldest activity first.
func (s *MemorySessionStore) ActiveByIdentity(ctx context.Context, identityID string) ([]core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var active []core.Session
	for _, session := range s.sessions {
		if session.IdentityID == identityID && session.IsActive {
			active = append(active, session)
		}
	}

	sort.Slice(active, func(i, j int) bool {
		return active[i].LastActiveAt.Before(active[j].LastActiveAt)
	})

	return active, nil
}

// Touch updates LastActiveAt and the observed client context for an active
// session. It returns false, without reopening, when the session is closed.
func (s *MemorySessionStore) Touch(ctx context.Context, sessionID string, now time.Time, ip, userAgent string) (core.Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok || !session.IsActive {
		return core.Session{}, false, nil
	}

	session.LastActiveAt = now
	if ip != "" {
		session.IPAddress = ip
	}
	if userAgent != "" {
		session.UserAgent = userAgent
	}
	s.sessions[sessionID] = session

	return session, true, nil
}

// Close marks a session inactive. Closing an already closed session keeps
// the original end time and reason.
func (s *MemorySessionStore) Close(ctx context.Context, sessionID string, now time.Time, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return core.ErrSessionNotFound
	}
	if !session.IsActive {
		return nil
	}

	session.IsActive = false
	session.EndedAt = &now
	session.EndedReason = reason
	s.sessions[sessionID] = session

	return nil
}
