package service

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/HumansWindow/lastproject-sub007/adapters/directory"
	"github.com/HumansWindow/lastproject-sub007/adapters/store"
	"github.com/HumansWindow/lastproject-sub007/adapters/tokenizer"
	"github.com/HumansWindow/lastproject-sub007/adapters/verifier"
	"github.com/HumansWindow/lastproject-sub007/ports"
)

// testClock is a controllable time source shared by all services in a fixture.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Now()}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// recordingPublisher captures published security events for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	events []ports.SecurityEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, event ports.SecurityEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	kinds := make([]string, 0, len(p.events))
	for _, e := range p.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func (p *recordingPublisher) hasKind(kind string) bool {
	for _, k := range p.kinds() {
		if k == kind {
			return true
		}
	}
	return false
}

// fixture wires the full service stack onto in-memory adapters.
type fixture struct {
	cfg       Config
	clock     *testClock
	publisher *recordingPublisher

	challenges *ChallengeService
	devices    *DeviceService
	sessions   *SessionService
	tokens     *TokenService
	recovery   *RecoveryService
	auth       *AuthService
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()

	clock := newTestClock()
	publisher := &recordingPublisher{}
	logger := slog.New(slog.DiscardHandler)

	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	jwtTokenizer := tokenizer.NewJWTTokenizer(signKey, cfg.Issuer, cfg.AccessTokenTTL)

	challenges := NewChallengeService(store.NewMemoryChallengeStore(), cfg, logger)
	challenges.now = clock.Now

	devices := NewDeviceService(store.NewMemoryDeviceStore(), publisher, cfg, logger)
	devices.now = clock.Now

	sessions := NewSessionService(store.NewMemorySessionStore(), publisher, cfg, logger)
	sessions.now = clock.Now

	tokens := NewTokenService(store.NewMemoryRefreshTokenStore(), jwtTokenizer, sessions, publisher, cfg, logger)
	tokens.now = clock.Now
	sessions.SetTokenRevoker(tokens)

	recovery := NewRecoveryService(store.NewMemoryRecoveryStore(), cfg, logger)
	recovery.now = clock.Now

	auth := NewAuthService(challenges, verifier.NewRegistry(), devices, tokens, sessions, recovery,
		directory.NewMemoryDirectory(), publisher, logger)

	return &fixture{
		cfg:        cfg,
		clock:      clock,
		publisher:  publisher,
		challenges: challenges,
		devices:    devices,
		sessions:   sessions,
		tokens:     tokens,
		recovery:   recovery,
		auth:       auth,
	}
}
