package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HumansWindow/lastproject-sub007/core"
)

func TestMemoryChallengeStore_ConsumeOnce(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryChallengeStore()
	now := time.Now()

	challenge := core.Challenge{
		Address:   "0xabc",
		Nonce:     "nonce",
		Message:   "message",
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}
	require.NoError(t, s.Put(ctx, challenge))

	got, err := s.Consume(ctx, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, challenge.Message, got.Message)

	_, err = s.Consume(ctx, "0xabc")
	assert.ErrorIs(t, err, core.ErrChallengeNotFound)
}

func TestMemoryChallengeStore_ConcurrentConsume(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryChallengeStore()
	now := time.Now()

	require.NoError(t, s.Put(ctx, core.Challenge{
		Address: "0xabc", Message: "m", IssuedAt: now, ExpiresAt: now.Add(time.Hour),
	}))

	const attempts = 16
	var wg sync.WaitGroup
	successes := make(chan struct{}, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Consume(ctx, "0xabc"); err == nil {
				successes <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(successes)

	assert.Len(t, successes, 1, "exactly one consumer may win")
}

func TestMemoryChallengeStore_OverwriteAndSweep(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryChallengeStore()
	now := time.Now()

	require.NoError(t, s.Put(ctx, core.Challenge{Address: "0xabc", Message: "old", ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, s.Put(ctx, core.Challenge{Address: "0xabc", Message: "new", ExpiresAt: now.Add(time.Hour)}))

	got, err := s.Consume(ctx, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, "new", got.Message)

	require.NoError(t, s.Put(ctx, core.Challenge{Address: "0xold", Message: "m", ExpiresAt: now.Add(-time.Minute)}))
	require.NoError(t, s.Put(ctx, core.Challenge{Address: "0xnew", Message: "m", ExpiresAt: now.Add(time.Minute)}))

	removed, err := s.Sweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = s.Consume(ctx, "0xnew")
	assert.NoError(t, err)
}

func TestMemoryDeviceStore_BindIfAbsent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryDeviceStore()
	now := time.Now()

	record, created, err := s.BindIfAbsent(ctx, "d1", "0xaaa", now)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "0xaaa", record.BoundAddress)

	// A second bind attempt returns the existing record untouched.
	record, created, err = s.BindIfAbsent(ctx, "d1", "0xbbb", now.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "0xaaa", record.BoundAddress)
	assert.Equal(t, now, record.FirstSeen)
}

func TestMemoryDeviceStore_ConcurrentBind(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryDeviceStore()
	now := time.Now()

	const attempts = 16
	var wg sync.WaitGroup
	creators := make(chan string, attempts)
	bound := make(chan string, attempts)

	for i := 0; i < attempts; i++ {
		address := "0xaaa"
		if i%2 == 1 {
			address = "0xbbb"
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			record, created, err := s.BindIfAbsent(ctx, "d1", address, now)
			assert.NoError(t, err)
			if created {
				creators <- address
			}
			bound <- record.BoundAddress
		}()
	}
	wg.Wait()
	close(creators)
	close(bound)

	assert.Len(t, creators, 1, "exactly one binder may win")
	winner := <-creators
	for address := range bound {
		assert.Equal(t, winner, address, "every caller must observe the winning binding")
	}
}

func TestMemoryRefreshTokenStore_MarkRotatedOnce(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryRefreshTokenStore()
	now := time.Now()

	require.NoError(t, s.Create(ctx, core.RefreshTokenRecord{
		ID: "r1", TokenHash: "hash1", SessionID: "s1",
		ExpiresAt: now.Add(time.Hour), State: core.RefreshStateActive,
	}))

	ok, err := s.MarkRotated(ctx, "hash1", now, "hash2")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.MarkRotated(ctx, "hash1", now, "hash3")
	require.NoError(t, err)
	assert.False(t, ok, "second rotation must lose")

	record, found, err := s.GetByHash(ctx, "hash1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, core.RefreshStateRevoked, record.State)
	assert.Equal(t, "hash2", record.ReplacedByHash)
	assert.Equal(t, core.RevokeReasonRotated, record.RevokedReason)
}

func TestMemoryRefreshTokenStore_ConcurrentRotation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryRefreshTokenStore()
	now := time.Now()

	require.NoError(t, s.Create(ctx, core.RefreshTokenRecord{
		TokenHash: "hash1", SessionID: "s1",
		ExpiresAt: now.Add(time.Hour), State: core.RefreshStateActive,
	}))

	const attempts = 16
	var wg sync.WaitGroup
	wins := make(chan struct{}, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := s.MarkRotated(ctx, "hash1", now, "child"); ok {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	assert.Len(t, wins, 1, "exactly one rotation may win")
}

func TestMemoryRefreshTokenStore_RevokeSessionFamily(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryRefreshTokenStore()
	now := time.Now()

	for _, hash := range []string{"a", "b", "c"} {
		require.NoError(t, s.Create(ctx, core.RefreshTokenRecord{
			TokenHash: hash, SessionID: "family-1",
			ExpiresAt: now.Add(time.Hour), State: core.RefreshStateActive,
		}))
	}
	require.NoError(t, s.Create(ctx, core.RefreshTokenRecord{
		TokenHash: "other", SessionID: "family-2",
		ExpiresAt: now.Add(time.Hour), State: core.RefreshStateActive,
	}))

	require.NoError(t, s.RevokeSession(ctx, "family-1", now, core.RevokeReasonTheft))

	for _, hash := range []string{"a", "b", "c"} {
		record, _, err := s.GetByHash(ctx, hash)
		require.NoError(t, err)
		assert.Equal(t, core.RefreshStateRevoked, record.State)
		assert.Equal(t, core.RevokeReasonTheft, record.RevokedReason)
	}

	record, _, err := s.GetByHash(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, core.RefreshStateActive, record.State, "other families untouched")
}

func TestMemorySessionStore_TouchAndClose(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySessionStore()
	now := time.Now()

	session := core.Session{
		ID: "s1", IdentityID: "i1", DeviceID: "d1",
		CreatedAt: now, LastActiveAt: now, IsActive: true,
	}
	require.NoError(t, s.Create(ctx, session))

	_, ok, err := s.Touch(ctx, "s1", now.Add(time.Minute), "1.2.3.4", "agent")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Close(ctx, "s1", now.Add(2*time.Minute), core.CloseReasonLogout))

	// Close is idempotent and keeps the original reason.
	require.NoError(t, s.Close(ctx, "s1", now.Add(3*time.Minute), core.CloseReasonTheft))
	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Equal(t, core.CloseReasonLogout, got.EndedReason)

	_, ok, err = s.Touch(ctx, "s1", now.Add(4*time.Minute), "", "")
	require.NoError(t, err)
	assert.False(t, ok, "touching a closed session must not reopen it")
}

func TestMemorySessionStore_ActiveByIdentityOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySessionStore()
	now := time.Now()

	for i, id := range []string{"s1", "s2", "s3"} {
		require.NoError(t, s.Create(ctx, core.Session{
			ID: id, IdentityID: "i1", IsActive: true,
			LastActiveAt: now.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, s.Close(ctx, "s2", now, core.CloseReasonLogout))

	active, err := s.ActiveByIdentity(ctx, "i1")
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "s1", active[0].ID, "oldest activity first")
	assert.Equal(t, "s3", active[1].ID)
}

func TestMemoryRecoveryStore_ConsumeOnceAndSweep(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryRecoveryStore()
	now := time.Now()

	require.NoError(t, s.RecordFailure(ctx, "0xabc", now, 10*time.Minute))

	ok, err := s.HasRecentFailure(ctx, "0xabc", now.Add(5*time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.HasRecentFailure(ctx, "0xabc", now.Add(15*time.Minute))
	require.NoError(t, err)
	assert.False(t, ok, "window elapsed")

	require.NoError(t, s.Put(ctx, core.RecoveryToken{
		TokenHash: "h1", Address: "0xabc", IssuedAt: now, ExpiresAt: now.Add(15 * time.Minute),
	}))

	token, found, err := s.Consume(ctx, "h1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "0xabc", token.Address)

	_, found, err = s.Consume(ctx, "h1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Put(ctx, core.RecoveryToken{TokenHash: "h2", ExpiresAt: now.Add(-time.Minute)}))
	removed, err := s.Sweep(ctx, now)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, removed, 1)
}
