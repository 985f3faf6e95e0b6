package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HumansWindow/lastproject-sub007/core"
)

func TestRecoveryService_RequiresRecentFailure(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ctx := context.Background()

	_, _, err := f.recovery.IssueToken(ctx, "0xabc")
	assert.ErrorIs(t, err, core.ErrRecoveryNotEligible)

	require.NoError(t, f.recovery.RecordFailedSignature(ctx, "0xABC"))

	token, expiresAt, err := f.recovery.IssueToken(ctx, "0xabc")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, f.cfg.RecoveryTokenTTL, expiresAt.Sub(f.clock.Now()))
}

func TestRecoveryService_WindowCloses(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ctx := context.Background()

	require.NoError(t, f.recovery.RecordFailedSignature(ctx, "0xabc"))
	f.clock.Advance(f.cfg.FailedSignatureWindow + time.Minute)

	_, _, err := f.recovery.IssueToken(ctx, "0xabc")
	assert.ErrorIs(t, err, core.ErrRecoveryNotEligible)
}

func TestRecoveryService_SingleUse(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ctx := context.Background()

	require.NoError(t, f.recovery.RecordFailedSignature(ctx, "0xabc"))
	token, _, err := f.recovery.IssueToken(ctx, "0xabc")
	require.NoError(t, err)

	address, err := f.recovery.Consume(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "0xabc", address)

	_, err = f.recovery.Consume(ctx, token)
	assert.ErrorIs(t, err, core.ErrRecoveryTokenInvalid)
}

func TestRecoveryService_ExpiredToken(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ctx := context.Background()

	require.NoError(t, f.recovery.RecordFailedSignature(ctx, "0xabc"))
	token, _, err := f.recovery.IssueToken(ctx, "0xabc")
	require.NoError(t, err)

	f.clock.Advance(f.cfg.RecoveryTokenTTL + time.Minute)

	_, err = f.recovery.Consume(ctx, token)
	assert.ErrorIs(t, err, core.ErrRecoveryTokenInvalid)
}

func TestRecoveryService_UnknownToken(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	_, err := f.recovery.Consume(context.Background(), "bogus")
	assert.ErrorIs(t, err, core.ErrRecoveryTokenInvalid)
}
