package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HumansWindow/lastproject-sub007/core"
	"github.com/HumansWindow/lastproject-sub007/ports"
)

func TestDeviceService_FirstSightBinds(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ctx := context.Background()

	require.NoError(t, f.devices.ValidatePairing(ctx, "d1", "0xAAA"))

	// Same wallet keeps working, any casing.
	assert.NoError(t, f.devices.ValidatePairing(ctx, "d1", "0xaaa"))
	assert.NoError(t, f.devices.ValidatePairing(ctx, "d1", "0xAAA"))
}

func TestDeviceService_MismatchRejectedStrict(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ctx := context.Background()

	require.NoError(t, f.devices.ValidatePairing(ctx, "d1", "0xaaa"))

	// The invariant holds for any call ordering.
	for i := 0; i < 3; i++ {
		err := f.devices.ValidatePairing(ctx, "d1", "0xbbb")
		assert.ErrorIs(t, err, core.ErrDeviceWalletMismatch)
		assert.NoError(t, f.devices.ValidatePairing(ctx, "d1", "0xaaa"))
	}

	assert.True(t, f.publisher.hasKind(ports.EventDeviceMismatch))
}

func TestDeviceService_ConcurrentFirstSightSingleWinner(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ctx := context.Background()
	wallets := []string{"0xaaa", "0xbbb"}

	// Two wallets race to claim each unseen device; in strict mode at most
	// one may ever be allowed, whatever the interleaving.
	for i := 0; i < 200; i++ {
		deviceID := fmt.Sprintf("d-race-%d", i)

		var wg sync.WaitGroup
		var mu sync.Mutex
		allowed := make(map[string]bool)

		for g := 0; g < 8; g++ {
			wallet := wallets[g%2]
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := f.devices.ValidatePairing(ctx, deviceID, wallet); err == nil {
					mu.Lock()
					allowed[wallet] = true
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Len(t, allowed, 1, "two wallets must never share one device")
	}
}

func TestDeviceService_AdvisoryModeAllowsButKeepsBinding(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StrictDeviceBinding = false
	f := newFixture(t, cfg)
	ctx := context.Background()

	require.NoError(t, f.devices.ValidatePairing(ctx, "d1", "0xaaa"))
	assert.NoError(t, f.devices.ValidatePairing(ctx, "d1", "0xbbb"))

	// The original binding survives; the event still fires.
	assert.True(t, f.publisher.hasKind(ports.EventDeviceMismatch))

	cfgStrict := f.devices
	cfgStrict.strict = true
	assert.ErrorIs(t, cfgStrict.ValidatePairing(ctx, "d1", "0xbbb"), core.ErrDeviceWalletMismatch)
	assert.NoError(t, cfgStrict.ValidatePairing(ctx, "d1", "0xaaa"))
}

func TestDeviceService_RebindTransfersDevice(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ctx := context.Background()

	require.NoError(t, f.devices.ValidatePairing(ctx, "d1", "0xaaa"))
	require.ErrorIs(t, f.devices.ValidatePairing(ctx, "d1", "0xbbb"), core.ErrDeviceWalletMismatch)

	require.NoError(t, f.devices.Rebind(ctx, "d1", "0xBBB"))

	assert.NoError(t, f.devices.ValidatePairing(ctx, "d1", "0xbbb"))
	assert.ErrorIs(t, f.devices.ValidatePairing(ctx, "d1", "0xaaa"), core.ErrDeviceWalletMismatch)
}

func TestDeviceService_EmptyDeviceID(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	err := f.devices.ValidatePairing(context.Background(), "", "0xaaa")
	assert.ErrorIs(t, err, core.ErrDeviceWalletMismatch)
}
