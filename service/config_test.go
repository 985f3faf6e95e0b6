package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("AUTH_ISSUER", "test-issuer")
	t.Setenv("AUTH_ACCESS_TTL", "5m")
	t.Setenv("AUTH_REFRESH_TTL", "48h")
	t.Setenv("AUTH_MAX_SESSIONS", "2")
	t.Setenv("AUTH_STRICT_DEVICE_BINDING", "false")

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "test-issuer", cfg.Issuer)
	assert.Equal(t, 5*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 48*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, 2, cfg.MaxSessions)
	assert.False(t, cfg.StrictDeviceBinding)
}

func TestLoadConfigFromEnv_Invalid(t *testing.T) {
	cases := map[string]struct {
		env   string
		value string
	}{
		"bad duration":          {"AUTH_CHALLENGE_TTL", "soon"},
		"negative duration":     {"AUTH_ACCESS_TTL", "-1m"},
		"zero sessions":         {"AUTH_MAX_SESSIONS", "0"},
		"bad bool":              {"AUTH_STRICT_DEVICE_BINDING", "maybe"},
		"token entropy too low": {"AUTH_REFRESH_TOKEN_BYTES", "16"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(tc.env, tc.value)

			_, err := LoadConfigFromEnv()
			assert.ErrorIs(t, err, ErrConfig)
		})
	}
}

func TestLoadConfigFromEnv_AccessMustBeShorterThanRefresh(t *testing.T) {
	t.Setenv("AUTH_ACCESS_TTL", "48h")
	t.Setenv("AUTH_REFRESH_TTL", "24h")

	_, err := LoadConfigFromEnv()
	assert.ErrorIs(t, err, ErrConfig)
}
