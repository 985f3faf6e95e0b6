package service

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// ErrConfig is returned for invalid configuration.
var ErrConfig = errors.New("invalid config")

// Config defines all runtime configuration for the authentication subsystem.
//
// It is intentionally explicit and environment-driven so deployments can tune
// security parameters without code changes.
type Config struct {
	// Issuer is the value set in the "iss" claim of access tokens.
	Issuer string

	// ChallengeTTL is the lifetime of issued challenges.
	ChallengeTTL time.Duration

	// AccessTokenTTL is the lifetime of stateless access tokens.
	AccessTokenTTL time.Duration

	// RefreshTokenTTL is the lifetime of refresh tokens.
	RefreshTokenTTL time.Duration

	// RecoveryTokenTTL is the lifetime of single-use recovery tokens.
	RecoveryTokenTTL time.Duration

	// FailedSignatureWindow is how long after a failed signature attempt an
	// address stays eligible for recovery-token issuance.
	FailedSignatureWindow time.Duration

	// SweepInterval is the period of the background expiry sweeps.
	SweepInterval time.Duration

	// MaxSessions caps active sessions per identity; the least recently
	// active session is evicted on overflow.
	MaxSessions int

	// StrictDeviceBinding rejects authentication when a device is already
	// bound to a different wallet. When false, the mismatch is allowed but
	// logged and published as a security event.
	StrictDeviceBinding bool

	// RefreshTokenBytes is the entropy of opaque refresh and recovery tokens.
	RefreshTokenBytes int
}

// DefaultConfig returns a secure default configuration suitable for development.
func DefaultConfig() Config {
	return Config{
		Issuer:                "walletauth",
		ChallengeTTL:          time.Hour,
		AccessTokenTTL:        15 * time.Minute,
		RefreshTokenTTL:       7 * 24 * time.Hour,
		RecoveryTokenTTL:      15 * time.Minute,
		FailedSignatureWindow: 10 * time.Minute,
		SweepInterval:         time.Minute,
		MaxSessions:           5,
		StrictDeviceBinding:   true,
		RefreshTokenBytes:     32,
	}
}

// LoadConfigFromEnv loads configuration from AUTH_-prefixed environment
// variables, falling back to defaults. Durations must be valid Go duration
// strings. Returns ErrConfig on invalid values.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("AUTH_ISSUER"); v != "" {
		cfg.Issuer = v
	}

	durations := []struct {
		env    string
		target *time.Duration
	}{
		{"AUTH_CHALLENGE_TTL", &cfg.ChallengeTTL},
		{"AUTH_ACCESS_TTL", &cfg.AccessTokenTTL},
		{"AUTH_REFRESH_TTL", &cfg.RefreshTokenTTL},
		{"AUTH_RECOVERY_TTL", &cfg.RecoveryTokenTTL},
		{"AUTH_FAILED_SIG_WINDOW", &cfg.FailedSignatureWindow},
		{"AUTH_SWEEP_INTERVAL", &cfg.SweepInterval},
	}
	for _, d := range durations {
		v := os.Getenv(d.env)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil || parsed <= 0 {
			return Config{}, ErrConfig
		}
		*d.target = parsed
	}

	if v := os.Getenv("AUTH_MAX_SESSIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, ErrConfig
		}
		cfg.MaxSessions = n
	}

	if v := os.Getenv("AUTH_STRICT_DEVICE_BINDING"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, ErrConfig
		}
		cfg.StrictDeviceBinding = b
	}

	if v := os.Getenv("AUTH_REFRESH_TOKEN_BYTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 32 || n > 64 {
			return Config{}, ErrConfig
		}
		cfg.RefreshTokenBytes = n
	}

	// Access tokens must be shorter-lived than the refresh tokens that renew them.
	if cfg.AccessTokenTTL >= cfg.RefreshTokenTTL {
		return Config{}, ErrConfig
	}

	return cfg, nil
}
