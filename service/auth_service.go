package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/HumansWindow/lastproject-sub007/core"
	"github.com/HumansWindow/lastproject-sub007/ports"
)

// SignatureVerifier checks that a signature over a message was produced by
// the key behind an address, under the scheme of a chain family.
type SignatureVerifier interface {
	Verify(address, message, signature string, family ports.ChainFamily) error
}

// AuthService orchestrates the full authentication flow: challenge
// consumption, signature verification, device pairing, identity lookup,
// session opening, and token issuance.
type AuthService struct {
	challenges *ChallengeService
	verifier   SignatureVerifier
	devices    *DeviceService
	tokens     *TokenService
	sessions   *SessionService
	recovery   *RecoveryService
	directory  ports.UserDirectory
	events     ports.EventPublisher
	logger     *slog.Logger
}

// NewAuthService wires the component services into the authentication flow.
func NewAuthService(
	challenges *ChallengeService,
	verifier SignatureVerifier,
	devices *DeviceService,
	tokens *TokenService,
	sessions *SessionService,
	recovery *RecoveryService,
	directory ports.UserDirectory,
	events ports.EventPublisher,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		challenges: challenges,
		verifier:   verifier,
		devices:    devices,
		tokens:     tokens,
		sessions:   sessions,
		recovery:   recovery,
		directory:  directory,
		events:     events,
		logger:     logger,
	}
}

// AuthenticateParams carries one signed-challenge authentication attempt.
type AuthenticateParams struct {
	Address   string
	Message   string
	Signature string
	DeviceID  string
	IPAddress string
	UserAgent string
	Chain     ports.ChainFamily
}

// AuthResult is a successful authentication: the minted token pair plus the
// identity it belongs to.
type AuthResult struct {
	Pair     core.TokenPair
	Identity core.Identity
}

// Connect issues a challenge for an address.
func (s *AuthService) Connect(ctx context.Context, address string) (core.Challenge, error) {
	return s.challenges.Issue(ctx, address)
}

// Authenticate verifies a signed challenge and, on success, pairs the
// device, resolves or creates the identity, opens a session, and mints a
// token pair. Nothing is persisted until the final writes, so a cancelled
// attempt needs no compensation.
func (s *AuthService) Authenticate(ctx context.Context, params AuthenticateParams) (AuthResult, error) {
	address := core.NormalizeAddress(params.Address)
	chain := params.Chain
	if chain == "" {
		chain = ports.ChainFamilyEVM
	}

	if err := s.challenges.Consume(ctx, address, params.Message); err != nil {
		return AuthResult{}, err
	}

	if err := s.verifier.Verify(address, params.Message, params.Signature, chain); err != nil {
		if errors.Is(err, core.ErrInvalidSignature) {
			// Opens the recovery eligibility window for this address.
			if recErr := s.recovery.RecordFailedSignature(ctx, address); recErr != nil {
				s.logger.Warn("failed to record signature failure", "error", recErr)
			}
		}
		return AuthResult{}, err
	}

	return s.establish(ctx, address, params.DeviceID, params.IPAddress, params.UserAgent)
}

// Refresh rotates a refresh token, cross-checking the presenting device.
func (s *AuthService) Refresh(ctx context.Context, refreshToken, deviceID, ipAddress string) (core.TokenPair, error) {
	return s.tokens.Rotate(ctx, refreshToken, deviceID, ipAddress)
}

// RecoveryChallenge issues a recovery token for an address that recently
// failed signature verification.
func (s *AuthService) RecoveryChallenge(ctx context.Context, address string) (string, time.Time, error) {
	return s.recovery.IssueToken(ctx, address)
}

// RecoveryAuthenticate consumes a recovery token and proceeds as if
// signature verification succeeded. The device pairing check still applies.
func (s *AuthService) RecoveryAuthenticate(ctx context.Context, token, deviceID, ipAddress, userAgent string) (AuthResult, error) {
	address, err := s.recovery.Consume(ctx, token)
	if err != nil {
		return AuthResult{}, err
	}

	return s.establish(ctx, address, deviceID, ipAddress, userAgent)
}

// Logout closes a session; its refresh tokens are revoked by the cascade.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	if err := s.sessions.Close(ctx, sessionID, core.CloseReasonLogout); err != nil {
		return err
	}

	err = s.events.Publish(ctx, ports.SecurityEvent{
		Kind:       ports.EventLogout,
		IdentityID: session.IdentityID,
		SessionID:  session.ID,
		DeviceID:   session.DeviceID,
	})
	if err != nil {
		s.logger.Warn("failed to publish logout event", "error", err)
	}

	return nil
}

// Heartbeat records session activity. False means the session is gone;
// callers must not treat that as fatal.
func (s *AuthService) Heartbeat(ctx context.Context, sessionID, ipAddress, userAgent string) (bool, error) {
	return s.sessions.Heartbeat(ctx, sessionID, ipAddress, userAgent)
}

// VerifyAccess validates an access token for request authorization.
func (s *AuthService) VerifyAccess(ctx context.Context, accessToken string) (ports.AccessClaims, error) {
	return s.tokens.VerifyAccess(ctx, accessToken)
}

// Sessions exposes the session registry for introspection endpoints.
func (s *AuthService) Sessions() *SessionService {
	return s.sessions
}

// establish runs the post-verification half of authentication shared by the
// signature and recovery paths.
func (s *AuthService) establish(ctx context.Context, address, deviceID, ipAddress, userAgent string) (AuthResult, error) {
	if err := s.devices.ValidatePairing(ctx, deviceID, address); err != nil {
		return AuthResult{}, err
	}

	identity, found, err := s.directory.FindIdentityByAddress(ctx, address)
	if err != nil {
		return AuthResult{}, fmt.Errorf("failed to look up identity: %w", err)
	}
	if !found {
		identity, err = s.directory.CreateIdentity(ctx, address)
		if err != nil {
			return AuthResult{}, fmt.Errorf("failed to create identity: %w", err)
		}
		s.logger.Info("created identity for new wallet", "identity_id", identity.ID)
	} else if err := s.directory.TouchIdentity(ctx, identity.ID); err != nil {
		s.logger.Warn("failed to touch identity", "identity_id", identity.ID, "error", err)
	}

	session, err := s.sessions.Open(ctx, identity.ID, deviceID, ipAddress, userAgent)
	if err != nil {
		return AuthResult{}, err
	}

	pair, err := s.tokens.IssuePair(ctx, identity.ID, deviceID, session.ID)
	if err != nil {
		return AuthResult{}, err
	}

	return AuthResult{Pair: pair, Identity: identity}, nil
}
