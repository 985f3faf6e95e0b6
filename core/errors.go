package core

import "errors"

var (
	// ErrChallengeNotFound is returned when no challenge exists for an
	// address, including the replay case where it was already consumed.
	ErrChallengeNotFound = errors.New("challenge not found")

	// ErrChallengeExpired is returned when a stored challenge is past its TTL.
	ErrChallengeExpired = errors.New("challenge has expired")

	// ErrInvalidSignature is returned when signature recovery does not yield
	// the claimed address.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrUnsupportedChain is returned when no recoverer is registered for
	// the requested chain family.
	ErrUnsupportedChain = errors.New("unsupported chain family")

	// ErrInvalidAddress is returned when an address fails basic validation.
	ErrInvalidAddress = errors.New("invalid wallet address")

	// ErrDeviceWalletMismatch is returned when a device already bound to one
	// wallet attempts to authenticate with another.
	ErrDeviceWalletMismatch = errors.New("device is bound to a different wallet")

	// ErrTokenTheftSuspected is returned when an already-rotated or unknown
	// refresh token is presented. The whole session family is revoked.
	ErrTokenTheftSuspected = errors.New("refresh token reuse detected, possible theft")

	// ErrTokenExpired is returned when a token is past its expiry.
	ErrTokenExpired = errors.New("token has expired")

	// ErrTokenRevoked is returned when a token was explicitly revoked.
	ErrTokenRevoked = errors.New("token has been revoked")

	// ErrDeviceMismatch is returned when a refresh token is presented from a
	// device other than the one it was issued to.
	ErrDeviceMismatch = errors.New("token was issued to a different device")

	// ErrSessionNotFound is returned when a session id is unknown.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionRevoked is returned when the backing session is no longer active.
	ErrSessionRevoked = errors.New("session has been revoked")

	// ErrRecoveryNotEligible is returned when recovery is requested without a
	// recent failed signature attempt for the address.
	ErrRecoveryNotEligible = errors.New("address not eligible for recovery")

	// ErrRecoveryTokenInvalid is returned for expired, consumed, or unknown
	// recovery tokens.
	ErrRecoveryTokenInvalid = errors.New("recovery token is invalid")

	// ErrIdentityNotFound is returned when the user directory has no identity
	// for an address.
	ErrIdentityNotFound = errors.New("identity not found")

	// ErrInvalidToken is returned when a token cannot be parsed or validated.
	ErrInvalidToken = errors.New("invalid token")
)
