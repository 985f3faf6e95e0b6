package tokenizer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/HumansWindow/lastproject-sub007/core"
	"github.com/HumansWindow/lastproject-sub007/ports"
)

// AudienceAccess types access tokens so they cannot be confused with other
// token kinds issued under the same key.
const AudienceAccess = "auth:access"

// JWTTokenizer implements ports.AccessTokenizer with ES256-signed JWTs.
type JWTTokenizer struct {
	signKey   *ecdsa.PrivateKey
	issuer    string
	accessTTL time.Duration
}

// NewJWTTokenizer creates a tokenizer signing with the given ECDSA key.
func NewJWTTokenizer(signKey *ecdsa.PrivateKey, issuer string, accessTTL time.Duration) *JWTTokenizer {
	return &JWTTokenizer{signKey: signKey, issuer: issuer, accessTTL: accessTTL}
}

// Issue mints a signed access token embedding identity, session, and device.
func (j *JWTTokenizer) Issue(identityID, sessionID, deviceID string, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(j.accessTTL)

	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.issuer,
			Subject:   identityID,
			Audience:  jwt.ClaimStrings{AudienceAccess},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
		SessionID: sessionID,
		DeviceID:  deviceID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)

	signed, err := token.SignedString(j.signKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign access token: %w", err)
	}

	return signed, expiresAt, nil
}

// Verify parses and validates an access token and returns its claims.
func (j *JWTTokenizer) Verify(tokenStr string, now time.Time) (ports.AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return &j.signKey.PublicKey, nil
	},
		jwt.WithAudience(AudienceAccess),
		jwt.WithIssuer(j.issuer),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ports.AccessClaims{}, core.ErrTokenExpired
		}
		return ports.AccessClaims{}, fmt.Errorf("failed to parse access token: %w", core.ErrInvalidToken)
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return ports.AccessClaims{}, core.ErrInvalidToken
	}
	if claims.Subject == "" || claims.SessionID == "" {
		return ports.AccessClaims{}, core.ErrInvalidToken
	}

	return ports.AccessClaims{
		IdentityID: claims.Subject,
		SessionID:  claims.SessionID,
		DeviceID:   claims.DeviceID,
		ExpiresAt:  claims.ExpiresAt.Time,
	}, nil
}
