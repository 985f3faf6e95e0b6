package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/HumansWindow/lastproject-sub007/core"
	"github.com/HumansWindow/lastproject-sub007/ports"
	"github.com/HumansWindow/lastproject-sub007/service"
)

// AuthHandlers contains HTTP handlers for the auth endpoints.
type AuthHandlers struct {
	auth *service.AuthService
}

// NewAuthHandlers creates new auth handlers.
func NewAuthHandlers(auth *service.AuthService) *AuthHandlers {
	return &AuthHandlers{auth: auth}
}

// ConnectRequest asks for a challenge for a wallet address.
type ConnectRequest struct {
	Address string `json:"address" binding:"required"`
}

// ConnectResponse returns the message to sign.
type ConnectResponse struct {
	Challenge string    `json:"challenge"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthenticateRequest submits a signed challenge.
type AuthenticateRequest struct {
	Address   string `json:"address" binding:"required"`
	Message   string `json:"message" binding:"required"`
	Signature string `json:"signature" binding:"required"`
	DeviceID  string `json:"device_id" binding:"required"`
	Chain     string `json:"chain,omitempty"`
	Email     string `json:"email,omitempty"`
}

// RefreshRequest rotates a refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
	DeviceID     string `json:"device_id" binding:"required"`
}

// RecoveryChallengeRequest asks for a fallback recovery token.
type RecoveryChallengeRequest struct {
	Address string `json:"address" binding:"required"`
}

// RecoveryAuthenticateRequest redeems a recovery token.
type RecoveryAuthenticateRequest struct {
	RecoveryToken string `json:"recovery_token" binding:"required"`
	DeviceID      string `json:"device_id" binding:"required"`
}

// SessionRequest targets one session (logout, heartbeat).
type SessionRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

// TokenResponse returns a minted token pair.
type TokenResponse struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
	SessionID        string    `json:"session_id"`
	TokenType        string    `json:"token_type"`
}

// IdentityResponse is the identity summary returned on authentication.
type IdentityResponse struct {
	ID        string   `json:"id"`
	Addresses []string `json:"addresses"`
}

func tokenResponse(pair core.TokenPair) TokenResponse {
	return TokenResponse{
		AccessToken:      pair.AccessToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshToken:     pair.RefreshToken,
		RefreshExpiresAt: pair.RefreshExpiresAt,
		SessionID:        pair.SessionID,
		TokenType:        "Bearer",
	}
}

// Connect handles the challenge request.
func (h *AuthHandlers) Connect(c *gin.Context) {
	var req ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	challenge, err := h.auth.Connect(c.Request.Context(), req.Address)
	if err != nil {
		if errors.Is(err, core.ErrInvalidAddress) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid address"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create challenge"})
		return
	}

	c.JSON(http.StatusOK, ConnectResponse{
		Challenge: challenge.Message,
		IssuedAt:  challenge.IssuedAt,
		ExpiresAt: challenge.ExpiresAt,
	})
}

// Authenticate handles signed-challenge submission.
func (h *AuthHandlers) Authenticate(c *gin.Context) {
	var req AuthenticateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	result, err := h.auth.Authenticate(c.Request.Context(), service.AuthenticateParams{
		Address:   req.Address,
		Message:   req.Message,
		Signature: req.Signature,
		DeviceID:  req.DeviceID,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Chain:     ports.ChainFamily(req.Chain),
	})
	if err != nil {
		status, msg := authErrorStatus(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tokens": tokenResponse(result.Pair),
		"identity": IdentityResponse{
			ID:        result.Identity.ID,
			Addresses: result.Identity.Addresses,
		},
	})
}

// Refresh handles token rotation.
func (h *AuthHandlers) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	pair, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken, req.DeviceID, c.ClientIP())
	if err != nil {
		status, msg := refreshErrorStatus(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, tokenResponse(pair))
}

// RecoveryChallenge handles recovery token issuance.
func (h *AuthHandlers) RecoveryChallenge(c *gin.Context) {
	var req RecoveryChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	token, expiresAt, err := h.auth.RecoveryChallenge(c.Request.Context(), req.Address)
	if err != nil {
		if errors.Is(err, core.ErrRecoveryNotEligible) {
			c.JSON(http.StatusForbidden, gin.H{"error": "address not eligible for recovery"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue recovery token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"recovery_token": token, "expires_at": expiresAt})
}

// RecoveryAuthenticate handles recovery token redemption.
func (h *AuthHandlers) RecoveryAuthenticate(c *gin.Context) {
	var req RecoveryAuthenticateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	result, err := h.auth.RecoveryAuthenticate(c.Request.Context(),
		req.RecoveryToken, req.DeviceID, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		if errors.Is(err, core.ErrRecoveryTokenInvalid) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "recovery token is invalid"})
			return
		}
		if errors.Is(err, core.ErrDeviceWalletMismatch) {
			c.JSON(http.StatusForbidden, gin.H{"error": "device is bound to a different wallet"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "recovery authentication failed"})
		return
	}

	c.JSON(http.StatusOK, tokenResponse(result.Pair))
}

// Logout handles session logout.
func (h *AuthHandlers) Logout(c *gin.Context) {
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.auth.Logout(c.Request.Context(), req.SessionID); err != nil {
		if errors.Is(err, core.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to logout"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Heartbeat handles session keep-alive.
func (h *AuthHandlers) Heartbeat(c *gin.Context) {
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	alive, err := h.auth.Heartbeat(c.Request.Context(), req.SessionID, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "heartbeat failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"active": alive})
}

// Me returns the authenticated identity's claims.
func (h *AuthHandlers) Me(c *gin.Context) {
	claims, exists := c.Get(contextClaims)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "claims not found in context"})
		return
	}
	ac := claims.(ports.AccessClaims)

	c.JSON(http.StatusOK, gin.H{
		"identity_id": ac.IdentityID,
		"session_id":  ac.SessionID,
		"device_id":   ac.DeviceID,
	})
}

// Sessions lists the caller's active sessions.
func (h *AuthHandlers) Sessions(c *gin.Context) {
	claims, exists := c.Get(contextClaims)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "claims not found in context"})
		return
	}
	ac := claims.(ports.AccessClaims)

	sessions, err := h.auth.Sessions().ActiveSessions(c.Request.Context(), ac.IdentityID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list sessions"})
		return
	}

	type sessionView struct {
		ID           string    `json:"id"`
		DeviceID     string    `json:"device_id"`
		IPAddress    string    `json:"ip_address"`
		UserAgent    string    `json:"user_agent"`
		CreatedAt    time.Time `json:"created_at"`
		LastActiveAt time.Time `json:"last_active_at"`
		Current      bool      `json:"current"`
	}

	views := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, sessionView{
			ID:           s.ID,
			DeviceID:     s.DeviceID,
			IPAddress:    s.IPAddress,
			UserAgent:    s.UserAgent,
			CreatedAt:    s.CreatedAt,
			LastActiveAt: s.LastActiveAt,
			Current:      s.ID == ac.SessionID,
		})
	}

	c.JSON(http.StatusOK, gin.H{"sessions": views})
}

func authErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrChallengeNotFound):
		return http.StatusBadRequest, "challenge not found"
	case errors.Is(err, core.ErrChallengeExpired):
		return http.StatusBadRequest, "challenge expired"
	case errors.Is(err, core.ErrInvalidSignature):
		return http.StatusUnauthorized, "invalid signature"
	case errors.Is(err, core.ErrUnsupportedChain):
		return http.StatusBadRequest, "unsupported chain family"
	case errors.Is(err, core.ErrDeviceWalletMismatch):
		return http.StatusForbidden, "device is bound to a different wallet"
	default:
		return http.StatusInternalServerError, "authentication failed"
	}
}

func refreshErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrTokenTheftSuspected):
		return http.StatusUnauthorized, "token reuse detected, re-authentication required"
	case errors.Is(err, core.ErrDeviceMismatch):
		return http.StatusUnauthorized, "token was issued to a different device"
	case errors.Is(err, core.ErrTokenExpired):
		return http.StatusUnauthorized, "refresh token expired"
	case errors.Is(err, core.ErrTokenRevoked):
		return http.StatusUnauthorized, "refresh token revoked"
	case errors.Is(err, core.ErrSessionRevoked):
		return http.StatusUnauthorized, "session has been revoked"
	default:
		return http.StatusInternalServerError, "failed to refresh tokens"
	}
}
