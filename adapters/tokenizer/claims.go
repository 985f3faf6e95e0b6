package tokenizer

import "github.com/golang-jwt/jwt/v5"

// AccessClaims combines standard claims with the session context an access
// token must carry to be self-contained.
type AccessClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
	DeviceID  string `json:"did"`
}
