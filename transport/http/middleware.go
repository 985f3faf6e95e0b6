package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/HumansWindow/lastproject-sub007/core"
	"github.com/HumansWindow/lastproject-sub007/service"
)

// contextClaims is the gin context key holding verified access claims.
const contextClaims = "accessClaims"

// AuthMiddleware validates bearer access tokens. A valid token whose session
// has been closed is rejected, so revocation takes effect immediately.
func AuthMiddleware(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		token := strings.TrimPrefix(header, "Bearer ")

		claims, err := auth.VerifyAccess(c.Request.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, core.ErrTokenExpired):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token expired"})
			case errors.Is(err, core.ErrSessionRevoked):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session has been revoked"})
			default:
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			}
			return
		}

		c.Set(contextClaims, claims)
		c.Next()
	}
}
