package http

import (
	"github.com/gin-gonic/gin"

	"github.com/HumansWindow/lastproject-sub007/service"
)

// SetupRouter sets up the gin router for the auth and protected API routes.
func SetupRouter(auth *service.AuthService) *gin.Engine {
	router := gin.Default()

	handlers := NewAuthHandlers(auth)

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/connect", handlers.Connect)
		authGroup.POST("/authenticate", handlers.Authenticate)
		authGroup.POST("/refresh", handlers.Refresh)
		authGroup.POST("/recovery/challenge", handlers.RecoveryChallenge)
		authGroup.POST("/recovery/authenticate", handlers.RecoveryAuthenticate)
		authGroup.POST("/logout", handlers.Logout)
		authGroup.POST("/heartbeat", handlers.Heartbeat)
	}

	api := router.Group("/api")
	api.Use(AuthMiddleware(auth))
	{
		api.GET("/me", handlers.Me)
		api.GET("/sessions", handlers.Sessions)
	}

	return router
}
