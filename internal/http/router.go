package http

import (
	"github.com/gin-gonic/gin"
	"github.com/techhatch/techhatch-server/internal/auth"
	"github.com/techhatch/techhatch-server/internal/http/handlers"
	"github.com/techhatch/techhatch-server/internal/http/middleware"
	"github.com/techhatch/techhatch-server/internal/security"
)

// NewRouter mounts the auth API surface onto a gin engine.
func NewRouter(service *auth.Service, tokens *security.TokenIssuer) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), middleware.RequestID())

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	authHandler := handlers.NewAuthHandler(service)
	otpHandler := handlers.NewOtpHandler(service)
	passwordHandler := handlers.NewPasswordHandler(service)

	api := engine.Group("/api/v1/auth")
	{
		api.POST("/register", authHandler.Register)
		api.POST("/login", middleware.OptionalAuth(tokens), authHandler.Login)
		api.GET("/me", middleware.RequireAuth(tokens), authHandler.Me)

		otpGroup := api.Group("/otp")
		{
			otpGroup.POST("/verify-registration", otpHandler.VerifyRegistration)
			otpGroup.POST("/verify-login", middleware.OptionalAuth(tokens), otpHandler.VerifyLogin)
			otpGroup.POST("/resend", otpHandler.Resend)
		}

		passwordGroup := api.Group("/password")
		{
			passwordGroup.POST("/forgot", passwordHandler.Forgot)
			passwordGroup.POST("/reset", passwordHandler.Reset)
		}
	}

	return engine
}
