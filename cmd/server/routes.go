package main

import (
	"github.com/gin-gonic/gin"
	"github.com/puttlab/backend/internal/middleware"
	"github.com/puttlab/backend/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())

	// Health check
	r.GET("/health", svc.healthHandler.CheckHealth)

	api := r.Group("/api")
	{
		// Auth routes, rate limited per client IP
		auth := api.Group("/auth")
		if svc.cfg.RateLimit.Enabled {
			auth.Use(middleware.RateLimit(svc.limiters))
		}
		{
			auth.POST("/register", svc.authHandler.Register)
			auth.POST("/login", svc.authHandler.Login)
			auth.POST("/refresh", svc.authHandler.Refresh)
			auth.POST("/logout", svc.authHandler.Logout)
			auth.GET("/me", middleware.AuthRequired(svc.signer), svc.authHandler.GetCurrentUser)
		}

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthRequired(svc.signer))
		{
			// Test templates
			protected.GET("/templates", svc.practiceHandler.ListTemplates)
			protected.GET("/templates/:id", svc.practiceHandler.GetTemplate)
			protected.POST("/templates", svc.practiceHandler.CreateTemplate)
			protected.PUT("/templates/:id", svc.practiceHandler.UpdateTemplate)
			protected.DELETE("/templates/:id", svc.practiceHandler.DeleteTemplate)

			// Rounds
			protected.GET("/rounds", svc.practiceHandler.ListRounds)
			protected.GET("/rounds/:id", svc.practiceHandler.GetRound)
			protected.POST("/rounds", svc.practiceHandler.CreateRound)
			protected.DELETE("/rounds/:id", svc.practiceHandler.DeleteRound)
		}
	}
}
