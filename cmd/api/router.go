package api

import (
	"net/http"

	"mailbrief-backend/internal/auth/delivery"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, h *Handler) {
	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/login", h.authHandler.Login)
			auth.POST("/register", h.authHandler.Register)
			auth.POST("/refresh", h.authHandler.RefreshToken)
			auth.POST("/logout", h.authHandler.Logout)
			auth.GET("/me", delivery.AuthMiddleware(h.authUsecase), h.authHandler.Me)
		}

		// Connected account routes (protected)
		accounts := api.Group("/accounts")
		accounts.Use(delivery.AuthMiddleware(h.authUsecase))
		{
			accounts.GET("", h.accountHandler.List)
			accounts.POST("/google", h.accountHandler.ConnectGoogle)
			accounts.POST("/imap", h.accountHandler.ConnectIMAP)
			accounts.DELETE("/:id", h.accountHandler.Disconnect)
		}

		// Digest routes (protected)
		digests := api.Group("/digests")
		digests.Use(delivery.AuthMiddleware(h.authUsecase))
		{
			digests.GET("", h.digestHandler.List)
			digests.GET("/status", h.digestHandler.Status)
			digests.POST("/generate", h.digestHandler.Generate)
			digests.POST("/generate-all", h.digestHandler.GenerateAll)
		}

		// Notification routes (protected)
		notifications := api.Group("/notifications")
		notifications.Use(delivery.AuthMiddleware(h.authUsecase))
		{
			notifications.POST("/send", h.digestHandler.Notify)
		}

		// Notification preference routes (protected)
		settings := api.Group("/settings")
		settings.Use(delivery.AuthMiddleware(h.authUsecase))
		{
			settings.GET("/notifications", h.authHandler.GetNotificationPreferences)
			settings.PUT("/notifications", h.authHandler.UpdateNotificationPreferences)
		}

		// FCM routes (protected)
		fcm := api.Group("/fcm")
		fcm.Use(delivery.AuthMiddleware(h.authUsecase))
		{
			fcm.POST("/register", h.authHandler.RegisterDevice)
			fcm.DELETE("/:token", h.authHandler.UnregisterDevice)
		}
	}
}
