package routes

import (
	"os"

	"holophrame-api/internal/handlers"
	"holophrame-api/internal/middleware"
	"holophrame-api/internal/realtime"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SetupRoutes wires the HTTP surface. The hub and dispatcher are constructed
// once in main and passed down; the websocket endpoint takes no auth
// middleware because connections authenticate in-band after the upgrade.
func SetupRoutes(hub *realtime.Hub, events *realtime.Dispatcher, log *zap.SugaredLogger) *gin.Engine {
	// Create a new GIN Router
	ginRouter := gin.Default()

	corsOrigin := os.Getenv("CORS_ORIGIN")
	if corsOrigin == "" {
		corsOrigin = "*"
	}

	// CORS middleware (for frontend integration)
	ginRouter.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", corsOrigin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	authHandler := handlers.NewAuthHandler(log)
	postHandler := handlers.NewPostHandler(events, log)
	messageHandler := handlers.NewMessageHandler(events, log)
	notificationHandler := handlers.NewNotificationHandler(log)
	userHandler := handlers.NewUserHandler(log)
	wsHandler := handlers.NewWSHandler(hub, log)

	// Health check endpoint
	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Holophrame API is running",
		})
	})

	// Websocket endpoint; anonymous until the auth frame
	ginRouter.GET("/ws", wsHandler.Handle)

	// Public routes (no authentication required)
	api := ginRouter.Group("/api")
	{
		api.POST("/auth/register", authHandler.Register)
		api.POST("/auth/login", authHandler.Login)
		api.GET("/feed/public", postHandler.Public)
		api.GET("/posts/:id", postHandler.Get)
		api.GET("/users/profile/:username", userHandler.Profile)
		api.GET("/users/search/:query", userHandler.Search)
	}

	// Protected routes (authentication required)
	protectedRoutes := api.Group("")
	protectedRoutes.Use(middleware.JWTAuthMiddleware())
	{
		// Feed and posts
		protectedRoutes.GET("/feed", postHandler.Feed)
		protectedRoutes.POST("/posts", postHandler.Create)
		protectedRoutes.PUT("/posts/:id", postHandler.Update)
		protectedRoutes.DELETE("/posts/:id", postHandler.Delete)
		protectedRoutes.POST("/posts/:id/bookmark", postHandler.Bookmark)
		protectedRoutes.DELETE("/posts/:id/bookmark", postHandler.Unbookmark)
		protectedRoutes.GET("/bookmarks", postHandler.Bookmarks)
		// Direct messages
		protectedRoutes.GET("/messages/conversations", messageHandler.Conversations)
		protectedRoutes.GET("/messages/conversation/:userId", messageHandler.Conversation)
		protectedRoutes.POST("/messages/send", messageHandler.Send)
		protectedRoutes.GET("/messages/unread-count", messageHandler.UnreadCount)
		protectedRoutes.PUT("/messages/mark-read/:userId", messageHandler.MarkRead)
		// Notifications
		protectedRoutes.GET("/notifications", notificationHandler.List)
		protectedRoutes.GET("/notifications/unread-count", notificationHandler.UnreadCount)
		protectedRoutes.PUT("/notifications/read-all", notificationHandler.MarkAllRead)
		protectedRoutes.PUT("/notifications/read/:id", notificationHandler.MarkRead)
		protectedRoutes.DELETE("/notifications/delete/:id", notificationHandler.Delete)
		// Users
		protectedRoutes.PATCH("/users/profile", userHandler.UpdateProfile)
		protectedRoutes.GET("/users/settings/blocked-muted", userHandler.BlockedMuted)
		protectedRoutes.POST("/users/block/:userId", userHandler.Block)
		protectedRoutes.DELETE("/users/block/:userId", userHandler.Unblock)
		protectedRoutes.POST("/users/mute/:userId", userHandler.Mute)
		protectedRoutes.DELETE("/users/mute/:userId", userHandler.Unmute)
	}

	return ginRouter
}
