package main

import (
	"log"

	"github.com/mossy-p/signal-relay/config"
	"github.com/mossy-p/signal-relay/internal/handlers"
	"github.com/mossy-p/signal-relay/internal/middleware"
	"github.com/mossy-p/signal-relay/internal/redis"
	"github.com/mossy-p/signal-relay/internal/relay"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Optional Redis presence mirror; room state authority stays in memory.
	var presence relay.Presence
	if cfg.Redis.Addr != "" {
		mirror, err := redis.Connect(cfg.Redis)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer mirror.Close()
		presence = mirror

		log.Println("Redis presence mirror enabled")
	}

	registry := relay.NewRegistry()
	hub := relay.NewHub(registry, presence)

	// Setup Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Global CORS middleware (runs before routing)
	router.Use(handlers.OriginFilter(cfg.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Room inspection API
	apiGroup := router.Group("/api")
	{
		// Login endpoint (public)
		apiGroup.POST("/auth/login", handlers.Login(cfg.JWTSecret))

		// List live rooms (requires JWT)
		apiGroup.GET("/rooms", middleware.JWTAuth(cfg.JWTSecret), handlers.ListRooms(hub))

		// Get room info (public)
		apiGroup.GET("/rooms/:roomId", handlers.GetRoom(hub))

		// Force-close a room (requires JWT)
		apiGroup.DELETE("/rooms/:roomId", middleware.JWTAuth(cfg.JWTSecret), handlers.CloseRoom(hub))
	}

	// WebSocket signaling endpoint; rooms are created and joined with
	// messages over the socket, not in the URL.
	router.GET("/ws", handlers.HandleSignaling(hub, registry))

	// Start server
	log.Printf("Starting signaling relay on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
