package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"vehicle-rental-server/config"
	"vehicle-rental-server/database"
	"vehicle-rental-server/jobs"
	"vehicle-rental-server/middleware"
	"vehicle-rental-server/repository"
	"vehicle-rental-server/routes"
	"vehicle-rental-server/services"
	ws "vehicle-rental-server/websocket"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Load configuration
	config.Load()

	// Initialize database
	if err := database.Initialize(); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}

	// Set Gin mode
	if config.AppConfig.Server.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create router
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false

	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.RateLimitMiddleware())
	router.Use(middleware.CORSMiddleware())

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Vehicle Rental Server is running",
			"time":    time.Now().UTC(),
		})
	})

	// Realtime hub
	hub := ws.NewHub()
	go hub.Run()

	// Wire stores and services
	bookingRepo := repository.NewBookingRepository(database.DB)
	threadRepo := repository.NewThreadRepository(database.DB)
	userRepo := repository.NewUserRepository(database.DB)

	threadService := services.NewThreadService(threadRepo, threadRepo, userRepo)
	bookingService := services.NewBookingService(bookingRepo, threadService, config.AppConfig.Booking.ConflictFailOpen)
	inboxService := services.NewInboxService(threadRepo, bookingRepo)

	// API routes
	api := router.Group("/api/v1")
	{
		// Auth routes with strict rate limiting
		authRoutes := api.Group("/auth")
		authRoutes.Use(middleware.AuthRateLimitMiddleware())
		routes.RegisterAuthRoutes(authRoutes)

		routes.RegisterVehicleRoutes(api)
		routes.RegisterBookingRoutes(api, bookingService, hub)
		routes.RegisterFavoriteRoutes(api)
		routes.RegisterUploadRoutes(api)
		routes.RegisterChatRoutes(api, routes.ChatDeps{
			Threads: threadService,
			Inbox:   inboxService,
			Hub:     hub,
		})
	}

	// Start background jobs
	tripStatusJob := jobs.NewTripStatusJob()
	tripStatusJob.Start()
	defer tripStatusJob.Stop()

	// Token cleanup job
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		for range ticker.C {
			jwtService := services.NewJWTService()
			if err := jwtService.CleanupExpiredTokens(); err != nil {
				log.Printf("❌ Token cleanup failed: %v", err)
			}
		}
	}()

	port := config.AppConfig.Server.Port
	log.Printf("Server starting on port %s", port)
	if err := router.Run("0.0.0.0:" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
