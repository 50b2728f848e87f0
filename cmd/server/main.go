package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"mahoot/internal/allocator"
	"mahoot/internal/auth"
	"mahoot/internal/bluesky"
	"mahoot/internal/catalog"
	"mahoot/internal/database"
	"mahoot/internal/followees"
	"mahoot/internal/handlers"
	"mahoot/internal/preferences"
	"mahoot/internal/stats"
	"mahoot/internal/views"
	"mahoot/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Connect to database
	dbConfig := database.LoadConfig()
	if err := database.Connect(dbConfig); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer database.Close()

	// Run migrations
	if err := database.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	db := database.DB

	// AppView client for followee bootstrap
	appViewURL := os.Getenv("BLUESKY_BASE_URL")
	if appViewURL == "" {
		appViewURL = "https://public.api.bsky.app"
	}
	client := bluesky.NewClient(appViewURL)

	// Core services
	prefsService := preferences.NewService(db)
	followeeService := followees.NewService(db, prefsService, client)
	viewTracker := views.NewTracker(db)
	statsService := stats.NewService(db)
	catalogService := catalog.NewService(db)
	allocService := allocator.NewService(prefsService, followeeService, viewTracker, statsService)

	// Background workers (Jetstream ingestion + periodic counters)
	workerService := worker.NewService(catalogService, followeeService, prefsService)
	if err := workerService.Start(); err != nil {
		log.Fatal("Failed to start background workers:", err)
	}

	setupGracefulShutdown(workerService)
	setupServer(allocService, prefsService, followeeService, statsService, workerService)
}

func setupGracefulShutdown(workerService *worker.Service) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("Received shutdown signal, gracefully shutting down...")
		workerService.Stop()
		database.Close()
		log.Println("Shutdown complete")
		os.Exit(0)
	}()
}

func setupServer(
	allocService *allocator.Service,
	prefsService *preferences.Service,
	followeeService *followees.Service,
	statsService *stats.Service,
	workerService *worker.Service,
) {
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Requester identity from XRPC service-auth tokens; mock in dev
	var verifier auth.Verifier
	if os.Getenv("GIN_MODE") == "release" {
		log.Println("Initializing service-auth verifier")
		verifier = auth.NewServiceAuthVerifier()
	} else {
		log.Println("Initializing mock verifier for development")
		verifier = auth.NewMockVerifier()
	}

	feedHandler := handlers.NewFeedHandler(allocService, followeeService, verifier, workerService)
	prefsHandler := handlers.NewPreferencesHandler(prefsService, verifier)
	followeesHandler := handlers.NewFolloweesHandler(followeeService, verifier)
	statsHandler := handlers.NewStatsHandler(prefsService, followeeService, statsService, verifier)
	docsHandler := handlers.NewDocsHandler()

	// Health check
	r.GET("/health", feedHandler.HealthCheck)

	// DID document for feed generator registration
	r.Static("/.well-known", "./static/.well-known")

	// Serve Markdown documentation as HTML
	r.GET("/doc/:doc", docsHandler.ServeMarkdownAsHTML)

	// AT Protocol custom feed endpoints
	xrpc := r.Group("/xrpc")
	{
		xrpc.GET("/app.bsky.feed.getFeedSkeleton", feedHandler.GetFeedSkeleton)
		xrpc.GET("/app.bsky.feed.describeFeedGenerator", feedHandler.DescribeFeedGenerator)
	}

	// API routes
	api := r.Group("/api")
	{
		api.GET("/preferences", prefsHandler.GetPreferences)
		api.PUT("/preferences", prefsHandler.UpdatePreferences)

		api.GET("/followees", followeesHandler.ListFollowees)
		api.PUT("/followees/:did/quota", followeesHandler.SetQuota)
		api.DELETE("/followees/:did", followeesHandler.RemoveFollowee)

		api.GET("/stats", statsHandler.GetStats)
		api.GET("/worker/status", feedHandler.WorkerStatus)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
