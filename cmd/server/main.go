package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"pitchforge/internal/config"
	"pitchforge/internal/handlers"
	"pitchforge/internal/logging"
	"pitchforge/internal/middleware"
	"pitchforge/internal/services"
	"pitchforge/internal/store"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting PitchForge Server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// Load configuration
	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s, Contexts dir: %s)", cfg.Port, cfg.ContextsDir)

	// Missing credentials make every generation fail, so refuse to start.
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ %v", err)
	}

	// Initialize services
	contextStore := store.NewContextStore(cfg.ContextsDir)
	log.Println("✅ Context store initialized")

	usageLimiter := services.NewUsageLimiterService(cfg.DailyLimit)
	log.Printf("✅ Usage limiter initialized (%d requests/day)", cfg.DailyLimit)

	completionService := services.NewCompletionService(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel)
	log.Printf("✅ Completion service initialized (model: %s)", cfg.OpenAIModel)

	searchService := services.NewGoogleSearchService(cfg.GoogleAPIKey, cfg.GoogleCSEID)
	log.Println("✅ Search service initialized")

	metrics := services.InitMetrics()
	log.Println("✅ Prometheus metrics initialized")

	pitchService := services.NewPitchService(completionService, searchService, metrics)
	log.Println("✅ Pitch service initialized")

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "PitchForge v1.0",
		ReadTimeout:  120 * time.Second,
		WriteTimeout: 120 * time.Second, // generation calls can take a while
		IdleTimeout:  120 * time.Second,
		BodyLimit:    15 * 1024 * 1024, // headroom over the 10MB document limit
		UnescapePath: true,             // context names contain spaces (e.g. /api/contexts/Acme%20Corp)
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())

	// Prometheus metrics middleware
	prometheus := fiberprometheus.New("pitchforge")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	// Load rate limiting configuration
	rateLimitConfig := middleware.LoadRateLimitConfig()
	log.Printf("🛡️  [RATE-LIMIT] Loaded config: Global=%d/min, Upload=%d/min, Generate=%d/min",
		rateLimitConfig.GlobalAPIMax,
		rateLimitConfig.UploadMax,
		rateLimitConfig.GenerateMax,
	)

	// CORS configuration with environment-based origins
	allowedOrigins := cfg.AllowedOrigins
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:5173,http://localhost:3000"
		log.Println("⚠️  ALLOWED_ORIGINS not set, using development defaults")
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept," + middleware.HeaderWorkspaceKey + "," + middleware.HeaderSessionID,
		AllowCredentials: allowedOrigins != "*",
	}))
	log.Printf("🔒 [SECURITY] CORS allowed origins: %s", allowedOrigins)

	// Workspace and session identity for every API route
	app.Use("/api", middleware.WorkspaceResolver())

	// Global API rate limiter - first line of DDoS defense
	app.Use("/api", middleware.GlobalAPIRateLimiter(rateLimitConfig))
	log.Println("🛡️  [RATE-LIMIT] Global API rate limiter enabled")

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	contextHandler := handlers.NewContextHandler(contextStore, pitchService, metrics)
	pitchHandler := handlers.NewPitchHandler(pitchService, contextStore, usageLimiter, metrics)
	usageHandler := handlers.NewUsageHandler(usageLimiter)

	// Routes

	// Health check (public)
	app.Get("/health", healthHandler.Handle)

	api := app.Group("/api")
	{
		// Usage snapshot (session-scoped, no workspace required)
		api.Get("/usage", usageHandler.Stats)

		// Company context management (workspace-scoped)
		contexts := api.Group("/contexts", middleware.RequireWorkspace())
		contexts.Get("/", contextHandler.List)
		contexts.Post("/import", contextHandler.Import) // Must be before /:name
		contexts.Get("/:name", contextHandler.Get)
		contexts.Put("/:name", contextHandler.Save)
		contexts.Delete("/:name", contextHandler.Delete)
		contexts.Get("/:name/export", contextHandler.Export)
		contexts.Post("/:name/enhance", middleware.UploadRateLimiter(rateLimitConfig), contextHandler.Enhance)

		// Profile parsing and message generation
		api.Post("/profile/parse", middleware.UploadRateLimiter(rateLimitConfig), pitchHandler.ParseProfile)
		api.Post("/pitch", middleware.RequireWorkspace(), middleware.GenerateRateLimiter(rateLimitConfig), pitchHandler.Generate)
	}

	// Graceful shutdown
	shutdownDone := make(chan struct{})
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		log.Printf("🛑 Received signal %v, shutting down...", sig)
		if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
			log.Printf("⚠️  Shutdown error: %v", err)
		}
		close(shutdownDone)
	}()

	log.Printf("🌐 Server listening on port %s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Server error: %v", err)
	}

	<-shutdownDone
	log.Println("👋 Server stopped")
}
