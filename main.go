// File: /main.go
package main

import (
	"log"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"

	"trianglecal-api/config"
	"trianglecal-api/database"
	"trianglecal-api/jobs"
	"trianglecal-api/metrics"
	"trianglecal-api/middleware"
	"trianglecal-api/routes"
	"trianglecal-api/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Error reporting (no-op when no DSN is configured)
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN}); err != nil {
			log.Printf("Warning: sentry init failed: %v", err)
		}
	}

	// Initialize database
	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Run migrations
	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Seed database with fixture data (optional - for development)
	if err := database.SeedData(db, cfg.SeedFile); err != nil {
		log.Printf("Warning: Failed to seed database: %v", err)
	}

	// Shared services
	recurrence, err := services.NewRecurrenceService(cfg.TimeZone)
	if err != nil {
		log.Fatal("Failed to load regional time zone:", err)
	}
	ical, err := services.NewICalService(cfg.TimeZone)
	if err != nil {
		log.Fatal("Failed to load regional time zone:", err)
	}
	geocode := services.NewGeocodeService(cfg)
	directions := services.NewDirectionsService(cfg)
	planner := services.NewPlannerService(geocode, directions)
	email := services.NewEmailService(cfg)

	// Set Gin mode based on environment
	if cfg.Port == "8080" { // Development
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create router
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(middleware.SentryRecovery())
	router.Use(middleware.CORS())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RateLimit(120, 30))
	router.Use(metrics.GinMiddleware())

	// Setup routes
	routes.SetupRoutes(router, routes.Deps{
		DB:         db,
		Config:     cfg,
		Planner:    planner,
		Geocode:    geocode,
		Directions: directions,
		Recurrence: recurrence,
		ICal:       ical,
		Email:      email,
	})

	// Scheduled housekeeping
	maintenance := jobs.NewMaintenanceJob(db, planner, recurrence)
	if err := maintenance.Start(); err != nil {
		log.Fatal("Failed to start maintenance job:", err)
	}
	defer maintenance.Stop()

	// Start server
	log.Printf("Starting TriangleCal API server on port %s", cfg.Port)
	log.Printf("Health check available at: http://localhost:%s/ping", cfg.Port)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
