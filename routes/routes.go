// File: /routes/routes.go
package routes

import (
	"log"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"trianglecal-api/config"
	"trianglecal-api/controllers"
	"trianglecal-api/metrics"
	"trianglecal-api/middleware"
	"trianglecal-api/services"
)

// Deps bundles the long-lived services the route tree wires into
// controllers.
type Deps struct {
	DB         *gorm.DB
	Config     *config.Config
	Planner    *services.PlannerService
	Geocode    *services.GeocodeService
	Directions *services.DirectionsService
	Recurrence *services.RecurrenceService
	ICal       *services.ICalService
	Email      *services.EmailService
}

func SetupRoutes(r *gin.Engine, deps Deps) {
	// Controllers
	authController := controllers.NewAuthController(deps.DB, deps.Config.JWTSecret)
	eventController := controllers.NewEventController(deps.DB, deps.Recurrence, deps.ICal)
	mapController := controllers.NewMapController(deps.DB, services.NewClusterService())
	plannerController := controllers.NewPlannerController(deps.DB, deps.Planner)
	geoController := controllers.NewGeoController(deps.Geocode, deps.Directions)
	applicationController := controllers.NewApplicationController(deps.DB, deps.Email)
	adminController := controllers.NewAdminController(deps.DB)

	uploadController, err := controllers.NewUploadController(deps.Config)
	if err != nil {
		log.Printf("Warning: uploads disabled: %v", err)
	}

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
			"status":  "healthy",
		})
	})
	r.GET("/metrics", metrics.Handler())

	// API version 1
	v1 := r.Group("/api/v1")

	// Auth routes (public)
	auth := v1.Group("/auth")
	{
		auth.POST("/register", authController.Register)
		auth.POST("/login", authController.Login)
	}

	// Public browsing routes
	events := v1.Group("/events")
	{
		events.GET("/", eventController.GetEvents)
		events.GET("/day/:date", eventController.GetDay)
		events.GET("/export.ics", eventController.ExportICS)
		events.GET("/:id", eventController.GetEvent)
	}

	mapGroup := v1.Group("/map")
	{
		mapGroup.GET("/clusters", mapController.GetClusters)
		mapGroup.GET("/nearby", mapController.GetNearby)
	}

	// Route planner wizard (anonymous visitors keyed by X-Visitor-ID)
	planner := v1.Group("/planner")
	{
		planner.GET("/", plannerController.GetState)
		planner.POST("/geolocation", plannerController.SetGeolocation)
		planner.POST("/geolocation/error", plannerController.ReportGeolocationError)
		planner.POST("/geocode", plannerController.GeocodeStart)
		planner.POST("/events/:id/toggle", plannerController.ToggleEvent)
		planner.POST("/confirm-selection", plannerController.ConfirmSelection)
		planner.POST("/back", plannerController.Back)
		planner.POST("/transport", plannerController.ChooseTransport)
		planner.POST("/clear", plannerController.ClearRoute)
		planner.POST("/modify", plannerController.Modify)
	}

	geo := v1.Group("/geo")
	{
		geo.POST("/geocode", geoController.Geocode)
		geo.POST("/directions", geoController.Directions)
	}

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware(deps.Config.JWTSecret))
	{
		protected.GET("/profile", authController.Profile)
		protected.POST("/applications", applicationController.Apply)

		// Author routes
		authors := protected.Group("/")
		authors.Use(middleware.RequireRole("author"))
		{
			authors.POST("/events", eventController.CreateEvent)
			authors.PUT("/events/:id", eventController.UpdateEvent)
			authors.DELETE("/events/:id", eventController.DeleteEvent)
			if uploadController != nil {
				authors.POST("/uploads/image", uploadController.UploadImage)
			}
		}

		// Admin routes
		admin := protected.Group("/admin")
		admin.Use(middleware.RequireRole("admin"))
		{
			admin.GET("/applications", applicationController.List)
			admin.POST("/applications/:id/approve", applicationController.Approve)
			admin.POST("/applications/:id/decline", applicationController.Decline)
			admin.POST("/events/import", adminController.BulkImport)
			admin.DELETE("/events", adminController.BulkDelete)
			admin.GET("/events/day/:date", adminController.ListEventsByDay)
			admin.GET("/stats", adminController.GetStats)
		}
	}
}
