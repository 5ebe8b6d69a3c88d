// File: /controllers/map_controller.go
package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"trianglecal-api/models"
	"trianglecal-api/repositories"
	"trianglecal-api/services"
	"trianglecal-api/utils"
)

type MapController struct {
	repo      *repositories.EventRepository
	clusterer services.Clusterer
}

func NewMapController(db *gorm.DB, clusterer services.Clusterer) *MapController {
	return &MapController{
		repo:      repositories.NewEventRepository(db),
		clusterer: clusterer,
	}
}

// GetClusters returns map markers for one day's located events in the
// given viewport, merged by zoom level. Each cluster carries the zoom
// at which it would expand into separate markers.
func (mc *MapController) GetClusters(c *gin.Context) {
	date := c.Query("date")
	if !utils.IsValidDate(date) {
		utils.SendValidationError(c, "Date must be a calendar day (YYYY-MM-DD)")
		return
	}

	bounds, msg := parseBounds(c)
	if msg != "" {
		utils.SendValidationError(c, msg)
		return
	}

	zoom, err := strconv.Atoi(c.DefaultQuery("zoom", "10"))
	if err != nil || zoom < 0 || zoom > 22 {
		utils.SendValidationError(c, "Zoom must be an integer between 0 and 22")
		return
	}

	events, err := mc.repo.ByDate(date)
	if err != nil {
		utils.SendError(c, http.StatusInternalServerError, "Failed to fetch events")
		return
	}

	clusters := mc.clusterer.ComputeClusters(services.WithCoordinates(events), bounds, zoom)

	c.JSON(http.StatusOK, gin.H{
		"date":     date,
		"zoom":     zoom,
		"clusters": clusters,
	})
}

// GetNearby returns one day's located events ranked by distance from a
// reference coordinate.
func (mc *MapController) GetNearby(c *gin.Context) {
	date := c.Query("date")
	if !utils.IsValidDate(date) {
		utils.SendValidationError(c, "Date must be a calendar day (YYYY-MM-DD)")
		return
	}

	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil || !utils.IsValidLatitude(lat) || !utils.IsValidLongitude(lng) {
		utils.SendValidationError(c, "Invalid reference coordinate")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if limit < 1 || limit > 50 {
		limit = 10
	}

	events, err := mc.repo.ByDate(date)
	if err != nil {
		utils.SendError(c, http.StatusInternalServerError, "Failed to fetch events")
		return
	}

	ranked := services.NearestN(models.Coordinate{Latitude: lat, Longitude: lng}, events, limit)

	c.JSON(http.StatusOK, gin.H{
		"date":   date,
		"count":  len(ranked),
		"events": ranked,
	})
}

func parseBounds(c *gin.Context) (models.BoundingBox, string) {
	minLat, err1 := strconv.ParseFloat(c.Query("min_lat"), 64)
	maxLat, err2 := strconv.ParseFloat(c.Query("max_lat"), 64)
	minLng, err3 := strconv.ParseFloat(c.Query("min_lng"), 64)
	maxLng, err4 := strconv.ParseFloat(c.Query("max_lng"), 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return models.BoundingBox{}, "Viewport bounds min_lat/max_lat/min_lng/max_lng are required"
	}

	if !utils.IsValidLatitude(minLat) || !utils.IsValidLatitude(maxLat) ||
		!utils.IsValidLongitude(minLng) || !utils.IsValidLongitude(maxLng) ||
		minLat > maxLat || minLng > maxLng {
		return models.BoundingBox{}, "Viewport bounds out of range"
	}

	return models.BoundingBox{MinLat: minLat, MaxLat: maxLat, MinLng: minLng, MaxLng: maxLng}, ""
}
