// File: /controllers/geo_controller.go
package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"trianglecal-api/models"
	"trianglecal-api/services"
	"trianglecal-api/utils"
)

// GeoController proxies the external mapping provider for the web
// client: forward geocoding and multi-stop directions. Input validation
// happens here or in the services before any provider call.
type GeoController struct {
	geocode    *services.GeocodeService
	directions *services.DirectionsService
}

func NewGeoController(geocode *services.GeocodeService, directions *services.DirectionsService) *GeoController {
	return &GeoController{geocode: geocode, directions: directions}
}

type geocodeRequest struct {
	Address string `json:"address" binding:"required"`
	City    string `json:"city"`
}

func (gc *GeoController) Geocode(c *gin.Context) {
	var req geocodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}

	result, err := gc.geocode.Forward(req.Address, req.City)
	if err != nil {
		sendGeoError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"latitude":     result.Coordinate.Latitude,
		"longitude":    result.Coordinate.Longitude,
		"full_address": result.FullAddress,
	})
}

type directionsRequest struct {
	Coordinates []models.Coordinate  `json:"coordinates" binding:"required"`
	Mode        models.TransportMode `json:"mode" binding:"required"`
}

func (gc *GeoController) Directions(c *gin.Context) {
	var req directionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}

	route, err := gc.directions.Route(models.RouteRequest{
		Coordinates: req.Coordinates,
		Mode:        req.Mode,
	})
	if err != nil {
		sendGeoError(c, err)
		return
	}

	c.JSON(http.StatusOK, route)
}

func sendGeoError(c *gin.Context, err error) {
	var geoErr *services.GeoError
	if errors.As(err, &geoErr) {
		c.JSON(geoErr.Status, gin.H{"error": geoErr.Message, "code": geoErr.Code})
		return
	}
	utils.SendError(c, http.StatusBadGateway, "Mapping provider request failed")
}
