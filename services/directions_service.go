// File: /services/directions_service.go
package services

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"trianglecal-api/config"
	"trianglecal-api/metrics"
	"trianglecal-api/models"
	"trianglecal-api/utils"
)

const (
	minRouteCoordinates = 2
	maxRouteCoordinates = 25
)

// DirectionsService wraps the provider's directions endpoint. Requests
// ask for GeoJSON geometry with full overview and no step-by-step
// instructions; only the primary route of the response is used.
type DirectionsService struct {
	token   string
	baseURL string
	client  *http.Client
}

func NewDirectionsService(cfg *config.Config) *DirectionsService {
	return &DirectionsService{
		token:   cfg.MapboxToken,
		baseURL: cfg.DirectionsBaseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type directionsResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Geometry json.RawMessage `json:"geometry"`
		Distance float64         `json:"distance"`
		Duration float64         `json:"duration"`
		Legs     []struct {
			Distance float64 `json:"distance"`
			Duration float64 `json:"duration"`
		} `json:"legs"`
	} `json:"routes"`
}

// ValidateRequest checks coordinate count and numeric ranges. It runs
// before any network call; a failure here is a 400-equivalent.
func (ds *DirectionsService) ValidateRequest(req models.RouteRequest) error {
	if len(req.Coordinates) < minRouteCoordinates || len(req.Coordinates) > maxRouteCoordinates {
		return &GeoError{
			Status:  http.StatusBadRequest,
			Message: fmt.Sprintf("Route requires between %d and %d coordinates", minRouteCoordinates, maxRouteCoordinates),
		}
	}
	for _, coord := range req.Coordinates {
		if !utils.IsValidLatitude(coord.Latitude) || !utils.IsValidLongitude(coord.Longitude) {
			return &GeoError{
				Status:  http.StatusBadRequest,
				Message: fmt.Sprintf("Coordinate out of range: %f, %f", coord.Latitude, coord.Longitude),
			}
		}
	}
	if !req.Mode.IsValid() {
		return &GeoError{Status: http.StatusBadRequest, Message: "Transport mode must be walking, cycling or driving"}
	}
	return nil
}

// Route requests a multi-stop route through the given coordinates in
// order. A no-route outcome maps to a 404-class GeoError distinct from
// generic provider failure.
func (ds *DirectionsService) Route(req models.RouteRequest) (*models.RouteResult, error) {
	if err := ds.ValidateRequest(req); err != nil {
		return nil, err
	}
	if ds.token == "" {
		return nil, &GeoError{Status: http.StatusInternalServerError, Code: "config", Message: "Directions are not configured"}
	}

	coords := make([]string, 0, len(req.Coordinates))
	for _, c := range req.Coordinates {
		coords = append(coords, fmt.Sprintf("%f,%f", c.Longitude, c.Latitude))
	}

	params := url.Values{}
	params.Set("access_token", ds.token)
	params.Set("geometries", "geojson")
	params.Set("overview", "full")
	params.Set("steps", "false")

	endpoint := fmt.Sprintf("%s/%s/%s?%s", ds.baseURL, req.Mode, strings.Join(coords, ";"), params.Encode())

	resp, err := ds.client.Get(endpoint)
	if err != nil {
		metrics.GeoProviderCalls.WithLabelValues("directions", "network_error").Inc()
		return nil, &GeoError{Status: http.StatusBadGateway, Message: "Could not reach the directions service"}
	}
	metrics.GeoProviderCalls.WithLabelValues("directions", fmt.Sprintf("%d", resp.StatusCode)).Inc()
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &GeoError{Status: http.StatusBadGateway, Message: "Could not read the directions response"}
	}

	var parsed directionsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &GeoError{Status: http.StatusBadGateway, Message: "Unexpected directions response"}
	}

	if parsed.Code == "NoRoute" || parsed.Code == "NoSegment" {
		return nil, &GeoError{Status: http.StatusNotFound, Code: parsed.Code, Message: "No route found between the given points"}
	}
	if parsed.Code != "Ok" || resp.StatusCode != http.StatusOK {
		msg := parsed.Message
		if msg == "" {
			msg = "Directions request failed"
		}
		return nil, &GeoError{Status: http.StatusBadGateway, Code: parsed.Code, Message: msg}
	}
	if len(parsed.Routes) == 0 {
		return nil, &GeoError{Status: http.StatusNotFound, Code: "NoRoute", Message: "No route found between the given points"}
	}

	// Providers may return alternates; only the primary route is used.
	primary := parsed.Routes[0]
	result := &models.RouteResult{
		DistanceMeters:  primary.Distance,
		DurationSeconds: primary.Duration,
		Geometry:        primary.Geometry,
		Legs:            make([]models.RouteLeg, 0, len(primary.Legs)),
	}
	for _, leg := range primary.Legs {
		result.Legs = append(result.Legs, models.RouteLeg{
			DistanceMeters:  leg.Distance,
			DurationSeconds: leg.Duration,
		})
	}

	return result, nil
}
