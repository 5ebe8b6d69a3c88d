// File: /services/geocode_service.go
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
)

// GeoError is a translated failure from the mapping provider. Status is
// the HTTP-equivalent class (400 bad input, 404 not found, 500 provider
// or configuration failure); Code carries the provider code when one
// was returned.
type GeoError struct {
	Status  int    `json:"status"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func (e *GeoError) Error() string {
	return e.Message
}

// GeocodeResult is a resolved forward-geocoding hit.
type GeocodeResult struct {
	Coordinate  models.Coordinate `json:"coordinate"`
	FullAddress string            `json:"full_address"`
}

// GeocodeService wraps the provider's forward-geocoding endpoint. Every
// query is qualified with the regional state and biased toward the
// regional anchor so free-text addresses resolve inside the Triangle.
type GeocodeService struct {
	token   string
	baseURL string
	region  string
	anchor  models.Coordinate
	client  *http.Client
}

func NewGeocodeService(cfg *config.Config) *GeocodeService {
	return &GeocodeService{
		token:   cfg.MapboxToken,
		baseURL: cfg.GeocodeBaseURL,
		region:  cfg.RegionQualifier,
		anchor:  models.Coordinate{Latitude: cfg.AnchorLatitude, Longitude: cfg.AnchorLongitude},
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type geocodeResponse struct {
	Features []struct {
		Center    []float64 `json:"center"` // [lng, lat]
		PlaceName string    `json:"place_name"`
	} `json:"features"`
	Message string `json:"message"`
}

// Forward resolves a free-text address (plus optional city) to a single
// coordinate. Exactly one result is requested from the provider.
func (gs *GeocodeService) Forward(address, city string) (*GeocodeResult, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, &GeoError{Status: http.StatusBadRequest, Message: "Address is required"}
	}
	if gs.token == "" {
		return nil, &GeoError{Status: http.StatusInternalServerError, Code: "config", Message: "Geocoding is not configured"}
	}

	query := address
	if city != "" {
		query += ", " + city
	}
	query += ", " + gs.region

	params := url.Values{}
	params.Set("access_token", gs.token)
	params.Set("limit", "1")
	params.Set("proximity", fmt.Sprintf("%f,%f", gs.anchor.Longitude, gs.anchor.Latitude))

	endpoint := fmt.Sprintf("%s/%s.json?%s", gs.baseURL, url.PathEscape(query), params.Encode())

	resp, err := gs.client.Get(endpoint)
	if err != nil {
		metrics.GeoProviderCalls.WithLabelValues("geocode", "network_error").Inc()
		return nil, &GeoError{Status: http.StatusBadGateway, Message: "Could not reach the geocoding service"}
	}
	metrics.GeoProviderCalls.WithLabelValues("geocode", fmt.Sprintf("%d", resp.StatusCode)).Inc()
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &GeoError{Status: http.StatusBadGateway, Message: "Could not read the geocoding response"}
	}

	var parsed geocodeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &GeoError{Status: http.StatusBadGateway, Message: "Unexpected geocoding response"}
	}

	if resp.StatusCode != http.StatusOK {
		msg := parsed.Message
		if msg == "" {
			msg = "Geocoding failed"
		}
		return nil, &GeoError{Status: http.StatusInternalServerError, Code: fmt.Sprintf("%d", resp.StatusCode), Message: msg}
	}

	if len(parsed.Features) == 0 {
		return nil, &GeoError{Status: http.StatusNotFound, Message: "Address not found"}
	}

	feature := parsed.Features[0]
	if len(feature.Center) < 2 {
		return nil, &GeoError{Status: http.StatusBadGateway, Message: "Unexpected geocoding response"}
	}

	return &GeocodeResult{
		Coordinate:  models.Coordinate{Latitude: feature.Center[1], Longitude: feature.Center[0]},
		FullAddress: feature.PlaceName,
	}, nil
}
