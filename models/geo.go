// File: /models/geo.go
package models

import "encoding/json"

// Coordinate is a WGS84 point. Latitude in [-90, 90], longitude in
// [-180, 180].
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// LngLat returns the coordinate as [lng, lat] for provider APIs that
// expect GeoJSON ordering.
func (c Coordinate) LngLat() []float64 {
	return []float64{c.Longitude, c.Latitude}
}

// BoundingBox defines the corners of a lat/lng box (a map viewport).
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLng float64 `json:"max_lng"`
}

func (b BoundingBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// Cluster is a derived map marker representing one or more events that
// fall together at the current zoom. Recomputed on every pan/zoom and
// never persisted.
type Cluster struct {
	ID            string     `json:"id"`
	Center        Coordinate `json:"center"`
	Count         int        `json:"count"`
	EventIDs      []string   `json:"event_ids"`
	ExpansionZoom int        `json:"expansion_zoom,omitempty"`

	Events []Event `json:"-"`
}

type TransportMode string

const (
	ModeWalking TransportMode = "walking"
	ModeCycling TransportMode = "cycling"
	ModeDriving TransportMode = "driving"
)

func (m TransportMode) IsValid() bool {
	switch m {
	case ModeWalking, ModeCycling, ModeDriving:
		return true
	}
	return false
}

// RouteRequest is an ordered coordinate list (start + stops) plus a
// transport mode. Providers accept between 2 and 25 coordinates.
type RouteRequest struct {
	Coordinates []Coordinate  `json:"coordinates"`
	Mode        TransportMode `json:"mode"`
}

type RouteLeg struct {
	DistanceMeters  float64 `json:"distance_meters"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// RouteResult is the parsed primary route from a successful directions
// call. Distances in meters, durations in seconds; display layers
// convert to kilometers. Held in planner session state until cleared or
// superseded, never persisted.
type RouteResult struct {
	DistanceMeters  float64         `json:"distance_meters"`
	DurationSeconds float64         `json:"duration_seconds"`
	Legs            []RouteLeg      `json:"legs"`
	Geometry        json.RawMessage `json:"geometry"` // GeoJSON LineString
}

// WizardState enumerates the route planner steps.
type WizardState string

const (
	ChoosingLocation  WizardState = "choosing_location"
	SelectingEvents   WizardState = "selecting_events"
	ChoosingTransport WizardState = "choosing_transport"
	ShowingRoute      WizardState = "showing_route"
)
