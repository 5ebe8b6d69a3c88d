// File: /services/cluster_service.go
package services

import (
	"fmt"
	"math"

	"github.com/golang/geo/s2"

	"trianglecal-api/models"
)

const (
	defaultClusterRadiusPx = 60
	defaultMaxZoom         = 20
	tileSize               = 256.0

	// markerPrecision merges events sharing a rounded coordinate into a
	// single marker before any zoom-dependent clustering. Five decimal
	// places is roughly one meter.
	markerPrecision = 5
)

// Clusterer groups located events into map markers for a viewport. The
// rendering layer only depends on this interface.
type Clusterer interface {
	ComputeClusters(events []models.Event, bounds models.BoundingBox, zoom int) []models.Cluster
	ExpansionZoom(cluster models.Cluster, zoom int) int
}

// ClusterService implements grid clustering in web-mercator pixel
// space. Clustering is a full recompute on every call; with low
// thousands of events per day there is nothing to gain from incremental
// maintenance. The viewport is read, never mutated.
type ClusterService struct {
	RadiusPx float64
	MaxZoom  int
}

func NewClusterService() *ClusterService {
	return &ClusterService{
		RadiusPx: defaultClusterRadiusPx,
		MaxZoom:  defaultMaxZoom,
	}
}

// ComputeClusters converts the filtered event set into clusters for the
// given viewport and zoom. Events without a coordinate or outside the
// bounds are ignored. Markers at the same rounded coordinate merge
// first; markers within RadiusPx of each other's grid cell merge into
// hierarchical clusters.
func (cs *ClusterService) ComputeClusters(events []models.Event, bounds models.BoundingBox, zoom int) []models.Cluster {
	markers := cs.collapseMarkers(events, bounds)

	cellSize := cs.RadiusPx
	grid := make(map[[2]int]*models.Cluster)
	order := make([][2]int, 0, len(markers))

	for _, m := range markers {
		px, py := project(m.Center.Latitude, m.Center.Longitude, zoom)
		key := [2]int{int(math.Floor(px / cellSize)), int(math.Floor(py / cellSize))}

		cluster, ok := grid[key]
		if !ok {
			c := models.Cluster{Center: m.Center}
			grid[key] = &c
			cluster = grid[key]
			order = append(order, key)
		}

		cluster.Count += m.Count
		cluster.EventIDs = append(cluster.EventIDs, m.EventIDs...)
		cluster.Events = append(cluster.Events, m.Events...)
	}

	clusters := make([]models.Cluster, 0, len(order))
	for _, key := range order {
		c := grid[key]
		c.Center = centroid(c.Events)
		c.ID = clusterID(c.Center, zoom)
		c.ExpansionZoom = cs.ExpansionZoom(*c, zoom)
		clusters = append(clusters, *c)
	}
	return clusters
}

// ExpansionZoom computes the minimum zoom at which the cluster's
// members render as separate markers, capped at MaxZoom. Single-member
// clusters expand at the current zoom.
func (cs *ClusterService) ExpansionZoom(cluster models.Cluster, zoom int) int {
	if len(cluster.Events) < 2 {
		return zoom
	}

	for z := zoom + 1; z <= cs.MaxZoom; z++ {
		if cs.separatedAt(cluster.Events, z) {
			return z
		}
	}
	return cs.MaxZoom
}

func (cs *ClusterService) separatedAt(events []models.Event, zoom int) bool {
	type pt struct{ x, y float64 }
	pts := make([]pt, 0, len(events))
	for _, ev := range events {
		x, y := project(*ev.Latitude, *ev.Longitude, zoom)
		pts = append(pts, pt{x, y})
	}

	for i := 0; i < len(pts); i++ {
		for j := i + 1; j < len(pts); j++ {
			dx := pts[i].x - pts[j].x
			dy := pts[i].y - pts[j].y
			if math.Hypot(dx, dy) < cs.RadiusPx {
				return false
			}
		}
	}
	return true
}

// collapseMarkers merges events sharing a rounded coordinate into one
// marker with a count.
func (cs *ClusterService) collapseMarkers(events []models.Event, bounds models.BoundingBox) []models.Cluster {
	byKey := make(map[string]*models.Cluster)
	order := make([]string, 0, len(events))

	for _, ev := range events {
		if !ev.HasCoordinate() {
			continue
		}
		if !bounds.Contains(*ev.Latitude, *ev.Longitude) {
			continue
		}

		key := fmt.Sprintf("%.*f,%.*f", markerPrecision, *ev.Latitude, markerPrecision, *ev.Longitude)
		marker, ok := byKey[key]
		if !ok {
			byKey[key] = &models.Cluster{Center: ev.Coordinate()}
			marker = byKey[key]
			order = append(order, key)
		}
		marker.Count++
		marker.EventIDs = append(marker.EventIDs, ev.ID)
		marker.Events = append(marker.Events, ev)
	}

	markers := make([]models.Cluster, 0, len(order))
	for _, key := range order {
		markers = append(markers, *byKey[key])
	}
	return markers
}

// project maps a coordinate to web-mercator pixel space at a zoom.
func project(lat, lng float64, zoom int) (x, y float64) {
	worldSize := tileSize * math.Exp2(float64(zoom))
	x = (lng + 180) / 360 * worldSize

	sin := math.Sin(lat * math.Pi / 180)
	// Clamp so poles don't blow up the mercator transform.
	sin = math.Min(math.Max(sin, -0.9999), 0.9999)
	y = (0.5 - math.Log((1+sin)/(1-sin))/(4*math.Pi)) * worldSize
	return x, y
}

func centroid(events []models.Event) models.Coordinate {
	if len(events) == 0 {
		return models.Coordinate{}
	}
	var lat, lng float64
	for _, ev := range events {
		lat += *ev.Latitude
		lng += *ev.Longitude
	}
	n := float64(len(events))
	return models.Coordinate{Latitude: lat / n, Longitude: lng / n}
}

// clusterID derives a stable s2-cell identifier for a cluster center.
// The cell level tracks zoom so ids stay stable for a given viewport.
func clusterID(center models.Coordinate, zoom int) string {
	level := zoom
	if level > 30 {
		level = 30
	}
	if level < 1 {
		level = 1
	}
	ll := s2.LatLngFromDegrees(center.Latitude, center.Longitude)
	return fmt.Sprintf("s2_%d", uint64(s2.CellIDFromLatLng(ll).Parent(level)))
}
