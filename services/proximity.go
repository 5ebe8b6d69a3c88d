// File: /services/proximity.go
package services

import (
	"sort"

	"github.com/golang/geo/s2"

	"trianglecal-api/models"
)

// earthRadiusMeters is the Earth's volumetric mean radius. All distances
// in this package are meters; callers convert to kilometers only when
// rendering.
const earthRadiusMeters = 6371000.0

// Haversine returns the great-circle distance between two coordinates
// in meters.
func Haversine(a, b models.Coordinate) float64 {
	p1 := s2.LatLngFromDegrees(a.Latitude, a.Longitude)
	p2 := s2.LatLngFromDegrees(b.Latitude, b.Longitude)
	return p1.Distance(p2).Radians() * earthRadiusMeters
}

// RankedEvent pairs an event with its distance from a reference point.
type RankedEvent struct {
	Event          models.Event `json:"event"`
	DistanceMeters float64      `json:"distance_meters"`
}

// RankByDistance sorts events ascending by Haversine distance from ref.
// Events without a coordinate are excluded. The input slice is not
// mutated; ties keep their input order (the sort is stable).
func RankByDistance(ref models.Coordinate, events []models.Event) []RankedEvent {
	ranked := make([]RankedEvent, 0, len(events))
	for _, ev := range events {
		if !ev.HasCoordinate() {
			continue
		}
		ranked = append(ranked, RankedEvent{
			Event:          ev,
			DistanceMeters: Haversine(ref, ev.Coordinate()),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].DistanceMeters < ranked[j].DistanceMeters
	})

	return ranked
}

// NearestN returns up to n events nearest to ref.
func NearestN(ref models.Coordinate, events []models.Event, n int) []RankedEvent {
	ranked := RankByDistance(ref, events)
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// StopOrderer sequences selected stops into a visiting order. The
// planner only depends on this interface, so the greedy heuristic can be
// replaced by a 2-opt or exact solver without touching the wizard.
type StopOrderer interface {
	Order(start models.Coordinate, stops []models.Event) []models.Event
}

// GreedyOrderer builds a visiting order by repeatedly moving to the
// closest unvisited stop. This is a heuristic: no backtracking and no
// tour improvement, so the result is not guaranteed optimal. For a fixed
// start, distance function and input order the result is deterministic;
// equal distances are broken by input order.
type GreedyOrderer struct{}

func (GreedyOrderer) Order(start models.Coordinate, stops []models.Event) []models.Event {
	remaining := make([]models.Event, 0, len(stops))
	for _, ev := range stops {
		if ev.HasCoordinate() {
			remaining = append(remaining, ev)
		}
	}

	ordered := make([]models.Event, 0, len(remaining))
	current := start

	for len(remaining) > 0 {
		best := 0
		bestDist := Haversine(current, remaining[0].Coordinate())
		for i := 1; i < len(remaining); i++ {
			if d := Haversine(current, remaining[i].Coordinate()); d < bestDist {
				best = i
				bestDist = d
			}
		}

		next := remaining[best]
		ordered = append(ordered, next)
		current = next.Coordinate()
		remaining = append(remaining[:best], remaining[best+1:]...)
	}

	return ordered
}
