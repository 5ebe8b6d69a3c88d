// File: /services/event_index.go
package services

import (
	"sort"
	"time"

	"trianglecal-api/models"
)

// OtherCityBucket collects events that carry no city. It always sorts
// last, whatever the group ordering.
const OtherCityBucket = "Other"

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"01/02/2006",
}

// NormalizeDate reduces a date string to YYYY-MM-DD. Returns false when
// the input matches none of the accepted layouts.
func NormalizeDate(s string) (string, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

// FilterByDate returns the subset of events occurring on the given
// calendar day (YYYY-MM-DD). Comparison is exact string match after
// normalizing each event's date; events without a parseable date are
// excluded. Pure function of its inputs.
func FilterByDate(events []models.Event, date string) []models.Event {
	filtered := make([]models.Event, 0)
	for _, ev := range events {
		normalized, ok := NormalizeDate(ev.Date)
		if !ok {
			continue
		}
		if normalized == date {
			filtered = append(filtered, ev)
		}
	}
	return filtered
}

// WithCoordinates drops events that cannot take part in spatial
// operations.
func WithCoordinates(events []models.Event) []models.Event {
	out := make([]models.Event, 0, len(events))
	for _, ev := range events {
		if ev.HasCoordinate() {
			out = append(out, ev)
		}
	}
	return out
}

// CityGroup is a partition of events sharing a city.
type CityGroup struct {
	City   string         `json:"city"`
	Events []models.Event `json:"events"`
}

// GroupByCity partitions events by city. Events without a city fall
// into the OtherCityBucket. Groups come back alphabetically with the
// bucket last; events inside a group keep their input order.
func GroupByCity(events []models.Event) []CityGroup {
	byCity := make(map[string][]models.Event)
	for _, ev := range events {
		city := ev.City
		if city == "" {
			city = OtherCityBucket
		}
		byCity[city] = append(byCity[city], ev)
	}

	groups := make([]CityGroup, 0, len(byCity))
	for city, evs := range byCity {
		groups = append(groups, CityGroup{City: city, Events: evs})
	}

	sort.Slice(groups, func(i, j int) bool {
		if groups[i].City == OtherCityBucket {
			return false
		}
		if groups[j].City == OtherCityBucket {
			return true
		}
		return groups[i].City < groups[j].City
	})

	return groups
}

// SortGroupsByDistance orders city groups by the distance of each
// group's nearest member from ref. Groups with no located events, and
// the OtherCityBucket, sort last.
func SortGroupsByDistance(ref models.Coordinate, groups []CityGroup) []CityGroup {
	out := make([]CityGroup, len(groups))
	copy(out, groups)

	nearest := func(g CityGroup) (float64, bool) {
		found := false
		best := 0.0
		for _, ev := range g.Events {
			if !ev.HasCoordinate() {
				continue
			}
			d := Haversine(ref, ev.Coordinate())
			if !found || d < best {
				best = d
				found = true
			}
		}
		return best, found
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].City == OtherCityBucket {
			return false
		}
		if out[j].City == OtherCityBucket {
			return true
		}
		di, oki := nearest(out[i])
		dj, okj := nearest(out[j])
		if oki != okj {
			return oki
		}
		return di < dj
	})

	return out
}
