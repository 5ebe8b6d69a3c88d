// File: /services/event_index_test.go
package services

import (
	"testing"

	"trianglecal-api/models"
)

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"2026-09-05", "2026-09-05", true},
		{"2026-09-05T18:30:00-04:00", "2026-09-05", true},
		{"2026-09-05 18:30:00", "2026-09-05", true},
		{"09/05/2026", "2026-09-05", true},
		{"next saturday", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := NormalizeDate(tt.input)
		if ok != tt.ok || got != tt.want {
			t.Errorf("NormalizeDate(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

func TestFilterByDate(t *testing.T) {
	events := []models.Event{
		{ID: "match", Date: "2026-09-05"},
		{ID: "rfc", Date: "2026-09-05T10:00:00-04:00"},
		{ID: "other-day", Date: "2026-09-06"},
		{ID: "garbage", Date: "sometime"},
	}

	filtered := FilterByDate(events, "2026-09-05")

	if len(filtered) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(filtered))
	}
	if filtered[0].ID != "match" || filtered[1].ID != "rfc" {
		t.Errorf("Expected [match rfc], got [%s %s]", filtered[0].ID, filtered[1].ID)
	}
}

func TestFilterByDateEmptyResult(t *testing.T) {
	filtered := FilterByDate([]models.Event{{ID: "a", Date: "2026-09-05"}}, "2026-12-25")
	if filtered == nil {
		t.Error("Expected an empty slice, not nil")
	}
	if len(filtered) != 0 {
		t.Errorf("Expected no events, got %d", len(filtered))
	}
}

func TestWithCoordinates(t *testing.T) {
	events := []models.Event{
		testEvent("located", "Raleigh", "2026-09-05", 35.78, -78.64),
		unlocatedEvent("unlocated", "", "2026-09-05"),
	}

	out := WithCoordinates(events)
	if len(out) != 1 || out[0].ID != "located" {
		t.Errorf("Expected only the located event, got %d", len(out))
	}
}

func TestGroupByCity(t *testing.T) {
	events := []models.Event{
		unlocatedEvent("n1", "", "2026-09-05"),
		testEvent("r1", "Raleigh", "2026-09-05", 35.78, -78.64),
		testEvent("d1", "Durham", "2026-09-05", 35.99, -78.90),
		testEvent("r2", "Raleigh", "2026-09-05", 35.80, -78.60),
	}

	groups := GroupByCity(events)

	wantCities := []string{"Durham", "Raleigh", OtherCityBucket}
	if len(groups) != len(wantCities) {
		t.Fatalf("Expected %d groups, got %d", len(wantCities), len(groups))
	}
	for i, city := range wantCities {
		if groups[i].City != city {
			t.Errorf("Group %d: expected %s, got %s", i, city, groups[i].City)
		}
	}

	// Events inside a group keep input order.
	raleighGroup := groups[1]
	if len(raleighGroup.Events) != 2 || raleighGroup.Events[0].ID != "r1" || raleighGroup.Events[1].ID != "r2" {
		t.Errorf("Raleigh group out of order: %v", raleighGroup.Events)
	}
}

func TestSortGroupsByDistance(t *testing.T) {
	groups := []CityGroup{
		{City: "Durham", Events: []models.Event{testEvent("d1", "Durham", "2026-09-05", 35.99, -78.90)}},
		{City: OtherCityBucket, Events: []models.Event{unlocatedEvent("n1", "", "2026-09-05")}},
		{City: "Raleigh", Events: []models.Event{
			testEvent("r-far", "Raleigh", "2026-09-05", 35.90, -78.64),
			testEvent("r-near", "Raleigh", "2026-09-05", 35.79, -78.64),
		}},
	}

	// From downtown Raleigh the nearest Raleigh member beats Durham.
	sorted := SortGroupsByDistance(raleigh, groups)

	wantCities := []string{"Raleigh", "Durham", OtherCityBucket}
	for i, city := range wantCities {
		if sorted[i].City != city {
			t.Errorf("Position %d: expected %s, got %s", i, city, sorted[i].City)
		}
	}

	// The input order is untouched.
	if groups[0].City != "Durham" {
		t.Error("SortGroupsByDistance must not mutate its input")
	}
}
