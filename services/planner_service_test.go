// File: /services/planner_service_test.go
package services

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"trianglecal-api/models"
)

const plannerDate = "2026-09-05"

// plannerFixture wires a planner against stub geocoding and directions
// servers and returns located events for the test date.
func plannerFixture(t *testing.T, geocode, directions http.HandlerFunc) (*PlannerService, []models.Event) {
	t.Helper()

	geoServer := httptest.NewServer(geocode)
	dirServer := httptest.NewServer(directions)
	t.Cleanup(geoServer.Close)
	t.Cleanup(dirServer.Close)

	cfg := geocodeConfig(geoServer.URL)
	cfg.DirectionsBaseURL = dirServer.URL

	planner := NewPlannerService(NewGeocodeService(cfg), NewDirectionsService(cfg))

	events := make([]models.Event, 0, 12)
	for i := 0; i < 12; i++ {
		events = append(events, testEvent(
			fmt.Sprintf("ev%02d", i), "Raleigh", plannerDate,
			35.78+float64(i)*0.005, -78.64,
		))
	}
	return planner, events
}

func okDirections(w http.ResponseWriter, r *http.Request) {
	fmt.Fprint(w, `{
		"code": "Ok",
		"routes": [{
			"geometry": {"type":"LineString","coordinates":[[-78.64,35.78],[-78.64,35.80]]},
			"distance": 4200,
			"duration": 600,
			"legs": [{"distance": 2100, "duration": 300}, {"distance": 2100, "duration": 300}]
		}]
	}`)
}

func okGeocode(w http.ResponseWriter, r *http.Request) {
	fmt.Fprint(w, `{"features":[{"center":[-78.6391,35.7804],"place_name":"123 Fayetteville St, Raleigh, North Carolina"}]}`)
}

func TestPlannerStartsInChoosingLocation(t *testing.T) {
	planner, _ := plannerFixture(t, okGeocode, okDirections)

	view := planner.View("visitor:a", plannerDate)
	if view.State != models.ChoosingLocation {
		t.Errorf("Expected choosing_location, got %s", view.State)
	}
	if view.Start != nil {
		t.Error("A fresh session has no starting point")
	}
}

func TestPlannerGeolocationPreselectsNearest(t *testing.T) {
	planner, events := plannerFixture(t, okGeocode, okDirections)

	view, err := planner.SetGeolocation("visitor:a", plannerDate, raleigh, events)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if view.State != models.SelectingEvents {
		t.Fatalf("Expected selecting_events, got %s", view.State)
	}
	if len(view.Candidates) != 10 {
		t.Fatalf("Expected a pool of 10 candidates from 12 events, got %d", len(view.Candidates))
	}
	if len(view.SelectedIDs) != 10 {
		t.Errorf("Expected the whole pool pre-selected, got %d", len(view.SelectedIDs))
	}
	// Candidates come back nearest first.
	if view.Candidates[0].Event.ID != "ev00" {
		t.Errorf("Expected ev00 first, got %s", view.Candidates[0].Event.ID)
	}
	for i := 1; i < len(view.Candidates); i++ {
		if view.Candidates[i].DistanceMeters < view.Candidates[i-1].DistanceMeters {
			t.Errorf("Candidates out of distance order at %d", i)
		}
	}
}

func TestPlannerGeolocationSmallPool(t *testing.T) {
	planner, events := plannerFixture(t, okGeocode, okDirections)

	view, err := planner.SetGeolocation("visitor:a", plannerDate, raleigh, events[:3])
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(view.Candidates) != 3 {
		t.Errorf("Expected all 3 events as candidates, got %d", len(view.Candidates))
	}
}

func TestPlannerRejectsInvalidCoordinate(t *testing.T) {
	planner, events := plannerFixture(t, okGeocode, okDirections)

	_, err := planner.SetGeolocation("visitor:a", plannerDate, models.Coordinate{Latitude: 95, Longitude: -78.64}, events)
	pe, ok := err.(*PlannerError)
	if !ok || pe.Status != http.StatusBadRequest {
		t.Fatalf("Expected 400 PlannerError, got %v", err)
	}
}

func TestPlannerRejectsSecondStart(t *testing.T) {
	planner, events := plannerFixture(t, okGeocode, okDirections)

	if _, err := planner.SetGeolocation("visitor:a", plannerDate, raleigh, events); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	_, err := planner.SetGeolocation("visitor:a", plannerDate, raleigh, events)
	pe, ok := err.(*PlannerError)
	if !ok || pe.Status != http.StatusConflict {
		t.Fatalf("Expected 409 PlannerError, got %v", err)
	}
}

func TestPlannerGeolocationErrorMessages(t *testing.T) {
	planner, _ := plannerFixture(t, okGeocode, okDirections)

	codes := []string{GeoErrPermissionDenied, GeoErrPositionUnavailable, GeoErrTimeout}
	seen := make(map[string]bool)
	for _, code := range codes {
		msg, view := planner.GeolocationError("visitor:a", plannerDate, code)
		if msg == "" {
			t.Errorf("Expected a message for %s", code)
		}
		if seen[msg] {
			t.Errorf("Expected a distinct message per failure code, %q repeated", msg)
		}
		seen[msg] = true
		if view.State != models.ChoosingLocation {
			t.Errorf("Geolocation failure must not advance the wizard, got %s", view.State)
		}
	}
}

func TestPlannerGeocodeStart(t *testing.T) {
	planner, events := plannerFixture(t, okGeocode, okDirections)

	view, err := planner.GeocodeStart("visitor:a", plannerDate, "123 Fayetteville St", "Raleigh", events)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if view.State != models.SelectingEvents {
		t.Fatalf("Expected selecting_events, got %s", view.State)
	}
	if view.StartAddress != "123 Fayetteville St, Raleigh, North Carolina" {
		t.Errorf("Expected the resolved address, got %s", view.StartAddress)
	}
	if view.Start == nil || view.Start.Latitude != 35.7804 {
		t.Errorf("Expected the resolved coordinate, got %+v", view.Start)
	}
}

func TestPlannerGeocodeFailureKeepsState(t *testing.T) {
	planner, events := plannerFixture(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"features":[]}`)
	}, okDirections)

	_, err := planner.GeocodeStart("visitor:a", plannerDate, "nowhere at all", "", events)
	pe, ok := err.(*PlannerError)
	if !ok || pe.Status != http.StatusNotFound {
		t.Fatalf("Expected 404 PlannerError, got %v", err)
	}

	view := planner.View("visitor:a", plannerDate)
	if view.State != models.ChoosingLocation {
		t.Errorf("Failed geocode must keep the wizard in choosing_location, got %s", view.State)
	}
}

func TestPlannerConfirmNeedsTwoSelected(t *testing.T) {
	planner, events := plannerFixture(t, okGeocode, okDirections)

	view, err := planner.SetGeolocation("visitor:a", plannerDate, raleigh, events)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// Deselect all but one.
	for _, cand := range view.Candidates[1:] {
		if _, err := planner.ToggleEvent("visitor:a", plannerDate, cand.Event.ID); err != nil {
			t.Fatalf("Toggle failed: %v", err)
		}
	}

	_, err = planner.ConfirmSelection("visitor:a", plannerDate)
	pe, ok := err.(*PlannerError)
	if !ok || pe.Status != http.StatusBadRequest {
		t.Fatalf("Expected 400 PlannerError with one selected, got %v", err)
	}

	// Re-select one more and the confirmation goes through.
	if _, err := planner.ToggleEvent("visitor:a", plannerDate, view.Candidates[1].Event.ID); err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	confirmed, err := planner.ConfirmSelection("visitor:a", plannerDate)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if confirmed.State != models.ChoosingTransport {
		t.Errorf("Expected choosing_transport, got %s", confirmed.State)
	}
}

func TestPlannerToggleUnknownEvent(t *testing.T) {
	planner, events := plannerFixture(t, okGeocode, okDirections)

	if _, err := planner.SetGeolocation("visitor:a", plannerDate, raleigh, events); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	_, err := planner.ToggleEvent("visitor:a", plannerDate, "no-such-event")
	pe, ok := err.(*PlannerError)
	if !ok || pe.Status != http.StatusNotFound {
		t.Fatalf("Expected 404 PlannerError, got %v", err)
	}
}

// runToTransport drives a session to ChoosingTransport with two events
// selected.
func runToTransport(t *testing.T, planner *PlannerService, key string, events []models.Event) {
	t.Helper()

	view, err := planner.SetGeolocation(key, plannerDate, raleigh, events[:4])
	if err != nil {
		t.Fatalf("SetGeolocation failed: %v", err)
	}
	for _, cand := range view.Candidates[2:] {
		if _, err := planner.ToggleEvent(key, plannerDate, cand.Event.ID); err != nil {
			t.Fatalf("Toggle failed: %v", err)
		}
	}
	if _, err := planner.ConfirmSelection(key, plannerDate); err != nil {
		t.Fatalf("ConfirmSelection failed: %v", err)
	}
}

func TestPlannerChooseTransport(t *testing.T) {
	planner, events := plannerFixture(t, okGeocode, okDirections)
	runToTransport(t, planner, "visitor:a", events)

	view, err := planner.ChooseTransport("visitor:a", plannerDate, models.ModeCycling)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if view.State != models.ShowingRoute {
		t.Fatalf("Expected showing_route, got %s", view.State)
	}
	if view.Route == nil || view.Route.DistanceMeters != 4200 {
		t.Errorf("Expected the parsed route, got %+v", view.Route)
	}
	if view.Mode != models.ModeCycling {
		t.Errorf("Expected cycling, got %s", view.Mode)
	}
	if len(view.Stops) != 2 {
		t.Fatalf("Expected 2 ordered stops, got %d", len(view.Stops))
	}
	// Stops come back in greedy nearest-first order.
	if view.Stops[0].ID != "ev00" || view.Stops[1].ID != "ev01" {
		t.Errorf("Expected [ev00 ev01], got [%s %s]", view.Stops[0].ID, view.Stops[1].ID)
	}
}

func TestPlannerChooseTransportInvalidMode(t *testing.T) {
	planner, events := plannerFixture(t, okGeocode, okDirections)
	runToTransport(t, planner, "visitor:a", events)

	_, err := planner.ChooseTransport("visitor:a", plannerDate, "teleport")
	pe, ok := err.(*PlannerError)
	if !ok || pe.Status != http.StatusBadRequest {
		t.Fatalf("Expected 400 PlannerError, got %v", err)
	}
}

func TestPlannerRouteFailureKeepsSelection(t *testing.T) {
	planner, events := plannerFixture(t, okGeocode, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":"NoRoute","message":"No route found","routes":[]}`)
	})
	runToTransport(t, planner, "visitor:a", events)

	_, err := planner.ChooseTransport("visitor:a", plannerDate, models.ModeWalking)
	pe, ok := err.(*PlannerError)
	if !ok || pe.Status != http.StatusNotFound {
		t.Fatalf("Expected 404 PlannerError, got %v", err)
	}

	view := planner.View("visitor:a", plannerDate)
	if view.State != models.ChoosingTransport {
		t.Errorf("Route failure must keep choosing_transport, got %s", view.State)
	}
	if len(view.SelectedIDs) != 2 {
		t.Errorf("Route failure must keep the selection, got %d selected", len(view.SelectedIDs))
	}
}

func TestPlannerBack(t *testing.T) {
	planner, events := plannerFixture(t, okGeocode, okDirections)
	runToTransport(t, planner, "visitor:a", events)

	view, err := planner.Back("visitor:a", plannerDate)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if view.State != models.SelectingEvents {
		t.Errorf("Expected selecting_events, got %s", view.State)
	}
	if len(view.SelectedIDs) != 2 {
		t.Errorf("Back must keep the selection, got %d selected", len(view.SelectedIDs))
	}

	view, err = planner.Back("visitor:a", plannerDate)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if view.State != models.ChoosingLocation {
		t.Errorf("Expected choosing_location, got %s", view.State)
	}

	_, err = planner.Back("visitor:a", plannerDate)
	pe, ok := err.(*PlannerError)
	if !ok || pe.Status != http.StatusConflict {
		t.Fatalf("Expected 409 at the first step, got %v", err)
	}
}

func TestPlannerModifyReturnsToSelection(t *testing.T) {
	planner, events := plannerFixture(t, okGeocode, okDirections)
	runToTransport(t, planner, "visitor:a", events)
	if _, err := planner.ChooseTransport("visitor:a", plannerDate, models.ModeDriving); err != nil {
		t.Fatalf("ChooseTransport failed: %v", err)
	}

	view, err := planner.Modify("visitor:a", plannerDate)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if view.State != models.SelectingEvents {
		t.Errorf("Expected selecting_events, got %s", view.State)
	}
	if view.Start == nil {
		t.Error("Modify must keep the starting point")
	}
	if len(view.SelectedIDs) != 2 {
		t.Errorf("Modify must keep the selection, got %d selected", len(view.SelectedIDs))
	}
}

func TestPlannerClearKeepsGeolocation(t *testing.T) {
	planner, events := plannerFixture(t, okGeocode, okDirections)
	runToTransport(t, planner, "visitor:a", events)
	if _, err := planner.ChooseTransport("visitor:a", plannerDate, models.ModeDriving); err != nil {
		t.Fatalf("ChooseTransport failed: %v", err)
	}

	view := planner.ClearRoute("visitor:a", plannerDate)

	if view.State != models.ChoosingLocation {
		t.Errorf("Expected choosing_location, got %s", view.State)
	}
	if view.Route != nil || len(view.Stops) != 0 || len(view.Candidates) != 0 {
		t.Error("Clear must drop the route, stops and candidate pool")
	}
	// The device location survives the clear as the prefilled start.
	if view.Start == nil || view.Start.Latitude != raleigh.Latitude {
		t.Errorf("Expected the geolocation prefilled after clear, got %+v", view.Start)
	}
}

func TestPlannerClearWithoutGeolocation(t *testing.T) {
	planner, events := plannerFixture(t, okGeocode, okDirections)

	// Start by address instead of device location.
	if _, err := planner.GeocodeStart("visitor:a", plannerDate, "123 Fayetteville St", "Raleigh", events); err != nil {
		t.Fatalf("GeocodeStart failed: %v", err)
	}

	view := planner.ClearRoute("visitor:a", plannerDate)
	if view.Start != nil {
		t.Errorf("No geolocation was ever captured, start must be empty, got %+v", view.Start)
	}
}

func TestPlannerDateChangeResetsSession(t *testing.T) {
	planner, events := plannerFixture(t, okGeocode, okDirections)

	if _, err := planner.SetGeolocation("visitor:a", plannerDate, raleigh, events); err != nil {
		t.Fatalf("SetGeolocation failed: %v", err)
	}

	view := planner.View("visitor:a", "2026-09-06")
	if view.State != models.ChoosingLocation {
		t.Errorf("A date change must reset the wizard, got %s", view.State)
	}
	if len(view.Candidates) != 0 {
		t.Errorf("Candidates must not survive a date change, got %d", len(view.Candidates))
	}
	// The device location carries across.
	if view.Start == nil || view.Start.Latitude != raleigh.Latitude {
		t.Errorf("Expected the geolocation carried to the new date, got %+v", view.Start)
	}
}

func TestPlannerSessionsAreIsolated(t *testing.T) {
	planner, events := plannerFixture(t, okGeocode, okDirections)

	if _, err := planner.SetGeolocation("visitor:a", plannerDate, raleigh, events); err != nil {
		t.Fatalf("SetGeolocation failed: %v", err)
	}

	view := planner.View("visitor:b", plannerDate)
	if view.State != models.ChoosingLocation {
		t.Errorf("Sessions must be isolated per visitor, got %s", view.State)
	}
	if planner.SessionCount() != 2 {
		t.Errorf("Expected 2 live sessions, got %d", planner.SessionCount())
	}
}

func TestPlannerSingleInFlightGeocode(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})

	planner, events := plannerFixture(t, func(w http.ResponseWriter, r *http.Request) {
		entered <- struct{}{}
		<-release
		okGeocode(w, r)
	}, okDirections)

	type result struct {
		view PlannerView
		err  error
	}
	done := make(chan result, 1)
	go func() {
		view, err := planner.GeocodeStart("visitor:a", plannerDate, "123 Fayetteville St", "", events)
		done <- result{view, err}
	}()

	<-entered

	// A second request of the same kind is refused while one is out.
	_, err := planner.GeocodeStart("visitor:a", plannerDate, "200 Hillsborough St", "", events)
	pe, ok := err.(*PlannerError)
	if !ok || pe.Status != http.StatusConflict {
		t.Fatalf("Expected 409 PlannerError while a geocode is in flight, got %v", err)
	}

	close(release)
	first := <-done
	if first.err != nil {
		t.Fatalf("First request failed: %v", first.err)
	}
	if first.view.State != models.SelectingEvents {
		t.Errorf("Expected the first request to land, got %s", first.view.State)
	}
}

func TestPlannerStaleGeocodeDiscarded(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})

	planner, events := plannerFixture(t, func(w http.ResponseWriter, r *http.Request) {
		entered <- struct{}{}
		<-release
		okGeocode(w, r)
	}, okDirections)

	done := make(chan error, 1)
	go func() {
		_, err := planner.GeocodeStart("visitor:a", plannerDate, "123 Fayetteville St", "", events)
		done <- err
	}()

	<-entered

	// The visitor switches dates while the geocode is in flight, which
	// resets the session and makes the pending result stale.
	planner.View("visitor:a", "2026-09-06")

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("A stale result is dropped silently, got %v", err)
	}

	view := planner.View("visitor:a", plannerDate)
	if view.State != models.ChoosingLocation {
		t.Errorf("The stale geocode must not apply, got %s", view.State)
	}
	if view.StartAddress != "" {
		t.Errorf("The stale address must not apply, got %s", view.StartAddress)
	}
}

func TestPlannerStaleGeocodeKeepsNewDateSession(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})

	planner, events := plannerFixture(t, func(w http.ResponseWriter, r *http.Request) {
		entered <- struct{}{}
		<-release
		okGeocode(w, r)
	}, okDirections)

	done := make(chan error, 1)
	go func() {
		_, err := planner.GeocodeStart("visitor:a", plannerDate, "123 Fayetteville St", "", events)
		done <- err
	}()

	<-entered

	// The visitor switches dates and gets underway there before the
	// old geocode settles.
	if _, err := planner.SetGeolocation("visitor:a", "2026-09-06", raleigh, events); err != nil {
		t.Fatalf("SetGeolocation failed: %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("A stale result is dropped silently, got %v", err)
	}

	// The new date's progress survives the stale settlement untouched.
	view := planner.View("visitor:a", "2026-09-06")
	if view.State != models.SelectingEvents {
		t.Errorf("The new-date session must survive, got %s", view.State)
	}
	if len(view.Candidates) != 10 {
		t.Errorf("The new-date candidate pool must survive, got %d", len(view.Candidates))
	}
}

func TestPlannerGeolocationSupersedesInFlightGeocode(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})

	planner, events := plannerFixture(t, func(w http.ResponseWriter, r *http.Request) {
		entered <- struct{}{}
		<-release
		okGeocode(w, r)
	}, okDirections)

	done := make(chan error, 1)
	go func() {
		_, err := planner.GeocodeStart("visitor:a", plannerDate, "123 Fayetteville St", "", events)
		done <- err
	}()

	<-entered

	// Device geolocation lands first on the same date and advances the
	// wizard.
	if _, err := planner.SetGeolocation("visitor:a", plannerDate, raleigh, events); err != nil {
		t.Fatalf("SetGeolocation failed: %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("A superseded result is dropped silently, got %v", err)
	}

	// The device location won; the late geocode must not overwrite it.
	view := planner.View("visitor:a", plannerDate)
	if view.State != models.SelectingEvents {
		t.Fatalf("Expected selecting_events, got %s", view.State)
	}
	if view.Start == nil || view.Start.Latitude != raleigh.Latitude || view.Start.Longitude != raleigh.Longitude {
		t.Errorf("Expected the device location kept as start, got %+v", view.Start)
	}
	if view.StartAddress != "" {
		t.Errorf("The geocoded address must not apply, got %s", view.StartAddress)
	}
}

func TestPlannerSweep(t *testing.T) {
	planner, events := plannerFixture(t, okGeocode, okDirections)

	if _, err := planner.SetGeolocation("visitor:a", plannerDate, raleigh, events); err != nil {
		t.Fatalf("SetGeolocation failed: %v", err)
	}

	// Fresh sessions survive a sweep.
	if removed := planner.Sweep(); removed != 0 {
		t.Errorf("Expected no sessions swept, got %d", removed)
	}
	if planner.SessionCount() != 1 {
		t.Errorf("Expected the session to survive, got %d", planner.SessionCount())
	}

	planner.ttl = 0
	if removed := planner.Sweep(); removed != 1 {
		t.Errorf("Expected 1 session swept with zero TTL, got %d", removed)
	}
}
