// File: /services/planner_service.go
package services

import (
	"net/http"
	"sync"
	"time"

	"trianglecal-api/models"
	"trianglecal-api/utils"
)

const (
	// candidateCap is the size of the nearby-event pool offered after a
	// starting point is resolved.
	candidateCap = 10

	defaultSessionTTL = 2 * time.Hour
)

type requestKind string

const (
	requestGeolocation requestKind = "geolocation"
	requestGeocode     requestKind = "geocode"
	requestDirections  requestKind = "directions"
)

// Geolocation error codes reported by the client platform.
const (
	GeoErrPermissionDenied    = "permission-denied"
	GeoErrPositionUnavailable = "position-unavailable"
	GeoErrTimeout             = "timeout"
)

var geolocationMessages = map[string]string{
	GeoErrPermissionDenied:    "Location permission was denied. Enter a starting address instead.",
	GeoErrPositionUnavailable: "Your position could not be determined. Enter a starting address instead.",
	GeoErrTimeout:             "Finding your location took too long. Try again or enter a starting address.",
}

// Candidate is a nearby event offered for selection in the wizard.
type Candidate struct {
	Event          models.Event `json:"event"`
	DistanceMeters float64      `json:"distance_meters"`
	Selected       bool         `json:"selected"`
}

// PlannerSession holds one visitor's wizard state. It survives panel
// visibility toggles on the client but is reset whenever the underlying
// date changes, which invalidates any in-progress plan.
type PlannerSession struct {
	Key          string
	Date         string
	State        models.WizardState
	Start        *models.Coordinate
	StartAddress string
	// LastGeolocation is remembered across a route clear so the wizard
	// can prefill the next starting point.
	LastGeolocation *models.Coordinate
	Candidates      []Candidate
	Mode            models.TransportMode
	Route           *models.RouteResult
	OrderedStops    []models.Event

	touchedAt time.Time
	// pending tracks the single in-flight request per kind; the stored
	// id must match at settle time or the result is stale and dropped.
	pending       map[requestKind]uint64
	nextRequestID uint64
}

// PlannerView is the JSON snapshot returned to the client after every
// transition.
type PlannerView struct {
	State        models.WizardState   `json:"state"`
	Date         string               `json:"date"`
	Start        *models.Coordinate   `json:"start,omitempty"`
	StartAddress string               `json:"start_address,omitempty"`
	Candidates   []Candidate          `json:"candidates,omitempty"`
	SelectedIDs  []string             `json:"selected_ids,omitempty"`
	Mode         models.TransportMode `json:"mode,omitempty"`
	Route        *models.RouteResult  `json:"route,omitempty"`
	Stops        []models.Event       `json:"stops,omitempty"`
}

// PlannerError is a step-local failure. The wizard never advances on
// error; prior state stays intact so the visitor can retry.
type PlannerError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (e *PlannerError) Error() string { return e.Message }

func plannerErr(status int, message string) *PlannerError {
	return &PlannerError{Status: status, Message: message}
}

// PlannerService owns all route-planner sessions, keyed per visitor.
type PlannerService struct {
	mu       sync.Mutex
	sessions map[string]*PlannerSession

	geocode    *GeocodeService
	directions *DirectionsService
	orderer    StopOrderer
	ttl        time.Duration
}

func NewPlannerService(geocode *GeocodeService, directions *DirectionsService) *PlannerService {
	return &PlannerService{
		sessions:   make(map[string]*PlannerSession),
		geocode:    geocode,
		directions: directions,
		orderer:    GreedyOrderer{},
		ttl:        defaultSessionTTL,
	}
}

// session returns the visitor's session for the given date, resetting
// it when the date changed. Callers must hold s.mu.
func (s *PlannerService) session(key, date string) *PlannerSession {
	sess, ok := s.sessions[key]
	if !ok || sess.Date != date {
		sess = &PlannerSession{
			Key:     key,
			Date:    date,
			State:   models.ChoosingLocation,
			pending: make(map[requestKind]uint64),
		}
		if ok {
			// Carry the device location across a date change; the plan
			// itself does not survive.
			sess.LastGeolocation = s.sessions[key].LastGeolocation
			sess.Start = sess.LastGeolocation
		}
		s.sessions[key] = sess
	}
	sess.touchedAt = time.Now()
	return sess
}

// View returns the current wizard snapshot, creating a fresh session in
// ChoosingLocation when none exists for the date.
func (s *PlannerService) View(key, date string) PlannerView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot(s.session(key, date))
}

// SetGeolocation records a successful device geolocation and advances
// to SelectingEvents with the nearest events pre-selected. The events
// argument is the located event set for the session's date.
func (s *PlannerService) SetGeolocation(key, date string, coord models.Coordinate, events []models.Event) (PlannerView, error) {
	if !utils.IsValidLatitude(coord.Latitude) || !utils.IsValidLongitude(coord.Longitude) {
		return PlannerView{}, plannerErr(http.StatusBadRequest, "Coordinate out of range")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.session(key, date)
	if sess.State != models.ChoosingLocation {
		return PlannerView{}, plannerErr(http.StatusConflict, "A starting point is already set")
	}

	sess.LastGeolocation = &coord
	s.enterSelection(sess, coord, "", events)
	return snapshot(sess), nil
}

// GeolocationError translates a platform geolocation failure into a
// user-facing message. The wizard stays in ChoosingLocation; manual
// address entry remains available.
func (s *PlannerService) GeolocationError(key, date, code string) (string, PlannerView) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.session(key, date)
	msg, ok := geolocationMessages[code]
	if !ok {
		msg = "Your location is unavailable. Enter a starting address instead."
	}
	return msg, snapshot(sess)
}

// GeocodeStart resolves a free-text address into the starting point.
// Only one geocode request may be in flight per session; the result is
// dropped if the session was reset while the call was out.
func (s *PlannerService) GeocodeStart(key, date, address, city string, events []models.Event) (PlannerView, error) {
	s.mu.Lock()
	sess := s.session(key, date)
	if sess.State != models.ChoosingLocation {
		s.mu.Unlock()
		return PlannerView{}, plannerErr(http.StatusConflict, "A starting point is already set")
	}
	id, err := begin(sess, requestGeocode)
	if err != nil {
		s.mu.Unlock()
		return PlannerView{}, err
	}
	s.mu.Unlock()

	result, geoErr := s.geocode.Forward(address, city)

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, stale := s.settle(key, date, requestGeocode, id, models.ChoosingLocation)
	if stale {
		// A reset, date change or competing start superseded this
		// request; drop silently without touching the session store.
		return s.staleView(key, date), nil
	}
	if geoErr != nil {
		if ge, ok := geoErr.(*GeoError); ok {
			return snapshot(sess), plannerErr(ge.Status, ge.Message)
		}
		return snapshot(sess), plannerErr(http.StatusBadGateway, "Geocoding failed")
	}

	s.enterSelection(sess, result.Coordinate, result.FullAddress, events)
	return snapshot(sess), nil
}

// ToggleEvent flips a candidate's membership in the selection set.
func (s *PlannerService) ToggleEvent(key, date, eventID string) (PlannerView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.session(key, date)
	if sess.State != models.SelectingEvents {
		return PlannerView{}, plannerErr(http.StatusConflict, "Not selecting events right now")
	}

	for i := range sess.Candidates {
		if sess.Candidates[i].Event.ID == eventID {
			sess.Candidates[i].Selected = !sess.Candidates[i].Selected
			return snapshot(sess), nil
		}
	}
	return PlannerView{}, plannerErr(http.StatusNotFound, "Event is not in the candidate pool")
}

// ConfirmSelection advances to transport choice. At least two selected
// events are required to make a route worth planning.
func (s *PlannerService) ConfirmSelection(key, date string) (PlannerView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.session(key, date)
	if sess.State != models.SelectingEvents {
		return PlannerView{}, plannerErr(http.StatusConflict, "Not selecting events right now")
	}
	if countSelected(sess) < 2 {
		return snapshot(sess), plannerErr(http.StatusBadRequest, "Select at least two events to plan a route")
	}

	sess.State = models.ChoosingTransport
	return snapshot(sess), nil
}

// Back moves one step toward ChoosingLocation without losing prior
// state.
func (s *PlannerService) Back(key, date string) (PlannerView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.session(key, date)
	switch sess.State {
	case models.SelectingEvents:
		sess.State = models.ChoosingLocation
	case models.ChoosingTransport:
		sess.State = models.SelectingEvents
	default:
		return PlannerView{}, plannerErr(http.StatusConflict, "Nothing to go back to")
	}
	return snapshot(sess), nil
}

// ChooseTransport picks a mode and requests the route: stops are
// sequenced greedily from the start, then the directions provider is
// asked for [start, ...ordered stops]. Failure keeps the wizard in
// ChoosingTransport with the selection intact.
func (s *PlannerService) ChooseTransport(key, date string, mode models.TransportMode) (PlannerView, error) {
	if !mode.IsValid() {
		return PlannerView{}, plannerErr(http.StatusBadRequest, "Transport mode must be walking, cycling or driving")
	}

	s.mu.Lock()
	sess := s.session(key, date)
	if sess.State != models.ChoosingTransport {
		s.mu.Unlock()
		return PlannerView{}, plannerErr(http.StatusConflict, "Not choosing transport right now")
	}
	if sess.Start == nil {
		s.mu.Unlock()
		return PlannerView{}, plannerErr(http.StatusConflict, "No starting point set")
	}

	sess.Mode = mode
	start := *sess.Start

	selected := make([]models.Event, 0, len(sess.Candidates))
	for _, cand := range sess.Candidates {
		if cand.Selected {
			selected = append(selected, cand.Event)
		}
	}

	ordered := s.orderer.Order(start, selected)

	coords := make([]models.Coordinate, 0, len(ordered)+1)
	coords = append(coords, start)
	for _, ev := range ordered {
		coords = append(coords, ev.Coordinate())
	}

	id, err := begin(sess, requestDirections)
	if err != nil {
		s.mu.Unlock()
		return PlannerView{}, err
	}
	s.mu.Unlock()

	route, routeErr := s.directions.Route(models.RouteRequest{Coordinates: coords, Mode: mode})

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, stale := s.settle(key, date, requestDirections, id, models.ChoosingTransport)
	if stale {
		return s.staleView(key, date), nil
	}
	if routeErr != nil {
		if ge, ok := routeErr.(*GeoError); ok {
			return snapshot(sess), plannerErr(ge.Status, ge.Message)
		}
		return snapshot(sess), plannerErr(http.StatusBadGateway, "Route request failed")
	}

	sess.Route = route
	sess.OrderedStops = ordered
	sess.State = models.ShowingRoute
	return snapshot(sess), nil
}

// ClearRoute resets the wizard to ChoosingLocation. The selection set
// empties, but a previously obtained geolocation stays as the prefilled
// starting point.
func (s *PlannerService) ClearRoute(key, date string) PlannerView {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.session(key, date)
	sess.State = models.ChoosingLocation
	sess.Start = sess.LastGeolocation
	sess.StartAddress = ""
	sess.Candidates = nil
	sess.Mode = ""
	sess.Route = nil
	sess.OrderedStops = nil
	sess.pending = make(map[requestKind]uint64)
	return snapshot(sess)
}

// Modify returns from the itinerary to event selection without
// discarding the start coordinate or the current selection.
func (s *PlannerService) Modify(key, date string) (PlannerView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.session(key, date)
	if sess.State != models.ShowingRoute {
		return PlannerView{}, plannerErr(http.StatusConflict, "No route to modify")
	}
	sess.State = models.SelectingEvents
	return snapshot(sess), nil
}

// Sweep drops sessions idle longer than the service TTL. Called from
// the maintenance job.
func (s *PlannerService) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	cutoff := time.Now().Add(-s.ttl)
	for key, sess := range s.sessions {
		if sess.touchedAt.Before(cutoff) {
			delete(s.sessions, key)
			removed++
		}
	}
	return removed
}

// SessionCount reports live sessions, for metrics.
func (s *PlannerService) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// enterSelection installs the resolved start and builds the candidate
// pool: the nearest events, all pre-selected. Callers hold s.mu.
func (s *PlannerService) enterSelection(sess *PlannerSession, start models.Coordinate, address string, events []models.Event) {
	// Whichever start resolves first wins; a geocode still in flight is
	// superseded and its settlement will be dropped as stale.
	delete(sess.pending, requestGeocode)

	sess.Start = &start
	sess.StartAddress = address

	nearest := NearestN(start, events, candidateCap)
	sess.Candidates = make([]Candidate, 0, len(nearest))
	for _, r := range nearest {
		sess.Candidates = append(sess.Candidates, Candidate{
			Event:          r.Event,
			DistanceMeters: r.DistanceMeters,
			Selected:       true,
		})
	}
	sess.State = models.SelectingEvents
}

// begin registers a single in-flight request of the given kind. A
// second request of the same kind while one is pending is refused, not
// queued.
func begin(sess *PlannerSession, kind requestKind) (uint64, error) {
	if _, busy := sess.pending[kind]; busy {
		return 0, plannerErr(http.StatusConflict, "A request is already in progress")
	}
	sess.nextRequestID++
	id := sess.nextRequestID
	sess.pending[kind] = id
	return id, nil
}

// settle resolves an outstanding request. It returns the session the
// result should apply to and whether the result is stale: the session
// was reset, replaced for a new date, the pending id no longer matches,
// or the wizard has left the step that issued the request. Callers hold
// s.mu.
func (s *PlannerService) settle(key, date string, kind requestKind, id uint64, from models.WizardState) (*PlannerSession, bool) {
	sess, ok := s.sessions[key]
	if !ok || sess.Date != date {
		return nil, true
	}
	if sess.pending[kind] != id {
		return nil, true
	}
	if sess.State != from {
		// The wizard moved on while this call was out. Release the
		// pending slot so the step can issue again when revisited.
		delete(sess.pending, kind)
		return nil, true
	}
	delete(sess.pending, kind)
	sess.touchedAt = time.Now()
	return sess, false
}

// staleView reports current state after a stale settlement without
// creating or resetting anything: the stored session if it still
// matches the date, otherwise an empty first-step view. Callers hold
// s.mu.
func (s *PlannerService) staleView(key, date string) PlannerView {
	if sess, ok := s.sessions[key]; ok && sess.Date == date {
		return snapshot(sess)
	}
	return PlannerView{State: models.ChoosingLocation, Date: date}
}

func countSelected(sess *PlannerSession) int {
	n := 0
	for _, cand := range sess.Candidates {
		if cand.Selected {
			n++
		}
	}
	return n
}

func snapshot(sess *PlannerSession) PlannerView {
	view := PlannerView{
		State:        sess.State,
		Date:         sess.Date,
		Start:        sess.Start,
		StartAddress: sess.StartAddress,
		Candidates:   sess.Candidates,
		Mode:         sess.Mode,
		Route:        sess.Route,
		Stops:        sess.OrderedStops,
	}
	for _, cand := range sess.Candidates {
		if cand.Selected {
			view.SelectedIDs = append(view.SelectedIDs, cand.Event.ID)
		}
	}
	return view
}
