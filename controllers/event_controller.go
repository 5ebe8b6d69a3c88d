// File: /controllers/event_controller.go
package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"trianglecal-api/models"
	"trianglecal-api/repositories"
	"trianglecal-api/services"
	"trianglecal-api/utils"
)

type EventController struct {
	db         *gorm.DB
	repo       *repositories.EventRepository
	recurrence *services.RecurrenceService
	ical       *services.ICalService
}

func NewEventController(db *gorm.DB, recurrence *services.RecurrenceService, ical *services.ICalService) *EventController {
	return &EventController{
		db:         db,
		repo:       repositories.NewEventRepository(db),
		recurrence: recurrence,
		ical:       ical,
	}
}

type CreateEventRequest struct {
	Title         string   `json:"title" binding:"required"`
	Description   string   `json:"description"`
	LocationName  string   `json:"location_name"`
	Address       string   `json:"address"`
	City          string   `json:"city"`
	Region        string   `json:"region"`
	Date          string   `json:"date" binding:"required"`
	Times         string   `json:"times"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	Cost          string   `json:"cost"`
	Categories    []string `json:"categories"`
	Recurrence    string   `json:"recurrence"`
	RecurrenceEnd string   `json:"recurrence_end"`
	ImageURL      string   `json:"image_url"`
	URL           string   `json:"url"`
}

func (req *CreateEventRequest) validate() (string, string) {
	date, ok := services.NormalizeDate(req.Date)
	if !ok {
		return "", "Date must be a calendar day (YYYY-MM-DD)"
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		return "", "Latitude and longitude must be provided together"
	}
	if req.Latitude != nil {
		if !utils.IsValidLatitude(*req.Latitude) || !utils.IsValidLongitude(*req.Longitude) {
			return "", "Coordinate out of range"
		}
	}
	if req.RecurrenceEnd != "" && !utils.IsValidDate(req.RecurrenceEnd) {
		return "", "Recurrence end must be a calendar day (YYYY-MM-DD)"
	}
	return date, ""
}

func (ec *EventController) GetEvents(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	events, total, err := ec.repo.List(repositories.ListParams{
		Date:     c.Query("date"),
		City:     c.Query("city"),
		Category: c.Query("category"),
		Search:   c.Query("search"),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		utils.SendError(c, http.StatusInternalServerError, "Failed to fetch events")
		return
	}

	utils.SendPaginated(c, events, page, limit, total)
}

// GetDay returns the events of one calendar day grouped by city. With
// lat/lng query parameters the groups come back ordered by the distance
// of each group's nearest member; otherwise alphabetically. The "Other"
// bucket is always last.
func (ec *EventController) GetDay(c *gin.Context) {
	date := c.Param("date")
	if !utils.IsValidDate(date) {
		utils.SendValidationError(c, "Date must be a calendar day (YYYY-MM-DD)")
		return
	}

	events, err := ec.repo.ByDate(date)
	if err != nil {
		utils.SendError(c, http.StatusInternalServerError, "Failed to fetch events")
		return
	}

	groups := services.GroupByCity(events)

	latStr, lngStr := c.Query("lat"), c.Query("lng")
	if latStr != "" && lngStr != "" {
		lat, errLat := strconv.ParseFloat(latStr, 64)
		lng, errLng := strconv.ParseFloat(lngStr, 64)
		if errLat != nil || errLng != nil || !utils.IsValidLatitude(lat) || !utils.IsValidLongitude(lng) {
			utils.SendValidationError(c, "Invalid reference coordinate")
			return
		}
		groups = services.SortGroupsByDistance(models.Coordinate{Latitude: lat, Longitude: lng}, groups)
	}

	c.JSON(http.StatusOK, gin.H{
		"date":   date,
		"count":  len(events),
		"groups": groups,
	})
}

func (ec *EventController) GetEvent(c *gin.Context) {
	event, err := ec.repo.Get(c.Param("id"))
	if err != nil {
		utils.SendError(c, http.StatusNotFound, "Event not found")
		return
	}

	event.Creator.Password = ""
	c.JSON(http.StatusOK, event)
}

func (ec *EventController) CreateEvent(c *gin.Context) {
	userID := c.GetString("user_id")

	var req CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}

	date, msg := req.validate()
	if msg != "" {
		utils.SendValidationError(c, msg)
		return
	}

	event := models.Event{
		ID:            uuid.New().String(),
		Title:         req.Title,
		Description:   req.Description,
		LocationName:  req.LocationName,
		Address:       req.Address,
		City:          req.City,
		Region:        req.Region,
		Date:          date,
		Times:         req.Times,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		Cost:          req.Cost,
		Categories:    models.StringSlice(req.Categories),
		Recurrence:    req.Recurrence,
		RecurrenceEnd: req.RecurrenceEnd,
		ImageURL:      req.ImageURL,
		URL:           req.URL,
		CreatorID:     userID,
	}

	if err := ec.repo.Create(&event); err != nil {
		utils.SendError(c, http.StatusInternalServerError, "Failed to create event")
		return
	}

	ec.materializeRecurrence(event)

	c.JSON(http.StatusCreated, event)
}

func (ec *EventController) UpdateEvent(c *gin.Context) {
	event, ok := ec.ownedEvent(c)
	if !ok {
		return
	}

	var req CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}

	date, msg := req.validate()
	if msg != "" {
		utils.SendValidationError(c, msg)
		return
	}

	updates := map[string]interface{}{
		"title":          req.Title,
		"description":    req.Description,
		"location_name":  req.LocationName,
		"address":        req.Address,
		"city":           req.City,
		"region":         req.Region,
		"date":           date,
		"times":          req.Times,
		"latitude":       req.Latitude,
		"longitude":      req.Longitude,
		"cost":           req.Cost,
		"categories":     models.StringSlice(req.Categories),
		"recurrence":     req.Recurrence,
		"recurrence_end": req.RecurrenceEnd,
		"image_url":      req.ImageURL,
		"url":            req.URL,
	}

	if err := ec.repo.Update(event, updates); err != nil {
		utils.SendError(c, http.StatusInternalServerError, "Failed to update event")
		return
	}

	updated, err := ec.repo.Get(event.ID)
	if err != nil {
		utils.SendError(c, http.StatusInternalServerError, "Failed to reload event")
		return
	}
	ec.materializeRecurrence(*updated)

	c.JSON(http.StatusOK, updated)
}

func (ec *EventController) DeleteEvent(c *gin.Context) {
	event, ok := ec.ownedEvent(c)
	if !ok {
		return
	}

	if err := ec.repo.Delete(event); err != nil {
		utils.SendError(c, http.StatusInternalServerError, "Failed to delete event")
		return
	}

	utils.SendSuccess(c, "Event deleted successfully", nil)
}

// ExportICS serves the filtered event list as an iCalendar feed.
func (ec *EventController) ExportICS(c *gin.Context) {
	date := c.Query("date")

	var events []models.Event
	var err error
	if date != "" {
		if !utils.IsValidDate(date) {
			utils.SendValidationError(c, "Date must be a calendar day (YYYY-MM-DD)")
			return
		}
		events, err = ec.repo.ByDate(date)
	} else {
		events, _, err = ec.repo.List(repositories.ListParams{Page: 1, Limit: 500})
	}
	if err != nil {
		utils.SendError(c, http.StatusInternalServerError, "Failed to fetch events")
		return
	}

	feed := ec.ical.BuildFeed(events)
	c.Header("Content-Disposition", `attachment; filename="trianglecal.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(feed))
}

// ownedEvent loads the event and enforces that the caller is its
// creator or an admin.
func (ec *EventController) ownedEvent(c *gin.Context) (*models.Event, bool) {
	event, err := ec.repo.Get(c.Param("id"))
	if err != nil {
		utils.SendError(c, http.StatusNotFound, "Event not found")
		return nil, false
	}

	userID := c.GetString("user_id")
	role := c.GetString("role")
	if event.CreatorID != userID && role != models.RoleAdmin {
		utils.SendError(c, http.StatusForbidden, "Not your event")
		return nil, false
	}
	return event, true
}

// materializeRecurrence refreshes the occurrence table for a recurring
// event over the next year. Best effort: a bad rule leaves the event in
// place as a one-off.
func (ec *EventController) materializeRecurrence(event models.Event) {
	if event.Recurrence == "" {
		ec.repo.ReplaceOccurrences(event.ID, nil)
		return
	}

	now := time.Now()
	occurrences, err := ec.recurrence.Expand(event, now.AddDate(0, 0, -1), now.AddDate(1, 0, 0))
	if err != nil {
		return
	}
	ec.repo.ReplaceOccurrences(event.ID, occurrences)
}
