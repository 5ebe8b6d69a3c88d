// File: /controllers/admin_controller.go
package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"trianglecal-api/models"
	"trianglecal-api/repositories"
	"trianglecal-api/services"
	"trianglecal-api/utils"
)

// AdminController covers bulk data operations and the stats dashboard.
type AdminController struct {
	db   *gorm.DB
	repo *repositories.EventRepository
}

func NewAdminController(db *gorm.DB) *AdminController {
	return &AdminController{
		db:   db,
		repo: repositories.NewEventRepository(db),
	}
}

// BulkImport accepts a JSON array of events and inserts them in one
// batch. Rows failing validation are reported back and skipped; the
// rest still import.
func (ac *AdminController) BulkImport(c *gin.Context) {
	adminID := c.GetString("user_id")

	var reqs []CreateEventRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}
	if len(reqs) == 0 {
		utils.SendValidationError(c, "Import payload is empty")
		return
	}

	events := make([]models.Event, 0, len(reqs))
	skipped := make([]gin.H, 0)

	for i, req := range reqs {
		date, msg := req.validate()
		if msg != "" {
			skipped = append(skipped, gin.H{"index": i, "title": req.Title, "reason": msg})
			continue
		}
		events = append(events, models.Event{
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
			CreatorID:     adminID,
		})
	}

	if err := ac.repo.BulkInsert(events); err != nil {
		utils.SendError(c, http.StatusInternalServerError, "Failed to import events")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"imported": len(events),
		"skipped":  skipped,
	})
}

// BulkDelete removes all events in an inclusive date range.
func (ac *AdminController) BulkDelete(c *gin.Context) {
	from, to := c.Query("from"), c.Query("to")
	if !utils.IsValidDate(from) || !utils.IsValidDate(to) || from > to {
		utils.SendValidationError(c, "from and to must be calendar days with from <= to")
		return
	}

	deleted, err := ac.repo.DeleteRange(from, to)
	if err != nil {
		utils.SendError(c, http.StatusInternalServerError, "Failed to delete events")
		return
	}

	utils.SendSuccess(c, "Events deleted", gin.H{"deleted": deleted})
}

func (ac *AdminController) GetStats(c *gin.Context) {
	stats, err := ac.repo.Stats()
	if err != nil {
		utils.SendError(c, http.StatusInternalServerError, "Failed to compute stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ListEventsByDay is a convenience view for moderation: one day's
// events grouped by city with located/unlocated split.
func (ac *AdminController) ListEventsByDay(c *gin.Context) {
	date := c.Param("date")
	if !utils.IsValidDate(date) {
		utils.SendValidationError(c, "Date must be a calendar day (YYYY-MM-DD)")
		return
	}

	events, err := ac.repo.ByDate(date)
	if err != nil {
		utils.SendError(c, http.StatusInternalServerError, "Failed to fetch events")
		return
	}

	located := services.WithCoordinates(events)
	c.JSON(http.StatusOK, gin.H{
		"date":      date,
		"total":     len(events),
		"located":   len(located),
		"unlocated": len(events) - len(located),
		"groups":    services.GroupByCity(events),
	})
}
