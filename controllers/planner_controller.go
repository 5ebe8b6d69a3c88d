// File: /controllers/planner_controller.go
package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"trianglecal-api/models"
	"trianglecal-api/repositories"
	"trianglecal-api/services"
	"trianglecal-api/utils"
)

// PlannerController drives the sightseeing-route wizard. Session state
// lives server-side, keyed by the authenticated user or, for anonymous
// visitors, the X-Visitor-ID header.
type PlannerController struct {
	repo    *repositories.EventRepository
	planner *services.PlannerService
}

func NewPlannerController(db *gorm.DB, planner *services.PlannerService) *PlannerController {
	return &PlannerController{
		repo:    repositories.NewEventRepository(db),
		planner: planner,
	}
}

func (pc *PlannerController) GetState(c *gin.Context) {
	key, date, ok := pc.sessionParams(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, pc.planner.View(key, date))
}

type geolocationRequest struct {
	Latitude  float64 `json:"latitude" binding:"required"`
	Longitude float64 `json:"longitude" binding:"required"`
}

func (pc *PlannerController) SetGeolocation(c *gin.Context) {
	key, date, ok := pc.sessionParams(c)
	if !ok {
		return
	}

	var req geolocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}

	events, err := pc.locatedEvents(date)
	if err != nil {
		utils.SendError(c, http.StatusInternalServerError, "Failed to fetch events")
		return
	}

	view, perr := pc.planner.SetGeolocation(key, date, models.Coordinate{
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	}, events)
	pc.respond(c, view, perr)
}

type geolocationErrorRequest struct {
	Code string `json:"code" binding:"required"`
}

// ReportGeolocationError translates a platform geolocation failure into
// one of three user-facing messages. The wizard stays in
// ChoosingLocation and manual entry remains available.
func (pc *PlannerController) ReportGeolocationError(c *gin.Context) {
	key, date, ok := pc.sessionParams(c)
	if !ok {
		return
	}

	var req geolocationErrorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}

	msg, view := pc.planner.GeolocationError(key, date, req.Code)
	c.JSON(http.StatusOK, gin.H{
		"message": msg,
		"planner": view,
	})
}

type geocodeStartRequest struct {
	Address string `json:"address" binding:"required"`
	City    string `json:"city"`
}

func (pc *PlannerController) GeocodeStart(c *gin.Context) {
	key, date, ok := pc.sessionParams(c)
	if !ok {
		return
	}

	var req geocodeStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}

	events, err := pc.locatedEvents(date)
	if err != nil {
		utils.SendError(c, http.StatusInternalServerError, "Failed to fetch events")
		return
	}

	view, perr := pc.planner.GeocodeStart(key, date, req.Address, req.City, events)
	pc.respond(c, view, perr)
}

func (pc *PlannerController) ToggleEvent(c *gin.Context) {
	key, date, ok := pc.sessionParams(c)
	if !ok {
		return
	}
	view, perr := pc.planner.ToggleEvent(key, date, c.Param("id"))
	pc.respond(c, view, perr)
}

func (pc *PlannerController) ConfirmSelection(c *gin.Context) {
	key, date, ok := pc.sessionParams(c)
	if !ok {
		return
	}
	view, perr := pc.planner.ConfirmSelection(key, date)
	pc.respond(c, view, perr)
}

func (pc *PlannerController) Back(c *gin.Context) {
	key, date, ok := pc.sessionParams(c)
	if !ok {
		return
	}
	view, perr := pc.planner.Back(key, date)
	pc.respond(c, view, perr)
}

type transportRequest struct {
	Mode models.TransportMode `json:"mode" binding:"required"`
}

func (pc *PlannerController) ChooseTransport(c *gin.Context) {
	key, date, ok := pc.sessionParams(c)
	if !ok {
		return
	}

	var req transportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}

	view, perr := pc.planner.ChooseTransport(key, date, req.Mode)
	pc.respond(c, view, perr)
}

func (pc *PlannerController) ClearRoute(c *gin.Context) {
	key, date, ok := pc.sessionParams(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, pc.planner.ClearRoute(key, date))
}

func (pc *PlannerController) Modify(c *gin.Context) {
	key, date, ok := pc.sessionParams(c)
	if !ok {
		return
	}
	view, perr := pc.planner.Modify(key, date)
	pc.respond(c, view, perr)
}

// sessionParams resolves the planner session key and date. Date comes
// from the `date` query parameter on every wizard call so a date change
// naturally starts a fresh session.
func (pc *PlannerController) sessionParams(c *gin.Context) (key, date string, ok bool) {
	date = c.Query("date")
	if !utils.IsValidDate(date) {
		utils.SendValidationError(c, "Date query parameter must be a calendar day (YYYY-MM-DD)")
		return "", "", false
	}

	if userID := c.GetString("user_id"); userID != "" {
		return "user:" + userID, date, true
	}
	if visitor := c.GetHeader("X-Visitor-ID"); visitor != "" {
		return "visitor:" + visitor, date, true
	}
	return "ip:" + c.ClientIP(), date, true
}

// locatedEvents loads the day's events that can take part in spatial
// operations.
func (pc *PlannerController) locatedEvents(date string) ([]models.Event, error) {
	events, err := pc.repo.ByDate(date)
	if err != nil {
		return nil, err
	}
	return services.WithCoordinates(events), nil
}

func (pc *PlannerController) respond(c *gin.Context, view services.PlannerView, err error) {
	if err != nil {
		var perr *services.PlannerError
		if errors.As(err, &perr) {
			c.JSON(perr.Status, gin.H{"error": perr.Message, "planner": view})
			return
		}
		utils.SendError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, view)
}
