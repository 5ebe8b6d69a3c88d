// File: /controllers/application_controller.go
package controllers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"trianglecal-api/models"
	"trianglecal-api/services"
	"trianglecal-api/utils"
)

// ApplicationController handles the author-application workflow:
// visitors apply, admins approve or decline, approval promotes the
// applicant to author and sends a notification mail.
type ApplicationController struct {
	db    *gorm.DB
	email *services.EmailService
}

func NewApplicationController(db *gorm.DB, email *services.EmailService) *ApplicationController {
	return &ApplicationController{db: db, email: email}
}

type ApplyRequest struct {
	Message string `json:"message" binding:"required"`
}

func (apc *ApplicationController) Apply(c *gin.Context) {
	userID := c.GetString("user_id")

	var req ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, err.Error())
		return
	}

	var user models.User
	if err := apc.db.First(&user, "id = ?", userID).Error; err != nil {
		utils.SendError(c, http.StatusNotFound, "User not found")
		return
	}
	if user.CanPublish() {
		utils.SendError(c, http.StatusConflict, "You can already publish events")
		return
	}

	var pending models.AuthorApplication
	err := apc.db.First(&pending, "user_id = ? AND status = ?", userID, models.ApplicationPending).Error
	if err == nil {
		utils.SendError(c, http.StatusConflict, "You already have a pending application")
		return
	}

	application := models.AuthorApplication{
		ID:      uuid.New().String(),
		UserID:  userID,
		Message: req.Message,
		Status:  models.ApplicationPending,
	}

	if err := apc.db.Create(&application).Error; err != nil {
		utils.SendError(c, http.StatusInternalServerError, "Failed to submit application")
		return
	}

	c.JSON(http.StatusCreated, application)
}

func (apc *ApplicationController) List(c *gin.Context) {
	status := c.DefaultQuery("status", models.ApplicationPending)

	var applications []models.AuthorApplication
	if err := apc.db.Preload("User").Where("status = ?", status).
		Order("created_at ASC").Find(&applications).Error; err != nil {
		utils.SendError(c, http.StatusInternalServerError, "Failed to fetch applications")
		return
	}

	for i := range applications {
		applications[i].User.Password = ""
	}

	c.JSON(http.StatusOK, gin.H{"applications": applications, "count": len(applications)})
}

func (apc *ApplicationController) Approve(c *gin.Context) {
	apc.decide(c, true)
}

func (apc *ApplicationController) Decline(c *gin.Context) {
	apc.decide(c, false)
}

func (apc *ApplicationController) decide(c *gin.Context, approved bool) {
	adminID := c.GetString("user_id")
	applicationID := c.Param("id")

	var application models.AuthorApplication
	if err := apc.db.Preload("User").First(&application, "id = ?", applicationID).Error; err != nil {
		utils.SendError(c, http.StatusNotFound, "Application not found")
		return
	}
	if application.Status != models.ApplicationPending {
		utils.SendError(c, http.StatusConflict, "Application already decided")
		return
	}

	status := models.ApplicationDeclined
	if approved {
		status = models.ApplicationApproved
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":     status,
		"decided_by": adminID,
		"decided_at": &now,
	}
	if err := apc.db.Model(&application).Updates(updates).Error; err != nil {
		utils.SendError(c, http.StatusInternalServerError, "Failed to update application")
		return
	}

	if approved {
		if err := apc.db.Model(&models.User{}).Where("id = ?", application.UserID).
			Update("role", models.RoleAuthor).Error; err != nil {
			utils.SendError(c, http.StatusInternalServerError, "Failed to promote applicant")
			return
		}
	}

	// Notification failure shouldn't undo the decision.
	if err := apc.email.SendApplicationDecision(application.User.Email, application.User.Name, approved); err != nil {
		log.Printf("Warning: could not send application decision email: %v", err)
	}

	utils.SendSuccess(c, "Application "+status, gin.H{"status": status})
}
