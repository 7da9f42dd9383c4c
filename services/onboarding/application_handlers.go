package main

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rentflow/rentflow/shared/middleware"
	"github.com/rentflow/rentflow/shared/models"
	"github.com/rentflow/rentflow/shared/pipeline"
	"github.com/rentflow/rentflow/shared/utils"
)

// SubmitApplicationRequest represents the application submission request
type SubmitApplicationRequest struct {
	PropertyID uuid.UUID `json:"property_id" binding:"required"`
}

// DecideApplicationRequest represents a landlord decision on an application
type DecideApplicationRequest struct {
	Status models.ApplicationStatus `json:"status" binding:"required,oneof=invited submitted accepted declined"`
}

// handleSubmitApplication runs the full submission pipeline for the
// calling tenant. Gate and profile checks are re-run server-side; the
// client-side gate is advisory only.
func handleSubmitApplication(applications *pipeline.ApplicationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, _ := middleware.GetUserFromContext(c)

		var req SubmitApplicationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		application, err := applications.Submit(userID, req.PropertyID)
		if err != nil {
			var blocked *pipeline.BlockedError
			var invalid *pipeline.ValidationError
			switch {
			case errors.Is(err, models.ErrUnauthorized):
				utils.UnauthorizedResponse(c, "Authentication required")
			case errors.Is(err, pipeline.ErrAlreadyApplied):
				utils.ConflictResponse(c, "You have already applied for this property")
			case errors.As(err, &blocked):
				utils.ForbiddenResponse(c, blocked.Error())
			case errors.As(err, &invalid):
				utils.BadRequestResponse(c, invalid.Error())
			default:
				utils.InternalServerErrorResponse(c, "Failed to submit application")
			}
			return
		}

		utils.CreatedResponse(c, "Application submitted successfully", application)
	}
}

// handleListApplications lists the caller's applications: submitted for
// tenants, received for landlords.
func handleListApplications(applications *pipeline.ApplicationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := middleware.GetUserInfoFromContext(c)
		if err != nil {
			utils.UnauthorizedResponse(c, "Authentication required")
			return
		}

		var list []models.Application
		if user.IsLandlord() {
			list, err = applications.ListForLandlord(user.AuthID)
		} else {
			list, err = applications.ListForTenant(user.AuthID)
		}
		if err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch applications")
			return
		}

		utils.OKResponse(c, "Applications retrieved successfully", list)
	}
}

// handleDecideApplication applies a landlord decision
func handleDecideApplication(applications *pipeline.ApplicationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, _ := middleware.GetUserFromContext(c)

		applicationID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			utils.BadRequestResponse(c, "Invalid application ID")
			return
		}

		var req DecideApplicationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format. Status must be invited, submitted, accepted or declined")
			return
		}

		application, err := applications.Decide(userID, applicationID, req.Status)
		switch err {
		case nil:
			utils.OKResponse(c, "Application updated successfully", application)
		case models.ErrUnauthorized:
			utils.ForbiddenResponse(c, "Only the receiving landlord can decide this application")
		case models.ErrInvalidTransition:
			utils.ConflictResponse(c, "Application has already reached a final decision")
		case gorm.ErrRecordNotFound:
			utils.NotFoundResponse(c, "Application not found")
		default:
			utils.InternalServerErrorResponse(c, "Failed to update application")
		}
	}
}
