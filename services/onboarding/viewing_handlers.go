package main

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rentflow/rentflow/shared/middleware"
	"github.com/rentflow/rentflow/shared/models"
	"github.com/rentflow/rentflow/shared/pipeline"
	"github.com/rentflow/rentflow/shared/utils"
)

// CreateViewingRequest represents the viewing creation request
type CreateViewingRequest struct {
	PropertyID     uuid.UUID  `json:"property_id" binding:"required"`
	TenantID       string     `json:"tenant_id"`
	LandlordID     string     `json:"landlord_id"`
	ConversationID *uuid.UUID `json:"conversation_id"`
	Notes          string     `json:"notes"`
}

// ScheduleViewingRequest represents the scheduling request. A missing
// datetime is rejected before any state is touched.
type ScheduleViewingRequest struct {
	ScheduledDate *time.Time `json:"scheduled_date" binding:"required"`
}

// CompleteViewingRequest represents the completion request
type CompleteViewingRequest struct {
	Notes string `json:"notes"`
}

// handleCreateViewing opens a viewing request. Either party may create:
// a tenant requests a viewing on a property, or a landlord creates one
// on a tenant's behalf.
func handleCreateViewing(viewings *pipeline.ViewingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := middleware.GetUserInfoFromContext(c)
		if err != nil {
			utils.UnauthorizedResponse(c, "Authentication required")
			return
		}

		var req CreateViewingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		tenantID := req.TenantID
		landlordID := req.LandlordID
		if user.IsTenant() {
			tenantID = user.AuthID
		} else {
			landlordID = user.AuthID
		}
		if tenantID == "" || landlordID == "" {
			utils.BadRequestResponse(c, "Both tenant and landlord must be identified")
			return
		}

		viewing, err := viewings.Create(req.PropertyID, tenantID, landlordID, req.ConversationID, req.Notes)
		if err == pipeline.ErrViewingExists {
			utils.ConflictResponse(c, "An active viewing already exists for this property")
			return
		}
		if err != nil {
			utils.InternalServerErrorResponse(c, "Failed to create viewing")
			return
		}

		utils.CreatedResponse(c, "Viewing requested successfully", viewing)
	}
}

// handleGetLatestViewing returns the authoritative viewing for the
// caller and property.
func handleGetLatestViewing(viewings *pipeline.ViewingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, _ := middleware.GetUserFromContext(c)

		propertyID, err := uuid.Parse(c.Param("property_id"))
		if err != nil {
			utils.BadRequestResponse(c, "Invalid property ID")
			return
		}

		viewing, err := viewings.Latest(propertyID, userID)
		if err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch viewing")
			return
		}
		if viewing == nil {
			utils.NotFoundResponse(c, "No viewing found for this property")
			return
		}

		utils.OKResponse(c, "Viewing retrieved successfully", viewing)
	}
}

// handleScheduleViewing sets the viewing date (landlord only)
func handleScheduleViewing(viewings *pipeline.ViewingService) gin.HandlerFunc {
	return viewingMutation(viewings, func(svc *pipeline.ViewingService, callerID string, viewingID uuid.UUID, c *gin.Context) (*models.Viewing, error) {
		var req ScheduleViewingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, errBadRequest
		}
		return svc.Schedule(callerID, viewingID, *req.ScheduledDate)
	}, "Viewing scheduled successfully")
}

// handleCompleteViewing marks the viewing as held (landlord only)
func handleCompleteViewing(viewings *pipeline.ViewingService) gin.HandlerFunc {
	return viewingMutation(viewings, func(svc *pipeline.ViewingService, callerID string, viewingID uuid.UUID, c *gin.Context) (*models.Viewing, error) {
		var req CompleteViewingRequest
		_ = c.ShouldBindJSON(&req)
		return svc.Complete(callerID, viewingID, req.Notes)
	}, "Viewing completed successfully")
}

// handleCancelViewing terminates the viewing (landlord only)
func handleCancelViewing(viewings *pipeline.ViewingService) gin.HandlerFunc {
	return viewingMutation(viewings, func(svc *pipeline.ViewingService, callerID string, viewingID uuid.UUID, c *gin.Context) (*models.Viewing, error) {
		return svc.Cancel(callerID, viewingID)
	}, "Viewing cancelled successfully")
}

// handleConfirmViewing records the landlord's confirmation, the flag the
// access gate waits on after completion.
func handleConfirmViewing(viewings *pipeline.ViewingService) gin.HandlerFunc {
	return viewingMutation(viewings, func(svc *pipeline.ViewingService, callerID string, viewingID uuid.UUID, c *gin.Context) (*models.Viewing, error) {
		return svc.Confirm(callerID, viewingID)
	}, "Viewing confirmed successfully")
}

// handleSendApplication opens the application to the tenant (landlord only)
func handleSendApplication(viewings *pipeline.ViewingService) gin.HandlerFunc {
	return viewingMutation(viewings, func(svc *pipeline.ViewingService, callerID string, viewingID uuid.UUID, c *gin.Context) (*models.Viewing, error) {
		return svc.MarkApplicationSent(callerID, viewingID)
	}, "Application sent successfully")
}

// handleApplicationAccess evaluates the access gate for the caller
func handleApplicationAccess(viewings *pipeline.ViewingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, _ := middleware.GetUserFromContext(c)

		propertyID, err := uuid.Parse(c.Param("property_id"))
		if err != nil {
			utils.BadRequestResponse(c, "Invalid property ID")
			return
		}

		decision, err := viewings.AccessState(propertyID, userID)
		if err != nil {
			utils.InternalServerErrorResponse(c, "Failed to evaluate application access")
			return
		}

		utils.OKResponse(c, "Application access evaluated", decision)
	}
}

var errBadRequest = &badRequestError{}

type badRequestError struct{}

func (e *badRequestError) Error() string { return "invalid request format" }

// viewingMutation wraps the shared plumbing of landlord viewing actions:
// id parsing, the service call, and error-to-status mapping.
func viewingMutation(
	viewings *pipeline.ViewingService,
	fn func(svc *pipeline.ViewingService, callerID string, viewingID uuid.UUID, c *gin.Context) (*models.Viewing, error),
	successMessage string,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, _ := middleware.GetUserFromContext(c)

		viewingID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			utils.BadRequestResponse(c, "Invalid viewing ID")
			return
		}

		viewing, err := fn(viewings, userID, viewingID, c)
		switch err {
		case nil:
			utils.OKResponse(c, successMessage, viewing)
		case errBadRequest:
			utils.BadRequestResponse(c, "Invalid request format")
		case models.ErrUnauthorized:
			utils.ForbiddenResponse(c, "Only the property's landlord can perform this action")
		case models.ErrInvalidTransition:
			utils.ConflictResponse(c, "Viewing is not in a state that allows this action")
		case gorm.ErrRecordNotFound:
			utils.NotFoundResponse(c, "Viewing not found")
		default:
			utils.InternalServerErrorResponse(c, "Failed to update viewing")
		}
	}
}
