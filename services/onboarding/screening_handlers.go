package main

import (
	"github.com/gin-gonic/gin"

	"github.com/rentflow/rentflow/shared/middleware"
	"github.com/rentflow/rentflow/shared/models"
	"github.com/rentflow/rentflow/shared/pipeline"
	"github.com/rentflow/rentflow/shared/utils"
)

// FinalizeProfileRequest represents the full-profile submission request
type FinalizeProfileRequest struct {
	FirstName  string `json:"first_name" binding:"required"`
	MiddleName string `json:"middle_name"`
	LastName   string `json:"last_name" binding:"required"`

	HasPets    bool   `json:"has_pets"`
	PetDetails string `json:"pet_details"`

	ConsentGiven bool `json:"consent_given"`

	Occupants     []models.Occupant     `json:"occupants"`
	IncomeSources []models.IncomeSource `json:"income_sources"`
	Residences    []models.Residence    `json:"residences"`
}

// handleGetScreeningProfile returns the caller's profile, or an empty
// default when none has been saved yet.
func handleGetScreeningProfile(screening *pipeline.ScreeningService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, _ := middleware.GetUserFromContext(c)

		profile, err := screening.LoadOrCreate(userID)
		if err != nil {
			utils.InternalServerErrorResponse(c, "Failed to load screening profile")
			return
		}

		utils.OKResponse(c, "Screening profile retrieved successfully", profile)
	}
}

// handleAutosaveScreeningProfile merges a partial edit; the persist
// fires after the debounce window, so the response only acknowledges
// receipt.
func handleAutosaveScreeningProfile(screening *pipeline.ScreeningService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, _ := middleware.GetUserFromContext(c)

		var update pipeline.ProfileUpdate
		if err := c.ShouldBindJSON(&update); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		screening.Autosave(userID, update)
		utils.OKResponse(c, "Autosave scheduled", nil)
	}
}

// handleFinalizeScreeningProfile upserts the full profile at the end of
// the step flow.
func handleFinalizeScreeningProfile(screening *pipeline.ScreeningService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, _ := middleware.GetUserFromContext(c)

		var req FinalizeProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		profile := &models.ScreeningProfile{
			FirstName:     req.FirstName,
			MiddleName:    req.MiddleName,
			LastName:      req.LastName,
			HasPets:       req.HasPets,
			PetDetails:    req.PetDetails,
			ConsentGiven:  req.ConsentGiven,
			Occupants:     req.Occupants,
			IncomeSources: req.IncomeSources,
			Residences:    req.Residences,
		}

		saved, err := screening.Finalize(userID, profile)
		if err != nil {
			utils.InternalServerErrorResponse(c, "Failed to save screening profile")
			return
		}

		utils.OKResponse(c, "Screening profile saved successfully", saved)
	}
}
