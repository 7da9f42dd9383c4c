package main

import (
	"encoding/base64"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rentflow/rentflow/shared/middleware"
	"github.com/rentflow/rentflow/shared/models"
	"github.com/rentflow/rentflow/shared/pipeline"
	"github.com/rentflow/rentflow/shared/utils"
)

// CreateTenancyRequest represents the draft tenancy creation request
type CreateTenancyRequest struct {
	PropertyID  uuid.UUID  `json:"property_id" binding:"required"`
	TenantID    *string    `json:"tenant_id"`
	MonthlyRent float64    `json:"monthly_rent" binding:"required"`
	Deposit     float64    `json:"deposit" binding:"required"`
	StartDate   time.Time  `json:"start_date" binding:"required"`
	EndDate     *time.Time `json:"end_date"`
}

// SignLeaseRequest carries the signer's signature image, base64-encoded
type SignLeaseRequest struct {
	SignatureImage string `json:"signature_image" binding:"required"`
}

// handleCreateTenancy opens a draft tenancy (landlord only)
func handleCreateTenancy(leases *pipeline.LeaseService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, _ := middleware.GetUserFromContext(c)

		var req CreateTenancyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		tenancy, err := leases.CreateTenancy(userID, pipeline.TenancyTerms{
			PropertyID:  req.PropertyID,
			TenantID:    req.TenantID,
			MonthlyRent: req.MonthlyRent,
			Deposit:     req.Deposit,
			StartDate:   req.StartDate,
			EndDate:     req.EndDate,
		})
		if err != nil {
			utils.InternalServerErrorResponse(c, "Failed to create tenancy")
			return
		}

		utils.CreatedResponse(c, "Tenancy created successfully", tenancy)
	}
}

// handleGetTenancy returns a tenancy to one of its parties
func handleGetTenancy(leases *pipeline.LeaseService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, _ := middleware.GetUserFromContext(c)

		tenancyID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			utils.BadRequestResponse(c, "Invalid tenancy ID")
			return
		}

		tenancy, err := leases.Get(tenancyID)
		if err == gorm.ErrRecordNotFound {
			utils.NotFoundResponse(c, "Tenancy not found")
			return
		}
		if err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch tenancy")
			return
		}

		if _, err := tenancy.SignerFor(userID); err != nil {
			utils.ForbiddenResponse(c, "You are not a party to this tenancy")
			return
		}

		utils.OKResponse(c, "Tenancy retrieved successfully", tenancy)
	}
}

// handleListTenancies lists the caller's tenancies
func handleListTenancies(leases *pipeline.LeaseService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := middleware.GetUserInfoFromContext(c)
		if err != nil {
			utils.UnauthorizedResponse(c, "Authentication required")
			return
		}

		var list []models.Tenancy
		if user.IsLandlord() {
			list, err = leases.ListForLandlord(user.AuthID)
		} else {
			list, err = leases.ListForTenant(user.AuthID)
		}
		if err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch tenancies")
			return
		}

		utils.OKResponse(c, "Tenancies retrieved successfully", list)
	}
}

// handleGenerateLease triggers lease generation for a draft tenancy
// (landlord only). The generation collaborator owns the status write;
// this handler only triggers and reports the re-read state.
func handleGenerateLease(leases *pipeline.LeaseService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, _ := middleware.GetUserFromContext(c)

		tenancyID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			utils.BadRequestResponse(c, "Invalid tenancy ID")
			return
		}

		tenancy, err := leases.Generate(c.Request.Context(), userID, tenancyID)
		switch err {
		case nil:
			utils.OKResponse(c, "Lease generated successfully", tenancy)
		case models.ErrUnauthorized:
			utils.ForbiddenResponse(c, "Only the landlord can generate the lease")
		case pipeline.ErrStatusConflict:
			utils.ConflictResponse(c, "Lease has already been generated")
		case gorm.ErrRecordNotFound:
			utils.NotFoundResponse(c, "Tenancy not found")
		default:
			utils.InternalServerErrorResponse(c, "Failed to generate lease")
		}
	}
}

// handleSignLease records the caller's signature on the lease. Either
// party may sign, in either order; the service merges the two signature
// events into one consistent status.
func handleSignLease(leases *pipeline.LeaseService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, _ := middleware.GetUserFromContext(c)

		tenancyID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			utils.BadRequestResponse(c, "Invalid tenancy ID")
			return
		}

		var req SignLeaseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		signatureImage, err := base64.StdEncoding.DecodeString(req.SignatureImage)
		if err != nil {
			utils.BadRequestResponse(c, "Signature image must be base64-encoded")
			return
		}

		tenancy, err := leases.Sign(userID, tenancyID, signatureImage, time.Now())
		switch {
		case err == nil:
			utils.OKResponse(c, "Lease signed successfully", tenancy)
		case errors.Is(err, models.ErrUnauthorized):
			utils.ForbiddenResponse(c, "Only the landlord or tenant on this tenancy can sign")
		case errors.Is(err, models.ErrAlreadySigned):
			utils.ConflictResponse(c, "Lease is already fully signed")
		case errors.Is(err, models.ErrInvalidTransition):
			utils.ConflictResponse(c, "Lease must be generated before signing")
		case errors.Is(err, pipeline.ErrStatusConflict):
			utils.ConflictResponse(c, "Lease was updated concurrently, please retry")
		case errors.Is(err, gorm.ErrRecordNotFound):
			utils.NotFoundResponse(c, "Tenancy not found")
		default:
			utils.InternalServerErrorResponse(c, "Failed to sign lease")
		}
	}
}

// handleDownloadLease streams the lease document to a party
func handleDownloadLease(leases *pipeline.LeaseService, blobs pipeline.BlobStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, _ := middleware.GetUserFromContext(c)

		tenancyID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			utils.BadRequestResponse(c, "Invalid tenancy ID")
			return
		}

		tenancy, err := leases.Get(tenancyID)
		if err != nil {
			utils.NotFoundResponse(c, "Tenancy not found")
			return
		}
		if _, err := tenancy.SignerFor(userID); err != nil {
			utils.ForbiddenResponse(c, "You are not a party to this tenancy")
			return
		}

		ref := tenancy.DocumentRef()
		if ref == "" {
			utils.NotFoundResponse(c, "Lease has not been generated yet")
			return
		}

		// Legacy rows carry a direct URL instead of a blob-store path.
		if tenancy.LeaseDocumentPath == "" {
			c.Redirect(302, ref)
			return
		}

		data, err := blobs.Download(ref)
		if err != nil {
			utils.InternalServerErrorResponse(c, "Failed to download lease document")
			return
		}
		c.Data(200, "application/pdf", data)
	}
}
