package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenancy ties one tenant, one landlord and one property together with
// lease terms and signature state. Created in draft by the landlord,
// moved out of draft exactly once by lease generation, and activated
// when both parties have signed.
type Tenancy struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	PropertyID uuid.UUID `json:"property_id" gorm:"type:uuid;not null;index"`
	// TenantID is nullable: a landlord may open a draft tenancy before a
	// tenant has been matched.
	TenantID   *string `json:"tenant_id,omitempty" gorm:"type:varchar(255);index"`
	LandlordID string  `json:"landlord_id" gorm:"type:varchar(255);not null;index"`

	MonthlyRent float64    `json:"monthly_rent" gorm:"type:decimal(10,2)"`
	Deposit     float64    `json:"deposit" gorm:"type:decimal(10,2)"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     *time.Time `json:"end_date,omitempty"`

	// Status is the coarse tenancy-level state, distinct from LeaseStatus.
	Status TenancyStatus `json:"status" gorm:"type:varchar(20);not null;default:'draft'"`

	// LeaseStatus is stored as the raw string so rows written with legacy
	// literals keep their stored value; read through LeaseState.
	LeaseStatus string `json:"lease_status" gorm:"type:varchar(40);not null;default:'draft'"`

	// LeaseDocumentPath is the blob-store key of the generated lease.
	// LeaseDocumentURL is a legacy direct-URL fallback for old rows.
	LeaseDocumentPath string `json:"lease_document_path"`
	LeaseDocumentURL  string `json:"lease_document_url"`

	LandlordSignatureURL string     `json:"landlord_signature_url"`
	TenantSignatureURL   string     `json:"tenant_signature_url"`
	LandlordSignedAt     *time.Time `json:"landlord_signed_at,omitempty"`
	TenantSignedAt       *time.Time `json:"tenant_signed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TenancyStatus is the coarse bookkeeping status of a tenancy.
type TenancyStatus string

const (
	TenancyDraft      TenancyStatus = "draft"
	TenancyActive     TenancyStatus = "active"
	TenancyEnded      TenancyStatus = "ended"
	TenancyTerminated TenancyStatus = "terminated"
)

// LeaseStatus is the canonical lease state machine.
type LeaseStatus string

const (
	LeaseDraft                     LeaseStatus = "draft"
	LeaseAwaitingTenantSignature   LeaseStatus = "awaiting_tenant_signature"
	LeaseAwaitingLandlordSignature LeaseStatus = "awaiting_landlord_signature"
	LeaseCompleted                 LeaseStatus = "completed"
)

// SignerRole identifies which party is signing.
type SignerRole string

const (
	SignerLandlord SignerRole = "landlord"
	SignerTenant   SignerRole = "tenant"
)

func (Tenancy) TableName() string {
	return "tenancies"
}

// NormalizeLeaseStatus maps legacy status literals onto the canonical
// enum. Rows written by older code paths used "generated",
// "tenant_signed", "landlord_signed" and "fully_signed".
func NormalizeLeaseStatus(raw string) LeaseStatus {
	switch raw {
	case "generated":
		return LeaseAwaitingTenantSignature
	case "tenant_signed":
		return LeaseAwaitingLandlordSignature
	case "landlord_signed":
		return LeaseAwaitingTenantSignature
	case "fully_signed":
		return LeaseCompleted
	case string(LeaseAwaitingTenantSignature),
		string(LeaseAwaitingLandlordSignature),
		string(LeaseCompleted):
		return LeaseStatus(raw)
	default:
		return LeaseDraft
	}
}

// LeaseState returns the canonical lease status for this row.
func (t *Tenancy) LeaseState() LeaseStatus {
	return NormalizeLeaseStatus(t.LeaseStatus)
}

// DocumentRef returns the lease document reference, preferring the
// blob-store path over the legacy direct URL.
func (t *Tenancy) DocumentRef() string {
	if t.LeaseDocumentPath != "" {
		return t.LeaseDocumentPath
	}
	return t.LeaseDocumentURL
}

// SignerFor resolves the signing role of a caller by identity match.
func (t *Tenancy) SignerFor(userID string) (SignerRole, error) {
	if userID == t.LandlordID {
		return SignerLandlord, nil
	}
	if t.TenantID != nil && userID == *t.TenantID {
		return SignerTenant, nil
	}
	return "", ErrUnauthorized
}

// SignedAt returns the signature timestamp for the given role.
func (t *Tenancy) SignedAt(role SignerRole) *time.Time {
	if role == SignerLandlord {
		return t.LandlordSignedAt
	}
	return t.TenantSignedAt
}

// OtherParty returns the counterpart of a signing role.
func (r SignerRole) OtherParty() SignerRole {
	if r == SignerLandlord {
		return SignerTenant
	}
	return SignerLandlord
}

// NextLeaseStatus computes the lease status that follows a signature by
// role, given the current status and whether the other party's signature
// timestamp is already present. The rule is order-independent: the lease
// completes exactly when the second signature lands, otherwise it waits
// on the party that has not signed yet.
func NextLeaseStatus(current LeaseStatus, role SignerRole, otherSigned bool) (LeaseStatus, error) {
	switch current {
	case LeaseDraft:
		// Cannot sign before the document exists.
		return current, ErrInvalidTransition
	case LeaseCompleted:
		return current, ErrAlreadySigned
	}
	if otherSigned {
		return LeaseCompleted, nil
	}
	if role.OtherParty() == SignerLandlord {
		return LeaseAwaitingLandlordSignature, nil
	}
	return LeaseAwaitingTenantSignature, nil
}
