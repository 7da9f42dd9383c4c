package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ScreeningProfile is a tenant's reusable screening dossier: identity,
// household, income sources and residence history, captured once and
// reused across applications. One profile per tenant.
type ScreeningProfile struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	TenantID   string    `json:"tenant_id" gorm:"type:varchar(255);uniqueIndex;not null"`
	FirstName  string    `json:"first_name"`
	MiddleName string    `json:"middle_name"`
	LastName   string    `json:"last_name"`

	HasPets    bool   `json:"has_pets"`
	PetDetails string `json:"pet_details"`

	ConsentGiven bool       `json:"consent_given"`
	ConsentDate  *time.Time `json:"consent_date,omitempty"`
	IsComplete   bool       `json:"is_complete"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Occupants     []Occupant     `json:"occupants,omitempty" gorm:"foreignKey:ProfileID"`
	IncomeSources []IncomeSource `json:"income_sources,omitempty" gorm:"foreignKey:ProfileID"`
	Residences    []Residence    `json:"residences,omitempty" gorm:"foreignKey:ProfileID"`
}

// Occupant is a household member other than the applicant.
type Occupant struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	ProfileID    uuid.UUID `json:"profile_id" gorm:"type:uuid;not null;index"`
	Name         string    `json:"name"`
	Relationship string    `json:"relationship"`
}

// IncomeSource is one stream of income with optional supporting documents.
type IncomeSource struct {
	ID              uuid.UUID  `json:"id" gorm:"type:uuid;primary_key"`
	ProfileID       uuid.UUID  `json:"profile_id" gorm:"type:uuid;not null;index"`
	Type            string     `json:"type"`
	MonthlyAmount   float64    `json:"monthly_amount" gorm:"type:decimal(10,2)"`
	Employer        string     `json:"employer"`
	StartDate       *time.Time `json:"start_date,omitempty"`
	EmployerContact string     `json:"employer_contact"`

	Documents []IncomeDocument `json:"documents,omitempty" gorm:"foreignKey:IncomeSourceID"`
}

// IncomeDocument is a blob-store reference to an uploaded proof of income.
type IncomeDocument struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	IncomeSourceID uuid.UUID `json:"income_source_id" gorm:"type:uuid;not null;index"`
	StoragePath    string    `json:"storage_path"`
}

// Residence is one entry in the applicant's residence history.
type Residence struct {
	ID              uuid.UUID  `json:"id" gorm:"type:uuid;primary_key"`
	ProfileID       uuid.UUID  `json:"profile_id" gorm:"type:uuid;not null;index"`
	Type            string     `json:"type"`
	AddressLine1    string     `json:"address_line1"`
	AddressLine2    string     `json:"address_line2"`
	City            string     `json:"city"`
	Postcode        string     `json:"postcode"`
	MoveInDate      *time.Time `json:"move_in_date,omitempty"`
	MonthlyRent     float64    `json:"monthly_rent" gorm:"type:decimal(10,2)"`
	LandlordContact string     `json:"landlord_contact"`
}

func (ScreeningProfile) TableName() string { return "screening_profiles" }
func (Occupant) TableName() string         { return "occupants" }
func (IncomeSource) TableName() string     { return "income_sources" }
func (IncomeDocument) TableName() string   { return "income_documents" }
func (Residence) TableName() string        { return "residences" }

var (
	ErrPersonalIncomplete = errors.New("first and last name are required")
	ErrNoIncomeSource     = errors.New("at least one income source is required")
	ErrNoResidence        = errors.New("at least one residence is required")
	ErrConsentMissing     = errors.New("background check consent is required")
)

// ValidatePersonal checks the identity section.
func (p *ScreeningProfile) ValidatePersonal() error {
	if p.FirstName == "" || p.LastName == "" {
		return ErrPersonalIncomplete
	}
	return nil
}

// ValidateHousehold checks the household section. The section is
// optional, so an empty household is valid.
func (p *ScreeningProfile) ValidateHousehold() error {
	return nil
}

// ValidateIncome checks the income section.
func (p *ScreeningProfile) ValidateIncome() error {
	if len(p.IncomeSources) == 0 {
		return ErrNoIncomeSource
	}
	return nil
}

// ValidateResidence checks the residence-history section.
func (p *ScreeningProfile) ValidateResidence() error {
	if len(p.Residences) == 0 {
		return ErrNoResidence
	}
	return nil
}

// ValidateConsent checks the consent section.
func (p *ScreeningProfile) ValidateConsent() error {
	if !p.ConsentGiven {
		return ErrConsentMissing
	}
	return nil
}

// Validate reports whether the profile is submit-ready. All four
// non-optional sections must pass; the first failure is returned.
func (p *ScreeningProfile) Validate() error {
	for _, check := range []func() error{
		p.ValidatePersonal,
		p.ValidateIncome,
		p.ValidateResidence,
		p.ValidateConsent,
	} {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

// MarkComplete flags the profile as submitted and stamps the consent
// date. A profile without background-check consent is never complete.
func (p *ScreeningProfile) MarkComplete(now time.Time) {
	if !p.ConsentGiven {
		return
	}
	p.IsComplete = true
	if p.ConsentDate == nil {
		p.ConsentDate = &now
	}
}
