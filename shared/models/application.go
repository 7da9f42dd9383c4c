package models

import (
	"time"

	"github.com/google/uuid"
)

// Application is the formal rental application for one (property, tenant)
// pair, created once the access gate permits it. Uniqueness is enforced
// both by a pre-insert query and by a composite unique index.
type Application struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	PropertyID uuid.UUID `json:"property_id" gorm:"type:uuid;not null;uniqueIndex:idx_applications_property_tenant"`
	TenantID   string    `json:"tenant_id" gorm:"type:varchar(255);not null;uniqueIndex:idx_applications_property_tenant"`
	LandlordID string    `json:"landlord_id" gorm:"type:varchar(255);not null;index"`

	Status ApplicationStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending'"`

	SubmittedAt time.Time `json:"submitted_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ApplicationStatus represents the status of an application
type ApplicationStatus string

const (
	ApplicationPending   ApplicationStatus = "pending"
	ApplicationInvited   ApplicationStatus = "invited"
	ApplicationSubmitted ApplicationStatus = "submitted"
	ApplicationAccepted  ApplicationStatus = "accepted"
	ApplicationDeclined  ApplicationStatus = "declined"
)

func (Application) TableName() string {
	return "applications"
}

// IsTerminal reports whether the application has reached a landlord
// decision and is immutable in normal flow.
func (a *Application) IsTerminal() bool {
	return a.Status == ApplicationAccepted || a.Status == ApplicationDeclined
}

// Decide applies a landlord decision. Terminal applications are frozen.
func (a *Application) Decide(next ApplicationStatus) error {
	if a.IsTerminal() {
		return ErrInvalidTransition
	}
	switch next {
	case ApplicationInvited, ApplicationSubmitted, ApplicationAccepted, ApplicationDeclined:
		a.Status = next
		return nil
	default:
		return ErrInvalidTransition
	}
}
