package models

import (
	"time"

	"github.com/google/uuid"
)

// Viewing tracks the lifecycle of a single property viewing between one
// tenant and one landlord. The most recent non-cancelled row for a
// (property, tenant) pair is authoritative for application gating.
type Viewing struct {
	ID             uuid.UUID  `json:"id" gorm:"type:uuid;primary_key"`
	PropertyID     uuid.UUID  `json:"property_id" gorm:"type:uuid;not null;index"`
	TenantID       string     `json:"tenant_id" gorm:"type:varchar(255);not null;index"`
	LandlordID     string     `json:"landlord_id" gorm:"type:varchar(255);not null;index"`
	ConversationID *uuid.UUID `json:"conversation_id,omitempty" gorm:"type:uuid"`

	Status        ViewingStatus `json:"status" gorm:"type:varchar(20);not null;default:'requested'"`
	ScheduledDate *time.Time    `json:"scheduled_date,omitempty"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
	Notes         string        `json:"notes"`

	// Landlord-set flags layered on top of the status enum. Completing a
	// viewing is necessary but not sufficient for application access: the
	// landlord must confirm the viewing and then send the application.
	ViewingConfirmed bool `json:"viewing_confirmed"`
	ApplicationSent  bool `json:"application_sent"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ViewingStatus represents the status of a viewing
type ViewingStatus string

const (
	ViewingRequested ViewingStatus = "requested"
	ViewingScheduled ViewingStatus = "scheduled"
	ViewingCompleted ViewingStatus = "completed"
	ViewingCancelled ViewingStatus = "cancelled"
)

func (Viewing) TableName() string {
	return "viewings"
}

// IsTerminal reports whether the viewing can still change status.
func (v *Viewing) IsTerminal() bool {
	return v.Status == ViewingCompleted || v.Status == ViewingCancelled
}

// IsActive reports whether the viewing counts for gating purposes.
func (v *Viewing) IsActive() bool {
	return v.Status != ViewingCancelled
}

// Schedule moves the viewing from requested to scheduled.
func (v *Viewing) Schedule(at time.Time) error {
	if v.Status != ViewingRequested {
		return ErrInvalidTransition
	}
	v.Status = ViewingScheduled
	v.ScheduledDate = &at
	return nil
}

// Complete moves the viewing from scheduled to completed and stamps the
// completion time. Confirmation remains a separate landlord action.
func (v *Viewing) Complete(notes string, now time.Time) error {
	if v.Status != ViewingScheduled {
		return ErrInvalidTransition
	}
	v.Status = ViewingCompleted
	v.CompletedAt = &now
	if notes != "" {
		v.Notes = notes
	}
	return nil
}

// Cancel terminates the viewing from requested or scheduled.
func (v *Viewing) Cancel() error {
	if v.Status != ViewingRequested && v.Status != ViewingScheduled {
		return ErrInvalidTransition
	}
	v.Status = ViewingCancelled
	return nil
}

// Confirm records the landlord's acknowledgment of a completed viewing.
func (v *Viewing) Confirm() error {
	if v.Status != ViewingCompleted {
		return ErrInvalidTransition
	}
	v.ViewingConfirmed = true
	return nil
}

// MarkApplicationSent records that the landlord has sent the application
// to the tenant. Requires a confirmed viewing.
func (v *Viewing) MarkApplicationSent() error {
	if !v.ViewingConfirmed {
		return ErrInvalidTransition
	}
	v.ApplicationSent = true
	return nil
}
