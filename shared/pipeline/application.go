package pipeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/rentflow/rentflow/shared/metrics"
	"github.com/rentflow/rentflow/shared/models"
)

// ApplicationService creates applications once the access gate permits
// and the screening profile validates, and applies landlord decisions.
type ApplicationService struct {
	db        *gorm.DB
	screening *ScreeningService
	viewings  *ViewingService
	notifier  Notifier
}

// NewApplicationService creates an application service
func NewApplicationService(db *gorm.DB, screening *ScreeningService, viewings *ViewingService, notifier Notifier) *ApplicationService {
	return &ApplicationService{
		db:        db,
		screening: screening,
		viewings:  viewings,
		notifier:  notifier,
	}
}

// Submit runs the ordered submission preconditions, then finalizes the
// screening profile and inserts the application row. Each precondition
// is a hard stop checked before any write:
//
//  1. the caller is authenticated
//  2. no application exists yet for the pair
//  3. the access gate returns allowed
//  4. the screening profile is submit-ready
func (s *ApplicationService) Submit(tenantID string, propertyID uuid.UUID) (*models.Application, error) {
	if tenantID == "" {
		return nil, models.ErrUnauthorized
	}

	var existing models.Application
	err := s.db.Where("property_id = ? AND tenant_id = ?", propertyID, tenantID).First(&existing).Error
	if err == nil {
		return nil, ErrAlreadyApplied
	}
	if err != gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("failed to check existing application: %w", err)
	}

	decision, err := s.viewings.AccessState(propertyID, tenantID)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, &BlockedError{Reason: decision.Reason}
	}

	profile, err := s.screening.LoadOrCreate(tenantID)
	if err != nil {
		return nil, err
	}
	if err := profile.Validate(); err != nil {
		return nil, &ValidationError{Err: err}
	}

	// The viewing is the authoritative source for the landlord identity.
	viewing, err := s.viewings.Latest(propertyID, tenantID)
	if err != nil {
		return nil, err
	}
	if viewing == nil {
		return nil, &BlockedError{Reason: models.ReasonNoViewing}
	}

	// Two sequential writes, not a transaction: a crash in between leaves
	// a complete profile and no application, which resubmission repairs.
	if err := s.screening.MarkComplete(tenantID); err != nil {
		return nil, err
	}

	application := &models.Application{
		ID:          uuid.New(),
		PropertyID:  propertyID,
		TenantID:    tenantID,
		LandlordID:  viewing.LandlordID,
		Status:      models.ApplicationPending,
		SubmittedAt: time.Now(),
	}
	if err := s.db.Create(application).Error; err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}

	metrics.RecordApplicationOp("submit")
	s.notify(NotificationEvent{
		ID:          uuid.New(),
		Type:        EventApplicationSubmitted,
		RecipientID: application.LandlordID,
		ActorID:     tenantID,
		PropertyID:  &propertyID,
		OccurredAt:  time.Now(),
	})
	return application, nil
}

// Decide applies a landlord decision to an application.
func (s *ApplicationService) Decide(callerID string, applicationID uuid.UUID, next models.ApplicationStatus) (*models.Application, error) {
	var application models.Application
	if err := s.db.Where("id = ?", applicationID).First(&application).Error; err != nil {
		return nil, err
	}
	if callerID != application.LandlordID {
		return nil, models.ErrUnauthorized
	}
	if err := application.Decide(next); err != nil {
		return nil, err
	}
	if err := s.db.Save(&application).Error; err != nil {
		return nil, fmt.Errorf("failed to save application: %w", err)
	}

	metrics.RecordApplicationOp(string(next))
	s.notify(NotificationEvent{
		ID:          uuid.New(),
		Type:        EventApplicationDecided,
		RecipientID: application.TenantID,
		ActorID:     callerID,
		PropertyID:  &application.PropertyID,
		OccurredAt:  time.Now(),
	})
	return &application, nil
}

// ListForTenant returns the tenant's applications, newest first.
func (s *ApplicationService) ListForTenant(tenantID string) ([]models.Application, error) {
	var applications []models.Application
	if err := s.db.Where("tenant_id = ?", tenantID).Order("created_at DESC").Find(&applications).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch applications: %w", err)
	}
	return applications, nil
}

// ListForLandlord returns the landlord's received applications, newest first.
func (s *ApplicationService) ListForLandlord(landlordID string) ([]models.Application, error) {
	var applications []models.Application
	if err := s.db.Where("landlord_id = ?", landlordID).Order("created_at DESC").Find(&applications).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch applications: %w", err)
	}
	return applications, nil
}

// notify dispatches best-effort; failures are logged, never surfaced.
func (s *ApplicationService) notify(event NotificationEvent) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(event); err != nil {
		logrus.Warnf("notification %s dropped: %v", event.Type, err)
	}
}
