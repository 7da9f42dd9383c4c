package pipeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/rentflow/rentflow/shared/metrics"
	"github.com/rentflow/rentflow/shared/models"
	"github.com/rentflow/rentflow/shared/utils"
)

const snapshotCacheTTL = 5 * time.Minute

// ViewingService owns the viewing state machine and the application
// access gate built on top of it.
type ViewingService struct {
	db       *gorm.DB
	notifier Notifier
}

// NewViewingService creates a viewing service
func NewViewingService(db *gorm.DB, notifier Notifier) *ViewingService {
	return &ViewingService{db: db, notifier: notifier}
}

// Create opens a new viewing request for a (property, tenant) pair.
// Either party may create; at most one active viewing is allowed.
func (s *ViewingService) Create(propertyID uuid.UUID, tenantID, landlordID string, conversationID *uuid.UUID, notes string) (*models.Viewing, error) {
	existing, err := s.Latest(propertyID, tenantID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.IsActive() {
		return nil, ErrViewingExists
	}

	viewing := &models.Viewing{
		ID:             uuid.New(),
		PropertyID:     propertyID,
		TenantID:       tenantID,
		LandlordID:     landlordID,
		ConversationID: conversationID,
		Status:         models.ViewingRequested,
		Notes:          notes,
	}
	if err := s.db.Create(viewing).Error; err != nil {
		return nil, fmt.Errorf("failed to create viewing: %w", err)
	}

	s.invalidateSnapshot(propertyID, tenantID)
	metrics.RecordViewingTransition("create")
	return viewing, nil
}

// Latest returns the most recent viewing for the pair, or nil when none
// exists. The store does not hard-enforce uniqueness; the most recent
// row is authoritative.
func (s *ViewingService) Latest(propertyID uuid.UUID, tenantID string) (*models.Viewing, error) {
	var viewing models.Viewing
	err := s.db.
		Where("property_id = ? AND tenant_id = ?", propertyID, tenantID).
		Order("created_at DESC").
		First(&viewing).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch viewing: %w", err)
	}
	return &viewing, nil
}

// Get fetches a viewing by id
func (s *ViewingService) Get(viewingID uuid.UUID) (*models.Viewing, error) {
	var viewing models.Viewing
	if err := s.db.Where("id = ?", viewingID).First(&viewing).Error; err != nil {
		return nil, err
	}
	return &viewing, nil
}

// Schedule sets the viewing date. Landlord-only.
func (s *ViewingService) Schedule(callerID string, viewingID uuid.UUID, at time.Time) (*models.Viewing, error) {
	return s.mutate(callerID, viewingID, "schedule", func(v *models.Viewing) error {
		return v.Schedule(at)
	})
}

// Complete marks the viewing as held. Landlord-only. Completion does not
// imply confirmation; the gate keeps waiting on the separate flag.
func (s *ViewingService) Complete(callerID string, viewingID uuid.UUID, notes string) (*models.Viewing, error) {
	return s.mutate(callerID, viewingID, "complete", func(v *models.Viewing) error {
		return v.Complete(notes, time.Now())
	})
}

// Cancel terminates the viewing. Landlord-only.
func (s *ViewingService) Cancel(callerID string, viewingID uuid.UUID) (*models.Viewing, error) {
	return s.mutate(callerID, viewingID, "cancel", func(v *models.Viewing) error {
		return v.Cancel()
	})
}

// Confirm records the landlord's acknowledgment of the completed viewing.
func (s *ViewingService) Confirm(callerID string, viewingID uuid.UUID) (*models.Viewing, error) {
	viewing, err := s.mutate(callerID, viewingID, "confirm", func(v *models.Viewing) error {
		return v.Confirm()
	})
	if err != nil {
		return nil, err
	}
	s.notifyTenant(viewing, EventViewingConfirmed, callerID)
	return viewing, nil
}

// MarkApplicationSent records that the landlord sent the application.
func (s *ViewingService) MarkApplicationSent(callerID string, viewingID uuid.UUID) (*models.Viewing, error) {
	viewing, err := s.mutate(callerID, viewingID, "send_application", func(v *models.Viewing) error {
		return v.MarkApplicationSent()
	})
	if err != nil {
		return nil, err
	}
	s.notifyTenant(viewing, EventApplicationSent, callerID)
	return viewing, nil
}

func (s *ViewingService) mutate(callerID string, viewingID uuid.UUID, transition string, fn func(*models.Viewing) error) (*models.Viewing, error) {
	viewing, err := s.Get(viewingID)
	if err != nil {
		return nil, err
	}
	if callerID != viewing.LandlordID {
		return nil, models.ErrUnauthorized
	}
	if err := fn(viewing); err != nil {
		return nil, err
	}
	if err := s.db.Save(viewing).Error; err != nil {
		return nil, fmt.Errorf("failed to save viewing: %w", err)
	}

	s.invalidateSnapshot(viewing.PropertyID, viewing.TenantID)
	metrics.RecordViewingTransition(transition)
	return viewing, nil
}

// AccessState evaluates the application access gate for the pair. The
// snapshot is cached briefly; every viewing mutation invalidates it.
func (s *ViewingService) AccessState(propertyID uuid.UUID, tenantID string) (models.AccessDecision, error) {
	cacheKey := utils.ViewingSnapshotCacheKey(propertyID, tenantID)

	var snapshot models.ViewingSnapshot
	if err := utils.GetCachedJSON(cacheKey, &snapshot); err != nil {
		viewing, err := s.Latest(propertyID, tenantID)
		if err != nil {
			return models.AccessDecision{}, err
		}
		snapshot = models.SnapshotOf(viewing)
		_ = utils.CacheJSON(cacheKey, snapshot, snapshotCacheTTL)
	}

	decision := models.EvaluateApplicationAccess(snapshot)
	metrics.RecordGateDecision(string(decision.Reason))
	return decision, nil
}

func (s *ViewingService) invalidateSnapshot(propertyID uuid.UUID, tenantID string) {
	_ = utils.CacheDelete(utils.ViewingSnapshotCacheKey(propertyID, tenantID))
}

// notifyTenant dispatches a viewing event to the tenant, best-effort.
func (s *ViewingService) notifyTenant(v *models.Viewing, eventType, actorID string) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.Notify(NotificationEvent{
		ID:          uuid.New(),
		Type:        eventType,
		RecipientID: v.TenantID,
		ActorID:     actorID,
		PropertyID:  &v.PropertyID,
		ViewingID:   &v.ID,
		OccurredAt:  time.Now(),
	})
	if err != nil {
		logrus.Warnf("notification %s dropped: %v", eventType, err)
	}
}
