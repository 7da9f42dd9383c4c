package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/rentflow/rentflow/shared/metrics"
	"github.com/rentflow/rentflow/shared/models"
)

// LeaseService owns the tenancy record: draft creation, lease
// generation, and the dual-signature state machine.
type LeaseService struct {
	db        *gorm.DB
	generator *LeaseGenerator
	blobs     BlobStore
	notifier  Notifier
}

// NewLeaseService creates a lease service
func NewLeaseService(db *gorm.DB, generator *LeaseGenerator, blobs BlobStore, notifier Notifier) *LeaseService {
	return &LeaseService{
		db:        db,
		generator: generator,
		blobs:     blobs,
		notifier:  notifier,
	}
}

// TenancyTerms are the financial and term fields of a draft tenancy.
type TenancyTerms struct {
	PropertyID  uuid.UUID
	TenantID    *string
	MonthlyRent float64
	Deposit     float64
	StartDate   time.Time
	EndDate     *time.Time
}

// CreateTenancy opens a draft tenancy. The tenant may be pre-selected
// or matched later.
func (s *LeaseService) CreateTenancy(landlordID string, terms TenancyTerms) (*models.Tenancy, error) {
	tenancy := &models.Tenancy{
		ID:          uuid.New(),
		PropertyID:  terms.PropertyID,
		TenantID:    terms.TenantID,
		LandlordID:  landlordID,
		MonthlyRent: terms.MonthlyRent,
		Deposit:     terms.Deposit,
		StartDate:   terms.StartDate,
		EndDate:     terms.EndDate,
		Status:      models.TenancyDraft,
		LeaseStatus: string(models.LeaseDraft),
	}
	if err := s.db.Create(tenancy).Error; err != nil {
		return nil, fmt.Errorf("failed to create tenancy: %w", err)
	}
	metrics.RecordLeaseOp("create_tenancy")
	return tenancy, nil
}

// Get fetches a tenancy by id
func (s *LeaseService) Get(tenancyID uuid.UUID) (*models.Tenancy, error) {
	var tenancy models.Tenancy
	if err := s.db.Where("id = ?", tenancyID).First(&tenancy).Error; err != nil {
		return nil, err
	}
	return &tenancy, nil
}

// Generate triggers lease generation for a draft tenancy. The status
// write belongs to the generator; this method only triggers it and
// re-reads the row afterwards.
func (s *LeaseService) Generate(ctx context.Context, callerID string, tenancyID uuid.UUID) (*models.Tenancy, error) {
	tenancy, err := s.Get(tenancyID)
	if err != nil {
		return nil, err
	}
	if callerID != tenancy.LandlordID {
		return nil, models.ErrUnauthorized
	}
	if tenancy.LeaseState() != models.LeaseDraft {
		return nil, ErrStatusConflict
	}

	if _, err := s.generator.Generate(ctx, tenancy); err != nil {
		return nil, err
	}

	tenancy, err = s.Get(tenancyID)
	if err != nil {
		return nil, err
	}

	metrics.RecordLeaseOp("generate")
	if tenancy.TenantID != nil {
		s.notify(NotificationEvent{
			ID:          uuid.New(),
			Type:        EventLeaseGenerated,
			RecipientID: *tenancy.TenantID,
			ActorID:     callerID,
			TenancyID:   &tenancy.ID,
			OccurredAt:  time.Now(),
		})
	}
	return tenancy, nil
}

// Sign records one party's signature and advances the lease status. The
// signature image is stored unconditionally; the status moves to
// completed only when the other party has already signed, otherwise to
// the awaiting-the-other-party state. Completion also activates the
// tenancy. The status write is a compare-and-swap on the observed
// lease_status, retried once from a fresh read on conflict, so two
// parties signing in the same window converge instead of overwriting
// each other.
func (s *LeaseService) Sign(callerID string, tenancyID uuid.UUID, signatureImage []byte, signedAt time.Time) (*models.Tenancy, error) {
	tenancy, err := s.Get(tenancyID)
	if err != nil {
		return nil, err
	}
	role, err := tenancy.SignerFor(callerID)
	if err != nil {
		return nil, err
	}

	signaturePath := fmt.Sprintf("signatures/%s/%s.png", tenancyID.String(), role)
	if len(signatureImage) > 0 {
		if _, err := s.blobs.Upload(signaturePath, signatureImage, "image/png"); err != nil {
			return nil, fmt.Errorf("signature upload failed: %w", err)
		}
	}

	updated, err := s.applySignature(tenancy, role, signaturePath, signedAt)
	if err == ErrStatusConflict {
		// One retry from a fresh read; the other party signed in between.
		tenancy, err = s.Get(tenancyID)
		if err != nil {
			return nil, err
		}
		metrics.SignatureConflictsCounter.Inc()
		updated, err = s.applySignature(tenancy, role, signaturePath, signedAt)
	}
	if err != nil {
		return nil, err
	}

	metrics.RecordLeaseOp("sign_" + string(role))
	s.notifySigned(updated, role, callerID)
	return updated, nil
}

// applySignature computes the next status from the observed row and
// writes it conditionally on the observed state being unchanged. The
// guard covers both the stored lease_status and the presence of the
// other party's signature timestamp: a landlord signing first leaves
// lease_status unchanged, so the status alone cannot detect a write
// racing against that self-loop.
func (s *LeaseService) applySignature(observed *models.Tenancy, role models.SignerRole, signaturePath string, signedAt time.Time) (*models.Tenancy, error) {
	otherSigned := observed.SignedAt(role.OtherParty()) != nil
	next, err := models.NextLeaseStatus(observed.LeaseState(), role, otherSigned)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"lease_status": string(next),
	}
	if role == models.SignerLandlord {
		updates["landlord_signature_url"] = signaturePath
		updates["landlord_signed_at"] = signedAt
	} else {
		updates["tenant_signature_url"] = signaturePath
		updates["tenant_signed_at"] = signedAt
	}
	if next == models.LeaseCompleted {
		// The single point at which the tenancy goes live.
		updates["status"] = string(models.TenancyActive)
	}

	otherColumn := "tenant_signed_at"
	if role.OtherParty() == models.SignerLandlord {
		otherColumn = "landlord_signed_at"
	}

	query := s.db.Model(&models.Tenancy{}).
		Where("id = ? AND lease_status = ?", observed.ID, observed.LeaseStatus)
	if otherSigned {
		query = query.Where(otherColumn + " IS NOT NULL")
	} else {
		query = query.Where(otherColumn + " IS NULL")
	}

	res := query.Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to record signature: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrStatusConflict
	}
	return s.Get(observed.ID)
}

func (s *LeaseService) notifySigned(t *models.Tenancy, role models.SignerRole, actorID string) {
	recipient := t.LandlordID
	if role == models.SignerLandlord && t.TenantID != nil {
		recipient = *t.TenantID
	}
	eventType := EventLeaseSigned
	if t.LeaseState() == models.LeaseCompleted {
		eventType = EventLeaseCompleted
	}
	s.notify(NotificationEvent{
		ID:          uuid.New(),
		Type:        eventType,
		RecipientID: recipient,
		ActorID:     actorID,
		TenancyID:   &t.ID,
		OccurredAt:  time.Now(),
	})
}

// notify dispatches best-effort; failures are logged, never propagated.
func (s *LeaseService) notify(event NotificationEvent) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(event); err != nil {
		logrus.Warnf("notification %s dropped: %v", event.Type, err)
	}
}

// ListForLandlord returns the landlord's tenancies, newest first.
func (s *LeaseService) ListForLandlord(landlordID string) ([]models.Tenancy, error) {
	var tenancies []models.Tenancy
	if err := s.db.Where("landlord_id = ?", landlordID).Order("created_at DESC").Find(&tenancies).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch tenancies: %w", err)
	}
	return tenancies, nil
}

// ListForTenant returns the tenant's tenancies, newest first.
func (s *LeaseService) ListForTenant(tenantID string) ([]models.Tenancy, error) {
	var tenancies []models.Tenancy
	if err := s.db.Where("tenant_id = ?", tenantID).Order("created_at DESC").Find(&tenancies).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch tenancies: %w", err)
	}
	return tenancies, nil
}
