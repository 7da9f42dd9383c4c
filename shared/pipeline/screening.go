package pipeline

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/rentflow/rentflow/shared/models"
	"github.com/rentflow/rentflow/shared/utils"
)

// DefaultAutosaveWindow is the quiet period after the last edit before a
// debounced autosave is persisted.
const DefaultAutosaveWindow = time.Second

const profileCacheTTL = 5 * time.Minute

// ProfileUpdate is a partial screening-profile edit. Nil fields are left
// untouched; non-nil slices replace the stored list wholesale.
type ProfileUpdate struct {
	FirstName  *string `json:"first_name,omitempty"`
	MiddleName *string `json:"middle_name,omitempty"`
	LastName   *string `json:"last_name,omitempty"`
	HasPets    *bool   `json:"has_pets,omitempty"`
	PetDetails *string `json:"pet_details,omitempty"`

	Occupants     []models.Occupant     `json:"occupants,omitempty"`
	IncomeSources []models.IncomeSource `json:"income_sources,omitempty"`
	Residences    []models.Residence    `json:"residences,omitempty"`
}

func (u *ProfileUpdate) merge(next ProfileUpdate) {
	if next.FirstName != nil {
		u.FirstName = next.FirstName
	}
	if next.MiddleName != nil {
		u.MiddleName = next.MiddleName
	}
	if next.LastName != nil {
		u.LastName = next.LastName
	}
	if next.HasPets != nil {
		u.HasPets = next.HasPets
	}
	if next.PetDetails != nil {
		u.PetDetails = next.PetDetails
	}
	if next.Occupants != nil {
		u.Occupants = next.Occupants
	}
	if next.IncomeSources != nil {
		u.IncomeSources = next.IncomeSources
	}
	if next.Residences != nil {
		u.Residences = next.Residences
	}
}

func (u *ProfileUpdate) applyTo(p *models.ScreeningProfile) {
	if u.FirstName != nil {
		p.FirstName = *u.FirstName
	}
	if u.MiddleName != nil {
		p.MiddleName = *u.MiddleName
	}
	if u.LastName != nil {
		p.LastName = *u.LastName
	}
	if u.HasPets != nil {
		p.HasPets = *u.HasPets
	}
	if u.PetDetails != nil {
		p.PetDetails = *u.PetDetails
	}
	if u.Occupants != nil {
		p.Occupants = u.Occupants
	}
	if u.IncomeSources != nil {
		p.IncomeSources = u.IncomeSources
	}
	if u.Residences != nil {
		p.Residences = u.Residences
	}
}

// ScreeningService owns the screening-profile store: load-or-create,
// debounced autosave, and finalization at submit time.
type ScreeningService struct {
	db        *gorm.DB
	debouncer *utils.Debouncer

	mu      sync.Mutex
	pending map[string]*ProfileUpdate
}

// NewScreeningService creates a screening service with the given
// autosave window.
func NewScreeningService(db *gorm.DB, window time.Duration) *ScreeningService {
	return &ScreeningService{
		db:        db,
		debouncer: utils.NewDebouncer(window),
		pending:   make(map[string]*ProfileUpdate),
	}
}

// LoadOrCreate returns the tenant's profile, or an empty default when
// none exists yet. Absence is a valid state, not an error. Stored
// profiles are served through the cache; every profile write
// invalidates it.
func (s *ScreeningService) LoadOrCreate(tenantID string) (*models.ScreeningProfile, error) {
	cacheKey := utils.ScreeningProfileCacheKey(tenantID)

	var cached models.ScreeningProfile
	if err := utils.GetCachedJSON(cacheKey, &cached); err == nil {
		return &cached, nil
	}

	profile, err := s.load(tenantID)
	if err == gorm.ErrRecordNotFound {
		return &models.ScreeningProfile{TenantID: tenantID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load screening profile: %w", err)
	}

	_ = utils.CacheJSON(cacheKey, profile, profileCacheTTL)
	return profile, nil
}

func (s *ScreeningService) load(tenantID string) (*models.ScreeningProfile, error) {
	var profile models.ScreeningProfile
	err := s.db.
		Preload("Occupants").
		Preload("IncomeSources").
		Preload("IncomeSources.Documents").
		Preload("Residences").
		Where("tenant_id = ?", tenantID).
		First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// Autosave merges a partial edit into the pending update for the tenant
// and schedules a persist after the quiet window. Superseded schedules
// cancel the earlier timer: last write wins per field, not per keystroke.
// A tenant without a stored profile row is a no-op; the first save must
// go through Finalize.
func (s *ScreeningService) Autosave(tenantID string, update ProfileUpdate) {
	var count int64
	if err := s.db.Model(&models.ScreeningProfile{}).Where("tenant_id = ?", tenantID).Count(&count).Error; err != nil || count == 0 {
		return
	}

	s.mu.Lock()
	pending, ok := s.pending[tenantID]
	if !ok {
		pending = &ProfileUpdate{}
		s.pending[tenantID] = pending
	}
	pending.merge(update)
	s.mu.Unlock()

	s.debouncer.Schedule(tenantID, func() {
		s.persistPending(tenantID)
	})
}

// FlushAutosave fires a pending autosave immediately.
func (s *ScreeningService) FlushAutosave(tenantID string) {
	s.debouncer.Flush(tenantID)
}

func (s *ScreeningService) persistPending(tenantID string) {
	s.mu.Lock()
	update, ok := s.pending[tenantID]
	delete(s.pending, tenantID)
	s.mu.Unlock()
	if !ok {
		return
	}

	profile, err := s.load(tenantID)
	if err != nil {
		logrus.Warnf("autosave for tenant %s dropped: %v", tenantID, err)
		return
	}

	update.applyTo(profile)
	if err := s.persist(profile, update.Occupants != nil, update.IncomeSources != nil, update.Residences != nil); err != nil {
		logrus.Errorf("autosave for tenant %s failed: %v", tenantID, err)
		return
	}
	_ = utils.CacheDelete(utils.ScreeningProfileCacheKey(tenantID))
}

// Finalize upserts the full profile: insert on first call, update after.
// Marks the profile complete and stamps the consent date only when
// consent has been granted. Any pending autosave for the tenant is
// superseded and cancelled.
func (s *ScreeningService) Finalize(tenantID string, profile *models.ScreeningProfile) (*models.ScreeningProfile, error) {
	s.debouncer.Cancel(tenantID)
	s.mu.Lock()
	delete(s.pending, tenantID)
	s.mu.Unlock()

	existing, err := s.load(tenantID)
	switch {
	case err == gorm.ErrRecordNotFound:
		profile.ID = uuid.New()
		profile.TenantID = tenantID
		profile.MarkComplete(time.Now())
		prepareChildren(profile)
		if err := s.db.Create(profile).Error; err != nil {
			return nil, fmt.Errorf("failed to create screening profile: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to load screening profile: %w", err)
	default:
		existing.FirstName = profile.FirstName
		existing.MiddleName = profile.MiddleName
		existing.LastName = profile.LastName
		existing.HasPets = profile.HasPets
		existing.PetDetails = profile.PetDetails
		existing.ConsentGiven = profile.ConsentGiven
		existing.Occupants = profile.Occupants
		existing.IncomeSources = profile.IncomeSources
		existing.Residences = profile.Residences
		existing.MarkComplete(time.Now())
		if err := s.persist(existing, true, true, true); err != nil {
			return nil, err
		}
		profile = existing
	}

	_ = utils.CacheDelete(utils.ScreeningProfileCacheKey(tenantID))
	return s.load(tenantID)
}

// MarkComplete stamps the profile complete at application-submission
// time without touching the rest of the row.
func (s *ScreeningService) MarkComplete(tenantID string) error {
	now := time.Now()
	updates := map[string]interface{}{"is_complete": true, "consent_date": &now}
	if err := s.db.Model(&models.ScreeningProfile{}).Where("tenant_id = ? AND consent_given = ?", tenantID, true).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to mark screening profile complete: %w", err)
	}
	_ = utils.CacheDelete(utils.ScreeningProfileCacheKey(tenantID))
	return nil
}

// persist saves scalar fields and, per flag, replaces the child lists.
func (s *ScreeningService) persist(profile *models.ScreeningProfile, occupants, incomes, residences bool) error {
	p := *profile
	p.Occupants = nil
	p.IncomeSources = nil
	p.Residences = nil
	if err := s.db.Omit("Occupants", "IncomeSources", "Residences").Save(&p).Error; err != nil {
		return fmt.Errorf("failed to save screening profile: %w", err)
	}

	if occupants {
		if err := s.db.Where("profile_id = ?", profile.ID).Delete(&models.Occupant{}).Error; err != nil {
			return fmt.Errorf("failed to clear occupants: %w", err)
		}
	}
	if incomes {
		var sourceIDs []uuid.UUID
		if err := s.db.Model(&models.IncomeSource{}).Where("profile_id = ?", profile.ID).Pluck("id", &sourceIDs).Error; err != nil {
			return fmt.Errorf("failed to list income sources: %w", err)
		}
		if len(sourceIDs) > 0 {
			if err := s.db.Where("income_source_id IN ?", sourceIDs).Delete(&models.IncomeDocument{}).Error; err != nil {
				return fmt.Errorf("failed to clear income documents: %w", err)
			}
		}
		if err := s.db.Where("profile_id = ?", profile.ID).Delete(&models.IncomeSource{}).Error; err != nil {
			return fmt.Errorf("failed to clear income sources: %w", err)
		}
	}
	if residences {
		if err := s.db.Where("profile_id = ?", profile.ID).Delete(&models.Residence{}).Error; err != nil {
			return fmt.Errorf("failed to clear residences: %w", err)
		}
	}

	prepareChildren(profile)
	for i := range profile.Occupants {
		if occupants {
			if err := s.db.Create(&profile.Occupants[i]).Error; err != nil {
				return fmt.Errorf("failed to save occupant: %w", err)
			}
		}
	}
	for i := range profile.IncomeSources {
		if incomes {
			if err := s.db.Create(&profile.IncomeSources[i]).Error; err != nil {
				return fmt.Errorf("failed to save income source: %w", err)
			}
		}
	}
	for i := range profile.Residences {
		if residences {
			if err := s.db.Create(&profile.Residences[i]).Error; err != nil {
				return fmt.Errorf("failed to save residence: %w", err)
			}
		}
	}
	return nil
}

// prepareChildren assigns ids and back-references to child rows so the
// lists can be inserted as new rows.
func prepareChildren(profile *models.ScreeningProfile) {
	for i := range profile.Occupants {
		profile.Occupants[i].ID = uuid.New()
		profile.Occupants[i].ProfileID = profile.ID
	}
	for i := range profile.IncomeSources {
		src := &profile.IncomeSources[i]
		src.ID = uuid.New()
		src.ProfileID = profile.ID
		for j := range src.Documents {
			src.Documents[j].ID = uuid.New()
			src.Documents[j].IncomeSourceID = src.ID
		}
	}
	for i := range profile.Residences {
		profile.Residences[i].ID = uuid.New()
		profile.Residences[i].ProfileID = profile.ID
	}
}
