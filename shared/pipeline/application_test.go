package pipeline

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rentflow/rentflow/shared/models"
)

type applicationFixture struct {
	db           *gorm.DB
	screening    *ScreeningService
	viewings     *ViewingService
	applications *ApplicationService
	notifier     *fakeNotifier
}

func newApplicationFixture(t *testing.T) *applicationFixture {
	t.Helper()
	db := setupTestDB(t)
	screening := NewScreeningService(db, DefaultAutosaveWindow)
	notifier := &fakeNotifier{}
	viewings := NewViewingService(db, notifier)
	return &applicationFixture{
		db:           db,
		screening:    screening,
		viewings:     viewings,
		applications: NewApplicationService(db, screening, viewings, notifier),
		notifier:     notifier,
	}
}

func (f *applicationFixture) applicationCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&models.Application{}).Count(&count).Error)
	return count
}

func TestSubmitWithoutViewingIsBlocked(t *testing.T) {
	f := newApplicationFixture(t)

	_, err := f.applications.Submit(testTenant, uuid.New())

	var blocked *BlockedError
	require.ErrorAs(t, err, &blocked)
	assert.Equal(t, models.ReasonNoViewing, blocked.Reason)
	assert.Zero(t, f.applicationCount(t), "a blocked submission writes nothing")
}

func TestSubmitBlockedBeforeGateOpens(t *testing.T) {
	f := newApplicationFixture(t)
	propertyID := uuid.New()

	viewing := createViewing(t, f.viewings, propertyID)
	_, err := f.viewings.Schedule(testLandlord, viewing.ID, time.Now())
	require.NoError(t, err)
	_, err = f.viewings.Complete(testLandlord, viewing.ID, "")
	require.NoError(t, err)

	// Completed but unconfirmed: the gate still refuses, even with a
	// fully valid profile on file.
	_, err = f.screening.Finalize(testTenant, fullProfile())
	require.NoError(t, err)

	_, err = f.applications.Submit(testTenant, propertyID)
	var blocked *BlockedError
	require.ErrorAs(t, err, &blocked)
	assert.Equal(t, models.ReasonAwaitingConfirmation, blocked.Reason)
	assert.Zero(t, f.applicationCount(t))
}

func TestSubmitRequiresValidProfile(t *testing.T) {
	f := newApplicationFixture(t)
	propertyID := uuid.New()
	openGate(t, f.viewings, propertyID)

	// Gate open, but no profile on file at all.
	_, err := f.applications.Submit(testTenant, propertyID)
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.ErrorIs(t, err, models.ErrPersonalIncomplete)

	// Profile on file but missing income.
	partial := fullProfile()
	partial.IncomeSources = nil
	_, err = f.screening.Finalize(testTenant, partial)
	require.NoError(t, err)

	_, err = f.applications.Submit(testTenant, propertyID)
	require.ErrorAs(t, err, &validation)
	assert.ErrorIs(t, err, models.ErrNoIncomeSource)
	assert.Zero(t, f.applicationCount(t))
}

func TestSubmitHappyPath(t *testing.T) {
	f := newApplicationFixture(t)
	propertyID := uuid.New()
	openGate(t, f.viewings, propertyID)

	_, err := f.screening.Finalize(testTenant, fullProfile())
	require.NoError(t, err)

	application, err := f.applications.Submit(testTenant, propertyID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationPending, application.Status)
	assert.Equal(t, testTenant, application.TenantID)
	assert.Equal(t, testLandlord, application.LandlordID, "landlord comes from the viewing")
	assert.False(t, application.SubmittedAt.IsZero())

	profile, err := f.screening.LoadOrCreate(testTenant)
	require.NoError(t, err)
	assert.True(t, profile.IsComplete)

	submitted := f.notifier.byType(EventApplicationSubmitted)
	require.Len(t, submitted, 1)
	assert.Equal(t, testLandlord, submitted[0].RecipientID)
}

func TestSubmitTwiceRejected(t *testing.T) {
	f := newApplicationFixture(t)
	propertyID := uuid.New()
	openGate(t, f.viewings, propertyID)

	_, err := f.screening.Finalize(testTenant, fullProfile())
	require.NoError(t, err)

	_, err = f.applications.Submit(testTenant, propertyID)
	require.NoError(t, err)

	_, err = f.applications.Submit(testTenant, propertyID)
	assert.ErrorIs(t, err, ErrAlreadyApplied)
	assert.Equal(t, int64(1), f.applicationCount(t))
}

func TestSubmitUnauthenticated(t *testing.T) {
	f := newApplicationFixture(t)
	_, err := f.applications.Submit("", uuid.New())
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestDecide(t *testing.T) {
	f := newApplicationFixture(t)
	propertyID := uuid.New()
	openGate(t, f.viewings, propertyID)

	_, err := f.screening.Finalize(testTenant, fullProfile())
	require.NoError(t, err)
	application, err := f.applications.Submit(testTenant, propertyID)
	require.NoError(t, err)

	// Only the receiving landlord may decide.
	_, err = f.applications.Decide(testTenant, application.ID, models.ApplicationAccepted)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	decided, err := f.applications.Decide(testLandlord, application.ID, models.ApplicationAccepted)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationAccepted, decided.Status)

	// Terminal applications are frozen.
	_, err = f.applications.Decide(testLandlord, application.ID, models.ApplicationDeclined)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	decidedEvents := f.notifier.byType(EventApplicationDecided)
	require.Len(t, decidedEvents, 1)
	assert.Equal(t, testTenant, decidedEvents[0].RecipientID)
}

func TestListApplications(t *testing.T) {
	f := newApplicationFixture(t)
	propertyID := uuid.New()
	openGate(t, f.viewings, propertyID)

	_, err := f.screening.Finalize(testTenant, fullProfile())
	require.NoError(t, err)
	_, err = f.applications.Submit(testTenant, propertyID)
	require.NoError(t, err)

	forTenant, err := f.applications.ListForTenant(testTenant)
	require.NoError(t, err)
	assert.Len(t, forTenant, 1)

	forLandlord, err := f.applications.ListForLandlord(testLandlord)
	require.NoError(t, err)
	assert.Len(t, forLandlord, 1)

	empty, err := f.applications.ListForTenant("someone-else")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSubmitSurvivesNotifierFailure(t *testing.T) {
	f := newApplicationFixture(t)
	f.notifier.fail = true
	propertyID := uuid.New()
	openGate(t, f.viewings, propertyID)

	_, err := f.screening.Finalize(testTenant, fullProfile())
	require.NoError(t, err)

	_, err = f.applications.Submit(testTenant, propertyID)
	assert.NoError(t, err, "notification delivery is best-effort")
	assert.Equal(t, int64(1), f.applicationCount(t))
}
