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

const (
	testTenant   = "tenant-1"
	testLandlord = "landlord-1"
)

func createViewing(t *testing.T, svc *ViewingService, propertyID uuid.UUID) *models.Viewing {
	t.Helper()
	viewing, err := svc.Create(propertyID, testTenant, testLandlord, nil, "")
	require.NoError(t, err)
	return viewing
}

// openGate walks a viewing through the full landlord-side flow so the
// application gate allows the tenant.
func openGate(t *testing.T, svc *ViewingService, propertyID uuid.UUID) *models.Viewing {
	t.Helper()
	viewing := createViewing(t, svc, propertyID)
	_, err := svc.Schedule(testLandlord, viewing.ID, time.Now().Add(24*time.Hour))
	require.NoError(t, err)
	_, err = svc.Complete(testLandlord, viewing.ID, "")
	require.NoError(t, err)
	_, err = svc.Confirm(testLandlord, viewing.ID)
	require.NoError(t, err)
	viewing, err = svc.MarkApplicationSent(testLandlord, viewing.ID)
	require.NoError(t, err)
	return viewing
}

func TestScheduleViewing(t *testing.T) {
	db := setupTestDB(t)
	svc := NewViewingService(db, nil)
	propertyID := uuid.New()

	viewing := createViewing(t, svc, propertyID)
	assert.Equal(t, models.ViewingRequested, viewing.Status)

	when := time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC)
	scheduled, err := svc.Schedule(testLandlord, viewing.ID, when)
	require.NoError(t, err)
	assert.Equal(t, models.ViewingScheduled, scheduled.Status)
	require.NotNil(t, scheduled.ScheduledDate)
	assert.True(t, when.Equal(*scheduled.ScheduledDate))

	// The write is visible to a fresh read.
	reloaded, err := svc.Get(viewing.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ViewingScheduled, reloaded.Status)
}

func TestViewingMutationsAreLandlordOnly(t *testing.T) {
	db := setupTestDB(t)
	svc := NewViewingService(db, nil)

	viewing := createViewing(t, svc, uuid.New())

	_, err := svc.Schedule(testTenant, viewing.ID, time.Now())
	assert.ErrorIs(t, err, models.ErrUnauthorized)
	_, err = svc.Cancel("some-other-landlord", viewing.ID)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	reloaded, err := svc.Get(viewing.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ViewingRequested, reloaded.Status)
}

func TestDuplicateActiveViewingRejected(t *testing.T) {
	db := setupTestDB(t)
	svc := NewViewingService(db, nil)
	propertyID := uuid.New()

	viewing := createViewing(t, svc, propertyID)

	_, err := svc.Create(propertyID, testTenant, testLandlord, nil, "")
	assert.ErrorIs(t, err, ErrViewingExists)

	// A cancelled viewing no longer blocks a new request.
	_, err = svc.Cancel(testLandlord, viewing.ID)
	require.NoError(t, err)
	_, err = svc.Create(propertyID, testTenant, testLandlord, nil, "")
	assert.NoError(t, err)
}

func TestCompletedViewingIsFrozen(t *testing.T) {
	db := setupTestDB(t)
	svc := NewViewingService(db, nil)

	viewing := createViewing(t, svc, uuid.New())
	_, err := svc.Schedule(testLandlord, viewing.ID, time.Now())
	require.NoError(t, err)
	_, err = svc.Complete(testLandlord, viewing.ID, "")
	require.NoError(t, err)

	_, err = svc.Schedule(testLandlord, viewing.ID, time.Now())
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
	_, err = svc.Cancel(testLandlord, viewing.ID)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestGetMissingViewing(t *testing.T) {
	db := setupTestDB(t)
	svc := NewViewingService(db, nil)

	_, err := svc.Get(uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestAccessStateProgression(t *testing.T) {
	db := setupTestDB(t)
	svc := NewViewingService(db, nil)
	propertyID := uuid.New()

	decision, err := svc.AccessState(propertyID, testTenant)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, models.ReasonNoViewing, decision.Reason)

	viewing := createViewing(t, svc, propertyID)
	decision, err = svc.AccessState(propertyID, testTenant)
	require.NoError(t, err)
	assert.Equal(t, models.ReasonViewingRequested, decision.Reason)

	_, err = svc.Schedule(testLandlord, viewing.ID, time.Now())
	require.NoError(t, err)
	decision, err = svc.AccessState(propertyID, testTenant)
	require.NoError(t, err)
	assert.Equal(t, models.ReasonViewingScheduled, decision.Reason)

	// Completion alone does not open the gate.
	_, err = svc.Complete(testLandlord, viewing.ID, "")
	require.NoError(t, err)
	decision, err = svc.AccessState(propertyID, testTenant)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, models.ReasonAwaitingConfirmation, decision.Reason)

	_, err = svc.Confirm(testLandlord, viewing.ID)
	require.NoError(t, err)
	decision, err = svc.AccessState(propertyID, testTenant)
	require.NoError(t, err)
	assert.Equal(t, models.ReasonAwaitingApplication, decision.Reason)

	_, err = svc.MarkApplicationSent(testLandlord, viewing.ID)
	require.NoError(t, err)
	decision, err = svc.AccessState(propertyID, testTenant)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, models.ReasonAllowed, decision.Reason)
}

func TestAccessStateAfterCancellation(t *testing.T) {
	db := setupTestDB(t)
	svc := NewViewingService(db, nil)
	propertyID := uuid.New()

	viewing := createViewing(t, svc, propertyID)
	_, err := svc.Cancel(testLandlord, viewing.ID)
	require.NoError(t, err)

	decision, err := svc.AccessState(propertyID, testTenant)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, models.ReasonNoViewing, decision.Reason)
}

func TestConfirmAndSendApplicationNotifyTenant(t *testing.T) {
	db := setupTestDB(t)
	notifier := &fakeNotifier{}
	svc := NewViewingService(db, notifier)

	openGate(t, svc, uuid.New())

	confirmed := notifier.byType(EventViewingConfirmed)
	require.Len(t, confirmed, 1)
	assert.Equal(t, testTenant, confirmed[0].RecipientID)
	assert.Equal(t, testLandlord, confirmed[0].ActorID)

	sent := notifier.byType(EventApplicationSent)
	require.Len(t, sent, 1)
	assert.Equal(t, testTenant, sent[0].RecipientID)
}

func TestLatestReturnsNilWhenNone(t *testing.T) {
	db := setupTestDB(t)
	svc := NewViewingService(db, nil)

	viewing, err := svc.Latest(uuid.New(), testTenant)
	require.NoError(t, err)
	assert.Nil(t, viewing)
}
