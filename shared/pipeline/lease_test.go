package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rentflow/rentflow/shared/models"
)

type leaseFixture struct {
	db       *gorm.DB
	blobs    *fakeBlobStore
	renderer *fakeRenderer
	notifier *fakeNotifier
	leases   *LeaseService
}

func newLeaseFixture(t *testing.T) *leaseFixture {
	t.Helper()
	db := setupTestDB(t)
	blobs := newFakeBlobStore()
	renderer := &fakeRenderer{}
	notifier := &fakeNotifier{}
	generator := NewLeaseGenerator(db, renderer, blobs)
	return &leaseFixture{
		db:       db,
		blobs:    blobs,
		renderer: renderer,
		notifier: notifier,
		leases:   NewLeaseService(db, generator, blobs, notifier),
	}
}

func (f *leaseFixture) draftTenancy(t *testing.T) *models.Tenancy {
	t.Helper()
	tenantID := testTenant
	tenancy, err := f.leases.CreateTenancy(testLandlord, TenancyTerms{
		PropertyID:  uuid.New(),
		TenantID:    &tenantID,
		MonthlyRent: 1900,
		Deposit:     1900,
		StartDate:   time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return tenancy
}

func (f *leaseFixture) generatedTenancy(t *testing.T) *models.Tenancy {
	t.Helper()
	tenancy := f.draftTenancy(t)
	generated, err := f.leases.Generate(context.Background(), testLandlord, tenancy.ID)
	require.NoError(t, err)
	return generated
}

func TestCreateTenancyStartsInDraft(t *testing.T) {
	f := newLeaseFixture(t)
	tenancy := f.draftTenancy(t)

	assert.Equal(t, models.TenancyDraft, tenancy.Status)
	assert.Equal(t, models.LeaseDraft, tenancy.LeaseState())
	assert.Empty(t, tenancy.DocumentRef())
}

func TestGenerateLease(t *testing.T) {
	f := newLeaseFixture(t)
	tenancy := f.draftTenancy(t)

	generated, err := f.leases.Generate(context.Background(), testLandlord, tenancy.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LeaseAwaitingTenantSignature, generated.LeaseState())
	require.NotEmpty(t, generated.LeaseDocumentPath)

	document, err := f.blobs.Download(generated.LeaseDocumentPath)
	require.NoError(t, err)
	assert.NotEmpty(t, document)

	events := f.notifier.byType(EventLeaseGenerated)
	require.Len(t, events, 1)
	assert.Equal(t, testTenant, events[0].RecipientID)
}

func TestGenerateTwiceRejected(t *testing.T) {
	f := newLeaseFixture(t)
	tenancy := f.generatedTenancy(t)

	_, err := f.leases.Generate(context.Background(), testLandlord, tenancy.ID)
	assert.ErrorIs(t, err, ErrStatusConflict)

	reloaded, err := f.leases.Get(tenancy.ID)
	require.NoError(t, err)
	assert.Equal(t, tenancy.LeaseDocumentPath, reloaded.LeaseDocumentPath, "the stored document is untouched")
}

func TestGenerateIsLandlordOnly(t *testing.T) {
	f := newLeaseFixture(t)
	tenancy := f.draftTenancy(t)

	_, err := f.leases.Generate(context.Background(), testTenant, tenancy.ID)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestGenerateRenderFailureLeavesDraft(t *testing.T) {
	f := newLeaseFixture(t)
	f.renderer.fail = true
	tenancy := f.draftTenancy(t)

	_, err := f.leases.Generate(context.Background(), testLandlord, tenancy.ID)
	require.Error(t, err)

	reloaded, err := f.leases.Get(tenancy.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LeaseDraft, reloaded.LeaseState())
	assert.Empty(t, reloaded.LeaseDocumentPath)
}

func TestSignBeforeGenerationRejected(t *testing.T) {
	f := newLeaseFixture(t)
	tenancy := f.draftTenancy(t)

	_, err := f.leases.Sign(testTenant, tenancy.ID, []byte("sig"), time.Now())
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestSignUnknownPartyRejected(t *testing.T) {
	f := newLeaseFixture(t)
	tenancy := f.generatedTenancy(t)

	_, err := f.leases.Sign("stranger", tenancy.ID, []byte("sig"), time.Now())
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestSignTenantThenLandlord(t *testing.T) {
	f := newLeaseFixture(t)
	tenancy := f.generatedTenancy(t)

	tenantSignedAt := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	afterTenant, err := f.leases.Sign(testTenant, tenancy.ID, []byte("tenant-sig"), tenantSignedAt)
	require.NoError(t, err)
	assert.Equal(t, models.LeaseAwaitingLandlordSignature, afterTenant.LeaseState())
	require.NotNil(t, afterTenant.TenantSignedAt)
	assert.NotEmpty(t, afterTenant.TenantSignatureURL)
	assert.Nil(t, afterTenant.LandlordSignedAt)
	assert.Equal(t, models.TenancyDraft, afterTenant.Status)

	landlordSignedAt := tenantSignedAt.Add(2 * time.Hour)
	afterBoth, err := f.leases.Sign(testLandlord, tenancy.ID, []byte("landlord-sig"), landlordSignedAt)
	require.NoError(t, err)
	assert.Equal(t, models.LeaseCompleted, afterBoth.LeaseState())
	require.NotNil(t, afterBoth.LandlordSignedAt)
	require.NotNil(t, afterBoth.TenantSignedAt)
	assert.Equal(t, models.TenancyActive, afterBoth.Status)

	completed := f.notifier.byType(EventLeaseCompleted)
	require.Len(t, completed, 1)
	assert.Equal(t, testTenant, completed[0].RecipientID)
}

func TestSigningOrderDoesNotMatter(t *testing.T) {
	f := newLeaseFixture(t)

	// Landlord first, then tenant.
	tenancy := f.generatedTenancy(t)
	afterLandlord, err := f.leases.Sign(testLandlord, tenancy.ID, []byte("landlord-sig"), time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.LeaseAwaitingTenantSignature, afterLandlord.LeaseState())

	afterBoth, err := f.leases.Sign(testTenant, tenancy.ID, []byte("tenant-sig"), time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.LeaseCompleted, afterBoth.LeaseState())
	assert.Equal(t, models.TenancyActive, afterBoth.Status)
	require.NotNil(t, afterBoth.LandlordSignedAt)
	require.NotNil(t, afterBoth.TenantSignedAt)
}

func TestThirdSignatureRejectedWithoutStateChange(t *testing.T) {
	f := newLeaseFixture(t)
	tenancy := f.generatedTenancy(t)

	_, err := f.leases.Sign(testTenant, tenancy.ID, []byte("tenant-sig"), time.Now())
	require.NoError(t, err)
	completed, err := f.leases.Sign(testLandlord, tenancy.ID, []byte("landlord-sig"), time.Now())
	require.NoError(t, err)

	_, err = f.leases.Sign(testTenant, tenancy.ID, []byte("tenant-sig-again"), time.Now())
	assert.ErrorIs(t, err, models.ErrAlreadySigned)

	reloaded, err := f.leases.Get(tenancy.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LeaseCompleted, reloaded.LeaseState())
	require.NotNil(t, reloaded.TenantSignedAt)
	assert.True(t, completed.TenantSignedAt.Equal(*reloaded.TenantSignedAt), "timestamps survive the rejected signature")
}

func TestStaleSignatureWriteLosesToLandlordSelfLoop(t *testing.T) {
	f := newLeaseFixture(t)
	tenancy := f.generatedTenancy(t)

	// Both parties read the generated tenancy before either has signed.
	landlordView, err := f.leases.Get(tenancy.ID)
	require.NoError(t, err)
	tenantView, err := f.leases.Get(tenancy.ID)
	require.NoError(t, err)

	// The landlord's write lands first. It does not change lease_status
	// (awaiting_tenant_signature stays awaiting_tenant_signature), so a
	// status-only guard would not notice it.
	_, err = f.leases.applySignature(landlordView, models.SignerLandlord, "signatures/x/landlord.png", time.Now())
	require.NoError(t, err)

	// The tenant's write was computed from the pre-landlord read. It
	// must lose the conditional update instead of committing
	// awaiting_landlord_signature over a lease that both parties signed.
	_, err = f.leases.applySignature(tenantView, models.SignerTenant, "signatures/x/tenant.png", time.Now())
	assert.ErrorIs(t, err, ErrStatusConflict)

	stored, err := f.leases.Get(tenancy.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LeaseAwaitingTenantSignature, stored.LeaseState())
	assert.Nil(t, stored.TenantSignedAt)

	// Sign retries from a fresh read on conflict, so the tenant's
	// signature still lands and completes the lease.
	final, err := f.leases.Sign(testTenant, tenancy.ID, []byte("tenant-sig"), time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.LeaseCompleted, final.LeaseState())
	assert.Equal(t, models.TenancyActive, final.Status)
	require.NotNil(t, final.LandlordSignedAt)
	require.NotNil(t, final.TenantSignedAt)
}

func TestSignatureMergePreservesBothTimestamps(t *testing.T) {
	f := newLeaseFixture(t)
	tenancy := f.generatedTenancy(t)

	tenantSignedAt := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	landlordSignedAt := time.Date(2025, 2, 1, 9, 0, 5, 0, time.UTC)

	_, err := f.leases.Sign(testTenant, tenancy.ID, []byte("tenant-sig"), tenantSignedAt)
	require.NoError(t, err)
	final, err := f.leases.Sign(testLandlord, tenancy.ID, []byte("landlord-sig"), landlordSignedAt)
	require.NoError(t, err)

	require.NotNil(t, final.TenantSignedAt)
	require.NotNil(t, final.LandlordSignedAt)
	assert.True(t, tenantSignedAt.Equal(*final.TenantSignedAt))
	assert.True(t, landlordSignedAt.Equal(*final.LandlordSignedAt))
}

func TestLegacyGeneratedStatusStillSignable(t *testing.T) {
	f := newLeaseFixture(t)
	tenancy := f.generatedTenancy(t)

	// Rows written by older code carry "generated" instead of the
	// canonical awaiting status.
	require.NoError(t, f.db.Model(&models.Tenancy{}).Where("id = ?", tenancy.ID).Update("lease_status", "generated").Error)

	signed, err := f.leases.Sign(testTenant, tenancy.ID, []byte("tenant-sig"), time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.LeaseAwaitingLandlordSignature, signed.LeaseState())
}

func TestListTenancies(t *testing.T) {
	f := newLeaseFixture(t)
	f.draftTenancy(t)
	f.draftTenancy(t)

	forLandlord, err := f.leases.ListForLandlord(testLandlord)
	require.NoError(t, err)
	assert.Len(t, forLandlord, 2)

	forTenant, err := f.leases.ListForTenant(testTenant)
	require.NoError(t, err)
	assert.Len(t, forTenant, 2)

	empty, err := f.leases.ListForLandlord("someone-else")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
