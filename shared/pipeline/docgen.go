package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/rentflow/rentflow/shared/models"
	"github.com/rentflow/rentflow/shared/utils"
)

// LeaseGenerator is the document-generation collaborator. It renders the
// lease, uploads it, and performs the draft → awaiting-signature status
// transition itself. The generator is the sole writer of that
// transition: the conditional update keyed on lease_status = 'draft'
// means two concurrent generation requests cannot each write a status,
// and callers never blind-write lease_status after a generation call.
type LeaseGenerator struct {
	db       *gorm.DB
	renderer DocumentRenderer
	blobs    BlobStore
	breaker  *utils.CircuitBreaker
}

// NewLeaseGenerator creates a lease generator
func NewLeaseGenerator(db *gorm.DB, renderer DocumentRenderer, blobs BlobStore) *LeaseGenerator {
	return &LeaseGenerator{
		db:       db,
		renderer: renderer,
		blobs:    blobs,
		breaker:  utils.NewCircuitBreaker(5, 30*time.Second),
	}
}

// Generate renders and stores the lease document for the tenancy and
// moves lease_status out of draft, returning the document reference.
// A tenancy already out of draft returns ErrStatusConflict.
func (g *LeaseGenerator) Generate(ctx context.Context, t *models.Tenancy) (string, error) {
	var document []byte
	err := g.breaker.Call(func() error {
		var renderErr error
		document, renderErr = g.renderer.Render(ctx, t)
		return renderErr
	})
	if err != nil {
		return "", fmt.Errorf("lease rendering failed: %w", err)
	}

	path := fmt.Sprintf("leases/%s/lease.pdf", t.ID.String())
	if _, err := g.blobs.Upload(path, document, "application/pdf"); err != nil {
		return "", fmt.Errorf("lease upload failed: %w", err)
	}

	res := g.db.Model(&models.Tenancy{}).
		Where("id = ? AND lease_status = ?", t.ID, string(models.LeaseDraft)).
		Updates(map[string]interface{}{
			"lease_status":        string(models.LeaseAwaitingTenantSignature),
			"lease_document_path": path,
		})
	if res.Error != nil {
		return "", fmt.Errorf("failed to record generated lease: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return "", ErrStatusConflict
	}
	return path, nil
}

// HTTPDocumentRenderer invokes the external document-generation function
// over HTTP with the tenancy's lease terms and receives the PDF bytes.
type HTTPDocumentRenderer struct {
	endpoint string
	client   *http.Client
}

// NewHTTPDocumentRenderer creates a renderer for the given endpoint
func NewHTTPDocumentRenderer(endpoint string) *HTTPDocumentRenderer {
	return &HTTPDocumentRenderer{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type renderRequest struct {
	TenancyID   string     `json:"tenancy_id"`
	PropertyID  string     `json:"property_id"`
	LandlordID  string     `json:"landlord_id"`
	TenantID    *string    `json:"tenant_id,omitempty"`
	MonthlyRent float64    `json:"monthly_rent"`
	Deposit     float64    `json:"deposit"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     *time.Time `json:"end_date,omitempty"`
}

// Render posts the lease terms and returns the rendered document bytes
func (r *HTTPDocumentRenderer) Render(ctx context.Context, t *models.Tenancy) ([]byte, error) {
	payload, err := json.Marshal(renderRequest{
		TenancyID:   t.ID.String(),
		PropertyID:  t.PropertyID.String(),
		LandlordID:  t.LandlordID,
		TenantID:    t.TenantID,
		MonthlyRent: t.MonthlyRent,
		Deposit:     t.Deposit,
		StartDate:   t.StartDate,
		EndDate:     t.EndDate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal render request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build render request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("render call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("render call returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
