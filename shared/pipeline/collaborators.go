package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rentflow/rentflow/shared/models"
)

// BlobStore accepts a document upload keyed by a caller-chosen path and
// returns a stable reference, supporting later download by that reference.
type BlobStore interface {
	Upload(key string, data []byte, contentType string) (string, error)
	Download(key string) ([]byte, error)
}

// DocumentRenderer produces the lease document bytes for a tenancy's
// terms. Rendering is remote and may fail or hang, so it takes a context.
type DocumentRenderer interface {
	Render(ctx context.Context, t *models.Tenancy) ([]byte, error)
}

// Notifier delivers pipeline events to the other party, best-effort.
// Failures are logged by callers and never propagated.
type Notifier interface {
	Notify(event NotificationEvent) error
}

// NotificationEvent is one onboarding event headed for the notification
// channel.
type NotificationEvent struct {
	ID          uuid.UUID  `json:"id"`
	Type        string     `json:"type"`
	RecipientID string     `json:"recipient_id"`
	ActorID     string     `json:"actor_id"`
	PropertyID  *uuid.UUID `json:"property_id,omitempty"`
	ViewingID   *uuid.UUID `json:"viewing_id,omitempty"`
	TenancyID   *uuid.UUID `json:"tenancy_id,omitempty"`
	OccurredAt  time.Time  `json:"occurred_at"`
}

// Notification event types
const (
	EventViewingConfirmed     = "viewing_confirmed"
	EventApplicationSent      = "application_sent"
	EventApplicationSubmitted = "application_submitted"
	EventApplicationDecided   = "application_decided"
	EventLeaseGenerated       = "lease_generated"
	EventLeaseSigned          = "lease_signed"
	EventLeaseCompleted       = "lease_completed"
)
