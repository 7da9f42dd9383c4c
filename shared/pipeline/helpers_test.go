package pipeline

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rentflow/rentflow/shared/metrics"
	"github.com/rentflow/rentflow/shared/models"
)

func TestMain(m *testing.M) {
	// Counters must be registered before any service records a metric.
	metrics.InitMetrics("pipeline_test")
	os.Exit(m.Run())
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.ScreeningProfile{},
		&models.Occupant{},
		&models.IncomeSource{},
		&models.IncomeDocument{},
		&models.Residence{},
		&models.Viewing{},
		&models.Application{},
		&models.Tenancy{},
	))
	return db
}

// fakeBlobStore keeps uploads in memory keyed by path.
type fakeBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: make(map[string][]byte)}
}

func (f *fakeBlobStore) Upload(key string, data []byte, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return key, nil
}

func (f *fakeBlobStore) Download(key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return data, nil
}

// fakeRenderer returns fixed document bytes, or fails on demand.
type fakeRenderer struct {
	fail bool
}

func (f *fakeRenderer) Render(ctx context.Context, t *models.Tenancy) ([]byte, error) {
	if f.fail {
		return nil, errors.New("render service unavailable")
	}
	return []byte("%PDF-1.4 lease for " + t.ID.String()), nil
}

// fakeNotifier collects delivered events.
type fakeNotifier struct {
	mu     sync.Mutex
	events []NotificationEvent
	fail   bool
}

func (f *fakeNotifier) Notify(event NotificationEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("broker unavailable")
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeNotifier) byType(eventType string) []NotificationEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []NotificationEvent
	for _, e := range f.events {
		if e.Type == eventType {
			matched = append(matched, e)
		}
	}
	return matched
}
