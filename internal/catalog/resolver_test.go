package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/factory-log/internal/apperr"
	"github.com/ukydev/factory-log/internal/db"
	"github.com/ukydev/factory-log/internal/models"
)

// MockCatalogStore is a mock implementation of db.CatalogStore
type MockCatalogStore struct {
	mock.Mock
}

func (m *MockCatalogStore) FindCatalogEntry(ctx context.Context, kind models.CatalogKind, key string) (*models.CatalogEntry, error) {
	args := m.Called(ctx, kind, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CatalogEntry), args.Error(1)
}

func (m *MockCatalogStore) UpsertCatalogEntry(ctx context.Context, entry *models.CatalogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func seededStore(t *testing.T) *db.MemoryStore {
	t.Helper()
	store := db.NewMemoryStore()
	ctx := context.Background()
	for _, e := range []models.CatalogEntry{
		{Kind: models.KindMachine, Key: "FM-01", Label: "Forming Press 1", Department: "Forming", Active: true},
		{Kind: models.KindMachine, Key: "FM-OLD", Label: "Retired Press", Department: "Forming", Active: false},
		{Kind: models.KindPart, Key: "P-1001", StdCycleTimeSec: 30, Active: true},
	} {
		entry := e
		require.NoError(t, store.UpsertCatalogEntry(ctx, &entry))
	}
	return store
}

func TestResolver_ResolvesActiveEntry(t *testing.T) {
	log, _ := test.NewNullLogger()
	resolver := NewResolver(seededStore(t), nil, time.Minute, log)

	entry, err := resolver.Resolve(context.Background(), models.KindMachine, " FM-01 ")
	require.NoError(t, err)
	assert.Equal(t, "Forming", entry.Department)
	assert.False(t, entry.ID.IsZero())
}

func TestResolver_UnknownAndInactiveKeys(t *testing.T) {
	log, _ := test.NewNullLogger()
	resolver := NewResolver(seededStore(t), nil, time.Minute, log)
	ctx := context.Background()

	tests := []struct {
		name string
		kind models.CatalogKind
		key  string
	}{
		{"unknown machine", models.KindMachine, "FM-99"},
		{"inactive machine", models.KindMachine, "FM-OLD"},
		{"empty key", models.KindPart, "  "},
		{"key of another kind", models.KindPart, "FM-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolver.Resolve(ctx, tt.kind, tt.key)
			assert.ErrorIs(t, err, apperr.ErrInvalidReference)
		})
	}

	_, err := resolver.Resolve(ctx, models.CatalogKind("tool"), "T-1")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestResolver_ServesStaleEntryWithinTTL(t *testing.T) {
	log, _ := test.NewNullLogger()
	store := seededStore(t)
	cache := NewMemoryCache()
	now := time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	resolver := NewResolver(store, cache, time.Minute, log)
	ctx := context.Background()

	_, err := resolver.Resolve(ctx, models.KindMachine, "FM-01")
	require.NoError(t, err)

	// deactivate behind the cache's back
	require.NoError(t, store.UpsertCatalogEntry(ctx, &models.CatalogEntry{
		Kind: models.KindMachine, Key: "FM-01", Department: "Forming", Active: false,
	}))

	_, err = resolver.Resolve(ctx, models.KindMachine, "FM-01")
	assert.NoError(t, err, "cached entry should still resolve within the TTL")

	now = now.Add(2 * time.Minute)
	_, err = resolver.Resolve(ctx, models.KindMachine, "FM-01")
	assert.ErrorIs(t, err, apperr.ErrInvalidReference)
}

func TestResolver_DoesNotCacheMisses(t *testing.T) {
	log, _ := test.NewNullLogger()
	store := seededStore(t)
	resolver := NewResolver(store, nil, time.Minute, log)
	ctx := context.Background()

	_, err := resolver.Resolve(ctx, models.KindPart, "P-2001")
	require.ErrorIs(t, err, apperr.ErrInvalidReference)

	require.NoError(t, store.UpsertCatalogEntry(ctx, &models.CatalogEntry{
		Kind: models.KindPart, Key: "P-2001", StdCycleTimeSec: 45, Active: true,
	}))

	entry, err := resolver.Resolve(ctx, models.KindPart, "P-2001")
	require.NoError(t, err)
	assert.Equal(t, 45.0, entry.StdCycleTimeSec)
}

func TestResolver_StoreFailureIsPersistenceError(t *testing.T) {
	log, _ := test.NewNullLogger()
	store := new(MockCatalogStore)
	store.On("FindCatalogEntry", mock.Anything, models.KindMachine, "FM-01").Return(nil, errors.New("socket closed"))
	resolver := NewResolver(store, nil, time.Minute, log)

	_, err := resolver.Resolve(context.Background(), models.KindMachine, "FM-01")
	assert.ErrorIs(t, err, apperr.ErrPersistence)
	assert.NotErrorIs(t, err, apperr.ErrInvalidReference)
	store.AssertExpectations(t)
}

func TestResolver_CachesHits(t *testing.T) {
	log, _ := test.NewNullLogger()
	store := new(MockCatalogStore)
	store.On("FindCatalogEntry", mock.Anything, models.KindPart, "P-1001").
		Return(&models.CatalogEntry{Kind: models.KindPart, Key: "P-1001", StdCycleTimeSec: 30, Active: true}, nil).
		Once()
	resolver := NewResolver(store, nil, time.Minute, log)

	for i := 0; i < 3; i++ {
		_, err := resolver.Resolve(context.Background(), models.KindPart, "P-1001")
		require.NoError(t, err)
	}
	store.AssertNumberOfCalls(t, "FindCatalogEntry", 1)
}
