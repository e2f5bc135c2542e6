package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/factory-log/internal/apperr"
	"github.com/ukydev/factory-log/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestConnectMongo_BadURI(t *testing.T) {
	client, err := ConnectMongo("mongodb://bad:uri")
	if err == nil {
		t.Error("expected error for bad URI, got nil")
	}
	if client != nil {
		t.Error("expected nil client on error")
	}
}

func TestWithTransaction_NilClient(t *testing.T) {
	store := &MongoStore{}
	err := store.WithTransaction(context.Background(), func(ctx context.Context, tx ProductionTx) error {
		return nil
	})
	if err == nil {
		t.Error("expected error when client is nil")
	}
}

// testStore connects to MONGO_URI and returns a store on a scratch database.
// Tests are skipped when no replica set is reachable.
func testStore(t *testing.T) *MongoStore {
	t.Helper()
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set, skipping integration test")
	}
	client, err := ConnectMongo(uri)
	if err != nil {
		t.Skipf("failed to connect: %v, skipping integration test", err)
	}
	t.Cleanup(func() { client.Disconnect(context.Background()) })

	database := client.Database("test_factory_log")
	require.NoError(t, database.Drop(context.Background()))

	store := NewMongoStore(client, "test_factory_log")
	require.NoError(t, store.EnsureIndexes(context.Background()))
	return store
}

func TestMongoStore_TransactionIntegration(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	var eventID primitive.ObjectID
	err := store.WithTransaction(ctx, func(ctx context.Context, tx ProductionTx) error {
		event := &models.ProductionEvent{OccurredOn: models.DateOnly(time.Now()), Department: "Forming", CreatedAt: time.Now()}
		if err := tx.InsertEvent(ctx, event); err != nil {
			return err
		}
		eventID = event.ID
		for _, minutes := range []int{10, 20} {
			if err := tx.InsertEpisode(ctx, &models.DowntimeEpisode{ProductionEventID: event.ID, DurationMinutes: minutes}); err != nil {
				return err
			}
		}
		total, err := tx.SumEpisodeMinutes(ctx, event.ID)
		if err != nil {
			return err
		}
		return tx.SetDowntimeTotal(ctx, event.ID, total)
	})
	require.NoError(t, err)

	stored, err := store.FindEventByID(ctx, eventID)
	require.NoError(t, err)
	assert.Equal(t, 30, stored.DowntimeMinutesTotal)

	episodes, err := store.FindEpisodes(ctx, []primitive.ObjectID{eventID})
	require.NoError(t, err)
	assert.Len(t, episodes, 2)
}

func TestMongoStore_TransactionRollbackIntegration(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	var eventID primitive.ObjectID
	err := store.WithTransaction(ctx, func(ctx context.Context, tx ProductionTx) error {
		event := &models.ProductionEvent{OccurredOn: models.DateOnly(time.Now())}
		if err := tx.InsertEvent(ctx, event); err != nil {
			return err
		}
		eventID = event.ID
		if err := tx.InsertEpisode(ctx, &models.DowntimeEpisode{ProductionEventID: event.ID, DurationMinutes: 5}); err != nil {
			return err
		}
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	_, err = store.FindEventByID(ctx, eventID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	episodes, err := store.FindEpisodes(ctx, []primitive.ObjectID{eventID})
	require.NoError(t, err)
	assert.Empty(t, episodes)
}

func TestMongoStore_CatalogIntegration(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	entry := &models.CatalogEntry{Kind: models.KindMachine, Key: "FM-01", Label: "Former 1", Department: "Forming", Active: true}
	require.NoError(t, store.UpsertCatalogEntry(ctx, entry))
	assert.False(t, entry.ID.IsZero())

	found, err := store.FindCatalogEntry(ctx, models.KindMachine, "FM-01")
	require.NoError(t, err)
	assert.Equal(t, entry.ID, found.ID)
	assert.Equal(t, "Forming", found.Department)

	_, err = store.FindCatalogEntry(ctx, models.KindMachine, "FM-99")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
