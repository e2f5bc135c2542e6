package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/factory-log/internal/apperr"
	"github.com/ukydev/factory-log/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMemoryStore_TransactionCommits(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var eventID primitive.ObjectID
	err := store.WithTransaction(ctx, func(ctx context.Context, tx ProductionTx) error {
		event := &models.ProductionEvent{OccurredOn: day(2025, 1, 6), Department: "Forming"}
		require.NoError(t, tx.InsertEvent(ctx, event))
		eventID = event.ID
		require.NoError(t, tx.InsertEpisode(ctx, &models.DowntimeEpisode{ProductionEventID: event.ID, DurationMinutes: 15}))
		require.NoError(t, tx.InsertEpisode(ctx, &models.DowntimeEpisode{ProductionEventID: event.ID, DurationMinutes: 5}))

		total, err := tx.SumEpisodeMinutes(ctx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, 20, total)
		return tx.SetDowntimeTotal(ctx, event.ID, total)
	})
	require.NoError(t, err)

	stored, err := store.FindEventByID(ctx, eventID)
	require.NoError(t, err)
	assert.Equal(t, 20, stored.DowntimeMinutesTotal)

	episodes, err := store.FindEpisodes(ctx, []primitive.ObjectID{eventID})
	require.NoError(t, err)
	assert.Len(t, episodes, 2)
}

func TestMemoryStore_TransactionRollsBack(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	boom := errors.New("boom")

	var eventID primitive.ObjectID
	err := store.WithTransaction(ctx, func(ctx context.Context, tx ProductionTx) error {
		event := &models.ProductionEvent{OccurredOn: day(2025, 1, 6)}
		require.NoError(t, tx.InsertEvent(ctx, event))
		eventID = event.ID
		require.NoError(t, tx.InsertEpisode(ctx, &models.DowntimeEpisode{ProductionEventID: event.ID, DurationMinutes: 15}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = store.FindEventByID(ctx, eventID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	episodes, err := store.FindEpisodes(ctx, []primitive.ObjectID{eventID})
	require.NoError(t, err)
	assert.Empty(t, episodes)
}

func TestMemoryStore_EpisodeNeedsParent(t *testing.T) {
	store := NewMemoryStore()

	err := store.WithTransaction(context.Background(), func(ctx context.Context, tx ProductionTx) error {
		return tx.InsertEpisode(ctx, &models.DowntimeEpisode{ProductionEventID: primitive.NewObjectID(), DurationMinutes: 1})
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMemoryStore_FindEventsFilters(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	seed := []models.ProductionEvent{
		{OccurredOn: day(2025, 1, 5), Department: "Forming", Shift: models.ShiftDay, PartNo: "P-1"},
		{OccurredOn: day(2025, 1, 6), Department: "Forming", Shift: models.ShiftNight, PartNo: "P-2"},
		{OccurredOn: day(2025, 1, 7), Department: "Tapping", Shift: models.ShiftDay, PartNo: "P-1"},
	}
	require.NoError(t, store.WithTransaction(ctx, func(ctx context.Context, tx ProductionTx) error {
		for i := range seed {
			if err := tx.InsertEvent(ctx, &seed[i]); err != nil {
				return err
			}
		}
		return nil
	}))

	all, err := store.FindEvents(ctx, EventFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, day(2025, 1, 5), all[0].OccurredOn)

	ranged, err := store.FindEvents(ctx, EventFilter{From: day(2025, 1, 6), To: day(2025, 1, 7)})
	require.NoError(t, err)
	assert.Len(t, ranged, 2)

	forming, err := store.FindEvents(ctx, EventFilter{Department: "Forming", Shift: models.ShiftDay})
	require.NoError(t, err)
	require.Len(t, forming, 1)
	assert.Equal(t, "P-1", forming[0].PartNo)
}

func TestMemoryStore_TransitionTicketCompareAndSet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	ticket := &models.MaintenanceTicket{Status: models.TicketPending, CreatedAt: time.Now()}
	require.NoError(t, store.InsertTicket(ctx, ticket))

	now := time.Now()
	ok, err := store.TransitionTicket(ctx, ticket.ID, models.TicketPending, models.TicketTransition{
		To: models.TicketAssigned, Assignee: "Tech A", AssignedAt: &now,
	})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.TransitionTicket(ctx, ticket.ID, models.TicketPending, models.TicketTransition{
		To: models.TicketAssigned, Assignee: "Tech B", AssignedAt: &now,
	})
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := store.FindTicketByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tech A", stored.Assignee)
	assert.Equal(t, models.TicketAssigned, stored.Status)

	counts, err := store.CountTicketsByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[models.TicketAssigned])
}

func TestMemoryStore_UpsertCatalogEntryKeepsID(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	entry := &models.CatalogEntry{Kind: models.KindPart, Key: "P-100", StdCycleTimeSec: 30, Active: true}
	require.NoError(t, store.UpsertCatalogEntry(ctx, entry))
	firstID := entry.ID

	replacement := &models.CatalogEntry{Kind: models.KindPart, Key: "P-100", StdCycleTimeSec: 28, Active: false}
	require.NoError(t, store.UpsertCatalogEntry(ctx, replacement))
	assert.Equal(t, firstID, replacement.ID)

	found, err := store.FindCatalogEntry(ctx, models.KindPart, "P-100")
	require.NoError(t, err)
	assert.Equal(t, 28.0, found.StdCycleTimeSec)
	assert.False(t, found.Active)

	_, err = store.FindCatalogEntry(ctx, models.KindMachine, "P-100")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
