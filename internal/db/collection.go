package db

import (
	"context"
	"time"

	"github.com/ukydev/factory-log/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EventFilter narrows production event queries. Zero values match everything;
// From and To are inclusive calendar dates.
type EventFilter struct {
	From        time.Time
	To          time.Time
	Department  string
	Shift       models.Shift
	MachineCode string
	PartNo      string
}

// ProductionStore defines the interface for production and downtime data operations.
type ProductionStore interface {
	// WithTransaction runs fn in a single all-or-nothing unit. fn must only
	// touch the store through tx; any error it returns rolls everything back.
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx ProductionTx) error) error
	FindEventByID(ctx context.Context, id primitive.ObjectID) (*models.ProductionEvent, error)
	FindEvents(ctx context.Context, filter EventFilter) ([]models.ProductionEvent, error)
	FindEpisodes(ctx context.Context, eventIDs []primitive.ObjectID) ([]models.DowntimeEpisode, error)
}

// ProductionTx defines the writes allowed inside a production transaction.
type ProductionTx interface {
	InsertEvent(ctx context.Context, event *models.ProductionEvent) error
	InsertEpisode(ctx context.Context, episode *models.DowntimeEpisode) error
	FindEvent(ctx context.Context, id primitive.ObjectID) (*models.ProductionEvent, error)
	SumEpisodeMinutes(ctx context.Context, eventID primitive.ObjectID) (int, error)
	SetDowntimeTotal(ctx context.Context, eventID primitive.ObjectID, minutes int) error
}

// TicketStore defines the interface for maintenance ticket operations.
type TicketStore interface {
	InsertTicket(ctx context.Context, ticket *models.MaintenanceTicket) error
	FindTicketByID(ctx context.Context, id primitive.ObjectID) (*models.MaintenanceTicket, error)
	FindTickets(ctx context.Context, filter models.TicketFilter) ([]models.MaintenanceTicket, error)
	// TransitionTicket applies t only if the ticket is still in status from.
	// It reports false when no ticket matched.
	TransitionTicket(ctx context.Context, id primitive.ObjectID, from models.TicketStatus, t models.TicketTransition) (bool, error)
	CountTicketsByStatus(ctx context.Context) (map[models.TicketStatus]int, error)
}

// CatalogStore defines the interface for reference catalog lookups.
type CatalogStore interface {
	FindCatalogEntry(ctx context.Context, kind models.CatalogKind, key string) (*models.CatalogEntry, error)
	UpsertCatalogEntry(ctx context.Context, entry *models.CatalogEntry) error
}

var (
	_ ProductionStore = (*MongoStore)(nil)
	_ TicketStore     = (*MongoStore)(nil)
	_ CatalogStore    = (*MongoStore)(nil)
	_ ProductionStore = (*MemoryStore)(nil)
	_ TicketStore     = (*MemoryStore)(nil)
	_ CatalogStore    = (*MemoryStore)(nil)
)
