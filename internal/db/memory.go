package db

import (
	"context"
	"sort"
	"sync"

	"github.com/ukydev/factory-log/internal/apperr"
	"github.com/ukydev/factory-log/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore is an in-process store for local runs and tests. Transactions
// are serialized and work on a copy that replaces the live data only when fn
// succeeds.
type MemoryStore struct {
	mu       sync.Mutex
	events   map[primitive.ObjectID]models.ProductionEvent
	episodes []models.DowntimeEpisode
	tickets  map[primitive.ObjectID]models.MaintenanceTicket
	catalog  map[catalogKey]models.CatalogEntry
}

type catalogKey struct {
	kind models.CatalogKind
	key  string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events:  make(map[primitive.ObjectID]models.ProductionEvent),
		tickets: make(map[primitive.ObjectID]models.MaintenanceTicket),
		catalog: make(map[catalogKey]models.CatalogEntry),
	}
}

// WithTransaction runs fn against a private copy of the production data.
func (s *MemoryStore) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx ProductionTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryProductionTx{
		events:   make(map[primitive.ObjectID]models.ProductionEvent, len(s.events)),
		episodes: append([]models.DowntimeEpisode(nil), s.episodes...),
	}
	for id, event := range s.events {
		tx.events[id] = event
	}

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.events = tx.events
	s.episodes = tx.episodes
	return nil
}

// FindEventByID finds a production event by its ID.
func (s *MemoryStore) FindEventByID(ctx context.Context, id primitive.ObjectID) (*models.ProductionEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &event, nil
}

// FindEvents queries production events ordered by date.
func (s *MemoryStore) FindEvents(ctx context.Context, filter EventFilter) ([]models.ProductionEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := []models.ProductionEvent{}
	for _, event := range s.events {
		if matchesEvent(filter, event) {
			events = append(events, event)
		}
	}
	sort.Slice(events, func(i, j int) bool {
		if !events[i].OccurredOn.Equal(events[j].OccurredOn) {
			return events[i].OccurredOn.Before(events[j].OccurredOn)
		}
		return events[i].CreatedAt.Before(events[j].CreatedAt)
	})
	return events, nil
}

// FindEpisodes returns the downtime episodes of the given events.
func (s *MemoryStore) FindEpisodes(ctx context.Context, eventIDs []primitive.ObjectID) ([]models.DowntimeEpisode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[primitive.ObjectID]bool, len(eventIDs))
	for _, id := range eventIDs {
		wanted[id] = true
	}
	episodes := []models.DowntimeEpisode{}
	for _, episode := range s.episodes {
		if wanted[episode.ProductionEventID] {
			episodes = append(episodes, episode)
		}
	}
	return episodes, nil
}

func matchesEvent(f EventFilter, e models.ProductionEvent) bool {
	day := models.DateOnly(e.OccurredOn)
	if !f.From.IsZero() && day.Before(models.DateOnly(f.From)) {
		return false
	}
	if !f.To.IsZero() && day.After(models.DateOnly(f.To)) {
		return false
	}
	if f.Department != "" && e.Department != f.Department {
		return false
	}
	if f.Shift != "" && e.Shift != f.Shift {
		return false
	}
	if f.MachineCode != "" && e.MachineCode != f.MachineCode {
		return false
	}
	if f.PartNo != "" && e.PartNo != f.PartNo {
		return false
	}
	return true
}

type memoryProductionTx struct {
	events   map[primitive.ObjectID]models.ProductionEvent
	episodes []models.DowntimeEpisode
}

func (t *memoryProductionTx) InsertEvent(ctx context.Context, event *models.ProductionEvent) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	t.events[event.ID] = *event
	return nil
}

func (t *memoryProductionTx) InsertEpisode(ctx context.Context, episode *models.DowntimeEpisode) error {
	if _, ok := t.events[episode.ProductionEventID]; !ok {
		return apperr.ErrNotFound
	}
	if episode.ID.IsZero() {
		episode.ID = primitive.NewObjectID()
	}
	t.episodes = append(t.episodes, *episode)
	return nil
}

func (t *memoryProductionTx) FindEvent(ctx context.Context, id primitive.ObjectID) (*models.ProductionEvent, error) {
	event, ok := t.events[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &event, nil
}

func (t *memoryProductionTx) SumEpisodeMinutes(ctx context.Context, eventID primitive.ObjectID) (int, error) {
	total := 0
	for _, episode := range t.episodes {
		if episode.ProductionEventID == eventID {
			total += episode.DurationMinutes
		}
	}
	return total, nil
}

func (t *memoryProductionTx) SetDowntimeTotal(ctx context.Context, eventID primitive.ObjectID, minutes int) error {
	event, ok := t.events[eventID]
	if !ok {
		return apperr.ErrNotFound
	}
	event.DowntimeMinutesTotal = minutes
	t.events[eventID] = event
	return nil
}

// InsertTicket inserts a new maintenance ticket.
func (s *MemoryStore) InsertTicket(ctx context.Context, ticket *models.MaintenanceTicket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ticket.ID.IsZero() {
		ticket.ID = primitive.NewObjectID()
	}
	s.tickets[ticket.ID] = *ticket
	return nil
}

// FindTicketByID finds a ticket by its ID.
func (s *MemoryStore) FindTicketByID(ctx context.Context, id primitive.ObjectID) (*models.MaintenanceTicket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ticket, ok := s.tickets[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &ticket, nil
}

// FindTickets lists tickets newest first.
func (s *MemoryStore) FindTickets(ctx context.Context, filter models.TicketFilter) ([]models.MaintenanceTicket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tickets := []models.MaintenanceTicket{}
	for _, ticket := range s.tickets {
		if filter.Status != "" && ticket.Status != filter.Status {
			continue
		}
		if filter.Department != "" && ticket.Department != filter.Department {
			continue
		}
		tickets = append(tickets, ticket)
	}
	sort.Slice(tickets, func(i, j int) bool {
		return tickets[i].CreatedAt.After(tickets[j].CreatedAt)
	})
	return tickets, nil
}

// TransitionTicket applies t only while the ticket is still in status from.
func (s *MemoryStore) TransitionTicket(ctx context.Context, id primitive.ObjectID, from models.TicketStatus, t models.TicketTransition) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ticket, ok := s.tickets[id]
	if !ok || ticket.Status != from {
		return false, nil
	}

	ticket.Status = t.To
	if t.Assignee != "" {
		ticket.Assignee = t.Assignee
	}
	if t.AssignedBy != "" {
		ticket.AssignedBy = t.AssignedBy
	}
	if t.AssignedAt != nil {
		at := *t.AssignedAt
		ticket.AssignedAt = &at
	}
	if t.SparePartUsed != "" {
		ticket.SparePartUsed = t.SparePartUsed
	}
	if t.CompletedBy != "" {
		ticket.CompletedBy = t.CompletedBy
	}
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		ticket.CompletedAt = &at
	}
	s.tickets[id] = ticket
	return true, nil
}

// CountTicketsByStatus counts tickets per status.
func (s *MemoryStore) CountTicketsByStatus(ctx context.Context) (map[models.TicketStatus]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[models.TicketStatus]int)
	for _, ticket := range s.tickets {
		counts[ticket.Status]++
	}
	return counts, nil
}

// FindCatalogEntry finds a catalog entry by kind and key, active or not.
func (s *MemoryStore) FindCatalogEntry(ctx context.Context, kind models.CatalogKind, key string) (*models.CatalogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.catalog[catalogKey{kind: kind, key: key}]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &entry, nil
}

// UpsertCatalogEntry inserts or replaces the entry with the same kind and key.
func (s *MemoryStore) UpsertCatalogEntry(ctx context.Context, entry *models.CatalogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := catalogKey{kind: entry.Kind, key: entry.Key}
	if existing, ok := s.catalog[k]; ok {
		entry.ID = existing.ID
	} else if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	s.catalog[k] = *entry
	return nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}
