// Package maintenance tracks repair tickets through Pending, Assigned and
// Completed. Every transition is a compare-and-set on the current status, so
// concurrent callers can never both move the same ticket.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/factory-log/internal/apperr"
	"github.com/ukydev/factory-log/internal/db"
	"github.com/ukydev/factory-log/internal/models"
	"github.com/ukydev/factory-log/internal/notify"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notifier receives a message after each committed change.
type Notifier interface {
	Notify(ctx context.Context, event notify.Event, text string)
}

// Summary counts open and closed tickets for the maintenance board.
type Summary struct {
	Pending   int `json:"pending"`
	Assigned  int `json:"assigned"`
	Completed int `json:"completed"`
	Open      int `json:"open"`
}

// Service implements the ticket lifecycle.
type Service struct {
	store    db.TicketStore
	notifier Notifier
	now      func() time.Time
	log      logrus.FieldLogger
}

func NewService(store db.TicketStore, notifier Notifier, log logrus.FieldLogger) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		now:      time.Now,
		log:      log.WithField("component", "maintenance"),
	}
}

// Report opens a new ticket in Pending. An empty reporter defaults to the actor.
func (s *Service) Report(ctx context.Context, in models.TicketInput, actor models.Actor) (models.MaintenanceTicket, error) {
	ticket := models.MaintenanceTicket{
		ReportedOn:       models.DateOnly(in.ReportedOn),
		Shift:            in.Shift,
		Department:       strings.TrimSpace(in.Department),
		MachineLabel:     strings.TrimSpace(in.MachineLabel),
		IssueDescription: strings.TrimSpace(in.IssueDescription),
		Reporter:         strings.TrimSpace(in.Reporter),
		Status:           models.TicketPending,
		CreatedAt:        s.now().UTC(),
	}
	if ticket.Reporter == "" {
		ticket.Reporter = actor.ID
	}
	if ticket.Department == "" {
		ticket.Department = actor.Department
	}
	if err := validateTicket(ticket); err != nil {
		return models.MaintenanceTicket{}, err
	}

	if err := s.store.InsertTicket(ctx, &ticket); err != nil {
		return models.MaintenanceTicket{}, apperr.Persistence("insert ticket", err)
	}

	s.log.WithFields(logrus.Fields{
		"ticket_id": ticket.ID.Hex(),
		"machine":   ticket.MachineLabel,
		"reporter":  ticket.Reporter,
	}).Info("Ticket reported")
	s.notify(ctx, notify.EventTicketReported, fmt.Sprintf("New repair request: %s (%s, %s shift) - %s, reported by %s",
		ticket.MachineLabel, ticket.Department, ticket.Shift, ticket.IssueDescription, ticket.Reporter))
	return ticket, nil
}

// Assign moves a Pending ticket to Assigned.
func (s *Service) Assign(ctx context.Context, id primitive.ObjectID, assignee string, actor models.Actor) (models.MaintenanceTicket, error) {
	assignee = strings.TrimSpace(assignee)
	if assignee == "" {
		return models.MaintenanceTicket{}, apperr.Invalid("assignee", "is required")
	}
	at := s.now().UTC()
	ticket, err := s.transition(ctx, id, models.TicketPending, models.TicketTransition{
		To:         models.TicketAssigned,
		Assignee:   assignee,
		AssignedBy: actor.ID,
		AssignedAt: &at,
	})
	if err != nil {
		return models.MaintenanceTicket{}, err
	}
	s.notify(ctx, notify.EventTicketAssigned, fmt.Sprintf("Repair request for %s assigned to %s", ticket.MachineLabel, assignee))
	return ticket, nil
}

// Complete moves an Assigned ticket to Completed. Completing twice fails.
func (s *Service) Complete(ctx context.Context, id primitive.ObjectID, sparePartUsed string, actor models.Actor) (models.MaintenanceTicket, error) {
	at := s.now().UTC()
	ticket, err := s.transition(ctx, id, models.TicketAssigned, models.TicketTransition{
		To:            models.TicketCompleted,
		SparePartUsed: strings.TrimSpace(sparePartUsed),
		CompletedBy:   actor.ID,
		CompletedAt:   &at,
	})
	if err != nil {
		return models.MaintenanceTicket{}, err
	}
	text := fmt.Sprintf("Repair of %s completed by %s", ticket.MachineLabel, ticket.Assignee)
	if ticket.SparePartUsed != "" {
		text += ", spare part used: " + ticket.SparePartUsed
	}
	s.notify(ctx, notify.EventTicketCompleted, text)
	return ticket, nil
}

// List returns tickets newest first.
func (s *Service) List(ctx context.Context, filter models.TicketFilter) ([]models.MaintenanceTicket, error) {
	if filter.Status != "" && !models.IsValidTicketStatus(filter.Status) {
		return nil, apperr.Invalid("status", fmt.Sprintf("unknown status %q", filter.Status))
	}
	tickets, err := s.store.FindTickets(ctx, filter)
	if err != nil {
		return nil, apperr.Persistence("list tickets", err)
	}
	return tickets, nil
}

// Summary counts tickets by status.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	counts, err := s.store.CountTicketsByStatus(ctx)
	if err != nil {
		return Summary{}, apperr.Persistence("count tickets", err)
	}
	sum := Summary{
		Pending:   counts[models.TicketPending],
		Assigned:  counts[models.TicketAssigned],
		Completed: counts[models.TicketCompleted],
	}
	sum.Open = sum.Pending + sum.Assigned
	return sum, nil
}

// transition checks the ticket is in from and then writes t guarded by the
// same status. Losing the write to another caller yields ErrConcurrentUpdate.
func (s *Service) transition(ctx context.Context, id primitive.ObjectID, from models.TicketStatus, t models.TicketTransition) (models.MaintenanceTicket, error) {
	current, err := s.store.FindTicketByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return models.MaintenanceTicket{}, err
		}
		return models.MaintenanceTicket{}, apperr.Persistence("find ticket", err)
	}
	entry := s.log.WithFields(logrus.Fields{
		"ticket_id": id.Hex(),
		"from":      current.Status,
		"to":        t.To,
	})
	if current.Status != from {
		entry.Warn("Illegal ticket transition")
		return models.MaintenanceTicket{}, apperr.Transition(string(current.Status), string(t.To))
	}

	ok, err := s.store.TransitionTicket(ctx, id, from, t)
	if err != nil {
		return models.MaintenanceTicket{}, apperr.Persistence("transition ticket", err)
	}
	if !ok {
		entry.Warn("Ticket changed concurrently")
		return models.MaintenanceTicket{}, fmt.Errorf("%w: ticket %s is no longer %s", apperr.ErrConcurrentUpdate, id.Hex(), from)
	}

	updated, err := s.store.FindTicketByID(ctx, id)
	if err != nil {
		return models.MaintenanceTicket{}, apperr.Persistence("reload ticket", err)
	}
	entry.Info("Ticket transitioned")
	return *updated, nil
}

func (s *Service) notify(ctx context.Context, event notify.Event, text string) {
	if s.notifier != nil {
		s.notifier.Notify(ctx, event, text)
	}
}

func validateTicket(t models.MaintenanceTicket) error {
	if t.ReportedOn.IsZero() {
		return apperr.Invalid("reported_on", "is required")
	}
	if !models.IsValidShift(t.Shift) {
		return apperr.Invalid("shift", fmt.Sprintf("unknown shift %q", t.Shift))
	}
	required := []struct {
		field string
		value string
	}{
		{"machine_label", t.MachineLabel},
		{"issue", t.IssueDescription},
		{"reporter", t.Reporter},
	}
	for _, r := range required {
		if r.value == "" {
			return apperr.Invalid(r.field, "is required")
		}
	}
	return nil
}
