package handlers

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/factory-log/internal/maintenance"
	"github.com/ukydev/factory-log/internal/middleware"
	"github.com/ukydev/factory-log/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TicketService runs the maintenance ticket lifecycle.
type TicketService interface {
	Report(ctx context.Context, in models.TicketInput, actor models.Actor) (models.MaintenanceTicket, error)
	Assign(ctx context.Context, id primitive.ObjectID, assignee string, actor models.Actor) (models.MaintenanceTicket, error)
	Complete(ctx context.Context, id primitive.ObjectID, sparePartUsed string, actor models.Actor) (models.MaintenanceTicket, error)
	List(ctx context.Context, filter models.TicketFilter) ([]models.MaintenanceTicket, error)
	Summary(ctx context.Context) (maintenance.Summary, error)
}

// TicketHandler handles maintenance ticket requests
type TicketHandler struct {
	service TicketService
	log     logrus.FieldLogger
}

func NewTicketHandler(service TicketService, log logrus.FieldLogger) *TicketHandler {
	return &TicketHandler{service: service, log: log.WithField("component", "handlers")}
}

type ticketPayload struct {
	models.TicketInput
	ReportedOn string `json:"reported_on"`
}

type assignPayload struct {
	Assignee string `json:"assignee"`
}

type completePayload struct {
	SparePartUsed string `json:"spare_part_used"`
}

// Report handles POST /api/tickets
func (h *TicketHandler) Report(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActorFromContext(r.Context())
	if !ok {
		http.Error(w, "Actor context not found", http.StatusUnauthorized)
		return
	}
	var payload ticketPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	reportedOn, err := parseDate("reported_on", payload.ReportedOn)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	in := payload.TicketInput
	in.ReportedOn = reportedOn

	ticket, err := h.service.Report(r.Context(), in, actor)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, ticket)
}

// List handles GET /api/tickets?status=&department=
func (h *TicketHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := models.TicketFilter{
		Status:     models.TicketStatus(r.URL.Query().Get("status")),
		Department: r.URL.Query().Get("department"),
	}
	tickets, err := h.service.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, tickets)
}

// Summary handles GET /api/tickets/summary
func (h *TicketHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Assign handles POST /api/tickets/{id}/assign
func (h *TicketHandler) Assign(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActorFromContext(r.Context())
	if !ok {
		http.Error(w, "Actor context not found", http.StatusUnauthorized)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	var payload assignPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	ticket, err := h.service.Assign(r.Context(), id, payload.Assignee, actor)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

// Complete handles POST /api/tickets/{id}/complete. The body is optional.
func (h *TicketHandler) Complete(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActorFromContext(r.Context())
	if !ok {
		http.Error(w, "Actor context not found", http.StatusUnauthorized)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	var payload completePayload
	if err := decodeOptionalJSON(r, &payload); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	ticket, err := h.service.Complete(r.Context(), id, payload.SparePartUsed, actor)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}
