package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/factory-log/internal/apperr"
	"github.com/ukydev/factory-log/internal/db"
	"github.com/ukydev/factory-log/internal/efficiency"
	"github.com/ukydev/factory-log/internal/middleware"
	"github.com/ukydev/factory-log/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Recorder records production events.
type Recorder interface {
	Record(ctx context.Context, req models.RecordingRequest, actor models.Actor) (models.ProductionEvent, error)
}

// Reconciler repairs downtime totals.
type Reconciler interface {
	Reconcile(ctx context.Context, eventID primitive.ObjectID) (int, error)
	ReconcileRange(ctx context.Context, from, to time.Time) (efficiency.RangeResult, error)
}

// ProductionHandler handles production recording requests
type ProductionHandler struct {
	recorder   Recorder
	reconciler Reconciler
	store      db.ProductionStore
	log        logrus.FieldLogger
}

// NewProductionHandler creates a new production handler
func NewProductionHandler(recorder Recorder, reconciler Reconciler, store db.ProductionStore, log logrus.FieldLogger) *ProductionHandler {
	return &ProductionHandler{
		recorder:   recorder,
		reconciler: reconciler,
		store:      store,
		log:        log.WithField("component", "handlers"),
	}
}

type eventPayload struct {
	models.ProductionEventInput
	OccurredOn string `json:"occurred_on"`
}

type recordPayload struct {
	Event    eventPayload                  `json:"event"`
	Episodes []models.DowntimeEpisodeInput `json:"episodes"`
}

// ProductionView is a stored event with its episodes and derived efficiency.
type ProductionView struct {
	Event             models.ProductionEvent   `json:"event"`
	Episodes          []models.DowntimeEpisode `json:"episodes"`
	EfficiencyPercent float64                  `json:"efficiency_percent"`
}

type reconcileRangePayload struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Record handles POST /api/production
func (h *ProductionHandler) Record(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActorFromContext(r.Context())
	if !ok {
		http.Error(w, "Actor context not found", http.StatusUnauthorized)
		return
	}

	var payload recordPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	occurredOn, err := parseDate("occurred_on", payload.Event.OccurredOn)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	req := models.RecordingRequest{Event: payload.Event.ProductionEventInput, Episodes: payload.Episodes}
	req.Event.OccurredOn = occurredOn

	event, err := h.recorder.Record(r.Context(), req, actor)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, ProductionView{
		Event:             event,
		EfficiencyPercent: efficiency.Compute(event),
	})
}

// Get handles GET /api/production/{id}
func (h *ProductionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	event, err := h.store.FindEventByID(r.Context(), id)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			err = apperr.Persistence("find event", err)
		}
		writeError(w, r, h.log, err)
		return
	}
	episodes, err := h.store.FindEpisodes(r.Context(), []primitive.ObjectID{id})
	if err != nil {
		writeError(w, r, h.log, apperr.Persistence("find episodes", err))
		return
	}
	writeJSON(w, http.StatusOK, ProductionView{
		Event:             *event,
		Episodes:          episodes,
		EfficiencyPercent: efficiency.Compute(*event),
	})
}

// Reconcile handles POST /api/production/{id}/reconcile
func (h *ProductionHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	total, err := h.reconciler.Reconcile(r.Context(), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":                     id.Hex(),
		"downtime_minutes_total": total,
	})
}

// ReconcileRange handles POST /api/production/reconcile
func (h *ProductionHandler) ReconcileRange(w http.ResponseWriter, r *http.Request) {
	var payload reconcileRangePayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	from, err := parseDate("from", payload.From)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	to, err := parseDate("to", payload.To)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	result, err := h.reconciler.ReconcileRange(r.Context(), from, to)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
