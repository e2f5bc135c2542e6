package efficiency

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/factory-log/internal/apperr"
	"github.com/ukydev/factory-log/internal/db"
	"github.com/ukydev/factory-log/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Reconciler repairs denormalized downtime totals on demand.
type Reconciler struct {
	store db.ProductionStore
	log   logrus.FieldLogger
}

// RangeResult summarizes a batch reconciliation.
type RangeResult struct {
	Checked   int                  `json:"checked"`
	Corrected []primitive.ObjectID `json:"corrected"`
}

func NewReconciler(store db.ProductionStore, log logrus.FieldLogger) *Reconciler {
	return &Reconciler{store: store, log: log.WithField("component", "reconciler")}
}

// Reconcile re-sums the episodes of one event and stores the total.
func (r *Reconciler) Reconcile(ctx context.Context, eventID primitive.ObjectID) (int, error) {
	var before, after int
	err := r.store.WithTransaction(ctx, func(ctx context.Context, tx db.ProductionTx) error {
		var err error
		before, after, err = ReconcileTx(ctx, tx, eventID)
		return err
	})
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return 0, err
		}
		return 0, apperr.Persistence("reconcile downtime total", err)
	}
	if before != after {
		r.log.WithFields(logrus.Fields{
			"event_id": eventID.Hex(),
			"before":   before,
			"after":    after,
		}).Warn("Corrected downtime total")
	}
	return after, nil
}

// ReconcileRange reconciles every event dated between from and to inclusive.
func (r *Reconciler) ReconcileRange(ctx context.Context, from, to time.Time) (RangeResult, error) {
	result := RangeResult{Corrected: []primitive.ObjectID{}}
	if from.IsZero() || to.IsZero() {
		return result, apperr.Invalid("range", "from and to are required")
	}
	if models.DateOnly(from).After(models.DateOnly(to)) {
		return result, apperr.Invalid("range", "from is after to")
	}

	events, err := r.store.FindEvents(ctx, db.EventFilter{From: from, To: to})
	if err != nil {
		return result, apperr.Persistence("list events", err)
	}
	for _, event := range events {
		total, err := r.Reconcile(ctx, event.ID)
		if err != nil {
			return result, err
		}
		result.Checked++
		if total != event.DowntimeMinutesTotal {
			result.Corrected = append(result.Corrected, event.ID)
		}
	}

	r.log.WithFields(logrus.Fields{
		"from":      from.Format(time.DateOnly),
		"to":        to.Format(time.DateOnly),
		"checked":   result.Checked,
		"corrected": len(result.Corrected),
	}).Info("Reconciled downtime totals")
	return result, nil
}
