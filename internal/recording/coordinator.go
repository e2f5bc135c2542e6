// Package recording persists a production event together with its downtime
// episodes as a single all-or-nothing unit.
package recording

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/factory-log/internal/apperr"
	"github.com/ukydev/factory-log/internal/db"
	"github.com/ukydev/factory-log/internal/efficiency"
	"github.com/ukydev/factory-log/internal/models"
	"github.com/ukydev/factory-log/internal/notify"
)

// Resolver resolves catalog keys to active entries.
type Resolver interface {
	Resolve(ctx context.Context, kind models.CatalogKind, key string) (models.CatalogEntry, error)
}

// Notifier receives a message after each committed change.
type Notifier interface {
	Notify(ctx context.Context, event notify.Event, text string)
}

// Coordinator records production events.
type Coordinator struct {
	store    db.ProductionStore
	resolver Resolver
	notifier Notifier
	now      func() time.Time
	log      logrus.FieldLogger
}

func NewCoordinator(store db.ProductionStore, resolver Resolver, notifier Notifier, log logrus.FieldLogger) *Coordinator {
	return &Coordinator{
		store:    store,
		resolver: resolver,
		notifier: notifier,
		now:      time.Now,
		log:      log.WithField("component", "recording"),
	}
}

// Record validates req, resolves its catalog references and stores the event
// with all of its episodes in one transaction. Nothing is written unless every
// part succeeds. The returned event carries its final downtime total.
func (c *Coordinator) Record(ctx context.Context, req models.RecordingRequest, actor models.Actor) (models.ProductionEvent, error) {
	if err := validate(req, actor); err != nil {
		return models.ProductionEvent{}, err
	}

	in := req.Event
	machine, err := c.resolve(ctx, models.KindMachine, "machine_ref", in.MachineRef)
	if err != nil {
		return models.ProductionEvent{}, err
	}
	part, err := c.resolve(ctx, models.KindPart, "part_ref", in.PartRef)
	if err != nil {
		return models.ProductionEvent{}, err
	}
	episodes, err := c.resolveEpisodes(ctx, req.Episodes)
	if err != nil {
		return models.ProductionEvent{}, err
	}

	department := machine.Department
	if department == "" {
		department = actor.Department
	}
	event := models.ProductionEvent{
		OccurredOn:      models.DateOnly(in.OccurredOn),
		Shift:           in.Shift,
		MachineID:       machine.ID,
		PartID:          part.ID,
		MachineCode:     machine.Key,
		PartNo:          part.Key,
		Department:      department,
		StdCycleTimeSec: part.StdCycleTimeSec,
		PlanQty:         in.PlanQty,
		ActualQty:       in.ActualQty,
		DefectQty:       in.DefectQty,
		UntestedQty:     in.UntestedQty,
		Remark:          strings.TrimSpace(in.Remark),
		OperatorName:    strings.TrimSpace(in.OperatorName),
		Problem4M:       in.Problem4M,
		ProblemDetail:   strings.TrimSpace(in.ProblemDetail),
		ActionTaken:     strings.TrimSpace(in.ActionTaken),
		CreatedBy:       actor.ID,
		CreatedAt:       c.now().UTC(),
	}

	err = c.store.WithTransaction(ctx, func(ctx context.Context, tx db.ProductionTx) error {
		attempt := event
		if err := tx.InsertEvent(ctx, &attempt); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
		for i := range episodes {
			ep := episodes[i]
			ep.ProductionEventID = attempt.ID
			if err := tx.InsertEpisode(ctx, &ep); err != nil {
				return fmt.Errorf("insert episode %d: %w", i, err)
			}
		}
		_, total, err := efficiency.ReconcileTx(ctx, tx, attempt.ID)
		if err != nil {
			return fmt.Errorf("set downtime total: %w", err)
		}
		attempt.DowntimeMinutesTotal = total
		event = attempt
		return nil
	})
	if err != nil {
		c.log.WithError(err).WithFields(logrus.Fields{
			"machine": machine.Key,
			"part":    part.Key,
			"actor":   actor.ID,
		}).Error("Failed to record production")
		return models.ProductionEvent{}, apperr.Persistence("record production", err)
	}

	c.log.WithFields(logrus.Fields{
		"event_id": event.ID.Hex(),
		"machine":  event.MachineCode,
		"part":     event.PartNo,
		"episodes": len(episodes),
		"downtime": event.DowntimeMinutesTotal,
	}).Info("Recorded production")

	if c.notifier != nil {
		c.notifier.Notify(ctx, notify.EventProductionRecorded, productionText(event))
	}
	return event, nil
}

func (c *Coordinator) resolve(ctx context.Context, kind models.CatalogKind, field, key string) (models.CatalogEntry, error) {
	entry, err := c.resolver.Resolve(ctx, kind, key)
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidReference) {
			return models.CatalogEntry{}, apperr.Reference(field, key)
		}
		return models.CatalogEntry{}, err
	}
	return entry, nil
}

// resolveEpisodes maps reason keys to catalog entries. An unknown key falls
// back to the free-text label when one is given.
func (c *Coordinator) resolveEpisodes(ctx context.Context, inputs []models.DowntimeEpisodeInput) ([]models.DowntimeEpisode, error) {
	episodes := make([]models.DowntimeEpisode, 0, len(inputs))
	for i, in := range inputs {
		ep := models.DowntimeEpisode{
			ReasonLabel:     strings.TrimSpace(in.ReasonLabel),
			DurationMinutes: in.DurationMinutes,
			Remark:          strings.TrimSpace(in.Remark),
		}
		ref := strings.TrimSpace(in.ReasonRef)
		if ref != "" {
			reason, err := c.resolver.Resolve(ctx, models.KindDowntimeReason, ref)
			switch {
			case err == nil:
				id := reason.ID
				ep.ReasonID = &id
				ep.ReasonLabel = reason.Label
				ep.ReasonCategory = reason.Category
			case errors.Is(err, apperr.ErrInvalidReference) && ep.ReasonLabel != "":
				c.log.WithFields(logrus.Fields{"reason_ref": ref, "label": ep.ReasonLabel}).
					Debug("Unknown downtime reason, keeping free-text label")
			case errors.Is(err, apperr.ErrInvalidReference):
				return nil, apperr.Reference(fmt.Sprintf("episodes[%d].reason_ref", i), ref)
			default:
				return nil, err
			}
		}
		episodes = append(episodes, ep)
	}
	return episodes, nil
}

func productionText(e models.ProductionEvent) string {
	return fmt.Sprintf("Production recorded: %s %s shift, machine %s, part %s, actual %d/%d, defect %d, downtime %d min, efficiency %.1f%%",
		e.OccurredOn.Format(time.DateOnly), e.Shift, e.MachineCode, e.PartNo,
		e.ActualQty, e.PlanQty, e.DefectQty, e.DowntimeMinutesTotal, efficiency.Compute(e))
}
