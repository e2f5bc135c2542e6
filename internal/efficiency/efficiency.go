// Package efficiency derives the efficiency percentage of production events
// and keeps each event's downtime total equal to the sum of its episodes.
package efficiency

import (
	"context"
	"math"

	"github.com/ukydev/factory-log/internal/db"
	"github.com/ukydev/factory-log/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Percent is ideal production time over ideal time plus downtime, as a
// percentage rounded to one decimal and held within [0, 100]. Negative inputs
// count as zero; an empty denominator yields 0.
func Percent(idealSeconds float64, downtimeMinutes int) float64 {
	if idealSeconds < 0 || math.IsNaN(idealSeconds) {
		idealSeconds = 0
	}
	if downtimeMinutes < 0 {
		downtimeMinutes = 0
	}
	denominator := idealSeconds + float64(downtimeMinutes)*60
	if denominator <= 0 || math.IsInf(denominator, 0) {
		return 0
	}
	return clamp(round1(idealSeconds / denominator * 100))
}

// IdealSeconds is the time the event's good output would take at standard cycle time.
func IdealSeconds(e models.ProductionEvent) float64 {
	return float64(e.ActualQty) * e.StdCycleTimeSec
}

// Compute returns the efficiency of a single event. It performs no I/O.
func Compute(e models.ProductionEvent) float64 {
	return Percent(IdealSeconds(e), e.DowntimeMinutesTotal)
}

// ReconcileTx re-sums the episodes of eventID inside tx and writes the result
// onto the event. It returns the previous and the new total.
func ReconcileTx(ctx context.Context, tx db.ProductionTx, eventID primitive.ObjectID) (before, after int, err error) {
	event, err := tx.FindEvent(ctx, eventID)
	if err != nil {
		return 0, 0, err
	}
	total, err := tx.SumEpisodeMinutes(ctx, eventID)
	if err != nil {
		return 0, 0, err
	}
	if err := tx.SetDowntimeTotal(ctx, eventID, total); err != nil {
		return 0, 0, err
	}
	return event.DowntimeMinutesTotal, total, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
