package efficiency

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/ukydev/factory-log/internal/apperr"
	"github.com/ukydev/factory-log/internal/db"
	"github.com/ukydev/factory-log/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Dimension is a field production events can be grouped by.
type Dimension string

const (
	DimDate       Dimension = "date"
	DimDepartment Dimension = "department"
	DimPart       Dimension = "part"
	DimMachine    Dimension = "machine"
	DimShift      Dimension = "shift"
)

// DefaultGroupBy groups by department and part.
var DefaultGroupBy = []Dimension{DimDepartment, DimPart}

// IsValidDimension checks if a grouping dimension is known
func IsValidDimension(d Dimension) bool {
	switch d {
	case DimDate, DimDepartment, DimPart, DimMachine, DimShift:
		return true
	default:
		return false
	}
}

// ReportQuery selects and groups events for an efficiency report.
type ReportQuery struct {
	From        time.Time
	To          time.Time
	Department  string
	Shift       models.Shift
	MachineCode string
	PartNo      string
	GroupBy     []Dimension
}

// ReportRow is the sum of one group of events.
type ReportRow struct {
	Group                 map[Dimension]string `json:"group"`
	Events                int                  `json:"events"`
	PlanQty               int                  `json:"plan_qty"`
	ActualQty             int                  `json:"actual_qty"`
	DefectQty             int                  `json:"defect_qty"`
	UntestedQty           int                  `json:"untested_qty"`
	DowntimeMinutes       int                  `json:"downtime_minutes"`
	IdealSeconds          float64              `json:"ideal_seconds"`
	EfficiencyPercent     float64              `json:"efficiency_percent"`
	PlanAttainmentPercent float64              `json:"plan_attainment_percent"`
	TopDowntimeReason     string               `json:"top_downtime_reason,omitempty"`
	TopDowntimeMinutes    int                  `json:"top_downtime_minutes,omitempty"`

	reasons map[string]int
}

// Report is an efficiency report over a date range.
type Report struct {
	From    time.Time   `json:"from"`
	To      time.Time   `json:"to"`
	GroupBy []Dimension `json:"group_by"`
	Rows    []ReportRow `json:"rows"`
	Total   ReportRow   `json:"total"`
}

// Aggregator builds efficiency reports. Efficiency of a group is computed over
// the group's summed quantities, never by averaging per-event percentages.
type Aggregator struct {
	store db.ProductionStore
}

func NewAggregator(store db.ProductionStore) *Aggregator {
	return &Aggregator{store: store}
}

// Report groups the events matching q and sums each group.
func (a *Aggregator) Report(ctx context.Context, q ReportQuery) (Report, error) {
	if q.From.IsZero() || q.To.IsZero() {
		return Report{}, apperr.Invalid("range", "from and to are required")
	}
	from, to := models.DateOnly(q.From), models.DateOnly(q.To)
	if from.After(to) {
		return Report{}, apperr.Invalid("range", "from is after to")
	}
	if q.Shift != "" && !models.IsValidShift(q.Shift) {
		return Report{}, apperr.Invalid("shift", fmt.Sprintf("unknown shift %q", q.Shift))
	}
	groupBy := q.GroupBy
	if len(groupBy) == 0 {
		groupBy = DefaultGroupBy
	}
	for _, d := range groupBy {
		if !IsValidDimension(d) {
			return Report{}, apperr.Invalid("group_by", fmt.Sprintf("unknown dimension %q", d))
		}
	}

	events, err := a.store.FindEvents(ctx, db.EventFilter{
		From:        from,
		To:          to,
		Department:  q.Department,
		Shift:       q.Shift,
		MachineCode: q.MachineCode,
		PartNo:      q.PartNo,
	})
	if err != nil {
		return Report{}, apperr.Persistence("list events", err)
	}

	ids := make([]primitive.ObjectID, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	episodes, err := a.store.FindEpisodes(ctx, ids)
	if err != nil {
		return Report{}, apperr.Persistence("list episodes", err)
	}

	rows := make(map[string]*ReportRow)
	eventGroup := make(map[primitive.ObjectID]string, len(events))
	total := newRow(nil)

	for _, e := range events {
		key, group := groupKey(groupBy, e)
		row, ok := rows[key]
		if !ok {
			row = newRow(group)
			rows[key] = row
		}
		row.add(e)
		total.add(e)
		eventGroup[e.ID] = key
	}
	for _, ep := range episodes {
		key, ok := eventGroup[ep.ProductionEventID]
		if !ok {
			continue
		}
		label := ep.ReasonLabel
		if label == "" {
			label = "Unspecified"
		}
		rows[key].reasons[label] += ep.DurationMinutes
		total.reasons[label] += ep.DurationMinutes
	}

	keys := make([]string, 0, len(rows))
	for k := range rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	report := Report{From: from, To: to, GroupBy: groupBy, Rows: make([]ReportRow, 0, len(keys))}
	for _, k := range keys {
		report.Rows = append(report.Rows, rows[k].finish())
	}
	report.Total = total.finish()
	return report, nil
}

func groupKey(dims []Dimension, e models.ProductionEvent) (string, map[Dimension]string) {
	group := make(map[Dimension]string, len(dims))
	parts := make([]string, 0, len(dims))
	for _, d := range dims {
		var v string
		switch d {
		case DimDate:
			v = models.DateOnly(e.OccurredOn).Format(time.DateOnly)
		case DimDepartment:
			v = e.Department
		case DimPart:
			v = e.PartNo
		case DimMachine:
			v = e.MachineCode
		case DimShift:
			v = string(e.Shift)
		}
		group[d] = v
		parts = append(parts, v)
	}
	return strings.Join(parts, "\x00"), group
}

func newRow(group map[Dimension]string) *ReportRow {
	return &ReportRow{Group: group, reasons: make(map[string]int)}
}

func (r *ReportRow) add(e models.ProductionEvent) {
	r.Events++
	r.PlanQty += e.PlanQty
	r.ActualQty += e.ActualQty
	r.DefectQty += e.DefectQty
	r.UntestedQty += e.UntestedQty
	r.DowntimeMinutes += e.DowntimeMinutesTotal
	r.IdealSeconds += IdealSeconds(e)
}

func (r *ReportRow) finish() ReportRow {
	r.EfficiencyPercent = Percent(r.IdealSeconds, r.DowntimeMinutes)
	if r.PlanQty > 0 {
		r.PlanAttainmentPercent = math.Round(float64(r.ActualQty)/float64(r.PlanQty)*1000) / 10
	}
	for label, minutes := range r.reasons {
		if minutes > r.TopDowntimeMinutes || (minutes == r.TopDowntimeMinutes && label < r.TopDowntimeReason) {
			r.TopDowntimeReason = label
			r.TopDowntimeMinutes = minutes
		}
	}
	out := *r
	out.reasons = nil
	return out
}
