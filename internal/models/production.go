package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Shift is a named work period production is grouped under.
type Shift string

const (
	ShiftDay   Shift = "Day"
	ShiftNight Shift = "Night"
)

// IsValidShift checks if a shift is known
func IsValidShift(s Shift) bool {
	return s == ShiftDay || s == ShiftNight
}

// Problem4M is the root-cause class attached to a production record.
type Problem4M string

const (
	Problem4MNone     Problem4M = ""
	Problem4MMan      Problem4M = "Man"
	Problem4MMachine  Problem4M = "Machine"
	Problem4MMaterial Problem4M = "Material"
	Problem4MMethod   Problem4M = "Method"
)

// IsValidProblem4M checks if a 4M class is known. Empty means no problem.
func IsValidProblem4M(p Problem4M) bool {
	switch p {
	case Problem4MNone, Problem4MMan, Problem4MMachine, Problem4MMaterial, Problem4MMethod:
		return true
	default:
		return false
	}
}

// ProductionEvent is the output of one machine running one part during a shift.
type ProductionEvent struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	OccurredOn time.Time          `json:"occurred_on" bson:"occurred_on"`
	Shift      Shift              `json:"shift" bson:"shift"`
	MachineID  primitive.ObjectID `json:"machine_id" bson:"machine_id"`
	PartID     primitive.ObjectID `json:"part_id" bson:"part_id"`

	// Snapshots taken from the catalog at record time
	MachineCode     string  `json:"machine_code" bson:"machine_code"`
	PartNo          string  `json:"part_no" bson:"part_no"`
	Department      string  `json:"department" bson:"department"`
	StdCycleTimeSec float64 `json:"std_cycle_time_sec" bson:"std_cycle_time_sec"`

	PlanQty     int `json:"plan_qty" bson:"plan_qty"`
	ActualQty   int `json:"actual_qty" bson:"actual_qty"`
	DefectQty   int `json:"defect_qty" bson:"defect_qty"`
	UntestedQty int `json:"untested_qty" bson:"untested_qty"`

	// DowntimeMinutesTotal always equals the sum of the event's episode durations.
	DowntimeMinutesTotal int `json:"downtime_minutes_total" bson:"downtime_minutes_total"`

	Remark        string    `json:"remark,omitempty" bson:"remark,omitempty"`
	OperatorName  string    `json:"operator_name,omitempty" bson:"operator_name,omitempty"`
	Problem4M     Problem4M `json:"problem_4m,omitempty" bson:"problem_4m,omitempty"`
	ProblemDetail string    `json:"problem_detail,omitempty" bson:"problem_detail,omitempty"`
	ActionTaken   string    `json:"action_taken,omitempty" bson:"action_taken,omitempty"`

	CreatedBy string    `json:"created_by" bson:"created_by"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// DowntimeEpisode is a stretch of time a machine was not producing. It only
// exists as a child of a ProductionEvent.
type DowntimeEpisode struct {
	ID                primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	ProductionEventID primitive.ObjectID  `json:"production_event_id" bson:"production_event_id"`
	ReasonID          *primitive.ObjectID `json:"reason_id,omitempty" bson:"reason_id,omitempty"`
	ReasonLabel       string              `json:"reason_label" bson:"reason_label"`
	ReasonCategory    string              `json:"reason_category,omitempty" bson:"reason_category,omitempty"`
	DurationMinutes   int                 `json:"duration_minutes" bson:"duration_minutes"`
	Remark            string              `json:"remark,omitempty" bson:"remark,omitempty"`
}

// ProductionEventInput is the caller-built description of one production event.
type ProductionEventInput struct {
	OccurredOn  time.Time `json:"occurred_on"`
	Shift       Shift     `json:"shift"`
	MachineRef  string    `json:"machine_ref"`
	PartRef     string    `json:"part_ref"`
	PlanQty     int       `json:"plan_qty"`
	ActualQty   int       `json:"actual_qty"`
	DefectQty   int       `json:"defect_qty"`
	UntestedQty int       `json:"untested_qty"`

	Remark        string    `json:"remark,omitempty"`
	OperatorName  string    `json:"operator_name,omitempty"`
	Problem4M     Problem4M `json:"problem_4m,omitempty"`
	ProblemDetail string    `json:"problem_detail,omitempty"`
	ActionTaken   string    `json:"action_taken,omitempty"`
}

// DowntimeEpisodeInput describes one downtime episode. ReasonRef is a catalog
// key; ReasonLabel is the free-text fallback when the key is absent or unknown.
type DowntimeEpisodeInput struct {
	ReasonRef       string `json:"reason_ref,omitempty"`
	ReasonLabel     string `json:"reason_label,omitempty"`
	DurationMinutes int    `json:"duration_minutes"`
	Remark          string `json:"remark,omitempty"`
}

// RecordingRequest is one production event with all of its downtime episodes,
// built completely by the caller before it is recorded.
type RecordingRequest struct {
	Event    ProductionEventInput   `json:"event"`
	Episodes []DowntimeEpisodeInput `json:"episodes"`
}

// DateOnly truncates t to midnight UTC of its calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
