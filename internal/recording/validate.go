package recording

import (
	"fmt"
	"strings"

	"github.com/ukydev/factory-log/internal/apperr"
	"github.com/ukydev/factory-log/internal/models"
)

// validate checks everything that can be checked without the catalog.
// defect_qty may exceed actual_qty; the forms never constrained it.
func validate(req models.RecordingRequest, actor models.Actor) error {
	if strings.TrimSpace(actor.ID) == "" {
		return apperr.Invalid("actor", "id is required")
	}

	in := req.Event
	if in.OccurredOn.IsZero() {
		return apperr.Invalid("occurred_on", "is required")
	}
	if !models.IsValidShift(in.Shift) {
		return apperr.Invalid("shift", fmt.Sprintf("unknown shift %q", in.Shift))
	}
	quantities := []struct {
		field string
		value int
	}{
		{"plan_qty", in.PlanQty},
		{"actual_qty", in.ActualQty},
		{"defect_qty", in.DefectQty},
		{"untested_qty", in.UntestedQty},
	}
	for _, q := range quantities {
		if q.value < 0 {
			return apperr.Invalid(q.field, "must not be negative")
		}
	}
	if !models.IsValidProblem4M(in.Problem4M) {
		return apperr.Invalid("problem_4m", fmt.Sprintf("unknown 4M class %q", in.Problem4M))
	}

	for i, ep := range req.Episodes {
		if ep.DurationMinutes < 0 {
			return apperr.Invalid(fmt.Sprintf("episodes[%d].duration_minutes", i), "must not be negative")
		}
		if strings.TrimSpace(ep.ReasonRef) == "" && strings.TrimSpace(ep.ReasonLabel) == "" {
			return apperr.Invalid(fmt.Sprintf("episodes[%d].reason", i), "reason_ref or reason_label is required")
		}
	}
	return nil
}
