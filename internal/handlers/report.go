package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/factory-log/internal/efficiency"
	"github.com/ukydev/factory-log/internal/models"
)

// Reporter builds efficiency reports.
type Reporter interface {
	Report(ctx context.Context, q efficiency.ReportQuery) (efficiency.Report, error)
}

// ReportHandler handles reporting requests
type ReportHandler struct {
	reporter Reporter
	log      logrus.FieldLogger
}

func NewReportHandler(reporter Reporter, log logrus.FieldLogger) *ReportHandler {
	return &ReportHandler{reporter: reporter, log: log.WithField("component", "handlers")}
}

// Efficiency handles GET /api/reports/efficiency?from=&to=&department=&shift=&machine=&part=&group_by=
func (h *ReportHandler) Efficiency(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := parseDate("from", q.Get("from"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	to, err := parseDate("to", q.Get("to"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	query := efficiency.ReportQuery{
		From:        from,
		To:          to,
		Department:  q.Get("department"),
		Shift:       models.Shift(q.Get("shift")),
		MachineCode: q.Get("machine"),
		PartNo:      q.Get("part"),
	}
	if groupBy := q.Get("group_by"); groupBy != "" {
		for _, d := range strings.Split(groupBy, ",") {
			query.GroupBy = append(query.GroupBy, efficiency.Dimension(strings.TrimSpace(d)))
		}
	}

	report, err := h.reporter.Report(r.Context(), query)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
