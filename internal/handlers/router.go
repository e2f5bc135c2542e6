package handlers

import (
	"net/http"

	"github.com/ukydev/factory-log/internal/middleware"
	"github.com/ukydev/factory-log/internal/models"
)

// Handlers groups every HTTP handler the API serves.
type Handlers struct {
	Production *ProductionHandler
	Reports    *ReportHandler
	Tickets    *TicketHandler
	Actor      *ActorHandler
	Health     *HealthHandler
}

// NewRouter registers all routes. Authentication must wrap the returned mux;
// each /api route then checks the permission of its action.
func NewRouter(h Handlers, authMW *middleware.AuthMiddleware) *http.ServeMux {
	mux := http.NewServeMux()
	guard := func(action string, fn http.HandlerFunc) http.Handler {
		return authMW.RequirePermission(action)(fn)
	}

	mux.HandleFunc("GET /health", h.Health.Health)
	mux.HandleFunc("GET /api/me", h.Actor.Me)

	mux.Handle("POST /api/production", guard(models.ActionRecordProduction, h.Production.Record))
	mux.Handle("GET /api/production/{id}", guard(models.ActionViewProduction, h.Production.Get))
	mux.Handle("POST /api/production/{id}/reconcile", guard(models.ActionReconcile, h.Production.Reconcile))
	mux.Handle("POST /api/production/reconcile", guard(models.ActionReconcile, h.Production.ReconcileRange))
	mux.Handle("GET /api/reports/efficiency", guard(models.ActionViewReports, h.Reports.Efficiency))

	mux.Handle("POST /api/tickets", guard(models.ActionReportTicket, h.Tickets.Report))
	mux.Handle("GET /api/tickets", guard(models.ActionViewTickets, h.Tickets.List))
	mux.Handle("GET /api/tickets/summary", guard(models.ActionViewTickets, h.Tickets.Summary))
	mux.Handle("POST /api/tickets/{id}/assign", guard(models.ActionAssignTicket, h.Tickets.Assign))
	mux.Handle("POST /api/tickets/{id}/complete", guard(models.ActionCompleteTicket, h.Tickets.Complete))

	return mux
}
