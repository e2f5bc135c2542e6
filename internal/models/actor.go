package models

// Role represents shop-floor roles in the system
type Role string

const (
	RoleAdmin      Role = "Admin"
	RoleSupervisor Role = "Supervisor"
	RoleLeader     Role = "Leader"
	RoleOfficer    Role = "Officer"
	RoleOperator   Role = "Operator"
	RoleTechnician Role = "Technician"
	RoleMNManager  Role = "MN_Manager"
)

// Actions checked by HasPermission.
const (
	ActionRecordProduction = "record_production"
	ActionViewProduction   = "view_production"
	ActionReconcile        = "reconcile_downtime"
	ActionViewReports      = "view_reports"
	ActionReportTicket     = "report_ticket"
	ActionViewTickets      = "view_tickets"
	ActionAssignTicket     = "assign_ticket"
	ActionCompleteTicket   = "complete_ticket"
)

// AllActions lists every action in display order.
var AllActions = []string{
	ActionRecordProduction,
	ActionViewProduction,
	ActionReconcile,
	ActionViewReports,
	ActionReportTicket,
	ActionViewTickets,
	ActionAssignTicket,
	ActionCompleteTicket,
}

// Actor is the already-authenticated caller of a core operation.
type Actor struct {
	ID         string `json:"id"`
	Role       Role   `json:"role"`
	Department string `json:"department,omitempty"`
}

// IsValidRole checks if a role is valid
func IsValidRole(role Role) bool {
	switch role {
	case RoleAdmin, RoleSupervisor, RoleLeader, RoleOfficer, RoleOperator, RoleTechnician, RoleMNManager:
		return true
	default:
		return false
	}
}

// HasPermission checks if the role may perform a specific action
func (r Role) HasPermission(action string) bool {
	switch r {
	case RoleAdmin:
		return true
	case RoleSupervisor:
		return action != ActionCompleteTicket
	case RoleLeader, RoleOfficer:
		return action == ActionRecordProduction || action == ActionViewProduction ||
			action == ActionViewReports || action == ActionReportTicket ||
			action == ActionViewTickets
	case RoleOperator:
		return action == ActionRecordProduction || action == ActionViewProduction ||
			action == ActionReportTicket
	case RoleTechnician:
		return action == ActionReportTicket || action == ActionViewTickets ||
			action == ActionCompleteTicket
	case RoleMNManager:
		return action == ActionReportTicket || action == ActionViewTickets ||
			action == ActionAssignTicket || action == ActionCompleteTicket ||
			action == ActionViewReports
	default:
		return false
	}
}

// HasPermission checks if the actor's role allows the action
func (a Actor) HasPermission(action string) bool {
	return a.Role.HasPermission(action)
}
