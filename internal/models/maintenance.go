package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TicketStatus is the lifecycle state of a repair request.
type TicketStatus string

const (
	TicketPending   TicketStatus = "Pending"
	TicketAssigned  TicketStatus = "Assigned"
	TicketCompleted TicketStatus = "Completed"
)

// IsValidTicketStatus checks if a status is known
func IsValidTicketStatus(s TicketStatus) bool {
	return s == TicketPending || s == TicketAssigned || s == TicketCompleted
}

// MaintenanceTicket represents an equipment repair request.
type MaintenanceTicket struct {
	ID               primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ReportedOn       time.Time          `json:"reported_on" bson:"reported_on"`
	Shift            Shift              `json:"shift" bson:"shift"`
	Department       string             `json:"department" bson:"department"`
	MachineLabel     string             `json:"machine_label" bson:"machine_label"`
	IssueDescription string             `json:"issue" bson:"issue"`
	Reporter         string             `json:"reporter" bson:"reporter"`
	Status           TicketStatus       `json:"status" bson:"status"`
	Assignee         string             `json:"assignee,omitempty" bson:"assignee,omitempty"`
	AssignedBy       string             `json:"assigned_by,omitempty" bson:"assigned_by,omitempty"`
	SparePartUsed    string             `json:"spare_part_used,omitempty" bson:"spare_part_used,omitempty"`
	CompletedBy      string             `json:"completed_by,omitempty" bson:"completed_by,omitempty"`
	CreatedAt        time.Time          `json:"created_at" bson:"created_at"`
	AssignedAt       *time.Time         `json:"assigned_at,omitempty" bson:"assigned_at,omitempty"`
	CompletedAt      *time.Time         `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}

// TicketInput is what a reporter supplies when raising a repair request.
type TicketInput struct {
	ReportedOn       time.Time `json:"reported_on"`
	Shift            Shift     `json:"shift"`
	Department       string    `json:"department"`
	MachineLabel     string    `json:"machine_label"`
	IssueDescription string    `json:"issue"`
	Reporter         string    `json:"reporter"`
}

// TicketTransition is the set of fields written when a ticket changes state.
type TicketTransition struct {
	To            TicketStatus
	Assignee      string
	AssignedBy    string
	AssignedAt    *time.Time
	SparePartUsed string
	CompletedBy   string
	CompletedAt   *time.Time
}

// TicketFilter narrows ticket listings. Zero values match everything.
type TicketFilter struct {
	Status     TicketStatus
	Department string
}
