package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TicketRequest is the body for POST /tickets and PUT /tickets/:id. PUT
// replaces every editable field, so omitted fields are cleared.
type TicketRequest struct {
	IssueTitle         string  `json:"issue_title"`
	Description        string  `json:"description"`
	CategoryID         int64   `json:"category_id"`
	AssignedEmployeeID *int64  `json:"assigned_employee_id"`
	Status             string  `json:"status"`
	ResolutionNotes    string  `json:"resolution_notes"`
	ResolvedAt         *string `json:"resolved_at,omitempty"`
}

// TicketResponse is the full ticket view.
type TicketResponse struct {
	ID                 int64               `json:"id"`
	IssueTitle         string              `json:"issue_title"`
	Description        string              `json:"description"`
	CategoryID         int64               `json:"category_id"`
	AssignedEmployeeID *int64              `json:"assigned_employee_id"`
	Status             domain.TicketStatus `json:"status"`
	DateCreated        time.Time           `json:"date_created"`
	DateResolved       *time.Time          `json:"date_resolved"`
	ResolutionNotes    string              `json:"resolution_notes"`
	Summary            string              `json:"summary"`
}

// CountsResponse reports ticket totals.
type CountsResponse struct {
	Total  int `json:"total"`
	Open   int `json:"open"`
	Closed int `json:"closed"`
}

// DeleteResponse reports how many tickets a delete removed.
type DeleteResponse struct {
	Affected int `json:"affected"`
}
