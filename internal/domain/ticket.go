package domain

import (
	"fmt"
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew        TicketStatus = "New"
	TicketStatusInProgress TicketStatus = "In Progress"
	TicketStatusResolved   TicketStatus = "Resolved"
	TicketStatusClosed     TicketStatus = "Closed"
)

// TicketStatuses lists the recognized statuses in display order.
var TicketStatuses = []TicketStatus{
	TicketStatusNew,
	TicketStatusInProgress,
	TicketStatusResolved,
	TicketStatusClosed,
}

// ParseTicketStatus matches raw text case-insensitively against the known
// statuses. "InProgress", "In Progress" and "In-Progress" all map to
// TicketStatusInProgress.
func ParseTicketStatus(raw string) (TicketStatus, bool) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.NewReplacer(" ", "", "-", "", "_", "").Replace(normalized)
	switch normalized {
	case "new":
		return TicketStatusNew, true
	case "inprogress":
		return TicketStatusInProgress, true
	case "resolved":
		return TicketStatusResolved, true
	case "closed":
		return TicketStatusClosed, true
	}
	return "", false
}

// IsTerminal reports whether the status requires resolution data.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// Ticket is the aggregate for help-desk requests.
type Ticket struct {
	ID                 int64
	IssueTitle         string
	Description        string
	CategoryID         int64
	AssignedEmployeeID *int64
	Status             TicketStatus
	DateCreated        time.Time
	DateResolved       *time.Time
	ResolutionNotes    string
}

// Clone returns a copy that shares no pointers with t.
func (t Ticket) Clone() Ticket {
	out := t
	if t.AssignedEmployeeID != nil {
		id := *t.AssignedEmployeeID
		out.AssignedEmployeeID = &id
	}
	if t.DateResolved != nil {
		resolved := *t.DateResolved
		out.DateResolved = &resolved
	}
	return out
}

// Summary renders the one-line status text shown for a selected ticket.
func (t Ticket) Summary() string {
	assigned := "Unassigned"
	if t.AssignedEmployeeID != nil {
		assigned = fmt.Sprintf("Assigned to ID: %d", *t.AssignedEmployeeID)
	}
	resolved := "Not resolved"
	if t.DateResolved != nil {
		resolved = t.DateResolved.Format("2006-01-02 15:04")
	}
	return fmt.Sprintf("Ticket: %s | Status: %s | %s | Resolved: %s", t.IssueTitle, t.Status, assigned, resolved)
}
