package filter

import (
	"strings"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// AllCategories is the category value that means "no category constraint".
const AllCategories int64 = 0

// AllStatuses is the status text that means "no status constraint".
const AllStatuses = "All"

// Criteria captures optional ticket predicates. Nil fields impose no
// constraint; supplied fields are combined with AND.
type Criteria struct {
	Status     *domain.TicketStatus
	CategoryID *int64
	EmployeeID *int64
}

// Normalize drops sentinel values so that "All" behaves like omission.
func (c Criteria) Normalize() Criteria {
	if c.CategoryID != nil && *c.CategoryID == AllCategories {
		c.CategoryID = nil
	}
	if c.Status != nil && (*c.Status == "" || strings.EqualFold(string(*c.Status), AllStatuses)) {
		c.Status = nil
	}
	return c
}

// IsEmpty reports whether no predicate is active.
func (c Criteria) IsEmpty() bool {
	c = c.Normalize()
	return c.Status == nil && c.CategoryID == nil && c.EmployeeID == nil
}

// Matches evaluates every supplied predicate against ticket.
func (c Criteria) Matches(ticket domain.Ticket) bool {
	c = c.Normalize()
	if c.Status != nil && ticket.Status != *c.Status {
		return false
	}
	if c.CategoryID != nil && ticket.CategoryID != *c.CategoryID {
		return false
	}
	if c.EmployeeID != nil {
		if ticket.AssignedEmployeeID == nil || *ticket.AssignedEmployeeID != *c.EmployeeID {
			return false
		}
	}
	return true
}

// Apply returns the tickets matching c, preserving input order.
func Apply(tickets []domain.Ticket, c Criteria) []domain.Ticket {
	result := make([]domain.Ticket, 0, len(tickets))
	for _, ticket := range tickets {
		if c.Matches(ticket) {
			result = append(result, ticket)
		}
	}
	return result
}

// ParseStatus converts filter text into a status predicate. Empty text and
// "All" yield nil; unknown text is reported with ok=false.
func ParseStatus(raw string) (status *domain.TicketStatus, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, AllStatuses) {
		return nil, true
	}
	parsed, valid := domain.ParseTicketStatus(raw)
	if !valid {
		return nil, false
	}
	return &parsed, true
}
