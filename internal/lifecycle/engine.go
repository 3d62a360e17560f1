// Package lifecycle decides whether a proposed ticket state is acceptable and
// produces the resulting ticket. It holds no state and performs no I/O.
package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// Rejection messages. Callers display them verbatim, so they are stable.
const (
	MsgTitleRequired      = "Issue Title cannot be empty"
	MsgCategoryRequired   = "Please select a category"
	MsgInvalidStatus      = "Invalid status"
	MsgNotesRequired      = "Resolution notes are required"
	MsgEmployeeRequired   = "Assigned employee is required"
	MsgResolvedBeforeOpen = "Resolved date cannot be earlier than creation date"
	MsgUnknownEmployee    = "Assigned employee does not exist"
)

// Rule identifies which check rejected a proposal.
type Rule string

const (
	RuleTitle        Rule = "TITLE"
	RuleCategory     Rule = "CATEGORY"
	RuleStatus       Rule = "STATUS"
	RuleNotes        Rule = "RESOLUTION_NOTES"
	RuleEmployee     Rule = "ASSIGNED_EMPLOYEE"
	RuleResolvedDate Rule = "RESOLVED_DATE"
)

// Rejection explains why a proposal was refused.
type Rejection struct {
	Rule    Rule
	Message string
}

func (r *Rejection) Error() string {
	return r.Message
}

func reject(rule Rule, message string) *Rejection {
	return &Rejection{Rule: rule, Message: message}
}

// ReopenPolicy controls what happens to resolution notes when a ticket moves
// to a non-terminal status.
type ReopenPolicy int

const (
	// ClearNotesOnNew clears notes only when the status becomes New.
	ClearNotesOnNew ReopenPolicy = iota
	// ClearNotesOnAnyReopen clears notes for every non-terminal status.
	ClearNotesOnAnyReopen
)

// ParseReopenPolicy maps configuration text ("new" or "any") to a policy.
func ParseReopenPolicy(raw string) (ReopenPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "new":
		return ClearNotesOnNew, nil
	case "any":
		return ClearNotesOnAnyReopen, nil
	}
	return ClearNotesOnNew, fmt.Errorf("unknown reopen policy %q", raw)
}

func (p ReopenPolicy) String() string {
	if p == ClearNotesOnAnyReopen {
		return "any"
	}
	return "new"
}

// Proposal is the full field set a caller wants the ticket to have.
type Proposal struct {
	IssueTitle         string
	Description        string
	CategoryID         int64
	AssignedEmployeeID *int64
	Status             string
	ResolutionNotes    string
	// ResolvedAt overrides the resolution timestamp; nil means now.
	ResolvedAt *time.Time
}

// References answers existence questions about lookup data.
type References struct {
	categories map[int64]struct{}
	employees  map[int64]struct{}
}

// NewReferences indexes the supplied lookup records.
func NewReferences(categories []domain.Category, employees []domain.Employee) References {
	refs := References{
		categories: make(map[int64]struct{}, len(categories)),
		employees:  make(map[int64]struct{}, len(employees)),
	}
	for _, c := range categories {
		refs.categories[c.ID] = struct{}{}
	}
	for _, e := range employees {
		refs.employees[e.ID] = struct{}{}
	}
	return refs
}

// HasCategory reports whether id names a known category.
func (r References) HasCategory(id int64) bool {
	_, ok := r.categories[id]
	return ok
}

// HasEmployee reports whether id names a known employee.
func (r References) HasEmployee(id int64) bool {
	_, ok := r.employees[id]
	return ok
}

// Engine applies the validation and transition rules.
type Engine struct {
	policy ReopenPolicy
}

// NewEngine builds an engine with the given reopen policy.
func NewEngine(policy ReopenPolicy) Engine {
	return Engine{policy: policy}
}

// Policy returns the configured reopen policy.
func (e Engine) Policy() ReopenPolicy {
	return e.policy
}

// Evaluate uses the default engine.
func Evaluate(current *domain.Ticket, p Proposal, refs References, now time.Time) (domain.Ticket, *Rejection) {
	return Engine{}.Evaluate(current, p, refs, now)
}

// Evaluate checks p against current (nil for a new ticket) and returns the
// candidate ticket, or the first rule that failed. current is never modified.
func (e Engine) Evaluate(current *domain.Ticket, p Proposal, refs References, now time.Time) (domain.Ticket, *Rejection) {
	title := strings.TrimSpace(p.IssueTitle)
	if title == "" {
		return domain.Ticket{}, reject(RuleTitle, MsgTitleRequired)
	}
	if !refs.HasCategory(p.CategoryID) {
		return domain.Ticket{}, reject(RuleCategory, MsgCategoryRequired)
	}
	status, ok := domain.ParseTicketStatus(p.Status)
	if !ok {
		return domain.Ticket{}, reject(RuleStatus, MsgInvalidStatus)
	}

	var next domain.Ticket
	if current != nil {
		next = current.Clone()
	} else {
		next.DateCreated = now
	}
	next.IssueTitle = title
	next.Description = strings.TrimSpace(p.Description)
	next.CategoryID = p.CategoryID
	next.Status = status
	next.AssignedEmployeeID = normalizeEmployee(p.AssignedEmployeeID)
	notes := strings.TrimSpace(p.ResolutionNotes)

	if status.IsTerminal() {
		if notes == "" {
			return domain.Ticket{}, reject(RuleNotes, MsgNotesRequired)
		}
		if next.AssignedEmployeeID == nil || !refs.HasEmployee(*next.AssignedEmployeeID) {
			return domain.Ticket{}, reject(RuleEmployee, MsgEmployeeRequired)
		}
		resolvedAt := now
		if p.ResolvedAt != nil {
			resolvedAt = *p.ResolvedAt
		}
		if resolvedAt.Before(next.DateCreated) {
			return domain.Ticket{}, reject(RuleResolvedDate, MsgResolvedBeforeOpen)
		}
		next.DateResolved = &resolvedAt
		next.ResolutionNotes = notes
		return next, nil
	}

	if next.AssignedEmployeeID != nil && !refs.HasEmployee(*next.AssignedEmployeeID) {
		return domain.Ticket{}, reject(RuleEmployee, MsgUnknownEmployee)
	}
	next.DateResolved = nil
	next.ResolutionNotes = notes
	if status == domain.TicketStatusNew || e.policy == ClearNotesOnAnyReopen {
		next.ResolutionNotes = ""
	}
	return next, nil
}

// normalizeEmployee treats a zero id as "no assignment".
func normalizeEmployee(id *int64) *int64 {
	if id == nil || *id == 0 {
		return nil
	}
	v := *id
	return &v
}
