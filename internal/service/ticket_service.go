package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/filter"
	"github.com/spec-kit/helpdesk-service/internal/lifecycle"
	"github.com/spec-kit/helpdesk-service/internal/lookup"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// User-facing messages.
const (
	MsgCreated          = "Ticket created successfully"
	MsgUpdated          = "Ticket updated"
	MsgDeleted          = "Ticket deleted"
	MsgNothingToDelete  = "Nothing to delete"
	MsgCleared          = "All tickets have been deleted"
	MsgNothingToClear   = "No tickets to clear"
	MsgLoaded           = "Ticket loaded"
	MsgTicketNotFound   = "Ticket not found"
	MsgSaveFailed       = "Unable to save ticket"
	MsgLoadFailed       = "Unable to load tickets"
	MsgDeleteFailed     = "Unable to delete ticket"
	MsgReferencesFailed = "Unable to load categories or employees"
)

// OutcomeRecorder receives one call per completed operation.
type OutcomeRecorder interface {
	RecordOutcome(operation, outcome string)
}

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	categories lookup.CategoryProvider
	employees  lookup.EmployeeProvider
	engine     lifecycle.Engine
	logger     *zap.Logger
	outcomes   OutcomeRecorder
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	Categories lookup.CategoryProvider
	Employees  lookup.EmployeeProvider
	Engine     lifecycle.Engine
	Logger     *zap.Logger
	Outcomes   OutcomeRecorder
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// TicketInput is the complete set of editable ticket fields.
type TicketInput struct {
	IssueTitle         string
	Description        string
	CategoryID         int64
	AssignedEmployeeID *int64
	Status             string
	ResolutionNotes    string
	ResolvedAt         *time.Time
}

// Counts summarizes the ticket set.
type Counts struct {
	Total  int
	Open   int
	Closed int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		categories: deps.Categories,
		employees:  deps.Employees,
		engine:     deps.Engine,
		logger:     logger,
		outcomes:   deps.Outcomes,
		now:        clock,
	}
}

// Create validates input and stores a new ticket.
func (s *TicketService) Create(ctx context.Context, input TicketInput) Result {
	return s.record("create", s.create(ctx, input))
}

func (s *TicketService) create(ctx context.Context, input TicketInput) Result {
	refs, res, ok := s.references(ctx)
	if !ok {
		return res
	}
	ticket, rejection := s.engine.Evaluate(nil, input.proposal(), refs, s.now())
	if rejection != nil {
		return rejected(rejection)
	}
	if err := s.tickets.Create(ctx, &ticket); err != nil {
		s.logger.Error("create ticket failed", zap.String("title", ticket.IssueTitle), zap.Error(err))
		return persistenceFailed(MsgSaveFailed)
	}
	s.logger.Info("ticket created", zap.Int64("ticket_id", ticket.ID), zap.String("status", string(ticket.Status)))
	result := succeeded(MsgCreated)
	result.Ticket = &ticket
	return result
}

// Update loads the ticket, applies the transition rules to input and writes
// the result back only when every rule passes.
func (s *TicketService) Update(ctx context.Context, id int64, input TicketInput) Result {
	return s.record("update", s.update(ctx, id, input))
}

func (s *TicketService) update(ctx context.Context, id int64, input TicketInput) Result {
	current, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(MsgTicketNotFound)
		}
		s.logger.Error("load ticket failed", zap.Int64("ticket_id", id), zap.Error(err))
		return persistenceFailed(MsgSaveFailed)
	}
	refs, res, ok := s.references(ctx)
	if !ok {
		return res
	}
	next, rejection := s.engine.Evaluate(current, input.proposal(), refs, s.now())
	if rejection != nil {
		return rejected(rejection)
	}
	if err := s.tickets.Update(ctx, &next); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(MsgTicketNotFound)
		}
		s.logger.Error("update ticket failed", zap.Int64("ticket_id", id), zap.Error(err))
		return persistenceFailed(MsgSaveFailed)
	}
	if current.Status != next.Status {
		s.logger.Info("ticket status changed",
			zap.Int64("ticket_id", id),
			zap.String("old_status", string(current.Status)),
			zap.String("new_status", string(next.Status)))
	}
	result := succeeded(MsgUpdated)
	result.Ticket = &next
	return result
}

// Get loads a single ticket.
func (s *TicketService) Get(ctx context.Context, id int64) Result {
	return s.record("get", s.get(ctx, id))
}

func (s *TicketService) get(ctx context.Context, id int64) Result {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(MsgTicketNotFound)
		}
		s.logger.Error("load ticket failed", zap.Int64("ticket_id", id), zap.Error(err))
		return persistenceFailed(MsgLoadFailed)
	}
	result := succeeded(MsgLoaded)
	result.Ticket = ticket
	return result
}

// Delete removes a ticket. A missing ticket is a successful no-op.
func (s *TicketService) Delete(ctx context.Context, id int64) Result {
	return s.record("delete", s.delete(ctx, id))
}

func (s *TicketService) delete(ctx context.Context, id int64) Result {
	if err := s.tickets.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return succeeded(MsgNothingToDelete)
		}
		s.logger.Error("delete ticket failed", zap.Int64("ticket_id", id), zap.Error(err))
		return persistenceFailed(MsgDeleteFailed)
	}
	result := succeeded(MsgDeleted)
	result.Affected = 1
	return result
}

// ClearAll deletes every ticket one at a time. It stops at the first failure
// and leaves earlier deletions in place.
func (s *TicketService) ClearAll(ctx context.Context) Result {
	return s.record("clear_all", s.clearAll(ctx))
}

func (s *TicketService) clearAll(ctx context.Context) Result {
	all, err := s.tickets.List(ctx, filter.Criteria{})
	if err != nil {
		s.logger.Error("list tickets failed", zap.Error(err))
		return persistenceFailed(MsgLoadFailed)
	}
	if len(all) == 0 {
		return succeeded(MsgNothingToClear)
	}

	deleted := 0
	for _, ticket := range all {
		err := s.tickets.Delete(ctx, ticket.ID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			s.logger.Error("clear all stopped",
				zap.Int64("ticket_id", ticket.ID),
				zap.Int("deleted", deleted),
				zap.Int("remaining", len(all)-deleted),
				zap.Error(err))
			res := persistenceFailed(fmt.Sprintf("%s %d", MsgDeleteFailed, ticket.ID))
			res.Affected = deleted
			return res
		}
		deleted++
	}
	result := succeeded(MsgCleared)
	result.Affected = deleted
	return result
}

// List returns tickets matching criteria in creation order.
func (s *TicketService) List(ctx context.Context, criteria filter.Criteria) ([]domain.Ticket, Result) {
	tickets, err := s.tickets.List(ctx, criteria)
	if err != nil {
		s.logger.Error("list tickets failed", zap.Error(err))
		return nil, persistenceFailed(MsgLoadFailed)
	}
	tickets = filter.Apply(tickets, criteria)
	sort.SliceStable(tickets, func(i, j int) bool { return tickets[i].ID < tickets[j].ID })
	return tickets, succeeded(fmt.Sprintf("%d ticket(s)", len(tickets)))
}

// Counts reports total, open and closed ticket numbers.
func (s *TicketService) Counts(ctx context.Context) (Counts, Result) {
	tickets, res := s.List(ctx, filter.Criteria{})
	if !res.OK {
		return Counts{}, res
	}
	counts := Counts{Total: len(tickets)}
	for _, ticket := range tickets {
		if ticket.Status.IsTerminal() {
			counts.Closed++
		} else {
			counts.Open++
		}
	}
	return counts, succeeded(fmt.Sprintf("Total: %d | Open: %d | Closed: %d", counts.Total, counts.Open, counts.Closed))
}

// ListCategories passes through to the category provider.
func (s *TicketService) ListCategories(ctx context.Context) ([]domain.Category, Result) {
	categories, err := s.categories.ListAll(ctx)
	if err != nil {
		s.logger.Error("list categories failed", zap.Error(err))
		return nil, persistenceFailed(MsgReferencesFailed)
	}
	return categories, succeeded(fmt.Sprintf("%d category(ies)", len(categories)))
}

// ListEmployees passes through to the employee provider.
func (s *TicketService) ListEmployees(ctx context.Context) ([]domain.Employee, Result) {
	employees, err := s.employees.ListAll(ctx)
	if err != nil {
		s.logger.Error("list employees failed", zap.Error(err))
		return nil, persistenceFailed(MsgReferencesFailed)
	}
	return employees, succeeded(fmt.Sprintf("%d employee(s)", len(employees)))
}

func (s *TicketService) references(ctx context.Context) (lifecycle.References, Result, bool) {
	categories, err := s.categories.ListAll(ctx)
	if err != nil {
		s.logger.Error("load categories failed", zap.Error(err))
		return lifecycle.References{}, persistenceFailed(MsgReferencesFailed), false
	}
	employees, err := s.employees.ListAll(ctx)
	if err != nil {
		s.logger.Error("load employees failed", zap.Error(err))
		return lifecycle.References{}, persistenceFailed(MsgReferencesFailed), false
	}
	return lifecycle.NewReferences(categories, employees), Result{}, true
}

func (s *TicketService) record(operation string, res Result) Result {
	if s.outcomes != nil {
		s.outcomes.RecordOutcome(operation, string(res.Kind))
	}
	return res
}

func (in TicketInput) proposal() lifecycle.Proposal {
	return lifecycle.Proposal{
		IssueTitle:         in.IssueTitle,
		Description:        in.Description,
		CategoryID:         in.CategoryID,
		AssignedEmployeeID: in.AssignedEmployeeID,
		Status:             in.Status,
		ResolutionNotes:    in.ResolutionNotes,
		ResolvedAt:         in.ResolvedAt,
	}
}
