package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/filter"
	"github.com/spec-kit/helpdesk-service/internal/lifecycle"
	"github.com/spec-kit/helpdesk-service/internal/lookup"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

var errStoreDown = errors.New("store unavailable")

// flakyRepository wraps the memory store and fails selected calls.
type flakyRepository struct {
	*repository.MemoryTicketRepository
	failCreate   bool
	failUpdate   bool
	failList     bool
	failDeleteID int64
}

func (f *flakyRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	if f.failCreate {
		return errStoreDown
	}
	return f.MemoryTicketRepository.Create(ctx, ticket)
}

func (f *flakyRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	if f.failUpdate {
		return errStoreDown
	}
	return f.MemoryTicketRepository.Update(ctx, ticket)
}

func (f *flakyRepository) List(ctx context.Context, c filter.Criteria) ([]domain.Ticket, error) {
	if f.failList {
		return nil, errStoreDown
	}
	return f.MemoryTicketRepository.List(ctx, c)
}

func (f *flakyRepository) Delete(ctx context.Context, id int64) error {
	if f.failDeleteID == id {
		return errStoreDown
	}
	return f.MemoryTicketRepository.Delete(ctx, id)
}

type outcomeLog []string

func (o *outcomeLog) RecordOutcome(operation, outcome string) {
	*o = append(*o, operation+":"+outcome)
}

type fixture struct {
	svc      *TicketService
	repo     *flakyRepository
	clock    *time.Time
	outcomes *outcomeLog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	f := &fixture{
		repo:     &flakyRepository{MemoryTicketRepository: repository.NewMemoryTicketRepository()},
		clock:    &now,
		outcomes: &outcomeLog{},
	}
	f.svc = NewTicketService(TicketDependencies{
		TicketRepo: f.repo,
		Categories: lookup.StaticCategories(domain.DefaultCategories),
		Employees:  lookup.StaticEmployees{{ID: 2, FullName: "Ana Silva"}, {ID: 3, FullName: "Ben Ortiz"}},
		Engine:     lifecycle.NewEngine(lifecycle.ClearNotesOnNew),
		Outcomes:   f.outcomes,
		Clock:      func() time.Time { return *f.clock },
	})
	return f
}

func (f *fixture) advance(d time.Duration) {
	*f.clock = f.clock.Add(d)
}

func int64Ptr(v int64) *int64 { return &v }

func printerJam() TicketInput {
	return TicketInput{
		IssueTitle:         "Printer jam",
		Description:        "Tray 2 keeps jamming",
		CategoryID:         1,
		AssignedEmployeeID: int64Ptr(2),
		Status:             "New",
	}
}

func (f *fixture) stored(t *testing.T) []domain.Ticket {
	t.Helper()
	tickets, res := f.svc.List(context.Background(), filter.Criteria{})
	require.True(t, res.OK)
	return tickets
}

func TestCreateRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.svc.Create(ctx, printerJam())
	require.True(t, res.OK, res.Message)
	assert.Equal(t, ResultOK, res.Kind)
	assert.Equal(t, MsgCreated, res.Message)
	require.NotNil(t, res.Ticket)
	assert.Equal(t, int64(1), res.Ticket.ID)

	tickets := f.stored(t)
	require.Len(t, tickets, 1)
	assert.Equal(t, "Printer jam", tickets[0].IssueTitle)
	assert.Equal(t, domain.TicketStatusNew, tickets[0].Status)
	assert.Nil(t, tickets[0].DateResolved)
	assert.Equal(t, *f.clock, tickets[0].DateCreated)
	assert.Equal(t, []string{"create:OK"}, []string(*f.outcomes))
}

func TestCreateRejectsBlankTitle(t *testing.T) {
	for _, title := range []string{"", "   ", "\t\n"} {
		f := newFixture(t)
		input := printerJam()
		input.IssueTitle = title

		res := f.svc.Create(context.Background(), input)
		assert.False(t, res.OK)
		assert.Equal(t, ResultValidation, res.Kind)
		assert.Equal(t, lifecycle.MsgTitleRequired, res.Message)
		assert.Equal(t, lifecycle.RuleTitle, res.Rule)
		assert.Empty(t, f.stored(t))
	}
}

func TestCreateRejectsUnknownCategory(t *testing.T) {
	f := newFixture(t)
	input := printerJam()
	input.CategoryID = 0

	res := f.svc.Create(context.Background(), input)
	assert.Equal(t, ResultValidation, res.Kind)
	assert.Equal(t, lifecycle.MsgCategoryRequired, res.Message)
	assert.Empty(t, f.stored(t))
}

func TestCreateAsResolved(t *testing.T) {
	f := newFixture(t)
	input := printerJam()
	input.Status = "Resolved"
	input.ResolutionNotes = "cleared paper"

	res := f.svc.Create(context.Background(), input)
	require.True(t, res.OK, res.Message)
	require.NotNil(t, res.Ticket.DateResolved)
	assert.Equal(t, res.Ticket.DateCreated, *res.Ticket.DateResolved)
}

func TestCreatePersistenceFailure(t *testing.T) {
	f := newFixture(t)
	f.repo.failCreate = true

	res := f.svc.Create(context.Background(), printerJam())
	assert.False(t, res.OK)
	assert.Equal(t, ResultPersistence, res.Kind)
	assert.Equal(t, MsgSaveFailed, res.Message)
	assert.Nil(t, res.Ticket)
}

func TestUpdateMissingTicket(t *testing.T) {
	f := newFixture(t)

	res := f.svc.Update(context.Background(), 42, printerJam())
	assert.False(t, res.OK)
	assert.Equal(t, ResultNotFound, res.Kind)
	assert.Equal(t, MsgTicketNotFound, res.Message)
}

func TestGetRecordsOutcome(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.True(t, f.svc.Create(ctx, printerJam()).OK)

	found := f.svc.Get(ctx, 1)
	require.True(t, found.OK)
	assert.Equal(t, "Printer jam", found.Ticket.IssueTitle)

	missing := f.svc.Get(ctx, 99)
	assert.Equal(t, ResultNotFound, missing.Kind)

	assert.Equal(t, []string{"create:OK", "get:OK", "get:NOT_FOUND"}, []string(*f.outcomes))
}

func TestUpdateResolveWithoutNotesLeavesTicketUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.svc.Create(ctx, printerJam())
	require.True(t, created.OK)

	input := printerJam()
	input.IssueTitle = "Printer jam (edited)"
	input.Status = "Resolved"
	input.ResolutionNotes = ""

	res := f.svc.Update(ctx, created.Ticket.ID, input)
	assert.False(t, res.OK)
	assert.Equal(t, ResultValidation, res.Kind)
	assert.Equal(t, "Resolution notes are required", res.Message)

	got := f.svc.Get(ctx, created.Ticket.ID)
	require.True(t, got.OK)
	assert.Equal(t, *created.Ticket, *got.Ticket)
}

func TestUpdateCloseBeforeCreationRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.svc.Create(ctx, printerJam())
	require.True(t, created.OK)
	t0 := created.Ticket.DateCreated

	early := t0.Add(-time.Second)
	input := printerJam()
	input.Status = "Closed"
	input.ResolutionNotes = "fixed"
	input.AssignedEmployeeID = int64Ptr(3)
	input.ResolvedAt = &early

	res := f.svc.Update(ctx, created.Ticket.ID, input)
	assert.Equal(t, ResultValidation, res.Kind)
	assert.Equal(t, lifecycle.MsgResolvedBeforeOpen, res.Message)
	assert.Equal(t, lifecycle.RuleResolvedDate, res.Rule)

	got := f.svc.Get(ctx, created.Ticket.ID)
	assert.Equal(t, domain.TicketStatusNew, got.Ticket.Status)
}

func TestUpdateResolveThenReopen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.svc.Create(ctx, printerJam())
	require.True(t, created.OK)

	f.advance(2 * time.Hour)
	resolve := printerJam()
	resolve.Status = "Resolved"
	resolve.ResolutionNotes = "replaced roller"
	resolve.AssignedEmployeeID = int64Ptr(3)
	res := f.svc.Update(ctx, created.Ticket.ID, resolve)
	require.True(t, res.OK, res.Message)
	assert.Equal(t, MsgUpdated, res.Message)
	require.NotNil(t, res.Ticket.DateResolved)
	assert.Equal(t, *f.clock, *res.Ticket.DateResolved)
	assert.Equal(t, created.Ticket.DateCreated, res.Ticket.DateCreated)

	f.advance(time.Hour)
	reopen := resolve
	reopen.Status = "New"
	res = f.svc.Update(ctx, created.Ticket.ID, reopen)
	require.True(t, res.OK, res.Message)

	got := f.svc.Get(ctx, created.Ticket.ID)
	require.True(t, got.OK)
	assert.Equal(t, domain.TicketStatusNew, got.Ticket.Status)
	assert.Nil(t, got.Ticket.DateResolved)
	assert.Empty(t, got.Ticket.ResolutionNotes)
}

func TestUpdatePersistenceFailureLeavesTicketUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.svc.Create(ctx, printerJam())
	require.True(t, created.OK)
	f.repo.failUpdate = true

	input := printerJam()
	input.IssueTitle = "New title"
	res := f.svc.Update(ctx, created.Ticket.ID, input)
	assert.Equal(t, ResultPersistence, res.Kind)

	got := f.svc.Get(ctx, created.Ticket.ID)
	assert.Equal(t, "Printer jam", got.Ticket.IssueTitle)
}

func TestTerminalTicketsKeepNotesAndAssignee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.svc.Create(ctx, printerJam())
	require.True(t, created.OK)

	steps := []TicketInput{
		{IssueTitle: "x", CategoryID: 1, Status: "In Progress", AssignedEmployeeID: int64Ptr(2)},
		{IssueTitle: "x", CategoryID: 1, Status: "Resolved", ResolutionNotes: "done", AssignedEmployeeID: int64Ptr(2)},
		{IssueTitle: "x", CategoryID: 1, Status: "Closed", ResolutionNotes: "done", AssignedEmployeeID: int64Ptr(3)},
		{IssueTitle: "x", CategoryID: 1, Status: "Closed", ResolutionNotes: "", AssignedEmployeeID: int64Ptr(3)},
		{IssueTitle: "x", CategoryID: 1, Status: "New"},
		{IssueTitle: "x", CategoryID: 1, Status: "Resolved", ResolutionNotes: "again"},
	}
	for _, step := range steps {
		f.advance(time.Minute)
		f.svc.Update(ctx, created.Ticket.ID, step)

		got := f.svc.Get(ctx, created.Ticket.ID).Ticket
		terminal := got.Status.IsTerminal()
		assert.Equal(t, terminal, got.DateResolved != nil, step.Status)
		if terminal {
			assert.NotEmpty(t, got.ResolutionNotes)
			assert.NotNil(t, got.AssignedEmployeeID)
			assert.False(t, got.DateResolved.Before(got.DateCreated))
		}
		if got.Status == domain.TicketStatusNew {
			assert.Empty(t, got.ResolutionNotes)
		}
	}
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.svc.Create(ctx, printerJam())
	require.True(t, created.OK)

	res := f.svc.Delete(ctx, created.Ticket.ID)
	assert.True(t, res.OK)
	assert.Equal(t, MsgDeleted, res.Message)
	assert.Equal(t, 1, res.Affected)

	res = f.svc.Delete(ctx, created.Ticket.ID)
	assert.True(t, res.OK)
	assert.Equal(t, MsgNothingToDelete, res.Message)
	assert.Equal(t, 0, res.Affected)
}

func TestClearAllEmpty(t *testing.T) {
	f := newFixture(t)

	res := f.svc.ClearAll(context.Background())
	assert.True(t, res.OK)
	assert.Equal(t, MsgNothingToClear, res.Message)
	assert.Equal(t, 0, res.Affected)
}

func TestClearAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.True(t, f.svc.Create(ctx, printerJam()).OK)
	}

	res := f.svc.ClearAll(ctx)
	assert.True(t, res.OK)
	assert.Equal(t, MsgCleared, res.Message)
	assert.Equal(t, 3, res.Affected)
	assert.Empty(t, f.stored(t))
}

func TestClearAllPartialFailureKeepsCompletedDeletions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		require.True(t, f.svc.Create(ctx, printerJam()).OK)
	}
	f.repo.failDeleteID = 3

	res := f.svc.ClearAll(ctx)
	assert.False(t, res.OK)
	assert.Equal(t, ResultPersistence, res.Kind)
	assert.Equal(t, "Unable to delete ticket 3", res.Message)
	assert.Equal(t, 2, res.Affected)

	remaining := f.stored(t)
	require.Len(t, remaining, 2)
	assert.Equal(t, int64(3), remaining[0].ID)
	assert.Equal(t, int64(4), remaining[1].ID)
}

func TestListFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	closeInput := func(category int64, employee int64) TicketInput {
		return TicketInput{IssueTitle: "t", CategoryID: category, Status: "Closed", ResolutionNotes: "ok", AssignedEmployeeID: int64Ptr(employee)}
	}
	require.True(t, f.svc.Create(ctx, printerJam()).OK)     // 1: New, cat 1, emp 2
	require.True(t, f.svc.Create(ctx, closeInput(2, 3)).OK) // 2: Closed, cat 2, emp 3
	require.True(t, f.svc.Create(ctx, printerJam()).OK)     // 3: New, cat 1, emp 2
	require.True(t, f.svc.Create(ctx, closeInput(1, 2)).OK) // 4: Closed, cat 1, emp 2

	closed := domain.TicketStatusClosed
	tickets, res := f.svc.List(ctx, filter.Criteria{Status: &closed})
	require.True(t, res.OK)
	require.Len(t, tickets, 2)
	assert.Equal(t, int64(2), tickets[0].ID)
	assert.Equal(t, int64(4), tickets[1].ID)
	for _, ticket := range tickets {
		assert.Equal(t, domain.TicketStatusClosed, ticket.Status)
	}

	tickets, _ = f.svc.List(ctx, filter.Criteria{CategoryID: int64Ptr(1), EmployeeID: int64Ptr(2)})
	assert.Len(t, tickets, 3)

	tickets, _ = f.svc.List(ctx, filter.Criteria{CategoryID: int64Ptr(filter.AllCategories)})
	assert.Len(t, tickets, 4)
}

func TestListPersistenceFailure(t *testing.T) {
	f := newFixture(t)
	f.repo.failList = true

	tickets, res := f.svc.List(context.Background(), filter.Criteria{})
	assert.Nil(t, tickets)
	assert.Equal(t, ResultPersistence, res.Kind)
	assert.Equal(t, MsgLoadFailed, res.Message)

	res = f.svc.ClearAll(context.Background())
	assert.Equal(t, ResultPersistence, res.Kind)
}

func TestCounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.True(t, f.svc.Create(ctx, printerJam()).OK)
	resolved := printerJam()
	resolved.Status = "Resolved"
	resolved.ResolutionNotes = "done"
	require.True(t, f.svc.Create(ctx, resolved).OK)

	counts, res := f.svc.Counts(ctx)
	require.True(t, res.OK)
	assert.Equal(t, Counts{Total: 2, Open: 1, Closed: 1}, counts)
	assert.Equal(t, "Total: 2 | Open: 1 | Closed: 1", res.Message)
}

func TestListLookups(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	categories, res := f.svc.ListCategories(ctx)
	require.True(t, res.OK)
	assert.Equal(t, domain.DefaultCategories, categories)

	employees, res := f.svc.ListEmployees(ctx)
	require.True(t, res.OK)
	assert.Len(t, employees, 2)
}

type brokenCategories struct{}

func (brokenCategories) ListAll(context.Context) ([]domain.Category, error) {
	return nil, errStoreDown
}

func TestLookupFailureIsPersistenceResult(t *testing.T) {
	svc := NewTicketService(TicketDependencies{
		TicketRepo: repository.NewMemoryTicketRepository(),
		Categories: brokenCategories{},
		Employees:  lookup.StaticEmployees{},
	})

	res := svc.Create(context.Background(), printerJam())
	assert.Equal(t, ResultPersistence, res.Kind)
	assert.Equal(t, MsgReferencesFailed, res.Message)

	_, res = svc.ListCategories(context.Background())
	assert.Equal(t, ResultPersistence, res.Kind)
}
