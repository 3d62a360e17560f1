package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/filter"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

const usage = `Usage: helpdeskctl <command> [flags]

Commands:
  list        list tickets (--status, --category, --employee)
  show ID     print one ticket
  create      create a ticket
  update ID   change a ticket; unset flags keep their current value
  delete ID   delete a ticket
  clear       delete every ticket
  counts      print total, open and closed counts
  categories  list categories
  employees   list employees
`

// commandError carries the process exit code for a failed command.
type commandError struct {
	code    int
	message string
}

func (e *commandError) Error() string { return e.message }
func (e *commandError) ExitCode() int { return e.code }

func usageError(format string, args ...any) error {
	return &commandError{code: 2, message: fmt.Sprintf(format, args...)}
}

// resultError turns a failed service result into an exit status.
func resultError(res service.Result) error {
	code := 1
	switch res.Kind {
	case service.ResultValidation:
		code = 3
	case service.ResultNotFound:
		code = 4
	}
	return &commandError{code: code, message: res.Message}
}

func execute(ctx context.Context, svc *service.TicketService, args []string, out io.Writer) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprint(out, usage)
		return nil
	}

	command, rest := args[0], args[1:]
	switch command {
	case "list":
		return listCommand(ctx, svc, rest, out)
	case "show":
		return showCommand(ctx, svc, rest, out)
	case "create":
		return createCommand(ctx, svc, rest, out)
	case "update":
		return updateCommand(ctx, svc, rest, out)
	case "delete":
		return deleteCommand(ctx, svc, rest, out)
	case "clear":
		return clearCommand(ctx, svc, out)
	case "counts":
		_, res := svc.Counts(ctx)
		if !res.OK {
			return resultError(res)
		}
		fmt.Fprintln(out, res.Message)
		return nil
	case "categories":
		categories, res := svc.ListCategories(ctx)
		if !res.OK {
			return resultError(res)
		}
		for _, category := range categories {
			fmt.Fprintf(out, "%d\t%s\n", category.ID, category.Name)
		}
		return nil
	case "employees":
		employees, res := svc.ListEmployees(ctx)
		if !res.OK {
			return resultError(res)
		}
		for _, employee := range employees {
			fmt.Fprintf(out, "%d\t%s\n", employee.ID, employee.FullName)
		}
		return nil
	}
	return usageError("unknown command %q", command)
}

func listCommand(ctx context.Context, svc *service.TicketService, args []string, out io.Writer) error {
	flags := pflag.NewFlagSet("list", pflag.ContinueOnError)
	flags.SetOutput(out)
	status := flags.String("status", filter.AllStatuses, "status filter or All")
	category := flags.Int64("category", filter.AllCategories, "category id, 0 for all")
	employee := flags.Int64("employee", 0, "assigned employee id")
	if err := flags.Parse(args); err != nil {
		return usageError("%v", err)
	}

	criteria := filter.Criteria{CategoryID: category}
	parsed, ok := filter.ParseStatus(*status)
	if !ok {
		return usageError("unknown status %q", *status)
	}
	criteria.Status = parsed
	if flags.Changed("employee") {
		criteria.EmployeeID = employee
	}

	tickets, res := svc.List(ctx, criteria.Normalize())
	if !res.OK {
		return resultError(res)
	}
	for _, ticket := range tickets {
		printTicketLine(out, ticket)
	}
	fmt.Fprintln(out, res.Message)
	return nil
}

func showCommand(ctx context.Context, svc *service.TicketService, args []string, out io.Writer) error {
	id, err := ticketIDArg(args)
	if err != nil {
		return err
	}
	res := svc.Get(ctx, id)
	if !res.OK {
		return resultError(res)
	}
	printTicketDetail(out, *res.Ticket)
	return nil
}

// ticketFlags binds the editable ticket fields to a flag set.
type ticketFlags struct {
	set         *pflag.FlagSet
	title       string
	description string
	category    int64
	employee    int64
	status      string
	notes       string
	resolvedAt  string
}

func newTicketFlags(name string, out io.Writer) *ticketFlags {
	f := &ticketFlags{set: pflag.NewFlagSet(name, pflag.ContinueOnError)}
	f.set.SetOutput(out)
	f.set.StringVar(&f.title, "title", "", "issue title")
	f.set.StringVar(&f.description, "description", "", "issue description")
	f.set.Int64Var(&f.category, "category", 0, "category id")
	f.set.Int64Var(&f.employee, "employee", 0, "assigned employee id, 0 for none")
	f.set.StringVar(&f.status, "status", string(domain.TicketStatusNew), "ticket status")
	f.set.StringVar(&f.notes, "notes", "", "resolution notes")
	f.set.StringVar(&f.resolvedAt, "resolved-at", "", "resolution time (RFC3339), defaults to now")
	return f
}

// apply overlays the flags that were set onto input.
func (f *ticketFlags) apply(input *service.TicketInput, all bool) error {
	changed := func(name string) bool { return all || f.set.Changed(name) }
	if changed("title") {
		input.IssueTitle = f.title
	}
	if changed("description") {
		input.Description = f.description
	}
	if changed("category") {
		input.CategoryID = f.category
	}
	if changed("employee") {
		employee := f.employee
		input.AssignedEmployeeID = &employee
	}
	if changed("status") {
		input.Status = f.status
	}
	if changed("notes") {
		input.ResolutionNotes = f.notes
	}
	if f.resolvedAt != "" {
		resolvedAt, err := time.Parse(time.RFC3339, f.resolvedAt)
		if err != nil {
			return usageError("--resolved-at must be RFC3339: %v", err)
		}
		input.ResolvedAt = &resolvedAt
	}
	return nil
}

func createCommand(ctx context.Context, svc *service.TicketService, args []string, out io.Writer) error {
	flags := newTicketFlags("create", out)
	if err := flags.set.Parse(args); err != nil {
		return usageError("%v", err)
	}
	var input service.TicketInput
	if err := flags.apply(&input, true); err != nil {
		return err
	}
	res := svc.Create(ctx, input)
	if !res.OK {
		return resultError(res)
	}
	fmt.Fprintf(out, "%s (#%d)\n", res.Message, res.Ticket.ID)
	return nil
}

func updateCommand(ctx context.Context, svc *service.TicketService, args []string, out io.Writer) error {
	flags := newTicketFlags("update", out)
	if err := flags.set.Parse(args); err != nil {
		return usageError("%v", err)
	}
	id, err := ticketIDArg(flags.set.Args())
	if err != nil {
		return err
	}

	current := svc.Get(ctx, id)
	if !current.OK {
		return resultError(current)
	}
	input := inputFromTicket(*current.Ticket)
	if err := flags.apply(&input, false); err != nil {
		return err
	}

	res := svc.Update(ctx, id, input)
	if !res.OK {
		return resultError(res)
	}
	fmt.Fprintln(out, res.Message)
	fmt.Fprintln(out, res.Ticket.Summary())
	return nil
}

func deleteCommand(ctx context.Context, svc *service.TicketService, args []string, out io.Writer) error {
	id, err := ticketIDArg(args)
	if err != nil {
		return err
	}
	res := svc.Delete(ctx, id)
	if !res.OK {
		return resultError(res)
	}
	fmt.Fprintln(out, res.Message)
	return nil
}

func clearCommand(ctx context.Context, svc *service.TicketService, out io.Writer) error {
	res := svc.ClearAll(ctx)
	if !res.OK {
		return &commandError{code: 1, message: fmt.Sprintf("%s (%d deleted before failure)", res.Message, res.Affected)}
	}
	fmt.Fprintf(out, "%s (%d)\n", res.Message, res.Affected)
	return nil
}

func inputFromTicket(ticket domain.Ticket) service.TicketInput {
	input := service.TicketInput{
		IssueTitle:         ticket.IssueTitle,
		Description:        ticket.Description,
		CategoryID:         ticket.CategoryID,
		AssignedEmployeeID: ticket.AssignedEmployeeID,
		Status:             string(ticket.Status),
		ResolutionNotes:    ticket.ResolutionNotes,
	}
	if ticket.DateResolved != nil {
		resolvedAt := *ticket.DateResolved
		input.ResolvedAt = &resolvedAt
	}
	return input
}

func ticketIDArg(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, usageError("expected exactly one ticket id")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, usageError("invalid ticket id %q", args[0])
	}
	return id, nil
}

func printTicketLine(out io.Writer, ticket domain.Ticket) {
	fmt.Fprintf(out, "#%d\t%s\n", ticket.ID, ticket.Summary())
}

func printTicketDetail(out io.Writer, ticket domain.Ticket) {
	fmt.Fprintf(out, "ID:          %d\n", ticket.ID)
	fmt.Fprintf(out, "Title:       %s\n", ticket.IssueTitle)
	fmt.Fprintf(out, "Category:    %d\n", ticket.CategoryID)
	fmt.Fprintf(out, "Status:      %s\n", ticket.Status)
	fmt.Fprintf(out, "Created:     %s\n", ticket.DateCreated.Format(time.RFC3339))
	if ticket.AssignedEmployeeID != nil {
		fmt.Fprintf(out, "Assigned to: %d\n", *ticket.AssignedEmployeeID)
	}
	if ticket.DateResolved != nil {
		fmt.Fprintf(out, "Resolved:    %s\n", ticket.DateResolved.Format(time.RFC3339))
	}
	if strings.TrimSpace(ticket.Description) != "" {
		fmt.Fprintf(out, "\n%s\n", ticket.Description)
	}
	if ticket.ResolutionNotes != "" {
		fmt.Fprintf(out, "\nResolution notes:\n%s\n", ticket.ResolutionNotes)
	}
}
