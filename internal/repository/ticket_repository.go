package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/filter"
)

// ErrNotFound is returned when a ticket id does not exist in the store.
var ErrNotFound = errors.New("ticket not found")

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	List(ctx context.Context, criteria filter.Criteria) ([]domain.Ticket, error)
	Update(ctx context.Context, ticket *domain.Ticket) error
	Delete(ctx context.Context, id int64) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the Postgres repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, issue_title, description, category_id, assigned_employee_id,
               status, date_created, date_resolved, resolution_notes`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (issue_title, description, category_id, assigned_employee_id, status, date_created, date_resolved, resolution_notes)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id`
	return r.pool.QueryRow(ctx, query,
		ticket.IssueTitle,
		ticket.Description,
		ticket.CategoryID,
		ticket.AssignedEmployeeID,
		ticket.Status,
		ticket.DateCreated,
		ticket.DateResolved,
		ticket.ResolutionNotes,
	).Scan(&ticket.ID)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET issue_title=$1, description=$2, category_id=$3, assigned_employee_id=$4,
            status=$5, date_resolved=$6, resolution_notes=$7
        WHERE id=$8`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.IssueTitle,
		ticket.Description,
		ticket.CategoryID,
		ticket.AssignedEmployeeID,
		ticket.Status,
		ticket.DateResolved,
		ticket.ResolutionNotes,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, query, id), &ticket); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ticketRepository) List(ctx context.Context, criteria filter.Criteria) ([]domain.Ticket, error) {
	criteria = criteria.Normalize()
	clauses := []string{"1=1"}
	args := []any{}

	if criteria.Status != nil {
		args = append(args, *criteria.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if criteria.CategoryID != nil {
		args = append(args, *criteria.CategoryID)
		clauses = append(clauses, fmt.Sprintf("category_id=$%d", len(args)))
	}
	if criteria.EmployeeID != nil {
		args = append(args, *criteria.EmployeeID)
		clauses = append(clauses, fmt.Sprintf("assigned_employee_id=$%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY id ASC`,
		ticketColumns, strings.Join(clauses, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Ticket{}
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.IssueTitle,
		&ticket.Description,
		&ticket.CategoryID,
		&ticket.AssignedEmployeeID,
		&ticket.Status,
		&ticket.DateCreated,
		&ticket.DateResolved,
		&ticket.ResolutionNotes,
	)
}
