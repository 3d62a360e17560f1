package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EmployeeRepository reads employees that tickets may be assigned to.
type EmployeeRepository interface {
	ListAll(ctx context.Context) ([]domain.Employee, error)
}

type employeeRepository struct {
	pool *pgxpool.Pool
}

// NewEmployeeRepository instantiates the repository.
func NewEmployeeRepository(pool *pgxpool.Pool) EmployeeRepository {
	return &employeeRepository{pool: pool}
}

func (r *employeeRepository) ListAll(ctx context.Context) ([]domain.Employee, error) {
	const query = `SELECT id, full_name FROM employees ORDER BY full_name, id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Employee
	for rows.Next() {
		var employee domain.Employee
		if err := rows.Scan(&employee.ID, &employee.FullName); err != nil {
			return nil, err
		}
		result = append(result, employee)
	}
	return result, rows.Err()
}
