// Package lookup provides read-only category and employee sources.
package lookup

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CategoryProvider lists valid categories.
type CategoryProvider interface {
	ListAll(ctx context.Context) ([]domain.Category, error)
}

// EmployeeProvider lists valid employees.
type EmployeeProvider interface {
	ListAll(ctx context.Context) ([]domain.Employee, error)
}

// StaticCategories serves a fixed category list.
type StaticCategories []domain.Category

func (s StaticCategories) ListAll(context.Context) ([]domain.Category, error) {
	return append([]domain.Category(nil), s...), nil
}

// StaticEmployees serves a fixed employee list.
type StaticEmployees []domain.Employee

func (s StaticEmployees) ListAll(context.Context) ([]domain.Employee, error) {
	return append([]domain.Employee(nil), s...), nil
}

// ParseEmployees reads "id:Full Name" pairs separated by commas, as used by
// the SEED_EMPLOYEES setting.
func ParseEmployees(raw string) ([]domain.Employee, error) {
	var result []domain.Employee
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idText, name, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("employee entry %q: expected id:name", part)
		}
		id, err := strconv.ParseInt(strings.TrimSpace(idText), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("employee entry %q: invalid id", part)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("employee entry %q: empty name", part)
		}
		result = append(result, domain.Employee{ID: id, FullName: name})
	}
	return result, nil
}
