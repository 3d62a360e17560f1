package dto

// CategoryResponse is a selectable ticket category.
type CategoryResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// EmployeeResponse is an assignable employee.
type EmployeeResponse struct {
	ID       int64  `json:"id"`
	FullName string `json:"full_name"`
}
