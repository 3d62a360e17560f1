package domain

// Employee is a person tickets can be assigned to.
type Employee struct {
	ID       int64
	FullName string
}
