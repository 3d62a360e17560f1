package domain

// Category is read-only reference data owned by the lookup provider.
type Category struct {
	ID   int64
	Name string
}

// DefaultCategories are seeded into fresh stores.
var DefaultCategories = []Category{
	{ID: 1, Name: "Hardware"},
	{ID: 2, Name: "Software"},
	{ID: 3, Name: "Network"},
	{ID: 4, Name: "Account Access"},
	{ID: 5, Name: "Others"},
}
