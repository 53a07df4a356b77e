package repository

import (
	"context"

	"billed/internal/model"
)

// BillRepository defines data access for bills using SQL queries only.
// No business logic here, strictly persistence operations.
type BillRepository interface {
	// Create inserts a new bill record and returns it as stored.
	Create(ctx context.Context, bill *model.Bill) (*model.Bill, error)

	// FindByID returns a bill by its ID.
	FindByID(ctx context.Context, id string) (*model.Bill, error)

	// List returns bills matching the query and the total count for its filter.
	List(ctx context.Context, q ListQuery) (*PageResult[model.Bill], error)

	// Update overwrites the mutable fields of an existing bill.
	// It returns sql.ErrNoRows if the bill does not exist.
	Update(ctx context.Context, bill *model.Bill) (*model.Bill, error)
}

// ListQuery filters and paginates a bill listing.
// An empty Email lists every bill; a zero Limit means no limit.
type ListQuery struct {
	Email  string
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
