package repository

import (
	"context"
	"errors"

	"regapi/internal/model"
)

// ErrVersionConflict is returned by Save and Delete when the stored version no
// longer matches the version the aggregate was loaded with.
var ErrVersionConflict = errors.New("version conflict")

// StudentRepository loads and saves whole Student aggregates. Every load is
// eager: one-to-one children and collections are always populated.
// No business logic here, strictly persistence operations.
type StudentRepository interface {
	// Create inserts a new aggregate with all of its children and sets the
	// generated IDs and Version on s.
	Create(ctx context.Context, s *model.Student) error

	// FindByPID returns the aggregate with the given public identifier, or sql.ErrNoRows.
	FindByPID(ctx context.Context, pid string) (*model.Student, error)

	// List returns aggregates newest first. A non-positive Limit returns all rows.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.Student], error)

	// Save persists s in one transaction. Children without an ID are inserted,
	// children with an ID are updated, and stored children missing from s are
	// deleted. Returns ErrVersionConflict if s.Version is stale; on success
	// s.Version is advanced.
	Save(ctx context.Context, s *model.Student) error

	// Delete removes the aggregate and its children, guarded by version.
	Delete(ctx context.Context, pid string, version int) error
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
