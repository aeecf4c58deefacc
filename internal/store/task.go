package store

import (
	"context"

	"github.com/phrazzld/taskstore/internal/domain"
)

// TaskPredicate selects tasks for filtered queries and aggregate counts.
type TaskPredicate func(domain.Task) bool

// Stats summarizes the stored collection. CompletionRate is formatted as a
// percentage string with one decimal place (e.g. "33.3%"), or "0.0%" when
// the collection is empty.
type Stats struct {
	Total          int    `json:"total"`
	Completed      int    `json:"completed"`
	Pending        int    `json:"pending"`
	CompletionRate string `json:"completionRate"`
}

// TaskStore defines the repository contract for task persistence. It is the
// exclusive owner of the stored collection; all other components reach the
// collection only through this interface.
//
// Every mutating operation is atomic: on persistence failure the in-memory
// state is reverted to its pre-call content and the error wraps
// ErrPersistence along with the adapter's cause. Callers must assume a
// failed mutating call left the store unchanged.
type TaskStore interface {
	// Save inserts or replaces a task by ID and persists the collection.
	// Returns ErrInvalidArgument if the task fails validation.
	Save(ctx context.Context, task domain.Task) (domain.Task, error)

	// SaveMany saves a batch of tasks atomically. Every element is validated
	// before any mutation; returns the count of tasks processed.
	SaveMany(ctx context.Context, tasks []domain.Task) (int, error)

	// Exists reports whether a task with the given ID is stored. O(1), no side effects.
	Exists(ctx context.Context, id string) bool

	// FindAll returns fresh copies of every stored task in insertion order.
	FindAll(ctx context.Context) []domain.Task

	// FindBy returns fresh copies of the tasks matching the predicate.
	// Returns ErrInvalidArgument if the predicate is nil.
	FindBy(ctx context.Context, predicate TaskPredicate) ([]domain.Task, error)

	// FindByID returns a fresh copy of the task, or ok=false if absent.
	FindByID(ctx context.Context, id string) (domain.Task, bool)

	// Delete removes a task by ID and persists. Returns false without
	// persisting if the ID is absent.
	Delete(ctx context.Context, id string) (bool, error)

	// DeleteMany removes the given IDs, ignoring missing ones, and returns
	// the count actually removed. Skips persistence entirely when nothing
	// was removed. Returns ErrInvalidArgument if ids is nil.
	DeleteMany(ctx context.Context, ids []string) (int, error)

	// Clear removes every task and returns the count removed. An already
	// empty store returns 0 without touching the adapter.
	Clear(ctx context.Context) (int, error)

	// Count returns the number of stored tasks.
	Count(ctx context.Context) int

	// CountBy returns the number of stored tasks matching the predicate.
	// Returns ErrInvalidArgument if the predicate is nil.
	CountBy(ctx context.Context, predicate TaskPredicate) (int, error)

	// Export serializes the collection as a pretty-printed JSON array.
	// Pure read, no mutation.
	Export(ctx context.Context) (string, error)

	// Import replaces the entire collection with the tasks parsed from data.
	// A non-array payload fails with domain.ErrValidation; any single
	// malformed record fails the whole import. Returns the new collection size.
	Import(ctx context.Context, data string) (int, error)

	// Stats returns aggregate counts and the string-formatted completion rate.
	Stats(ctx context.Context) Stats
}
