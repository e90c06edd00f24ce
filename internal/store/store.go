package store

import (
	"context"

	"tasktrack/internal/models"
)

// TaskStore defines the interface for task persistence operations.
// Implementations must serialize concurrent writers themselves; callers
// depend on the operation contract only.
type TaskStore interface {
	// Insert assigns a fresh id, persists the row and returns the id.
	Insert(ctx context.Context, task *models.Task) (int64, error)
	// Update persists all fields keyed by task.ID. It reports
	// models.ErrNotFound if no such row exists.
	Update(ctx context.Context, task *models.Task) error
	// Delete removes the row with the given id. Deleting an absent id is
	// a no-op success.
	Delete(ctx context.Context, id int64) error
	// ToggleCompleted flips the completed flag in a single statement so a
	// stale caller copy cannot clobber other fields. It reports
	// models.ErrNotFound if no such row exists.
	ToggleCompleted(ctx context.Context, id int64) error

	// Query operations
	All(ctx context.Context) ([]models.Task, error)
	Active(ctx context.Context) ([]models.Task, error)
	Completed(ctx context.Context) ([]models.Task, error)
	// SearchByTitle returns rows whose title contains pattern as a
	// case-sensitive substring.
	SearchByTitle(ctx context.Context, pattern string) ([]models.Task, error)
	// SortedByDueDate returns all rows ordered by due date. Tasks without
	// a due date sort last regardless of direction.
	SortedByDueDate(ctx context.Context, ascending bool) ([]models.Task, error)

	// Lifecycle
	Close() error
}
