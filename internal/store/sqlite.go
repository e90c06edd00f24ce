package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"tasktrack/internal/models"
)

// dueDateFormat keeps stored due dates lexicographically sortable.
const dueDateFormat = time.RFC3339

const taskColumns = `id, title, description, due_date, completed, created_at, updated_at`

// SQLiteStore implements the TaskStore interface using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given database path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Insert persists a new task and returns its assigned id.
func (s *SQLiteStore) Insert(ctx context.Context, task *models.Task) (int64, error) {
	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (title, description, due_date, completed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, task.Title, task.Description, dueDateArg(task.DueDate), task.Completed, now, now)
	if err != nil {
		return 0, models.Storagef("failed to insert task: %v", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, models.Storagef("failed to get last insert id: %v", err)
	}
	task.ID = id

	return id, nil
}

// Update persists all fields of the task keyed by its id.
func (s *SQLiteStore) Update(ctx context.Context, task *models.Task) error {
	task.UpdatedAt = time.Now()

	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET title = ?, description = ?, due_date = ?, completed = ?, updated_at = ?
		WHERE id = ?
	`, task.Title, task.Description, dueDateArg(task.DueDate), task.Completed, task.UpdatedAt, task.ID)
	if err != nil {
		return models.Storagef("failed to update task %d: %v", task.ID, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return models.Storagef("failed to update task %d: %v", task.ID, err)
	}
	if n == 0 {
		return models.NotFoundf("task %d", task.ID)
	}

	return nil
}

// Delete removes a task by id. Deleting an absent id succeeds.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return models.Storagef("failed to delete task %d: %v", id, err)
	}
	return nil
}

// ToggleCompleted flips the completed flag of a task in a single statement.
func (s *SQLiteStore) ToggleCompleted(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET completed = NOT completed, updated_at = ? WHERE id = ?
	`, time.Now(), id)
	if err != nil {
		return models.Storagef("failed to toggle task %d: %v", id, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return models.Storagef("failed to toggle task %d: %v", id, err)
	}
	if n == 0 {
		return models.NotFoundf("task %d", id)
	}

	return nil
}

// All retrieves every task.
func (s *SQLiteStore) All(ctx context.Context) ([]models.Task, error) {
	return s.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY id ASC`)
}

// Active retrieves tasks that are not completed.
func (s *SQLiteStore) Active(ctx context.Context) ([]models.Task, error) {
	return s.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks WHERE completed = 0 ORDER BY id ASC`)
}

// Completed retrieves tasks that are completed.
func (s *SQLiteStore) Completed(ctx context.Context) ([]models.Task, error) {
	return s.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks WHERE completed = 1 ORDER BY id ASC`)
}

// SearchByTitle retrieves tasks whose title contains pattern.
// instr keeps the match case-sensitive; LIKE is not for ASCII.
func (s *SQLiteStore) SearchByTitle(ctx context.Context, pattern string) ([]models.Task, error) {
	return s.queryTasks(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE instr(title, ?) > 0 ORDER BY id ASC
	`, pattern)
}

// SortedByDueDate retrieves all tasks ordered by due date.
// Tasks without a due date always sort last.
func (s *SQLiteStore) SortedByDueDate(ctx context.Context, ascending bool) ([]models.Task, error) {
	direction := "ASC"
	if !ascending {
		direction = "DESC"
	}
	return s.queryTasks(ctx, `
		SELECT `+taskColumns+` FROM tasks
		ORDER BY due_date IS NULL, due_date `+direction+`, id ASC
	`)
}

func (s *SQLiteStore) queryTasks(ctx context.Context, query string, args ...any) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, models.Storagef("failed to query tasks: %v", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		var task models.Task
		var dueDate sql.NullString

		err := rows.Scan(
			&task.ID,
			&task.Title,
			&task.Description,
			&dueDate,
			&task.Completed,
			&task.CreatedAt,
			&task.UpdatedAt,
		)
		if err != nil {
			return nil, models.Storagef("failed to scan task: %v", err)
		}

		if dueDate.Valid {
			t, err := time.Parse(dueDateFormat, dueDate.String)
			if err != nil {
				return nil, models.Storagef("failed to parse due date %q: %v", dueDate.String, err)
			}
			task.DueDate = &t
		}

		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, models.Storagef("failed to iterate tasks: %v", err)
	}

	return tasks, nil
}

func dueDateArg(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(dueDateFormat)
}
