package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"tasktrack/internal/models"
)

// MemoryStore implements the TaskStore interface with an in-process map.
// It is used by tests and ephemeral runs; semantics match SQLiteStore.
type MemoryStore struct {
	mu     sync.RWMutex
	tasks  map[int64]models.Task
	nextID int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tasks: make(map[int64]models.Task)}
}

// Insert persists a new task and returns its assigned id.
func (s *MemoryStore) Insert(ctx context.Context, task *models.Task) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	now := time.Now()
	task.ID = s.nextID
	task.CreatedAt = now
	task.UpdatedAt = now

	s.tasks[task.ID] = *task
	return task.ID, nil
}

// Update persists all fields of the task keyed by its id.
func (s *MemoryStore) Update(ctx context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[task.ID]; !ok {
		return models.NotFoundf("task %d", task.ID)
	}

	task.UpdatedAt = time.Now()
	s.tasks[task.ID] = *task
	return nil
}

// Delete removes a task by id. Deleting an absent id succeeds.
func (s *MemoryStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tasks, id)
	return nil
}

// ToggleCompleted flips the completed flag of a task.
func (s *MemoryStore) ToggleCompleted(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return models.NotFoundf("task %d", id)
	}

	task.Completed = !task.Completed
	task.UpdatedAt = time.Now()
	s.tasks[id] = task
	return nil
}

// All retrieves every task ordered by id.
func (s *MemoryStore) All(ctx context.Context) ([]models.Task, error) {
	return s.collect(func(models.Task) bool { return true }), nil
}

// Active retrieves tasks that are not completed.
func (s *MemoryStore) Active(ctx context.Context) ([]models.Task, error) {
	return s.collect(func(t models.Task) bool { return !t.Completed }), nil
}

// Completed retrieves tasks that are completed.
func (s *MemoryStore) Completed(ctx context.Context) ([]models.Task, error) {
	return s.collect(func(t models.Task) bool { return t.Completed }), nil
}

// SearchByTitle retrieves tasks whose title contains pattern as a
// case-sensitive substring.
func (s *MemoryStore) SearchByTitle(ctx context.Context, pattern string) ([]models.Task, error) {
	return s.collect(func(t models.Task) bool {
		return strings.Contains(t.Title, pattern)
	}), nil
}

// SortedByDueDate retrieves all tasks ordered by due date, tasks without a
// due date last.
func (s *MemoryStore) SortedByDueDate(ctx context.Context, ascending bool) ([]models.Task, error) {
	tasks := s.collect(func(models.Task) bool { return true })

	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i].DueDate, tasks[j].DueDate
		switch {
		case a == nil && b == nil:
			return false
		case a == nil:
			return false
		case b == nil:
			return true
		case ascending:
			return a.Before(*b)
		default:
			return a.After(*b)
		}
	})

	return tasks, nil
}

// Close is a no-op for the in-memory backend.
func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) collect(match func(models.Task) bool) []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tasks []models.Task
	for _, task := range s.tasks {
		if match(task) {
			tasks = append(tasks, task)
		}
	}

	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks
}
