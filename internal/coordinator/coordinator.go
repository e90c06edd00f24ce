package coordinator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"tasktrack/internal/models"
	"tasktrack/internal/store"
)

// State is the published snapshot consumed by observers. The three task
// views are replaced together, so a snapshot is always internally
// consistent.
type State struct {
	Tasks          []models.Task `json:"tasks"`
	ActiveTasks    []models.Task `json:"active_tasks"`
	CompletedTasks []models.Task `json:"completed_tasks"`
	Loading        bool          `json:"loading"`
	LastError      string        `json:"last_error,omitempty"`
}

func (s State) clone() State {
	s.Tasks = append([]models.Task(nil), s.Tasks...)
	s.ActiveTasks = append([]models.Task(nil), s.ActiveTasks...)
	s.CompletedTasks = append([]models.Task(nil), s.CompletedTasks...)
	return s
}

// Coordinator is the single point of mutation for the task list. Every
// operation runs under opMu, so a second operation cannot start before the
// first has finished reconciling; a stale reconcile can never overwrite a
// fresher one.
type Coordinator struct {
	store store.TaskStore
	log   logrus.FieldLogger

	opMu sync.Mutex

	stateMu sync.RWMutex
	state   State
	subs    map[int]chan State
	nextSub int
}

// New creates a Coordinator on top of the given store.
func New(s store.TaskStore, log logrus.FieldLogger) *Coordinator {
	return &Coordinator{
		store: s,
		log:   log,
		subs:  make(map[int]chan State),
	}
}

// State returns a copy of the current published snapshot.
func (c *Coordinator) State() State {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state.clone()
}

// Subscribe registers an observer. The returned channel holds the latest
// snapshot only: a slow reader sees the newest state, not every
// intermediate one. The cancel func releases the subscription.
func (c *Coordinator) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	c.stateMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.state.clone()
	c.stateMu.Unlock()

	cancel := func() {
		c.stateMu.Lock()
		delete(c.subs, id)
		c.stateMu.Unlock()
	}
	return ch, cancel
}

// LoadTasks re-derives and republishes all three views from the store.
func (c *Coordinator) LoadTasks(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.setLoading(true)
	defer c.setLoading(false)

	return c.reconcile(ctx, "Failed to load tasks")
}

// AddTask validates the title, persists a new task and republishes the
// views.
func (c *Coordinator) AddTask(ctx context.Context, title, description string, dueDate *time.Time) error {
	if strings.TrimSpace(title) == "" {
		return c.rejectEmptyTitle()
	}

	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.setLoading(true)
	defer c.setLoading(false)

	task := &models.Task{
		Title:       title,
		Description: description,
		DueDate:     dueDate,
	}
	if _, err := c.store.Insert(ctx, task); err != nil {
		return c.fail("add", "Failed to add task", err)
	}

	return c.reconcile(ctx, "Failed to add task")
}

// UpdateTask persists all fields of the task and republishes the views.
func (c *Coordinator) UpdateTask(ctx context.Context, task models.Task) error {
	if strings.TrimSpace(task.Title) == "" {
		return c.rejectEmptyTitle()
	}

	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.setLoading(true)
	defer c.setLoading(false)

	if err := c.store.Update(ctx, &task); err != nil {
		return c.fail("update", "Failed to update task", err)
	}

	return c.reconcile(ctx, "Failed to update task")
}

// DeleteTask removes the task and republishes the views. Deleting a task
// that is already gone succeeds.
func (c *Coordinator) DeleteTask(ctx context.Context, task models.Task) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.setLoading(true)
	defer c.setLoading(false)

	if err := c.store.Delete(ctx, task.ID); err != nil {
		return c.fail("delete", "Failed to delete task", err)
	}

	return c.reconcile(ctx, "Failed to delete task")
}

// ToggleTaskCompletion flips the task's completed flag and republishes the
// views. The flip happens inside the store, so a stale caller copy cannot
// clobber other fields.
func (c *Coordinator) ToggleTaskCompletion(ctx context.Context, task models.Task) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.setLoading(true)
	defer c.setLoading(false)

	if err := c.store.ToggleCompleted(ctx, task.ID); err != nil {
		return c.fail("toggle", "Failed to toggle task completion", err)
	}

	return c.reconcile(ctx, "Failed to toggle task completion")
}

// SearchTasksByTitle republishes only the Tasks view, filtered to titles
// containing query. ActiveTasks and CompletedTasks keep their last fully
// reconciled value until the next load or mutation.
func (c *Coordinator) SearchTasksByTitle(ctx context.Context, query string) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.setLoading(true)
	defer c.setLoading(false)

	tasks, err := c.store.SearchByTitle(ctx, query)
	if err != nil {
		return c.fail("search", "Failed to search tasks", err)
	}

	c.publish(func(s *State) { s.Tasks = tasks })
	return nil
}

// SortTasksByDueDate republishes only the Tasks view, ordered by due date.
// Tasks without a due date sort last in both directions.
func (c *Coordinator) SortTasksByDueDate(ctx context.Context, ascending bool) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.setLoading(true)
	defer c.setLoading(false)

	tasks, err := c.store.SortedByDueDate(ctx, ascending)
	if err != nil {
		return c.fail("sort", "Failed to sort tasks", err)
	}

	c.publish(func(s *State) { s.Tasks = tasks })
	return nil
}

// ClearErrorMessage clears the LastError signal only.
func (c *Coordinator) ClearErrorMessage() {
	c.publish(func(s *State) { s.LastError = "" })
}

// reconcile re-queries all three views and publishes them as one snapshot.
// On failure the previously published views are left untouched.
func (c *Coordinator) reconcile(ctx context.Context, failMsg string) error {
	all, err := c.store.All(ctx)
	if err != nil {
		return c.fail("reconcile", failMsg, err)
	}
	active, err := c.store.Active(ctx)
	if err != nil {
		return c.fail("reconcile", failMsg, err)
	}
	completed, err := c.store.Completed(ctx)
	if err != nil {
		return c.fail("reconcile", failMsg, err)
	}

	c.publish(func(s *State) {
		s.Tasks = all
		s.ActiveTasks = active
		s.CompletedTasks = completed
		s.LastError = ""
	})
	return nil
}

// rejectEmptyTitle publishes the validation error without ever touching the
// store or the loading signal.
func (c *Coordinator) rejectEmptyTitle() error {
	c.publish(func(s *State) { s.LastError = "Title cannot be empty" })
	return models.Validationf("title cannot be empty")
}

func (c *Coordinator) fail(op, msg string, err error) error {
	c.log.WithField("op", op).WithError(err).Warn("task operation failed")
	c.publish(func(s *State) { s.LastError = fmt.Sprintf("%s: %v", msg, err) })
	return err
}

func (c *Coordinator) setLoading(loading bool) {
	c.publish(func(s *State) { s.Loading = loading })
}

// publish mutates the owned state under lock and fans the new snapshot out
// to all subscribers, replacing any snapshot they have not consumed yet.
func (c *Coordinator) publish(mutate func(*State)) {
	c.stateMu.Lock()
	mutate(&c.state)
	snap := c.state.clone()
	channels := make([]chan State, 0, len(c.subs))
	for _, ch := range c.subs {
		channels = append(channels, ch)
	}
	c.stateMu.Unlock()

	for _, ch := range channels {
		sendLatest(ch, snap)
	}
}

func sendLatest(ch chan State, snap State) {
	for {
		select {
		case ch <- snap:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}
