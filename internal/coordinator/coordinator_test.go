package coordinator

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"tasktrack/internal/models"
	"tasktrack/internal/store"
)

func setupCoordinator(t *testing.T) (*Coordinator, *store.MemoryStore) {
	t.Helper()
	s := store.NewMemoryStore()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return New(s, logger), s
}

func dueAt(t *testing.T, value string) *time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("bad due date %q: %v", value, err)
	}
	return &parsed
}

// faultyStore wraps a real store and fails selected operations.
type faultyStore struct {
	store.TaskStore
	failUpdate bool
	failInsert bool
	failAll    bool
}

func (f *faultyStore) Insert(ctx context.Context, task *models.Task) (int64, error) {
	if f.failInsert {
		return 0, models.Storagef("disk full")
	}
	return f.TaskStore.Insert(ctx, task)
}

func (f *faultyStore) Update(ctx context.Context, task *models.Task) error {
	if f.failUpdate {
		return models.Storagef("disk full")
	}
	return f.TaskStore.Update(ctx, task)
}

func (f *faultyStore) All(ctx context.Context) ([]models.Task, error) {
	if f.failAll {
		return nil, models.Storagef("disk full")
	}
	return f.TaskStore.All(ctx)
}

func TestAddToggleDeleteScenario(t *testing.T) {
	c, _ := setupCoordinator(t)
	ctx := context.Background()

	if err := c.AddTask(ctx, "Buy milk", "", nil); err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}

	state := c.State()
	if len(state.Tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(state.Tasks))
	}
	if state.Tasks[0].Completed {
		t.Error("expected new task to be active")
	}
	if len(state.ActiveTasks) != 1 || len(state.CompletedTasks) != 0 {
		t.Fatalf("unexpected views: active=%d completed=%d", len(state.ActiveTasks), len(state.CompletedTasks))
	}

	if err := c.ToggleTaskCompletion(ctx, state.Tasks[0]); err != nil {
		t.Fatalf("ToggleTaskCompletion failed: %v", err)
	}
	state = c.State()
	if len(state.CompletedTasks) != 1 || len(state.ActiveTasks) != 0 {
		t.Fatalf("unexpected views after toggle: active=%d completed=%d", len(state.ActiveTasks), len(state.CompletedTasks))
	}

	if err := c.DeleteTask(ctx, state.Tasks[0]); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	state = c.State()
	if len(state.Tasks) != 0 || len(state.ActiveTasks) != 0 || len(state.CompletedTasks) != 0 {
		t.Fatalf("expected all views empty, got %+v", state)
	}
}

func TestAddTask_ValidationGate(t *testing.T) {
	s := store.NewMemoryStore()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	c := New(s, logger)
	ctx := context.Background()

	err := c.AddTask(ctx, "", "x", nil)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !errors.Is(err, models.ErrValidation) {
		t.Errorf("expected validation fault, got %v", err)
	}

	// The store must never have been touched.
	all, _ := s.All(ctx)
	if len(all) != 0 {
		t.Errorf("validation failure reached the store: %d rows", len(all))
	}

	state := c.State()
	if len(state.Tasks) != 0 {
		t.Errorf("expected tasks unchanged, got %d", len(state.Tasks))
	}
	if state.LastError != "Title cannot be empty" {
		t.Errorf("expected title-empty message, got %q", state.LastError)
	}
	if state.Loading {
		t.Error("validation failure must not leave loading set")
	}
}

func TestUpdateTask_ValidationGate(t *testing.T) {
	c, _ := setupCoordinator(t)
	ctx := context.Background()

	c.AddTask(ctx, "Keep me", "", nil)
	task := c.State().Tasks[0]
	task.Title = "   "

	if err := c.UpdateTask(ctx, task); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected validation fault, got %v", err)
	}
	if got := c.State().Tasks[0].Title; got != "Keep me" {
		t.Errorf("expected title unchanged, got %q", got)
	}
}

func TestUpdateTask_ErrorIsolation(t *testing.T) {
	s := store.NewMemoryStore()
	fs := &faultyStore{TaskStore: s}
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	c := New(fs, logger)
	ctx := context.Background()

	c.AddTask(ctx, "Task A", "", nil)
	c.AddTask(ctx, "Task B", "", nil)
	before := c.State()

	fs.failUpdate = true
	task := before.Tasks[0]
	task.Title = "Doomed edit"
	err := c.UpdateTask(ctx, task)
	if !errors.Is(err, models.ErrStorage) {
		t.Fatalf("expected storage fault, got %v", err)
	}

	after := c.State()
	if !reflect.DeepEqual(before.Tasks, after.Tasks) {
		t.Error("Tasks changed after failed update")
	}
	if !reflect.DeepEqual(before.ActiveTasks, after.ActiveTasks) {
		t.Error("ActiveTasks changed after failed update")
	}
	if !reflect.DeepEqual(before.CompletedTasks, after.CompletedTasks) {
		t.Error("CompletedTasks changed after failed update")
	}
	if after.LastError == "" {
		t.Error("expected LastError to be set")
	}
	if after.Loading {
		t.Error("expected loading cleared after failure")
	}
}

func TestErrorClearedByNextSuccess(t *testing.T) {
	s := store.NewMemoryStore()
	fs := &faultyStore{TaskStore: s, failInsert: true}
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	c := New(fs, logger)
	ctx := context.Background()

	if err := c.AddTask(ctx, "Doomed", "", nil); err == nil {
		t.Fatal("expected storage fault")
	}
	if c.State().LastError == "" {
		t.Fatal("expected LastError after failed add")
	}

	fs.failInsert = false
	if err := c.AddTask(ctx, "Fine", "", nil); err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}
	if got := c.State().LastError; got != "" {
		t.Errorf("expected LastError cleared, got %q", got)
	}
}

func TestClearErrorMessage(t *testing.T) {
	c, _ := setupCoordinator(t)

	c.AddTask(context.Background(), "", "", nil)
	if c.State().LastError == "" {
		t.Fatal("expected LastError to be set")
	}

	c.ClearErrorMessage()
	state := c.State()
	if state.LastError != "" {
		t.Errorf("expected LastError cleared, got %q", state.LastError)
	}
}

func TestViewConsistencyAfterMutations(t *testing.T) {
	c, _ := setupCoordinator(t)
	ctx := context.Background()

	c.AddTask(ctx, "one", "", nil)
	c.AddTask(ctx, "two", "", nil)
	c.AddTask(ctx, "three", "", nil)

	state := c.State()
	c.ToggleTaskCompletion(ctx, state.Tasks[1])
	c.DeleteTask(ctx, state.Tasks[2])

	state = c.State()
	ids := make(map[int64]int)
	for _, task := range state.ActiveTasks {
		ids[task.ID]++
	}
	for _, task := range state.CompletedTasks {
		ids[task.ID]++
	}
	if len(ids) != len(state.Tasks) {
		t.Errorf("active ∪ completed has %d ids, all has %d", len(ids), len(state.Tasks))
	}
	for _, task := range state.Tasks {
		if ids[task.ID] != 1 {
			t.Errorf("task %d not in exactly one of active/completed", task.ID)
		}
	}
}

func TestSearchPublishesOnlyTasks(t *testing.T) {
	c, _ := setupCoordinator(t)
	ctx := context.Background()

	c.AddTask(ctx, "Buy milk", "", nil)
	c.AddTask(ctx, "Write report", "", nil)
	state := c.State()
	c.ToggleTaskCompletion(ctx, state.Tasks[0])

	full := c.State()
	if err := c.SearchTasksByTitle(ctx, "milk"); err != nil {
		t.Fatalf("SearchTasksByTitle failed: %v", err)
	}

	filtered := c.State()
	if len(filtered.Tasks) != 1 || filtered.Tasks[0].Title != "Buy milk" {
		t.Fatalf("expected filtered view with one match, got %+v", filtered.Tasks)
	}
	if !reflect.DeepEqual(full.ActiveTasks, filtered.ActiveTasks) {
		t.Error("search must not touch ActiveTasks")
	}
	if !reflect.DeepEqual(full.CompletedTasks, filtered.CompletedTasks) {
		t.Error("search must not touch CompletedTasks")
	}

	// A full reload restores the unfiltered view.
	if err := c.LoadTasks(ctx); err != nil {
		t.Fatalf("LoadTasks failed: %v", err)
	}
	if got := len(c.State().Tasks); got != 2 {
		t.Errorf("expected 2 tasks after reload, got %d", got)
	}
}

func TestSortPublishesOnlyTasks(t *testing.T) {
	c, _ := setupCoordinator(t)
	ctx := context.Background()

	c.AddTask(ctx, "second", "", dueAt(t, "2026-09-02T00:00:00Z"))
	c.AddTask(ctx, "none", "", nil)
	c.AddTask(ctx, "first", "", dueAt(t, "2026-09-01T00:00:00Z"))
	c.AddTask(ctx, "third", "", dueAt(t, "2026-09-03T00:00:00Z"))

	full := c.State()
	if err := c.SortTasksByDueDate(ctx, true); err != nil {
		t.Fatalf("SortTasksByDueDate failed: %v", err)
	}

	state := c.State()
	wantAsc := []string{"first", "second", "third", "none"}
	for i, title := range wantAsc {
		if state.Tasks[i].Title != title {
			t.Errorf("ascending position %d: expected %q, got %q", i, title, state.Tasks[i].Title)
		}
	}
	if !reflect.DeepEqual(full.ActiveTasks, state.ActiveTasks) {
		t.Error("sort must not touch ActiveTasks")
	}

	if err := c.SortTasksByDueDate(ctx, false); err != nil {
		t.Fatalf("SortTasksByDueDate failed: %v", err)
	}
	state = c.State()
	wantDesc := []string{"third", "second", "first", "none"}
	for i, title := range wantDesc {
		if state.Tasks[i].Title != title {
			t.Errorf("descending position %d: expected %q, got %q", i, title, state.Tasks[i].Title)
		}
	}
}

func TestUpdateDeletedTask_SurfacesNotFound(t *testing.T) {
	c, _ := setupCoordinator(t)
	ctx := context.Background()

	c.AddTask(ctx, "Vanishing", "", nil)
	task := c.State().Tasks[0]
	c.DeleteTask(ctx, task)

	task.Title = "Too late"
	err := c.UpdateTask(ctx, task)
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected not-found fault, got %v", err)
	}
	if c.State().LastError == "" {
		t.Error("expected LastError after lost update")
	}
}

func TestConcurrentAddsAreSerialized(t *testing.T) {
	c, _ := setupCoordinator(t)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if err := c.AddTask(ctx, "Task", "", nil); err != nil {
				t.Errorf("AddTask failed: %v", err)
			}
		}()
	}
	wg.Wait()

	state := c.State()
	if len(state.Tasks) != n {
		t.Fatalf("expected %d tasks, got %d", n, len(state.Tasks))
	}
	if len(state.ActiveTasks) != n || len(state.CompletedTasks) != 0 {
		t.Errorf("inconsistent triple: active=%d completed=%d", len(state.ActiveTasks), len(state.CompletedTasks))
	}
	if state.Loading {
		t.Error("expected loading cleared after all operations settled")
	}
}

func TestSubscribeReceivesLatestSnapshot(t *testing.T) {
	c, _ := setupCoordinator(t)
	ctx := context.Background()

	ch, cancel := c.Subscribe()
	defer cancel()

	// The initial snapshot is delivered immediately.
	initial := <-ch
	if len(initial.Tasks) != 0 {
		t.Fatalf("expected empty initial snapshot, got %d tasks", len(initial.Tasks))
	}

	c.AddTask(ctx, "Buy milk", "", nil)

	// The channel holds the newest snapshot only; drain until the settled
	// one (loading false, one task) arrives.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-ch:
			if !snap.Loading && len(snap.Tasks) == 1 {
				if len(snap.ActiveTasks) != 1 || len(snap.CompletedTasks) != 0 {
					t.Fatalf("inconsistent snapshot: %+v", snap)
				}
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for settled snapshot")
		}
	}
}

func TestSubscribeCancelStopsDelivery(t *testing.T) {
	c, _ := setupCoordinator(t)

	ch, cancel := c.Subscribe()
	<-ch
	cancel()

	c.AddTask(context.Background(), "Buy milk", "", nil)

	select {
	case _, ok := <-ch:
		if ok {
			// A snapshot published before cancel may still be buffered;
			// a second receive must find the channel empty.
			select {
			case <-ch:
				t.Error("received snapshot after cancel")
			default:
			}
		}
	default:
	}
}

func TestReconcileFailurePreservesViews(t *testing.T) {
	s := store.NewMemoryStore()
	fs := &faultyStore{TaskStore: s}
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	c := New(fs, logger)
	ctx := context.Background()

	c.AddTask(ctx, "Stable", "", nil)
	before := c.State()

	// The mutation commits but the reconcile read fails: prior views stay.
	fs.failAll = true
	err := c.AddTask(ctx, "Committed but unseen", "", nil)
	if !errors.Is(err, models.ErrStorage) {
		t.Fatalf("expected storage fault, got %v", err)
	}

	after := c.State()
	if !reflect.DeepEqual(before.Tasks, after.Tasks) {
		t.Error("Tasks changed after failed reconcile")
	}
	if after.LastError == "" {
		t.Error("expected LastError after failed reconcile")
	}
}
