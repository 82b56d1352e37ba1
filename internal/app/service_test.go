package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/evanschultz/taskflow/internal/domain"
)

type fakeRepo struct {
	columns   map[string]domain.Column
	tasks     map[string]domain.Task
	taskOrder []string
	events    []domain.ChangeEvent
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		columns: map[string]domain.Column{},
		tasks:   map[string]domain.Task{},
	}
}

func (f *fakeRepo) CreateColumn(_ context.Context, c domain.Column) error {
	f.columns[c.ID] = c
	return nil
}

func (f *fakeRepo) GetColumn(_ context.Context, id string) (domain.Column, error) {
	c, ok := f.columns[id]
	if !ok {
		return domain.Column{}, ErrNotFound
	}
	return c, nil
}

func (f *fakeRepo) ListColumns(_ context.Context) ([]domain.Column, error) {
	out := make([]domain.Column, 0, len(f.columns))
	for _, c := range f.columns {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeRepo) CreateTask(_ context.Context, t domain.Task) error {
	f.tasks[t.ID] = t
	f.taskOrder = append(f.taskOrder, t.ID)
	return nil
}

func (f *fakeRepo) UpdateTask(_ context.Context, t domain.Task) error {
	if _, ok := f.tasks[t.ID]; !ok {
		return ErrNotFound
	}
	f.tasks[t.ID] = t
	return nil
}

func (f *fakeRepo) GetTask(_ context.Context, id string) (domain.Task, error) {
	t, ok := f.tasks[id]
	if !ok {
		return domain.Task{}, ErrNotFound
	}
	return t, nil
}

func (f *fakeRepo) ListTasks(_ context.Context) ([]domain.Task, error) {
	out := make([]domain.Task, 0, len(f.taskOrder))
	for _, id := range f.taskOrder {
		out = append(out, f.tasks[id])
	}
	return out, nil
}

func (f *fakeRepo) DeleteTask(_ context.Context, id string) error {
	if _, ok := f.tasks[id]; !ok {
		return ErrNotFound
	}
	delete(f.tasks, id)
	f.taskOrder = slices.DeleteFunc(f.taskOrder, func(v string) bool { return v == id })
	return nil
}

func (f *fakeRepo) AppendChangeEvent(_ context.Context, event domain.ChangeEvent) (domain.ChangeEvent, error) {
	event.ID = int64(len(f.events) + 1)
	f.events = append(f.events, event)
	return event, nil
}

func (f *fakeRepo) ListChangeEvents(_ context.Context, limit int) ([]domain.ChangeEvent, error) {
	out := make([]domain.ChangeEvent, 0, len(f.events))
	for i := len(f.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.events[i])
	}
	return out, nil
}

// steppingClock advances one minute per call.
func steppingClock(start time.Time) Clock {
	now := start
	return func() time.Time {
		current := now
		now = now.Add(time.Minute)
		return current
	}
}

func newSeededService(t *testing.T) (*Service, *fakeRepo) {
	t.Helper()
	repo := newFakeRepo()
	next := 0
	idGen := func() string {
		next++
		return fmt.Sprintf("id-%d", next)
	}
	svc := NewService(repo, idGen, steppingClock(time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)), ServiceConfig{})
	if err := svc.Seed(context.Background()); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	return svc, repo
}

func TestSeedInstallsColumnsAndTasksOnce(t *testing.T) {
	svc, repo := newSeededService(t)
	if err := svc.Seed(context.Background()); err != nil {
		t.Fatalf("Seed() second call error = %v", err)
	}
	if len(repo.columns) != 3 || len(repo.tasks) != 3 {
		t.Fatalf("expected 3 columns and 3 tasks, got %d and %d", len(repo.columns), len(repo.tasks))
	}
	columns, err := svc.ListColumns(context.Background())
	if err != nil {
		t.Fatalf("ListColumns() error = %v", err)
	}
	got := []string{columns[0].ID, columns[1].ID, columns[2].ID}
	want := []string{"todo", "in-progress", "done"}
	if !slices.Equal(got, want) {
		t.Fatalf("columns = %v, want %v", got, want)
	}
}

func TestCreateTaskDefaults(t *testing.T) {
	svc, repo := newSeededService(t)
	task, err := svc.CreateTask(context.Background(), CreateTaskInput{Title: "New thing", Priority: domain.PriorityLow})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if task.Status != domain.StatusTodo || task.Progress != 0 {
		t.Fatalf("unexpected defaults %#v", task)
	}
	if !task.CreatedAt.Equal(task.UpdatedAt) {
		t.Fatalf("expected created_at == updated_at")
	}
	if task.ID != "id-1" {
		t.Fatalf("unexpected id %q", task.ID)
	}
	if task.Assignee.Name != domain.UnassignedName {
		t.Fatalf("expected unassigned default, got %q", task.Assignee.Name)
	}
	last := repo.events[len(repo.events)-1]
	if last.Operation != domain.ChangeOperationCreate || last.TaskID != task.ID {
		t.Fatalf("expected create event, got %#v", last)
	}
}

func TestCreateTaskRejectsEmptyTitle(t *testing.T) {
	svc, repo := newSeededService(t)
	_, err := svc.CreateTask(context.Background(), CreateTaskInput{Title: "   "})
	if !errors.Is(err, domain.ErrInvalidTitle) {
		t.Fatalf("expected ErrInvalidTitle, got %v", err)
	}
	if len(repo.tasks) != 3 {
		t.Fatalf("expected no task to be stored, got %d", len(repo.tasks))
	}
}

func TestUpdateTaskPatchesFieldsAndKeepsIdentity(t *testing.T) {
	svc, _ := newSeededService(t)
	ctx := context.Background()
	before, err := svc.GetTask(ctx, "2")
	if err != nil {
		t.Fatalf("GetTask() error = %v", err)
	}
	title := "Ship auth"
	progress := 90
	updated, err := svc.UpdateTask(ctx, UpdateTaskInput{ID: "2", Title: &title, Progress: &progress})
	if err != nil {
		t.Fatalf("UpdateTask() error = %v", err)
	}
	if updated.ID != before.ID || !updated.CreatedAt.Equal(before.CreatedAt) {
		t.Fatalf("identity changed: %#v", updated)
	}
	if updated.UpdatedAt.Before(before.UpdatedAt) || updated.UpdatedAt.Equal(before.UpdatedAt) {
		t.Fatalf("expected updated_at to advance from %v, got %v", before.UpdatedAt, updated.UpdatedAt)
	}
	if updated.Title != title || updated.Progress != 90 {
		t.Fatalf("patch not applied: %#v", updated)
	}
	if updated.Description != before.Description || updated.Priority != before.Priority {
		t.Fatalf("unset fields changed: %#v", updated)
	}
}

func TestUpdateTaskValidation(t *testing.T) {
	svc, _ := newSeededService(t)
	ctx := context.Background()
	tooHigh := 150
	if _, err := svc.UpdateTask(ctx, UpdateTaskInput{ID: "1", Progress: &tooHigh}); !errors.Is(err, domain.ErrInvalidProgress) {
		t.Fatalf("expected ErrInvalidProgress, got %v", err)
	}
	unknown := "archive"
	if _, err := svc.UpdateTask(ctx, UpdateTaskInput{ID: "1", Status: &unknown}); !errors.Is(err, domain.ErrUnknownColumn) {
		t.Fatalf("expected ErrUnknownColumn, got %v", err)
	}
	if _, err := svc.UpdateTask(ctx, UpdateTaskInput{ID: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	task, _ := svc.GetTask(ctx, "1")
	if task.Progress != 0 || task.Status != domain.StatusTodo {
		t.Fatalf("rejected updates mutated the task: %#v", task)
	}
}

func TestUpdateTaskStatusOnlyRecordsMove(t *testing.T) {
	svc, repo := newSeededService(t)
	done := domain.StatusDone
	if _, err := svc.UpdateTask(context.Background(), UpdateTaskInput{ID: "1", Status: &done}); err != nil {
		t.Fatalf("UpdateTask() error = %v", err)
	}
	last := repo.events[len(repo.events)-1]
	if last.Operation != domain.ChangeOperationMove || last.Metadata["from"] != "todo" || last.Metadata["to"] != "done" {
		t.Fatalf("unexpected event %#v", last)
	}
}

func TestReassignStatusUnknownColumnDoesNotMutate(t *testing.T) {
	svc, repo := newSeededService(t)
	ctx := context.Background()
	before, _ := svc.GetTask(ctx, "2")
	eventCount := len(repo.events)
	if _, err := svc.ReassignStatus(ctx, "2", "nowhere"); !errors.Is(err, domain.ErrUnknownColumn) {
		t.Fatalf("expected ErrUnknownColumn, got %v", err)
	}
	after, _ := svc.GetTask(ctx, "2")
	if after != before {
		t.Fatalf("task mutated: before %#v after %#v", before, after)
	}
	if len(repo.events) != eventCount {
		t.Fatal("expected no change event for a rejected move")
	}
	if _, err := svc.ReassignStatus(ctx, "missing", domain.StatusDone); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReassignStatusMovesTask(t *testing.T) {
	svc, _ := newSeededService(t)
	ctx := context.Background()
	before, _ := svc.GetTask(ctx, "2")
	moved, err := svc.ReassignStatus(ctx, "2", domain.StatusDone)
	if err != nil {
		t.Fatalf("ReassignStatus() error = %v", err)
	}
	if moved.Status != domain.StatusDone {
		t.Fatalf("expected done, got %q", moved.Status)
	}
	if !moved.UpdatedAt.After(before.UpdatedAt) {
		t.Fatalf("expected updated_at to advance")
	}
}

func TestDeleteTaskIsIdempotent(t *testing.T) {
	svc, repo := newSeededService(t)
	ctx := context.Background()
	if err := svc.DeleteTask(ctx, "3"); err != nil {
		t.Fatalf("DeleteTask() error = %v", err)
	}
	if _, err := svc.GetTask(ctx, "3"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	eventCount := len(repo.events)
	if err := svc.DeleteTask(ctx, "3"); err != nil {
		t.Fatalf("second DeleteTask() error = %v", err)
	}
	if len(repo.events) != eventCount {
		t.Fatal("expected no event for deleting an absent task")
	}
}

func TestCreateColumnAppendsAfterExisting(t *testing.T) {
	svc, _ := newSeededService(t)
	ctx := context.Background()
	column, err := svc.CreateColumn(ctx, "Backlog", "from-purple-500 to-purple-600")
	if err != nil {
		t.Fatalf("CreateColumn() error = %v", err)
	}
	if column.Order != 3 {
		t.Fatalf("expected order 3, got %d", column.Order)
	}
	columns, _ := svc.ListColumns(ctx)
	if columns[len(columns)-1].ID != column.ID {
		t.Fatalf("expected new column last, got %#v", columns)
	}
	if _, err := svc.CreateColumn(ctx, " ", ""); !errors.Is(err, domain.ErrInvalidTitle) {
		t.Fatalf("expected ErrInvalidTitle, got %v", err)
	}
}

func TestCreateColumnTiesKeepInsertionOrder(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, func() string { return fmt.Sprintf("c%d", len(repo.columns)) }, nil, ServiceConfig{})
	ctx := context.Background()
	if err := repo.CreateColumn(ctx, domain.Column{ID: "x", Title: "X", Order: 1, Seq: 1}); err != nil {
		t.Fatalf("CreateColumn() error = %v", err)
	}
	created, err := svc.CreateColumn(ctx, "Y", "")
	if err != nil {
		t.Fatalf("CreateColumn() error = %v", err)
	}
	if created.Order != 1 {
		t.Fatalf("expected order 1, got %d", created.Order)
	}
	columns, _ := svc.ListColumns(ctx)
	if columns[0].ID != "x" || columns[1].ID != created.ID {
		t.Fatalf("expected insertion order on tie, got %#v", columns)
	}
}

// slowReadRepo widens the window between reading and writing a record.
type slowReadRepo struct {
	*fakeRepo
	delay time.Duration
}

func (r *slowReadRepo) GetTask(ctx context.Context, id string) (domain.Task, error) {
	task, err := r.fakeRepo.GetTask(ctx, id)
	time.Sleep(r.delay)
	return task, err
}

func (r *slowReadRepo) ListColumns(ctx context.Context) ([]domain.Column, error) {
	columns, err := r.fakeRepo.ListColumns(ctx)
	time.Sleep(r.delay)
	return columns, err
}

func TestConcurrentPatchesBothLand(t *testing.T) {
	repo := &slowReadRepo{fakeRepo: newFakeRepo(), delay: 20 * time.Millisecond}
	svc := NewService(repo, nil, nil, ServiceConfig{})
	ctx := context.Background()
	if err := svc.Seed(ctx); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}

	title := "renamed"
	progress := 50
	patches := []UpdateTaskInput{
		{ID: "1", Title: &title},
		{ID: "1", Progress: &progress},
	}
	var wg sync.WaitGroup
	errs := make([]error, len(patches))
	for i, patch := range patches {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.UpdateTask(ctx, patch)
		}()
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			t.Fatalf("UpdateTask() error = %v", err)
		}
	}

	got, err := svc.GetTask(ctx, "1")
	if err != nil {
		t.Fatalf("GetTask() error = %v", err)
	}
	if got.Title != "renamed" || got.Progress != 50 {
		t.Fatalf("lost update: title=%q progress=%d", got.Title, got.Progress)
	}
}

func TestConcurrentCreateColumnsGetDistinctOrder(t *testing.T) {
	repo := &slowReadRepo{fakeRepo: newFakeRepo(), delay: 20 * time.Millisecond}
	var idMu sync.Mutex
	next := 0
	svc := NewService(repo, func() string {
		idMu.Lock()
		defer idMu.Unlock()
		next++
		return fmt.Sprintf("col-%d", next)
	}, nil, ServiceConfig{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, title := range []string{"Backlog", "Review"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.CreateColumn(ctx, title, ""); err != nil {
				t.Errorf("CreateColumn(%q) error = %v", title, err)
			}
		}()
	}
	wg.Wait()

	columns, err := svc.ListColumns(ctx)
	if err != nil {
		t.Fatalf("ListColumns() error = %v", err)
	}
	if len(columns) != 2 {
		t.Fatalf("expected 2 columns, got %d", len(columns))
	}
	if columns[0].Order == columns[1].Order || columns[0].Seq == columns[1].Seq {
		t.Fatalf("columns share order or seq: %#v", columns)
	}
}

func TestSubscribeReceivesSnapshots(t *testing.T) {
	svc, _ := newSeededService(t)
	var received []Snapshot
	cancel := svc.Subscribe(func(s Snapshot) {
		received = append(received, s)
	})
	if _, err := svc.CreateTask(context.Background(), CreateTaskInput{Title: "observe"}); err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if len(received) != 1 || len(received[0].Tasks) != 4 {
		t.Fatalf("expected one snapshot with 4 tasks, got %#v", received)
	}
	cancel()
	if err := svc.DeleteTask(context.Background(), "1"); err != nil {
		t.Fatalf("DeleteTask() error = %v", err)
	}
	if len(received) != 1 {
		t.Fatalf("expected no delivery after cancel, got %d", len(received))
	}
}

func TestListChangeEventsDefaultsLimit(t *testing.T) {
	svc, _ := newSeededService(t)
	ctx := context.Background()
	for i := range 3 {
		if _, err := svc.CreateTask(ctx, CreateTaskInput{Title: fmt.Sprintf("t%d", i)}); err != nil {
			t.Fatalf("CreateTask() error = %v", err)
		}
	}
	events, err := svc.ListChangeEvents(ctx, 0)
	if err != nil {
		t.Fatalf("ListChangeEvents() error = %v", err)
	}
	if len(events) != 3 || events[0].Title != "t2" {
		t.Fatalf("unexpected events %#v", events)
	}
}

func TestOnChangeObservesRecordedEvents(t *testing.T) {
	var seen []domain.ChangeEvent
	svc := NewService(newFakeRepo(), func() string { return "c1" }, nil, ServiceConfig{
		OnChange: func(ev domain.ChangeEvent) { seen = append(seen, ev) },
	})
	if _, err := svc.CreateColumn(context.Background(), "Backlog", ""); err != nil {
		t.Fatalf("CreateColumn() error = %v", err)
	}
	if len(seen) != 1 || seen[0].Operation != domain.ChangeOperationCreateColumn || seen[0].ID != 1 {
		t.Fatalf("unexpected observed events %#v", seen)
	}
}
