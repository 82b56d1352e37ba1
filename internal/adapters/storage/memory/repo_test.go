package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/evanschultz/taskflow/internal/app"
	"github.com/evanschultz/taskflow/internal/domain"
)

func TestRepository_TaskLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := New()
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)

	for _, id := range []string{"b", "a", "c"} {
		task, err := domain.NewTask(domain.TaskInput{ID: id, Title: "task " + id}, now)
		if err != nil {
			t.Fatalf("NewTask() error = %v", err)
		}
		if err := repo.CreateTask(ctx, task); err != nil {
			t.Fatalf("CreateTask() error = %v", err)
		}
	}
	tasks, err := repo.ListTasks(ctx)
	if err != nil {
		t.Fatalf("ListTasks() error = %v", err)
	}
	if len(tasks) != 3 || tasks[0].ID != "b" || tasks[1].ID != "a" || tasks[2].ID != "c" {
		t.Fatalf("expected creation order b,a,c, got %#v", tasks)
	}

	updated := tasks[1]
	updated.Progress = 50
	if err := repo.UpdateTask(ctx, updated); err != nil {
		t.Fatalf("UpdateTask() error = %v", err)
	}
	loaded, err := repo.GetTask(ctx, "a")
	if err != nil {
		t.Fatalf("GetTask() error = %v", err)
	}
	if loaded.Progress != 50 {
		t.Fatalf("expected progress 50, got %d", loaded.Progress)
	}

	if err := repo.DeleteTask(ctx, "a"); err != nil {
		t.Fatalf("DeleteTask() error = %v", err)
	}
	if _, err := repo.GetTask(ctx, "a"); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.DeleteTask(ctx, "a"); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	if err := repo.UpdateTask(ctx, loaded); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("expected ErrNotFound updating deleted task, got %v", err)
	}
}

func TestRepository_ListColumnsOrdersByOrderThenSeq(t *testing.T) {
	ctx := context.Background()
	repo := New()
	columns := []domain.Column{
		{ID: "late", Title: "Late", Order: 1, Seq: 3},
		{ID: "first", Title: "First", Order: 0, Seq: 2},
		{ID: "early", Title: "Early", Order: 1, Seq: 1},
	}
	for _, c := range columns {
		if err := repo.CreateColumn(ctx, c); err != nil {
			t.Fatalf("CreateColumn() error = %v", err)
		}
	}
	if err := repo.CreateColumn(ctx, columns[0]); err == nil {
		t.Fatal("expected duplicate column id to fail")
	}
	got, err := repo.ListColumns(ctx)
	if err != nil {
		t.Fatalf("ListColumns() error = %v", err)
	}
	want := []string{"first", "early", "late"}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("column[%d] = %q, want %q", i, got[i].ID, id)
		}
	}
}

func TestRepository_ChangeEventsNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := New()
	for _, title := range []string{"one", "two", "three"} {
		if _, err := repo.AppendChangeEvent(ctx, domain.ChangeEvent{
			TaskID:    title,
			Operation: domain.ChangeOperationCreate,
			Title:     title,
			Metadata:  map[string]string{"k": title},
		}); err != nil {
			t.Fatalf("AppendChangeEvent() error = %v", err)
		}
	}
	events, err := repo.ListChangeEvents(ctx, 2)
	if err != nil {
		t.Fatalf("ListChangeEvents() error = %v", err)
	}
	if len(events) != 2 || events[0].Title != "three" || events[1].Title != "two" {
		t.Fatalf("unexpected events %#v", events)
	}
	if events[0].ID != 3 {
		t.Fatalf("expected id 3, got %d", events[0].ID)
	}
	events[0].Metadata["k"] = "mutated"
	again, _ := repo.ListChangeEvents(ctx, 1)
	if again[0].Metadata["k"] != "three" {
		t.Fatal("expected stored metadata to be isolated from callers")
	}
}

func TestRepository_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	repo := New()
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			task, _ := domain.NewTask(domain.TaskInput{ID: string(rune('a' + i)), Title: "x"}, now)
			_ = repo.CreateTask(ctx, task)
			_, _ = repo.ListTasks(ctx)
		}(i)
	}
	wg.Wait()
	tasks, _ := repo.ListTasks(ctx)
	if len(tasks) != 20 {
		t.Fatalf("expected 20 tasks, got %d", len(tasks))
	}
}
