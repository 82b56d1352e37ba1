// Package memory provides the process-local task and column store.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/evanschultz/taskflow/internal/app"
	"github.com/evanschultz/taskflow/internal/domain"
)

// Repository keeps the board in maps guarded by one RWMutex. Contents vanish with the process.
type Repository struct {
	mu sync.RWMutex

	columns     map[string]domain.Column
	tasks       map[string]domain.Task
	taskOrder   []string
	events      []domain.ChangeEvent
	nextEventID int64
}

// New constructs an empty repository.
func New() *Repository {
	return &Repository{
		columns: map[string]domain.Column{},
		tasks:   map[string]domain.Task{},
	}
}

// CreateColumn creates column.
func (r *Repository) CreateColumn(_ context.Context, c domain.Column) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.columns[c.ID]; exists {
		return fmt.Errorf("column %q already exists", c.ID)
	}
	r.columns[c.ID] = c
	return nil
}

// GetColumn returns one column.
func (r *Repository) GetColumn(_ context.Context, id string) (domain.Column, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.columns[id]
	if !ok {
		return domain.Column{}, app.ErrNotFound
	}
	return c, nil
}

// ListColumns lists columns ordered by order and insertion sequence.
func (r *Repository) ListColumns(_ context.Context) ([]domain.Column, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := slices.Collect(maps.Values(r.columns))
	slices.SortFunc(out, func(a, b domain.Column) int {
		if a.Less(b) {
			return -1
		}
		if b.Less(a) {
			return 1
		}
		return 0
	})
	return out, nil
}

// CreateTask creates task.
func (r *Repository) CreateTask(_ context.Context, t domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tasks[t.ID]; exists {
		return fmt.Errorf("task %q already exists", t.ID)
	}
	r.tasks[t.ID] = t
	r.taskOrder = append(r.taskOrder, t.ID)
	return nil
}

// UpdateTask replaces one stored task.
func (r *Repository) UpdateTask(_ context.Context, t domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tasks[t.ID]; !exists {
		return app.ErrNotFound
	}
	r.tasks[t.ID] = t
	return nil
}

// GetTask returns one task.
func (r *Repository) GetTask(_ context.Context, id string) (domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[id]
	if !ok {
		return domain.Task{}, app.ErrNotFound
	}
	return t, nil
}

// ListTasks lists tasks in creation order.
func (r *Repository) ListTasks(_ context.Context) ([]domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Task, 0, len(r.taskOrder))
	for _, id := range r.taskOrder {
		out = append(out, r.tasks[id])
	}
	return out, nil
}

// DeleteTask hard-deletes one task.
func (r *Repository) DeleteTask(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[id]; !ok {
		return app.ErrNotFound
	}
	delete(r.tasks, id)
	r.taskOrder = slices.DeleteFunc(r.taskOrder, func(existing string) bool {
		return existing == id
	})
	return nil
}

// AppendChangeEvent stores one event and assigns its id.
func (r *Repository) AppendChangeEvent(_ context.Context, event domain.ChangeEvent) (domain.ChangeEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextEventID++
	event.ID = r.nextEventID
	event.Metadata = maps.Clone(event.Metadata)
	r.events = append(r.events, event)
	return event, nil
}

// ListChangeEvents returns up to limit events, newest first.
func (r *Repository) ListChangeEvents(_ context.Context, limit int) ([]domain.ChangeEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if limit <= 0 || limit > len(r.events) {
		limit = len(r.events)
	}
	out := make([]domain.ChangeEvent, 0, limit)
	for i := len(r.events) - 1; i >= 0 && len(out) < limit; i-- {
		event := r.events[i]
		event.Metadata = maps.Clone(event.Metadata)
		out = append(out, event)
	}
	return out, nil
}

var _ app.Repository = (*Repository)(nil)
