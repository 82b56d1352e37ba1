package app

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/evanschultz/taskflow/internal/domain"
)

// SnapshotVersion defines a package constant value.
const SnapshotVersion = "taskflow.snapshot.v1"

// Snapshot is a read-only copy of the board handed to derived views and exporters.
type Snapshot struct {
	Version    string          `json:"version"`
	ExportedAt time.Time       `json:"exported_at"`
	Columns    []domain.Column `json:"columns"`
	Tasks      []domain.Task   `json:"tasks"`
}

// TasksByStatus returns the tasks whose status matches one column id, in store order.
func (s Snapshot) TasksByStatus(status string) []domain.Task {
	out := make([]domain.Task, 0, len(s.Tasks))
	for _, task := range s.Tasks {
		if task.Status == status {
			out = append(out, task)
		}
	}
	return out
}

// Column looks up one column by id.
func (s Snapshot) Column(id string) (domain.Column, bool) {
	for _, column := range s.Columns {
		if column.ID == id {
			return column, true
		}
	}
	return domain.Column{}, false
}

// Validate checks identifiers, timestamps and status references.
func (s *Snapshot) Validate() error {
	if s.Version != "" && s.Version != SnapshotVersion {
		return fmt.Errorf("unsupported snapshot version: %q: %w", s.Version, ErrInvalidSnapshot)
	}

	columnIDs := map[string]struct{}{}
	for i, c := range s.Columns {
		if strings.TrimSpace(c.ID) == "" {
			return fmt.Errorf("columns[%d].id is required: %w", i, ErrInvalidSnapshot)
		}
		if strings.TrimSpace(c.Title) == "" {
			return fmt.Errorf("columns[%d].title is required: %w", i, ErrInvalidSnapshot)
		}
		if _, exists := columnIDs[c.ID]; exists {
			return fmt.Errorf("duplicate column id: %q: %w", c.ID, ErrInvalidSnapshot)
		}
		columnIDs[c.ID] = struct{}{}
	}

	taskIDs := map[string]struct{}{}
	for i, t := range s.Tasks {
		if strings.TrimSpace(t.ID) == "" {
			return fmt.Errorf("tasks[%d].id is required: %w", i, ErrInvalidSnapshot)
		}
		if strings.TrimSpace(t.Title) == "" {
			return fmt.Errorf("tasks[%d].title is required: %w", i, ErrInvalidSnapshot)
		}
		if _, exists := taskIDs[t.ID]; exists {
			return fmt.Errorf("duplicate task id: %q: %w", t.ID, ErrInvalidSnapshot)
		}
		if _, ok := columnIDs[t.Status]; !ok {
			return fmt.Errorf("tasks[%d] references unknown status %q: %w", i, t.Status, ErrInvalidSnapshot)
		}
		if t.Progress < domain.MinProgress || t.Progress > domain.MaxProgress {
			return fmt.Errorf("tasks[%d].progress out of range: %w", i, ErrInvalidSnapshot)
		}
		if t.CreatedAt.IsZero() || t.UpdatedAt.IsZero() || t.UpdatedAt.Before(t.CreatedAt) {
			return fmt.Errorf("tasks[%d] timestamps are invalid: %w", i, ErrInvalidSnapshot)
		}
		taskIDs[t.ID] = struct{}{}
	}
	return nil
}

// ImportSnapshot loads a snapshot into an empty store in place of the seed data.
func (s *Service) ImportSnapshot(ctx context.Context, snap Snapshot) error {
	var changed bool
	defer s.lockWrites(ctx, &changed)()

	if err := snap.Validate(); err != nil {
		return err
	}
	columns, err := s.repo.ListColumns(ctx)
	if err != nil {
		return err
	}
	tasks, err := s.repo.ListTasks(ctx)
	if err != nil {
		return err
	}
	if len(columns) > 0 || len(tasks) > 0 {
		return fmt.Errorf("import into a non-empty board: %w", ErrInvalidSnapshot)
	}

	ordered := slices.Clone(snap.Columns)
	for i := range ordered {
		ordered[i].Seq = int64(i + 1)
		if ordered[i].Gradient == "" {
			ordered[i].Gradient = domain.GradientFor(ordered[i].Color)
		}
		if err := s.repo.CreateColumn(ctx, ordered[i]); err != nil {
			return fmt.Errorf("import column %q: %w", ordered[i].ID, err)
		}
	}
	for _, task := range snap.Tasks {
		task.CreatedAt = task.CreatedAt.UTC()
		task.UpdatedAt = task.UpdatedAt.UTC()
		if err := s.repo.CreateTask(ctx, task); err != nil {
			return fmt.Errorf("import task %q: %w", task.ID, err)
		}
	}
	changed = true
	return nil
}
