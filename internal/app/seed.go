package app

import (
	"context"
	"time"

	"github.com/evanschultz/taskflow/internal/domain"
)

// SeedColumns returns the fixed startup columns.
func SeedColumns(now time.Time) []domain.Column {
	now = now.UTC()
	return []domain.Column{
		{
			ID:        domain.StatusTodo,
			Title:     "To Do",
			Color:     "from-slate-500 to-slate-600",
			Gradient:  "from-slate-100 to-slate-200 dark:from-slate-800 dark:to-slate-700",
			Order:     0,
			Seq:       1,
			CreatedAt: now,
		},
		{
			ID:        domain.StatusInProgress,
			Title:     "In Progress",
			Color:     "from-blue-500 to-indigo-600",
			Gradient:  "from-blue-50 to-indigo-100 dark:from-blue-900/20 dark:to-indigo-900/20",
			Order:     1,
			Seq:       2,
			CreatedAt: now,
		},
		{
			ID:        domain.StatusDone,
			Title:     "Done",
			Color:     "from-emerald-500 to-green-600",
			Gradient:  "from-emerald-50 to-green-100 dark:from-emerald-900/20 dark:to-green-900/20",
			Order:     2,
			Seq:       3,
			CreatedAt: now,
		},
	}
}

// SeedTasks returns the fixed startup tasks.
func SeedTasks(now time.Time) []domain.Task {
	now = now.UTC()
	return []domain.Task{
		{
			ID:          "1",
			Title:       "Design Premium Landing Page",
			Description: "Create a stunning, modern landing page with hero section, features showcase, and testimonials",
			Status:      domain.StatusTodo,
			Priority:    domain.PriorityHigh,
			Assignee:    domain.Assignee{Name: "Alice Johnson", Avatar: domain.AvatarURL("alice")},
			Progress:    0,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		{
			ID:          "2",
			Title:       "Implement Advanced Authentication",
			Description: "Set up secure login, registration, 2FA, and password reset with OAuth integration",
			Status:      domain.StatusInProgress,
			Priority:    domain.PriorityHigh,
			Assignee:    domain.Assignee{Name: "Bob Smith", Avatar: domain.AvatarURL("bob")},
			Progress:    75,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		{
			ID:          "3",
			Title:       "API Documentation & Testing",
			Description: "Complete API documentation with interactive examples and comprehensive test coverage",
			Status:      domain.StatusDone,
			Priority:    domain.PriorityMedium,
			Assignee:    domain.Assignee{Name: "Carol Davis", Avatar: domain.AvatarURL("carol")},
			Progress:    100,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}
}

// Seed installs the seed columns and tasks when the board is empty.
func (s *Service) Seed(ctx context.Context) error {
	var changed bool
	defer s.lockWrites(ctx, &changed)()

	columns, err := s.repo.ListColumns(ctx)
	if err != nil {
		return err
	}
	if len(columns) > 0 {
		return nil
	}
	now := s.clock()
	for _, column := range SeedColumns(now) {
		if err := s.repo.CreateColumn(ctx, column); err != nil {
			return err
		}
	}
	for _, task := range SeedTasks(now) {
		if err := s.repo.CreateTask(ctx, task); err != nil {
			return err
		}
	}
	changed = true
	return nil
}
