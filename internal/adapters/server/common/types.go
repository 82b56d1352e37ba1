// Package common provides transport-agnostic server contracts used by HTTP and MCP adapters.
package common

import (
	"context"
	"errors"
	"time"

	"github.com/evanschultz/taskflow/internal/domain"
	"github.com/evanschultz/taskflow/internal/report"
)

// ErrInvalidRequest reports malformed or rejected transport input.
var ErrInvalidRequest = errors.New("invalid request")

// ErrNotFound reports missing transport-visible resources.
var ErrNotFound = errors.New("not found")

// ActivitySourceRecorded selects the append-only change log.
const ActivitySourceRecorded = string(report.SourceRecorded)

// ActivitySourceSynthesized selects the activity view derived from task timestamps.
const ActivitySourceSynthesized = string(report.SourceSynthesized)

// SupportedActivitySources returns all accepted activity source values in canonical order.
func SupportedActivitySources() []string {
	return []string{ActivitySourceRecorded, ActivitySourceSynthesized}
}

// ColumnView is one column with its tasks in display order.
type ColumnView struct {
	domain.Column
	Tasks []domain.Task `json:"tasks"`
}

// BoardView is the board bundle returned to HTTP and MCP callers.
type BoardView struct {
	CapturedAt time.Time      `json:"captured_at"`
	StateHash  string         `json:"state_hash"`
	Columns    []ColumnView   `json:"columns"`
	Summary    report.Summary `json:"summary"`
}

// CreateTaskRequest captures input for new tasks.
type CreateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Priority    string `json:"priority,omitempty"`
	Assignee    string `json:"assignee,omitempty"`
}

// UpdateTaskRequest is a patch; nil fields stay untouched.
type UpdateTaskRequest struct {
	ID          string  `json:"-"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	Assignee    *string `json:"assignee,omitempty"`
	Progress    *int    `json:"progress,omitempty"`
}

// MoveTaskRequest captures one column reassignment.
type MoveTaskRequest struct {
	ID     string `json:"-"`
	Status string `json:"status"`
}

// CreateColumnRequest captures input for new columns.
type CreateColumnRequest struct {
	Title string `json:"title"`
	Color string `json:"color,omitempty"`
}

// ListActivityRequest captures activity query filters.
type ListActivityRequest struct {
	Source string
	Limit  int
}

// ActivityFeed is the activity list plus its counters.
type ActivityFeed struct {
	Source  string         `json:"source"`
	Stats   report.Stats   `json:"stats"`
	Entries []report.Entry `json:"entries"`
}

// BoardService captures the board operations exposed by both transports.
type BoardService interface {
	Board(context.Context) (BoardView, error)
	ListTasks(context.Context) ([]domain.Task, error)
	GetTask(context.Context, string) (domain.Task, error)
	CreateTask(context.Context, CreateTaskRequest) (domain.Task, error)
	UpdateTask(context.Context, UpdateTaskRequest) (domain.Task, error)
	MoveTask(context.Context, MoveTaskRequest) (domain.Task, error)
	DeleteTask(context.Context, string) error
	ListColumns(context.Context) ([]domain.Column, error)
	CreateColumn(context.Context, CreateColumnRequest) (domain.Column, error)
	Summary(context.Context) (report.Summary, error)
	ListActivity(context.Context, ListActivityRequest) (ActivityFeed, error)
}
