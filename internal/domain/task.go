package domain

import (
	"slices"
	"strings"
	"time"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

var validPriorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// Priorities returns the accepted priority values in ascending order.
func Priorities() []Priority {
	return append([]Priority(nil), validPriorities...)
}

// Built-in column ids installed by the seed.
const (
	StatusTodo       = "todo"
	StatusInProgress = "in-progress"
	StatusDone       = "done"
)

const (
	MinProgress = 0
	MaxProgress = 100
)

type Assignee struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Priority    Priority  `json:"priority"`
	Assignee    Assignee  `json:"assignee"`
	Progress    int       `json:"progress"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type TaskInput struct {
	ID          string
	Title       string
	Description string
	Status      string
	Priority    Priority
	Assignee    Assignee
	Progress    int
}

func NewTask(in TaskInput, now time.Time) (Task, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Status = strings.TrimSpace(in.Status)

	if in.ID == "" {
		return Task{}, ErrInvalidID
	}
	if in.Title == "" {
		return Task{}, ErrInvalidTitle
	}
	if in.Status == "" {
		in.Status = StatusTodo
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	if !slices.Contains(validPriorities, in.Priority) {
		return Task{}, ErrInvalidPriority
	}
	if err := validateProgress(in.Progress); err != nil {
		return Task{}, err
	}

	return Task{
		ID:          in.ID,
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		Assignee:    normalizeAssignee(in.Assignee),
		Progress:    in.Progress,
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}, nil
}

func (t *Task) Rename(title string, now time.Time) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrInvalidTitle
	}
	t.Title = title
	t.touch(now)
	return nil
}

func (t *Task) SetDescription(description string, now time.Time) {
	t.Description = strings.TrimSpace(description)
	t.touch(now)
}

func (t *Task) SetPriority(priority Priority, now time.Time) error {
	if !slices.Contains(validPriorities, priority) {
		return ErrInvalidPriority
	}
	t.Priority = priority
	t.touch(now)
	return nil
}

func (t *Task) SetProgress(progress int, now time.Time) error {
	if err := validateProgress(progress); err != nil {
		return err
	}
	t.Progress = progress
	t.touch(now)
	return nil
}

func (t *Task) Assign(assignee Assignee, now time.Time) {
	t.Assignee = normalizeAssignee(assignee)
	t.touch(now)
}

// Move sets the status column. The caller checks that the column exists.
func (t *Task) Move(status string, now time.Time) error {
	status = strings.TrimSpace(status)
	if status == "" {
		return ErrUnknownColumn
	}
	t.Status = status
	t.touch(now)
	return nil
}

// touch advances UpdatedAt without ever moving it backwards.
func (t *Task) touch(now time.Time) {
	now = now.UTC()
	if now.Before(t.UpdatedAt) {
		return
	}
	t.UpdatedAt = now
}

func validateProgress(progress int) error {
	if progress < MinProgress || progress > MaxProgress {
		return ErrInvalidProgress
	}
	return nil
}

// ParsePriority normalizes raw user input into a priority value.
func ParsePriority(raw string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(raw)))
	if p == "" {
		return PriorityMedium, nil
	}
	if !slices.Contains(validPriorities, p) {
		return "", ErrInvalidPriority
	}
	return p, nil
}

func normalizeAssignee(a Assignee) Assignee {
	a.Name = strings.TrimSpace(a.Name)
	a.Avatar = strings.TrimSpace(a.Avatar)
	if a.Name == "" {
		return UnassignedAssignee()
	}
	if a.Avatar == "" {
		a.Avatar = AvatarURL(a.Name)
	}
	return a
}
