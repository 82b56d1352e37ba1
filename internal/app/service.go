package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/evanschultz/taskflow/internal/domain"
)

// ServiceConfig holds configuration for service.
type ServiceConfig struct {
	DefaultStatus string
	// ChangeLogLimit caps ListChangeEvents when the caller passes a non-positive limit.
	ChangeLogLimit int
	// OnChange observes every recorded change event.
	OnChange func(domain.ChangeEvent)
}

// IDGenerator returns unique identifiers for new entities.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// SnapshotListener receives the board state after every successful mutation.
type SnapshotListener func(Snapshot)

// Service owns the task and column stores.
type Service struct {
	repo           Repository
	idGen          IDGenerator
	clock          Clock
	defaultStatus  string
	changeLogLimit int
	onChange       func(domain.ChangeEvent)

	// writeMu spans each mutation's read, merge, write and record steps.
	writeMu sync.Mutex

	mu        sync.Mutex
	nextSubID int
	listeners map[int]SnapshotListener
}

// NewService constructs a new value for this package.
func NewService(repo Repository, idGen IDGenerator, clock Clock, cfg ServiceConfig) *Service {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = time.Now
	}
	cfg.DefaultStatus = strings.TrimSpace(cfg.DefaultStatus)
	if cfg.DefaultStatus == "" {
		cfg.DefaultStatus = domain.StatusTodo
	}
	if cfg.ChangeLogLimit <= 0 {
		cfg.ChangeLogLimit = 200
	}
	return &Service{
		repo:           repo,
		idGen:          idGen,
		clock:          clock,
		defaultStatus:  cfg.DefaultStatus,
		changeLogLimit: cfg.ChangeLogLimit,
		onChange:       cfg.OnChange,
		listeners:      map[int]SnapshotListener{},
	}
}

// CreateTaskInput holds input values for create task operations.
type CreateTaskInput struct {
	Title       string
	Description string
	Priority    domain.Priority
	Assignee    domain.Assignee
}

// UpdateTaskInput is a patch: nil fields are left untouched.
type UpdateTaskInput struct {
	ID          string
	Title       *string
	Description *string
	Status      *string
	Priority    *domain.Priority
	Assignee    *domain.Assignee
	Progress    *int
}

// CreateTask creates task.
func (s *Service) CreateTask(ctx context.Context, in CreateTaskInput) (domain.Task, error) {
	var changed bool
	defer s.lockWrites(ctx, &changed)()

	now := s.clock()
	task, err := domain.NewTask(domain.TaskInput{
		ID:          s.idGen(),
		Title:       in.Title,
		Description: in.Description,
		Status:      s.defaultStatus,
		Priority:    in.Priority,
		Assignee:    in.Assignee,
		Progress:    0,
	}, now)
	if err != nil {
		return domain.Task{}, err
	}
	if err := s.repo.CreateTask(ctx, task); err != nil {
		return domain.Task{}, err
	}
	s.record(ctx, domain.ChangeEvent{
		TaskID:    task.ID,
		Operation: domain.ChangeOperationCreate,
		Title:     task.Title,
		Metadata:  map[string]string{"priority": string(task.Priority), "status": task.Status},
	}, now)
	changed = true
	return task, nil
}

// UpdateTask merges the set fields of the patch into the stored task.
func (s *Service) UpdateTask(ctx context.Context, in UpdateTaskInput) (domain.Task, error) {
	var changed bool
	defer s.lockWrites(ctx, &changed)()

	task, err := s.repo.GetTask(ctx, strings.TrimSpace(in.ID))
	if err != nil {
		return domain.Task{}, err
	}
	prev := task
	now := s.clock()

	if in.Status != nil && strings.TrimSpace(*in.Status) != task.Status {
		if _, err := s.repo.GetColumn(ctx, strings.TrimSpace(*in.Status)); err != nil {
			if errors.Is(err, ErrNotFound) {
				return domain.Task{}, fmt.Errorf("status %q: %w", *in.Status, domain.ErrUnknownColumn)
			}
			return domain.Task{}, err
		}
	}
	if in.Title != nil {
		if err := task.Rename(*in.Title, now); err != nil {
			return domain.Task{}, err
		}
	}
	if in.Description != nil {
		task.SetDescription(*in.Description, now)
	}
	if in.Priority != nil {
		if err := task.SetPriority(*in.Priority, now); err != nil {
			return domain.Task{}, err
		}
	}
	if in.Progress != nil {
		if err := task.SetProgress(*in.Progress, now); err != nil {
			return domain.Task{}, err
		}
	}
	if in.Assignee != nil {
		task.Assign(*in.Assignee, now)
	}
	if in.Status != nil {
		if err := task.Move(*in.Status, now); err != nil {
			return domain.Task{}, err
		}
	}
	// An empty patch still refreshes the timestamp.
	if task.UpdatedAt.Before(now.UTC()) {
		task.UpdatedAt = now.UTC()
	}

	if err := s.repo.UpdateTask(ctx, task); err != nil {
		return domain.Task{}, err
	}
	s.record(ctx, classifyTaskChange(prev, task), now)
	changed = true
	return task, nil
}

// ReassignStatus moves a task to another column. Unknown columns or ids leave the store untouched.
func (s *Service) ReassignStatus(ctx context.Context, taskID, status string) (domain.Task, error) {
	var changed bool
	defer s.lockWrites(ctx, &changed)()

	status = strings.TrimSpace(status)
	if _, err := s.repo.GetColumn(ctx, status); err != nil {
		if errors.Is(err, ErrNotFound) {
			return domain.Task{}, fmt.Errorf("status %q: %w", status, domain.ErrUnknownColumn)
		}
		return domain.Task{}, err
	}
	task, err := s.repo.GetTask(ctx, strings.TrimSpace(taskID))
	if err != nil {
		return domain.Task{}, err
	}
	from := task.Status
	now := s.clock()
	if err := task.Move(status, now); err != nil {
		return domain.Task{}, err
	}
	if err := s.repo.UpdateTask(ctx, task); err != nil {
		return domain.Task{}, err
	}
	s.record(ctx, domain.ChangeEvent{
		TaskID:    task.ID,
		Operation: domain.ChangeOperationMove,
		Title:     task.Title,
		Metadata:  map[string]string{"from": from, "to": status},
	}, now)
	changed = true
	return task, nil
}

// DeleteTask removes a task. Deleting an unknown id is a no-op.
func (s *Service) DeleteTask(ctx context.Context, taskID string) error {
	var changed bool
	defer s.lockWrites(ctx, &changed)()

	taskID = strings.TrimSpace(taskID)
	task, err := s.repo.GetTask(ctx, taskID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.repo.DeleteTask(ctx, taskID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	s.record(ctx, domain.ChangeEvent{
		TaskID:    task.ID,
		Operation: domain.ChangeOperationDelete,
		Title:     task.Title,
		Metadata:  map[string]string{"status": task.Status},
	}, s.clock())
	changed = true
	return nil
}

// CreateColumn appends a column after the existing ones.
func (s *Service) CreateColumn(ctx context.Context, title, color string) (domain.Column, error) {
	var changed bool
	defer s.lockWrites(ctx, &changed)()

	columns, err := s.repo.ListColumns(ctx)
	if err != nil {
		return domain.Column{}, err
	}
	now := s.clock()
	column, err := domain.NewColumn(s.idGen(), title, color, len(columns), now)
	if err != nil {
		return domain.Column{}, err
	}
	column.Seq = nextSeq(columns)
	if err := s.repo.CreateColumn(ctx, column); err != nil {
		return domain.Column{}, err
	}
	s.record(ctx, domain.ChangeEvent{
		ColumnID:  column.ID,
		Operation: domain.ChangeOperationCreateColumn,
		Title:     column.Title,
		Metadata:  map[string]string{"order": strconv.Itoa(column.Order)},
	}, now)
	changed = true
	return column, nil
}

// GetTask returns one task.
func (s *Service) GetTask(ctx context.Context, taskID string) (domain.Task, error) {
	return s.repo.GetTask(ctx, strings.TrimSpace(taskID))
}

// GetColumn returns one column.
func (s *Service) GetColumn(ctx context.Context, columnID string) (domain.Column, error) {
	return s.repo.GetColumn(ctx, strings.TrimSpace(columnID))
}

// ListTasks lists tasks in creation order.
func (s *Service) ListTasks(ctx context.Context) ([]domain.Task, error) {
	return s.repo.ListTasks(ctx)
}

// ListColumns lists columns in display order.
func (s *Service) ListColumns(ctx context.Context) ([]domain.Column, error) {
	columns, err := s.repo.ListColumns(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(columns, func(a, b domain.Column) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		default:
			return 0
		}
	})
	return columns, nil
}

// ListChangeEvents returns the newest recorded changes first.
func (s *Service) ListChangeEvents(ctx context.Context, limit int) ([]domain.ChangeEvent, error) {
	if limit <= 0 {
		limit = s.changeLogLimit
	}
	return s.repo.ListChangeEvents(ctx, limit)
}

// Snapshot returns the board state at one instant.
func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	columns, err := s.ListColumns(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	tasks, err := s.repo.ListTasks(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: s.clock().UTC(),
		Columns:    columns,
		Tasks:      tasks,
	}, nil
}

// Subscribe registers a listener for post-mutation snapshots and returns its cancel func.
func (s *Service) Subscribe(listener SnapshotListener) func() {
	if listener == nil {
		return func() {}
	}
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.listeners[id] = listener
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// lockWrites serializes one mutation. The returned func releases the lock and then
// publishes a snapshot when the mutation set changed.
func (s *Service) lockWrites(ctx context.Context, changed *bool) func() {
	s.writeMu.Lock()
	return func() {
		s.writeMu.Unlock()
		if *changed {
			s.publish(ctx)
		}
	}
}

// publish delivers the current snapshot to every listener.
func (s *Service) publish(ctx context.Context) {
	s.mu.Lock()
	listeners := make([]SnapshotListener, 0, len(s.listeners))
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		listeners = append(listeners, s.listeners[id])
	}
	s.mu.Unlock()
	if len(listeners) == 0 {
		return
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return
	}
	for _, listener := range listeners {
		listener(snap)
	}
}

// record appends one change event. The log is best effort and never fails a mutation.
func (s *Service) record(ctx context.Context, event domain.ChangeEvent, now time.Time) {
	if event.Operation == "" {
		return
	}
	event.OccurredAt = now.UTC()
	if stored, err := s.repo.AppendChangeEvent(ctx, event); err == nil {
		event = stored
	}
	if s.onChange != nil {
		s.onChange(event)
	}
}

// classifyTaskChange describes an update as a move when only the status changed.
func classifyTaskChange(prev, next domain.Task) domain.ChangeEvent {
	fields := changedTaskFields(prev, next)
	event := domain.ChangeEvent{
		TaskID:    next.ID,
		Operation: domain.ChangeOperationUpdate,
		Title:     next.Title,
		Metadata:  map[string]string{},
	}
	if len(fields) == 1 && fields[0] == "status" {
		event.Operation = domain.ChangeOperationMove
		event.Metadata["from"] = prev.Status
		event.Metadata["to"] = next.Status
		return event
	}
	if len(fields) > 0 {
		event.Metadata["fields"] = strings.Join(fields, ",")
	}
	if slices.Contains(fields, "progress") {
		event.Metadata["progress"] = strconv.Itoa(next.Progress)
	}
	if slices.Contains(fields, "status") {
		event.Metadata["from"] = prev.Status
		event.Metadata["to"] = next.Status
	}
	return event
}

func changedTaskFields(prev, next domain.Task) []string {
	out := make([]string, 0, 6)
	if prev.Title != next.Title {
		out = append(out, "title")
	}
	if prev.Description != next.Description {
		out = append(out, "description")
	}
	if prev.Status != next.Status {
		out = append(out, "status")
	}
	if prev.Priority != next.Priority {
		out = append(out, "priority")
	}
	if prev.Assignee != next.Assignee {
		out = append(out, "assignee")
	}
	if prev.Progress != next.Progress {
		out = append(out, "progress")
	}
	return out
}

func nextSeq(columns []domain.Column) int64 {
	var maxSeq int64
	for _, column := range columns {
		if column.Seq > maxSeq {
			maxSeq = column.Seq
		}
	}
	return maxSeq + 1
}
