package common

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/evanschultz/taskflow/internal/app"
	"github.com/evanschultz/taskflow/internal/domain"
	"github.com/evanschultz/taskflow/internal/report"
)

// AppServiceAdapter maps transport contracts onto app.Service board APIs.
type AppServiceAdapter struct {
	service *app.Service
	actor   domain.Assignee
}

var _ BoardService = (*AppServiceAdapter)(nil)

// NewAppServiceAdapter builds one common adapter over an app.Service instance.
// actor is credited for recorded activity entries.
func NewAppServiceAdapter(service *app.Service, actor domain.Assignee) *AppServiceAdapter {
	if strings.TrimSpace(actor.Name) == "" {
		actor = domain.Assignee{Name: "TaskFlow", Avatar: domain.AvatarURL("taskflow")}
	}
	return &AppServiceAdapter{service: service, actor: actor}
}

// Board resolves the full board with per-column task lists and a summary.
func (a *AppServiceAdapter) Board(ctx context.Context) (BoardView, error) {
	if err := a.ready(); err != nil {
		return BoardView{}, err
	}
	snap, err := a.service.Snapshot(ctx)
	if err != nil {
		return BoardView{}, mapAppError("get board", err)
	}
	hash, err := computeStateHash(snap)
	if err != nil {
		return BoardView{}, err
	}
	columns := make([]ColumnView, 0, len(snap.Columns))
	for _, column := range snap.Columns {
		tasks := snap.TasksByStatus(column.ID)
		if tasks == nil {
			tasks = []domain.Task{}
		}
		columns = append(columns, ColumnView{Column: column, Tasks: tasks})
	}
	return BoardView{
		CapturedAt: snap.ExportedAt,
		StateHash:  hash,
		Columns:    columns,
		Summary:    report.Summarize(snap.Tasks, snap.ExportedAt),
	}, nil
}

// ListTasks lists every task in store order.
func (a *AppServiceAdapter) ListTasks(ctx context.Context) ([]domain.Task, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	tasks, err := a.service.ListTasks(ctx)
	if err != nil {
		return nil, mapAppError("list tasks", err)
	}
	return tasks, nil
}

// GetTask resolves one task by id.
func (a *AppServiceAdapter) GetTask(ctx context.Context, id string) (domain.Task, error) {
	if err := a.ready(); err != nil {
		return domain.Task{}, err
	}
	id, err := requireID(id)
	if err != nil {
		return domain.Task{}, err
	}
	task, err := a.service.GetTask(ctx, id)
	if err != nil {
		return domain.Task{}, mapAppError("get task", err)
	}
	return task, nil
}

// CreateTask creates one task in the default column.
func (a *AppServiceAdapter) CreateTask(ctx context.Context, in CreateTaskRequest) (domain.Task, error) {
	if err := a.ready(); err != nil {
		return domain.Task{}, err
	}
	priority, err := domain.ParsePriority(in.Priority)
	if err != nil {
		return domain.Task{}, mapAppError("create task", err)
	}
	task, err := a.service.CreateTask(ctx, app.CreateTaskInput{
		Title:       in.Title,
		Description: in.Description,
		Priority:    priority,
		Assignee:    assigneeFromName(in.Assignee),
	})
	if err != nil {
		return domain.Task{}, mapAppError("create task", err)
	}
	return task, nil
}

// UpdateTask applies one task patch.
func (a *AppServiceAdapter) UpdateTask(ctx context.Context, in UpdateTaskRequest) (domain.Task, error) {
	if err := a.ready(); err != nil {
		return domain.Task{}, err
	}
	id, err := requireID(in.ID)
	if err != nil {
		return domain.Task{}, err
	}
	patch := app.UpdateTaskInput{
		ID:          id,
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Progress:    in.Progress,
	}
	if in.Priority != nil {
		if strings.TrimSpace(*in.Priority) == "" {
			return domain.Task{}, fmt.Errorf("update task: priority is empty: %w", ErrInvalidRequest)
		}
		priority, err := domain.ParsePriority(*in.Priority)
		if err != nil {
			return domain.Task{}, mapAppError("update task", err)
		}
		patch.Priority = &priority
	}
	if in.Assignee != nil {
		assignee := assigneeFromName(*in.Assignee)
		patch.Assignee = &assignee
	}
	task, err := a.service.UpdateTask(ctx, patch)
	if err != nil {
		return domain.Task{}, mapAppError("update task", err)
	}
	return task, nil
}

// MoveTask reassigns one task to another column.
func (a *AppServiceAdapter) MoveTask(ctx context.Context, in MoveTaskRequest) (domain.Task, error) {
	if err := a.ready(); err != nil {
		return domain.Task{}, err
	}
	id, err := requireID(in.ID)
	if err != nil {
		return domain.Task{}, err
	}
	if strings.TrimSpace(in.Status) == "" {
		return domain.Task{}, fmt.Errorf("move task: status is required: %w", ErrInvalidRequest)
	}
	task, err := a.service.ReassignStatus(ctx, id, in.Status)
	if err != nil {
		return domain.Task{}, mapAppError("move task", err)
	}
	return task, nil
}

// DeleteTask removes one task. Unknown ids succeed.
func (a *AppServiceAdapter) DeleteTask(ctx context.Context, id string) error {
	if err := a.ready(); err != nil {
		return err
	}
	id, err := requireID(id)
	if err != nil {
		return err
	}
	return mapAppError("delete task", a.service.DeleteTask(ctx, id))
}

// ListColumns lists columns in display order.
func (a *AppServiceAdapter) ListColumns(ctx context.Context) ([]domain.Column, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	columns, err := a.service.ListColumns(ctx)
	if err != nil {
		return nil, mapAppError("list columns", err)
	}
	return columns, nil
}

// CreateColumn appends one column after the existing ones.
func (a *AppServiceAdapter) CreateColumn(ctx context.Context, in CreateColumnRequest) (domain.Column, error) {
	if err := a.ready(); err != nil {
		return domain.Column{}, err
	}
	column, err := a.service.CreateColumn(ctx, in.Title, in.Color)
	if err != nil {
		return domain.Column{}, mapAppError("create column", err)
	}
	return column, nil
}

// Summary computes the analytics summary over the current tasks.
func (a *AppServiceAdapter) Summary(ctx context.Context) (report.Summary, error) {
	if err := a.ready(); err != nil {
		return report.Summary{}, err
	}
	snap, err := a.service.Snapshot(ctx)
	if err != nil {
		return report.Summary{}, mapAppError("summary", err)
	}
	return report.Summarize(snap.Tasks, snap.ExportedAt), nil
}

// ListActivity returns the recorded or synthesized activity feed, newest first.
func (a *AppServiceAdapter) ListActivity(ctx context.Context, in ListActivityRequest) (ActivityFeed, error) {
	if err := a.ready(); err != nil {
		return ActivityFeed{}, err
	}
	source, err := report.ParseSource(in.Source)
	if err != nil {
		return ActivityFeed{}, fmt.Errorf("list activity: %w", errors.Join(ErrInvalidRequest, err))
	}
	if in.Limit < 0 {
		return ActivityFeed{}, fmt.Errorf("list activity: limit must be >= 0: %w", ErrInvalidRequest)
	}

	var entries []report.Entry
	switch source {
	case report.SourceSynthesized:
		tasks, err := a.service.ListTasks(ctx)
		if err != nil {
			return ActivityFeed{}, mapAppError("list activity", err)
		}
		entries = report.SynthesizeActivity(tasks)
	default:
		events, err := a.service.ListChangeEvents(ctx, in.Limit)
		if err != nil {
			return ActivityFeed{}, mapAppError("list activity", err)
		}
		columns, err := a.service.ListColumns(ctx)
		if err != nil {
			return ActivityFeed{}, mapAppError("list activity", err)
		}
		entries = report.FromChangeEvents(events, columns, a.actor)
	}
	if in.Limit > 0 && len(entries) > in.Limit {
		entries = entries[:in.Limit]
	}
	if entries == nil {
		entries = []report.Entry{}
	}
	return ActivityFeed{
		Source:  string(source),
		Stats:   report.ActivityStats(entries),
		Entries: entries,
	}, nil
}

func (a *AppServiceAdapter) ready() error {
	if a == nil || a.service == nil {
		return errors.New("app service adapter is not configured")
	}
	return nil
}

func requireID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("id is required: %w", ErrInvalidRequest)
	}
	return id, nil
}

// assigneeFromName resolves a roster member by name, falling back to a generated avatar.
func assigneeFromName(name string) domain.Assignee {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.UnassignedAssignee()
	}
	for _, member := range domain.AssigneeRoster() {
		if strings.EqualFold(member.Name, name) {
			return member
		}
	}
	return domain.Assignee{Name: name, Avatar: domain.AvatarURL(name)}
}

// computeStateHash returns a deterministic hash of the board content, ignoring the capture time.
func computeStateHash(snap app.Snapshot) (string, error) {
	payload := struct {
		Columns []domain.Column `json:"columns"`
		Tasks   []domain.Task   `json:"tasks"`
	}{
		Columns: snap.Columns,
		Tasks:   snap.Tasks,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal board payload: %w", err)
	}
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:]), nil
}

// mapAppError maps app/domain errors into transport-layer error sentinels.
func mapAppError(operation string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, app.ErrNotFound):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrNotFound, err))
	case domain.IsValidation(err), errors.Is(err, ErrInvalidRequest):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrInvalidRequest, err))
	default:
		return fmt.Errorf("%s: %w", operation, err)
	}
}
