package board

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/evanschultz/taskflow/internal/app"
	"github.com/evanschultz/taskflow/internal/domain"
)

// DefaultActivationDistance is the pointer travel required before a press becomes a drag.
const DefaultActivationDistance = 10

// State is the controller's drag state.
type State int

// State values.
const (
	StateIdle State = iota
	StatePressed
	StateDragging
)

// String returns a readable state label.
func (s State) String() string {
	switch s {
	case StatePressed:
		return "pressed"
	case StateDragging:
		return "dragging"
	default:
		return "idle"
	}
}

// Outcome describes how a gesture ended.
type Outcome int

// Outcome values.
const (
	OutcomeNone Outcome = iota
	OutcomeDiscarded
	OutcomeMoved
	OutcomeIgnored
	OutcomeClick
)

// String returns the outcome label used in logs and metrics.
func (o Outcome) String() string {
	switch o {
	case OutcomeDiscarded:
		return "discarded"
	case OutcomeMoved:
		return "moved"
	case OutcomeIgnored:
		return "ignored"
	case OutcomeClick:
		return "click"
	default:
		return "none"
	}
}

// Result reports the end of a gesture.
type Result struct {
	Outcome Outcome
	TaskID  string
	Task    domain.Task
	Column  domain.Column
}

// TaskService is the subset of the board service the controller drives.
type TaskService interface {
	GetTask(context.Context, string) (domain.Task, error)
	GetColumn(context.Context, string) (domain.Column, error)
	ReassignStatus(context.Context, string, string) (domain.Task, error)
}

// Option configures a Controller.
type Option func(*Controller)

// WithActivationDistance sets the pointer travel needed to start a drag.
func WithActivationDistance(distance float64) Option {
	return func(c *Controller) {
		if distance >= 0 {
			c.activation = distance
		}
	}
}

// WithLocalizer renders notification text through l.
func WithLocalizer(l Localizer) Option {
	return func(c *Controller) {
		c.localizer = l
	}
}

// WithOutcomeHook observes every finished gesture.
func WithOutcomeHook(hook func(Outcome)) Option {
	return func(c *Controller) {
		c.onOutcome = hook
	}
}

// Controller turns drag gestures into status reassignments. It is not safe for concurrent use;
// the TUI drives it from its update loop.
type Controller struct {
	svc        TaskService
	notifier   Notifier
	localizer  Localizer
	onOutcome  func(Outcome)
	activation float64

	state     State
	pressedID string
	pressAt   Point
	pointer   Point
	active    domain.Task
}

// NewController constructs a controller in the idle state.
func NewController(svc TaskService, notifier Notifier, opts ...Option) *Controller {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	c := &Controller{
		svc:        svc,
		notifier:   notifier,
		activation: DefaultActivationDistance,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// State returns the current drag state.
func (c *Controller) State() State {
	return c.state
}

// Active returns the dragged task for preview rendering.
func (c *Controller) Active() (domain.Task, bool) {
	if c.state != StateDragging {
		return domain.Task{}, false
	}
	return c.active, true
}

// PressedID returns the task under a pending press or active drag.
func (c *Controller) PressedID() string {
	return c.pressedID
}

// Offset returns the pointer travel since the press.
func (c *Controller) Offset() (dx, dy float64) {
	return c.pointer.X - c.pressAt.X, c.pointer.Y - c.pressAt.Y
}

// Pointer returns the last known pointer position.
func (c *Controller) Pointer() Point {
	return c.pointer
}

// DragStart begins dragging taskID. An unknown task leaves the controller idle.
func (c *Controller) DragStart(ctx context.Context, taskID string) bool {
	taskID = strings.TrimSpace(taskID)
	task, err := c.svc.GetTask(ctx, taskID)
	if err != nil {
		c.reset()
		return false
	}
	c.state = StateDragging
	c.pressedID = task.ID
	c.active = task
	return true
}

// DragEnd drops the active task on targetID. An empty target discards the drag.
func (c *Controller) DragEnd(ctx context.Context, targetID string) (Result, error) {
	if c.state != StateDragging {
		c.reset()
		return Result{Outcome: OutcomeNone}, nil
	}
	task := c.active
	c.reset()

	targetID = strings.TrimSpace(targetID)
	if targetID == "" {
		return c.finish(Result{Outcome: OutcomeDiscarded, TaskID: task.ID, Task: task}), nil
	}
	column, err := c.svc.GetColumn(ctx, targetID)
	if err != nil {
		if errors.Is(err, app.ErrNotFound) {
			return c.finish(Result{Outcome: OutcomeIgnored, TaskID: task.ID, Task: task}), nil
		}
		return c.fail(ctx, task, targetID, err)
	}
	moved, err := c.svc.ReassignStatus(ctx, task.ID, column.ID)
	if err != nil {
		if errors.Is(err, app.ErrNotFound) || errors.Is(err, domain.ErrUnknownColumn) {
			return c.finish(Result{Outcome: OutcomeIgnored, TaskID: task.ID, Task: task}), nil
		}
		return c.fail(ctx, task, column.ID, err)
	}
	c.notifier.Notify(ctx, Notification{
		Level:     LevelSuccess,
		MessageID: MessageTaskMoved,
		Message:   c.movedMessage(column.Title),
		TaskID:    moved.ID,
		ColumnID:  column.ID,
	})
	return c.finish(Result{Outcome: OutcomeMoved, TaskID: moved.ID, Task: moved, Column: column}), nil
}

// PointerDown records a press on taskID without starting a drag.
func (c *Controller) PointerDown(taskID string, at Point) {
	c.reset()
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return
	}
	c.state = StatePressed
	c.pressedID = taskID
	c.pressAt = at
	c.pointer = at
}

// PointerMove tracks the pointer and starts the drag once it travels the activation distance.
// It reports whether a drag is in progress after the move.
func (c *Controller) PointerMove(ctx context.Context, at Point) bool {
	c.pointer = at
	switch c.state {
	case StateDragging:
		return true
	case StatePressed:
		if at.Distance(c.pressAt) < c.activation {
			return false
		}
		pressAt := c.pressAt
		if !c.DragStart(ctx, c.pressedID) {
			return false
		}
		c.pressAt = pressAt
		c.pointer = at
		return true
	default:
		return false
	}
}

// PointerUp ends a gesture. A release before activation reports a click on the pressed task.
func (c *Controller) PointerUp(ctx context.Context, at Point, targetID string) (Result, error) {
	c.pointer = at
	switch c.state {
	case StatePressed:
		taskID := c.pressedID
		c.reset()
		return c.finish(Result{Outcome: OutcomeClick, TaskID: taskID}), nil
	case StateDragging:
		return c.DragEnd(ctx, targetID)
	default:
		return Result{Outcome: OutcomeNone}, nil
	}
}

// Cancel abandons any press or drag.
func (c *Controller) Cancel() {
	if c.state == StateDragging {
		c.reset()
		c.finish(Result{Outcome: OutcomeDiscarded})
		return
	}
	c.reset()
}

func (c *Controller) reset() {
	c.state = StateIdle
	c.pressedID = ""
	c.pressAt = Point{}
	c.active = domain.Task{}
}

func (c *Controller) finish(r Result) Result {
	if c.onOutcome != nil {
		c.onOutcome(r.Outcome)
	}
	return r
}

func (c *Controller) fail(ctx context.Context, task domain.Task, columnID string, err error) (Result, error) {
	c.notifier.Notify(ctx, Notification{
		Level:    LevelError,
		Message:  err.Error(),
		TaskID:   task.ID,
		ColumnID: columnID,
	})
	c.finish(Result{Outcome: OutcomeIgnored, TaskID: task.ID, Task: task})
	return Result{Outcome: OutcomeIgnored, TaskID: task.ID, Task: task}, fmt.Errorf("move task %q: %w", task.ID, err)
}

func (c *Controller) movedMessage(columnTitle string) string {
	if c.localizer != nil {
		if msg := c.localizer.Localize(MessageTaskMoved, map[string]any{"Column": columnTitle}); msg != "" {
			return msg
		}
	}
	return "Task moved to " + columnTitle + "!"
}
