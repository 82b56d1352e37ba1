package board

import "context"

// Level classifies a notification.
type Level string

// Level values.
const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// MessageTaskMoved identifies the drop success message.
const MessageTaskMoved = "task_moved"

// Notification is one user-facing message emitted by the controller.
type Notification struct {
	Level     Level
	MessageID string
	Message   string
	TaskID    string
	ColumnID  string
}

// Notifier receives controller notifications.
type Notifier interface {
	Notify(context.Context, Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(context.Context, Notification)

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, n Notification) {
	f(ctx, n)
}

// Notifiers fans one notification out to several sinks in order.
type Notifiers []Notifier

// Notify delivers n to every non-nil notifier.
func (ns Notifiers) Notify(ctx context.Context, n Notification) {
	for _, notifier := range ns {
		if notifier != nil {
			notifier.Notify(ctx, n)
		}
	}
}

// Localizer renders a message id with template data in the active language.
type Localizer interface {
	Localize(messageID string, data map[string]any) string
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Notification) {}
