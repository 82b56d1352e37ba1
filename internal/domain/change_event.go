package domain

import "time"

// ChangeOperation describes a recorded board mutation.
type ChangeOperation string

// ChangeOperation values used by the local activity ledger.
const (
	ChangeOperationCreate       ChangeOperation = "create"
	ChangeOperationUpdate       ChangeOperation = "update"
	ChangeOperationMove         ChangeOperation = "move"
	ChangeOperationDelete       ChangeOperation = "delete"
	ChangeOperationCreateColumn ChangeOperation = "create_column"
)

// ChangeEvent represents a single append-only activity-log entry written at mutation time.
type ChangeEvent struct {
	ID         int64             `json:"id"`
	TaskID     string            `json:"task_id,omitempty"`
	ColumnID   string            `json:"column_id,omitempty"`
	Operation  ChangeOperation   `json:"operation"`
	Title      string            `json:"title"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}
