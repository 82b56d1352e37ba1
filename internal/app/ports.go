package app

import (
	"context"

	"github.com/evanschultz/taskflow/internal/domain"
)

// Repository is the storage port for tasks, columns and the change log.
type Repository interface {
	CreateColumn(context.Context, domain.Column) error
	GetColumn(context.Context, string) (domain.Column, error)
	ListColumns(context.Context) ([]domain.Column, error)

	CreateTask(context.Context, domain.Task) error
	UpdateTask(context.Context, domain.Task) error
	GetTask(context.Context, string) (domain.Task, error)
	ListTasks(context.Context) ([]domain.Task, error)
	DeleteTask(context.Context, string) error

	AppendChangeEvent(context.Context, domain.ChangeEvent) (domain.ChangeEvent, error)
	ListChangeEvents(context.Context, int) ([]domain.ChangeEvent, error)
}
