package handlers

import (
	"context"
	"taskcraft/internal/models/task"
	"taskcraft/internal/service"
	"time"

	"github.com/google/uuid"
)

type Service interface {
	HealthCheck(ctx context.Context) error
	Now() time.Time
	Create(ctx context.Context, in service.CreateInput) (*task.Task, error)
	List(ctx context.Context, params service.ListParams) (*service.TaskPage, error)
	Get(ctx context.Context, id uuid.UUID) (*task.Task, error)
	Update(ctx context.Context, id uuid.UUID, options ...task.Option) (*task.Task, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Done(ctx context.Context, id uuid.UUID) (*task.Task, error)
	Undo(ctx context.Context, id uuid.UUID) (*task.Task, error)
	Completed(ctx context.Context) ([]*task.Task, error)
	Overdue(ctx context.Context) ([]*task.Task, error)
	Stats(ctx context.Context) (*service.Stats, error)
}

var _ Service = (*service.TaskService)(nil)
