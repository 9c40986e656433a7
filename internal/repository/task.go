package repository

import (
	"context"

	"taskboard/internal/domain"
)

// TaskRepository exposes persistence operations for Task entities.
type TaskRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, task *domain.Task) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Task, error)
	Update(ctx context.Context, task *domain.Task) error
	UpdateStatus(ctx context.Context, id int64, status domain.TaskStatus) error
	Delete(ctx context.Context, id int64) error
	ListByProject(ctx context.Context, projectID int64) ([]domain.Task, error)
}

// CommentRepository manages task comments.
type CommentRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, comment *domain.Comment) (int64, error)
	ListByTask(ctx context.Context, taskID int64) ([]domain.Comment, error)
}
