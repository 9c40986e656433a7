package repository

import (
	"context"

	"taskboard/internal/domain"
)

// ProjectRepository exposes persistence operations for Project aggregates.
type ProjectRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, project *domain.Project) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Project, error)
	Update(ctx context.Context, id int64, name, description string) error
	Delete(ctx context.Context, id int64) error
	ListByMember(ctx context.Context, userID int64) ([]domain.Project, error)
	AddMember(ctx context.Context, projectID, userID int64) error
	RemoveMember(ctx context.Context, projectID, userID int64) error
	ListMembers(ctx context.Context, projectID int64) ([]domain.User, error)
	IsMember(ctx context.Context, projectID, userID int64) (bool, error)
	SetArchived(ctx context.Context, id int64, archived bool) error
	SetCompleted(ctx context.Context, id int64, completed bool) error
}
