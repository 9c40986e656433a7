package repository

import (
	"context"

	"taskboard/internal/domain"
)

// UserRepository defines persistence operations for User entities.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByUsernameOrEmail(ctx context.Context, usernameOrEmail string) (*domain.User, error)
	UpdateProfile(ctx context.Context, id int64, username, email string) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}
