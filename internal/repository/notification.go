package repository

import (
	"context"

	"taskboard/internal/domain"
)

// NotificationRepository is the durable record of notifications per user.
//
// MarkRead is idempotent and silently ignores unknown ids: callers only care
// that the flag ends up set, and a stale id from an already-dismissed panel
// is not an error condition.
type NotificationRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, notification *domain.Notification) (int64, error)
	ListRecent(ctx context.Context, userID int64, limit int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id int64) error
	CountUnread(ctx context.Context, userID int64) (int64, error)
}

// ActivityRepository records the per-project audit feed.
type ActivityRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, activity *domain.Activity) error
	ListByProject(ctx context.Context, projectID int64, limit int) ([]domain.Activity, error)
}
