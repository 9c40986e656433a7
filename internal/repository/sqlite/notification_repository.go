package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"taskboard/internal/domain"
	"taskboard/internal/repository"
)

const createNotificationsTable = `
CREATE TABLE IF NOT EXISTS notifications (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL REFERENCES users(id),
	type TEXT NOT NULL,
	message TEXT NOT NULL,
	link TEXT NOT NULL DEFAULT '',
	read INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_notifications_user_created
	ON notifications(user_id, created_at DESC);
`

type NotificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) repository.NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createNotificationsTable); err != nil {
		return fmt.Errorf("create notifications table: %w", err)
	}
	return nil
}

func (r *NotificationRepository) Create(ctx context.Context, notification *domain.Notification) (int64, error) {
	if !notification.Type.Valid() {
		return 0, fmt.Errorf("invalid notification type %q", notification.Type)
	}
	notification.CreatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
INSERT INTO notifications (user_id, type, message, link, read, created_at)
VALUES (?, ?, ?, ?, 0, ?)`,
		notification.UserID,
		string(notification.Type),
		notification.Message,
		notification.Link,
		notification.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert notification: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("notification last insert id: %w", err)
	}
	notification.ID = id
	notification.Read = false
	return id, nil
}

// ListRecent returns up to limit notifications for the user, newest first.
func (r *NotificationRepository) ListRecent(ctx context.Context, userID int64, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, type, message, link, read, created_at
FROM notifications
WHERE user_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []domain.Notification
	for rows.Next() {
		var (
			n     domain.Notification
			ntype string
		)
		if err := rows.Scan(&n.ID, &n.UserID, &ntype, &n.Message, &n.Link, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification row: %w", err)
		}
		if n.Type, err = domain.ParseNotificationType(ntype); err != nil {
			return nil, fmt.Errorf("decode notification row: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notification rows: %w", err)
	}
	return notifications, nil
}

// MarkRead flips the read flag. Re-marking a read notification or passing an
// unknown id is a no-op.
func (r *NotificationRepository) MarkRead(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `
UPDATE notifications SET read = 1 WHERE id = ?`,
		id,
	); err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `
SELECT COUNT(1) FROM notifications WHERE user_id = ? AND read = 0`,
		userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return n, nil
}
