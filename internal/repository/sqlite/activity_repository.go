package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"taskboard/internal/domain"
	"taskboard/internal/repository"
)

const createActivitiesTable = `
CREATE TABLE IF NOT EXISTS activities (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id INTEGER NOT NULL,
	user_id INTEGER NOT NULL REFERENCES users(id),
	action TEXT NOT NULL,
	details TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_activities_project_created
	ON activities(project_id, created_at DESC);
`

type ActivityRepository struct {
	db *sql.DB
}

func NewActivityRepository(db *sql.DB) repository.ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createActivitiesTable); err != nil {
		return fmt.Errorf("create activities table: %w", err)
	}
	return nil
}

func (r *ActivityRepository) Create(ctx context.Context, activity *domain.Activity) error {
	activity.CreatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
INSERT INTO activities (project_id, user_id, action, details, created_at)
VALUES (?, ?, ?, ?, ?)`,
		activity.ProjectID,
		activity.UserID,
		activity.Action,
		activity.Details,
		activity.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		activity.ID = id
	}
	return nil
}

func (r *ActivityRepository) ListByProject(ctx context.Context, projectID int64, limit int) ([]domain.Activity, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT a.id, a.project_id, a.user_id, a.action, a.details, a.created_at, u.username
FROM activities a
JOIN users u ON u.id = a.user_id
WHERE a.project_id = ?
ORDER BY a.created_at DESC, a.id DESC
LIMIT ?`,
		projectID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	var activities []domain.Activity
	for rows.Next() {
		var a domain.Activity
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.UserID, &a.Action, &a.Details, &a.CreatedAt, &a.Username); err != nil {
			return nil, fmt.Errorf("scan activity row: %w", err)
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity rows: %w", err)
	}
	return activities, nil
}
