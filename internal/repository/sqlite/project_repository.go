package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"taskboard/internal/domain"
	"taskboard/internal/repository"
)

const (
	createProjectsTable = `
CREATE TABLE IF NOT EXISTS projects (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	created_by INTEGER NOT NULL REFERENCES users(id),
	archived INTEGER NOT NULL DEFAULT 0,
	completed INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`
	createProjectMembersTable = `
CREATE TABLE IF NOT EXISTS project_members (
	project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	user_id INTEGER NOT NULL REFERENCES users(id),
	added_at DATETIME NOT NULL,
	PRIMARY KEY (project_id, user_id)
);
`
)

type ProjectRepository struct {
	db *sql.DB
}

func NewProjectRepository(db *sql.DB) repository.ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createProjectsTable); err != nil {
		return fmt.Errorf("create projects table: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, createProjectMembersTable); err != nil {
		return fmt.Errorf("create project members table: %w", err)
	}
	return nil
}

// Create inserts the project and enrolls the creator as its first member.
func (r *ProjectRepository) Create(ctx context.Context, project *domain.Project) (int64, error) {
	now := time.Now().UTC()
	project.CreatedAt = now
	project.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin project insert: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
INSERT INTO projects (name, description, created_by, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)`,
		project.Name,
		project.Description,
		project.CreatedBy,
		project.CreatedAt,
		project.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert project: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("project last insert id: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO project_members (project_id, user_id, added_at)
VALUES (?, ?, ?)`,
		id, project.CreatedBy, now,
	); err != nil {
		return 0, fmt.Errorf("insert project owner membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit project insert: %w", err)
	}
	project.ID = id
	return id, nil
}

func (r *ProjectRepository) Get(ctx context.Context, id int64) (*domain.Project, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, description, created_by, archived, completed, created_at, updated_at
FROM projects
WHERE id = ?`,
		id,
	)

	var p domain.Project
	if err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.CreatedBy,
		&p.Archived,
		&p.Completed,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("project not found")
		}
		return nil, fmt.Errorf("scan project: %w", err)
	}
	return &p, nil
}

func (r *ProjectRepository) Update(ctx context.Context, id int64, name, description string) error {
	if _, err := r.db.ExecContext(ctx, `
UPDATE projects SET name = ?, description = ?, updated_at = ?
WHERE id = ?`,
		name, description, time.Now().UTC(), id,
	); err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	return nil
}

func (r *ProjectRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}

func (r *ProjectRepository) ListByMember(ctx context.Context, userID int64) ([]domain.Project, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT p.id, p.name, p.description, p.created_by, p.archived, p.completed, p.created_at, p.updated_at
FROM projects p
JOIN project_members m ON m.project_id = p.id
WHERE m.user_id = ?
ORDER BY p.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list projects by member: %w", err)
	}
	defer rows.Close()

	var projects []domain.Project
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.Description,
			&p.CreatedBy,
			&p.Archived,
			&p.Completed,
			&p.CreatedAt,
			&p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan project row: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate project rows: %w", err)
	}
	return projects, nil
}

func (r *ProjectRepository) AddMember(ctx context.Context, projectID, userID int64) error {
	if _, err := r.db.ExecContext(ctx, `
INSERT INTO project_members (project_id, user_id, added_at)
VALUES (?, ?, ?)
ON CONFLICT (project_id, user_id) DO NOTHING`,
		projectID, userID, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("insert project member: %w", err)
	}
	return nil
}

func (r *ProjectRepository) RemoveMember(ctx context.Context, projectID, userID int64) error {
	if _, err := r.db.ExecContext(ctx, `
DELETE FROM project_members WHERE project_id = ? AND user_id = ?`,
		projectID, userID,
	); err != nil {
		return fmt.Errorf("delete project member: %w", err)
	}
	return nil
}

func (r *ProjectRepository) ListMembers(ctx context.Context, projectID int64) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT u.id, u.username, u.email, u.created_at, u.updated_at
FROM users u
JOIN project_members m ON m.user_id = u.id
WHERE m.project_id = ?
ORDER BY m.added_at ASC`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("list project members: %w", err)
	}
	defer rows.Close()

	var members []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan member row: %w", err)
		}
		members = append(members, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate member rows: %w", err)
	}
	return members, nil
}

func (r *ProjectRepository) IsMember(ctx context.Context, projectID, userID int64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
SELECT COUNT(1) FROM project_members WHERE project_id = ? AND user_id = ?`,
		projectID, userID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("count membership: %w", err)
	}
	return n > 0, nil
}

func (r *ProjectRepository) SetArchived(ctx context.Context, id int64, archived bool) error {
	if _, err := r.db.ExecContext(ctx, `
UPDATE projects SET archived = ?, updated_at = ? WHERE id = ?`,
		archived, time.Now().UTC(), id,
	); err != nil {
		return fmt.Errorf("set project archived: %w", err)
	}
	return nil
}

func (r *ProjectRepository) SetCompleted(ctx context.Context, id int64, completed bool) error {
	if _, err := r.db.ExecContext(ctx, `
UPDATE projects SET completed = ?, updated_at = ? WHERE id = ?`,
		completed, time.Now().UTC(), id,
	); err != nil {
		return fmt.Errorf("set project completed: %w", err)
	}
	return nil
}
