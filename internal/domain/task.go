package domain

import "time"

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusDone       TaskStatus = "done"
)

// Task represents a unit of work tracked inside a project.
type Task struct {
	ID          int64
	ProjectID   int64
	Title       string
	Description string
	Status      TaskStatus
	AssignedTo  *int64
	CreatedBy   int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
