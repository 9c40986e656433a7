package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"taskboard/internal/domain"
	"taskboard/internal/notify"
	"taskboard/internal/repository"
)

// Notifier is the event fan-out collaborator invoked after a
// notification-worthy write succeeds. Services own the decision of whether
// an event is notification-worthy at all.
type Notifier interface {
	Notify(ctx context.Context, ev notify.Event) error
	BroadcastComment(taskID int64)
}

// TaskService coordinates task CRUD and the assignment notifications it triggers.
type TaskService interface {
	Create(ctx context.Context, actorID, projectID int64, title, description string, assignedTo *int64) (*domain.Task, error)
	Get(ctx context.Context, actorID, id int64) (*domain.Task, error)
	ListByProject(ctx context.Context, actorID, projectID int64) ([]domain.Task, error)
	Update(ctx context.Context, actorID, id int64, title, description string, status domain.TaskStatus, assignedTo *int64) (*domain.Task, error)
	UpdateStatus(ctx context.Context, actorID, id int64, status domain.TaskStatus) error
	Delete(ctx context.Context, actorID, id int64) error
}

type taskService struct {
	tasks      repository.TaskRepository
	projects   repository.ProjectRepository
	activities repository.ActivityRepository
	notifier   Notifier
	logger     *logrus.Logger
}

func NewTaskService(
	tasks repository.TaskRepository,
	projects repository.ProjectRepository,
	activities repository.ActivityRepository,
	notifier Notifier,
	logger *logrus.Logger,
) TaskService {
	return &taskService{
		tasks:      tasks,
		projects:   projects,
		activities: activities,
		notifier:   notifier,
		logger:     logger,
	}
}

func validStatus(status domain.TaskStatus) bool {
	switch status {
	case domain.TaskStatusTodo, domain.TaskStatusInProgress, domain.TaskStatusDone:
		return true
	}
	return false
}

func (s *taskService) Create(ctx context.Context, actorID, projectID int64, title, description string, assignedTo *int64) (*domain.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errors.New("task title is required")
	}

	project, err := s.requireMember(ctx, actorID, projectID)
	if err != nil {
		return nil, err
	}
	if assignedTo != nil {
		isMember, err := s.projects.IsMember(ctx, projectID, *assignedTo)
		if err != nil {
			return nil, err
		}
		if !isMember {
			return nil, errors.New("assignee is not a project member")
		}
	}

	task := &domain.Task{
		ProjectID:   projectID,
		Title:       title,
		Description: strings.TrimSpace(description),
		Status:      domain.TaskStatusTodo,
		AssignedTo:  assignedTo,
		CreatedBy:   actorID,
	}
	if _, err := s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}

	s.logActivity(ctx, projectID, actorID, "created a task", title)

	if assignedTo != nil {
		s.notifyAssignment(ctx, actorID, task, project.Name)
	}
	return task, nil
}

func (s *taskService) Get(ctx context.Context, actorID, id int64) (*domain.Task, error) {
	task, err := s.tasks.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireMember(ctx, actorID, task.ProjectID); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *taskService) ListByProject(ctx context.Context, actorID, projectID int64) ([]domain.Task, error) {
	if _, err := s.requireMember(ctx, actorID, projectID); err != nil {
		return nil, err
	}
	return s.tasks.ListByProject(ctx, projectID)
}

func (s *taskService) Update(ctx context.Context, actorID, id int64, title, description string, status domain.TaskStatus, assignedTo *int64) (*domain.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errors.New("task title is required")
	}
	if !validStatus(status) {
		return nil, fmt.Errorf("invalid task status %q", status)
	}

	task, err := s.tasks.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	project, err := s.requireMember(ctx, actorID, task.ProjectID)
	if err != nil {
		return nil, err
	}

	reassigned := assignedTo != nil && (task.AssignedTo == nil || *task.AssignedTo != *assignedTo)

	task.Title = title
	task.Description = strings.TrimSpace(description)
	task.Status = status
	task.AssignedTo = assignedTo
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, err
	}

	s.logActivity(ctx, task.ProjectID, actorID, "updated a task", fmt.Sprintf("%s (%s)", title, status))

	if reassigned {
		s.notifyAssignment(ctx, actorID, task, project.Name)
	}
	return task, nil
}

func (s *taskService) UpdateStatus(ctx context.Context, actorID, id int64, status domain.TaskStatus) error {
	if !validStatus(status) {
		return fmt.Errorf("invalid task status %q", status)
	}

	task, err := s.tasks.Get(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.requireMember(ctx, actorID, task.ProjectID); err != nil {
		return err
	}
	if err := s.tasks.UpdateStatus(ctx, id, status); err != nil {
		return err
	}

	s.logActivity(ctx, task.ProjectID, actorID, "moved a task", fmt.Sprintf("%s to %s", task.Title, status))
	return nil
}

func (s *taskService) Delete(ctx context.Context, actorID, id int64) error {
	task, err := s.tasks.Get(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.requireMember(ctx, actorID, task.ProjectID); err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, id); err != nil {
		return err
	}

	s.logActivity(ctx, task.ProjectID, actorID, "deleted a task", task.Title)
	return nil
}

// notifyAssignment fans out an assignment event. The task write has already
// succeeded, so a notify failure is degraded and logged, never propagated.
func (s *taskService) notifyAssignment(ctx context.Context, actorID int64, task *domain.Task, projectName string) {
	err := s.notifier.Notify(ctx, notify.Event{
		Kind:        domain.NotificationAssignment,
		RecipientID: *task.AssignedTo,
		ActorID:     actorID,
		Message:     fmt.Sprintf("You have been assigned a new task: %s", task.Title),
		Link:        fmt.Sprintf("/tasks/%d", task.ID),
		TaskID:      task.ID,
		TaskTitle:   task.Title,
		ProjectName: projectName,
	})
	if err != nil {
		s.logger.WithError(err).WithField("task", task.ID).Warn("assignment notification failed")
	}
}

func (s *taskService) requireMember(ctx context.Context, actorID, projectID int64) (*domain.Project, error) {
	project, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	isMember, err := s.projects.IsMember(ctx, projectID, actorID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, ErrNotProjectMember
	}
	return project, nil
}

func (s *taskService) logActivity(ctx context.Context, projectID, userID int64, action, details string) {
	activity := &domain.Activity{
		ProjectID: projectID,
		UserID:    userID,
		Action:    action,
		Details:   details,
	}
	if err := s.activities.Create(ctx, activity); err != nil {
		s.logger.WithError(err).WithField("project", projectID).Warn("record activity failed")
	}
}
