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

// CommentService coordinates task comments and the fan-out they trigger.
type CommentService interface {
	Add(ctx context.Context, actorID, taskID int64, text string) (*domain.Comment, error)
	ListByTask(ctx context.Context, actorID, taskID int64) ([]domain.Comment, error)
}

type commentService struct {
	comments repository.CommentRepository
	tasks    repository.TaskRepository
	projects repository.ProjectRepository
	notifier Notifier
	logger   *logrus.Logger
}

func NewCommentService(
	comments repository.CommentRepository,
	tasks repository.TaskRepository,
	projects repository.ProjectRepository,
	notifier Notifier,
	logger *logrus.Logger,
) CommentService {
	return &commentService{
		comments: comments,
		tasks:    tasks,
		projects: projects,
		notifier: notifier,
		logger:   logger,
	}
}

// Add persists a comment, refreshes every open viewer of the task, and — only
// when the task has an assignee — notifies them. An unassigned task gets the
// room broadcast and nothing else.
func (s *commentService) Add(ctx context.Context, actorID, taskID int64, text string) (*domain.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("comment text is required")
	}

	task, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, actorID, task.ProjectID); err != nil {
		return nil, err
	}

	comment := &domain.Comment{
		TaskID:   taskID,
		AuthorID: actorID,
		Text:     text,
	}
	if _, err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}

	s.notifier.BroadcastComment(taskID)

	if task.AssignedTo != nil {
		err := s.notifier.Notify(ctx, notify.Event{
			Kind:        domain.NotificationComment,
			RecipientID: *task.AssignedTo,
			ActorID:     actorID,
			Message:     "You have a new comment on a task.",
			Link:        fmt.Sprintf("/tasks/%d", taskID),
			TaskID:      taskID,
			TaskTitle:   task.Title,
		})
		if err != nil {
			// The comment itself succeeded; the recipient still has
			// no record to review, which is worth a visible log line.
			s.logger.WithError(err).WithField("task", taskID).Warn("comment notification failed")
		}
	}

	return comment, nil
}

func (s *commentService) ListByTask(ctx context.Context, actorID, taskID int64) ([]domain.Comment, error) {
	task, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, actorID, task.ProjectID); err != nil {
		return nil, err
	}
	return s.comments.ListByTask(ctx, taskID)
}

func (s *commentService) requireMember(ctx context.Context, actorID, projectID int64) error {
	isMember, err := s.projects.IsMember(ctx, projectID, actorID)
	if err != nil {
		return err
	}
	if !isMember {
		return ErrNotProjectMember
	}
	return nil
}
