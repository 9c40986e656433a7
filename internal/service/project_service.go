package service

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"taskboard/internal/domain"
	"taskboard/internal/repository"
)

var (
	// ErrNotProjectOwner is returned when a non-owner attempts an owner-only operation.
	ErrNotProjectOwner = errors.New("only the project owner may do this")
	// ErrNotProjectMember is returned when a non-member accesses a project.
	ErrNotProjectMember = errors.New("not a member of this project")
	// ErrAlreadyMember is returned when inviting a user who already belongs to the project.
	ErrAlreadyMember = errors.New("user already a member")
	// ErrUserNotFound is returned when an invite target does not exist.
	ErrUserNotFound = errors.New("user not found")
)

// ProjectService coordinates project CRUD and membership operations.
type ProjectService interface {
	Create(ctx context.Context, actorID int64, name, description string) (*domain.Project, error)
	Get(ctx context.Context, actorID, id int64) (*domain.Project, error)
	List(ctx context.Context, actorID int64) ([]domain.Project, error)
	Update(ctx context.Context, actorID, id int64, name, description string) error
	Delete(ctx context.Context, actorID, id int64) error
	Invite(ctx context.Context, actorID, projectID int64, usernameOrEmail string) (*domain.User, error)
	RemoveMember(ctx context.Context, actorID, projectID, userID int64) error
	SetArchived(ctx context.Context, actorID, id int64, archived bool) error
	SetCompleted(ctx context.Context, actorID, id int64, completed bool) error
	Activity(ctx context.Context, actorID, projectID int64, limit int) ([]domain.Activity, error)
}

type projectService struct {
	projects   repository.ProjectRepository
	users      repository.UserRepository
	activities repository.ActivityRepository
	logger     *logrus.Logger
}

func NewProjectService(
	projects repository.ProjectRepository,
	users repository.UserRepository,
	activities repository.ActivityRepository,
	logger *logrus.Logger,
) ProjectService {
	return &projectService{
		projects:   projects,
		users:      users,
		activities: activities,
		logger:     logger,
	}
}

func (s *projectService) Create(ctx context.Context, actorID int64, name, description string) (*domain.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("project name is required")
	}

	project := &domain.Project{
		Name:        name,
		Description: strings.TrimSpace(description),
		CreatedBy:   actorID,
	}
	if _, err := s.projects.Create(ctx, project); err != nil {
		return nil, err
	}

	s.logActivity(ctx, project.ID, actorID, "created the project", project.Name)
	return project, nil
}

func (s *projectService) Get(ctx context.Context, actorID, id int64) (*domain.Project, error) {
	project, err := s.requireMember(ctx, actorID, id)
	if err != nil {
		return nil, err
	}

	members, err := s.projects.ListMembers(ctx, id)
	if err != nil {
		return nil, err
	}
	project.Members = members
	return project, nil
}

func (s *projectService) List(ctx context.Context, actorID int64) ([]domain.Project, error) {
	return s.projects.ListByMember(ctx, actorID)
}

func (s *projectService) Update(ctx context.Context, actorID, id int64, name, description string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("project name is required")
	}

	if _, err := s.requireMember(ctx, actorID, id); err != nil {
		return err
	}
	if err := s.projects.Update(ctx, id, name, strings.TrimSpace(description)); err != nil {
		return err
	}

	s.logActivity(ctx, id, actorID, "edited the project", name)
	return nil
}

func (s *projectService) Delete(ctx context.Context, actorID, id int64) error {
	project, err := s.requireOwner(ctx, actorID, id)
	if err != nil {
		return err
	}
	if err := s.projects.Delete(ctx, id); err != nil {
		return err
	}

	s.logActivity(ctx, id, actorID, "deleted the project", project.Name)
	return nil
}

func (s *projectService) Invite(ctx context.Context, actorID, projectID int64, usernameOrEmail string) (*domain.User, error) {
	if _, err := s.requireOwner(ctx, actorID, projectID); err != nil {
		return nil, err
	}

	user, err := s.users.GetByUsernameOrEmail(ctx, strings.TrimSpace(usernameOrEmail))
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	isMember, err := s.projects.IsMember(ctx, projectID, user.ID)
	if err != nil {
		return nil, err
	}
	if isMember {
		return nil, ErrAlreadyMember
	}

	if err := s.projects.AddMember(ctx, projectID, user.ID); err != nil {
		return nil, err
	}

	s.logActivity(ctx, projectID, actorID, "invited a member", user.Username)
	return sanitizeUser(user), nil
}

func (s *projectService) RemoveMember(ctx context.Context, actorID, projectID, userID int64) error {
	if _, err := s.requireOwner(ctx, actorID, projectID); err != nil {
		return err
	}
	if err := s.projects.RemoveMember(ctx, projectID, userID); err != nil {
		return err
	}

	s.logActivity(ctx, projectID, actorID, "removed a member", "")
	return nil
}

func (s *projectService) SetArchived(ctx context.Context, actorID, id int64, archived bool) error {
	if _, err := s.requireOwner(ctx, actorID, id); err != nil {
		return err
	}
	return s.projects.SetArchived(ctx, id, archived)
}

func (s *projectService) SetCompleted(ctx context.Context, actorID, id int64, completed bool) error {
	if _, err := s.requireOwner(ctx, actorID, id); err != nil {
		return err
	}
	return s.projects.SetCompleted(ctx, id, completed)
}

func (s *projectService) Activity(ctx context.Context, actorID, projectID int64, limit int) ([]domain.Activity, error) {
	if _, err := s.requireMember(ctx, actorID, projectID); err != nil {
		return nil, err
	}
	return s.activities.ListByProject(ctx, projectID, limit)
}

func (s *projectService) requireMember(ctx context.Context, actorID, projectID int64) (*domain.Project, error) {
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

func (s *projectService) requireOwner(ctx context.Context, actorID, projectID int64) (*domain.Project, error) {
	project, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.CreatedBy != actorID {
		return nil, ErrNotProjectOwner
	}
	return project, nil
}

// logActivity records an audit entry. Audit failures degrade silently to a
// log line; they never fail the primary operation.
func (s *projectService) logActivity(ctx context.Context, projectID, userID int64, action, details string) {
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
