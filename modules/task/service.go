package task

import (
	"context"

	"github.com/example/task-service/domain/requester"
	domain "github.com/example/task-service/domain/task"
)

// MsgTitleRequired is reported when a task is created without a title.
const MsgTitleRequired = "Invalid title. Title is required"

// Service implements the task use cases on behalf of the requester found in
// the context. It returns *domain.ValidationError and *domain.NotFoundError for
// failures the caller can act on; every other error is a service failure.
type Service struct {
	repo Repository
}

// NewService creates a new Service.
func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
	}
}

// CreateTask validates in and stores a new task owned by the requester.
func (s *Service) CreateTask(ctx context.Context, in domain.Input) (*domain.Task, error) {
	ownerID, err := requester.From(ctx)
	if err != nil {
		return nil, err
	}

	violations := domain.Validate(in)
	if in.Title == nil {
		violations = append([]string{MsgTitleRequired}, violations...)
	}
	if len(violations) > 0 {
		return nil, &domain.ValidationError{Violations: violations}
	}

	return s.repo.Create(ctx, ownerID, in)
}

// GetTask returns the requester's task with the given id.
func (s *Service) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	ownerID, err := requester.From(ctx)
	if err != nil {
		return nil, err
	}

	t, err := s.repo.GetByID(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, &domain.NotFoundError{ID: id}
	}
	return t, nil
}

// FindTasks returns the requester's tasks matching filter. No match is not an error.
func (s *Service) FindTasks(ctx context.Context, filter domain.Filter) ([]*domain.Task, error) {
	ownerID, err := requester.From(ctx)
	if err != nil {
		return nil, err
	}

	return s.repo.Find(ctx, ownerID, filter)
}

// UpdateTask validates in and applies it to the requester's task.
func (s *Service) UpdateTask(ctx context.Context, id string, in domain.Input) (*domain.Task, error) {
	ownerID, err := requester.From(ctx)
	if err != nil {
		return nil, err
	}

	if violations := domain.Validate(in); len(violations) > 0 {
		return nil, &domain.ValidationError{Violations: violations}
	}

	t, err := s.repo.Update(ctx, id, ownerID, in)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, &domain.NotFoundError{ID: id}
	}
	return t, nil
}

// TrashTask moves the requester's task to the trash and returns its id.
func (s *Service) TrashTask(ctx context.Context, id string) (string, error) {
	ownerID, err := requester.From(ctx)
	if err != nil {
		return "", err
	}

	trashed, err := s.repo.Trash(ctx, id, ownerID)
	if err != nil {
		return "", err
	}
	if trashed == "" {
		return "", &domain.NotFoundError{ID: id}
	}
	return trashed, nil
}
