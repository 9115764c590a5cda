package task

import (
	"errors"

	domain "github.com/example/task-service/domain/task"
)

// ErrUnavailable is returned by TaskAdapter when the task service cannot be reached.
var ErrUnavailable = errors.New("task service unavailable")

// toErrorPayload converts validation and not-found errors into a payload.
// It returns nil for any other error.
func toErrorPayload(err error) *ErrorPayload {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return &ErrorPayload{Code: CodeValidation, Messages: verr.Violations}
	}
	var nerr *domain.NotFoundError
	if errors.As(err, &nerr) {
		return &ErrorPayload{Code: CodeNotFound, TaskID: nerr.ID}
	}
	return nil
}

// Err rebuilds the domain error described by the payload.
func (p *ErrorPayload) Err() error {
	switch p.Code {
	case CodeValidation:
		return &domain.ValidationError{Violations: p.Messages}
	case CodeNotFound:
		return &domain.NotFoundError{ID: p.TaskID}
	default:
		return errors.New("unknown task error: " + p.Code)
	}
}
