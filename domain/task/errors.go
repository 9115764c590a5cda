package task

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError carries the violations found in a task input.
type ValidationError struct {
	Violations []string
}

// Error joins the violations with newlines.
func (e *ValidationError) Error() string {
	return strings.Join(e.Violations, "\n")
}

// NotFoundError is returned when a task does not exist for the requester.
// A task owned by somebody else is reported the same way.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Could not find task with id %s", e.ID)
}

// IsUserError reports whether err is a validation or not-found failure that
// can be shown to the caller as is.
func IsUserError(err error) bool {
	var verr *ValidationError
	var nerr *NotFoundError
	return errors.As(err, &verr) || errors.As(err, &nerr)
}
