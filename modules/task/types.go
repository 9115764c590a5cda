package task

import (
	domain "github.com/example/task-service/domain/task"
)

// Error codes carried by ErrorPayload.
const (
	CodeValidation = "validation"
	CodeNotFound   = "not_found"
)

// CreateTaskRequest represents a create-task request.
type CreateTaskRequest struct {
	OwnerID string       `json:"owner_id"`
	Input   domain.Input `json:"input"`
}

// GetTaskRequest represents a get-task request.
type GetTaskRequest struct {
	OwnerID string `json:"owner_id"`
	TaskID  string `json:"task_id"`
}

// FindTasksRequest represents a find-tasks request.
type FindTasksRequest struct {
	OwnerID string        `json:"owner_id"`
	Filter  domain.Filter `json:"filter"`
}

// UpdateTaskRequest represents an update-task request.
type UpdateTaskRequest struct {
	OwnerID string       `json:"owner_id"`
	TaskID  string       `json:"task_id"`
	Input   domain.Input `json:"input"`
}

// TrashTaskRequest represents a trash-task request.
type TrashTaskRequest struct {
	OwnerID string `json:"owner_id"`
	TaskID  string `json:"task_id"`
}

// ErrorPayload describes a failure the caller can act on.
type ErrorPayload struct {
	Code     string   `json:"code"`
	Messages []string `json:"messages,omitempty"`
	TaskID   string   `json:"task_id,omitempty"`
}

// TaskResult is the response of create-task, get-task and update-task.
// Exactly one of Task and Error is set.
type TaskResult struct {
	Task  *domain.Task  `json:"task,omitempty"`
	Error *ErrorPayload `json:"error,omitempty"`
}

// TaskListResult is the response of find-tasks.
type TaskListResult struct {
	Tasks []*domain.Task `json:"tasks"`
	Total int            `json:"total"`
}

// TrashResult is the response of trash-task.
type TrashResult struct {
	TaskID string        `json:"task_id,omitempty"`
	Error  *ErrorPayload `json:"error,omitempty"`
}

// PingRequest represents a ping request.
type PingRequest struct{}

// PingResponse reports whether the task store is reachable.
type PingResponse struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}
