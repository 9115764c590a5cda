package task

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/task-service/domain/requester"
	domain "github.com/example/task-service/domain/task"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// TaskPort defines the task operations available to other modules.
// The acting owner is the requester stored in the context.
type TaskPort interface {
	CreateTask(ctx context.Context, in domain.Input) (*domain.Task, error)
	GetTask(ctx context.Context, id string) (*domain.Task, error)
	FindTasks(ctx context.Context, filter domain.Filter) ([]*domain.Task, error)
	UpdateTask(ctx context.Context, id string, in domain.Input) (*domain.Task, error)
	TrashTask(ctx context.Context, id string) (string, error)
	Ping(ctx context.Context) error
}

// TaskAdapter implements TaskPort using the service container.
type TaskAdapter struct {
	container mono.ServiceContainer
}

var _ TaskPort = (*TaskAdapter)(nil)

// NewTaskAdapter creates a new TaskAdapter.
func NewTaskAdapter(container mono.ServiceContainer) *TaskAdapter {
	return &TaskAdapter{
		container: container,
	}
}

func call[Req, Resp any](ctx context.Context, container mono.ServiceContainer, service string, req *Req, resp *Resp) error {
	if err := helper.CallRequestReplyService(
		ctx,
		container,
		service,
		json.Marshal,
		json.Unmarshal,
		req,
		resp,
	); err != nil {
		return fmt.Errorf("%w: %s request failed: %v", ErrUnavailable, service, err)
	}
	return nil
}

func (r TaskResult) unwrap() (*domain.Task, error) {
	if r.Error != nil {
		return nil, r.Error.Err()
	}
	return r.Task, nil
}

// CreateTask creates a task for the requester.
func (a *TaskAdapter) CreateTask(ctx context.Context, in domain.Input) (*domain.Task, error) {
	ownerID, err := requester.From(ctx)
	if err != nil {
		return nil, err
	}

	req := CreateTaskRequest{OwnerID: ownerID, Input: in}
	var resp TaskResult
	if err := call(ctx, a.container, "create-task", &req, &resp); err != nil {
		return nil, err
	}
	return resp.unwrap()
}

// GetTask retrieves one of the requester's tasks.
func (a *TaskAdapter) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	ownerID, err := requester.From(ctx)
	if err != nil {
		return nil, err
	}

	req := GetTaskRequest{OwnerID: ownerID, TaskID: id}
	var resp TaskResult
	if err := call(ctx, a.container, "get-task", &req, &resp); err != nil {
		return nil, err
	}
	return resp.unwrap()
}

// FindTasks lists the requester's tasks matching filter.
func (a *TaskAdapter) FindTasks(ctx context.Context, filter domain.Filter) ([]*domain.Task, error) {
	ownerID, err := requester.From(ctx)
	if err != nil {
		return nil, err
	}

	req := FindTasksRequest{OwnerID: ownerID, Filter: filter}
	var resp TaskListResult
	if err := call(ctx, a.container, "find-tasks", &req, &resp); err != nil {
		return nil, err
	}
	if resp.Tasks == nil {
		resp.Tasks = make([]*domain.Task, 0)
	}
	return resp.Tasks, nil
}

// UpdateTask updates one of the requester's tasks.
func (a *TaskAdapter) UpdateTask(ctx context.Context, id string, in domain.Input) (*domain.Task, error) {
	ownerID, err := requester.From(ctx)
	if err != nil {
		return nil, err
	}

	req := UpdateTaskRequest{OwnerID: ownerID, TaskID: id, Input: in}
	var resp TaskResult
	if err := call(ctx, a.container, "update-task", &req, &resp); err != nil {
		return nil, err
	}
	return resp.unwrap()
}

// TrashTask trashes one of the requester's tasks.
func (a *TaskAdapter) TrashTask(ctx context.Context, id string) (string, error) {
	ownerID, err := requester.From(ctx)
	if err != nil {
		return "", err
	}

	req := TrashTaskRequest{OwnerID: ownerID, TaskID: id}
	var resp TrashResult
	if err := call(ctx, a.container, "trash-task", &req, &resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", resp.Error.Err()
	}
	return resp.TaskID, nil
}

// Ping checks that the task store is reachable.
func (a *TaskAdapter) Ping(ctx context.Context) error {
	req := PingRequest{}
	var resp PingResponse
	if err := call(ctx, a.container, "ping", &req, &resp); err != nil {
		return err
	}
	if !resp.Healthy {
		return fmt.Errorf("%w: %s", ErrUnavailable, resp.Message)
	}
	return nil
}
