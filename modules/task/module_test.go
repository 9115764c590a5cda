package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/task-service/config"
	"github.com/example/task-service/domain/requester"
	domain "github.com/example/task-service/domain/task"
)

func setupModule(t *testing.T) *TaskModule {
	t.Helper()

	m := NewModuleWithRepository(setupTestDB(t))
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return m
}

func TestTaskModule_Name(t *testing.T) {
	if got := NewModule(config.Default().Database, config.CacheConfig{}).Name(); got != "task" {
		t.Errorf("Name() = %q, want %q", got, "task")
	}
}

func TestTaskModule_CreateAndGet(t *testing.T) {
	m := setupModule(t)
	ctx := context.Background()

	created, err := m.createTask(ctx, CreateTaskRequest{
		OwnerID: "alice",
		Input:   domain.Input{Title: domain.Ptr("from the bus")},
	}, nil)
	if err != nil {
		t.Fatalf("createTask() error = %v", err)
	}
	if created.Error != nil || created.Task == nil {
		t.Fatalf("createTask() = %+v, want a task", created)
	}

	got, err := m.getTask(ctx, GetTaskRequest{OwnerID: "alice", TaskID: created.Task.ID}, nil)
	if err != nil {
		t.Fatalf("getTask() error = %v", err)
	}
	assertSameTask(t, created.Task, got.Task)
}

func TestTaskModule_UserErrorsAreReturnedAsPayload(t *testing.T) {
	m := setupModule(t)
	ctx := context.Background()

	res, err := m.createTask(ctx, CreateTaskRequest{
		OwnerID: "alice",
		Input:   domain.Input{Title: domain.Ptr("t"), ReminderAllDay: domain.Ptr(true)},
	}, nil)
	if err != nil {
		t.Fatalf("createTask() error = %v", err)
	}
	if res.Error == nil || res.Error.Code != CodeValidation {
		t.Fatalf("createTask() error payload = %+v, want validation", res.Error)
	}
	if got := res.Error.Err().Error(); got != domain.MsgReminderPairing {
		t.Errorf("payload error = %q, want %q", got, domain.MsgReminderPairing)
	}

	res, err = m.getTask(ctx, GetTaskRequest{OwnerID: "alice", TaskID: "nope"}, nil)
	if err != nil {
		t.Fatalf("getTask() error = %v", err)
	}
	if res.Error == nil || res.Error.Code != CodeNotFound {
		t.Fatalf("getTask() error payload = %+v, want not_found", res.Error)
	}
	if got := res.Error.Err().Error(); got != "Could not find task with id nope" {
		t.Errorf("payload error = %q", got)
	}

	trash, err := m.trashTask(ctx, TrashTaskRequest{OwnerID: "alice", TaskID: "nope"}, nil)
	if err != nil {
		t.Fatalf("trashTask() error = %v", err)
	}
	if trash.Error == nil || trash.Error.Code != CodeNotFound {
		t.Errorf("trashTask() error payload = %+v, want not_found", trash.Error)
	}
}

func TestTaskModule_MissingOwnerIsAnError(t *testing.T) {
	m := setupModule(t)

	_, err := m.findTasks(context.Background(), FindTasksRequest{}, nil)
	if !errors.Is(err, requester.ErrNoRequester) {
		t.Errorf("findTasks() error = %v, want %v", err, requester.ErrNoRequester)
	}
}

func TestTaskModule_UpdateFindAndTrash(t *testing.T) {
	m := setupModule(t)
	ctx := context.Background()

	created, err := m.createTask(ctx, CreateTaskRequest{OwnerID: "alice", Input: domain.Input{Title: domain.Ptr("a")}}, nil)
	if err != nil {
		t.Fatalf("createTask() error = %v", err)
	}

	updated, err := m.updateTask(ctx, UpdateTaskRequest{
		OwnerID: "alice",
		TaskID:  created.Task.ID,
		Input:   domain.Input{Priority: domain.Ptr(domain.PriorityHigh)},
	}, nil)
	if err != nil {
		t.Fatalf("updateTask() error = %v", err)
	}
	if updated.Task.Priority != domain.PriorityHigh {
		t.Errorf("Priority = %q, want %q", updated.Task.Priority, domain.PriorityHigh)
	}

	list, err := m.findTasks(ctx, FindTasksRequest{
		OwnerID: "alice",
		Filter:  domain.Filter{Priority: domain.Ptr(domain.PriorityHigh)},
	}, nil)
	if err != nil {
		t.Fatalf("findTasks() error = %v", err)
	}
	if list.Total != 1 || len(list.Tasks) != 1 {
		t.Fatalf("findTasks() = %+v, want one task", list)
	}

	trashed, err := m.trashTask(ctx, TrashTaskRequest{OwnerID: "alice", TaskID: created.Task.ID}, nil)
	if err != nil {
		t.Fatalf("trashTask() error = %v", err)
	}
	if trashed.TaskID != created.Task.ID {
		t.Errorf("trashTask() = %q, want %q", trashed.TaskID, created.Task.ID)
	}
}

func TestTaskModule_HealthAndPing(t *testing.T) {
	m := setupModule(t)

	status := m.Health(context.Background())
	if !status.Healthy {
		t.Errorf("Health() = %+v, want healthy", status)
	}

	resp, err := m.ping(context.Background(), PingRequest{}, nil)
	if err != nil {
		t.Fatalf("ping() error = %v", err)
	}
	if !resp.Healthy {
		t.Errorf("ping() = %+v, want healthy", resp)
	}
}

func TestTaskModule_HealthWithoutStore(t *testing.T) {
	m := NewModule(config.Default().Database, config.CacheConfig{})

	if status := m.Health(context.Background()); status.Healthy {
		t.Error("Health() reported healthy before Start")
	}
}

func TestErrorPayload_Err(t *testing.T) {
	tests := []struct {
		name    string
		payload ErrorPayload
		want    string
	}{
		{
			name:    "validation",
			payload: ErrorPayload{Code: CodeValidation, Messages: []string{"a", "b"}},
			want:    "a\nb",
		},
		{
			name:    "not found",
			payload: ErrorPayload{Code: CodeNotFound, TaskID: "42"},
			want:    "Could not find task with id 42",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.payload.Err()
			if err.Error() != tt.want {
				t.Errorf("Err() = %q, want %q", err.Error(), tt.want)
			}
			if !domain.IsUserError(err) {
				t.Error("Err() should be a user error")
			}
		})
	}
}

func TestFieldNames(t *testing.T) {
	got := fieldNames(domain.Input{
		Title:          domain.Ptr("t"),
		ReminderAt:     domain.Ptr(time.UnixMilli(0)),
		ReminderAllDay: domain.Ptr(false),
	})
	want := []string{"title", "reminderAt", "reminderAllDay"}
	if len(got) != len(want) {
		t.Fatalf("fieldNames() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("fieldNames()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if got := fieldNames(domain.Input{ClearDescription: true}); len(got) != 1 || got[0] != "description" {
		t.Errorf("fieldNames(clear description) = %v, want [description]", got)
	}
}
