package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/example/task-service/config"
	"github.com/example/task-service/domain/requester"
	domain "github.com/example/task-service/domain/task"
	"github.com/example/task-service/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/redis/go-redis/v9"
)

// TaskModule owns the task store and serves the task use cases over request-reply.
type TaskModule struct {
	dbConfig    config.DatabaseConfig
	cacheConfig config.CacheConfig
	repo        Repository
	cache       *RedisCache
	service     *Service
	eventBus    mono.EventBus
	now         func() time.Time
}

// Compile-time interface checks.
var _ mono.Module = (*TaskModule)(nil)
var _ mono.ServiceProviderModule = (*TaskModule)(nil)
var _ mono.HealthCheckableModule = (*TaskModule)(nil)
var _ mono.EventBusAwareModule = (*TaskModule)(nil)
var _ mono.EventEmitterModule = (*TaskModule)(nil)

// NewModule creates a new TaskModule that opens its store on Start.
func NewModule(dbConfig config.DatabaseConfig, cacheConfig config.CacheConfig) *TaskModule {
	return &TaskModule{
		dbConfig:    dbConfig,
		cacheConfig: cacheConfig,
		now:         time.Now,
	}
}

// NewModuleWithRepository creates a TaskModule on an existing repository.
func NewModuleWithRepository(repo Repository) *TaskModule {
	return &TaskModule{
		repo:    repo,
		service: NewService(repo),
		now:     time.Now,
	}
}

// Name returns the module name.
func (m *TaskModule) Name() string {
	return "task"
}

// SetEventBus receives the event bus from the framework.
func (m *TaskModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events published by this module.
func (m *TaskModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.TaskCreatedV1.ToBase(),
		events.TaskUpdatedV1.ToBase(),
		events.TaskTrashedV1.ToBase(),
	}
}

// Start opens the task store.
func (m *TaskModule) Start(ctx context.Context) error {
	if m.repo == nil {
		repo, err := m.openRepository(ctx)
		if err != nil {
			return err
		}
		m.repo = repo
	}

	if m.cacheConfig.Enabled() {
		m.enableCache(ctx)
	}

	m.service = NewService(m.repo)
	if m.eventBus == nil {
		log.Println("[task] Warning: eventBus not set, events will not be published")
	}

	log.Printf("[task] Module started (driver: %s, cache: %t)", m.driver(), m.cache != nil)
	return nil
}

func (m *TaskModule) driver() string {
	if m.dbConfig.Driver == "" {
		return "custom"
	}
	return m.dbConfig.Driver
}

func (m *TaskModule) openRepository(ctx context.Context) (Repository, error) {
	switch m.dbConfig.Driver {
	case "postgres":
		repo, err := OpenPostgres(ctx, m.dbConfig.PostgresURL())
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres task store: %w", err)
		}
		return repo, nil
	case "sqlite", "":
		db, err := OpenSQLite(m.dbConfig.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite task store: %w", err)
		}
		return NewGormRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", m.dbConfig.Driver)
	}
}

// enableCache wraps the repository with the Redis cache. The module keeps
// working without a cache when Redis cannot be reached.
func (m *TaskModule) enableCache(ctx context.Context) {
	client := redis.NewClient(&redis.Options{
		Addr:     m.cacheConfig.RedisAddr,
		Password: m.cacheConfig.RedisPassword,
		DB:       m.cacheConfig.RedisDB,
	})
	cache := NewRedisCache(client, m.cacheConfig.Prefix, m.cacheConfig.TTL)
	if err := cache.Ping(ctx); err != nil {
		log.Printf("[task] Warning: Redis unavailable at %s, cache disabled: %v", m.cacheConfig.RedisAddr, err)
		cache.Close()
		return
	}
	m.cache = cache
	m.repo = NewCachedRepository(m.repo, cache)
}

// Stop closes the task store.
func (m *TaskModule) Stop(_ context.Context) error {
	if m.cache != nil {
		if err := m.cache.Close(); err != nil {
			log.Printf("[task] Warning: failed to close cache: %v", err)
		}
	}
	if m.repo != nil {
		if err := m.repo.Close(); err != nil {
			log.Printf("[task] Warning: failed to close task store: %v", err)
		}
	}
	log.Println("[task] Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *TaskModule) Health(ctx context.Context) mono.HealthStatus {
	if m.repo == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "task store not initialized",
		}
	}

	if err := m.repo.Ping(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("task store ping failed: %v", err),
		}
	}

	details := map[string]any{
		"driver": m.driver(),
	}
	if m.cache != nil {
		details["cache"] = m.cache.Stats()
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: details,
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *TaskModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "create-task", json.Unmarshal, json.Marshal, m.createTask,
	); err != nil {
		return fmt.Errorf("failed to register create-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "get-task", json.Unmarshal, json.Marshal, m.getTask,
	); err != nil {
		return fmt.Errorf("failed to register get-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "find-tasks", json.Unmarshal, json.Marshal, m.findTasks,
	); err != nil {
		return fmt.Errorf("failed to register find-tasks service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "update-task", json.Unmarshal, json.Marshal, m.updateTask,
	); err != nil {
		return fmt.Errorf("failed to register update-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "trash-task", json.Unmarshal, json.Marshal, m.trashTask,
	); err != nil {
		return fmt.Errorf("failed to register trash-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "ping", json.Unmarshal, json.Marshal, m.ping,
	); err != nil {
		return fmt.Errorf("failed to register ping service: %w", err)
	}

	log.Printf("[task] Registered services: create-task, get-task, find-tasks, update-task, trash-task, ping")
	return nil
}

// withOwner attaches the owner carried by a request to the handler context.
// An empty owner is left out so the service reports the missing requester.
func withOwner(ctx context.Context, ownerID string) context.Context {
	if ownerID == "" {
		return ctx
	}
	return requester.With(ctx, ownerID)
}

func taskResult(t *domain.Task, err error) (TaskResult, error) {
	if err != nil {
		if payload := toErrorPayload(err); payload != nil {
			return TaskResult{Error: payload}, nil
		}
		return TaskResult{}, err
	}
	return TaskResult{Task: t}, nil
}

func (m *TaskModule) createTask(ctx context.Context, req CreateTaskRequest, _ *mono.Msg) (TaskResult, error) {
	t, err := m.service.CreateTask(withOwner(ctx, req.OwnerID), req.Input)
	if err == nil {
		m.publish(func(bus mono.EventBus) error {
			return events.TaskCreatedV1.Publish(bus, events.TaskCreatedEvent{
				TaskID:    t.ID,
				OwnerID:   t.OwnerID,
				Title:     t.Title,
				Priority:  string(t.Priority),
				Status:    string(t.Status),
				CreatedAt: t.CreatedAt,
			}, nil)
		})
	}
	return taskResult(t, err)
}

func (m *TaskModule) getTask(ctx context.Context, req GetTaskRequest, _ *mono.Msg) (TaskResult, error) {
	return taskResult(m.service.GetTask(withOwner(ctx, req.OwnerID), req.TaskID))
}

func (m *TaskModule) findTasks(ctx context.Context, req FindTasksRequest, _ *mono.Msg) (TaskListResult, error) {
	tasks, err := m.service.FindTasks(withOwner(ctx, req.OwnerID), req.Filter)
	if err != nil {
		return TaskListResult{}, err
	}
	return TaskListResult{Tasks: tasks, Total: len(tasks)}, nil
}

func (m *TaskModule) updateTask(ctx context.Context, req UpdateTaskRequest, _ *mono.Msg) (TaskResult, error) {
	t, err := m.service.UpdateTask(withOwner(ctx, req.OwnerID), req.TaskID, req.Input)
	if err == nil && !req.Input.Empty() {
		m.publish(func(bus mono.EventBus) error {
			return events.TaskUpdatedV1.Publish(bus, events.TaskUpdatedEvent{
				TaskID:    t.ID,
				OwnerID:   t.OwnerID,
				Fields:    fieldNames(req.Input),
				Status:    string(t.Status),
				UpdatedAt: m.now(),
			}, nil)
		})
	}
	return taskResult(t, err)
}

func (m *TaskModule) trashTask(ctx context.Context, req TrashTaskRequest, _ *mono.Msg) (TrashResult, error) {
	id, err := m.service.TrashTask(withOwner(ctx, req.OwnerID), req.TaskID)
	if err != nil {
		if payload := toErrorPayload(err); payload != nil {
			return TrashResult{Error: payload}, nil
		}
		return TrashResult{}, err
	}

	m.publish(func(bus mono.EventBus) error {
		return events.TaskTrashedV1.Publish(bus, events.TaskTrashedEvent{
			TaskID:    id,
			OwnerID:   req.OwnerID,
			TrashedAt: m.now(),
		}, nil)
	})
	return TrashResult{TaskID: id}, nil
}

func (m *TaskModule) ping(ctx context.Context, _ PingRequest, _ *mono.Msg) (PingResponse, error) {
	if err := m.repo.Ping(ctx); err != nil {
		return PingResponse{Healthy: false, Message: err.Error()}, nil
	}
	return PingResponse{Healthy: true}, nil
}

// publish emits an event when a bus is available. Publishing is best-effort.
func (m *TaskModule) publish(emit func(bus mono.EventBus) error) {
	if m.eventBus == nil {
		return
	}
	if err := emit(m.eventBus); err != nil {
		log.Printf("[task] Warning: failed to publish event: %v", err)
	}
}

// fieldNames lists the fields set in an update, using their transport names.
func fieldNames(in domain.Input) []string {
	var names []string
	if in.Title != nil {
		names = append(names, "title")
	}
	if in.Description != nil || in.ClearDescription {
		names = append(names, "description")
	}
	if in.Priority != nil {
		names = append(names, "priority")
	}
	if in.Status != nil {
		names = append(names, "status")
	}
	if in.ReminderAt != nil {
		names = append(names, "reminderAt")
	}
	if in.ReminderAllDay != nil {
		names = append(names, "reminderAllDay")
	}
	return names
}
