package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/example/task-service/domain/requester"
	"github.com/example/task-service/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// maxListLimit caps the entries returned by one list-activity call.
const maxListLimit = 1000

// ActivityModule records task events into a per-owner activity log.
type ActivityModule struct {
	store *Store
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*ActivityModule)(nil)
	_ mono.EventConsumerModule   = (*ActivityModule)(nil)
	_ mono.ServiceProviderModule = (*ActivityModule)(nil)
)

// NewModule creates a new ActivityModule keeping limit entries per owner.
func NewModule(limit int) *ActivityModule {
	return &ActivityModule{
		store: NewStore(limit),
	}
}

// Name returns the module name.
func (m *ActivityModule) Name() string {
	return "activity"
}

// RegisterEventConsumers subscribes to the task lifecycle events.
func (m *ActivityModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskCreatedV1, m.handleTaskCreated, m); err != nil {
		return fmt.Errorf("failed to register TaskCreated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskUpdatedV1, m.handleTaskUpdated, m); err != nil {
		return fmt.Errorf("failed to register TaskUpdated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskTrashedV1, m.handleTaskTrashed, m); err != nil {
		return fmt.Errorf("failed to register TaskTrashed consumer: %w", err)
	}

	log.Printf("[activity] Registered event consumers: TaskCreated, TaskUpdated, TaskTrashed")
	return nil
}

func (m *ActivityModule) handleTaskCreated(_ context.Context, event events.TaskCreatedEvent, _ *mono.Msg) error {
	m.store.Record(event.OwnerID, Entry{
		TaskID:     event.TaskID,
		Kind:       KindCreated,
		Summary:    fmt.Sprintf("Created task %q (%s, %s)", event.Title, event.Priority, event.Status),
		OccurredAt: event.CreatedAt,
	})
	return nil
}

func (m *ActivityModule) handleTaskUpdated(_ context.Context, event events.TaskUpdatedEvent, _ *mono.Msg) error {
	m.store.Record(event.OwnerID, Entry{
		TaskID:     event.TaskID,
		Kind:       KindUpdated,
		Summary:    fmt.Sprintf("Updated %s", strings.Join(event.Fields, ", ")),
		OccurredAt: event.UpdatedAt,
	})
	return nil
}

func (m *ActivityModule) handleTaskTrashed(_ context.Context, event events.TaskTrashedEvent, _ *mono.Msg) error {
	m.store.Record(event.OwnerID, Entry{
		TaskID:     event.TaskID,
		Kind:       KindTrashed,
		Summary:    "Moved task to trash",
		OccurredAt: event.TrashedAt,
	})
	return nil
}

// RegisterServices registers the list-activity service.
func (m *ActivityModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container,
		"list-activity",
		json.Unmarshal,
		json.Marshal,
		m.handleListActivity,
	); err != nil {
		return fmt.Errorf("failed to register list-activity service: %w", err)
	}

	log.Printf("[activity] Registered services: list-activity")
	return nil
}

func (m *ActivityModule) handleListActivity(_ context.Context, req ListActivityRequest, _ *mono.Msg) (ListActivityResponse, error) {
	if req.OwnerID == "" {
		return ListActivityResponse{}, requester.ErrNoRequester
	}

	limit := req.Limit
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}

	entries := m.store.List(req.OwnerID, limit)
	return ListActivityResponse{
		Entries: entries,
		Total:   len(entries),
	}, nil
}

// Start starts the module.
func (m *ActivityModule) Start(_ context.Context) error {
	log.Println("[activity] Module started - listening for task events")
	return nil
}

// Stop stops the module.
func (m *ActivityModule) Stop(_ context.Context) error {
	log.Printf("[activity] Module stopped (%d owners tracked)", m.store.Owners())
	return nil
}
