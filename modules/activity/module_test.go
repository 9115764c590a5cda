package activity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/task-service/domain/requester"
	"github.com/example/task-service/events"
)

func TestActivityModule_RecordsTaskEvents(t *testing.T) {
	m := NewModule(10)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	if err := m.handleTaskCreated(ctx, events.TaskCreatedEvent{
		TaskID: "t1", OwnerID: "alice", Title: "Buy milk", Priority: "MEDIUM", Status: "OPEN", CreatedAt: now,
	}, nil); err != nil {
		t.Fatalf("handleTaskCreated() error = %v", err)
	}
	if err := m.handleTaskUpdated(ctx, events.TaskUpdatedEvent{
		TaskID: "t1", OwnerID: "alice", Fields: []string{"title", "priority"}, Status: "OPEN", UpdatedAt: now.Add(time.Minute),
	}, nil); err != nil {
		t.Fatalf("handleTaskUpdated() error = %v", err)
	}
	if err := m.handleTaskTrashed(ctx, events.TaskTrashedEvent{
		TaskID: "t1", OwnerID: "alice", TrashedAt: now.Add(2 * time.Minute),
	}, nil); err != nil {
		t.Fatalf("handleTaskTrashed() error = %v", err)
	}

	resp, err := m.handleListActivity(ctx, ListActivityRequest{OwnerID: "alice"}, nil)
	if err != nil {
		t.Fatalf("handleListActivity() error = %v", err)
	}
	if resp.Total != 3 {
		t.Fatalf("resp.Total = %d, want 3", resp.Total)
	}

	wantKinds := []string{KindTrashed, KindUpdated, KindCreated}
	for i, kind := range wantKinds {
		if resp.Entries[i].Kind != kind {
			t.Errorf("Entries[%d].Kind = %v, want %v", i, resp.Entries[i].Kind, kind)
		}
	}
	if resp.Entries[1].Summary != "Updated title, priority" {
		t.Errorf("Entries[1].Summary = %q", resp.Entries[1].Summary)
	}
	if resp.Entries[2].Summary != `Created task "Buy milk" (MEDIUM, OPEN)` {
		t.Errorf("Entries[2].Summary = %q", resp.Entries[2].Summary)
	}

	other, err := m.handleListActivity(ctx, ListActivityRequest{OwnerID: "bob"}, nil)
	if err != nil {
		t.Fatalf("handleListActivity() error = %v", err)
	}
	if other.Total != 0 {
		t.Errorf("other owner sees %d entries, want 0", other.Total)
	}
}

func TestActivityModule_ListRequiresOwner(t *testing.T) {
	m := NewModule(10)

	_, err := m.handleListActivity(context.Background(), ListActivityRequest{}, nil)
	if !errors.Is(err, requester.ErrNoRequester) {
		t.Errorf("handleListActivity() error = %v, want %v", err, requester.ErrNoRequester)
	}
}

func TestActivityAdapter_RequiresRequester(t *testing.T) {
	_, err := NewActivityAdapter(nil).ListActivity(context.Background(), 10)
	if !errors.Is(err, requester.ErrNoRequester) {
		t.Errorf("ListActivity() error = %v, want %v", err, requester.ErrNoRequester)
	}
}
