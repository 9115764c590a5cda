package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/task-service/domain/requester"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// ErrUnavailable is returned by ActivityAdapter when the activity service cannot be reached.
var ErrUnavailable = errors.New("activity service unavailable")

// ActivityPort gives other modules read access to the activity log.
type ActivityPort interface {
	// ListActivity returns the requester's most recent entries.
	ListActivity(ctx context.Context, limit int) ([]Entry, error)
}

// ActivityAdapter implements ActivityPort using the service container.
type ActivityAdapter struct {
	container mono.ServiceContainer
}

var _ ActivityPort = (*ActivityAdapter)(nil)

// NewActivityAdapter creates a new ActivityAdapter.
func NewActivityAdapter(container mono.ServiceContainer) *ActivityAdapter {
	return &ActivityAdapter{
		container: container,
	}
}

// ListActivity returns the requester's most recent entries.
func (a *ActivityAdapter) ListActivity(ctx context.Context, limit int) ([]Entry, error) {
	ownerID, err := requester.From(ctx)
	if err != nil {
		return nil, err
	}

	req := ListActivityRequest{OwnerID: ownerID, Limit: limit}
	var resp ListActivityResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"list-activity",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("%w: list-activity request failed: %v", ErrUnavailable, err)
	}

	if resp.Entries == nil {
		resp.Entries = make([]Entry, 0)
	}
	return resp.Entries, nil
}
