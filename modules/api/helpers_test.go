package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/task-service/config"
	"github.com/example/task-service/domain/requester"
	domain "github.com/example/task-service/domain/task"
	domainuser "github.com/example/task-service/domain/user"
	"github.com/example/task-service/modules/activity"
	"github.com/example/task-service/modules/identity"
	"github.com/example/task-service/modules/task"
	"github.com/gofiber/fiber/v2"
)

const testCookie = "auth_token"

// mockIdentityPort implements identity.IdentityPort for testing.
type mockIdentityPort struct {
	validateTokenFunc func(ctx context.Context, token string) (*domainuser.Claims, error)
	registerFunc      func(ctx context.Context, email, password string) (*domainuser.User, error)
	loginFunc         func(ctx context.Context, email, password string) (*domainuser.Session, error)
	pingFunc          func(ctx context.Context) error
	validateCalls     atomic.Int32
}

var _ identity.IdentityPort = (*mockIdentityPort)(nil)

func (m *mockIdentityPort) ValidateToken(ctx context.Context, token string) (*domainuser.Claims, error) {
	m.validateCalls.Add(1)
	if m.validateTokenFunc != nil {
		return m.validateTokenFunc(ctx, token)
	}
	return nil, errors.New("not implemented")
}

func (m *mockIdentityPort) Register(ctx context.Context, email, password string) (*domainuser.User, error) {
	if m.registerFunc != nil {
		return m.registerFunc(ctx, email, password)
	}
	return nil, errors.New("not implemented")
}

func (m *mockIdentityPort) Login(ctx context.Context, email, password string) (*domainuser.Session, error) {
	if m.loginFunc != nil {
		return m.loginFunc(ctx, email, password)
	}
	return nil, errors.New("not implemented")
}

func (m *mockIdentityPort) Ping(ctx context.Context) error {
	if m.pingFunc != nil {
		return m.pingFunc(ctx)
	}
	return nil
}

// tokenIdentity accepts "<user>-token" for every listed user.
func tokenIdentity(users ...string) *mockIdentityPort {
	valid := make(map[string]string, len(users))
	for _, u := range users {
		valid[u+"-token"] = u
	}
	return &mockIdentityPort{
		validateTokenFunc: func(_ context.Context, token string) (*domainuser.Claims, error) {
			id, ok := valid[token]
			if !ok {
				return nil, identity.ErrInvalidToken
			}
			return &domainuser.Claims{UserID: id, Email: id + "@example.com"}, nil
		},
	}
}

// serviceTaskPort serves the task port straight from a task.Service.
type serviceTaskPort struct {
	*task.Service
}

func (serviceTaskPort) Ping(context.Context) error { return nil }

func newTestTasks(t *testing.T) task.TaskPort {
	t.Helper()

	db, err := task.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	repo := task.NewGormRepository(db)
	t.Cleanup(func() { repo.Close() })

	return serviceTaskPort{task.NewService(repo)}
}

// mockTaskPort implements task.TaskPort with a single failure for every call.
type mockTaskPort struct {
	err error
}

var _ task.TaskPort = (*mockTaskPort)(nil)

func (m *mockTaskPort) CreateTask(context.Context, domain.Input) (*domain.Task, error) {
	return nil, m.err
}

func (m *mockTaskPort) GetTask(context.Context, string) (*domain.Task, error) {
	return nil, m.err
}

func (m *mockTaskPort) FindTasks(context.Context, domain.Filter) ([]*domain.Task, error) {
	return nil, m.err
}

func (m *mockTaskPort) UpdateTask(context.Context, string, domain.Input) (*domain.Task, error) {
	return nil, m.err
}

func (m *mockTaskPort) TrashTask(context.Context, string) (string, error) {
	return "", m.err
}

func (m *mockTaskPort) Ping(context.Context) error {
	return m.err
}

// mockActivityPort implements activity.ActivityPort for testing.
type mockActivityPort struct {
	entries []activity.Entry
	err     error
	owner   string
}

var _ activity.ActivityPort = (*mockActivityPort)(nil)

func (m *mockActivityPort) ListActivity(ctx context.Context, limit int) ([]activity.Entry, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.owner, _ = requester.From(ctx)
	if limit > 0 && limit < len(m.entries) {
		return m.entries[:limit], nil
	}
	return m.entries, nil
}

func newTestApp(t *testing.T, ident identity.IdentityPort, tasks task.TaskPort, act activity.ActivityPort) *fiber.App {
	t.Helper()
	return newThrottledTestApp(t, ident, tasks, act, nil)
}

func newThrottledTestApp(t *testing.T, ident identity.IdentityPort, tasks task.TaskPort, act activity.ActivityPort, limiter Limiter) *fiber.App {
	t.Helper()

	if act == nil {
		act = &mockActivityPort{}
	}
	app, err := newApp(ident, tasks, act, testCookie, config.HTTPConfig{RequestTimeout: 5 * time.Second}, limiter)
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	return app
}

func doRequest(t *testing.T, app *fiber.App, method, target, cookie string, body any) (int, []byte, *http.Response) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != "" {
		req.Header.Set("Cookie", testCookie+"="+cookie)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	return resp.StatusCode, raw, resp
}
