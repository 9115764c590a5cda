package identity

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/task-service/config"
	"golang.org/x/crypto/bcrypt"
)

func startTestModule(t *testing.T) *IdentityModule {
	t.Helper()

	cfg := config.Default().Identity
	cfg.DBPath = filepath.Join(t.TempDir(), "identity.db")
	cfg.AccessTokenTTL = time.Minute

	m := NewModule(cfg)
	m.bcryptCost = bcrypt.MinCost
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { m.Stop(context.Background()) })
	return m
}

func TestIdentityModule_Handlers(t *testing.T) {
	m := startTestModule(t)
	ctx := context.Background()

	reg, err := m.handleRegister(ctx, RegisterRequest{Email: "bob@example.com", Password: "password123"}, nil)
	if err != nil {
		t.Fatalf("handleRegister() error = %v", err)
	}

	login, err := m.handleLogin(ctx, LoginRequest{Email: "bob@example.com", Password: "password123"}, nil)
	if err != nil {
		t.Fatalf("handleLogin() error = %v", err)
	}
	if login.ExpiresIn != 60 {
		t.Errorf("login.ExpiresIn = %v, want %v", login.ExpiresIn, 60)
	}

	resp, err := m.handleValidateToken(ctx, ValidateTokenRequest{Token: login.AccessToken}, nil)
	if err != nil {
		t.Fatalf("handleValidateToken() error = %v", err)
	}
	if !resp.Valid || resp.UserID != reg.ID {
		t.Errorf("handleValidateToken() = %+v, want valid token for %s", resp, reg.ID)
	}
}

func TestIdentityModule_RejectedToken(t *testing.T) {
	m := startTestModule(t)

	resp, err := m.handleValidateToken(context.Background(), ValidateTokenRequest{Token: "garbage"}, nil)
	if err != nil {
		t.Fatalf("handleValidateToken() error = %v", err)
	}
	if resp.Valid {
		t.Error("handleValidateToken() reported a garbage token as valid")
	}
	if resp.Error != "invalid token" {
		t.Errorf("resp.Error = %v, want %v", resp.Error, "invalid token")
	}
}

func TestIdentityModule_Health(t *testing.T) {
	if status := NewModule(config.Default().Identity).Health(context.Background()); status.Healthy {
		t.Error("Health() = healthy before Start")
	}

	m := startTestModule(t)
	if status := m.Health(context.Background()); !status.Healthy {
		t.Errorf("Health() = %+v, want healthy", status)
	}

	ping, err := m.handlePing(context.Background(), PingRequest{}, nil)
	if err != nil || !ping.Healthy {
		t.Errorf("handlePing() = %+v, %v", ping, err)
	}
}
