package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	domain "github.com/example/task-service/domain/user"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// ErrUnavailable is returned when the identity service cannot be reached.
var ErrUnavailable = errors.New("identity service unavailable")

// IdentityPort defines the identity operations available to other modules.
type IdentityPort interface {
	// ValidateToken exchanges a session token for the identity of its owner.
	ValidateToken(ctx context.Context, token string) (*domain.Claims, error)
	Register(ctx context.Context, email, password string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.Session, error)
	Ping(ctx context.Context) error
}

// IdentityAdapter implements IdentityPort using the service container.
type IdentityAdapter struct {
	container mono.ServiceContainer
}

var _ IdentityPort = (*IdentityAdapter)(nil)

// NewIdentityAdapter creates a new IdentityAdapter.
func NewIdentityAdapter(container mono.ServiceContainer) *IdentityAdapter {
	return &IdentityAdapter{
		container: container,
	}
}

// ValidateToken validates a session token and returns its claims.
func (a *IdentityAdapter) ValidateToken(ctx context.Context, token string) (*domain.Claims, error) {
	req := ValidateTokenRequest{Token: token}
	var resp ValidateTokenResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"validate-token",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("%w: validate-token request failed: %v", ErrUnavailable, err)
	}

	if !resp.Valid {
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, resp.Error)
	}

	return &domain.Claims{
		UserID: resp.UserID,
		Email:  resp.Email,
	}, nil
}

// Register creates a user account.
func (a *IdentityAdapter) Register(ctx context.Context, email, password string) (*domain.User, error) {
	req := RegisterRequest{Email: email, Password: password}
	var resp RegisterResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"register",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("register request failed: %w", err)
	}

	return &domain.User{
		ID:        resp.ID,
		Email:     resp.Email,
		CreatedAt: resp.CreatedAt,
	}, nil
}

// Login opens a session.
func (a *IdentityAdapter) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	req := LoginRequest{Email: email, Password: password}
	var resp LoginResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"login",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}

	return &domain.Session{
		AccessToken: resp.AccessToken,
		ExpiresIn:   resp.ExpiresIn,
		TokenType:   resp.TokenType,
	}, nil
}

// Ping checks that the identity service is reachable.
func (a *IdentityAdapter) Ping(ctx context.Context) error {
	req := PingRequest{}
	var resp PingResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"ping",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return fmt.Errorf("%w: ping request failed: %v", ErrUnavailable, err)
	}
	if !resp.Healthy {
		return fmt.Errorf("%w: %s", ErrUnavailable, resp.Message)
	}
	return nil
}
