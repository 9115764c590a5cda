package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/example/task-service/config"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"gorm.io/gorm"
)

// IdentityModule stands in for the user-management service. Other modules
// reach it only through its request-reply services.
type IdentityModule struct {
	cfg        config.IdentityConfig
	bcryptCost int
	db         *gorm.DB
	repo       *UserRepository
	service    *Service
}

// Compile-time interface checks.
var _ mono.Module = (*IdentityModule)(nil)
var _ mono.ServiceProviderModule = (*IdentityModule)(nil)
var _ mono.HealthCheckableModule = (*IdentityModule)(nil)

// NewModule creates a new IdentityModule.
func NewModule(cfg config.IdentityConfig) *IdentityModule {
	return &IdentityModule{
		cfg:        cfg,
		bcryptCost: DefaultBcryptCost,
	}
}

// Name returns the module name.
func (m *IdentityModule) Name() string {
	return "identity"
}

// Start opens the user store and prepares the token manager.
func (m *IdentityModule) Start(_ context.Context) error {
	db, err := OpenUserStore(m.cfg.DBPath)
	if err != nil {
		return err
	}
	m.db = db

	m.repo = NewUserRepository(db)
	jwtManager := NewJWTManager(JWTConfig{
		SecretKey:           m.cfg.JWTSecret,
		AccessTokenDuration: m.cfg.AccessTokenTTL,
		Issuer:              m.cfg.JWTIssuer,
	})
	m.service = NewService(m.repo, NewPasswordHasher(m.bcryptCost), jwtManager)

	log.Printf("[identity] Module started (database: %s)", m.cfg.DBPath)
	return nil
}

// Stop shuts down the module.
func (m *IdentityModule) Stop(_ context.Context) error {
	if m.db != nil {
		if sqlDB, err := m.db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	log.Println("[identity] Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *IdentityModule) Health(ctx context.Context) mono.HealthStatus {
	if m.repo == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}

	if err := m.repo.Ping(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"database": m.cfg.DBPath,
		},
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *IdentityModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container,
		"register",
		json.Unmarshal,
		json.Marshal,
		m.handleRegister,
	); err != nil {
		return fmt.Errorf("failed to register register service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		"login",
		json.Unmarshal,
		json.Marshal,
		m.handleLogin,
	); err != nil {
		return fmt.Errorf("failed to register login service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		"validate-token",
		json.Unmarshal,
		json.Marshal,
		m.handleValidateToken,
	); err != nil {
		return fmt.Errorf("failed to register validate-token service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		"ping",
		json.Unmarshal,
		json.Marshal,
		m.handlePing,
	); err != nil {
		return fmt.Errorf("failed to register ping service: %w", err)
	}

	log.Printf("[identity] Registered services: register, login, validate-token, ping")
	return nil
}

func (m *IdentityModule) handleRegister(ctx context.Context, req RegisterRequest, _ *mono.Msg) (RegisterResponse, error) {
	user, err := m.service.Register(ctx, req.Email, req.Password)
	if err != nil {
		return RegisterResponse{}, err
	}

	return RegisterResponse{
		ID:        user.ID,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	}, nil
}

func (m *IdentityModule) handleLogin(ctx context.Context, req LoginRequest, _ *mono.Msg) (LoginResponse, error) {
	session, err := m.service.Login(ctx, req.Email, req.Password)
	if err != nil {
		return LoginResponse{}, err
	}

	return LoginResponse{
		AccessToken: session.AccessToken,
		ExpiresIn:   session.ExpiresIn,
		TokenType:   session.TokenType,
	}, nil
}

// handleValidateToken reports rejected tokens in the response; only store
// failures are returned as errors.
func (m *IdentityModule) handleValidateToken(ctx context.Context, req ValidateTokenRequest, _ *mono.Msg) (ValidateTokenResponse, error) {
	claims, err := m.service.ValidateToken(ctx, req.Token)
	if err != nil {
		switch {
		case errors.Is(err, ErrExpiredToken):
			return ValidateTokenResponse{Valid: false, Error: "token expired"}, nil
		case errors.Is(err, ErrInvalidToken):
			return ValidateTokenResponse{Valid: false, Error: "invalid token"}, nil
		default:
			return ValidateTokenResponse{}, err
		}
	}

	return ValidateTokenResponse{
		Valid:  true,
		UserID: claims.UserID,
		Email:  claims.Email,
	}, nil
}

func (m *IdentityModule) handlePing(ctx context.Context, _ PingRequest, _ *mono.Msg) (PingResponse, error) {
	if err := m.repo.Ping(ctx); err != nil {
		return PingResponse{Healthy: false, Message: err.Error()}, nil
	}
	return PingResponse{Healthy: true}, nil
}
