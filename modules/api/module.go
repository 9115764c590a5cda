package api

import (
	"context"
	"fmt"
	"log"

	"github.com/example/task-service/config"
	"github.com/example/task-service/modules/activity"
	"github.com/example/task-service/modules/identity"
	"github.com/example/task-service/modules/task"
	"github.com/go-monolith/mono"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
)

// APIModule serves the GraphQL and REST surface over HTTP.
type APIModule struct {
	cfg        config.HTTPConfig
	cookieName string
	redisCfg   config.CacheConfig
	app        *fiber.App
	limiter    *RedisLimiter

	identity identity.IdentityPort
	tasks    task.TaskPort
	activity activity.ActivityPort
}

// Compile-time interface checks.
var _ mono.Module = (*APIModule)(nil)
var _ mono.DependentModule = (*APIModule)(nil)
var _ mono.HealthCheckableModule = (*APIModule)(nil)

// NewModule creates a new APIModule. Login throttling uses the Redis
// configured in redisCfg when available.
func NewModule(cfg config.HTTPConfig, cookieName string, redisCfg config.CacheConfig) *APIModule {
	return &APIModule{
		cfg:        cfg,
		cookieName: cookieName,
		redisCfg:   redisCfg,
	}
}

// Name returns the module name.
func (m *APIModule) Name() string {
	return "api"
}

// Dependencies returns the list of module dependencies.
func (m *APIModule) Dependencies() []string {
	return []string{"identity", "task", "activity"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *APIModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "identity":
		m.identity = identity.NewIdentityAdapter(container)
	case "task":
		m.tasks = task.NewTaskAdapter(container)
	case "activity":
		m.activity = activity.NewActivityAdapter(container)
	}
}

// Start initializes the Fiber HTTP server.
func (m *APIModule) Start(ctx context.Context) error {
	if m.identity == nil || m.tasks == nil || m.activity == nil {
		return fmt.Errorf("api dependencies not set")
	}

	var limiter Limiter
	if m.enableLimiter(ctx) {
		limiter = m.limiter
	}

	app, err := newApp(m.identity, m.tasks, m.activity, m.cookieName, m.cfg, limiter)
	if err != nil {
		return err
	}
	m.app = app

	go func() {
		if err := m.app.Listen(m.cfg.Addr); err != nil {
			log.Printf("[api] HTTP server error: %v", err)
		}
	}()

	log.Printf("[api] HTTP server started on %s", m.cfg.Addr)
	return nil
}

// enableLimiter connects the login throttle to Redis. The API serves
// without throttling when Redis is not configured or cannot be reached.
func (m *APIModule) enableLimiter(ctx context.Context) bool {
	if !m.redisCfg.Enabled() || m.cfg.LoginRateLimit <= 0 {
		return false
	}

	client := redis.NewClient(&redis.Options{
		Addr:     m.redisCfg.RedisAddr,
		Password: m.redisCfg.RedisPassword,
		DB:       m.redisCfg.RedisDB,
	})
	limiter := NewRedisLimiter(client, m.redisCfg.Prefix+"ratelimit:login:", m.cfg.LoginRateLimit, m.cfg.LoginRateWindow)
	if err := limiter.Ping(ctx); err != nil {
		log.Printf("[api] Warning: Redis unavailable at %s, login throttling disabled: %v", m.redisCfg.RedisAddr, err)
		_ = limiter.Close()
		return false
	}

	m.limiter = limiter
	return true
}

// Stop shuts down the Fiber HTTP server.
func (m *APIModule) Stop(_ context.Context) error {
	if m.limiter != nil {
		if err := m.limiter.Close(); err != nil {
			log.Printf("[api] Warning: failed to close rate limiter: %v", err)
		}
	}
	if m.app == nil {
		return nil
	}
	log.Println("[api] Shutting down HTTP server...")
	return m.app.Shutdown()
}

// Health returns the health status of the module.
func (m *APIModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: map[string]any{
			"addr":            m.cfg.Addr,
			"login_throttled": m.limiter != nil,
		},
	}
}

// newApp builds the Fiber application with every route mounted.
func newApp(
	identityPort identity.IdentityPort,
	tasks task.TaskPort,
	activityPort activity.ActivityPort,
	cookieName string,
	cfg config.HTTPConfig,
	limiter Limiter,
) (*fiber.App, error) {
	schema, err := NewSchema(tasks)
	if err != nil {
		return nil, fmt.Errorf("failed to build GraphQL schema: %w", err)
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New())

	handlers := NewHandlers(identityPort, tasks, activityPort, schema, cookieName, cfg.RequestTimeout)
	authenticated := AuthMiddleware(NewAuthenticator(identityPort, cookieName))

	app.Get("/health", handlers.Live)
	app.Get("/health/live", handlers.Live)
	app.Get("/health/ready", handlers.Ready)

	app.Post("/graphql", authenticated, handlers.GraphQL)
	app.Get("/graphql", authenticated, handlers.GraphQL)

	v1 := app.Group("/api/v1")

	authRoutes := v1.Group("/auth")
	if limiter != nil {
		authRoutes.Use(Throttle(limiter))
	}
	authRoutes.Post("/register", handlers.Register)
	authRoutes.Post("/login", handlers.Login)

	v1.Get("/activity", authenticated, handlers.Activity)

	return app, nil
}

// customErrorHandler handles Fiber errors.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   "server_error",
		Message: message,
	})
}
