package api

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/example/task-service/modules/activity"
	"github.com/example/task-service/modules/identity"
	"github.com/example/task-service/modules/task"
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
)

// readinessTimeout bounds every dependency ping of /health/ready.
const readinessTimeout = 2 * time.Second

// Handlers contains HTTP handlers for the API.
type Handlers struct {
	identity       identity.IdentityPort
	tasks          task.TaskPort
	activity       activity.ActivityPort
	schema         graphql.Schema
	cookieName     string
	requestTimeout time.Duration
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(
	identityPort identity.IdentityPort,
	tasks task.TaskPort,
	activityPort activity.ActivityPort,
	schema graphql.Schema,
	cookieName string,
	requestTimeout time.Duration,
) *Handlers {
	return &Handlers{
		identity:       identityPort,
		tasks:          tasks,
		activity:       activityPort,
		schema:         schema,
		cookieName:     cookieName,
		requestTimeout: requestTimeout,
	}
}

// GraphQL executes a GraphQL document for the authenticated requester.
func (h *Handlers) GraphQL(c *fiber.Ctx) error {
	var req GraphQLRequest
	if c.Method() == fiber.MethodGet {
		req.Query = c.Query("query")
		req.OperationName = c.Query("operationName")
		if vars := c.Query("variables"); vars != "" {
			if err := json.Unmarshal([]byte(vars), &req.Variables); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
					Error:   "bad_request",
					Message: "Invalid variables",
				})
			}
		}
	} else if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid request body",
		})
	}

	if strings.TrimSpace(req.Query) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Query is required",
		})
	}

	ctx := c.UserContext()
	if h.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.requestTimeout)
		defer cancel()
	}
	ctx, rec := withFailureRecorder(ctx)
	ctx = withVariables(ctx, req.Variables)

	result := graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        ctx,
	})

	if err := rec.Err(); err != nil {
		log.Printf("[api] GraphQL request failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

// Live reports that the process is serving requests.
func (h *Handlers) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "healthy",
		"module": "api",
	})
}

// Ready reports whether the task store and the identity service answer.
func (h *Handlers) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
	defer cancel()

	checks := map[string]func(context.Context) error{
		"tasks":    h.tasks.Ping,
		"identity": h.identity.Ping,
	}

	resp := ReadinessResponse{Status: "ready", Checks: make(map[string]string, len(checks))}
	for name, ping := range checks {
		if err := ping(ctx); err != nil {
			log.Printf("[api] Readiness check %s failed: %v", name, err)
			resp.Status = "unavailable"
			resp.Checks[name] = err.Error()
			continue
		}
		resp.Checks[name] = "ok"
	}

	if resp.Status != "ready" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

// Register handles user registration.
func (h *Handlers) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid request body",
		})
	}

	if req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Email and password are required",
		})
	}

	user, err := h.identity.Register(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return h.handleAuthError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	})
}

// Login handles user login and stores the session token in the session cookie.
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid request body",
		})
	}

	if req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Email and password are required",
		})
	}

	session, err := h.identity.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return h.handleAuthError(c, err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cookieName,
		Value:    session.AccessToken,
		Path:     "/",
		MaxAge:   int(session.ExpiresIn),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return c.Status(fiber.StatusOK).JSON(TokenResponse{
		AccessToken: session.AccessToken,
		ExpiresIn:   session.ExpiresIn,
		TokenType:   session.TokenType,
	})
}

// Activity lists the requester's recent task activity.
func (h *Handlers) Activity(c *fiber.Ctx) error {
	entries, err := h.activity.ListActivity(c.UserContext(), c.QueryInt("limit", 50))
	if err != nil {
		log.Printf("[api] Internal error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
	}

	resp := ActivityResponse{Entries: make([]ActivityEntry, 0, len(entries)), Total: len(entries)}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, ActivityEntry{
			TaskID:     e.TaskID,
			Kind:       e.Kind,
			Summary:    e.Summary,
			OccurredAt: e.OccurredAt,
		})
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

// handleAuthError maps identity service errors onto responses without
// exposing internals. Errors crossing the bus keep only their message.
func (h *Handlers) handleAuthError(c *fiber.Ctx, err error) error {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, identity.ErrInvalidCredentials.Error()):
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Invalid email or password",
		})
	case strings.Contains(errStr, identity.ErrUserExists.Error()):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Error:   "conflict",
			Message: "User with this email already exists",
		})
	case strings.Contains(errStr, identity.ErrInvalidEmail.Error()):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid email format",
		})
	case strings.Contains(errStr, identity.ErrWeakPassword.Error()):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Password must be at least 8 characters",
		})
	case strings.Contains(errStr, identity.ErrPasswordTooLong.Error()):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Password must be at most 72 characters",
		})
	default:
		log.Printf("[api] Internal error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
	}
}
