package api

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/example/task-service/domain/requester"
	"github.com/example/task-service/modules/identity"
	"github.com/gofiber/fiber/v2"
)

const (
	// RequesterKey is the key used to store the requester id in the Fiber locals.
	RequesterKey = "requester"
)

var (
	// ErrUnsupportedRequest is returned for requests that do not carry cookies.
	ErrUnsupportedRequest = errors.New("request does not carry credentials")
	// ErrMissingCredential is returned when the session cookie is absent.
	ErrMissingCredential = errors.New("missing session cookie")
	// ErrUnauthorized is returned when the identity service does not accept the session.
	ErrUnauthorized = errors.New("unauthorized")
)

// CookieJar is implemented by requests that expose their cookies.
// *fiber.Ctx satisfies it.
type CookieJar interface {
	Cookies(key string, defaultValue ...string) string
}

// Authenticator resolves the requester of an inbound request through the
// identity service.
type Authenticator struct {
	identity   identity.IdentityPort
	cookieName string
}

// NewAuthenticator creates an Authenticator reading the named cookie.
func NewAuthenticator(identityPort identity.IdentityPort, cookieName string) *Authenticator {
	return &Authenticator{
		identity:   identityPort,
		cookieName: cookieName,
	}
}

// Authenticate returns the requester id for req. Only the configured cookie
// is considered; every other cookie is ignored.
func (a *Authenticator) Authenticate(ctx context.Context, req any) (string, error) {
	jar, ok := req.(CookieJar)
	if !ok {
		return "", ErrUnsupportedRequest
	}

	token := jar.Cookies(a.cookieName)
	if token == "" {
		return "", ErrMissingCredential
	}

	claims, err := a.identity.ValidateToken(ctx, token)
	if err != nil {
		if errors.Is(err, identity.ErrUnavailable) {
			log.Printf("[api] Identity service unavailable: %v", err)
			return "", fmt.Errorf("%w: %w", ErrUnauthorized, err)
		}
		return "", ErrUnauthorized
	}
	if claims.UserID == "" {
		return "", ErrUnauthorized
	}

	return claims.UserID, nil
}

// AuthMiddleware creates a middleware that authenticates the session cookie
// and attaches the requester to the request context.
func AuthMiddleware(auth *Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.Authenticate(c.UserContext(), c)
		if err != nil {
			message := "Invalid or expired session"
			if errors.Is(err, ErrMissingCredential) {
				message = "Session cookie is required"
			}
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: message,
			})
		}

		c.SetUserContext(requester.With(c.UserContext(), id))
		c.Locals(RequesterKey, id)

		return c.Next()
	}
}
