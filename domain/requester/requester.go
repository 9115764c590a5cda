// Package requester carries the authenticated requester identity through the
// processing of a single request.
package requester

import (
	"context"
	"errors"
)

// ErrNoRequester is returned when the identity is read from a context that
// never went through authentication. It signals a wiring defect, not a
// client error.
var ErrNoRequester = errors.New("no requester in context")

type contextKey struct{}

// With returns a copy of ctx carrying the requester id.
func With(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// From returns the requester id stored in ctx.
func From(ctx context.Context) (string, error) {
	id, ok := ctx.Value(contextKey{}).(string)
	if !ok || id == "" {
		return "", ErrNoRequester
	}
	return id, nil
}

// MustFrom is like From but panics when no requester is present.
func MustFrom(ctx context.Context) string {
	id, err := From(ctx)
	if err != nil {
		panic(err)
	}
	return id
}
