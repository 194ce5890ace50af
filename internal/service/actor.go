package service

import (
	"context"
	"strings"
)

// ActivityActor represents the authenticated staff member performing a ledger action.
type ActivityActor struct {
	ID   uint
	Role string
}

type actorContextKey struct{}
type correlationContextKey struct{}

// WithActor attaches the acting user to ctx.
func WithActor(ctx context.Context, actor ActivityActor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext returns the acting user, or the system actor when none is set.
func ActorFromContext(ctx context.Context) ActivityActor {
	if actor, ok := ctx.Value(actorContextKey{}).(ActivityActor); ok {
		return actor
	}
	return ActivityActor{Role: "system"}
}

// WithCorrelationID attaches the request correlation id to ctx.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	id = strings.TrimSpace(id)
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationContextKey{}, id)
}

// CorrelationIDFromContext returns the correlation id, if any.
func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(correlationContextKey{}).(string)
	return id
}
