package internal

import (
	"context"
	"time"
)

type ctxKey string

const ContextActorKey ctxKey = "actor"

// Actor is the authenticated administrator performing an operation. It is resolved by the
// auth middleware and passed explicitly through the request context.
type Actor struct {
	ID          int64    `json:"id"`
	Email       string   `json:"email"`
	RoleLevel   int      `json:"role_level"`
	Permissions []string `json:"permissions"`
}

func ContextWithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, ContextActorKey, actor)
}

func ActorFromContext(ctx context.Context) (*Actor, bool) {
	if ctx == nil {
		return nil, false
	}
	actor, ok := ctx.Value(ContextActorKey).(*Actor)
	return actor, ok && actor != nil
}

// ActorID returns the acting user's id, or 0 for system and anonymous calls.
func ActorID(ctx context.Context) int64 {
	if actor, ok := ActorFromContext(ctx); ok {
		return actor.ID
	}
	return 0
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
