package api

import (
	"context"
	"time"

	"github.com/linesmerrill/traffic-portal-api/models"
)

// QueryTimeout is the default timeout for store queries
const QueryTimeout = 10 * time.Second

// WithQueryTimeout creates a context with query timeout
func WithQueryTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, QueryTimeout)
}

type actorContextKey struct{}

// WithActor stores the authenticated caller on ctx
func WithActor(ctx context.Context, a models.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, a)
}

// ActorFrom returns the caller stored by WithActor
func ActorFrom(ctx context.Context) (models.Actor, bool) {
	a, ok := ctx.Value(actorContextKey{}).(models.Actor)
	return a, ok
}
