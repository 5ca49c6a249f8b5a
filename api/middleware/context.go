package middleware

import (
	"context"

	"github.com/angelmondragon/cartsync/pkg/auth"
)

type contextKey string

const ctxSession contextKey = "session"

// SessionFromContext returns the session resolved by Auth, or an empty
// (unauthenticated) session.
func SessionFromContext(ctx context.Context) auth.SessionContext {
	if ctx == nil {
		return auth.SessionContext{}
	}
	if v, ok := ctx.Value(ctxSession).(auth.SessionContext); ok {
		return v
	}
	return auth.SessionContext{}
}

// WithSession injects the session into the context for downstream handlers.
func WithSession(ctx context.Context, sess auth.SessionContext) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxSession, sess)
}
