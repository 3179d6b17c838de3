package httpx

import (
	"context"

	"github.com/target/cms-admin/internal/service"
)

// sessionKey is an unexported context key type to avoid collisions across packages.
type sessionKey struct{}

// requestIDKey carries the per-request correlation id.
type requestIDKey struct{}

// SetSessionInContext returns a child context that carries the request's session manager.
// If session is nil, the original ctx is returned unchanged.
func SetSessionInContext(ctx context.Context, session *service.SessionManager) context.Context {
	if session == nil {
		return ctx
	}
	return context.WithValue(ctx, sessionKey{}, session)
}

// SessionFromContext returns the session manager from context and a boolean indicating presence.
func SessionFromContext(ctx context.Context) (*service.SessionManager, bool) {
	if s, ok := ctx.Value(sessionKey{}).(*service.SessionManager); ok && s != nil {
		return s, true
	}
	return nil, false
}

// RequestIDFromContext returns the correlation id assigned by RequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
