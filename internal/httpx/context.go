package httpx

import (
	"context"
	"net/http"

	"catalogservice/internal/platform/identity"
)

type contextKey string

const (
	callerKey    contextKey = "caller"
	requestIDKey contextKey = "requestID"
)

// CallerFrom retrieves the caller from the request context. Requests without a
// verified bearer token yield the anonymous caller.
func CallerFrom(r *http.Request) identity.Caller {
	if v, ok := r.Context().Value(callerKey).(identity.Caller); ok {
		return v
	}
	return identity.Anonymous
}

// ContextWithCaller returns a new context carrying the caller.
func ContextWithCaller(ctx context.Context, caller identity.Caller) context.Context {
	return context.WithValue(ctx, callerKey, caller)
}

// RequestIDFrom retrieves the request ID from the request context.
func RequestIDFrom(r *http.Request) string {
	if v, ok := r.Context().Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}
