package httpx

import (
	"net/http"

	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-Id"

// RequestIDMiddleware keeps an inbound request id only when it is a UUID, so
// access log lines cannot be forged through the header. Accepted ids are
// rewritten in canonical form and written back onto the request so every
// layer below logs and echoes the same value.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := canonicalRequestID(r.Header.Get(requestIDHeader))

		r.Header.Set(requestIDHeader, requestID)
		w.Header().Set(requestIDHeader, requestID)
		ctx := ContextWithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func canonicalRequestID(raw string) string {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
