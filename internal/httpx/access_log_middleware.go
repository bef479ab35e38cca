package httpx

import (
	"log"
	"net/http"
	"time"

	"catalogservice/internal/platform/identity"
)

type responseWriter struct {
	http.ResponseWriter
	statusCode    int
	bytesWritten  int64
	headerWritten bool
	caller        identity.Caller
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.headerWritten {
		rw.statusCode = code
		rw.headerWritten = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.headerWritten {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

func (rw *responseWriter) wroteHeader() bool {
	return rw.headerWritten
}

// recordCaller lets the access log see the caller resolved by an inner middleware.
func recordCaller(w http.ResponseWriter, caller identity.Caller) {
	if rw, ok := w.(*responseWriter); ok {
		rw.caller = caller
	}
}

func AccessLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		requestID := RequestIDFrom(r)
		caller := rw.caller

		log.Printf("access method=%s path=%s status=%d bytes=%d duration_ms=%d request_id=%s caller=%s",
			r.Method,
			r.URL.Path,
			rw.statusCode,
			rw.bytesWritten,
			duration.Milliseconds(),
			requestID,
			caller.Name,
		)
	})
}
