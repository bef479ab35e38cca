package httpx

import (
	"log"
	"net/http"
	"runtime/debug"

	"catalogservice/internal/platform/identity"
)

// RecoveryMiddleware turns a panicking catalog handler into a 500 envelope. It
// sits outside authentication, so the caller is read from what the auth layer
// recorded on the shared writer rather than from the request context.
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			caller, committed := recoveredState(w, r)
			log.Printf("panic recovered method=%s path=%s request_id=%s caller=%s error=%v stack=%s",
				r.Method, r.URL.Path, RequestIDFrom(r), caller.Name, rec, debug.Stack())

			// A half-written book payload cannot be replaced.
			if committed {
				return
			}
			JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred", nil)
		}()
		next.ServeHTTP(w, r)
	})
}

func recoveredState(w http.ResponseWriter, r *http.Request) (identity.Caller, bool) {
	rw, ok := w.(*responseWriter)
	if !ok {
		return CallerFrom(r), false
	}
	if rw.caller.Authenticated() {
		return rw.caller, rw.wroteHeader()
	}
	return CallerFrom(r), rw.wroteHeader()
}
