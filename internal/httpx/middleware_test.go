package httpx

import (
	"bytes"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestSecurityHeadersMiddleware_HeadersSet(t *testing.T) {
	handler := SecurityHeadersMiddleware(false)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/books", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	expectedHeaders := map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"X-XSS-Protection":        "1; mode=block",
		"Content-Security-Policy": "default-src 'self'",
	}

	for header, expectedValue := range expectedHeaders {
		actualValue := w.Header().Get(header)
		if actualValue != expectedValue {
			t.Errorf("Expected %s header to be %s, got %s", header, expectedValue, actualValue)
		}
	}
	if hsts := w.Header().Get("Strict-Transport-Security"); hsts != "" {
		t.Errorf("Expected no HSTS header when disabled, got %s", hsts)
	}
}

func TestSecurityHeadersMiddleware_HSTSEnabled(t *testing.T) {
	handler := SecurityHeadersMiddleware(true)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/books", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if hsts := w.Header().Get("Strict-Transport-Security"); hsts != "max-age=31536000; includeSubDomains" {
		t.Errorf("Expected HSTS header with correct value, got %s", hsts)
	}
}

func TestRequestSizeLimitMiddleware(t *testing.T) {
	handler := RequestSizeLimitMiddleware(1024)(okHandler())

	t.Run("under limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/books", bytes.NewBuffer(make([]byte, 512)))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("Expected 200 for request under limit, got %d", w.Code)
		}
	})

	t.Run("over limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/books", bytes.NewBuffer(make([]byte, 2048)))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("Expected 413 for request over limit, got %d", w.Code)
		}
	})
}

func TestCORSMiddleware(t *testing.T) {
	handler := CORSMiddleware([]string{"http://localhost:3000"})(okHandler())

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/books", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
			t.Errorf("Expected allowed origin header, got %q", got)
		}
		if got := w.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "PUT") {
			t.Errorf("Expected PUT in allowed methods, got %q", got)
		}
	})

	t.Run("unknown origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/books", nil)
		req.Header.Set("Origin", "http://evil.example")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("Expected no CORS header, got %q", got)
		}
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/books", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusNoContent {
			t.Errorf("Expected 204 for preflight, got %d", w.Code)
		}
	})
}

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	handler := Chain(okHandler(), mark("outer"), mark("inner"))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if strings.Join(order, ",") != "outer,inner" {
		t.Errorf("Expected outer,inner got %v", order)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r)
	}))

	t.Run("generated", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/books", nil))
		if seen == "" || w.Header().Get("X-Request-Id") != seen {
			t.Errorf("Expected generated request id echoed in header, got %q / %q", seen, w.Header().Get("X-Request-Id"))
		}
	})

	t.Run("propagated", func(t *testing.T) {
		const id = "3f1c8a52-7c1e-4b55-9a8e-1f0f3f6c2d10"
		req := httptest.NewRequest(http.MethodGet, "/books", nil)
		req.Header.Set("X-Request-Id", id)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if seen != id {
			t.Errorf("Expected %s, got %q", id, seen)
		}
	})

	t.Run("canonicalized", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/books", nil)
		req.Header.Set("X-Request-Id", "{3F1C8A52-7C1E-4B55-9A8E-1F0F3F6C2D10}")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		const want = "3f1c8a52-7c1e-4b55-9a8e-1f0f3f6c2d10"
		if seen != want || w.Header().Get("X-Request-Id") != want {
			t.Errorf("Expected %s, got %q / %q", want, seen, w.Header().Get("X-Request-Id"))
		}
	})

	t.Run("non uuid replaced", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/books", nil)
		req.Header.Set("X-Request-Id", "req-123 status=200")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if seen == "req-123 status=200" || seen == "" {
			t.Errorf("Expected a fresh request id, got %q", seen)
		}
		if got := req.Header.Get("X-Request-Id"); got != seen {
			t.Errorf("Expected inbound header rewritten to %q, got %q", seen, got)
		}
	})
}

func TestRecoveryMiddleware(t *testing.T) {
	var logs bytes.Buffer
	log.SetOutput(&logs)
	defer log.SetOutput(os.Stderr)

	handler := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}), RequestIDMiddleware, AccessLogMiddleware, RecoveryMiddleware, AuthenticateMiddleware(verifier))

	req := httptest.NewRequest(http.MethodPut, "/books/1234567890", nil)
	req.Header.Set("Authorization", "Bearer employee-token")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500 after panic, got %d", w.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if resp.Error.Code != "INTERNAL_ERROR" {
		t.Errorf("Expected INTERNAL_ERROR, got %q", resp.Error.Code)
	}
	requestID := w.Header().Get("X-Request-Id")
	meta, _ := resp.Meta.(map[string]interface{})
	if meta["request_id"] != requestID {
		t.Errorf("Expected meta.request_id %q, got %v", requestID, resp.Meta)
	}

	out := logs.String()
	for _, want := range []string{
		"panic recovered method=PUT path=/books/1234567890",
		"request_id=" + requestID,
		"caller=isabelle",
		"error=boom",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected log to contain %q, got %s", want, out)
		}
	}
}

func TestRecoveryMiddleware_AfterBodyStarted(t *testing.T) {
	log.SetOutput(io.Discard)
	defer log.SetOutput(os.Stderr)

	handler := AccessLogMiddleware(RecoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, []string{"partial"})
		panic("boom")
	})))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/books", nil))

	if w.Code != http.StatusOK {
		t.Errorf("Expected committed status to stand, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "INTERNAL_ERROR") {
		t.Errorf("Expected no error envelope appended, got %s", w.Body.String())
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimitMiddleware(1, 1)
	defer rl.Close()
	handler := rl.Middleware(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/books", nil)
	w1 := httptest.NewRecorder()
	handler.ServeHTTP(w1, req)
	w2 := httptest.NewRecorder()
	handler.ServeHTTP(w2, req)

	if w1.Code != http.StatusOK {
		t.Errorf("Expected first request to pass, got %d", w1.Code)
	}
	if w2.Code != http.StatusTooManyRequests {
		t.Errorf("Expected second request to be limited, got %d", w2.Code)
	}
	if w2.Header().Get("Retry-After") == "" {
		t.Error("Expected Retry-After on limited response")
	}

	other := httptest.NewRequest(http.MethodGet, "/books", nil)
	other.RemoteAddr = "198.51.100.7:4321"
	w3 := httptest.NewRecorder()
	handler.ServeHTTP(w3, other)
	if w3.Code != http.StatusOK {
		t.Errorf("Expected another client to pass, got %d", w3.Code)
	}
}

func TestClientKey(t *testing.T) {
	tests := []struct {
		name      string
		remote    string
		forwarded string
		want      string
	}{
		{name: "remote without port", remote: "192.0.2.1:1234", want: "192.0.2.1"},
		{name: "first forwarded hop", remote: "10.0.0.1:80", forwarded: "203.0.113.9, 10.0.0.2", want: "203.0.113.9"},
		{name: "unparseable remote", remote: "pipe", want: "pipe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/books", nil)
			r.RemoteAddr = tt.remote
			if tt.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if got := clientKey(r); got != tt.want {
				t.Errorf("clientKey() = %q, want %q", got, tt.want)
			}
		})
	}
}
