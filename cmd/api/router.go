package main

import (
	"context"
	"net/http"
	"time"

	"catalogservice/internal/book"
	"catalogservice/internal/httpx"
	"catalogservice/internal/platform/identity"
)

// readinessCheck pings the backing store.
type readinessCheck func(ctx context.Context) error

// newRouter wires the catalog routes. A nil verifier runs the service without
// security: no tokens are read and write routes are open.
func newRouter(cfg config, books *book.HTTPHandler, verifier httpx.TokenVerifier, ready readinessCheck) http.Handler {
	router := http.NewServeMux()

	greeting := cfg.greeting()
	router.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		httpx.Text(w, http.StatusOK, greeting)
	})
	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := ready(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	router.HandleFunc("GET /books", books.List)
	router.HandleFunc("GET /books/{isbn}", books.Get)

	write := func(h http.HandlerFunc) http.Handler {
		if verifier == nil {
			return h
		}
		return httpx.RequireRole(identity.RoleEmployee)(h)
	}
	router.Handle("POST /books", write(books.Create))
	router.Handle("PUT /books/{isbn}", write(books.Update))
	router.Handle("DELETE /books/{isbn}", write(books.Delete))

	rateLimiter := httpx.NewRateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst)
	middlewares := []func(http.Handler) http.Handler{
		httpx.RequestIDMiddleware,
		httpx.AccessLogMiddleware,
		httpx.RecoveryMiddleware,
		httpx.SecurityHeadersMiddleware(cfg.EnableHSTS),
		httpx.CORSMiddleware(cfg.CORSAllowedOrigin),
		rateLimiter.Middleware,
		httpx.RequestSizeLimitMiddleware(cfg.MaxBodyBytes),
	}
	if verifier != nil {
		middlewares = append(middlewares, httpx.AuthenticateMiddleware(verifier))
	}
	return httpx.Chain(router, middlewares...)
}
