package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"catalogservice/internal/book"
	"catalogservice/internal/httpx"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	repo, ready, closeStore := mustOpenStore(cfg, logger)
	defer closeStore()

	if cfg.LoadTestData {
		loaded, err := book.LoadTestData(context.Background(), repo)
		if err != nil {
			log.Fatalf("cannot load test data: %v", err)
		}
		log.Printf("test data loaded books=%d", len(loaded))
	}

	var verifier httpx.TokenVerifier
	if cfg.SecurityEnabled {
		v, err := cfg.newVerifier()
		if err != nil {
			log.Fatalf("cannot build token verifier: %v", err)
		}
		verifier = v
	} else {
		log.Println("security disabled: write routes are open to anonymous callers")
	}

	handler := newRouter(cfg, book.NewHTTPHandler(book.NewService(repo)), verifier, ready)

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Starting server on %s storage=%s", cfg.Addr, cfg.StorageDriver)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

func mustOpenStore(cfg config, logger *slog.Logger) (book.Repository, readinessCheck, func()) {
	if cfg.StorageDriver == storageMemory {
		log.Println("using in-memory storage")
		return book.NewMemoryRepo(),
			func(context.Context) error { return nil },
			func() {}
	}

	pool := mustOpenDB(cfg.DSN)
	repo := book.NewPostgresRepo(pool, cfg.DBTimeout, book.WithLogger(logger))
	return repo, pool.Ping, pool.Close
}

func mustOpenDB(dsn string) *pgxpool.Pool {
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatalf("cannot create db pool: %v", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		log.Fatalf("cannot ping database (%s): %v", redactDSN(dsn), err)
	}
	log.Println("database connection OK")
	return pool
}

func redactDSN(dsn string) string {
	const marker = "://"
	start := strings.Index(dsn, marker)
	if start < 0 {
		return dsn
	}
	start += len(marker)
	end := strings.Index(dsn[start:], "@")
	if end < 0 {
		return dsn
	}
	return dsn[:start] + "***" + dsn[start+end:]
}
