package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	_ "bookflow/docs"
	"bookflow/pkg/book"
	"bookflow/pkg/book/memory"
	pg "bookflow/pkg/book/postgres"
	"bookflow/pkg/book/redisstore"
	"bookflow/pkg/config"
	"bookflow/pkg/handler"
	"bookflow/pkg/logger"
	"bookflow/pkg/metrics"
	"bookflow/pkg/otel"
)

// @title Livros API
// @version 1.0
// @description API for managing a book catalog
// @host localhost:8000
// @BasePath /
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Getenv("CONFIG_FILE")); err != nil {
		fmt.Fprintln(os.Stderr, "bookflow:", err)
		os.Exit(1)
	}
}

// listen is swapped out by tests.
var listen = func(srv *http.Server, cfg config.ServiceConf) error {
	if cfg.TLS() {
		return srv.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
	}
	return srv.ListenAndServe()
}

func run(ctx context.Context, cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	level, err := logger.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	log := logger.New(os.Stdout, level, cfg.Service.Name, otel.GetTraceID)
	defer log.Sync()

	tp, shutdownTracing, err := otel.InitTracing(log, otel.Config{
		ServiceName: cfg.Service.Name,
		Host:        cfg.Tracing.Host,
		Probability: cfg.Tracing.Probability,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer shutdownTracing(context.Background())

	mp, err := metrics.Setup(metrics.Config{
		Enabled:   cfg.Metrics.Enabled,
		Addr:      cfg.Metrics.Addr,
		Namespace: cfg.Metrics.Namespace,
		Tags:      []string{"service:" + cfg.Service.Name},
	})
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	if c, ok := mp.(io.Closer); ok {
		defer c.Close()
	}

	repo, closeRepo, err := openRepository(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer closeRepo()
	log.Info(ctx, "storage ready", "driver", cfg.Storage.Driver)

	if cfg.Service.Seed {
		n, err := book.Seed(ctx, repo, book.SeedData())
		if err != nil {
			return err
		}
		log.Info(ctx, "catalog seeded", "books", n)
	}

	h, err := handler.New(repo, log, mp, tp.Tracer(cfg.Service.Name)).Handler(cfg.Service.Compression)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              cfg.Service.Addr(),
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "listening", "addr", srv.Addr, "tls", cfg.Service.TLS())
		errCh <- listen(srv, cfg.Service)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server closed: %w", err)
	case <-ctx.Done():
	}

	log.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Service.GetShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openRepository builds the configured book.Repository and a func that
// releases it.
func openRepository(ctx context.Context, cfg config.StorageConf) (book.Repository, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Driver {
	case "", "memory":
		return memory.New(), noop, nil
	case "postgres":
		repo, err := pg.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, noop, err
		}
		return repo, repo.Close, nil
	case "redis":
		store, err := redisstore.Open(ctx, &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, cfg.RedisPrefix)
		if err != nil {
			return nil, noop, err
		}
		return store, store.Close, nil
	}
	return nil, noop, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}
