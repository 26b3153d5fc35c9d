package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookflow/pkg/book/memory"
	"bookflow/pkg/config"
)

func setTestEnv(t *testing.T) {
	t.Helper()
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("DD_ENABLED", "false")
	t.Setenv("OTEL_HOST", "")
}

func TestOpenRepositoryMemory(t *testing.T) {
	repo, closeFn, err := openRepository(context.Background(), config.StorageConf{Driver: "memory"})
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &memory.Store{}, repo)
}

func TestOpenRepositoryUnknownDriver(t *testing.T) {
	_, _, err := openRepository(context.Background(), config.StorageConf{Driver: "mongo"})
	assert.Error(t, err)
}

func TestRunStopsOnServerError(t *testing.T) {
	setTestEnv(t)
	t.Setenv("PORT", "8081")

	var gotAddr string
	orig := listen
	listen = func(srv *http.Server, cfg config.ServiceConf) error {
		gotAddr = srv.Addr
		return http.ErrServerClosed
	}
	defer func() { listen = orig }()

	require.NoError(t, run(context.Background(), ""))
	assert.Equal(t, "localhost:8081", gotAddr)
}

func TestRunGracefulShutdown(t *testing.T) {
	setTestEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("service:\n  seed: true\n  shutdown_timeout: 1s\n"), 0o600))

	served := make(chan http.Handler, 1)
	orig := listen
	listen = func(srv *http.Server, cfg config.ServiceConf) error {
		done := make(chan struct{})
		srv.RegisterOnShutdown(func() { close(done) })
		served <- srv.Handler
		<-done
		return http.ErrServerClosed
	}
	defer func() { listen = orig }()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- run(ctx, path) }()

	var h http.Handler
	select {
	case h = <-served:
	case <-time.After(5 * time.Second):
		t.Fatal("server never started")
	}
	assert.NotNil(t, h)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestRunInvalidConfig(t *testing.T) {
	setTestEnv(t)
	t.Setenv("STORAGE_DRIVER", "mongo")
	assert.Error(t, run(context.Background(), ""))
}
