package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-supa-todo/backend/internal/config"
	"go-supa-todo/backend/internal/logger"
	"go-supa-todo/backend/internal/models"
	"go-supa-todo/backend/internal/repositories"
	"go-supa-todo/backend/internal/services"
)

func TestOpenBackend_Memory(t *testing.T) {
	cfg := &config.Config{DBDriver: config.DriverMemory, Table: "tasks"}

	backend, err := openBackend(context.Background(), cfg, logger.Discard())
	require.NoError(t, err)
	defer backend.Close()
	assert.IsType(t, &repositories.MemoryBackend{}, backend)
	assert.NoError(t, backend.Ping(context.Background()))
}

func TestOpenBackend_Unsupported(t *testing.T) {
	_, err := openBackend(context.Background(), &config.Config{DBDriver: "sqlite"}, logger.Discard())
	assert.Error(t, err)
}

func TestNewVerifier(t *testing.T) {
	v, err := newVerifier(&config.Config{AuthMode: config.AuthOff, JWTSecret: "secret"})
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = newVerifier(&config.Config{AuthMode: config.AuthRequired, JWTSecret: "secret", SupabaseURL: "https://x.supabase.co", SupabaseAnonKey: "anon"})
	require.NoError(t, err)
	assert.IsType(t, &services.JWTVerifier{}, v)

	v, err = newVerifier(&config.Config{AuthMode: config.AuthOptional, SupabaseURL: "https://x.supabase.co", SupabaseAnonKey: "anon"})
	require.NoError(t, err)
	assert.IsType(t, &services.RemoteVerifier{}, v)
}

func TestWaitForExit_ServerFailureRunsShutdown(t *testing.T) {
	backend := repositories.NewMemoryBackend()
	_, err := backend.Scoped(repositories.Credential{}).Create(context.Background(), models.CreateTask{Title: "pending"})
	require.NoError(t, err)

	serveErr := make(chan error, 1)
	serveErr <- errors.New("listen tcp :8080: bind: address already in use")
	stopped := 0
	stop := func(context.Context) error {
		stopped++
		backend.Close()
		return nil
	}

	code := waitForExit(make(chan int), serveErr, stop, time.Second, logger.Discard())
	assert.Equal(t, 1, code)
	assert.Equal(t, 1, stopped)
	assert.Equal(t, 0, backend.Len())
}

func TestWaitForExit_SignalPassesCodeThrough(t *testing.T) {
	wait := make(chan int, 1)
	wait <- 0
	stop := func(context.Context) error {
		t.Fatal("stop is run by the shutdown handler, not by waitForExit")
		return nil
	}

	assert.Equal(t, 0, waitForExit(wait, make(chan error), stop, time.Second, logger.Discard()))
}
