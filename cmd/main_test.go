package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-backoffice/internal/config"
	"github.com/ukydev/fleet-backoffice/internal/db/sqlite"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:        "0",
		StoreDriver: config.DriverSQLite,
		SQLitePath:  ":memory:",
		JWTSecret:   "test-secret",
		JWTExpiry:   time.Hour,
		CORSOrigins: []string{"*"},
		RateLimit:   100,
		RateWindow:  time.Minute,
		LogLevel:    "info",
		LogFormat:   "text",
	}
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestApp(t *testing.T, cfg *config.Config) *app {
	t.Helper()
	store, err := openStore(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close(context.Background()) })

	a, err := newApp(cfg, store, testLogger())
	require.NoError(t, err)
	return a
}

func TestOpenStore(t *testing.T) {
	cfg := testConfig()
	store, err := openStore(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &sqlite.Store{}, store)
	require.NoError(t, store.Close(context.Background()))

	cfg.StoreDriver = "postgres"
	_, err = openStore(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewApp_RejectsMissingSecret(t *testing.T) {
	cfg := testConfig()
	cfg.JWTSecret = ""
	store, err := openStore(context.Background(), cfg)
	require.NoError(t, err)
	defer store.Close(context.Background())

	_, err = newApp(cfg, store, testLogger())
	assert.Error(t, err)
}

func TestNewApp_ServesAPI(t *testing.T) {
	a := newTestApp(t, testConfig())

	w := httptest.NewRecorder()
	a.server.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	a.server.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/fuel-cards", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	a := newTestApp(t, testConfig())
	a.server.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestApp_RunReportsListenError(t *testing.T) {
	a := newTestApp(t, testConfig())
	a.server.Addr = "invalid-address"

	done := make(chan error, 1)
	go func() { done <- a.run(context.Background()) }()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after listen failure")
	}
}
