package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosarica/rule-resolver/config"
	"github.com/kosarica/rule-resolver/internal/backend/odoo"
	"github.com/kosarica/rule-resolver/internal/backend/postgres"
)

func TestNewBackendOdoo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": 1, "result": map[string]any{"server_version": "17.0"}})
	}))
	defer srv.Close()

	cfg := &config.Config{
		Backend: config.BackendConfig{Type: config.BackendOdoo, URL: srv.URL, Database: "shop", Username: "svc", Timeout: time.Second},
		Breaker: config.BreakerConfig{MaxFailures: 3, ResetTimeout: time.Second},
	}
	logger := zerolog.Nop()

	backend, cleanup, err := NewBackend(context.Background(), cfg, &logger)
	require.NoError(t, err)
	defer cleanup()

	assert.IsType(t, &odoo.Backend{}, backend)
	assert.NoError(t, backend.Ping(context.Background()))
}

func TestNewBackendPostgresBadURL(t *testing.T) {
	cfg := &config.Config{
		Backend:  config.BackendConfig{Type: config.BackendPostgres},
		Database: config.DatabaseConfig{URL: "://not-a-url"},
	}
	logger := zerolog.Nop()

	backend, cleanup, err := NewBackend(context.Background(), cfg, &logger)
	assert.Error(t, err)
	assert.Nil(t, backend)
	assert.NotNil(t, cleanup)
}

func TestNewBackendUnknownType(t *testing.T) {
	logger := zerolog.Nop()
	_, _, err := NewBackend(context.Background(), &config.Config{Backend: config.BackendConfig{Type: "csv"}}, &logger)
	assert.Error(t, err)
}

var _ Backend = (*postgres.Store)(nil)
