// Package app wires configuration into a ready resolver for the server and CLI.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kosarica/rule-resolver/config"
	"github.com/kosarica/rule-resolver/internal/backend/odoo"
	"github.com/kosarica/rule-resolver/internal/backend/postgres"
	"github.com/kosarica/rule-resolver/internal/database"
	"github.com/kosarica/rule-resolver/internal/resilience"
	"github.com/kosarica/rule-resolver/internal/resolver"
	"github.com/kosarica/rule-resolver/internal/session"
)

// Backend is a configured backend that can also report its reachability.
type Backend interface {
	resolver.Backend
	resolver.Pinger
}

// NewBackend builds the backend selected by cfg.Backend.Type. The returned
// cleanup releases its resources and is never nil.
func NewBackend(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (Backend, func(), error) {
	switch cfg.Backend.Type {
	case config.BackendOdoo:
		return newOdooBackend(cfg, logger), func() {}, nil

	case config.BackendPostgres:
		err := database.Connect(ctx, database.PoolConfig{
			URL:             cfg.Database.URL,
			MaxConns:        cfg.Database.MaxConnections,
			MinConns:        cfg.Database.MinConnections,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		})
		if err != nil {
			return nil, func() {}, err
		}
		logger.Info().Msg("Database connected")
		return postgres.NewStore(database.Pool(), logger), database.Close, nil
	}
	return nil, func() {}, fmt.Errorf("unknown backend type %q", cfg.Backend.Type)
}

func newOdooBackend(cfg *config.Config, logger *zerolog.Logger) *odoo.Backend {
	clientCfg := odoo.DefaultConfig(cfg.Backend.URL)
	if cfg.Backend.Timeout > 0 {
		clientCfg.Timeout = cfg.Backend.Timeout
	}
	clientCfg.RequestsPerSecond = cfg.Backend.RequestsPerSecond
	if cfg.Backend.Burst > 0 {
		clientCfg.Burst = cfg.Backend.Burst
	}
	clientCfg.Breaker = resilience.Config{
		MaxFailures:      cfg.Breaker.MaxFailures,
		ResetTimeout:     cfg.Breaker.ResetTimeout,
		HalfOpenMaxCalls: 1,
	}

	creds := session.Credentials{
		Database: cfg.Backend.Database,
		Username: cfg.Backend.Username,
		Password: cfg.Backend.Password,
	}
	client := odoo.NewClient(clientCfg, logger)
	sessions := session.NewMemoized(odoo.NewAuthenticator(client), creds, logger)
	return odoo.NewBackend(client, sessions, creds, cfg.Backend.ActiveField, logger)
}

// NewResolver builds the backend and a resolver over it.
func NewResolver(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*resolver.Resolver, Backend, func(), error) {
	backend, cleanup, err := NewBackend(ctx, cfg, logger)
	if err != nil {
		return nil, nil, cleanup, err
	}
	return resolver.New(backend, resolver.NewMetricsRecorder(), logger), backend, cleanup, nil
}
