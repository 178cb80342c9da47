package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/politicianfinder/edge-gate/internal/config"
	"github.com/politicianfinder/edge-gate/internal/database"
)

// Stores are the configuration tables the gate reloads at runtime.
type Stores struct {
	Ratelimit database.RatelimitConfigStore
	Cors      database.CorsConfigStore
}

// Env resolves what the commands need. Tests replace both functions.
type Env struct {
	LoadConfig func() (*config.Config, error)
	OpenStores func(ctx context.Context, cfg *config.Config) (*Stores, func() error, error)
}

// DefaultEnv loads configuration from the environment and connects to Postgres.
func DefaultEnv() *Env {
	return &Env{
		LoadConfig: config.Load,
		OpenStores: openDatabaseStores,
	}
}

func openDatabaseStores(ctx context.Context, cfg *config.Config) (*Stores, func() error, error) {
	if cfg.DatabaseURL == "" {
		return nil, nil, errors.New("DATABASE_URL is required")
	}
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := db.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Stores{
		Ratelimit: database.NewRatelimitConfigRepository(db),
		Cors:      database.NewCorsConfigRepository(db),
	}, db.Close, nil
}

func (e *Env) withStores(ctx context.Context, fn func(*Stores) error) error {
	cfg, err := e.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	stores, closeFn, err := e.OpenStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeFn != nil {
			_ = closeFn()
		}
	}()
	return fn(stores)
}
