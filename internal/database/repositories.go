package database

import (
	"context"

	"github.com/politicianfinder/edge-gate/internal/models"
)

// RatelimitConfigStore reads and writes the gate rate limit configuration.
type RatelimitConfigStore interface {
	Get(ctx context.Context) (*models.RatelimitConfig, error)
	Set(ctx context.Context, c *models.RatelimitConfig) error
}

// CorsConfigStore reads and writes the gate CORS configuration.
type CorsConfigStore interface {
	Get(ctx context.Context) (*models.CorsConfig, error)
	Set(ctx context.Context, c *models.CorsConfig) error
}

// Ensure concrete types implement the interfaces
var (
	_ RatelimitConfigStore = (*RatelimitConfigRepository)(nil)
	_ CorsConfigStore      = (*CorsConfigRepository)(nil)
)
