package middleware

import (
	"context"
	"time"

	"github.com/politicianfinder/edge-gate/internal/database"
	"go.uber.org/zap"
)

// CORSReloader periodically loads allowed origins from the database into the CORS stage.
type CORSReloader struct {
	stage    *CORSStage
	repo     database.CorsConfigStore
	fallback []string
	maxAge   int
	log      *zap.Logger
	interval time.Duration
}

// NewCORSReloader creates a reloader. fallback origins apply when the database has no config.
func NewCORSReloader(stage *CORSStage, repo database.CorsConfigStore, fallback []string, maxAge int, log *zap.Logger, reloadInterval time.Duration) *CORSReloader {
	return &CORSReloader{
		stage:    stage,
		repo:     repo,
		fallback: fallback,
		maxAge:   maxAge,
		log:      log,
		interval: reloadInterval,
	}
}

// Start loads once immediately, then on every tick until ctx is cancelled.
func (r *CORSReloader) Start(ctx context.Context) {
	r.Load(ctx)
	if r.interval <= 0 {
		return
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Load(ctx)
		}
	}
}

// Load reads the config once and applies it.
func (r *CORSReloader) Load(ctx context.Context) {
	origins := r.fallback
	maxAge := r.maxAge

	cfg, err := r.repo.Get(ctx)
	if err != nil {
		r.log.Warn("failed_to_load_cors_config_from_db_using_default", zap.Error(err))
	} else if cfg != nil {
		if fromDB := database.AllowedOriginsSlice(cfg.AllowedOrigins); len(fromDB) > 0 {
			origins = fromDB
		}
		maxAge = cfg.MaxAge
	}

	r.stage.SetOrigins(origins, maxAge)
}
