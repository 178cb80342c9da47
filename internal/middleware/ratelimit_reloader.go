package middleware

import (
	"context"
	"time"

	"github.com/politicianfinder/edge-gate/internal/database"
	"github.com/politicianfinder/edge-gate/internal/models"
	"github.com/politicianfinder/edge-gate/internal/ratelimit"
	"go.uber.org/zap"
)

// RateLimitReloader periodically loads the gate rate from the database and swaps it into the rate limit stage.
type RateLimitReloader struct {
	stage    *RateLimitStage
	repo     database.RatelimitConfigStore
	fallback ratelimit.Policy
	log      *zap.Logger
	interval time.Duration
}

// NewRateLimitReloader creates a reloader. fallback is used, and saved, when the database has no config.
func NewRateLimitReloader(stage *RateLimitStage, repo database.RatelimitConfigStore, fallback ratelimit.Policy, log *zap.Logger, reloadInterval time.Duration) *RateLimitReloader {
	return &RateLimitReloader{
		stage:    stage,
		repo:     repo,
		fallback: fallback,
		log:      log,
		interval: reloadInterval,
	}
}

// Start loads once immediately, then on every tick until ctx is cancelled.
func (r *RateLimitReloader) Start(ctx context.Context) {
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
func (r *RateLimitReloader) Load(ctx context.Context) {
	policy := r.fallback
	cfg, err := r.repo.Get(ctx)
	switch {
	case err != nil:
		r.log.Warn("failed_to_load_ratelimit_config_from_db_using_default",
			zap.Error(err),
			zap.String("default_policy", r.fallback.String()),
		)
	case cfg != nil && cfg.Rate != "":
		parsed, perr := ratelimit.PolicyFromRate(cfg.Rate)
		if perr != nil {
			r.log.Error("failed_to_parse_rate_limit_using_default",
				zap.Error(perr),
				zap.String("rate_str", cfg.Rate),
				zap.String("default_policy", r.fallback.String()),
			)
		} else {
			policy = parsed
		}
		r.stage.SetFailClosed(cfg.FailClosed)
	default:
		if formatted, ok := r.fallback.Formatted(); ok {
			if err := r.repo.Set(ctx, &models.RatelimitConfig{Rate: formatted}); err != nil {
				r.log.Error("failed_to_save_default_ratelimit_config",
					zap.Error(err),
					zap.String("default_rate", formatted),
				)
			}
		}
	}

	limiter := r.stage.Limiter()
	if limiter.Policy() != policy {
		limiter.SetPolicy(policy)
		r.log.Info("rate_limit_policy_applied",
			zap.Int64("limit", policy.Limit),
			zap.Duration("window", policy.Window),
		)
	}
}
