package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/politicianfinder/edge-gate/internal/config"
	"github.com/politicianfinder/edge-gate/internal/middleware"
	"github.com/politicianfinder/edge-gate/internal/ratelimit"
	"github.com/politicianfinder/edge-gate/internal/request"
	"github.com/politicianfinder/edge-gate/internal/services/auth"
	"github.com/politicianfinder/edge-gate/internal/validation"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// edgeGate groups the gate with the stages that are reconfigured at runtime.
type edgeGate struct {
	gate      *middleware.Gate
	cors      *middleware.CORSStage
	rateLimit *middleware.RateLimitStage
	memory    *ratelimit.MemoryStore // non-nil only for the plain memory backend
	clientKey func(*http.Request) string
}

// newRecordStore selects the rate record backend. redisClient may be nil for memory backends.
func newRecordStore(cfg *config.Config, redisClient *redis.Client) (ratelimit.RecordStore, *ratelimit.MemoryStore, error) {
	policy := cfg.RatePolicy()

	switch cfg.RateLimitStore {
	case validation.StoreMemory:
		mem := ratelimit.NewMemoryStore()
		return mem, mem, nil
	case validation.StoreRedis:
		if redisClient == nil {
			return nil, nil, fmt.Errorf("rate limit store %q requires a redis client", cfg.RateLimitStore)
		}
		return ratelimit.NewRedisStore(redisClient, policy.Window), nil, nil
	case validation.StoreUluleMemory:
		return ratelimit.NewUluleMemoryStore(policy, policy.Window), nil, nil
	case validation.StoreUluleRedis:
		if redisClient == nil {
			return nil, nil, fmt.Errorf("rate limit store %q requires a redis client", cfg.RateLimitStore)
		}
		store, err := ratelimit.NewUluleRedisStore(redisClient, policy)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown rate limit store %q", cfg.RateLimitStore)
	}
}

// newVerifier builds the configured token verifier.
func newVerifier(cfg *config.Config, client *http.Client) (auth.Verifier, error) {
	return auth.New(cfg.VerifierSettings(), client)
}

// newEdgeGate assembles the stages in their fixed order: CORS, global throttle,
// per-client rate limit, bearer auth.
func newEdgeGate(cfg *config.Config, store ratelimit.RecordStore, verifier auth.Verifier, sink middleware.EventSink, log *zap.Logger, now func() time.Time) *edgeGate {
	clientKey := request.ClientKeyFunc(cfg.TrustProxyHeaders)

	var limiterOpts []ratelimit.LimiterOption
	if now != nil {
		limiterOpts = append(limiterOpts, ratelimit.WithClock(now))
	}
	limiter := ratelimit.NewLimiter(store, cfg.RatePolicy(), limiterOpts...)

	corsStage := middleware.NewCORSStage(cfg.CORSAllowedOrigins, cfg.CORSMaxAgeSeconds)
	rateStage := middleware.NewRateLimitStage(limiter, clientKey, log)
	rateStage.SetFailClosed(cfg.RateLimitFailClosed)

	stages := []middleware.Stage{corsStage}
	if throttle := middleware.NewThrottleStage(ratelimit.NewThrottle(cfg.GlobalRateRPS, cfg.GlobalRateBurst)); throttle != nil {
		stages = append(stages, throttle)
	}
	stages = append(stages, rateStage, middleware.NewAuthStage(verifier, cfg.AuthTimeout, log))

	eg := &edgeGate{
		gate: middleware.NewGate(log, stages,
			middleware.WithEventSink(sink),
			middleware.WithClientKey(clientKey),
		),
		cors:      corsStage,
		rateLimit: rateStage,
		clientKey: clientKey,
	}
	if mem, ok := store.(*ratelimit.MemoryStore); ok {
		eg.memory = mem
	}
	return eg
}
