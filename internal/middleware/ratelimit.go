package middleware

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"sync/atomic"

	logpkg "github.com/politicianfinder/edge-gate/internal/logger"
	"github.com/politicianfinder/edge-gate/internal/models"
	"github.com/politicianfinder/edge-gate/internal/ratelimit"
	"go.uber.org/zap"
)

// errOverloaded is returned by the process-wide throttle.
var errOverloaded = errors.New("gate overloaded")

// RateLimitStage enforces the per-client ceiling.
type RateLimitStage struct {
	limiter    *ratelimit.Limiter
	keyFn      func(*http.Request) string
	logger     *zap.Logger
	failClosed atomic.Bool
}

// NewRateLimitStage creates the stage. keyFn derives the client identifier.
func NewRateLimitStage(limiter *ratelimit.Limiter, keyFn func(*http.Request) string, logger *zap.Logger) *RateLimitStage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimitStage{limiter: limiter, keyFn: keyFn, logger: logger}
}

// SetFailClosed controls whether a store failure rejects (true) or admits (false) the request.
func (s *RateLimitStage) SetFailClosed(v bool) { s.failClosed.Store(v) }

// Limiter returns the underlying limiter.
func (s *RateLimitStage) Limiter() *ratelimit.Limiter { return s.limiter }

// Name implements Stage.
func (s *RateLimitStage) Name() string { return "rate_limit" }

// Check implements Stage.
func (s *RateLimitStage) Check(r *http.Request) Verdict {
	key := s.keyFn(r)
	d, err := s.limiter.Allow(r.Context(), key)
	if err != nil {
		s.logger.Warn("rate_limit_store_unavailable",
			zap.Error(err),
			zap.Bool("fail_closed", s.failClosed.Load()),
			zap.String("ip", logpkg.SanitizeString(key, logpkg.MaxGeneralStringLength)),
		)
		if s.failClosed.Load() {
			return Verdict{
				Outcome: Deny,
				Status:  http.StatusServiceUnavailable,
				Err:     err,
				Message: "Rate limiting is temporarily unavailable",
			}
		}
		return Verdict{Outcome: Continue}
	}

	h := http.Header{}
	h.Set("X-RateLimit-Limit", strconv.FormatInt(d.Limit, 10))
	h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

	if !d.Allowed {
		retry := int(math.Ceil(d.RetryAfter(s.limiter.Now()).Seconds()))
		if retry < 1 {
			retry = 1
		}
		h.Set("Retry-After", strconv.Itoa(retry))
		return Verdict{
			Outcome: Deny,
			Status:  http.StatusTooManyRequests,
			Header:  h,
			Err:     ratelimit.ErrRateLimitExceeded,
			Message: "Too many requests, retry later",
			Event:   models.GateEventRateLimited,
		}
	}
	return Verdict{Outcome: Continue, Header: h}
}

// ThrottleStage rejects requests once the process-wide token bucket is empty.
type ThrottleStage struct {
	throttle *ratelimit.Throttle
}

// NewThrottleStage returns nil when throttle is nil so callers can skip it.
func NewThrottleStage(throttle *ratelimit.Throttle) *ThrottleStage {
	if throttle == nil {
		return nil
	}
	return &ThrottleStage{throttle: throttle}
}

// Name implements Stage.
func (s *ThrottleStage) Name() string { return "throttle" }

// Check implements Stage.
func (s *ThrottleStage) Check(r *http.Request) Verdict {
	if s.throttle.Allow() {
		return Verdict{Outcome: Continue}
	}
	h := http.Header{}
	h.Set("Retry-After", "1")
	return Verdict{
		Outcome: Deny,
		Status:  http.StatusServiceUnavailable,
		Header:  h,
		Err:     errOverloaded,
		Message: "Service is busy, retry shortly",
		Event:   models.GateEventOverloaded,
	}
}
