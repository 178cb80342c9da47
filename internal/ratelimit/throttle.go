package ratelimit

import (
	"golang.org/x/time/rate"
)

// Throttle is a process-wide token bucket placed ahead of the per-client limiter.
// A nil Throttle allows everything.
type Throttle struct {
	bucket *rate.Limiter
}

// NewThrottle returns nil when rps is not positive.
func NewThrottle(rps float64, burst int) *Throttle {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = int(rps)
		if burst < 1 {
			burst = 1
		}
	}
	return &Throttle{bucket: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Allow consumes a token if one is available.
func (t *Throttle) Allow() bool {
	if t == nil {
		return true
	}
	return t.bucket.Allow()
}
