// Package ratelimit implements the per-client request ceiling enforced by the edge gate.
//
// Each client identifier owns a Record holding the number of requests observed in
// the current window and the time the window began. Once the window has elapsed the
// next request starts a fresh window with a count of one (fixed-bucket approximation
// of a sliding window). Records live in a RecordStore so the process-local map can be
// swapped for a shared store such as Redis without touching the Limiter.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ulule/limiter/v3"
)

const (
	// DefaultLimit is the default number of requests a client may make per window.
	DefaultLimit = 10
	// DefaultWindow is the default window size.
	DefaultWindow = 60 * time.Second
)

// ErrRateLimitExceeded is returned when a client reached its ceiling in the current window.
var ErrRateLimitExceeded = errors.New("rate limit exceeded")

// Record is the rate state kept for one client identifier.
type Record struct {
	Count       int64
	WindowStart time.Time
}

// RecordStore persists Records keyed by client identifier.
// Implementations must be safe for concurrent use.
type RecordStore interface {
	// Get returns the record for key, or nil when none exists.
	Get(ctx context.Context, key string) (*Record, error)
	// Increment adds one to the record for key and returns the updated record.
	// A missing record is created with a count of one and a window starting at now.
	Increment(ctx context.Context, key string, now time.Time) (*Record, error)
	// Reset starts a new window for key at now with a count of one.
	Reset(ctx context.Context, key string, now time.Time) (*Record, error)
}

// Policy is the ceiling applied to every client.
type Policy struct {
	Limit  int64
	Window time.Duration
}

// DefaultPolicy returns 10 requests per 60 seconds.
func DefaultPolicy() Policy {
	return Policy{Limit: DefaultLimit, Window: DefaultWindow}
}

// PolicyFromRate parses a formatted rate such as "10-M" or "100-H".
func PolicyFromRate(formatted string) (Policy, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return Policy{}, fmt.Errorf("parse rate %q: %w", formatted, err)
	}
	return Policy{Limit: rate.Limit, Window: rate.Period}, nil
}

// Validate reports whether the policy can be enforced.
func (p Policy) Validate() error {
	if p.Limit <= 0 {
		return fmt.Errorf("rate limit must be positive, got %d", p.Limit)
	}
	if p.Window <= 0 {
		return fmt.Errorf("rate window must be positive, got %s", p.Window)
	}
	return nil
}

// Expired reports whether a window that began at start is over at now.
func (p Policy) Expired(start, now time.Time) bool {
	return now.Sub(start) >= p.Window
}

// String renders the policy in the same shape as the formatted rate.
func (p Policy) String() string {
	return fmt.Sprintf("%d per %s", p.Limit, p.Window)
}

func (p Policy) rate() limiter.Rate {
	return limiter.Rate{
		Formatted: p.String(),
		Period:    p.Window,
		Limit:     p.Limit,
	}
}

// Formatted renders the policy as a formatted rate ("10-M") when the window is one
// second, minute, hour or day. ok is false for any other window.
func (p Policy) Formatted() (string, bool) {
	units := []struct {
		d      time.Duration
		suffix string
	}{
		{time.Second, "S"},
		{time.Minute, "M"},
		{time.Hour, "H"},
		{24 * time.Hour, "D"},
	}
	for _, u := range units {
		if p.Window == u.d {
			return fmt.Sprintf("%d-%s", p.Limit, u.suffix), true
		}
	}
	return "", false
}
