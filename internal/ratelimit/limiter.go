package ratelimit

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"
)

const lockStripes = 64

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   time.Time
	Count     int64
}

// RetryAfter returns how long the client should wait before the window resets.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if d.ResetAt.IsZero() || !d.ResetAt.After(now) {
		return 0
	}
	return d.ResetAt.Sub(now)
}

// Limiter applies a Policy to records held in a RecordStore.
// Calls for the same key are serialized within the process so that the
// Get/Reset/Increment sequence cannot interleave.
type Limiter struct {
	store        RecordStore
	storeExpires bool
	policy       atomic.Pointer[Policy]
	now          func() time.Time
	locks        [lockStripes]sync.Mutex
}

// PolicyAware is implemented by stores whose expiry depends on the enforced policy.
// The limiter pushes every policy change to them.
type PolicyAware interface {
	SetPolicy(p Policy)
}

// expiryOwner is implemented by stores that expire windows on their own clock.
// The limiter then trusts a missing record instead of comparing window starts.
type expiryOwner interface {
	ownsExpiry() bool
}

// LimiterOption configures a Limiter.
type LimiterOption func(*Limiter)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) LimiterOption {
	return func(l *Limiter) { l.now = now }
}

// NewLimiter creates a limiter. An invalid policy falls back to DefaultPolicy.
func NewLimiter(store RecordStore, policy Policy, opts ...LimiterOption) *Limiter {
	l := &Limiter{store: store, now: time.Now}
	if eo, ok := store.(expiryOwner); ok {
		l.storeExpires = eo.ownsExpiry()
	}
	for _, opt := range opts {
		opt(l)
	}
	l.SetPolicy(policy)
	return l
}

// Policy returns the policy currently enforced.
func (l *Limiter) Policy() Policy {
	return *l.policy.Load()
}

// SetPolicy swaps the enforced policy. Records already in flight keep their window start.
func (l *Limiter) SetPolicy(p Policy) {
	if p.Validate() != nil {
		p = DefaultPolicy()
	}
	l.policy.Store(&p)
	if pa, ok := l.store.(PolicyAware); ok {
		pa.SetPolicy(p)
	}
}

// RecordTTL is how long an idle record must be kept under the current policy.
// Anything shorter could drop a blocked client's record inside its own window.
func (l *Limiter) RecordTTL() time.Duration {
	return 2 * l.Policy().Window
}

// Now returns the limiter's clock reading.
func (l *Limiter) Now() time.Time {
	return l.now()
}

// Allow records a request from key and reports whether it may proceed.
// A client at its ceiling is denied without incrementing its count.
func (l *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	mu := l.lockFor(key)
	mu.Lock()
	defer mu.Unlock()

	p := l.Policy()
	now := l.now()

	rec, err := l.store.Get(ctx, key)
	if err != nil {
		return Decision{}, fmt.Errorf("get rate record: %w", err)
	}

	expired := rec == nil
	if !expired && !l.storeExpires {
		expired = p.Expired(rec.WindowStart, now)
	}
	if expired {
		rec, err = l.store.Reset(ctx, key, now)
		if err != nil {
			return Decision{}, fmt.Errorf("reset rate record: %w", err)
		}
		return p.decide(rec, true), nil
	}

	if rec.Count >= p.Limit {
		return p.decide(rec, false), nil
	}

	rec, err = l.store.Increment(ctx, key, now)
	if err != nil {
		return Decision{}, fmt.Errorf("increment rate record: %w", err)
	}
	// Another gate instance sharing the store may have taken the last slot.
	return p.decide(rec, rec.Count <= p.Limit), nil
}

func (l *Limiter) lockFor(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &l.locks[h.Sum32()%lockStripes]
}

func (p Policy) decide(rec *Record, allowed bool) Decision {
	remaining := p.Limit - rec.Count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   allowed,
		Limit:     p.Limit,
		Remaining: remaining,
		ResetAt:   rec.WindowStart.Add(p.Window),
		Count:     rec.Count,
	}
}
