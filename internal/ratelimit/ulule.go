package ratelimit

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	memorystore "github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
)

// UluleStore adapts a github.com/ulule/limiter store to RecordStore.
// The wrapped store owns window expiry using its own clock. The window start
// reported here has one second precision, so the limiter never uses it to decide
// expiry and relies on the store returning no record once the window is over.
type UluleStore struct {
	store  limiter.Store
	policy atomic.Pointer[Policy]
}

// NewUluleMemoryStore creates an adapter over ulule's in-memory driver.
func NewUluleMemoryStore(policy Policy, cleanup time.Duration) *UluleStore {
	store := memorystore.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          defaultRedisPrefix,
		CleanUpInterval: cleanup,
	})
	return NewUluleStore(store, policy)
}

// NewUluleRedisStore creates an adapter over ulule's Redis driver.
func NewUluleRedisStore(client *redis.Client, policy Policy) (*UluleStore, error) {
	store, err := redisstore.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix: defaultRedisPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("create ulule redis store: %w", err)
	}
	return NewUluleStore(store, policy), nil
}

// NewUluleStore wraps an existing ulule store.
func NewUluleStore(store limiter.Store, policy Policy) *UluleStore {
	s := &UluleStore{store: store}
	s.SetPolicy(policy)
	return s
}

// SetPolicy updates the rate handed to the wrapped store.
func (s *UluleStore) SetPolicy(p Policy) {
	s.policy.Store(&p)
}

func (s *UluleStore) ownsExpiry() bool { return true }

func (s *UluleStore) rate() limiter.Rate {
	return s.policy.Load().rate()
}

// Get peeks at the counter without consuming a request.
func (s *UluleStore) Get(ctx context.Context, key string) (*Record, error) {
	rate := s.rate()
	lctx, err := s.store.Peek(ctx, key, rate)
	if err != nil {
		return nil, fmt.Errorf("ulule peek %s: %w", key, err)
	}
	rec := recordFromContext(lctx, rate)
	if rec.Count == 0 {
		return nil, nil
	}
	return rec, nil
}

// Increment consumes one request.
func (s *UluleStore) Increment(ctx context.Context, key string, _ time.Time) (*Record, error) {
	rate := s.rate()
	lctx, err := s.store.Increment(ctx, key, 1, rate)
	if err != nil {
		return nil, fmt.Errorf("ulule increment %s: %w", key, err)
	}
	return recordFromContext(lctx, rate), nil
}

// Reset drops the counter and consumes the first request of a new window.
func (s *UluleStore) Reset(ctx context.Context, key string, now time.Time) (*Record, error) {
	rate := s.rate()
	if _, err := s.store.Reset(ctx, key, rate); err != nil {
		return nil, fmt.Errorf("ulule reset %s: %w", key, err)
	}
	return s.Increment(ctx, key, now)
}

func recordFromContext(lctx limiter.Context, rate limiter.Rate) *Record {
	count := lctx.Limit - lctx.Remaining
	if lctx.Reached {
		count = lctx.Limit + 1
	}
	return &Record{
		Count:       count,
		WindowStart: time.Unix(lctx.Reset, 0).Add(-rate.Period),
	}
}
