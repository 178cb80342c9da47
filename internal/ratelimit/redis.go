package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "gate:ratelimit"

// incrementScript creates or bumps the hash for one client and refreshes its expiry.
var incrementScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	redis.call('HSET', KEYS[1], 'count', 1, 'window_start', ARGV[1])
else
	redis.call('HINCRBY', KEYS[1], 'count', 1)
end
redis.call('PEXPIRE', KEYS[1], ARGV[2])
return redis.call('HMGET', KEYS[1], 'count', 'window_start')
`)

// NewRedisClient parses redisURL and verifies the connection.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// RedisStore keeps records in Redis so every gate instance shares one ceiling.
type RedisStore struct {
	client redis.Cmdable
	prefix string
	ttl    atomic.Int64 // nanoseconds
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithRedisPrefix overrides the key prefix.
func WithRedisPrefix(prefix string) RedisOption {
	return func(s *RedisStore) { s.prefix = prefix }
}

// NewRedisStore creates a store whose keys expire after two windows of inactivity.
// A Limiter built on the store keeps the expiry in step with reloaded policies.
func NewRedisStore(client redis.Cmdable, window time.Duration, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client: client,
		prefix: defaultRedisPrefix,
	}
	s.SetPolicy(Policy{Window: window})
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetPolicy implements PolicyAware. Keys written afterwards expire after two of the new windows.
func (s *RedisStore) SetPolicy(p Policy) {
	window := p.Window
	if window <= 0 {
		window = DefaultWindow
	}
	s.ttl.Store(int64(2 * window))
}

// TTL returns the expiry applied to keys on their next write.
func (s *RedisStore) TTL() time.Duration {
	return time.Duration(s.ttl.Load())
}

func (s *RedisStore) key(client string) string {
	return s.prefix + ":" + client
}

// Get returns the record for key, or nil when Redis holds none.
func (s *RedisStore) Get(ctx context.Context, key string) (*Record, error) {
	vals, err := s.client.HMGet(ctx, s.key(key), "count", "window_start").Result()
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return parseRecord(vals)
}

// Increment bumps the count atomically on the server.
func (s *RedisStore) Increment(ctx context.Context, key string, now time.Time) (*Record, error) {
	res, err := incrementScript.Run(ctx, s.client, []string{s.key(key)}, now.UnixMilli(), s.TTL().Milliseconds()).Slice()
	if err != nil {
		return nil, fmt.Errorf("redis increment %s: %w", key, err)
	}
	rec, err := parseRecord(res)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("redis increment %s: empty reply", key)
	}
	return rec, nil
}

// Reset overwrites the record with a fresh window.
func (s *RedisStore) Reset(ctx context.Context, key string, now time.Time) (*Record, error) {
	k := s.key(key)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, k, "count", 1, "window_start", now.UnixMilli())
		pipe.PExpire(ctx, k, s.TTL())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis reset %s: %w", key, err)
	}
	return &Record{Count: 1, WindowStart: time.UnixMilli(now.UnixMilli())}, nil
}

// parseRecord converts an HMGET reply of count and window_start into a Record.
func parseRecord(vals []any) (*Record, error) {
	if len(vals) != 2 || vals[0] == nil || vals[1] == nil {
		return nil, nil
	}
	count, err := toInt64(vals[0])
	if err != nil {
		return nil, fmt.Errorf("parse count: %w", err)
	}
	startMs, err := toInt64(vals[1])
	if err != nil {
		return nil, fmt.Errorf("parse window_start: %w", err)
	}
	return &Record{Count: count, WindowStart: time.UnixMilli(startMs)}, nil
}

func toInt64(v any) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case string:
		return strconv.ParseInt(t, 10, 64)
	default:
		return 0, errors.New("unexpected redis value type")
	}
}
