package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestUluleStore_CountsWithinWindow(t *testing.T) {
	t.Parallel()

	policy := Policy{Limit: 3, Window: time.Minute}
	store := NewUluleMemoryStore(policy, time.Minute)
	l := NewLimiter(store, policy)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := l.Allow(ctx, "client")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !d.Allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	d, err := l.Allow(ctx, "client")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Allowed {
		t.Fatal("4th request should be denied")
	}

	rec, err := store.Get(ctx, "client")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec == nil || rec.Count != 3 {
		t.Errorf("denied request must not consume quota, got %+v", rec)
	}
}

func TestUluleStore_MissingKey(t *testing.T) {
	t.Parallel()

	store := NewUluleMemoryStore(DefaultPolicy(), time.Minute)
	rec, err := store.Get(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec != nil {
		t.Errorf("expected nil record, got %+v", rec)
	}
}

func TestUluleStore_LimiterLeavesExpiryToStore(t *testing.T) {
	t.Parallel()

	policy := Policy{Limit: 1, Window: time.Minute}
	store := NewUluleMemoryStore(policy, time.Minute)
	// The limiter clock runs ahead of ulule's; only ulule decides when the window ends.
	skewed := func() time.Time { return time.Now().Add(2 * time.Minute) }
	l := NewLimiter(store, policy, WithClock(skewed))
	ctx := context.Background()

	if d, err := l.Allow(ctx, "client"); err != nil || !d.Allowed {
		t.Fatalf("first request should be allowed, got %+v, %v", d, err)
	}
	d, err := l.Allow(ctx, "client")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Allowed {
		t.Error("window start rebuilt from ulule must not reset the counter early")
	}
}
