package ratelimit

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestMemoryStore_IncrementAndReset(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	ctx := context.Background()
	start := time.Unix(100, 0)

	rec, err := s.Get(ctx, "A")
	if err != nil || rec != nil {
		t.Fatalf("expected no record, got %v, %v", rec, err)
	}

	rec, _ = s.Increment(ctx, "A", start)
	if rec.Count != 1 || !rec.WindowStart.Equal(start) {
		t.Errorf("unexpected record after first increment: %+v", rec)
	}
	rec, _ = s.Increment(ctx, "A", start.Add(time.Second))
	if rec.Count != 2 || !rec.WindowStart.Equal(start) {
		t.Errorf("increment must keep window start: %+v", rec)
	}

	later := start.Add(time.Hour)
	rec, _ = s.Reset(ctx, "A", later)
	if rec.Count != 1 || !rec.WindowStart.Equal(later) {
		t.Errorf("unexpected record after reset: %+v", rec)
	}
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	ctx := context.Background()
	_, _ = s.Reset(ctx, "A", time.Unix(0, 0))

	rec, _ := s.Get(ctx, "A")
	rec.Count = 99

	again, _ := s.Get(ctx, "A")
	if again.Count != 1 {
		t.Errorf("mutating returned record changed store state: %d", again.Count)
	}
}

func TestMemoryStore_Evict(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	ctx := context.Background()
	_, _ = s.Reset(ctx, "old", time.Unix(0, 0))
	_, _ = s.Reset(ctx, "new", time.Unix(1000, 0))

	if removed := s.Evict(time.Unix(500, 0)); removed != 1 {
		t.Errorf("expected 1 record evicted, got %d", removed)
	}
	if s.Len() != 1 {
		t.Errorf("expected 1 record left, got %d", s.Len())
	}
	if rec, _ := s.Get(ctx, "new"); rec == nil {
		t.Error("recent record should survive eviction")
	}
}

func TestMemoryStore_JanitorStopsOnCancel(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.StartJanitor(ctx, time.Millisecond, func() time.Duration { return time.Hour })
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop after cancel")
	}
}

func TestMemoryStore_JanitorKeepsRecordsOfReloadedWindow(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	mem := NewMemoryStore()
	l := NewLimiter(mem, DefaultPolicy(), WithClock(clock.Now))
	ctx := context.Background()

	hourly, err := PolicyFromRate("10-H")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l.SetPolicy(hourly)

	for i := 1; i <= 10; i++ {
		if d, _ := l.Allow(ctx, "A"); !d.Allowed {
			t.Fatalf("request %d: expected allowed", i)
		}
	}
	if d, _ := l.Allow(ctx, "A"); d.Allowed {
		t.Fatal("11th request should be denied")
	}

	clock.Advance(3 * time.Minute)
	mem.Evict(clock.Now().Add(-l.RecordTTL()))

	d, err := l.Allow(ctx, "A")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Allowed || d.Count != 10 {
		t.Errorf("sweep must not restart an unexpired window: allowed=%v count=%d", d.Allowed, d.Count)
	}
}

func TestMemoryStore_JanitorReadsMaxAgeEachSweep(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	_, _ = s.Reset(context.Background(), "A", time.Now().Add(-time.Minute))

	var maxAge atomic.Int64
	maxAge.Store(int64(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.StartJanitor(ctx, time.Millisecond, func() time.Duration { return time.Duration(maxAge.Load()) })

	time.Sleep(20 * time.Millisecond)
	if s.Len() != 1 {
		t.Fatal("record younger than maxAge was evicted")
	}

	maxAge.Store(int64(time.Second))
	deadline := time.Now().Add(time.Second)
	for s.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if s.Len() != 0 {
		t.Error("janitor did not pick up the shorter maxAge")
	}
}
