package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps records in a process-local map.
// Each process enforces its own ceiling; use RedisStore for a limit shared across instances.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

// Get returns a copy of the record for key.
func (s *MemoryStore) Get(_ context.Context, key string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// Increment adds one to the record for key.
func (s *MemoryStore) Increment(_ context.Context, key string, now time.Time) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		rec = Record{WindowStart: now}
	}
	rec.Count++
	s.records[key] = rec
	return &rec, nil
}

// Reset starts a new window for key.
func (s *MemoryStore) Reset(_ context.Context, key string, now time.Time) (*Record, error) {
	rec := Record{Count: 1, WindowStart: now}
	s.mu.Lock()
	s.records[key] = rec
	s.mu.Unlock()
	return &rec, nil
}

// Len returns the number of tracked clients.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Evict removes records whose window started before cutoff and returns how many were removed.
func (s *MemoryStore) Evict(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, rec := range s.records {
		if rec.WindowStart.Before(cutoff) {
			delete(s.records, key)
			removed++
		}
	}
	return removed
}

// StartJanitor evicts records idle for longer than maxAge every interval until ctx is cancelled.
// maxAge is read on each sweep so it can follow policy reloads; see Limiter.RecordTTL.
func (s *MemoryStore) StartJanitor(ctx context.Context, interval time.Duration, maxAge func() time.Duration) {
	if interval <= 0 || maxAge == nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if age := maxAge(); age > 0 {
				s.Evict(now.Add(-age))
			}
		}
	}
}
