package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/politicianfinder/edge-gate/internal/models"
	"github.com/politicianfinder/edge-gate/internal/ratelimit"
	"go.uber.org/zap"
)

type fakeRatelimitRepo struct {
	mu     sync.Mutex
	cfg    *models.RatelimitConfig
	getErr error
	saved  []*models.RatelimitConfig
}

func (f *fakeRatelimitRepo) Get(context.Context) (*models.RatelimitConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cfg, f.getErr
}

func (f *fakeRatelimitRepo) Set(_ context.Context, c *models.RatelimitConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, c)
	return nil
}

type fakeCorsRepo struct {
	cfg    *models.CorsConfig
	getErr error
}

func (f *fakeCorsRepo) Get(context.Context) (*models.CorsConfig, error) { return f.cfg, f.getErr }
func (f *fakeCorsRepo) Set(context.Context, *models.CorsConfig) error  { return nil }

func newReloadStage() *RateLimitStage {
	return NewRateLimitStage(ratelimit.NewLimiter(ratelimit.NewMemoryStore(), ratelimit.DefaultPolicy()), byRemoteAddr, zap.NewNop())
}

func TestRateLimitReloader_Load(t *testing.T) {
	t.Parallel()

	fallback := ratelimit.DefaultPolicy()

	tests := []struct {
		name           string
		repo           *fakeRatelimitRepo
		wantPolicy     ratelimit.Policy
		wantSaved      string
		wantFailClosed bool
	}{
		{
			name:       "policy from database",
			repo:       &fakeRatelimitRepo{cfg: &models.RatelimitConfig{Rate: "100-H"}},
			wantPolicy: ratelimit.Policy{Limit: 100, Window: time.Hour},
		},
		{
			name:           "fail closed flag from database",
			repo:           &fakeRatelimitRepo{cfg: &models.RatelimitConfig{Rate: "10-M", FailClosed: true}},
			wantPolicy:     fallback,
			wantFailClosed: true,
		},
		{
			name:       "unparseable rate keeps fallback",
			repo:       &fakeRatelimitRepo{cfg: &models.RatelimitConfig{Rate: "often"}},
			wantPolicy: fallback,
		},
		{
			name:       "database error keeps fallback",
			repo:       &fakeRatelimitRepo{getErr: errors.New("connection refused")},
			wantPolicy: fallback,
		},
		{
			name:       "empty database seeded with fallback",
			repo:       &fakeRatelimitRepo{},
			wantPolicy: fallback,
			wantSaved:  "10-M",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			stage := newReloadStage()
			NewRateLimitReloader(stage, tt.repo, fallback, zap.NewNop(), time.Minute).Load(context.Background())

			if got := stage.Limiter().Policy(); got != tt.wantPolicy {
				t.Errorf("policy = %v, want %v", got, tt.wantPolicy)
			}
			if got := stage.failClosed.Load(); got != tt.wantFailClosed {
				t.Errorf("failClosed = %v, want %v", got, tt.wantFailClosed)
			}
			if tt.wantSaved == "" {
				if len(tt.repo.saved) != 0 {
					t.Errorf("expected nothing saved, got %d", len(tt.repo.saved))
				}
				return
			}
			if len(tt.repo.saved) != 1 || tt.repo.saved[0].Rate != tt.wantSaved {
				t.Errorf("expected %q saved once, got %v", tt.wantSaved, tt.repo.saved)
			}
		})
	}
}

func TestRateLimitReloader_StartLoadsImmediately(t *testing.T) {
	t.Parallel()

	stage := newReloadStage()
	repo := &fakeRatelimitRepo{cfg: &models.RatelimitConfig{Rate: "5-S"}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	NewRateLimitReloader(stage, repo, ratelimit.DefaultPolicy(), zap.NewNop(), time.Hour).Start(ctx)

	if got := stage.Limiter().Policy(); got != (ratelimit.Policy{Limit: 5, Window: time.Second}) {
		t.Errorf("expected policy loaded before the first tick, got %v", got)
	}
}

func TestCORSReloader_Load(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		repo       *fakeCorsRepo
		origin     string
		wantAllow  string
		wantMaxAge string
	}{
		{
			name:       "origins from database",
			repo:       &fakeCorsRepo{cfg: &models.CorsConfig{AllowedOrigins: "https://politicianfinder.kr, https://admin.politicianfinder.kr", MaxAge: 300}},
			origin:     "https://admin.politicianfinder.kr",
			wantAllow:  "https://admin.politicianfinder.kr",
			wantMaxAge: "300",
		},
		{
			name:      "database error uses fallback",
			repo:      &fakeCorsRepo{getErr: errors.New("timeout")},
			origin:    "https://fallback.example",
			wantAllow: "https://fallback.example",
		},
		{
			name:      "empty origins use fallback",
			repo:      &fakeCorsRepo{cfg: &models.CorsConfig{AllowedOrigins: " , "}},
			origin:    "https://fallback.example",
			wantAllow: "https://fallback.example",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			stage := NewCORSStage([]string{"*"}, 0)
			NewCORSReloader(stage, tt.repo, []string{"https://fallback.example"}, 0, zap.NewNop(), time.Minute).Load(context.Background())

			req := httptest.NewRequest(http.MethodOptions, "/api/x", nil)
			req.Header.Set("Origin", tt.origin)
			v := stage.Check(req)
			if got := v.Header.Get("Access-Control-Allow-Origin"); got != tt.wantAllow {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantAllow)
			}
			if got := v.Header.Get("Access-Control-Max-Age"); got != tt.wantMaxAge {
				t.Errorf("Max-Age = %q, want %q", got, tt.wantMaxAge)
			}
		})
	}
}
