package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
)

const defaultJWKSTTL = time.Hour

type cachedKeySet struct {
	keys    jwk.Set
	expires time.Time
}

// JWKSManager fetches and caches key sets by URL.
type JWKSManager struct {
	client *http.Client
	ttl    time.Duration
	mu     sync.RWMutex
	cache  map[string]cachedKeySet
}

// NewJWKSManager creates a manager that keeps key sets for an hour.
func NewJWKSManager(client *http.Client) *JWKSManager {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &JWKSManager{
		client: client,
		ttl:    defaultJWKSTTL,
		cache:  make(map[string]cachedKeySet),
	}
}

// GetJWKS returns the key set published at jwksURL, fetching it when the cached copy expired.
func (m *JWKSManager) GetJWKS(ctx context.Context, jwksURL string) (jwk.Set, error) {
	m.mu.RLock()
	cached, ok := m.cache[jwksURL]
	m.mu.RUnlock()
	if ok && time.Now().Before(cached.expires) {
		return cached.keys, nil
	}

	keys, err := m.fetch(ctx, jwksURL)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.cache[jwksURL] = cachedKeySet{keys: keys, expires: time.Now().Add(m.ttl)}
	m.mu.Unlock()

	return keys, nil
}

func (m *JWKSManager) fetch(ctx context.Context, jwksURL string) (jwk.Set, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jwksURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read JWKS response: %w", err)
	}

	keys, err := jwk.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWKS: %w", err)
	}
	return keys, nil
}
