package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/politicianfinder/edge-gate/internal/models"
	"golang.org/x/oauth2"
)

// RemoteVerifier asks the hosted auth provider who owns a token by calling its
// user endpoint (e.g. https://<project>.supabase.co/auth/v1/user).
type RemoteVerifier struct {
	userURL string
	apiKey  string
	base    *http.Client
}

// NewRemoteVerifier creates a verifier for userURL. apiKey is sent as the apikey header when set.
func NewRemoteVerifier(userURL, apiKey string, base *http.Client) (*RemoteVerifier, error) {
	userURL = strings.TrimSpace(userURL)
	if userURL == "" {
		return nil, errors.New("remote verifier needs a user endpoint URL")
	}
	if base == nil {
		base = http.DefaultClient
	}
	return &RemoteVerifier{userURL: userURL, apiKey: apiKey, base: base}, nil
}

type remoteUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
	Aud   string `json:"aud"`
}

// Verify presents token to the provider. Any non-200 answer is treated as unauthenticated.
func (v *RemoteVerifier) Verify(ctx context.Context, token string) (*models.Identity, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, v.base)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.userURL, nil)
	if err != nil {
		return nil, &ValidationError{Err: err}
	}
	if v.apiKey != "" {
		req.Header.Set("apikey", v.apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &ValidationError{Err: fmt.Errorf("call user endpoint: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: auth provider returned status %d", ErrUnauthenticated, resp.StatusCode)
	}

	var user remoteUser
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&user); err != nil {
		return nil, &ValidationError{Err: fmt.Errorf("decode user: %w", err)}
	}
	if user.ID == "" {
		return nil, fmt.Errorf("%w: auth provider returned no user id", ErrUnauthenticated)
	}

	return &models.Identity{
		Subject:  user.ID,
		Email:    user.Email,
		Role:     user.Role,
		Audience: user.Aud,
	}, nil
}
