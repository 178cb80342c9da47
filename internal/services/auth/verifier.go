// Package auth verifies the bearer credentials presented to the edge gate.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/politicianfinder/edge-gate/internal/models"
)

// ErrUnauthenticated is returned for a missing, malformed or rejected bearer token.
var ErrUnauthenticated = errors.New("unauthenticated")

// ErrMissingToken is returned when the request carries no bearer token.
var ErrMissingToken = fmt.Errorf("%w: missing bearer token", ErrUnauthenticated)

// Verifier checks a bearer token and returns the identity it proves.
// Failures must wrap ErrUnauthenticated.
type Verifier interface {
	Verify(ctx context.Context, token string) (*models.Identity, error)
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(ctx context.Context, token string) (*models.Identity, error)

// Verify calls f.
func (f VerifierFunc) Verify(ctx context.Context, token string) (*models.Identity, error) {
	return f(ctx, token)
}

// ValidationError wraps an unexpected failure raised while validating a token.
// It always matches ErrUnauthenticated so callers answer 401 rather than 500.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return "token validation failed: " + e.Err.Error()
}

func (e *ValidationError) Unwrap() []error {
	return []error{ErrUnauthenticated, e.Err}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", fmt.Errorf("%w: invalid Authorization header format", ErrUnauthenticated)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

// PlaceholderVerifier accepts any non-empty token without establishing who the caller is.
type PlaceholderVerifier struct{}

// Verify accepts every non-empty token.
func (PlaceholderVerifier) Verify(_ context.Context, token string) (*models.Identity, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrMissingToken
	}
	return &models.Identity{}, nil
}
