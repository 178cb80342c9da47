package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/politicianfinder/edge-gate/internal/models"
)

const defaultClockSkew = 30 * time.Second

// JWTVerifier verifies signed session tokens issued by the hosted auth provider,
// either with the provider's shared HS256 secret or with its published JWKS.
type JWTVerifier struct {
	secret   []byte
	jwksURL  string
	jwks     *JWKSManager
	issuer   string
	audience string
}

// JWTOption configures a JWTVerifier.
type JWTOption func(*JWTVerifier)

// WithSecret verifies HS256 tokens against secret.
func WithSecret(secret string) JWTOption {
	return func(v *JWTVerifier) { v.secret = []byte(secret) }
}

// WithJWKS verifies tokens against the key set published at url.
func WithJWKS(manager *JWKSManager, url string) JWTOption {
	return func(v *JWTVerifier) {
		v.jwks = manager
		v.jwksURL = url
	}
}

// WithIssuer requires the iss claim to match.
func WithIssuer(issuer string) JWTOption {
	return func(v *JWTVerifier) { v.issuer = issuer }
}

// WithAudience requires the aud claim to contain audience.
func WithAudience(audience string) JWTOption {
	return func(v *JWTVerifier) { v.audience = audience }
}

// NewJWTVerifier creates a verifier. One of WithSecret or WithJWKS is required.
func NewJWTVerifier(opts ...JWTOption) (*JWTVerifier, error) {
	v := &JWTVerifier{}
	for _, opt := range opts {
		opt(v)
	}
	if len(v.secret) == 0 && v.jwksURL == "" {
		return nil, errors.New("jwt verifier needs a secret or a JWKS URL")
	}
	if v.jwksURL != "" && v.jwks == nil {
		v.jwks = NewJWKSManager(nil)
	}
	return v, nil
}

// Verify parses and validates token and extracts the caller identity.
func (v *JWTVerifier) Verify(ctx context.Context, token string) (*models.Identity, error) {
	parseOpts := []jwt.ParseOption{
		jwt.WithValidate(true),
		jwt.WithAcceptableSkew(defaultClockSkew),
	}
	if v.issuer != "" {
		parseOpts = append(parseOpts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		parseOpts = append(parseOpts, jwt.WithAudience(v.audience))
	}

	if v.jwksURL != "" {
		keys, err := v.jwks.GetJWKS(ctx, v.jwksURL)
		if err != nil {
			return nil, &ValidationError{Err: err}
		}
		parseOpts = append(parseOpts, jwt.WithKeySet(keys))
	} else {
		parseOpts = append(parseOpts, jwt.WithKey(jwa.HS256, v.secret))
	}

	tok, err := jwt.Parse([]byte(token), parseOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if tok.Subject() == "" {
		return nil, fmt.Errorf("%w: token missing subject claim", ErrUnauthenticated)
	}

	identity := &models.Identity{
		Subject:   tok.Subject(),
		Issuer:    tok.Issuer(),
		ExpiresAt: tok.Expiration(),
	}
	if aud := tok.Audience(); len(aud) > 0 {
		identity.Audience = aud[0]
	}
	if email, ok := tok.Get("email"); ok {
		if s, ok := email.(string); ok {
			identity.Email = s
		}
	}
	if role, ok := tok.Get("role"); ok {
		if s, ok := role.(string); ok {
			identity.Role = s
		}
	}
	return identity, nil
}
