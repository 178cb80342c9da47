package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/politicianfinder/edge-gate/internal/models"
	"github.com/politicianfinder/edge-gate/internal/request"
	"github.com/politicianfinder/edge-gate/internal/services/auth"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestAuthStage(t *testing.T) {
	t.Parallel()

	subjectVerifier := auth.VerifierFunc(func(_ context.Context, token string) (*models.Identity, error) {
		if token == "good" {
			return &models.Identity{Subject: "user-1"}, nil
		}
		return nil, auth.ErrUnauthenticated
	})

	tests := []struct {
		name        string
		verifier    auth.Verifier
		header      string
		wantOutcome Outcome
		wantSubject string
	}{
		{name: "missing header", verifier: auth.PlaceholderVerifier{}, wantOutcome: Deny},
		{name: "non-bearer scheme", verifier: auth.PlaceholderVerifier{}, header: "Token abc", wantOutcome: Deny},
		{name: "placeholder accepts any token", verifier: auth.PlaceholderVerifier{}, header: "Bearer anything", wantOutcome: Continue},
		{name: "lowercase scheme", verifier: auth.PlaceholderVerifier{}, header: "bearer anything", wantOutcome: Continue},
		{name: "verified subject", verifier: subjectVerifier, header: "Bearer good", wantOutcome: Continue, wantSubject: "user-1"},
		{name: "rejected token", verifier: subjectVerifier, header: "Bearer bad", wantOutcome: Deny},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			stage := NewAuthStage(tt.verifier, time.Second, zap.NewNop())
			req := httptest.NewRequest(http.MethodGet, "/api/x", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			v := stage.Check(req)

			if v.Outcome != tt.wantOutcome {
				t.Fatalf("Outcome = %v, want %v (err %v)", v.Outcome, tt.wantOutcome, v.Err)
			}
			if v.Outcome == Deny {
				if v.Status != http.StatusUnauthorized {
					t.Errorf("Expected 401, got %d", v.Status)
				}
				if v.Header.Get("WWW-Authenticate") == "" {
					t.Error("Expected WWW-Authenticate challenge")
				}
				if v.Event != models.GateEventUnauthenticated {
					t.Errorf("Expected security event, got %q", v.Event)
				}
				return
			}
			if v.Request == nil {
				t.Fatal("Expected the stage to attach the identity to a new request")
			}
			identity := request.IdentityFromContext(v.Request.Context())
			if identity == nil {
				t.Fatal("Expected identity in context")
			}
			if identity.Subject != tt.wantSubject {
				t.Errorf("Subject = %q, want %q", identity.Subject, tt.wantSubject)
			}
		})
	}
}

func TestAuthStage_VerifierFailuresFailClosed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		verifier auth.Verifier
	}{
		{
			name: "verifier panics",
			verifier: auth.VerifierFunc(func(context.Context, string) (*models.Identity, error) {
				panic("boom")
			}),
		},
		{
			name: "verifier errors",
			verifier: auth.VerifierFunc(func(context.Context, string) (*models.Identity, error) {
				return nil, errors.New("provider unreachable")
			}),
		},
		{
			name: "verifier hangs",
			verifier: auth.VerifierFunc(func(ctx context.Context, _ string) (*models.Identity, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			}),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zap.WarnLevel)
			stage := NewAuthStage(tt.verifier, 20*time.Millisecond, zap.New(core))
			req := httptest.NewRequest(http.MethodGet, "/api/x", nil)
			req.Header.Set("Authorization", "Bearer t")

			v := stage.Check(req)
			if v.Outcome != Deny || v.Status != http.StatusUnauthorized {
				t.Errorf("Expected 401 deny, got %v/%d", v.Outcome, v.Status)
			}
			if !errors.Is(v.Err, auth.ErrUnauthenticated) {
				t.Errorf("Expected ErrUnauthenticated in chain, got %v", v.Err)
			}
			if logs.FilterMessage("token_validation_error").Len() != 1 {
				t.Error("Expected token_validation_error log entry")
			}
		})
	}
}
