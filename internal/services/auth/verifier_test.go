package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/politicianfinder/edge-gate/internal/models"
)

func TestBearerToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		header    string
		want      string
		expectErr bool
	}{
		{"valid", "Bearer abc.def.ghi", "abc.def.ghi", false},
		{"lowercase scheme", "bearer token123", "token123", false},
		{"extra spaces", "  Bearer   token123  ", "token123", false},
		{"empty", "", "", true},
		{"no token", "Bearer ", "", true},
		{"basic scheme", "Basic dXNlcjpwYXNz", "", true},
		{"no scheme", "token123", "", true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := BearerToken(tt.header)
			if tt.expectErr {
				if !errors.Is(err, ErrUnauthenticated) {
					t.Errorf("expected ErrUnauthenticated, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("BearerToken(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestPlaceholderVerifier(t *testing.T) {
	t.Parallel()

	v := PlaceholderVerifier{}
	identity, err := v.Verify(context.Background(), "anything")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !identity.Anonymous() {
		t.Error("placeholder identity should be anonymous")
	}

	if _, err := v.Verify(context.Background(), "  "); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated for blank token, got %v", err)
	}
}

func TestGuard_RecoversPanic(t *testing.T) {
	t.Parallel()

	g := Guard(VerifierFunc(func(context.Context, string) (*models.Identity, error) {
		panic("verifier exploded")
	}), time.Second)

	_, err := g.Verify(context.Background(), "tok")
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("expected ValidationError, got %T", err)
	}
}

func TestGuard_MapsUnexpectedErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection refused")
	g := Guard(VerifierFunc(func(context.Context, string) (*models.Identity, error) {
		return nil, boom
	}), time.Second)

	_, err := g.Verify(context.Background(), "tok")
	if !errors.Is(err, ErrUnauthenticated) || !errors.Is(err, boom) {
		t.Errorf("expected error wrapping both ErrUnauthenticated and cause, got %v", err)
	}
}

func TestGuard_TimesOut(t *testing.T) {
	t.Parallel()

	g := Guard(VerifierFunc(func(ctx context.Context, _ string) (*models.Identity, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}), 10*time.Millisecond)

	start := time.Now()
	_, err := g.Verify(context.Background(), "tok")
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated on timeout, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded cause, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("guard did not bound verification time")
	}
}

func TestGuard_PassesIdentity(t *testing.T) {
	t.Parallel()

	g := Guard(VerifierFunc(func(context.Context, string) (*models.Identity, error) {
		return &models.Identity{Subject: "user-1"}, nil
	}), 0)

	identity, err := g.Verify(context.Background(), "tok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if identity.Subject != "user-1" {
		t.Errorf("expected subject user-1, got %q", identity.Subject)
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		settings Settings
		wantErr  bool
		wantType string
	}{
		{name: "default", settings: Settings{}, wantType: "placeholder"},
		{name: "jwt secret", settings: Settings{Kind: KindJWT, JWTSecret: "s"}, wantType: "jwt"},
		{name: "jwt without key", settings: Settings{Kind: KindJWT}, wantErr: true},
		{name: "remote", settings: Settings{Kind: KindRemote, RemoteURL: "https://auth.example.com/auth/v1/user"}, wantType: "remote"},
		{name: "remote without url", settings: Settings{Kind: KindRemote}, wantErr: true},
		{name: "unknown", settings: Settings{Kind: "ldap"}, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v, err := New(tt.settings, http.DefaultClient)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if v != nil {
					t.Error("expected nil verifier on error")
				}
				return
			}
			var got string
			switch v.(type) {
			case PlaceholderVerifier:
				got = "placeholder"
			case *JWTVerifier:
				got = "jwt"
			case *RemoteVerifier:
				got = "remote"
			}
			if got != tt.wantType {
				t.Errorf("New() type = %s, want %s", got, tt.wantType)
			}
		})
	}
}
