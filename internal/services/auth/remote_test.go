package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRemoteVerifier(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("apikey") != "anon-key" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if r.Header.Get("Authorization") != "Bearer good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"8d1c","email":"voter@example.com","role":"authenticated","aud":"authenticated"}`))
	}))
	defer srv.Close()

	v, err := NewRemoteVerifier(srv.URL+"/auth/v1/user", "anon-key", srv.Client())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	identity, err := v.Verify(context.Background(), "good-token")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if identity.Subject != "8d1c" || identity.Email != "voter@example.com" {
		t.Errorf("unexpected identity: %+v", identity)
	}

	if _, err := v.Verify(context.Background(), "bad-token"); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestRemoteVerifier_Unreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	v, err := NewRemoteVerifier(url, "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = v.Verify(context.Background(), "tok")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestNewRemoteVerifier_RequiresURL(t *testing.T) {
	t.Parallel()

	if _, err := NewRemoteVerifier("  ", "", nil); err == nil {
		t.Error("expected error for empty URL")
	}
}
