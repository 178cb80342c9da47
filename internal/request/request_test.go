package request

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/politicianfinder/edge-gate/internal/models"
)

func TestClientIP(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		wantIP  string
	}{
		{"x-forwarded-for", map[string]string{"X-Forwarded-For": "1.2.3.4"}, "", "1.2.3.4"},
		{"x-forwarded-for first", map[string]string{"X-Forwarded-For": " 1.2.3.4 , 5.6.7.8 "}, "", "1.2.3.4"},
		{"x-real-ip", map[string]string{"X-Real-IP": "9.9.9.9"}, "", "9.9.9.9"},
		{"remote addr host", nil, "10.0.0.1:12345", "10.0.0.1"},
		{"xff over xri", map[string]string{"X-Forwarded-For": "1.2.3.4", "X-Real-IP": "9.9.9.9"}, "", "1.2.3.4"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest("GET", "/", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if tt.remote != "" {
				r.RemoteAddr = tt.remote
			}
			got := ClientIP(r)
			if got != tt.wantIP {
				t.Errorf("ClientIP() = %q, want %q", got, tt.wantIP)
			}
		})
	}
}

func TestClientKeyFunc_IgnoresHeadersWhenUntrusted(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.9:5555"
	r.Header.Set("X-Forwarded-For", "1.2.3.4")

	if got := ClientKeyFunc(false)(r); got != "10.0.0.9" {
		t.Errorf("untrusted key = %q, want remote host", got)
	}
	if got := ClientKeyFunc(true)(r); got != "1.2.3.4" {
		t.Errorf("trusted key = %q, want first forwarded hop", got)
	}
}

func TestRemoteHost_Fallbacks(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "not-a-host-port"
	if got := RemoteHost(r); got != "not-a-host-port" {
		t.Errorf("RemoteHost() = %q", got)
	}
	r.RemoteAddr = ""
	if got := RemoteHost(r); got != "unknown" {
		t.Errorf("RemoteHost() = %q, want unknown", got)
	}
}

func TestIdentityFromContext(t *testing.T) {
	t.Parallel()

	if IdentityFromContext(context.Background()) != nil {
		t.Error("expected nil identity on empty context")
	}
	id := &models.Identity{Subject: "user-1"}
	ctx := WithIdentity(context.Background(), id)
	if got := IdentityFromContext(ctx); got != id {
		t.Errorf("IdentityFromContext() = %v, want %v", got, id)
	}
}

func TestRequestIDFromContext(t *testing.T) {
	t.Parallel()

	if RequestIDFromContext(context.Background()) != "" {
		t.Error("expected empty request id")
	}
	ctx := WithRequestID(context.Background(), "abc")
	if got := RequestIDFromContext(ctx); got != "abc" {
		t.Errorf("RequestIDFromContext() = %q, want abc", got)
	}
}
