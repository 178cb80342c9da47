package ratelimit

import (
	"testing"
	"time"
)

func TestPolicyFromRate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		rate      string
		want      Policy
		expectErr bool
	}{
		{"per minute", "10-M", Policy{Limit: 10, Window: time.Minute}, false},
		{"per second", "5-S", Policy{Limit: 5, Window: time.Second}, false},
		{"per hour", "1000-H", Policy{Limit: 1000, Window: time.Hour}, false},
		{"garbage", "ten per minute", Policy{}, true},
		{"empty", "", Policy{}, true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := PolicyFromRate(tt.rate)
			if tt.expectErr {
				if err == nil {
					t.Errorf("expected error for %q", tt.rate)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("PolicyFromRate(%q) = %v, want %v", tt.rate, got, tt.want)
			}
		})
	}
}

func TestPolicyValidate(t *testing.T) {
	t.Parallel()

	if err := DefaultPolicy().Validate(); err != nil {
		t.Errorf("default policy should validate: %v", err)
	}
	if err := (Policy{Limit: -1, Window: time.Minute}).Validate(); err == nil {
		t.Error("expected error for negative limit")
	}
	if err := (Policy{Limit: 1}).Validate(); err == nil {
		t.Error("expected error for zero window")
	}
}

func TestParseRecord_HashReply(t *testing.T) {
	t.Parallel()

	rec, err := parseRecord([]any{"3", "1700000000000"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Count != 3 {
		t.Errorf("expected count 3, got %d", rec.Count)
	}
	if !rec.WindowStart.Equal(time.UnixMilli(1700000000000)) {
		t.Errorf("unexpected window start %v", rec.WindowStart)
	}

	rec, err = parseRecord([]any{nil, nil})
	if err != nil || rec != nil {
		t.Errorf("expected nil record for missing hash, got %v, %v", rec, err)
	}

	if _, err := parseRecord([]any{"x", "1"}); err == nil {
		t.Error("expected error for non-numeric count")
	}
}

func TestPolicyFormatted(t *testing.T) {
	t.Parallel()

	got, ok := DefaultPolicy().Formatted()
	if !ok || got != "10-M" {
		t.Errorf("Formatted() = %q, %v; want 10-M, true", got, ok)
	}
	if _, ok := (Policy{Limit: 5, Window: 90 * time.Second}).Formatted(); ok {
		t.Error("90s window has no formatted representation")
	}

	back, err := PolicyFromRate(got)
	if err != nil || back != DefaultPolicy() {
		t.Errorf("round trip through formatted rate failed: %v, %v", back, err)
	}
}
