package logger

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitizeString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"empty", "", 10, ""},
		{"plain", "10.0.0.1", 0, "10.0.0.1"},
		{"control chars", "1.2.3.4\r\nforged=1", 0, "1.2.3.4forged=1"},
		{"truncated", "abcdef", 3, "abc..."},
		{"invalid utf8", "a\xffb", 0, "ab"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SanitizeString(tt.in, tt.max); got != tt.want {
				t.Errorf("SanitizeString(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
		})
	}
}

func TestSanitizePath(t *testing.T) {
	t.Parallel()

	long := "/" + strings.Repeat("a", MaxPathLength+10)
	if got := SanitizePath(long); len(got) != MaxPathLength+3 {
		t.Errorf("expected truncated path of %d chars, got %d", MaxPathLength+3, len(got))
	}
}

func TestSanitizeError(t *testing.T) {
	t.Parallel()

	if SanitizeError(nil) != "" {
		t.Error("nil error should sanitize to empty string")
	}
	if got := SanitizeError(errors.New("bad\ntoken")); got != "badtoken" {
		t.Errorf("SanitizeError() = %q", got)
	}
}
