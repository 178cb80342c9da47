package middleware

import (
	"net/http"

	"go.uber.org/zap"
)

// DefaultMaxRequestSize is the body limit applied when none is configured.
const DefaultMaxRequestSize int64 = 1 << 20

// MaxRequestSize rejects declared oversize bodies with 413 and caps the rest with
// http.MaxBytesReader, so the upstream never reads more than maxBytes.
func MaxRequestSize(maxBytes int64, logger *zap.Logger) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxRequestSize
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				WriteError(w, r, http.StatusRequestEntityTooLarge, http.StatusText(http.StatusRequestEntityTooLarge),
					"Request body exceeds the allowed size", logger)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
