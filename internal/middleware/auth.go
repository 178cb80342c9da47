package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/politicianfinder/edge-gate/internal/models"
	"github.com/politicianfinder/edge-gate/internal/request"
	"github.com/politicianfinder/edge-gate/internal/services/auth"
	"go.uber.org/zap"
)

// AuthStage requires a bearer token and asks the verifier who presented it.
type AuthStage struct {
	verifier auth.Verifier
	logger   *zap.Logger
}

// NewAuthStage wraps verifier with a timeout and panic guard.
func NewAuthStage(verifier auth.Verifier, timeout time.Duration, logger *zap.Logger) *AuthStage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthStage{verifier: auth.Guard(verifier, timeout), logger: logger}
}

// Name implements Stage.
func (s *AuthStage) Name() string { return "auth" }

// Check implements Stage.
func (s *AuthStage) Check(r *http.Request) Verdict {
	token, err := auth.BearerToken(r.Header.Get("Authorization"))
	if err != nil {
		return unauthorized(err, "Missing or invalid Authorization header")
	}

	identity, err := s.verifier.Verify(r.Context(), token)
	if err != nil {
		var verr *auth.ValidationError
		if errors.As(err, &verr) {
			s.logger.Warn("token_validation_error", zap.Error(verr.Err))
		}
		return unauthorized(err, "Invalid or expired token")
	}

	return Verdict{
		Outcome: Continue,
		Request: r.WithContext(request.WithIdentity(r.Context(), identity)),
	}
}

func unauthorized(err error, message string) Verdict {
	h := http.Header{}
	h.Set("WWW-Authenticate", `Bearer realm="api"`)
	return Verdict{
		Outcome: Deny,
		Status:  http.StatusUnauthorized,
		Header:  h,
		Err:     err,
		Message: message,
		Event:   models.GateEventUnauthenticated,
	}
}
