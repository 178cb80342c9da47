package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/politicianfinder/edge-gate/internal/models"
)

// DefaultTimeout bounds a single verification when none is configured.
const DefaultTimeout = 3 * time.Second

// Guarded wraps a Verifier so that it is bounded by a timeout and never panics.
// Timeouts, panics and errors that do not already wrap ErrUnauthenticated become a
// ValidationError, so the gate fails closed.
type Guarded struct {
	next    Verifier
	timeout time.Duration
}

// Guard wraps next. A non-positive timeout uses DefaultTimeout.
func Guard(next Verifier, timeout time.Duration) *Guarded {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Guarded{next: next, timeout: timeout}
}

// Verify runs the wrapped verifier.
func (g *Guarded) Verify(ctx context.Context, token string) (identity *models.Identity, err error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			identity = nil
			err = &ValidationError{Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	identity, err = g.next.Verify(ctx, token)
	if err != nil {
		if !errors.Is(err, ErrUnauthenticated) {
			err = &ValidationError{Err: err}
		}
		return nil, err
	}
	if identity == nil {
		identity = &models.Identity{}
	}
	return identity, nil
}
