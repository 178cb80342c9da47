package queue

import (
	"context"

	"github.com/politicianfinder/edge-gate/internal/models"
)

// EventPublisher ships gate events to a broker.
type EventPublisher interface {
	// Publish sends one event. Implementations must be safe for concurrent use.
	Publish(ctx context.Context, ev *models.GateEvent) error

	// Close closes the broker connection
	Close() error

	// HealthCheck verifies the broker connection is healthy
	HealthCheck(ctx context.Context) error
}
