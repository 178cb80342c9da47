package models

import "time"

// GateEventType classifies why the gate short-circuited a request.
type GateEventType string

const (
	// GateEventRateLimited is emitted when a client exceeded its ceiling.
	GateEventRateLimited GateEventType = "rate_limit_violation"
	// GateEventUnauthenticated is emitted for a missing or rejected bearer token.
	GateEventUnauthenticated GateEventType = "security_event"
	// GateEventOverloaded is emitted when the process-wide throughput guard rejects a request.
	GateEventOverloaded GateEventType = "global_rate_limit"
)

// GateEvent records a single deny decision made by the gate.
type GateEvent struct {
	ID         string        `json:"id"`
	Type       GateEventType `json:"type"`
	ClientKey  string        `json:"client_key"`
	Method     string        `json:"method"`
	Path       string        `json:"path"`
	StatusCode int           `json:"status_code"`
	Reason     string        `json:"reason,omitempty"`
	RequestID  string        `json:"request_id,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}
