package events

import (
	"time"

	"github.com/spec-kit/signal-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSignalCreated       EventType = "signal_created"
	EventSignalStatusChanged EventType = "signal_status_changed"
)

// Event represents a domain event emitted after a successful state change.
// Delivery is asynchronous and at-least-once; consumers must be idempotent.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SignalID  int64       `json:"signal_id"`
	Actor     string      `json:"actor,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// SignalCreatedPayload payload.
type SignalCreatedPayload struct {
	Priority domain.SignalPriority `json:"priority"`
	Title    string                `json:"title"`
}

// SignalStatusChangedPayload payload.
type SignalStatusChangedPayload struct {
	StatusID  string             `json:"status_id"`
	OldState  domain.SignalState `json:"old_state"`
	NewState  domain.SignalState `json:"new_state"`
	Text      string             `json:"text,omitempty"`
	TargetAPI *domain.TargetAPI  `json:"target_api,omitempty"`
}
