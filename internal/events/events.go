package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	SessionBooked       Type = "session.booked"
	SessionConfirmed    Type = "session.confirmed"
	SessionCancelled    Type = "session.cancelled"
	SessionCompleted    Type = "session.completed"
	RescheduleRequested Type = "reschedule.requested"
	RescheduleApproved  Type = "reschedule.approved"
	RescheduleRejected  Type = "reschedule.rejected"
	PayoutReleased      Type = "payout.released"
)

// Event is a logical state-change notification. Delivery guarantees are the
// sink's problem; the services only emit.
type Event struct {
	Type       Type           `json:"type"`
	SessionID  uuid.UUID      `json:"session_id"`
	ActorID    uuid.UUID      `json:"actor_id,omitempty"`
	MenteeID   uuid.UUID      `json:"mentee_id"`
	MentorID   uuid.UUID      `json:"mentor_id"`
	Payload    map[string]any `json:"payload,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

type Sink interface {
	Publish(ctx context.Context, event Event)
}

// NopSink drops every event. Used in tests and in tools that run the services
// without a connected dispatcher.
type NopSink struct{}

func (NopSink) Publish(context.Context, Event) {}
