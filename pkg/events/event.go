package events

import (
	"time"

	"github.com/google/uuid"
)

// Event defines the contract for all client-side events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "SESSION_COMPLETED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent helps embed common logic if needed,
// strictly creating valid implementations is preferred though.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// NewSessionCompletedEvent is emitted when a streamed agent reply reaches
// the completed state and the persisted message should be re-fetched.
func NewSessionCompletedEvent(conversationId uuid.UUID) Event {
	now := time.Now()
	return BaseEvent{
		Type: "SESSION_COMPLETED",
		Data: map[string]interface{}{
			"conversation_id": conversationId.String(),
			"completed_at":    now,
		},
		OccurredAt: now,
	}
}
