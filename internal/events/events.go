package events

import "context"

// Event types
const (
	EventProjectStatusChanged = "project_status_changed"
	EventNotification         = "notification"
	EventEscrowPaused         = "escrow_paused"
	EventChainEventIndexed    = "chain_event_indexed"
)

// Streams
const (
	StreamProject       = "events:project"
	StreamNotifications = "events:notifications"
)

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}

// NopPublisher drops every event. Used when redis is not configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, Event) error { return nil }
