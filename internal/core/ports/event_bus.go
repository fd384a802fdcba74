package ports

import "context"

// Event is a payload published on a topic.
type Event struct {
	Topic string
	Data  any
}

// EventHandler handles one published event.
type EventHandler func(ctx context.Context, event Event) error

// EventBus is an in-process pub/sub system. Hook listeners run
// synchronously on the caller; the bus hands notifications to
// subscribers that must not hold up execution.
type EventBus interface {
	// Publish sends an event to all subscribers of a topic
	Publish(ctx context.Context, topic string, data any) error

	// Subscribe registers a handler for a specific topic
	Subscribe(topic string, handler EventHandler)
}
