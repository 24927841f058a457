package events

import (
	"context"

	"github.com/apporte/workflow/internal/types"
)

// EventPublisher defines the interface for sending and receiving events.
// This interface allows for loose coupling and easier testing by depending
// on behavior rather than concrete implementation.
type EventPublisher interface {
	// Connect establishes a connection to the daemon socket
	Connect(ctx context.Context) error

	// SendEvent queues an event for delivery to the daemon. It must never
	// block: delivery is fire-and-forget from the caller's perspective.
	SendEvent(event CardMovedEvent) error

	// Listen starts receiving events published by other processes
	Listen(ctx context.Context) (<-chan CardMovedEvent, error)

	// Subscribe changes the subscription to a specific pipeline
	Subscribe(pipelineID types.PipelineID) error

	// Close closes the connection to the daemon and stops all goroutines
	Close() error
}

// Compile-time verification that *Client implements EventPublisher
var _ EventPublisher = (*Client)(nil)
