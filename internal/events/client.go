package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/apporte/workflow/internal/types"
)

// Client represents a connection to the workflow daemon. It queues
// outgoing card-moved events and delivers them from its own goroutine so
// publishers never block on the socket, and it can listen for events
// published by other processes.
type Client struct {
	socketPath string
	conn       net.Conn
	encoder    *json.Encoder
	decoder    *json.Decoder
	mu         sync.Mutex

	eventQueue chan CardMovedEvent
	closed     bool

	// Reconnection policy bounds
	maxRetries uint64
	baseDelay  time.Duration

	currentPipelineID types.PipelineID
	lastSequence      int64

	ctx    context.Context
	cancel context.CancelFunc

	senderOnce    sync.Once
	senderStarted bool
	senderDone    chan struct{}
}

// NewClient creates a new event client but does not connect.
// The socket path should be the full path to the Unix domain socket.
func NewClient(socketPath string) (*Client, error) {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		socketPath: socketPath,
		eventQueue: make(chan CardMovedEvent, 100),
		maxRetries: 5,
		baseDelay:  time.Second,
		ctx:        ctx,
		cancel:     cancel,
		senderDone: make(chan struct{}),
	}, nil
}

// Connect establishes a connection to the daemon socket.
// It sends an initial subscription message for all pipelines.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return fmt.Errorf("failed to dial daemon socket: %w", err)
	}

	c.conn = conn
	c.encoder = json.NewEncoder(conn)
	c.decoder = json.NewDecoder(conn)

	msg := Message{
		Type:      MessageSubscribe,
		Subscribe: &SubscribeMessage{PipelineID: c.currentPipelineID},
	}
	if err := c.encoder.Encode(msg); err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			slog.Error("error closing connection", "error", closeErr)
		}
		return fmt.Errorf("failed to send subscription: %w", err)
	}

	// The sender survives reconnects; start it once
	c.senderOnce.Do(func() {
		c.senderStarted = true
		go c.startSender()
	})

	return nil
}

// SendEvent queues an event to be sent to the daemon.
// Returns an error if the queue is full (non-blocking send).
func (c *Client) SendEvent(event CardMovedEvent) error {
	select {
	case c.eventQueue <- event:
		return nil
	default:
		return fmt.Errorf("event queue full")
	}
}

// startSender forwards queued events to the socket. Unlike a debounced
// change signal, each move event is individually meaningful to audit
// consumers, so events are never collapsed.
func (c *Client) startSender() {
	defer close(c.senderDone)

	for {
		select {
		case <-c.ctx.Done():
			c.drainQueue()
			return
		case event, ok := <-c.eventQueue:
			if !ok {
				return
			}
			c.forward(event)
		}
	}
}

// drainQueue flushes events still pending at shutdown.
func (c *Client) drainQueue() {
	for {
		select {
		case event, ok := <-c.eventQueue:
			if !ok {
				return
			}
			c.forward(event)
		default:
			return
		}
	}
}

func (c *Client) forward(event CardMovedEvent) {
	if err := c.sendToSocket(event); err != nil {
		if !isConnectionError(err) {
			slog.Warn("failed to send card-moved event", "card_id", event.CardID, "error", err)
		}
	}
}

// sendToSocket sends an event to the daemon socket.
func (c *Client) sendToSocket(event CardMovedEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("not connected to daemon")
	}

	// Short write deadline to detect dead connections
	if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
		return fmt.Errorf("connection error: %w", err)
	}

	msg := Message{Type: MessageEvent, Event: &event}
	return c.encoder.Encode(msg)
}

func (c *Client) sendControl(msgType string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("not connected to daemon")
	}
	return c.encoder.Encode(Message{Type: msgType})
}

// Listen starts listening for events from the daemon.
// It returns a channel that receives events and handles reconnection
// automatically. The channel is closed when the context is done or
// reconnection gives up.
func (c *Client) Listen(ctx context.Context) (<-chan CardMovedEvent, error) {
	eventChan := make(chan CardMovedEvent, 10)
	go c.listenLoop(ctx, eventChan)
	return eventChan, nil
}

func (c *Client) listenLoop(ctx context.Context, eventChan chan CardMovedEvent) {
	defer close(eventChan)

	for {
		select {
		case <-ctx.Done():
			return
		default:
			err := c.readEvents(ctx, eventChan)
			if err != nil {
				slog.Info("daemon connection lost, reconnecting", "error", err)

				if c.reconnect(ctx) {
					continue
				}

				slog.Warn("failed to reconnect to daemon, giving up", "max_retries", c.maxRetries)
				return
			}
		}
	}
}

// readEvents reads messages from the socket and sends them to the event channel.
func (c *Client) readEvents(ctx context.Context, eventChan chan CardMovedEvent) error {
	for {
		var msg Message

		c.mu.Lock()
		if c.conn == nil {
			c.mu.Unlock()
			return fmt.Errorf("connection closed")
		}
		// Read deadline detects hung connections; ping interval is shorter
		if err := c.conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
			c.mu.Unlock()
			return fmt.Errorf("failed to set read deadline: %w", err)
		}
		decoder := c.decoder
		c.mu.Unlock()

		if err := decoder.Decode(&msg); err != nil {
			return fmt.Errorf("failed to decode message: %w", err)
		}

		switch msg.Type {
		case MessageEvent:
			if msg.Event != nil {
				// Basic duplicate detection via daemon sequence numbers
				if msg.Event.SequenceID > c.lastSequence {
					c.lastSequence = msg.Event.SequenceID
					select {
					case eventChan <- *msg.Event:
					case <-ctx.Done():
						return ctx.Err()
					}
				}
			}

		case MessagePing:
			if err := c.sendControl(MessagePong); err != nil {
				if !isConnectionError(err) {
					slog.Warn("failed to send pong", "error", err)
				}
			}
		}
	}
}

// reconnect attempts to reconnect to the daemon with exponential backoff,
// giving up after maxRetries attempts or when the context is cancelled.
func (c *Client) reconnect(ctx context.Context) bool {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.baseDelay
	policy.MaxElapsedTime = 0 // bounded by retry count, not wall clock

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++

		c.mu.Lock()
		if c.conn != nil {
			if err := c.conn.Close(); err != nil {
				slog.Debug("error closing connection during reconnect", "error", err)
			}
			c.conn = nil
		}
		c.mu.Unlock()

		if err := c.Connect(ctx); err != nil {
			slog.Debug("reconnection attempt failed",
				"attempt", attempt, "max_retries", c.maxRetries, "error", err)
			return err
		}
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(policy, c.maxRetries), ctx))

	if err == nil {
		slog.Info("reconnected to daemon", "attempts", attempt)
		return true
	}
	return false
}

// Subscribe changes the subscription to a specific pipeline.
// PipelineID 0 means subscribe to all pipelines.
func (c *Client) Subscribe(pipelineID types.PipelineID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.currentPipelineID = pipelineID

	if c.conn == nil {
		return fmt.Errorf("not connected to daemon")
	}
	return c.encoder.Encode(Message{
		Type:      MessageSubscribe,
		Subscribe: &SubscribeMessage{PipelineID: pipelineID},
	})
}

// Close closes the connection to the daemon and stops all goroutines.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true

	// Closing the queue lets the sender flush pending events first
	if c.eventQueue != nil {
		close(c.eventQueue)
	}
	started := c.senderStarted
	c.mu.Unlock()

	c.cancel()

	if started {
		<-c.senderDone
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// isConnectionError checks if an error is a network connection error
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "broken pipe") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "use of closed network connection")
}
