// Package daemon implements the workflow notification daemon: a Unix
// socket fan-out hub that relays card-moved events between CLI
// processes and long-lived subscribers (notification workers, board
// watchers), filtered by pipeline subscription.
package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/apporte/workflow/internal/events"
	"github.com/apporte/workflow/internal/types"
)

// client represents a connected subscriber
type client struct {
	conn         net.Conn
	send         chan events.Message
	subscription events.SubscribeMessage
	lastPong     time.Time
	mu           sync.Mutex // Protects subscription and lastPong
	closeOnce    sync.Once  // Ensures send channel is closed only once
}

// Server is the workflow event daemon. Events received from any client
// are stamped with a daemon-wide sequence number and broadcast to every
// client whose subscription covers the event's pipeline.
type Server struct {
	socketPath       string
	listener         net.Listener
	clients          map[*client]bool
	mu               sync.RWMutex
	ctx              context.Context
	cancel           context.CancelFunc
	broadcast        chan events.CardMovedEvent
	metrics          *Metrics
	sequenceCounter  atomic.Int64
	clientBufferSize int
	shutdownOnce     sync.Once
}

// Options tunes the daemon's queue sizes. Zero values fall back to the
// WORKFLOW_DAEMON_* environment variables, then to built-in defaults.
type Options struct {
	BroadcastBuffer int
	ClientBuffer    int
}

// getEnvInt reads an integer from an environment variable, returning defaultVal if not set or invalid
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultVal
}

// NewServer creates a daemon server listening on the given socket path.
// A stale socket file from a previous run is removed first.
func NewServer(socketPath string, opts Options) (*Server, error) {
	dir := filepath.Dir(socketPath)
	if dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create socket directory: %w", err)
		}
	}

	if _, err := os.Stat(socketPath); err == nil {
		if err := os.Remove(socketPath); err != nil {
			return nil, fmt.Errorf("failed to remove stale socket: %w", err)
		}
	}

	lc := net.ListenConfig{}
	listener, err := lc.Listen(context.Background(), "unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create socket listener: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	// Environment overrides allow tuning without a config file change
	broadcastBuffer := opts.BroadcastBuffer
	if broadcastBuffer <= 0 {
		broadcastBuffer = 100
	}
	broadcastBuffer = getEnvInt("WORKFLOW_DAEMON_BROADCAST_BUFFER", broadcastBuffer)

	clientBuffer := opts.ClientBuffer
	if clientBuffer <= 0 {
		clientBuffer = 10
	}
	clientBuffer = getEnvInt("WORKFLOW_DAEMON_CLIENT_BUFFER", clientBuffer)

	return &Server{
		socketPath:       socketPath,
		listener:         listener,
		clients:          make(map[*client]bool),
		ctx:              ctx,
		cancel:           cancel,
		broadcast:        make(chan events.CardMovedEvent, broadcastBuffer),
		metrics:          NewMetrics(),
		clientBufferSize: clientBuffer,
	}, nil
}

// Start runs the daemon until the context is cancelled or the accept
// loop fails, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	slog.Info("daemon starting", "socket", s.socketPath)

	combinedCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-s.ctx.Done()
		cancel()
	}()

	acceptErr := make(chan error, 1)
	go func() {
		acceptErr <- s.acceptLoop(combinedCtx)
	}()

	go s.broadcastLoop(combinedCtx)
	go s.monitorHealth(combinedCtx)

	select {
	case <-combinedCtx.Done():
		slog.Info("daemon context cancelled, shutting down")
	case err := <-acceptErr:
		if err != nil {
			slog.Error("accept loop error", "error", err)
		}
	}

	return s.Shutdown()
}

// acceptLoop accepts incoming client connections
func (s *Server) acceptLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		// Deadline lets the loop observe context cancellation
		if err := s.listener.(*net.UnixListener).SetDeadline(time.Now().Add(1 * time.Second)); err != nil {
			slog.Error("error setting listener deadline", "error", err)
		}

		conn, err := s.listener.Accept()
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			return fmt.Errorf("accept error: %w", err)
		}

		c := &client{
			conn:     conn,
			send:     make(chan events.Message, s.clientBufferSize),
			lastPong: time.Now(),
		}

		s.mu.Lock()
		s.clients[c] = true
		s.mu.Unlock()
		s.updateClientCount()

		slog.Info("client connected", "total_clients", s.getClientCount())

		go s.handleClient(c)
		go s.clientWriter(c)
	}
}

// broadcastLoop stamps sequence numbers and distributes events to
// subscribed clients.
func (s *Server) broadcastLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event := <-s.broadcast:
			event.SequenceID = s.sequenceCounter.Add(1)
			s.metrics.IncBroadcastsTotal()

			s.mu.RLock()
			for c := range s.clients {
				c.mu.Lock()
				isSubscribed := c.subscription.PipelineID == types.AllPipelines ||
					c.subscription.PipelineID == event.PipelineID
				c.mu.Unlock()

				if isSubscribed {
					msg := events.Message{
						Type:  events.MessageEvent,
						Event: &event,
					}

					// Non-blocking send - a slow client loses the event
					if !s.sendToClient(c, msg) {
						s.metrics.IncEventsDropped()
						slog.Warn("client send queue full, event dropped",
							"card_id", event.CardID, "sequence_id", event.SequenceID)
					}
				}
			}
			s.mu.RUnlock()
		}
	}
}

// handleClient reads messages from a connected client
func (s *Server) handleClient(c *client) {
	defer func() {
		s.removeClient(c)
		slog.Info("client disconnected", "total_clients", s.getClientCount())
	}()

	decoder := json.NewDecoder(c.conn)

	for {
		var msg events.Message
		if err := decoder.Decode(&msg); err != nil {
			return
		}

		switch msg.Type {
		case events.MessageEvent:
			if msg.Event != nil {
				s.metrics.IncEventsReceived()
				select {
				case s.broadcast <- *msg.Event:
				default:
					slog.Warn("broadcast channel full, event dropped",
						"card_id", msg.Event.CardID)
				}
			}

		case events.MessageSubscribe:
			if msg.Subscribe != nil {
				c.mu.Lock()
				c.subscription = *msg.Subscribe
				c.mu.Unlock()
				slog.Info("client subscribed", "pipeline_id", msg.Subscribe.PipelineID)
			}

		case events.MessagePong:
			c.mu.Lock()
			c.lastPong = time.Now()
			c.mu.Unlock()
		}
	}
}

// clientWriter sends queued messages to a client
func (s *Server) clientWriter(c *client) {
	encoder := json.NewEncoder(c.conn)

	for msg := range c.send {
		if err := encoder.Encode(msg); err != nil {
			return
		}
	}
}

// monitorHealth sends ping messages and removes stale clients
func (s *Server) monitorHealth(ctx context.Context) {
	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	healthTicker := time.NewTicker(60 * time.Second)
	defer healthTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-pingTicker.C:
			s.mu.RLock()
			clients := make([]*client, 0, len(s.clients))
			for c := range s.clients {
				clients = append(clients, c)
			}
			s.mu.RUnlock()

			pingMsg := events.Message{Type: events.MessagePing}
			for _, c := range clients {
				if !s.sendToClient(c, pingMsg) {
					slog.Warn("failed to send ping to client, queue full")
				}
			}

		case <-healthTicker.C:
			// Stale = no pong within three ping intervals.
			// Two-phase locking: collect under the server lock, remove outside it
			s.mu.RLock()
			staleClients := make([]*client, 0)
			now := time.Now()
			for c := range s.clients {
				c.mu.Lock()
				lastPong := c.lastPong
				c.mu.Unlock()

				if now.Sub(lastPong) > 90*time.Second {
					staleClients = append(staleClients, c)
				}
			}
			s.mu.RUnlock()

			for _, c := range staleClients {
				slog.Info("removing stale client", "last_pong_ago", now.Sub(c.lastPong))
				s.removeClient(c)
			}
		}
	}
}

// Broadcast queues an event for fan-out (non-blocking).
func (s *Server) Broadcast(event events.CardMovedEvent) error {
	select {
	case s.broadcast <- event:
		return nil
	default:
		return fmt.Errorf("broadcast channel full")
	}
}

// Metrics returns the daemon's live metrics.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() error {
	var err error
	s.shutdownOnce.Do(func() {
		slog.Info("shutting down daemon")

		s.cancel()

		if s.listener != nil {
			if closeErr := s.listener.Close(); closeErr != nil {
				slog.Error("error closing listener", "error", closeErr)
			}
		}

		s.mu.Lock()
		for c := range s.clients {
			if closeErr := c.conn.Close(); closeErr != nil {
				slog.Error("error closing client connection", "error", closeErr)
			}
			c.closeOnce.Do(func() {
				close(c.send)
			})
		}
		s.clients = make(map[*client]bool)
		s.mu.Unlock()

		if removeErr := os.Remove(s.socketPath); removeErr != nil && !os.IsNotExist(removeErr) {
			slog.Warn("failed to remove socket file", "error", removeErr)
		}

		close(s.broadcast)
	})

	return err
}

// Helper methods

func (s *Server) getClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *Server) updateClientCount() {
	s.metrics.SetConnectedClients(int32(s.getClientCount()))
}

// removeClient safely removes a client from the server
func (s *Server) removeClient(c *client) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()

	if err := c.conn.Close(); err != nil {
		slog.Debug("error closing client connection", "error", err)
	}
	c.closeOnce.Do(func() {
		close(c.send)
	})

	s.updateClientCount()
}

// sendToClient attempts a non-blocking send to the client's queue.
func (s *Server) sendToClient(c *client, msg events.Message) bool {
	select {
	case c.send <- msg:
		s.metrics.IncEventsSent()
		return true
	default:
		return false
	}
}
