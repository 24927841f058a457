package events

import (
	"log/slog"
	"slices"
	"sync"
)

// Listener receives move events delivered in-process, synchronously,
// after a move has committed.
type Listener interface {
	OnCardMoved(event CardMovedEvent)
}

// Notifier owns the listener registry and fans a committed move out to
// in-process listeners and, when configured, to the daemon socket for
// cross-process consumers. One long-lived notifier instance replaces any
// ambient global listener list: subscription state lives here and
// nowhere else.
type Notifier struct {
	mu        sync.RWMutex
	listeners []Listener
	sink      EventPublisher // optional async fan-out, may be nil
}

// NewNotifier creates a notifier. sink may be nil when no daemon
// connection is available; in-process delivery still works.
func NewNotifier(sink EventPublisher) *Notifier {
	return &Notifier{sink: sink}
}

// Subscribe registers a listener. Safe to call concurrently with
// in-flight publishes.
func (n *Notifier) Subscribe(listener Listener) {
	n.mu.Lock()
	n.listeners = append(n.listeners, listener)
	n.mu.Unlock()
	slog.Debug("workflow listener subscribed", "listener_count", n.ListenerCount())
}

// Unsubscribe removes a previously registered listener by identity. A
// publish that already began iterating may still deliver to the removed
// listener once; that is not a strict barrier.
func (n *Notifier) Unsubscribe(listener Listener) {
	n.mu.Lock()
	for i, l := range n.listeners {
		if l == listener {
			n.listeners = slices.Delete(n.listeners, i, i+1)
			break
		}
	}
	n.mu.Unlock()
}

// ListenerCount returns the number of registered listeners.
func (n *Notifier) ListenerCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners)
}

// Publish delivers the event to every registered listener, then hands it
// to the async sink. Delivery is best-effort per listener: one
// listener's failure is logged and never aborts delivery to the rest,
// and nothing here can fail the move - it has already committed.
func (n *Notifier) Publish(event CardMovedEvent) {
	n.mu.RLock()
	snapshot := slices.Clone(n.listeners)
	n.mu.RUnlock()

	for _, listener := range snapshot {
		n.deliver(listener, event)
	}

	if n.sink != nil {
		// Queued, not awaited; the client's goroutines own delivery
		if err := n.sink.SendEvent(event); err != nil {
			slog.Warn("failed to queue card-moved event for daemon",
				"card_id", event.CardID, "error", err)
		}
	}
}

func (n *Notifier) deliver(listener Listener, event CardMovedEvent) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in workflow event listener",
				"card_id", event.CardID, "panic", r)
		}
	}()
	listener.OnCardMoved(event)
}
