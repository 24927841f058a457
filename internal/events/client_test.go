package events

import (
	"testing"
)

// ============================================================================
// Client Queue Tests
// ============================================================================

func TestClientSendEventNeverBlocks(t *testing.T) {
	client, err := NewClient("/nonexistent/socket")
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	// Without a running sender the queue fills; every send must return
	// immediately, accepted or not.
	var full bool
	for i := 0; i < 200; i++ {
		if err := client.SendEvent(testEvent(1)); err != nil {
			full = true
			break
		}
	}
	if !full {
		t.Error("expected queue-full error once capacity is exceeded")
	}
}

func TestClientCloseWithoutConnect(t *testing.T) {
	client, err := NewClient("/nonexistent/socket")
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("closing an unconnected client should succeed, got %v", err)
	}
}

func TestClientCloseIsIdempotent(t *testing.T) {
	client, err := NewClient("/nonexistent/socket")
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Fatalf("first close failed: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}
}

func TestClientSubscribeWithoutConnection(t *testing.T) {
	client, err := NewClient("/nonexistent/socket")
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	if err := client.Subscribe(5); err == nil {
		t.Error("expected error subscribing without a connection")
	}
	// The preference is remembered for the next successful connect.
	if client.currentPipelineID != 5 {
		t.Errorf("expected pipeline preference 5 recorded, got %d", client.currentPipelineID)
	}
}

// ============================================================================
// Error Classification Tests
// ============================================================================

func TestIsConnectionError(t *testing.T) {
	if isConnectionError(nil) {
		t.Error("nil is not a connection error")
	}
	if !isConnectionError(errBrokenPipe{}) {
		t.Error("broken pipe should classify as connection error")
	}
}

type errBrokenPipe struct{}

func (errBrokenPipe) Error() string { return "write unix @: broken pipe" }
