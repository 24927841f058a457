package events

import (
	"time"

	"github.com/apporte/workflow/internal/models"
	"github.com/apporte/workflow/internal/types"
)

// CardMovedEvent is published after a move has committed. It carries
// enough data for downstream notification and audit consumers to act
// without re-reading the board.
type CardMovedEvent struct {
	CardID       types.CardID     `json:"card_id"`
	PipelineID   types.PipelineID `json:"pipeline_id"`
	FromColumnID types.ColumnID   `json:"from_column_id"`
	ToColumnID   types.ColumnID   `json:"to_column_id"`
	EntityType   string           `json:"entity_type"`
	EntityID     string           `json:"entity_id"`
	Actor        models.Actor     `json:"actor"`
	Timestamp    time.Time        `json:"timestamp"`

	// SequenceID is assigned by the daemon for ordering and duplicate
	// detection on the subscriber side; zero until then.
	SequenceID int64 `json:"sequence_id,omitempty"`
}

// NewCardMovedEvent stamps a move event with the current time.
func NewCardMovedEvent(card *models.Card, fromColumnID, toColumnID types.ColumnID, actor models.Actor) CardMovedEvent {
	return CardMovedEvent{
		CardID:       card.ID,
		PipelineID:   card.PipelineID,
		FromColumnID: fromColumnID,
		ToColumnID:   toColumnID,
		EntityType:   card.EntityType,
		EntityID:     card.EntityID,
		Actor:        actor,
		Timestamp:    time.Now(),
	}
}

// SubscribeMessage is sent by clients to subscribe to specific pipeline updates
type SubscribeMessage struct {
	PipelineID types.PipelineID // 0 = all pipelines, >0 = specific pipeline
}

// Message wraps events and control messages for the wire protocol
type Message struct {
	Type      string            // "event", "subscribe", "ping", "pong"
	Event     *CardMovedEvent   `json:",omitempty"`
	Subscribe *SubscribeMessage `json:",omitempty"`
}

// Wire message types
const (
	MessageEvent     = "event"
	MessageSubscribe = "subscribe"
	MessagePing      = "ping"
	MessagePong      = "pong"
)
