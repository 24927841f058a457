package models

import (
	"encoding/json"
	"time"

	"github.com/apporte/workflow/internal/types"
)

// Card represents a movable unit on the board. A card stands in for an
// external entity (a project, a proposal) identified by EntityType and
// EntityID; the card itself only tracks placement and a display snapshot.
type Card struct {
	ID         types.CardID
	PipelineID types.PipelineID
	ColumnID   types.ColumnID // current placement; the only field moves change

	EntityType string // e.g. "project"
	EntityID   string // e.g. "proj-1"

	SortOrder    int // order among siblings within a column
	DataSnapshot json.RawMessage

	CreatedAt time.Time
	UpdatedAt time.Time
}
