package models

import (
	"encoding/json"
	"time"

	"github.com/apporte/workflow/internal/types"
)

// Column represents an ordered stage within a pipeline. Columns carry a
// stable string key (used in transition rules) in addition to their
// numeric id, so rule documents survive column recreation across
// environments.
type Column struct {
	ID         types.ColumnID
	PipelineID types.PipelineID
	Key        string // stable identifier, e.g. "triagem"
	Name       string // display name, e.g. "Triagem"
	Position   int    // left-to-right order, unique within a pipeline

	// AllowedEntityTypes restricts which kinds of cards the column accepts.
	// Empty means unrestricted.
	AllowedEntityTypes []string

	// Role sets for directional actions. Empty means unrestricted.
	AllowedRolesView    []string
	AllowedRolesMoveIn  []string
	AllowedRolesMoveOut []string

	// TransitionRules is the per-column rule document (see workflow
	// package for its parsed form). The remaining documents are opaque
	// pass-through configuration owned by other services.
	TransitionRules   json.RawMessage
	NotificationRules json.RawMessage
	CardLayout        json.RawMessage
	FilterConfig      json.RawMessage

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ColumnUpdate carries a partial column update. Nil fields are left
// untouched; non-nil fields overwrite, including to an empty set.
type ColumnUpdate struct {
	Name                *string
	Position            *int
	AllowedEntityTypes  *[]string
	AllowedRolesView    *[]string
	AllowedRolesMoveIn  *[]string
	AllowedRolesMoveOut *[]string
	TransitionRules     json.RawMessage
	NotificationRules   json.RawMessage
	CardLayout          json.RawMessage
	FilterConfig        json.RawMessage
}
