package models

import (
	"time"

	"github.com/apporte/workflow/internal/types"
)

// Pipeline represents a kanban board scoped to a business context
// (e.g. context type "edital", context id "edital-123"). The context
// binding is fixed at creation; name and role sets are mutable.
type Pipeline struct {
	ID          types.PipelineID
	Name        string
	ContextType string
	ContextID   string

	// AllowedRolesView gates who may see the pipeline and its cards.
	// AllowedRolesManage gates administrative changes (column updates).
	// An empty set means unrestricted, not "nobody".
	AllowedRolesView   []string
	AllowedRolesManage []string

	CreatedAt time.Time
	UpdatedAt time.Time
}
