package database

import (
	"context"

	"github.com/apporte/workflow/internal/models"
	"github.com/apporte/workflow/internal/types"
)

// DataStore defines the unified interface for all data operations needed
// by the engine and its callers. Depending on this interface rather than
// the concrete Repository keeps services testable with in-memory fakes.
type DataStore interface {
	// Pipelines
	CreatePipeline(ctx context.Context, params CreatePipelineParams) (*models.Pipeline, error)
	GetPipelineByID(ctx context.Context, id types.PipelineID) (*models.Pipeline, error)
	GetAllPipelines(ctx context.Context) ([]*models.Pipeline, error)
	UpdatePipelineRoles(ctx context.Context, id types.PipelineID, viewRoles, manageRoles []string) error

	// Columns
	CreateColumn(ctx context.Context, column *models.Column) (*models.Column, error)
	GetColumnByID(ctx context.Context, id types.ColumnID) (*models.Column, error)
	GetColumnsByPipeline(ctx context.Context, pipelineID types.PipelineID) ([]*models.Column, error)
	UpdateColumn(ctx context.Context, id types.ColumnID, update models.ColumnUpdate) error

	// Cards
	CreateCard(ctx context.Context, card *models.Card) (*models.Card, error)
	GetCardByID(ctx context.Context, id types.CardID) (*models.Card, error)
	GetCardsByColumn(ctx context.Context, columnID types.ColumnID) ([]*models.Card, error)
	MoveCard(ctx context.Context, id types.CardID, fromColumnID, toColumnID types.ColumnID) error
	UpdateCardSnapshot(ctx context.Context, id types.CardID, snapshot []byte) error
}

// Compile-time verification that *Repository implements DataStore
var _ DataStore = (*Repository)(nil)
