package database

import (
	"context"
	"database/sql"

	"github.com/apporte/workflow/internal/models"
	"github.com/apporte/workflow/internal/types"
)

// Repository provides a unified interface to all data operations.
// It composes domain-specific repositories using struct embedding.
type Repository struct {
	*PipelineRepo
	*ColumnRepo
	*CardRepo
}

// NewRepository creates a new Repository instance wrapping the given
// database connection.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		PipelineRepo: &PipelineRepo{db: db},
		ColumnRepo:   &ColumnRepo{db: db},
		CardRepo:     &CardRepo{db: db},
	}
}

// The embedded repos share method names (Create, GetByID), so the
// DataStore surface is exposed through explicitly named wrappers.

func (r *Repository) CreatePipeline(ctx context.Context, params CreatePipelineParams) (*models.Pipeline, error) {
	return r.PipelineRepo.Create(ctx, params)
}

func (r *Repository) GetPipelineByID(ctx context.Context, id types.PipelineID) (*models.Pipeline, error) {
	return r.PipelineRepo.GetByID(ctx, id)
}

func (r *Repository) GetAllPipelines(ctx context.Context) ([]*models.Pipeline, error) {
	return r.PipelineRepo.GetAll(ctx)
}

func (r *Repository) UpdatePipelineRoles(ctx context.Context, id types.PipelineID, viewRoles, manageRoles []string) error {
	return r.PipelineRepo.UpdateRoles(ctx, id, viewRoles, manageRoles)
}

func (r *Repository) CreateColumn(ctx context.Context, column *models.Column) (*models.Column, error) {
	return r.ColumnRepo.Create(ctx, column)
}

func (r *Repository) GetColumnByID(ctx context.Context, id types.ColumnID) (*models.Column, error) {
	return r.ColumnRepo.GetByID(ctx, id)
}

func (r *Repository) GetColumnsByPipeline(ctx context.Context, pipelineID types.PipelineID) ([]*models.Column, error) {
	return r.ColumnRepo.GetByPipeline(ctx, pipelineID)
}

func (r *Repository) UpdateColumn(ctx context.Context, id types.ColumnID, update models.ColumnUpdate) error {
	return r.ColumnRepo.Update(ctx, id, update)
}

func (r *Repository) CreateCard(ctx context.Context, card *models.Card) (*models.Card, error) {
	return r.CardRepo.Create(ctx, card)
}

func (r *Repository) GetCardByID(ctx context.Context, id types.CardID) (*models.Card, error) {
	return r.CardRepo.GetByID(ctx, id)
}

func (r *Repository) GetCardsByColumn(ctx context.Context, columnID types.ColumnID) ([]*models.Card, error) {
	return r.CardRepo.GetByColumn(ctx, columnID)
}

func (r *Repository) MoveCard(ctx context.Context, id types.CardID, fromColumnID, toColumnID types.ColumnID) error {
	return r.CardRepo.MoveCard(ctx, id, fromColumnID, toColumnID)
}

func (r *Repository) UpdateCardSnapshot(ctx context.Context, id types.CardID, snapshot []byte) error {
	return r.CardRepo.UpdateSnapshot(ctx, id, snapshot)
}
