// Package testutil provides shared database fixtures for service and
// command tests.
package testutil

import (
	"context"
	"testing"

	"github.com/apporte/workflow/internal/database"
	"github.com/apporte/workflow/internal/models"
	"github.com/apporte/workflow/internal/types"
)

// OpenRepository creates an in-memory database with the full schema and
// returns a repository over it. The database is closed when the test
// finishes.
func OpenRepository(t *testing.T) *database.Repository {
	t.Helper()

	db, err := database.InitDB(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return database.NewRepository(db)
}

// MakePipeline inserts a pipeline with the given role sets.
func MakePipeline(t *testing.T, repo *database.Repository, name string, viewRoles, manageRoles []string) *models.Pipeline {
	t.Helper()

	pipeline, err := repo.CreatePipeline(context.Background(), database.CreatePipelineParams{
		Name:               name,
		ContextType:        "project",
		ContextID:          "proj-1",
		AllowedRolesView:   viewRoles,
		AllowedRolesManage: manageRoles,
	})
	if err != nil {
		t.Fatalf("Failed to create pipeline: %v", err)
	}
	return pipeline
}

// MakeColumn inserts a column. The template's PipelineID and Position
// are set from the arguments; other fields pass through as given.
func MakeColumn(t *testing.T, repo *database.Repository, pipelineID types.PipelineID, position int, template models.Column) *models.Column {
	t.Helper()

	template.PipelineID = pipelineID
	template.Position = position
	if template.Name == "" {
		template.Name = template.Key
	}
	column, err := repo.CreateColumn(context.Background(), &template)
	if err != nil {
		t.Fatalf("Failed to create column %q: %v", template.Key, err)
	}
	return column
}

// MakeCard inserts a card into the given column.
func MakeCard(t *testing.T, repo *database.Repository, pipelineID types.PipelineID, columnID types.ColumnID, entityType, entityID string) *models.Card {
	t.Helper()

	card, err := repo.CreateCard(context.Background(), &models.Card{
		PipelineID: pipelineID,
		ColumnID:   columnID,
		EntityType: entityType,
		EntityID:   entityID,
	})
	if err != nil {
		t.Fatalf("Failed to create card %s: %v", entityID, err)
	}
	return card
}
