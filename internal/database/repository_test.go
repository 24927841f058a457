package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/apporte/workflow/internal/models"
	"github.com/apporte/workflow/internal/types"
)

// ============================================================================
// TEST HELPERS
// ============================================================================

// setupTestDB creates an in-memory database and runs migrations
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	// A second connection would open a second empty in-memory database
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("Failed to enable foreign keys: %v", err)
	}
	if err := runMigrations(ctx, db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

// createTestPipeline inserts a pipeline and returns it
func createTestPipeline(t *testing.T, repo *Repository) *models.Pipeline {
	t.Helper()
	pipeline, err := repo.CreatePipeline(context.Background(), CreatePipelineParams{
		Name:             "Edital 2026",
		ContextType:      "edital",
		ContextID:        "edital-123",
		AllowedRolesView: []string{"reviewer", "admin"},
	})
	if err != nil {
		t.Fatalf("Failed to create test pipeline: %v", err)
	}
	return pipeline
}

// createTestColumn inserts a column with the given key and position
func createTestColumn(t *testing.T, repo *Repository, pipelineID types.PipelineID, key string, position int) *models.Column {
	t.Helper()
	column, err := repo.CreateColumn(context.Background(), &models.Column{
		PipelineID: pipelineID,
		Key:        key,
		Name:       key,
		Position:   position,
	})
	if err != nil {
		t.Fatalf("Failed to create test column %q: %v", key, err)
	}
	return column
}

func createTestCard(t *testing.T, repo *Repository, pipelineID types.PipelineID, columnID types.ColumnID) *models.Card {
	t.Helper()
	card, err := repo.CreateCard(context.Background(), &models.Card{
		PipelineID: pipelineID,
		ColumnID:   columnID,
		EntityType: "project",
		EntityID:   "proj-1",
	})
	if err != nil {
		t.Fatalf("Failed to create test card: %v", err)
	}
	return card
}

// ============================================================================
// PIPELINES
// ============================================================================

func TestPipelineRoundTrip(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	pipeline := createTestPipeline(t, repo)

	got, err := repo.GetPipelineByID(context.Background(), pipeline.ID)
	if err != nil {
		t.Fatalf("GetPipelineByID failed: %v", err)
	}
	if got.Name != "Edital 2026" || got.ContextType != "edital" || got.ContextID != "edital-123" {
		t.Errorf("unexpected pipeline fields: %+v", got)
	}
	if len(got.AllowedRolesView) != 2 {
		t.Errorf("expected 2 view roles, got %v", got.AllowedRolesView)
	}
	if got.AllowedRolesManage != nil {
		t.Errorf("empty manage roles must read back as nil, got %v", got.AllowedRolesManage)
	}
}

func TestPipelineNotFound(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	_, err := repo.GetPipelineByID(context.Background(), 42)
	if !errors.Is(err, models.ErrPipelineNotFound) {
		t.Errorf("expected ErrPipelineNotFound, got %v", err)
	}

	err = repo.UpdatePipelineRoles(context.Background(), 42, nil, nil)
	if !errors.Is(err, models.ErrPipelineNotFound) {
		t.Errorf("expected ErrPipelineNotFound on update, got %v", err)
	}
}

// ============================================================================
// COLUMNS
// ============================================================================

func TestColumnRoundTrip(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	pipeline := createTestPipeline(t, repo)

	rules := json.RawMessage(`{"transitions":[{"from":"triagem","to":"aprovado"}]}`)
	column, err := repo.CreateColumn(context.Background(), &models.Column{
		PipelineID:          pipeline.ID,
		Key:                 "triagem",
		Name:                "Triagem",
		Position:            1,
		AllowedEntityTypes:  []string{"project"},
		AllowedRolesMoveOut: []string{"reviewer"},
		TransitionRules:     rules,
	})
	if err != nil {
		t.Fatalf("CreateColumn failed: %v", err)
	}

	got, err := repo.GetColumnByID(context.Background(), column.ID)
	if err != nil {
		t.Fatalf("GetColumnByID failed: %v", err)
	}
	if got.Key != "triagem" || got.Position != 1 {
		t.Errorf("unexpected column fields: %+v", got)
	}
	if len(got.AllowedRolesMoveOut) != 1 || got.AllowedRolesMoveOut[0] != "reviewer" {
		t.Errorf("unexpected move-out roles: %v", got.AllowedRolesMoveOut)
	}
	if string(got.TransitionRules) != string(rules) {
		t.Errorf("rule document must pass through untouched: %s", got.TransitionRules)
	}
	if got.AllowedRolesMoveIn != nil {
		t.Errorf("absent move-in roles must read back as nil, got %v", got.AllowedRolesMoveIn)
	}
}

func TestColumnNotFound(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	_, err := repo.GetColumnByID(context.Background(), 42)
	if !errors.Is(err, models.ErrColumnNotFound) {
		t.Errorf("expected ErrColumnNotFound, got %v", err)
	}
}

func TestColumnsOrderedByPosition(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	pipeline := createTestPipeline(t, repo)

	// Insert out of board order
	createTestColumn(t, repo, pipeline.ID, "aprovado", 2)
	createTestColumn(t, repo, pipeline.ID, "triagem", 1)
	createTestColumn(t, repo, pipeline.ID, "arquivado", 3)

	columns, err := repo.GetColumnsByPipeline(context.Background(), pipeline.ID)
	if err != nil {
		t.Fatalf("GetColumnsByPipeline failed: %v", err)
	}
	if len(columns) != 3 {
		t.Fatalf("expected 3 columns, got %d", len(columns))
	}
	want := []string{"triagem", "aprovado", "arquivado"}
	for i, key := range want {
		if columns[i].Key != key {
			t.Errorf("position %d: expected %q, got %q", i, key, columns[i].Key)
		}
	}
}

func TestColumnPartialUpdate(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	pipeline := createTestPipeline(t, repo)
	column := createTestColumn(t, repo, pipeline.ID, "triagem", 1)

	name := "Em Triagem"
	moveIn := []string{"admin"}
	rules := json.RawMessage(`{"transitions":[{"from":"a","to":"b"}]}`)
	err := repo.UpdateColumn(context.Background(), column.ID, models.ColumnUpdate{
		Name:               &name,
		AllowedRolesMoveIn: &moveIn,
		TransitionRules:    rules,
	})
	if err != nil {
		t.Fatalf("UpdateColumn failed: %v", err)
	}

	got, err := repo.GetColumnByID(context.Background(), column.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Em Triagem" {
		t.Errorf("expected updated name, got %q", got.Name)
	}
	if got.Key != "triagem" || got.Position != 1 {
		t.Errorf("untouched fields must survive the update: %+v", got)
	}
	if len(got.AllowedRolesMoveIn) != 1 || got.AllowedRolesMoveIn[0] != "admin" {
		t.Errorf("unexpected move-in roles: %v", got.AllowedRolesMoveIn)
	}
	if string(got.TransitionRules) != string(rules) {
		t.Errorf("unexpected rule document: %s", got.TransitionRules)
	}
}

func TestColumnDuplicateKeyRejected(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	pipeline := createTestPipeline(t, repo)
	createTestColumn(t, repo, pipeline.ID, "triagem", 1)

	_, err := repo.CreateColumn(context.Background(), &models.Column{
		PipelineID: pipeline.ID,
		Key:        "triagem",
		Name:       "Duplicate",
		Position:   2,
	})
	if err == nil {
		t.Error("expected unique key constraint violation")
	}
}

// ============================================================================
// CARDS
// ============================================================================

func TestCardRoundTrip(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	pipeline := createTestPipeline(t, repo)
	column := createTestColumn(t, repo, pipeline.ID, "triagem", 1)
	card := createTestCard(t, repo, pipeline.ID, column.ID)

	got, err := repo.GetCardByID(context.Background(), card.ID)
	if err != nil {
		t.Fatalf("GetCardByID failed: %v", err)
	}
	if got.ColumnID != column.ID || got.EntityType != "project" || got.EntityID != "proj-1" {
		t.Errorf("unexpected card fields: %+v", got)
	}
}

func TestCardsAppendInSortOrder(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	pipeline := createTestPipeline(t, repo)
	column := createTestColumn(t, repo, pipeline.ID, "triagem", 1)

	for range 3 {
		createTestCard(t, repo, pipeline.ID, column.ID)
	}

	cards, err := repo.GetCardsByColumn(context.Background(), column.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(cards) != 3 {
		t.Fatalf("expected 3 cards, got %d", len(cards))
	}
	for i, card := range cards {
		if card.SortOrder != i {
			t.Errorf("card %d: expected sort order %d, got %d", card.ID, i, card.SortOrder)
		}
	}
}

func TestMoveCardOptimisticGuard(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	pipeline := createTestPipeline(t, repo)
	triagem := createTestColumn(t, repo, pipeline.ID, "triagem", 1)
	aprovado := createTestColumn(t, repo, pipeline.ID, "aprovado", 2)
	card := createTestCard(t, repo, pipeline.ID, triagem.ID)
	ctx := context.Background()

	if err := repo.MoveCard(ctx, card.ID, triagem.ID, aprovado.ID); err != nil {
		t.Fatalf("MoveCard failed: %v", err)
	}

	got, err := repo.GetCardByID(ctx, card.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ColumnID != aprovado.ID {
		t.Errorf("expected card in aprovado, got column %d", got.ColumnID)
	}

	// A second move validated against the stale source loses the race
	err = repo.MoveCard(ctx, card.ID, triagem.ID, aprovado.ID)
	if !errors.Is(err, models.ErrCardMoveConflict) {
		t.Errorf("expected ErrCardMoveConflict for stale source, got %v", err)
	}
}

func TestMoveCardUnknownCard(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	pipeline := createTestPipeline(t, repo)
	triagem := createTestColumn(t, repo, pipeline.ID, "triagem", 1)
	aprovado := createTestColumn(t, repo, pipeline.ID, "aprovado", 2)

	err := repo.MoveCard(context.Background(), 42, triagem.ID, aprovado.ID)
	if !errors.Is(err, models.ErrCardNotFound) {
		t.Errorf("expected ErrCardNotFound, got %v", err)
	}
}

func TestUpdateCardSnapshot(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	pipeline := createTestPipeline(t, repo)
	column := createTestColumn(t, repo, pipeline.ID, "triagem", 1)
	card := createTestCard(t, repo, pipeline.ID, column.ID)

	snapshot := []byte(`{"title":"Projeto X"}`)
	if err := repo.UpdateCardSnapshot(context.Background(), card.ID, snapshot); err != nil {
		t.Fatalf("UpdateCardSnapshot failed: %v", err)
	}

	got, err := repo.GetCardByID(context.Background(), card.ID)
	if err != nil {
		t.Fatal(err)
	}
	if string(got.DataSnapshot) != string(snapshot) {
		t.Errorf("unexpected snapshot: %s", got.DataSnapshot)
	}
}
