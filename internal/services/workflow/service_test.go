package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/apporte/workflow/internal/database"
	"github.com/apporte/workflow/internal/events"
	"github.com/apporte/workflow/internal/models"
	"github.com/apporte/workflow/internal/testutil"
	"github.com/apporte/workflow/internal/types"
	"github.com/apporte/workflow/internal/workflow"
)

// ============================================================================
// Test Helpers
// ============================================================================

type board struct {
	repo     *database.Repository
	pipeline *models.Pipeline
	backlog  *models.Column
	doing    *models.Column
	card     *models.Card
}

// setupBoard creates a pipeline with two unrestricted columns and one card.
func setupBoard(t *testing.T, viewRoles []string) board {
	t.Helper()
	repo := testutil.OpenRepository(t)
	pipeline := testutil.MakePipeline(t, repo, "Delivery", viewRoles, nil)
	backlog := testutil.MakeColumn(t, repo, pipeline.ID, 0, models.Column{Key: "backlog"})
	doing := testutil.MakeColumn(t, repo, pipeline.ID, 1, models.Column{Key: "doing"})
	card := testutil.MakeCard(t, repo, pipeline.ID, backlog.ID, "task", "T-1")
	return board{repo: repo, pipeline: pipeline, backlog: backlog, doing: doing, card: card}
}

func member(roles ...string) models.Actor {
	return models.Actor{ID: "alice", Name: "Alice", Roles: roles}
}

type recordingListener struct {
	mu     sync.Mutex
	events []events.CardMovedEvent
}

func (l *recordingListener) OnCardMoved(event events.CardMovedEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func cardColumn(t *testing.T, repo *database.Repository, cardID types.CardID) types.ColumnID {
	t.Helper()
	card, err := repo.GetCardByID(context.Background(), cardID)
	if err != nil {
		t.Fatalf("Failed to reload card: %v", err)
	}
	return card.ColumnID
}

// ============================================================================
// MoveCard Tests
// ============================================================================

func TestMoveCardSuccess(t *testing.T) {
	b := setupBoard(t, nil)
	svc := NewService(b.repo, nil, 0)
	ctx := context.Background()

	resp, err := svc.MoveCard(ctx, b.pipeline.ID, b.card.ID,
		MoveCardRequest{ToColumnID: b.doing.ID}, member("member"))
	if err != nil {
		t.Fatalf("MoveCard failed: %v", err)
	}

	if !resp.Success {
		t.Error("expected successful response")
	}
	if resp.NewColumnID != b.doing.ID {
		t.Errorf("expected new column %d, got %d", b.doing.ID, resp.NewColumnID)
	}
	if resp.Message != "card moved successfully from column backlog to doing" {
		t.Errorf("unexpected message: %q", resp.Message)
	}
	if got := cardColumn(t, b.repo, b.card.ID); got != b.doing.ID {
		t.Errorf("card not persisted in destination column, got %d", got)
	}
}

func TestMoveCardPipelineNotFound(t *testing.T) {
	b := setupBoard(t, nil)
	svc := NewService(b.repo, nil, 0)

	_, err := svc.MoveCard(context.Background(), 999, b.card.ID,
		MoveCardRequest{ToColumnID: b.doing.ID}, member("member"))
	if workflow.KindOf(err) != workflow.KindInvalidInput {
		t.Errorf("expected invalid input, got %v", err)
	}
	if !errors.Is(err, ErrPipelineNotFound) {
		t.Errorf("expected ErrPipelineNotFound in chain, got %v", err)
	}
}

func TestMoveCardViewPermissionDenied(t *testing.T) {
	b := setupBoard(t, []string{"insider"})
	svc := NewService(b.repo, nil, 0)

	_, err := svc.MoveCard(context.Background(), b.pipeline.ID, b.card.ID,
		MoveCardRequest{ToColumnID: b.doing.ID}, member("outsider"))
	if workflow.KindOf(err) != workflow.KindUnauthorized {
		t.Errorf("expected unauthorized, got %v", err)
	}
	if got := cardColumn(t, b.repo, b.card.ID); got != b.backlog.ID {
		t.Errorf("card should be unmoved, got column %d", got)
	}
}

func TestMoveCardWrongPipeline(t *testing.T) {
	b := setupBoard(t, nil)
	other := testutil.MakePipeline(t, b.repo, "Other", nil, nil)
	svc := NewService(b.repo, nil, 0)

	_, err := svc.MoveCard(context.Background(), other.ID, b.card.ID,
		MoveCardRequest{ToColumnID: b.doing.ID}, member("member"))
	if !errors.Is(err, ErrCardNotInPipeline) {
		t.Errorf("expected ErrCardNotInPipeline, got %v", err)
	}
}

func TestMoveCardStaleSourceConflicts(t *testing.T) {
	b := setupBoard(t, nil)
	svc := NewService(b.repo, nil, 0)

	// The card sits in backlog; a caller working from a stale snapshot
	// claims it is in doing
	_, err := svc.MoveCard(context.Background(), b.pipeline.ID, b.card.ID,
		MoveCardRequest{FromColumnID: b.doing.ID, ToColumnID: b.backlog.ID}, member("member"))
	if err == nil {
		t.Fatal("expected stale source to fail the move")
	}
	if !errors.Is(err, models.ErrCardMoveConflict) {
		t.Errorf("expected ErrCardMoveConflict, got %v", err)
	}
	if kind := workflow.KindOf(err); kind != workflow.KindConflict {
		t.Errorf("expected KindConflict, got %v", kind)
	}
	if got := cardColumn(t, b.repo, b.card.ID); got != b.backlog.ID {
		t.Errorf("card moved despite conflict, now in %d", got)
	}
}

func TestMoveCardFailureResponseMatchesError(t *testing.T) {
	b := setupBoard(t, nil)
	svc := NewService(b.repo, nil, 0)

	// Destination equals the card's current column
	resp, err := svc.MoveCard(context.Background(), b.pipeline.ID, b.card.ID,
		MoveCardRequest{ToColumnID: b.backlog.ID}, member("member"))
	if err == nil {
		t.Fatal("expected move to fail")
	}
	if resp == nil || resp.Success {
		t.Fatal("expected failure response alongside the error")
	}
	if resp.Message != err.Error() {
		t.Errorf("response message %q does not match error %q", resp.Message, err.Error())
	}
}

func TestMoveCardPublishesEvent(t *testing.T) {
	b := setupBoard(t, nil)
	listener := &recordingListener{}
	notifier := events.NewNotifier(nil)
	notifier.Subscribe(listener)
	svc := NewService(b.repo, notifier, 0)

	_, err := svc.MoveCard(context.Background(), b.pipeline.ID, b.card.ID,
		MoveCardRequest{ToColumnID: b.doing.ID}, member("member"))
	if err != nil {
		t.Fatalf("MoveCard failed: %v", err)
	}

	if len(listener.events) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(listener.events))
	}
	event := listener.events[0]
	if event.CardID != b.card.ID || event.FromColumnID != b.backlog.ID || event.ToColumnID != b.doing.ID {
		t.Errorf("event does not describe the move: %+v", event)
	}
	if event.Actor.ID != "alice" {
		t.Errorf("expected actor alice on event, got %q", event.Actor.ID)
	}
}

func TestMoveCardNoEventOnFailure(t *testing.T) {
	b := setupBoard(t, nil)
	listener := &recordingListener{}
	notifier := events.NewNotifier(nil)
	notifier.Subscribe(listener)
	svc := NewService(b.repo, notifier, 0)

	_, err := svc.MoveCard(context.Background(), b.pipeline.ID, b.card.ID,
		MoveCardRequest{ToColumnID: 999}, member("member"))
	if err == nil {
		t.Fatal("expected move to fail")
	}
	if len(listener.events) != 0 {
		t.Errorf("no event should be published for a failed move, got %d", len(listener.events))
	}
}

// ============================================================================
// Undo Tests
// ============================================================================

func TestUndoLastMoveRestoresCard(t *testing.T) {
	b := setupBoard(t, nil)
	svc := NewService(b.repo, nil, 0)
	ctx := context.Background()

	_, err := svc.MoveCard(ctx, b.pipeline.ID, b.card.ID,
		MoveCardRequest{ToColumnID: b.doing.ID, SessionKey: "sess-1"}, member("member"))
	if err != nil {
		t.Fatalf("MoveCard failed: %v", err)
	}

	if err := svc.UndoLastMove(ctx, "sess-1"); err != nil {
		t.Fatalf("UndoLastMove failed: %v", err)
	}
	if got := cardColumn(t, b.repo, b.card.ID); got != b.backlog.ID {
		t.Errorf("card should be restored to backlog, got column %d", got)
	}
}

func TestUndoUnknownSession(t *testing.T) {
	b := setupBoard(t, nil)
	svc := NewService(b.repo, nil, 0)

	err := svc.UndoLastMove(context.Background(), "never-used")
	if workflow.KindOf(err) != workflow.KindNoHistory {
		t.Errorf("expected no-history error, got %v", err)
	}
}

func TestUndoSessionsAreIsolated(t *testing.T) {
	b := setupBoard(t, nil)
	svc := NewService(b.repo, nil, 0)
	ctx := context.Background()

	_, err := svc.MoveCard(ctx, b.pipeline.ID, b.card.ID,
		MoveCardRequest{ToColumnID: b.doing.ID, SessionKey: "sess-a"}, member("member"))
	if err != nil {
		t.Fatalf("MoveCard failed: %v", err)
	}

	// Another session cannot undo session A's move
	err = svc.UndoLastMove(ctx, "sess-b")
	if workflow.KindOf(err) != workflow.KindNoHistory {
		t.Errorf("expected no-history for the other session, got %v", err)
	}
	if got := cardColumn(t, b.repo, b.card.ID); got != b.doing.ID {
		t.Errorf("card should remain moved, got column %d", got)
	}
}

func TestUndoAfterFailedMove(t *testing.T) {
	b := setupBoard(t, nil)
	svc := NewService(b.repo, nil, 0)
	ctx := context.Background()

	_, err := svc.MoveCard(ctx, b.pipeline.ID, b.card.ID,
		MoveCardRequest{ToColumnID: 999, SessionKey: "sess-1"}, member("member"))
	if err == nil {
		t.Fatal("expected move to fail")
	}

	// Failed moves leave no history behind
	err = svc.UndoLastMove(ctx, "sess-1")
	if workflow.KindOf(err) != workflow.KindNoHistory {
		t.Errorf("expected no-history after failed move, got %v", err)
	}
}

func TestUndoHistoryDepthBound(t *testing.T) {
	b := setupBoard(t, nil)
	done := testutil.MakeColumn(t, b.repo, b.pipeline.ID, 2, models.Column{Key: "done"})
	svc := NewService(b.repo, nil, 1)
	ctx := context.Background()
	actor := member("member")

	if _, err := svc.MoveCard(ctx, b.pipeline.ID, b.card.ID,
		MoveCardRequest{ToColumnID: b.doing.ID, SessionKey: "sess"}, actor); err != nil {
		t.Fatalf("first move failed: %v", err)
	}
	if _, err := svc.MoveCard(ctx, b.pipeline.ID, b.card.ID,
		MoveCardRequest{ToColumnID: done.ID, SessionKey: "sess"}, actor); err != nil {
		t.Fatalf("second move failed: %v", err)
	}

	if err := svc.UndoLastMove(ctx, "sess"); err != nil {
		t.Fatalf("undo of most recent move failed: %v", err)
	}
	// The first move fell out of the bounded history
	err := svc.UndoLastMove(ctx, "sess")
	if workflow.KindOf(err) != workflow.KindNoHistory {
		t.Errorf("expected no-history once depth is exhausted, got %v", err)
	}
}

// ============================================================================
// Read Operation Tests
// ============================================================================

func TestGetPipelineViewCheck(t *testing.T) {
	b := setupBoard(t, []string{"insider"})
	svc := NewService(b.repo, nil, 0)
	ctx := context.Background()

	if _, err := svc.GetPipeline(ctx, b.pipeline.ID, member("insider")); err != nil {
		t.Errorf("insider should view the pipeline: %v", err)
	}
	_, err := svc.GetPipeline(ctx, b.pipeline.ID, member("outsider"))
	if workflow.KindOf(err) != workflow.KindUnauthorized {
		t.Errorf("expected unauthorized for outsider, got %v", err)
	}
}

func TestGetPipelineColumnsOrdered(t *testing.T) {
	b := setupBoard(t, nil)
	svc := NewService(b.repo, nil, 0)

	columns, err := svc.GetPipelineColumns(context.Background(), b.pipeline.ID, member("member"))
	if err != nil {
		t.Fatalf("GetPipelineColumns failed: %v", err)
	}
	if len(columns) != 2 {
		t.Fatalf("expected 2 columns, got %d", len(columns))
	}
	if columns[0].Key != "backlog" || columns[1].Key != "doing" {
		t.Errorf("columns out of position order: %s, %s", columns[0].Key, columns[1].Key)
	}
}

func TestGetColumnCards(t *testing.T) {
	b := setupBoard(t, nil)
	testutil.MakeCard(t, b.repo, b.pipeline.ID, b.backlog.ID, "task", "T-2")
	svc := NewService(b.repo, nil, 0)

	cards, err := svc.GetColumnCards(context.Background(), b.pipeline.ID, b.backlog.ID, member("member"))
	if err != nil {
		t.Fatalf("GetColumnCards failed: %v", err)
	}
	if len(cards) != 2 {
		t.Errorf("expected 2 cards, got %d", len(cards))
	}
}

func TestGetColumnCardsWrongPipeline(t *testing.T) {
	b := setupBoard(t, nil)
	other := testutil.MakePipeline(t, b.repo, "Other", nil, nil)
	svc := NewService(b.repo, nil, 0)

	_, err := svc.GetColumnCards(context.Background(), other.ID, b.backlog.ID, member("member"))
	if !errors.Is(err, ErrColumnNotInPipeline) {
		t.Errorf("expected ErrColumnNotInPipeline, got %v", err)
	}
}

func TestGetCard(t *testing.T) {
	b := setupBoard(t, nil)
	svc := NewService(b.repo, nil, 0)

	card, err := svc.GetCard(context.Background(), b.pipeline.ID, b.card.ID, member("member"))
	if err != nil {
		t.Fatalf("GetCard failed: %v", err)
	}
	if card.EntityID != "T-1" {
		t.Errorf("expected entity T-1, got %q", card.EntityID)
	}
}

// ============================================================================
// UpdateColumn Tests
// ============================================================================

func TestUpdateColumnRequiresManageRole(t *testing.T) {
	repo := testutil.OpenRepository(t)
	pipeline := testutil.MakePipeline(t, repo, "Delivery", nil, []string{"admin"})
	column := testutil.MakeColumn(t, repo, pipeline.ID, 0, models.Column{Key: "backlog"})
	svc := NewService(repo, nil, 0)
	ctx := context.Background()

	name := "Backlog (renamed)"
	err := svc.UpdateColumn(ctx, pipeline.ID, column.ID, models.ColumnUpdate{Name: &name}, member("member"))
	if workflow.KindOf(err) != workflow.KindUnauthorized {
		t.Errorf("expected unauthorized without manage role, got %v", err)
	}

	if err := svc.UpdateColumn(ctx, pipeline.ID, column.ID, models.ColumnUpdate{Name: &name}, member("admin")); err != nil {
		t.Fatalf("admin update failed: %v", err)
	}
	updated, err := repo.GetColumnByID(ctx, column.ID)
	if err != nil {
		t.Fatalf("Failed to reload column: %v", err)
	}
	if updated.Name != name {
		t.Errorf("expected name %q persisted, got %q", name, updated.Name)
	}
}

func TestUpdateColumnRejectsMalformedRules(t *testing.T) {
	b := setupBoard(t, nil)
	svc := NewService(b.repo, nil, 0)

	err := svc.UpdateColumn(context.Background(), b.pipeline.ID, b.backlog.ID,
		models.ColumnUpdate{TransitionRules: json.RawMessage(`{"transitions": "nope"}`)}, member("member"))
	if workflow.KindOf(err) != workflow.KindInvalidTransition {
		t.Errorf("expected invalid transition for malformed rules, got %v", err)
	}
}

func TestUpdateColumnRejectsEmptyUpdate(t *testing.T) {
	b := setupBoard(t, nil)
	svc := NewService(b.repo, nil, 0)

	err := svc.UpdateColumn(context.Background(), b.pipeline.ID, b.backlog.ID,
		models.ColumnUpdate{}, member("member"))
	if !errors.Is(err, ErrEmptyColumnUpdate) {
		t.Errorf("expected ErrEmptyColumnUpdate, got %v", err)
	}
}

func TestUpdateColumnStoresValidRules(t *testing.T) {
	b := setupBoard(t, nil)
	svc := NewService(b.repo, nil, 0)
	ctx := context.Background()

	doc := json.RawMessage(`{"transitions":[{"from":"backlog","to":"doing","allowedRoles":["member"]}]}`)
	err := svc.UpdateColumn(ctx, b.pipeline.ID, b.doing.ID,
		models.ColumnUpdate{TransitionRules: doc}, member("member"))
	if err != nil {
		t.Fatalf("UpdateColumn failed: %v", err)
	}

	// The stored document now gates moves into the column
	_, err = svc.MoveCard(ctx, b.pipeline.ID, b.card.ID,
		MoveCardRequest{ToColumnID: b.doing.ID}, member("guest"))
	if workflow.KindOf(err) != workflow.KindInvalidTransition {
		t.Errorf("expected transition rejection for guest, got %v", err)
	}
	if _, err := svc.MoveCard(ctx, b.pipeline.ID, b.card.ID,
		MoveCardRequest{ToColumnID: b.doing.ID}, member("member")); err != nil {
		t.Errorf("member move should pass the stored rule: %v", err)
	}
}
