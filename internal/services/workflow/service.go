package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/apporte/workflow/internal/database"
	"github.com/apporte/workflow/internal/events"
	"github.com/apporte/workflow/internal/models"
	"github.com/apporte/workflow/internal/types"
	"github.com/apporte/workflow/internal/workflow"
)

// Service defines all pipeline workflow operations: authorized card
// movement with undo, pipeline reads, and column configuration updates.
type Service interface {
	// Read operations
	GetPipeline(ctx context.Context, pipelineID types.PipelineID, actor models.Actor) (*models.Pipeline, error)
	GetPipelineColumns(ctx context.Context, pipelineID types.PipelineID, actor models.Actor) ([]*models.Column, error)
	GetColumnCards(ctx context.Context, pipelineID types.PipelineID, columnID types.ColumnID, actor models.Actor) ([]*models.Card, error)
	GetCard(ctx context.Context, pipelineID types.PipelineID, cardID types.CardID, actor models.Actor) (*models.Card, error)

	// Card movements
	MoveCard(ctx context.Context, pipelineID types.PipelineID, cardID types.CardID, req MoveCardRequest, actor models.Actor) (*MoveCardResponse, error)
	UndoLastMove(ctx context.Context, sessionKey string) error

	// Column configuration
	UpdateColumn(ctx context.Context, pipelineID types.PipelineID, columnID types.ColumnID, update models.ColumnUpdate, actor models.Actor) error
}

// MoveCardRequest encapsulates a move request. FromColumnID is the
// column the caller believes the card is in; zero means "wherever the
// card currently is". A stale value fails the move with a conflict
// instead of silently moving from somewhere else. SessionKey scopes the
// undo history; when empty the actor's ID is used, so undo stays within
// one actor's own moves.
type MoveCardRequest struct {
	FromColumnID types.ColumnID
	ToColumnID   types.ColumnID
	SessionKey   string
}

// MoveCardResponse is the structured outcome returned to transports. On
// failure Message carries the same text as the returned error.
type MoveCardResponse struct {
	CardID      types.CardID   `json:"card_id"`
	NewColumnID types.ColumnID `json:"new_column_id"`
	Success     bool           `json:"success"`
	Message     string         `json:"message"`
	Timestamp   time.Time      `json:"timestamp"`
}

// service implements Service interface
type service struct {
	repo     database.DataStore
	notifier *events.Notifier
	perms    workflow.PermissionEvaluator

	historyDepth int

	mu        sync.Mutex
	executors map[string]*workflow.Executor
}

// NewService creates a new workflow service. notifier may be nil when no
// event fan-out is wanted (tests, one-shot CLI reads). historyDepth
// bounds the per-session undo history; 0 means unbounded.
func NewService(repo database.DataStore, notifier *events.Notifier, historyDepth int) Service {
	return &service{
		repo:         repo,
		notifier:     notifier,
		perms:        workflow.NewRoleEvaluator(),
		historyDepth: historyDepth,
		executors:    make(map[string]*workflow.Executor),
	}
}

// MoveCard authorizes and applies a card move. The pipeline and card are
// resolved and ownership-checked here; the column-level gates run inside
// the move command in their fixed order.
func (s *service) MoveCard(ctx context.Context, pipelineID types.PipelineID, cardID types.CardID, req MoveCardRequest, actor models.Actor) (*MoveCardResponse, error) {
	if pipelineID <= 0 {
		return nil, workflow.WrapError(workflow.KindInvalidInput, ErrInvalidPipelineID, ErrInvalidPipelineID.Error())
	}
	if cardID <= 0 {
		return nil, workflow.WrapError(workflow.KindInvalidInput, ErrInvalidCardID, ErrInvalidCardID.Error())
	}

	pipeline, err := s.resolvePipeline(ctx, pipelineID)
	if err != nil {
		return nil, err
	}
	if !s.perms.CanViewPipeline(actor, pipeline.AllowedRolesView) {
		return nil, workflow.NewError(workflow.KindUnauthorized,
			fmt.Sprintf("actor cannot view pipeline %d", pipelineID))
	}

	card, err := s.resolveCard(ctx, pipelineID, cardID)
	if err != nil {
		return nil, err
	}

	fromColumnID := req.FromColumnID
	if fromColumnID == 0 {
		fromColumnID = card.ColumnID
	}
	cmd := workflow.NewMoveCardCommand(card, fromColumnID, req.ToColumnID, actor, s.repo, s.repo, s.perms)

	result, err := s.executorFor(req.SessionKey, actor).Execute(ctx, cmd)
	if err != nil {
		return &MoveCardResponse{
			CardID:    cardID,
			Success:   false,
			Message:   result.Message,
			Timestamp: time.Now(),
		}, err
	}

	if s.notifier != nil {
		s.notifier.Publish(events.NewCardMovedEvent(card, fromColumnID, req.ToColumnID, actor))
	}

	return &MoveCardResponse{
		CardID:      cardID,
		NewColumnID: card.ColumnID,
		Success:     true,
		Message:     result.Message,
		Timestamp:   time.Now(),
	}, nil
}

// UndoLastMove reverts the most recent successful move of the given
// session. Sessions that never moved anything report no history rather
// than an unknown-session error.
func (s *service) UndoLastMove(ctx context.Context, sessionKey string) error {
	if sessionKey == "" {
		return workflow.WrapError(workflow.KindInvalidInput, ErrEmptySessionKey, ErrEmptySessionKey.Error())
	}

	s.mu.Lock()
	exec, ok := s.executors[sessionKey]
	s.mu.Unlock()
	if !ok {
		return workflow.NewError(workflow.KindNoHistory, "no command to undo")
	}
	return exec.Undo(ctx)
}

// GetPipeline returns the pipeline after a view-permission check.
func (s *service) GetPipeline(ctx context.Context, pipelineID types.PipelineID, actor models.Actor) (*models.Pipeline, error) {
	pipeline, err := s.resolvePipeline(ctx, pipelineID)
	if err != nil {
		return nil, err
	}
	if !s.perms.CanViewPipeline(actor, pipeline.AllowedRolesView) {
		return nil, workflow.NewError(workflow.KindUnauthorized,
			fmt.Sprintf("actor cannot view pipeline %d", pipelineID))
	}
	return pipeline, nil
}

// GetPipelineColumns returns the pipeline's columns ordered by position.
func (s *service) GetPipelineColumns(ctx context.Context, pipelineID types.PipelineID, actor models.Actor) ([]*models.Column, error) {
	if _, err := s.GetPipeline(ctx, pipelineID, actor); err != nil {
		return nil, err
	}
	columns, err := s.repo.GetColumnsByPipeline(ctx, pipelineID)
	if err != nil {
		return nil, fmt.Errorf("failed to load columns: %w", err)
	}
	return columns, nil
}

// GetColumnCards returns the column's cards ordered by sort order.
func (s *service) GetColumnCards(ctx context.Context, pipelineID types.PipelineID, columnID types.ColumnID, actor models.Actor) ([]*models.Card, error) {
	if _, err := s.GetPipeline(ctx, pipelineID, actor); err != nil {
		return nil, err
	}
	if _, err := s.resolveColumn(ctx, pipelineID, columnID); err != nil {
		return nil, err
	}
	cards, err := s.repo.GetCardsByColumn(ctx, columnID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cards: %w", err)
	}
	return cards, nil
}

// GetCard returns a single card after the pipeline view and ownership
// checks.
func (s *service) GetCard(ctx context.Context, pipelineID types.PipelineID, cardID types.CardID, actor models.Actor) (*models.Card, error) {
	if _, err := s.GetPipeline(ctx, pipelineID, actor); err != nil {
		return nil, err
	}
	return s.resolveCard(ctx, pipelineID, cardID)
}

// UpdateColumn applies a partial configuration update to a column. The
// actor must hold a pipeline manage role; a transition rule document, if
// supplied, must parse before it is stored.
func (s *service) UpdateColumn(ctx context.Context, pipelineID types.PipelineID, columnID types.ColumnID, update models.ColumnUpdate, actor models.Actor) error {
	pipeline, err := s.resolvePipeline(ctx, pipelineID)
	if err != nil {
		return err
	}
	if len(pipeline.AllowedRolesManage) > 0 && !actor.HasAnyRole(pipeline.AllowedRolesManage...) {
		return workflow.NewError(workflow.KindUnauthorized,
			fmt.Sprintf("actor cannot manage pipeline %d", pipelineID))
	}

	if _, err := s.resolveColumn(ctx, pipelineID, columnID); err != nil {
		return err
	}

	if isEmptyUpdate(update) {
		return workflow.WrapError(workflow.KindInvalidInput, ErrEmptyColumnUpdate, ErrEmptyColumnUpdate.Error())
	}
	if len(update.TransitionRules) > 0 {
		if _, err := workflow.ParseTransitionRules(update.TransitionRules); err != nil {
			return err
		}
	}

	if err := s.repo.UpdateColumn(ctx, columnID, update); err != nil {
		return fmt.Errorf("failed to update column: %w", err)
	}

	slog.Info("column updated", "pipeline_id", pipelineID, "column_id", columnID, "actor_id", actor.ID)
	return nil
}

// executorFor returns the session's executor, creating it on first use.
func (s *service) executorFor(sessionKey string, actor models.Actor) *workflow.Executor {
	if sessionKey == "" {
		sessionKey = actor.ID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	exec, ok := s.executors[sessionKey]
	if !ok {
		if s.historyDepth > 0 {
			exec = workflow.NewBoundedExecutor(s.historyDepth)
		} else {
			exec = workflow.NewExecutor()
		}
		s.executors[sessionKey] = exec
	}
	return exec
}

func (s *service) resolvePipeline(ctx context.Context, pipelineID types.PipelineID) (*models.Pipeline, error) {
	pipeline, err := s.repo.GetPipelineByID(ctx, pipelineID)
	if err != nil {
		if errors.Is(err, models.ErrPipelineNotFound) {
			return nil, workflow.WrapError(workflow.KindInvalidInput, ErrPipelineNotFound,
				fmt.Sprintf("pipeline not found: %d", pipelineID))
		}
		return nil, fmt.Errorf("failed to load pipeline %d: %w", pipelineID, err)
	}
	return pipeline, nil
}

func (s *service) resolveCard(ctx context.Context, pipelineID types.PipelineID, cardID types.CardID) (*models.Card, error) {
	card, err := s.repo.GetCardByID(ctx, cardID)
	if err != nil {
		if errors.Is(err, models.ErrCardNotFound) {
			return nil, workflow.WrapError(workflow.KindInvalidInput, ErrCardNotFound,
				fmt.Sprintf("card not found: %d", cardID))
		}
		return nil, fmt.Errorf("failed to load card %d: %w", cardID, err)
	}
	if card.PipelineID != pipelineID {
		return nil, workflow.WrapError(workflow.KindInvalidInput, ErrCardNotInPipeline,
			fmt.Sprintf("card %d does not belong to pipeline %d", cardID, pipelineID))
	}
	return card, nil
}

func (s *service) resolveColumn(ctx context.Context, pipelineID types.PipelineID, columnID types.ColumnID) (*models.Column, error) {
	column, err := s.repo.GetColumnByID(ctx, columnID)
	if err != nil {
		if errors.Is(err, models.ErrColumnNotFound) {
			return nil, workflow.WrapError(workflow.KindInvalidInput, ErrColumnNotFound,
				fmt.Sprintf("column not found: %d", columnID))
		}
		return nil, fmt.Errorf("failed to load column %d: %w", columnID, err)
	}
	if column.PipelineID != pipelineID {
		return nil, workflow.WrapError(workflow.KindInvalidInput, ErrColumnNotInPipeline,
			fmt.Sprintf("column %d does not belong to pipeline %d", columnID, pipelineID))
	}
	return column, nil
}

// isEmptyUpdate reports whether no field of the update is set.
func isEmptyUpdate(u models.ColumnUpdate) bool {
	return u.Name == nil &&
		u.Position == nil &&
		u.AllowedEntityTypes == nil &&
		u.AllowedRolesView == nil &&
		u.AllowedRolesMoveIn == nil &&
		u.AllowedRolesMoveOut == nil &&
		u.TransitionRules == nil &&
		u.NotificationRules == nil &&
		u.CardLayout == nil &&
		u.FilterConfig == nil
}
