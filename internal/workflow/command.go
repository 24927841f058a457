package workflow

import (
	"context"
	"errors"
	"log/slog"

	"github.com/apporte/workflow/internal/models"
	"github.com/apporte/workflow/internal/types"
)

// ColumnResolver resolves columns during validation. Implementations
// return models.ErrColumnNotFound for unknown ids.
type ColumnResolver interface {
	GetColumnByID(ctx context.Context, id types.ColumnID) (*models.Column, error)
}

// CardMover applies placement changes. MoveCard must be atomic with
// respect to concurrent moves of the same card: it writes the new column
// only if the card is still in fromColumnID, and returns
// models.ErrCardMoveConflict otherwise.
type CardMover interface {
	MoveCard(ctx context.Context, id types.CardID, fromColumnID, toColumnID types.ColumnID) error
}

// CommandResult is the structured outcome of a command execution. It is
// populated on both success and failure; on failure its message matches
// the returned error's text (dual reporting).
type CommandResult struct {
	Success bool
	Message string
	Data    any
}

// Command is a unit of work with inverse application support.
type Command interface {
	Execute(ctx context.Context) error
	Undo(ctx context.Context) error
	Result() CommandResult
}

// commandState tracks the move command lifecycle:
// created -> validated -> applied -> undone. No transition skips a state.
type commandState int

const (
	stateCreated commandState = iota
	stateValidated
	stateApplied
	stateUndone
)

// MoveCardCommand moves a card between two columns of its pipeline,
// running every validation gate in fixed order before the single
// mutation. A command is constructed per request, executed at most once,
// undone at most once, then discarded.
type MoveCardCommand struct {
	card         *models.Card
	fromColumnID types.ColumnID
	toColumnID   types.ColumnID
	actor        models.Actor

	columns ColumnResolver
	cards   CardMover
	perms   PermissionEvaluator

	state  commandState
	result CommandResult
}

// NewMoveCardCommand captures the move request. Nothing is validated
// until Execute.
func NewMoveCardCommand(
	card *models.Card,
	fromColumnID, toColumnID types.ColumnID,
	actor models.Actor,
	columns ColumnResolver,
	cards CardMover,
	perms PermissionEvaluator,
) *MoveCardCommand {
	return &MoveCardCommand{
		card:         card,
		fromColumnID: fromColumnID,
		toColumnID:   toColumnID,
		actor:        actor,
		columns:      columns,
		cards:        cards,
		perms:        perms,
	}
}

// Execute runs the validation gates in fixed order and applies the move.
// The first failing gate aborts the remaining checks; nothing is mutated
// unless every gate passes. The failure is recorded in the result and
// returned as a typed error with identical message text.
func (c *MoveCardCommand) Execute(ctx context.Context) error {
	if c.state != stateCreated {
		return c.fail(errorf(KindUnexpected, "move command already executed"))
	}

	// 1. Input presence
	if err := c.validateInput(); err != nil {
		return c.fail(err)
	}

	// 2. Existence, naming the missing id
	fromColumn, err := c.resolveColumn(ctx, c.fromColumnID, "from")
	if err != nil {
		return c.fail(err)
	}
	toColumn, err := c.resolveColumn(ctx, c.toColumnID, "to")
	if err != nil {
		return c.fail(err)
	}

	// A card's column must always belong to the card's own pipeline
	if fromColumn.PipelineID != c.card.PipelineID {
		return c.fail(errorf(KindInvalidInput,
			"column %d does not belong to pipeline %d", fromColumn.ID, c.card.PipelineID))
	}
	if toColumn.PipelineID != c.card.PipelineID {
		return c.fail(errorf(KindInvalidInput,
			"column %d does not belong to pipeline %d", toColumn.ID, c.card.PipelineID))
	}

	// 3. Move-out permission on the source column
	if !c.perms.CanMoveOut(c.actor, fromColumn.AllowedRolesMoveOut) {
		return c.fail(errorf(KindUnauthorized,
			"actor cannot move cards out of column %q", fromColumn.Key))
	}

	// 4. Move-in permission on the destination column
	if !c.perms.CanMoveIn(c.actor, toColumn.AllowedRolesMoveIn) {
		return c.fail(errorf(KindUnauthorized,
			"actor cannot move cards into column %q", toColumn.Key))
	}

	// 5. Pairwise transition rules, keyed by column keys not ids
	if err := ValidateTransition(fromColumn.Key, toColumn.Key, c.actor, toColumn.TransitionRules); err != nil {
		return c.fail(err)
	}

	// 6. Entity-type gate on the destination column
	if err := CheckEntityType(c.card.EntityType, toColumn.AllowedEntityTypes); err != nil {
		return c.fail(err)
	}

	c.state = stateValidated

	// 7. Apply - the only state mutation
	if err := c.cards.MoveCard(ctx, c.card.ID, c.fromColumnID, c.toColumnID); err != nil {
		if errors.Is(err, models.ErrCardMoveConflict) {
			return c.fail(WrapError(KindConflict, err,
				"card was moved concurrently, re-read and retry"))
		}
		slog.Error("unexpected error applying card move",
			"card_id", c.card.ID, "from", c.fromColumnID, "to", c.toColumnID, "error", err)
		return c.fail(WrapError(KindUnexpected, err, "error moving card"))
	}

	c.card.ColumnID = c.toColumnID
	c.state = stateApplied
	c.result = CommandResult{
		Success: true,
		Message: "card moved successfully from column " + fromColumn.Key + " to " + toColumn.Key,
	}

	slog.Info("card moved",
		"card_id", c.card.ID,
		"from_column", c.fromColumnID,
		"to_column", c.toColumnID,
		"actor_id", c.actor.ID)
	return nil
}

// Undo restores the card to its originally recorded source column. It is
// a raw compensating write: none of the validation gates are re-run, and
// any "is undo allowed" policy belongs to the caller.
func (c *MoveCardCommand) Undo(ctx context.Context) error {
	if c.state != stateApplied {
		return errorf(KindUnexpected, "cannot undo a move that was not applied")
	}

	if err := c.cards.MoveCard(ctx, c.card.ID, c.toColumnID, c.fromColumnID); err != nil {
		if errors.Is(err, models.ErrCardMoveConflict) {
			return WrapError(KindConflict, err, "card was moved concurrently, undo aborted")
		}
		slog.Error("unexpected error undoing card move",
			"card_id", c.card.ID, "error", err)
		return WrapError(KindUnexpected, err, "error undoing card move")
	}

	c.card.ColumnID = c.fromColumnID
	c.state = stateUndone

	slog.Info("card move undone", "card_id", c.card.ID, "restored_column", c.fromColumnID)
	return nil
}

// Result returns the structured outcome of the last Execute call. It is
// zero-valued before execution.
func (c *MoveCardCommand) Result() CommandResult {
	return c.result
}

func (c *MoveCardCommand) validateInput() error {
	if c.card == nil {
		return errorf(KindInvalidInput, "card cannot be nil")
	}
	if c.card.ID == 0 {
		return errorf(KindInvalidInput, "card ID cannot be empty")
	}
	if c.fromColumnID == 0 {
		return errorf(KindInvalidInput, "from column ID cannot be empty")
	}
	if c.toColumnID == 0 {
		return errorf(KindInvalidInput, "to column ID cannot be empty")
	}
	if c.fromColumnID == c.toColumnID {
		return errorf(KindInvalidInput, "from and to columns cannot be the same")
	}
	if c.actor.ID == "" {
		return errorf(KindInvalidInput, "actor cannot be empty")
	}
	return nil
}

func (c *MoveCardCommand) resolveColumn(ctx context.Context, id types.ColumnID, which string) (*models.Column, error) {
	column, err := c.columns.GetColumnByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrColumnNotFound) {
			return nil, errorf(KindInvalidInput, "%s column not found: %d", which, id)
		}
		slog.Error("unexpected error resolving column", "column_id", id, "error", err)
		return nil, WrapError(KindUnexpected, err, "error resolving column")
	}
	return column, nil
}

// fail records the failure in the command result and returns the error,
// keeping the result message and the error text identical.
func (c *MoveCardCommand) fail(err error) error {
	c.result = CommandResult{Success: false, Message: err.Error()}
	if IsValidation(err) {
		slog.Warn("card move rejected", "reason", err.Error())
	}
	return err
}
