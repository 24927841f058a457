package workflow

import (
	"context"
	"log/slog"
	"sync"
)

// Executor runs commands and keeps a LIFO history of the ones that
// executed successfully, so the most recent can be undone. An executor
// is an in-memory undo buffer scoped to one logical session; it is never
// shared across actors (cross-actor undo leakage is the caller's bug to
// avoid, the service keys one executor per session).
type Executor struct {
	mu      sync.Mutex
	history []Command
	limit   int // 0 = unbounded
}

// NewExecutor returns an empty executor with unbounded history.
func NewExecutor() *Executor {
	return &Executor{}
}

// NewBoundedExecutor returns an executor that keeps at most limit
// commands, dropping the oldest when a new one is pushed.
func NewBoundedExecutor(limit int) *Executor {
	return &Executor{limit: limit}
}

// Execute runs the command and pushes it onto the history only when it
// did not fail. The command's result is returned either way; the
// command's error is propagated unwrapped.
func (e *Executor) Execute(ctx context.Context, cmd Command) (CommandResult, error) {
	if err := cmd.Execute(ctx); err != nil {
		slog.Error("command execution failed", "error", err)
		return cmd.Result(), err
	}

	e.mu.Lock()
	e.history = append(e.history, cmd)
	if e.limit > 0 && len(e.history) > e.limit {
		e.history = e.history[len(e.history)-e.limit:]
	}
	e.mu.Unlock()

	return cmd.Result(), nil
}

// Undo pops the most recent command and invokes its undo. The entry is
// consumed regardless of the undo outcome: a failed undo does not get a
// second chance, its error simply propagates.
func (e *Executor) Undo(ctx context.Context) error {
	e.mu.Lock()
	n := len(e.history)
	if n == 0 {
		e.mu.Unlock()
		return NewError(KindNoHistory, "no command to undo")
	}
	cmd := e.history[n-1]
	e.history = e.history[:n-1]
	e.mu.Unlock()

	if err := cmd.Undo(ctx); err != nil {
		slog.Error("command undo failed", "error", err)
		return err
	}
	return nil
}

// HasHistory reports whether any command is undoable.
func (e *Executor) HasHistory() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.history) > 0
}

// HistorySize returns the number of recorded commands.
func (e *Executor) HistorySize() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.history)
}

// Clear drops the history without undoing anything.
func (e *Executor) Clear() {
	e.mu.Lock()
	e.history = nil
	e.mu.Unlock()
}
