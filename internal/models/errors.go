package models

import "errors"

// Domain errors shared between the storage layer and the engine.
// Repositories return these so callers can match on condition rather
// than on driver-specific errors.
var (
	// ErrPipelineNotFound indicates the requested pipeline does not exist
	ErrPipelineNotFound = errors.New("pipeline not found")

	// ErrColumnNotFound indicates the requested column does not exist
	ErrColumnNotFound = errors.New("column not found")

	// ErrCardNotFound indicates the requested card does not exist
	ErrCardNotFound = errors.New("card not found")

	// ErrCardMoveConflict indicates a concurrent move won: the card was no
	// longer in the expected source column when the write was attempted
	ErrCardMoveConflict = errors.New("card was moved concurrently")
)
