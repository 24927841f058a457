package workflow

import "errors"

// Service-level errors
var (
	// Validation errors
	ErrInvalidPipelineID = errors.New("invalid pipeline ID")
	ErrInvalidCardID     = errors.New("invalid card ID")
	ErrInvalidColumnID   = errors.New("invalid column ID")
	ErrEmptySessionKey   = errors.New("session key cannot be empty")
	ErrEmptyColumnUpdate = errors.New("column update contains no changes")

	// Business logic errors
	ErrPipelineNotFound    = errors.New("pipeline not found")
	ErrCardNotFound        = errors.New("card not found")
	ErrColumnNotFound      = errors.New("column not found")
	ErrCardNotInPipeline   = errors.New("card does not belong to this pipeline")
	ErrColumnNotInPipeline = errors.New("column does not belong to this pipeline")
)
