package types

// ID type aliases provide semantic meaning and reduce repetitive int conversions.
// These aliases document what each integer represents in the domain model,
// making code more readable and enabling future optimizations without refactoring.

// PipelineID identifies a unique pipeline (kanban board) in the system
type PipelineID int64

// ColumnID identifies a unique column within a pipeline
type ColumnID int64

// CardID identifies a unique card within a pipeline
type CardID int64

// Constants for common ID values

const (
	// AllPipelines is the subscription wildcard: daemon clients subscribed
	// to pipeline 0 receive events for every pipeline
	AllPipelines PipelineID = 0
)
