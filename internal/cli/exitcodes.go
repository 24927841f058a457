package cli

// Exit codes for CLI commands.
// These codes follow Unix conventions and provide consistent error reporting
// across all CLI commands.
const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess = 0

	// ExitError indicates a general error occurred.
	// Use for: Database errors, network errors, unexpected failures,
	// or any error that doesn't fit the specific categories below.
	ExitError = 1

	// ExitUsage indicates incorrect command usage.
	// Use for: Missing required flags or invalid flag combinations.
	ExitUsage = 2

	// ExitNotFound indicates a requested resource was not found.
	// Use for: Pipeline, column, or card IDs that don't exist.
	ExitNotFound = 3

	// ExitDataErr indicates invalid or malformed data.
	// Use for: Malformed JSON rule documents or corrupted data.
	ExitDataErr = 4

	// ExitValidation indicates a validation error.
	// Use for: Rejected transitions, entity-type mismatches, or any
	// input that fails the engine's validation gates.
	ExitValidation = 5

	// ExitUnauthorized indicates the actor lacks a required role.
	ExitUnauthorized = 6
)
