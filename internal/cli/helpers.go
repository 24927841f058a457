package cli

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/apporte/workflow/internal/models"
	workflowservice "github.com/apporte/workflow/internal/services/workflow"
	"github.com/apporte/workflow/internal/user"
	"github.com/apporte/workflow/internal/workflow"
)

// AddOutputFlags registers the agent-friendly output flags shared by all
// commands.
func AddOutputFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("json", false, "Output in JSON format")
	cmd.Flags().Bool("quiet", false, "Minimal output (IDs only)")
}

// AddActorFlags registers the identity flags used by permission-checked
// commands.
func AddActorFlags(cmd *cobra.Command) {
	cmd.Flags().String("actor-id", "", "Acting user ID (defaults to OS username)")
	cmd.Flags().StringSlice("roles", nil, "Roles of the acting user")
}

// NewFormatter builds the formatter from the command's output flags.
func NewFormatter(cmd *cobra.Command) *OutputFormatter {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	quietMode, _ := cmd.Flags().GetBool("quiet")
	return &OutputFormatter{JSON: jsonOutput, Quiet: quietMode}
}

// ParseActor builds the acting identity from flags, falling back to the
// OS username when --actor-id is absent.
func ParseActor(cmd *cobra.Command) models.Actor {
	actorID, _ := cmd.Flags().GetString("actor-id")
	roles, _ := cmd.Flags().GetStringSlice("roles")
	if actorID == "" {
		actorID = user.GetCurrentUsername()
	}
	return models.Actor{ID: actorID, Name: actorID, Roles: roles}
}

// ParseRoleList splits a comma-separated role list, dropping empties.
func ParseRoleList(raw string) []string {
	if raw == "" {
		return nil
	}
	var roles []string
	for _, r := range strings.Split(raw, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}

// ExitCodeFor maps an error to the CLI exit code for its failure class.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Not-found beats the engine's broader invalid-input classification
	if errors.Is(err, models.ErrPipelineNotFound) ||
		errors.Is(err, models.ErrColumnNotFound) ||
		errors.Is(err, models.ErrCardNotFound) ||
		errors.Is(err, workflowservice.ErrPipelineNotFound) ||
		errors.Is(err, workflowservice.ErrColumnNotFound) ||
		errors.Is(err, workflowservice.ErrCardNotFound) {
		return ExitNotFound
	}

	// A rule document that does not parse is a data problem, not a
	// rejected transition
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return ExitDataErr
	}

	var engineErr *workflow.Error
	if errors.As(err, &engineErr) {
		switch engineErr.Kind {
		case workflow.KindInvalidInput:
			return ExitValidation
		case workflow.KindUnauthorized:
			return ExitUnauthorized
		case workflow.KindInvalidTransition, workflow.KindInvalidEntityType:
			return ExitValidation
		case workflow.KindNoHistory:
			return ExitValidation
		case workflow.KindConflict:
			return ExitError
		default:
			return ExitError
		}
	}

	return ExitError
}

// ErrorCodeFor returns the machine-readable error code used in JSON
// output for the error's failure class.
func ErrorCodeFor(err error) string {
	var engineErr *workflow.Error
	if errors.As(err, &engineErr) {
		return strings.ToUpper(engineErr.Kind.String())
	}
	return "ERROR"
}
