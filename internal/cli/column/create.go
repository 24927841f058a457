package column

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/apporte/workflow/internal/cli"
	"github.com/apporte/workflow/internal/models"
	"github.com/apporte/workflow/internal/types"
	"github.com/apporte/workflow/internal/workflow"
)

// CreateCmd returns the column create subcommand
func CreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new column",
		Long: `Create a new column in a pipeline.

Examples:
  # Append a column at the given position
  workflow column create --pipeline=1 --key=review --name="Review" --position=2

  # Restrict what can enter and who can move cards
  workflow column create --pipeline=1 --key=done --name="Done" --position=3 \
    --entity-types=task,bug --move-in-roles=reviewer

  # Gate arrivals with a transition rule document
  workflow column create --pipeline=1 --key=done --name="Done" --position=3 \
    --transition-rules='{"transitions":[{"from":"review","to":"done","allowedRoles":["reviewer"]}]}'

  # Quiet mode for bash capture
  COLUMN_ID=$(workflow column create --pipeline=1 --key=review --name="Review" --position=2 --quiet)
`,
		RunE: runCreate,
	}

	// Required flags
	cmd.Flags().Int64("pipeline", 0, "Pipeline ID (required)")
	if err := cmd.MarkFlagRequired("pipeline"); err != nil {
		slog.Error("failed to mark flag as required", "error", err)
	}
	cmd.Flags().String("key", "", "Stable column key, used in transition rules (required)")
	if err := cmd.MarkFlagRequired("key"); err != nil {
		slog.Error("failed to mark flag as required", "error", err)
	}

	// Optional flags
	cmd.Flags().String("name", "", "Display name (defaults to the key)")
	cmd.Flags().Int("position", 0, "Board position, left to right")
	cmd.Flags().StringSlice("entity-types", nil, "Entity types the column accepts (empty = any)")
	cmd.Flags().StringSlice("view-roles", nil, "Roles allowed to view the column (empty = everyone)")
	cmd.Flags().StringSlice("move-in-roles", nil, "Roles allowed to move cards in (empty = everyone)")
	cmd.Flags().StringSlice("move-out-roles", nil, "Roles allowed to move cards out (empty = everyone)")
	cmd.Flags().String("transition-rules", "", "Transition rule document (JSON)")

	cli.AddOutputFlags(cmd)

	return cmd
}

func runCreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	pipelineID, _ := cmd.Flags().GetInt64("pipeline")
	key, _ := cmd.Flags().GetString("key")
	name, _ := cmd.Flags().GetString("name")
	position, _ := cmd.Flags().GetInt("position")
	entityTypes, _ := cmd.Flags().GetStringSlice("entity-types")
	viewRoles, _ := cmd.Flags().GetStringSlice("view-roles")
	moveInRoles, _ := cmd.Flags().GetStringSlice("move-in-roles")
	moveOutRoles, _ := cmd.Flags().GetStringSlice("move-out-roles")
	rulesDoc, _ := cmd.Flags().GetString("transition-rules")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	quietMode, _ := cmd.Flags().GetBool("quiet")

	formatter := cli.NewFormatter(cmd)

	cliInstance, err := cli.GetCLIFromContext(ctx)
	if err != nil {
		if fmtErr := formatter.Error("INITIALIZATION_ERROR", err.Error()); fmtErr != nil {
			slog.Error("failed to format error message", "error", fmtErr)
		}
		return err
	}
	defer func() {
		if err := cliInstance.Close(); err != nil {
			slog.Error("failed to close CLI", "error", err)
		}
	}()

	// Validate pipeline exists
	if _, err := cliInstance.App.Repo().GetPipelineByID(ctx, types.PipelineID(pipelineID)); err != nil {
		if fmtErr := formatter.Error("PIPELINE_NOT_FOUND", fmt.Sprintf("pipeline %d not found", pipelineID)); fmtErr != nil {
			slog.Error("failed to format error message", "error", fmtErr)
		}
		os.Exit(cli.ExitNotFound)
	}

	// A rule document must parse before it is stored
	var rules json.RawMessage
	if rulesDoc != "" {
		rules = json.RawMessage(rulesDoc)
		if _, err := workflow.ParseTransitionRules(rules); err != nil {
			if fmtErr := formatter.Error("INVALID_RULES", err.Error()); fmtErr != nil {
				slog.Error("failed to format error message", "error", fmtErr)
			}
			os.Exit(cli.ExitDataErr)
		}
	}

	if name == "" {
		name = key
	}
	column, err := cliInstance.App.Repo().CreateColumn(ctx, &models.Column{
		PipelineID:          types.PipelineID(pipelineID),
		Key:                 key,
		Name:                name,
		Position:            position,
		AllowedEntityTypes:  entityTypes,
		AllowedRolesView:    viewRoles,
		AllowedRolesMoveIn:  moveInRoles,
		AllowedRolesMoveOut: moveOutRoles,
		TransitionRules:     rules,
	})
	if err != nil {
		if fmtErr := formatter.Error("COLUMN_CREATE_ERROR", err.Error()); fmtErr != nil {
			slog.Error("failed to format error message", "error", fmtErr)
		}
		return err
	}

	if quietMode {
		fmt.Printf("%d\n", column.ID)
		return nil
	}

	if jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"success": true,
			"column": map[string]interface{}{
				"id":          column.ID,
				"key":         column.Key,
				"name":        column.Name,
				"position":    column.Position,
				"pipeline_id": column.PipelineID,
			},
		})
	}

	fmt.Printf("✓ Column '%s' created successfully (ID: %d)\n", name, column.ID)
	return nil
}
