package pipeline

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/apporte/workflow/internal/cli"
	"github.com/apporte/workflow/internal/types"
)

// UpdateCmd returns the pipeline update subcommand
func UpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update a pipeline's role sets",
		Long: `Update who can view and manage a pipeline. Only the flags you pass
are changed; passing an empty list removes the restriction.

Examples:
  # Restrict management to managers
  workflow pipeline update --id=1 --manage-roles=manager --actor-id=dana --roles=manager

  # Open the board to everyone
  workflow pipeline update --id=1 --view-roles= --actor-id=dana --roles=manager
`,
		RunE: runUpdate,
	}

	// Required flags
	cmd.Flags().Int64("id", 0, "Pipeline ID (required)")
	if err := cmd.MarkFlagRequired("id"); err != nil {
		slog.Error("failed to mark flag as required", "error", err)
	}

	// Optional flags; only passed flags are applied
	cmd.Flags().StringSlice("view-roles", nil, "Roles allowed to view the pipeline")
	cmd.Flags().StringSlice("manage-roles", nil, "Roles allowed to change pipeline configuration")

	cli.AddActorFlags(cmd)
	cli.AddOutputFlags(cmd)

	return cmd
}

func runUpdate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	pipelineID, _ := cmd.Flags().GetInt64("id")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	quietMode, _ := cmd.Flags().GetBool("quiet")
	actor := cli.ParseActor(cmd)

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

	pipeline, err := cliInstance.App.Repo().GetPipelineByID(ctx, types.PipelineID(pipelineID))
	if err != nil {
		if fmtErr := formatter.Error("PIPELINE_NOT_FOUND", fmt.Sprintf("pipeline %d not found", pipelineID)); fmtErr != nil {
			slog.Error("failed to format error message", "error", fmtErr)
		}
		os.Exit(cli.ExitNotFound)
	}

	if len(pipeline.AllowedRolesManage) > 0 && !actor.HasAnyRole(pipeline.AllowedRolesManage...) {
		if fmtErr := formatter.Error("UNAUTHORIZED", fmt.Sprintf("actor cannot manage pipeline %d", pipelineID)); fmtErr != nil {
			slog.Error("failed to format error message", "error", fmtErr)
		}
		os.Exit(cli.ExitUnauthorized)
	}

	// Untouched flags keep the stored role sets
	viewRoles := pipeline.AllowedRolesView
	if cmd.Flags().Changed("view-roles") {
		viewRoles, _ = cmd.Flags().GetStringSlice("view-roles")
	}
	manageRoles := pipeline.AllowedRolesManage
	if cmd.Flags().Changed("manage-roles") {
		manageRoles, _ = cmd.Flags().GetStringSlice("manage-roles")
	}

	if err := cliInstance.App.Repo().UpdatePipelineRoles(ctx, types.PipelineID(pipelineID), viewRoles, manageRoles); err != nil {
		if fmtErr := formatter.Error("PIPELINE_UPDATE_ERROR", err.Error()); fmtErr != nil {
			slog.Error("failed to format error message", "error", fmtErr)
		}
		return err
	}

	if quietMode {
		return nil
	}

	if jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"success":     true,
			"pipeline_id": pipelineID,
		})
	}

	fmt.Printf("✓ Pipeline %d updated successfully\n", pipelineID)
	return nil
}
