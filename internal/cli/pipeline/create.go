package pipeline

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/apporte/workflow/internal/cli"
	"github.com/apporte/workflow/internal/database"
)

// CreateCmd returns the pipeline create subcommand
func CreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new pipeline",
		Long: `Create a new pipeline bound to a business context.

Examples:
  # Create a pipeline (human-readable output)
  workflow pipeline create --name="Hiring" --context-type=department --context-id=42

  # Restrict who can see and manage the board
  workflow pipeline create --name="Hiring" --context-type=department --context-id=42 \
    --view-roles=recruiter,manager --manage-roles=manager

  # Quiet mode for bash capture
  PIPELINE_ID=$(workflow pipeline create --name="Hiring" --context-type=department --context-id=42 --quiet)
`,
		RunE: runCreate,
	}

	// Required flags
	cmd.Flags().String("name", "", "Pipeline name (required)")
	if err := cmd.MarkFlagRequired("name"); err != nil {
		slog.Error("failed to mark flag as required", "error", err)
	}

	// Optional flags
	cmd.Flags().String("context-type", "", "Business context type (e.g. department, project)")
	cmd.Flags().String("context-id", "", "Business context identifier")
	cmd.Flags().StringSlice("view-roles", nil, "Roles allowed to view the pipeline (empty = everyone)")
	cmd.Flags().StringSlice("manage-roles", nil, "Roles allowed to change pipeline configuration (empty = everyone)")

	cli.AddOutputFlags(cmd)

	return cmd
}

func runCreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	name, _ := cmd.Flags().GetString("name")
	contextType, _ := cmd.Flags().GetString("context-type")
	contextID, _ := cmd.Flags().GetString("context-id")
	viewRoles, _ := cmd.Flags().GetStringSlice("view-roles")
	manageRoles, _ := cmd.Flags().GetStringSlice("manage-roles")
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

	pipeline, err := cliInstance.App.Repo().CreatePipeline(ctx, database.CreatePipelineParams{
		Name:               name,
		ContextType:        contextType,
		ContextID:          contextID,
		AllowedRolesView:   viewRoles,
		AllowedRolesManage: manageRoles,
	})
	if err != nil {
		if fmtErr := formatter.Error("PIPELINE_CREATE_ERROR", err.Error()); fmtErr != nil {
			slog.Error("failed to format error message", "error", fmtErr)
		}
		return err
	}

	if quietMode {
		fmt.Printf("%d\n", pipeline.ID)
		return nil
	}

	if jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"success": true,
			"pipeline": map[string]interface{}{
				"id":           pipeline.ID,
				"name":         pipeline.Name,
				"context_type": pipeline.ContextType,
				"context_id":   pipeline.ContextID,
			},
		})
	}

	fmt.Printf("✓ Pipeline '%s' created successfully (ID: %d)\n", name, pipeline.ID)
	return nil
}
