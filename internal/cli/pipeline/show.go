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

// ShowCmd returns the pipeline show subcommand
func ShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a pipeline and its columns",
		Long: `Show a pipeline's details and its columns in board order.

Examples:
  # Human-readable board overview
  workflow pipeline show --id=1

  # JSON output for agents
  workflow pipeline show --id=1 --json

  # As a specific actor (view permission applies)
  workflow pipeline show --id=1 --actor-id=carol --roles=recruiter
`,
		RunE: runShow,
	}

	// Required flags
	cmd.Flags().Int64("id", 0, "Pipeline ID (required)")
	if err := cmd.MarkFlagRequired("id"); err != nil {
		slog.Error("failed to mark flag as required", "error", err)
	}

	cli.AddActorFlags(cmd)
	cli.AddOutputFlags(cmd)

	return cmd
}

func runShow(cmd *cobra.Command, args []string) error {
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

	svc := cliInstance.App.WorkflowService

	pipeline, err := svc.GetPipeline(ctx, types.PipelineID(pipelineID), actor)
	if err != nil {
		if fmtErr := formatter.Error(cli.ErrorCodeFor(err), err.Error()); fmtErr != nil {
			slog.Error("failed to format error message", "error", fmtErr)
		}
		os.Exit(cli.ExitCodeFor(err))
	}

	columns, err := svc.GetPipelineColumns(ctx, types.PipelineID(pipelineID), actor)
	if err != nil {
		if fmtErr := formatter.Error(cli.ErrorCodeFor(err), err.Error()); fmtErr != nil {
			slog.Error("failed to format error message", "error", fmtErr)
		}
		os.Exit(cli.ExitCodeFor(err))
	}

	if quietMode {
		for _, col := range columns {
			fmt.Printf("%d\n", col.ID)
		}
		return nil
	}

	if jsonOutput {
		columnList := make([]map[string]interface{}, len(columns))
		for i, col := range columns {
			columnList[i] = map[string]interface{}{
				"id":       col.ID,
				"key":      col.Key,
				"name":     col.Name,
				"position": col.Position,
			}
		}
		return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"success": true,
			"pipeline": map[string]interface{}{
				"id":           pipeline.ID,
				"name":         pipeline.Name,
				"context_type": pipeline.ContextType,
				"context_id":   pipeline.ContextID,
			},
			"columns": columnList,
		})
	}

	fmt.Printf("Pipeline '%s' (ID: %d)\n", pipeline.Name, pipeline.ID)
	if pipeline.ContextType != "" {
		fmt.Printf("  Context: %s %s\n", pipeline.ContextType, pipeline.ContextID)
	}
	if len(columns) == 0 {
		fmt.Println("  No columns")
		return nil
	}
	fmt.Println("  Columns:")
	for _, col := range columns {
		fmt.Printf("    %d. %s [%s] (ID: %d)\n", col.Position+1, col.Name, col.Key, col.ID)
	}
	return nil
}
