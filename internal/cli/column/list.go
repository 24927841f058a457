package column

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/apporte/workflow/internal/cli"
	"github.com/apporte/workflow/internal/types"
)

// ListCmd returns the column list subcommand
func ListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List columns in a pipeline",
		Long: `List all columns in a pipeline, in board order.

Examples:
  # Human-readable list
  workflow column list --pipeline=1

  # JSON output for agents
  workflow column list --pipeline=1 --json

  # Quiet mode (one ID per line)
  workflow column list --pipeline=1 --quiet
`,
		RunE: runList,
	}

	// Required flags
	cmd.Flags().Int64("pipeline", 0, "Pipeline ID (required)")
	if err := cmd.MarkFlagRequired("pipeline"); err != nil {
		slog.Error("failed to mark flag as required", "error", err)
	}

	cli.AddActorFlags(cmd)
	cli.AddOutputFlags(cmd)

	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	pipelineID, _ := cmd.Flags().GetInt64("pipeline")
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

	columns, err := cliInstance.App.WorkflowService.GetPipelineColumns(ctx, types.PipelineID(pipelineID), actor)
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
		list := make([]map[string]interface{}, len(columns))
		for i, col := range columns {
			list[i] = map[string]interface{}{
				"id":           col.ID,
				"key":          col.Key,
				"name":         col.Name,
				"position":     col.Position,
				"entity_types": col.AllowedEntityTypes,
			}
		}
		return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"success": true,
			"columns": list,
		})
	}

	if len(columns) == 0 {
		fmt.Printf("No columns found in pipeline %d\n", pipelineID)
		return nil
	}
	fmt.Printf("Columns in pipeline %d:\n", pipelineID)
	for i, col := range columns {
		fmt.Printf("  %d. %s [%s] (ID: %d)", i+1, col.Name, col.Key, col.ID)
		if len(col.AllowedEntityTypes) > 0 {
			fmt.Printf(" accepts: %s", strings.Join(col.AllowedEntityTypes, ", "))
		}
		fmt.Println()
	}
	return nil
}
