package card

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/apporte/workflow/internal/cli"
	"github.com/apporte/workflow/internal/types"
)

// ListCmd returns the card list subcommand
func ListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cards in a column",
		Long: `List all cards in a column, in sort order.

Examples:
  # Human-readable list
  workflow card list --pipeline=1 --column=2

  # JSON output for agents
  workflow card list --pipeline=1 --column=2 --json

  # Quiet mode (one ID per line)
  workflow card list --pipeline=1 --column=2 --quiet
`,
		RunE: runList,
	}

	// Required flags
	cmd.Flags().Int64("pipeline", 0, "Pipeline ID (required)")
	if err := cmd.MarkFlagRequired("pipeline"); err != nil {
		slog.Error("failed to mark flag as required", "error", err)
	}
	cmd.Flags().Int64("column", 0, "Column ID (required)")
	if err := cmd.MarkFlagRequired("column"); err != nil {
		slog.Error("failed to mark flag as required", "error", err)
	}

	cli.AddActorFlags(cmd)
	cli.AddOutputFlags(cmd)

	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	pipelineID, _ := cmd.Flags().GetInt64("pipeline")
	columnID, _ := cmd.Flags().GetInt64("column")
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

	cards, err := cliInstance.App.WorkflowService.GetColumnCards(ctx,
		types.PipelineID(pipelineID), types.ColumnID(columnID), actor)
	if err != nil {
		if fmtErr := formatter.Error(cli.ErrorCodeFor(err), err.Error()); fmtErr != nil {
			slog.Error("failed to format error message", "error", fmtErr)
		}
		os.Exit(cli.ExitCodeFor(err))
	}

	if quietMode {
		for _, c := range cards {
			fmt.Printf("%d\n", c.ID)
		}
		return nil
	}

	if jsonOutput {
		list := make([]map[string]interface{}, len(cards))
		for i, c := range cards {
			list[i] = map[string]interface{}{
				"id":          c.ID,
				"entity_type": c.EntityType,
				"entity_id":   c.EntityID,
				"sort_order":  c.SortOrder,
			}
		}
		return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"success": true,
			"cards":   list,
		})
	}

	if len(cards) == 0 {
		fmt.Printf("No cards in column %d\n", columnID)
		return nil
	}
	fmt.Printf("Cards in column %d:\n", columnID)
	for _, c := range cards {
		fmt.Printf("  %d. %s %s (ID: %d)\n", c.SortOrder, c.EntityType, c.EntityID, c.ID)
	}
	return nil
}
