package card

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/apporte/workflow/internal/cli"
	"github.com/apporte/workflow/internal/cli/styles"
	"github.com/apporte/workflow/internal/types"
)

// ShowCmd returns the card show subcommand
func ShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a card's details",
		Long: `Show a card's placement and entity snapshot.

Examples:
  # Human-readable card view
  workflow card show --pipeline=1 --id=7

  # JSON output for agents
  workflow card show --pipeline=1 --id=7 --json
`,
		RunE: runShow,
	}

	// Required flags
	cmd.Flags().Int64("pipeline", 0, "Pipeline ID (required)")
	if err := cmd.MarkFlagRequired("pipeline"); err != nil {
		slog.Error("failed to mark flag as required", "error", err)
	}
	cmd.Flags().Int64("id", 0, "Card ID (required)")
	if err := cmd.MarkFlagRequired("id"); err != nil {
		slog.Error("failed to mark flag as required", "error", err)
	}

	cli.AddActorFlags(cmd)
	cli.AddOutputFlags(cmd)

	return cmd
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	pipelineID, _ := cmd.Flags().GetInt64("pipeline")
	cardID, _ := cmd.Flags().GetInt64("id")
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

	card, err := cliInstance.App.WorkflowService.GetCard(ctx,
		types.PipelineID(pipelineID), types.CardID(cardID), actor)
	if err != nil {
		if fmtErr := formatter.Error(cli.ErrorCodeFor(err), err.Error()); fmtErr != nil {
			slog.Error("failed to format error message", "error", fmtErr)
		}
		os.Exit(cli.ExitCodeFor(err))
	}

	if quietMode {
		fmt.Printf("%d\n", card.ColumnID)
		return nil
	}

	if jsonOutput {
		payload := map[string]interface{}{
			"id":          card.ID,
			"pipeline_id": card.PipelineID,
			"column_id":   card.ColumnID,
			"entity_type": card.EntityType,
			"entity_id":   card.EntityID,
			"sort_order":  card.SortOrder,
		}
		if len(card.DataSnapshot) > 0 {
			payload["data"] = json.RawMessage(card.DataSnapshot)
		}
		return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"success": true,
			"card":    payload,
		})
	}

	title := fmt.Sprintf("%s %s", card.EntityType, card.EntityID)
	body := fmt.Sprintf("%s\n%s %d   %s %d",
		styles.TitleStyle.Render(title),
		styles.LabelStyle.Render("Column:"), card.ColumnID,
		styles.LabelStyle.Render("Position:"), card.SortOrder)
	if len(card.DataSnapshot) > 0 {
		body += "\n" + styles.SubtitleStyle.Render(string(card.DataSnapshot))
	}
	fmt.Println(styles.CardStyle.Render(body))
	return nil
}
