package card

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/apporte/workflow/internal/cli"
	workflowservice "github.com/apporte/workflow/internal/services/workflow"
	"github.com/apporte/workflow/internal/types"
)

// MoveCmd returns the card move subcommand
func MoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "move",
		Short: "Move a card to another column",
		Long: `Move a card to another column. Every gate runs before anything
changes: column permissions, the destination's transition rules, and its
entity-type restrictions.

Examples:
  # Move card 7 into column 3
  workflow card move --pipeline=1 --id=7 --to=3 --actor-id=erin --roles=reviewer

  # JSON output for agents
  workflow card move --pipeline=1 --id=7 --to=3 --roles=reviewer --json

  # Scope the undo history to a named session
  workflow card move --pipeline=1 --id=7 --to=3 --roles=reviewer --session=review-sweep
`,
		RunE: runMove,
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
	cmd.Flags().Int64("to", 0, "Destination column ID (required)")
	if err := cmd.MarkFlagRequired("to"); err != nil {
		slog.Error("failed to mark flag as required", "error", err)
	}

	// Optional flags
	cmd.Flags().Int64("from", 0, "Expected source column ID (stale value fails the move)")
	cmd.Flags().String("session", "", "Undo session key (defaults to the actor ID)")

	cli.AddActorFlags(cmd)
	cli.AddOutputFlags(cmd)

	return cmd
}

func runMove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	pipelineID, _ := cmd.Flags().GetInt64("pipeline")
	cardID, _ := cmd.Flags().GetInt64("id")
	fromColumnID, _ := cmd.Flags().GetInt64("from")
	toColumnID, _ := cmd.Flags().GetInt64("to")
	sessionKey, _ := cmd.Flags().GetString("session")
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

	resp, err := cliInstance.App.WorkflowService.MoveCard(ctx,
		types.PipelineID(pipelineID), types.CardID(cardID),
		workflowservice.MoveCardRequest{
			FromColumnID: types.ColumnID(fromColumnID),
			ToColumnID:   types.ColumnID(toColumnID),
			SessionKey:   sessionKey,
		}, actor)
	if err != nil {
		if fmtErr := formatter.Error(cli.ErrorCodeFor(err), err.Error()); fmtErr != nil {
			slog.Error("failed to format error message", "error", fmtErr)
		}
		os.Exit(cli.ExitCodeFor(err))
	}

	if quietMode {
		fmt.Printf("%d\n", resp.NewColumnID)
		return nil
	}

	if jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"success": true,
			"move":    resp,
		})
	}

	fmt.Printf("✓ %s\n", resp.Message)
	return nil
}
