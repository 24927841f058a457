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

// UpdateCmd returns the card update subcommand
func UpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update a card's entity snapshot",
		Long: `Replace the display snapshot a card carries about its entity. The
snapshot is opaque to the engine; placement and permissions are
untouched.

Examples:
  # Refresh a candidate card after the entity changed
  workflow card update --pipeline=1 --id=7 --data='{"name":"Ada","stage":"offer"}'
`,
		RunE: runUpdate,
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
	cmd.Flags().String("data", "", "Display snapshot of the entity (JSON, required)")
	if err := cmd.MarkFlagRequired("data"); err != nil {
		slog.Error("failed to mark flag as required", "error", err)
	}

	cli.AddOutputFlags(cmd)

	return cmd
}

func runUpdate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	pipelineID, _ := cmd.Flags().GetInt64("pipeline")
	cardID, _ := cmd.Flags().GetInt64("id")
	data, _ := cmd.Flags().GetString("data")
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

	card, err := cliInstance.App.Repo().GetCardByID(ctx, types.CardID(cardID))
	if err != nil {
		if fmtErr := formatter.Error("CARD_NOT_FOUND", fmt.Sprintf("card %d not found", cardID)); fmtErr != nil {
			slog.Error("failed to format error message", "error", fmtErr)
		}
		os.Exit(cli.ExitNotFound)
	}
	if card.PipelineID != types.PipelineID(pipelineID) {
		if fmtErr := formatter.Error("INVALID_CARD", fmt.Sprintf("card %d does not belong to pipeline %d", cardID, pipelineID)); fmtErr != nil {
			slog.Error("failed to format error message", "error", fmtErr)
		}
		os.Exit(cli.ExitValidation)
	}

	if !json.Valid([]byte(data)) {
		if fmtErr := formatter.Error("INVALID_DATA", "data snapshot must be valid JSON"); fmtErr != nil {
			slog.Error("failed to format error message", "error", fmtErr)
		}
		os.Exit(cli.ExitDataErr)
	}

	if err := cliInstance.App.Repo().UpdateCardSnapshot(ctx, types.CardID(cardID), []byte(data)); err != nil {
		if fmtErr := formatter.Error("CARD_UPDATE_ERROR", err.Error()); fmtErr != nil {
			slog.Error("failed to format error message", "error", fmtErr)
		}
		return err
	}

	if quietMode {
		return nil
	}

	if jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"success": true,
			"card_id": cardID,
		})
	}

	fmt.Printf("✓ Card %d snapshot updated successfully\n", cardID)
	return nil
}
