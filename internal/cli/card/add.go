package card

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/apporte/workflow/internal/cli"
	"github.com/apporte/workflow/internal/models"
	"github.com/apporte/workflow/internal/types"
)

// AddCmd returns the card add subcommand
func AddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a card to a column",
		Long: `Add a card referencing a business entity to a column.

Examples:
  # Add a task card to the backlog column
  workflow card add --pipeline=1 --column=2 --entity-type=task --entity-id=T-731

  # Attach a display snapshot
  workflow card add --pipeline=1 --column=2 --entity-type=candidate --entity-id=C-12 \
    --data='{"name":"Ada","stage":"screening"}'

  # Quiet mode for bash capture
  CARD_ID=$(workflow card add --pipeline=1 --column=2 --entity-type=task --entity-id=T-731 --quiet)
`,
		RunE: runAdd,
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
	cmd.Flags().String("entity-type", "", "Entity type, e.g. task, candidate (required)")
	if err := cmd.MarkFlagRequired("entity-type"); err != nil {
		slog.Error("failed to mark flag as required", "error", err)
	}
	cmd.Flags().String("entity-id", "", "Entity identifier (required)")
	if err := cmd.MarkFlagRequired("entity-id"); err != nil {
		slog.Error("failed to mark flag as required", "error", err)
	}

	// Optional flags
	cmd.Flags().String("data", "", "Display snapshot of the entity (JSON)")

	cli.AddOutputFlags(cmd)

	return cmd
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	pipelineID, _ := cmd.Flags().GetInt64("pipeline")
	columnID, _ := cmd.Flags().GetInt64("column")
	entityType, _ := cmd.Flags().GetString("entity-type")
	entityID, _ := cmd.Flags().GetString("entity-id")
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

	// Validate column exists and belongs to the pipeline
	column, err := cliInstance.App.Repo().GetColumnByID(ctx, types.ColumnID(columnID))
	if err != nil {
		if fmtErr := formatter.Error("COLUMN_NOT_FOUND", fmt.Sprintf("column %d not found", columnID)); fmtErr != nil {
			slog.Error("failed to format error message", "error", fmtErr)
		}
		os.Exit(cli.ExitNotFound)
	}
	if column.PipelineID != types.PipelineID(pipelineID) {
		if fmtErr := formatter.Error("INVALID_COLUMN", fmt.Sprintf("column %d does not belong to pipeline %d", columnID, pipelineID)); fmtErr != nil {
			slog.Error("failed to format error message", "error", fmtErr)
		}
		os.Exit(cli.ExitValidation)
	}

	var snapshot json.RawMessage
	if data != "" {
		if !json.Valid([]byte(data)) {
			if fmtErr := formatter.Error("INVALID_DATA", "data snapshot must be valid JSON"); fmtErr != nil {
				slog.Error("failed to format error message", "error", fmtErr)
			}
			os.Exit(cli.ExitDataErr)
		}
		snapshot = json.RawMessage(data)
	}

	card, err := cliInstance.App.Repo().CreateCard(ctx, &models.Card{
		PipelineID:   types.PipelineID(pipelineID),
		ColumnID:     types.ColumnID(columnID),
		EntityType:   entityType,
		EntityID:     entityID,
		DataSnapshot: snapshot,
	})
	if err != nil {
		if fmtErr := formatter.Error("CARD_CREATE_ERROR", err.Error()); fmtErr != nil {
			slog.Error("failed to format error message", "error", fmtErr)
		}
		return err
	}

	if quietMode {
		fmt.Printf("%d\n", card.ID)
		return nil
	}

	if jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"success": true,
			"card": map[string]interface{}{
				"id":          card.ID,
				"pipeline_id": card.PipelineID,
				"column_id":   card.ColumnID,
				"entity_type": card.EntityType,
				"entity_id":   card.EntityID,
			},
		})
	}

	fmt.Printf("✓ Card for %s %s created successfully (ID: %d)\n", entityType, entityID, card.ID)
	fmt.Printf("  Column: %s\n", column.Name)
	return nil
}
