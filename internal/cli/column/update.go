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
)

// UpdateCmd returns the column update subcommand
func UpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update a column's configuration",
		Long: `Update a column's name, position, role sets, or rule documents.
Only the flags you pass are changed; a pipeline manage role is required
when the pipeline restricts management.

Examples:
  # Rename a column
  workflow column update --pipeline=1 --id=3 --name="In Review" --actor-id=dana --roles=manager

  # Replace the transition rule document
  workflow column update --pipeline=1 --id=3 \
    --transition-rules='{"transitions":[{"from":"doing","to":"review"}]}' \
    --actor-id=dana --roles=manager

  # Restrict arrivals to bugs
  workflow column update --pipeline=1 --id=3 --entity-types=bug --actor-id=dana --roles=manager
`,
		RunE: runUpdate,
	}

	// Required flags
	cmd.Flags().Int64("pipeline", 0, "Pipeline ID (required)")
	if err := cmd.MarkFlagRequired("pipeline"); err != nil {
		slog.Error("failed to mark flag as required", "error", err)
	}
	cmd.Flags().Int64("id", 0, "Column ID (required)")
	if err := cmd.MarkFlagRequired("id"); err != nil {
		slog.Error("failed to mark flag as required", "error", err)
	}

	// Optional flags; only passed flags are applied
	cmd.Flags().String("name", "", "New display name")
	cmd.Flags().Int("position", 0, "New board position")
	cmd.Flags().StringSlice("entity-types", nil, "Entity types the column accepts")
	cmd.Flags().StringSlice("view-roles", nil, "Roles allowed to view the column")
	cmd.Flags().StringSlice("move-in-roles", nil, "Roles allowed to move cards in")
	cmd.Flags().StringSlice("move-out-roles", nil, "Roles allowed to move cards out")
	cmd.Flags().String("transition-rules", "", "Transition rule document (JSON)")
	cmd.Flags().String("notification-rules", "", "Notification rule document (JSON)")
	cmd.Flags().String("card-layout", "", "Card layout document (JSON)")
	cmd.Flags().String("filter-config", "", "Filter configuration document (JSON)")

	cli.AddActorFlags(cmd)
	cli.AddOutputFlags(cmd)

	return cmd
}

func runUpdate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	pipelineID, _ := cmd.Flags().GetInt64("pipeline")
	columnID, _ := cmd.Flags().GetInt64("id")
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

	update := buildUpdate(cmd)

	err = cliInstance.App.WorkflowService.UpdateColumn(ctx, types.PipelineID(pipelineID), types.ColumnID(columnID), update, actor)
	if err != nil {
		if fmtErr := formatter.Error(cli.ErrorCodeFor(err), err.Error()); fmtErr != nil {
			slog.Error("failed to format error message", "error", fmtErr)
		}
		os.Exit(cli.ExitCodeFor(err))
	}

	if quietMode {
		return nil
	}

	if jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"success":   true,
			"column_id": columnID,
		})
	}

	fmt.Printf("✓ Column %d updated successfully\n", columnID)
	return nil
}

// buildUpdate translates changed flags into a partial update; untouched
// flags leave their fields nil.
func buildUpdate(cmd *cobra.Command) models.ColumnUpdate {
	var update models.ColumnUpdate

	if cmd.Flags().Changed("name") {
		name, _ := cmd.Flags().GetString("name")
		update.Name = &name
	}
	if cmd.Flags().Changed("position") {
		position, _ := cmd.Flags().GetInt("position")
		update.Position = &position
	}
	if cmd.Flags().Changed("entity-types") {
		entityTypes, _ := cmd.Flags().GetStringSlice("entity-types")
		update.AllowedEntityTypes = &entityTypes
	}
	if cmd.Flags().Changed("view-roles") {
		viewRoles, _ := cmd.Flags().GetStringSlice("view-roles")
		update.AllowedRolesView = &viewRoles
	}
	if cmd.Flags().Changed("move-in-roles") {
		moveInRoles, _ := cmd.Flags().GetStringSlice("move-in-roles")
		update.AllowedRolesMoveIn = &moveInRoles
	}
	if cmd.Flags().Changed("move-out-roles") {
		moveOutRoles, _ := cmd.Flags().GetStringSlice("move-out-roles")
		update.AllowedRolesMoveOut = &moveOutRoles
	}
	if cmd.Flags().Changed("transition-rules") {
		doc, _ := cmd.Flags().GetString("transition-rules")
		update.TransitionRules = json.RawMessage(doc)
	}
	if cmd.Flags().Changed("notification-rules") {
		doc, _ := cmd.Flags().GetString("notification-rules")
		update.NotificationRules = json.RawMessage(doc)
	}
	if cmd.Flags().Changed("card-layout") {
		doc, _ := cmd.Flags().GetString("card-layout")
		update.CardLayout = json.RawMessage(doc)
	}
	if cmd.Flags().Changed("filter-config") {
		doc, _ := cmd.Flags().GetString("filter-config")
		update.FilterConfig = json.RawMessage(doc)
	}
	return update
}
