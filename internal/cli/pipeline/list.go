package pipeline

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/apporte/workflow/internal/cli"
)

// ListCmd returns the pipeline list subcommand
func ListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all pipelines",
		Long: `List all pipelines.

Examples:
  # Human-readable list
  workflow pipeline list

  # JSON output for agents
  workflow pipeline list --json

  # Quiet mode (one ID per line)
  workflow pipeline list --quiet
`,
		RunE: runList,
	}

	cli.AddOutputFlags(cmd)

	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

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

	pipelines, err := cliInstance.App.Repo().GetAllPipelines(ctx)
	if err != nil {
		if fmtErr := formatter.Error("PIPELINE_FETCH_ERROR", err.Error()); fmtErr != nil {
			slog.Error("failed to format error message", "error", fmtErr)
		}
		return err
	}

	if quietMode {
		for _, p := range pipelines {
			fmt.Printf("%d\n", p.ID)
		}
		return nil
	}

	if jsonOutput {
		list := make([]map[string]interface{}, len(pipelines))
		for i, p := range pipelines {
			list[i] = map[string]interface{}{
				"id":           p.ID,
				"name":         p.Name,
				"context_type": p.ContextType,
				"context_id":   p.ContextID,
			}
		}
		return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"success":   true,
			"pipelines": list,
		})
	}

	if len(pipelines) == 0 {
		fmt.Println("No pipelines found")
		return nil
	}
	fmt.Println("Pipelines:")
	for _, p := range pipelines {
		fmt.Printf("  %d. %s", p.ID, p.Name)
		if p.ContextType != "" {
			fmt.Printf(" (%s %s)", p.ContextType, p.ContextID)
		}
		fmt.Println()
	}
	return nil
}
