package cmd

import (
	"github.com/spf13/cobra"

	"github.com/apporte/workflow/internal/cli/card"
	"github.com/apporte/workflow/internal/cli/column"
	"github.com/apporte/workflow/internal/cli/pipeline"
)

var rootCmd = &cobra.Command{
	Use:   "workflow",
	Short: "Workflow - a role-aware kanban pipeline engine",
	Long:  `Workflow manages kanban pipelines with per-column role permissions and transition rules.`,
}

func init() {
	rootCmd.AddCommand(pipeline.PipelineCmd())
	rootCmd.AddCommand(column.ColumnCmd())
	rootCmd.AddCommand(card.CardCmd())
}

func Execute() error {
	return rootCmd.Execute()
}
