package card

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/apporte/workflow/internal/cli"
)

// UndoCmd returns the card undo subcommand
func UndoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "undo",
		Short: "Undo the most recent card move of a session",
		Long: `Undo the most recent successful card move recorded for a session.
Undo history lives in the running process, so this is meaningful inside
a shell session sharing one service instance (a REPL or an embedding
application); a fresh process has no history to undo.

Examples:
  # Undo the last move of the default session (the actor's own)
  workflow card undo --actor-id=erin

  # Undo within a named session
  workflow card undo --session=review-sweep
`,
		RunE: runUndo,
	}

	// Optional flags
	cmd.Flags().String("session", "", "Undo session key (defaults to the actor ID)")

	cli.AddActorFlags(cmd)
	cli.AddOutputFlags(cmd)

	return cmd
}

func runUndo(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

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

	if sessionKey == "" {
		sessionKey = actor.ID
	}

	if err := cliInstance.App.WorkflowService.UndoLastMove(ctx, sessionKey); err != nil {
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
			"success": true,
			"session": sessionKey,
		})
	}

	fmt.Printf("✓ Last move of session '%s' undone\n", sessionKey)
	return nil
}
