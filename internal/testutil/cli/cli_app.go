package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"

	"github.com/spf13/cobra"

	clipkg "github.com/apporte/workflow/internal/cli"
)

// CaptureOutputFunc captures stdout during function execution
func CaptureOutputFunc(t *testing.T, fn func()) string {
	t.Helper()

	oldStdout := os.Stdout

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Failed to create pipe: %v", err)
	}

	os.Stdout = w

	outC := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		outC <- buf.String()
	}()

	fn()

	_ = w.Close()
	os.Stdout = oldStdout

	return <-outC
}

// ExecuteCLICommand runs a command against the shared test container,
// returning everything the command printed to stdout.
func ExecuteCLICommand(t *testing.T, c *clipkg.CLI, cmd *cobra.Command, args []string) (string, error) {
	t.Helper()

	if c == nil {
		t.Fatal("CLI container cannot be nil - SetupCLITest must be called first")
	}

	cmd.SetArgs(args)

	ctx := clipkg.WithCLI(context.Background(), c)
	cmd.SetContext(ctx)

	// Quieter failures in test output
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	var executeErr error
	output := CaptureOutputFunc(t, func() {
		executeErr = cmd.ExecuteContext(ctx)
	})

	return output, executeErr
}
