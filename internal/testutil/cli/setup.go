// Package cli provides fixtures for command integration tests. It is
// separate from testutil so service tests can import testutil without
// pulling in the command surface.
package cli

import (
	"testing"

	"github.com/apporte/workflow/internal/app"
	clipkg "github.com/apporte/workflow/internal/cli"
	"github.com/apporte/workflow/internal/config"
	"github.com/apporte/workflow/internal/database"
	"github.com/apporte/workflow/internal/events"
	"github.com/apporte/workflow/internal/testutil"
)

// SetupCLITest creates an in-memory repository and a CLI container
// around it. Commands executed through ExecuteCLICommand share this
// container instead of opening the real database.
// Note: the notifier has no daemon sink, event publishing is tested
// in the events and daemon packages.
func SetupCLITest(t *testing.T) (*database.Repository, *clipkg.CLI) {
	t.Helper()

	repo := testutil.OpenRepository(t)

	cfg := &config.Config{}
	notifier := events.NewNotifier(nil)
	application := app.New(repo, notifier, cfg.HistoryDepth)

	return repo, clipkg.NewCLIWithApp(application, cfg)
}
