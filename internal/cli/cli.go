// Package cli wires the command-line surface: shared context, output
// formatting, exit codes, and the command subpackages.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/apporte/workflow/internal/app"
	"github.com/apporte/workflow/internal/config"
	"github.com/apporte/workflow/internal/database"
	"github.com/apporte/workflow/internal/events"
	"github.com/apporte/workflow/internal/logging"
)

// CLI represents the CLI application context
type CLI struct {
	App         *app.App
	Config      *config.Config
	eventClient events.EventPublisher
	ctx         context.Context
	external    bool
}

// NewCLI initializes the CLI with database and optional daemon connection
func NewCLI(ctx context.Context) (*CLI, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logging.Init(cfg.LogPath()); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	db, err := database.InitDB(ctx, cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	repo := database.NewRepository(db)

	// Try to connect to daemon (optional - silent fallback)
	var eventClient events.EventPublisher
	client, err := events.NewClient(cfg.SocketPath)
	if err == nil {
		// If connect fails the daemon isn't running (graceful degradation)
		if err := client.Connect(ctx); err == nil {
			eventClient = client
		} else {
			derr := events.ClassifyDaemonError(err)
			slog.Debug("daemon unavailable, events disabled",
				"reason", derr.Message, "hint", derr.Hint)
		}
	}

	notifier := events.NewNotifier(eventClient)
	application := app.New(repo, notifier, cfg.HistoryDepth)

	return &CLI{
		App:         application,
		Config:      cfg,
		eventClient: eventClient,
		ctx:         ctx,
	}, nil
}

// NewCLIWithApp wraps an already constructed application container.
// Used by embedding programs and tests that manage the database
// lifecycle themselves.
func NewCLIWithApp(application *app.App, cfg *config.Config) *CLI {
	return &CLI{
		App:    application,
		Config: cfg,
		ctx:    context.Background(),
	}
}

// Close cleans up CLI resources
func (c *CLI) Close() error {
	if c.external {
		return nil
	}
	if c.eventClient != nil {
		if err := c.eventClient.Close(); err != nil {
			return err
		}
	}
	return c.App.Close()
}
