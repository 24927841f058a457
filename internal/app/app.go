package app

import (
	"github.com/apporte/workflow/internal/database"
	"github.com/apporte/workflow/internal/events"
	workflowservice "github.com/apporte/workflow/internal/services/workflow"
)

// App holds all application services and provides dependency injection.
// This is the main application container that manages service lifecycles.
type App struct {
	// Repository layer (direct database access)
	repo database.DataStore

	// Event fan-out for committed moves
	notifier *events.Notifier

	// Service layer (business logic)
	WorkflowService workflowservice.Service
}

// New creates a new App with all services initialized. notifier may be
// nil when no event delivery is wanted.
func New(repo database.DataStore, notifier *events.Notifier, historyDepth int) *App {
	return &App{
		repo:            repo,
		notifier:        notifier,
		WorkflowService: workflowservice.NewService(repo, notifier, historyDepth),
	}
}

// Repo returns the underlying repository for direct database access.
func (a *App) Repo() database.DataStore {
	return a.repo
}

// Notifier returns the event notifier, possibly nil.
func (a *App) Notifier() *events.Notifier {
	return a.notifier
}

// Close performs cleanup of application resources.
func (a *App) Close() error {
	return nil
}
