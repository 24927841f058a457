package cli

import "context"

type cliContextKey struct{}

// WithCLI returns a context carrying an initialized CLI instance, so
// subcommands and tests can share one container instead of opening the
// database per invocation.
func WithCLI(ctx context.Context, c *CLI) context.Context {
	// The owner of the context owns the lifecycle; per-command Close
	// calls become no-ops for a shared instance
	c.external = true
	return context.WithValue(ctx, cliContextKey{}, c)
}

// GetCLIFromContext returns the CLI carried by ctx, initializing a
// fresh one when the context has none.
func GetCLIFromContext(ctx context.Context) (*CLI, error) {
	if c, ok := ctx.Value(cliContextKey{}).(*CLI); ok {
		return c, nil
	}
	return NewCLI(ctx)
}
