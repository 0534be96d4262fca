package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/passforge/internal/server"
	"github.com/matzehuels/passforge/pkg/trace"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr  string
		trc   bool
		cache cacheFlags
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the pipeline API over HTTP",
		Long: `Serve the pipeline API over HTTP until interrupted.

Results are cached locally by default. Pass --redis to share the result cache
between several server instances.`,
		Example: `  passforge serve --addr :8080
  passforge serve --redis redis://localhost:6379/0 -v`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := c.newRunner(cmd.Context(), cache)
			if err != nil {
				return err
			}
			defer runner.Close()

			if trc {
				runner.Callbacks = trace.NewCallbacks(c.Logger)
				runner.Callbacks.LogAll(c.Logger)
			}

			printInfo("Listening on %s", addr)
			return server.New(runner, c.Logger).ListenAndServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().BoolVar(&trc, "trace", false, "log interpreter lifecycle events (needs -v)")
	cache.register(cmd)

	return cmd
}
