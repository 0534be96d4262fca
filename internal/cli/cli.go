// Package cli implements the passforge command-line interface.
//
// The commands load pipeline configs, run them over fx graphs, print the
// resolved pass order and serve the same operations over HTTP. The CLI is
// built using cobra and supports verbose logging via the charmbracelet/log
// library.
//
// # Commands
//
// The main commands are:
//   - run: Run a pipeline config over a graph file
//   - order: Resolve and print the pass order of a config
//   - passes: List the pass, observer and check kinds a config can use
//   - serve: Serve the pipeline API over HTTP
//   - cache: Manage the result cache
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/passforge/pkg/buildinfo"
	"github.com/matzehuels/passforge/pkg/cache"
	"github.com/matzehuels/passforge/pkg/errors"
	"github.com/matzehuels/passforge/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "passforge"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Passforge runs ordered graph transformation pipelines",
		Long:         `Passforge runs declarative pipelines of graph transformation passes. Passes are ordered by their constraints, repeated until a fixed point and checked after every run.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.runCommand())
	root.AddCommand(c.orderCommand())
	root.AddCommand(c.passesCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// cacheFlags selects the result cache backend of a command.
type cacheFlags struct {
	noCache  bool
	redisURL string
	scope    string
}

func (f *cacheFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable result caching")
	cmd.Flags().StringVar(&f.redisURL, "redis", os.Getenv("PASSFORGE_REDIS_URL"), "cache results in redis (e.g. redis://localhost:6379/0)")
	cmd.Flags().StringVar(&f.scope, "cache-scope", os.Getenv("PASSFORGE_CACHE_SCOPE"), "namespace cache keys, e.g. to keep ci and dev apart on a shared redis")
}

// keyer returns the cache keyer for the flags. A scope prefixes every key.
func (f cacheFlags) keyer() cache.Keyer {
	if f.scope == "" {
		return cache.NewDefaultKeyer()
	}
	return cache.NewScopedKeyer(cache.NewDefaultKeyer(), f.scope+":")
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, flags cacheFlags) (*pipeline.Runner, error) {
	cc, err := newCache(ctx, flags)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cc, flags.keyer(), c.Logger), nil
}

func newCache(ctx context.Context, flags cacheFlags) (cache.Cache, error) {
	if flags.noCache {
		return cache.NewNullCache(), nil
	}
	if flags.redisURL != "" {
		return cache.NewRedisCache(ctx, cache.RedisConfig{URL: flags.redisURL})
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/passforge/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Errors
// =============================================================================

// FormatError renders err for the terminal.
func FormatError(err error) string {
	msg := errors.UserMessage(err)
	if code := errors.GetCode(err); code != "" {
		return styleIconError.Render(iconError) + " " + msg + " " + StyleDim.Render("["+string(code)+"]")
	}
	return styleIconError.Render(iconError) + " " + msg
}

// ExitCode maps err to a process exit status: 2 for invalid input, 3 for
// failed checks and 1 for everything else.
func ExitCode(err error) int {
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidConfig, errors.ErrCodeInvalidGraph,
		errors.ErrCodeInvalidFormat, errors.ErrCodeInvalidPath, errors.ErrCodeFileNotFound,
		errors.ErrCodeUnsatisfiableConstraints, errors.ErrCodeScheduleViolated,
		errors.ErrCodeUnknownPass, errors.ErrCodeDuplicatePass, errors.ErrCodeSignatureMismatch:
		return 2
	case errors.ErrCodeCheckFailed:
		return 3
	}
	return 1
}
