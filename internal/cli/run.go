package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/passforge/pkg/fx"
	"github.com/matzehuels/passforge/pkg/pipeline"
	"github.com/matzehuels/passforge/pkg/trace"
)

// runFlags holds the flags of the run command.
type runFlags struct {
	config  string
	output  string
	trace   bool
	exhaust bool
	cache   cacheFlags
}

// runCommand creates the run command.
func (c *CLI) runCommand() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run [graph.json]",
		Short: "Run a pipeline config over a graph",
		Long: `Run the passes of a pipeline config over a graph file.

The transformed graph is written to --output, or to stdout when no output is
given. Results are cached by the content of the config and the graph.`,
		Example: `  passforge run model.json --config pipeline.toml -o model.opt.json
  passforge run model.json --config pipeline.yaml --trace -v`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPipeline(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVarP(&flags.config, "config", "c", "", "pipeline config (.toml, .yaml, .hcl or .json)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "output graph file (default: stdout)")
	cmd.Flags().BoolVar(&flags.trace, "trace", false, "log interpreter lifecycle events (needs -v)")
	cmd.Flags().BoolVar(&flags.exhaust, "exhaust", false, "run all steps even after a fixed point")
	flags.cache.register(cmd)
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func (c *CLI) runPipeline(cmd *cobra.Command, input string, flags runFlags) error {
	ctx := cmd.Context()

	cfg, err := pipeline.LoadConfigFile(flags.config)
	if err != nil {
		return err
	}
	if flags.exhaust {
		cfg.ExhaustSteps = true
	}

	g, err := fx.ImportJSON(input)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, flags.cache)
	if err != nil {
		return err
	}
	defer runner.Close()

	if flags.trace {
		runner.Callbacks = trace.NewCallbacks(c.Logger)
		runner.Callbacks.LogAll(c.Logger)
	}

	prog := newProgress(c.Logger)
	result, err := runner.Execute(ctx, cfg, g)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Ran %d passes", len(result.Order)))

	if flags.output == "" {
		return fx.WriteJSON(result.Graph, os.Stdout)
	}
	if err := fx.ExportJSON(result.Graph, flags.output); err != nil {
		return err
	}

	printSuccess("Pipeline finished")
	printStats(result.Stats.NodesAfter, result.Stats.CallsAfter, result.Modified, result.CacheHit)
	if !result.Modified {
		printWarning("No pass changed the graph")
	}
	printKeyValue("Run", result.RunID)
	printKeyValue("Order", strings.Join(result.Order, " "+iconArrow+" "))
	printFile(flags.output)
	return nil
}
