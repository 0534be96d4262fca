package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/passforge/pkg/errors"
	"github.com/matzehuels/passforge/pkg/fx"
	"github.com/matzehuels/passforge/pkg/pipeline"
	"github.com/matzehuels/passforge/pkg/render/nodelink"
)

// orderFlags holds the flags of the order command.
type orderFlags struct {
	config   string
	dot      bool
	svg      string
	graph    string
	detailed bool
	cache    cacheFlags
}

// orderCommand creates the order command.
func (c *CLI) orderCommand() *cobra.Command {
	var flags orderFlags

	cmd := &cobra.Command{
		Use:   "order",
		Short: "Resolve and print the pass order of a config",
		Long: `Resolve the pass order of a pipeline config from its constraints.

With --dot the constraint graph is printed in DOT format instead; with --svg it
is rendered to a file. Unsatisfiable constraints still produce a diagram, with
the offending edges highlighted, so the cycle can be inspected.`,
		Example: `  passforge order --config pipeline.toml
  passforge order --config pipeline.toml --svg passes.svg
  passforge order --config pipeline.toml --graph model.json --dot`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runOrder(cmd, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.config, "config", "c", "", "pipeline config (.toml, .yaml, .hcl or .json)")
	cmd.Flags().BoolVar(&flags.dot, "dot", false, "print the constraint graph in DOT format")
	cmd.Flags().StringVar(&flags.svg, "svg", "", "render the constraint graph to an SVG file")
	cmd.Flags().StringVar(&flags.graph, "graph", "", "draw this graph file instead of the constraint graph")
	cmd.Flags().BoolVar(&flags.detailed, "detailed", false, "label nodes with positions and targets")
	flags.cache.register(cmd)
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func (c *CLI) runOrder(cmd *cobra.Command, flags orderFlags) error {
	ctx := cmd.Context()

	cfg, err := pipeline.LoadConfigFile(flags.config)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, flags.cache)
	if err != nil {
		return err
	}
	defer runner.Close()

	order, orderErr := runner.Order(ctx, cfg)
	diagram := flags.dot || flags.svg != ""
	if orderErr != nil && !(diagram && errors.Is(orderErr, errors.ErrCodeUnsatisfiableConstraints)) {
		return orderErr
	}

	if !diagram {
		printOrder(order)
		return nil
	}

	dot, err := diagramDOT(cfg, order, flags)
	if err != nil {
		return err
	}
	if flags.svg == "" {
		fmt.Print(dot)
		return orderErr
	}

	svg, err := nodelink.RenderSVG(ctx, dot)
	if err != nil {
		return err
	}
	if err := os.WriteFile(flags.svg, svg, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", flags.svg, err)
	}
	printSuccess("Rendered diagram")
	printFile(flags.svg)
	return orderErr
}

func diagramDOT(cfg *pipeline.Config, order []string, flags orderFlags) (string, error) {
	opts := nodelink.Options{Detailed: flags.detailed}
	if flags.graph != "" {
		g, err := fx.ImportJSON(flags.graph)
		if err != nil {
			return "", err
		}
		return nodelink.GraphDOT(g, opts), nil
	}
	return nodelink.ConstraintDOT(cfg.PassNames(), cfg.PassConstraints(), order, opts), nil
}

func printOrder(order []string) {
	if len(order) == 0 {
		printInfo("No passes")
		return
	}
	width := len(strconv.Itoa(len(order)))
	for i, name := range order {
		pos := fmt.Sprintf("%*d", width, i+1)
		fmt.Println(StyleNumber.Render(pos) + " " + StyleHighlight.Render(name))
	}
	printDetail("%s", strings.Join(order, " "+iconArrow+" "))
}
