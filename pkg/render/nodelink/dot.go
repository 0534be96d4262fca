package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/passforge/pkg/fx"
	"github.com/matzehuels/passforge/pkg/passes"
)

// Options configures diagram generation.
type Options struct {
	// Detailed adds the resolved position to pass labels and the target and
	// op to graph node labels.
	Detailed bool
}

const header = `  rankdir=TB;
  bgcolor="transparent";
  node [shape=box, style="rounded,filled", fillcolor=white, fontsize=24, margin="0.2,0.1"];
  ranksep=0.5;
  nodesep=0.3;
`

// ConstraintDOT returns a DOT digraph of the passes and the constraints
// between them. order is the resolved pass order, or nil when the
// constraints could not be resolved. Constraints that name a pass outside
// ps are drawn with a dashed, grey placeholder box for the missing pass.
func ConstraintDOT(ps []string, constraints []passes.Constraint, order []string, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph passes {\n")
	buf.WriteString(header)
	buf.WriteString("\n")

	for _, name := range ps {
		label := name
		if opts.Detailed {
			if i := slices.Index(order, name); i >= 0 {
				label = fmt.Sprintf("%s\n#%d", name, i+1)
			}
		}
		fmt.Fprintf(&buf, "  %q [label=%q];\n", name, label)
	}

	var missing []string
	for _, c := range constraints {
		for _, n := range []string{c.Before, c.After} {
			if !slices.Contains(ps, n) && !slices.Contains(missing, n) {
				missing = append(missing, n)
			}
		}
	}
	for _, name := range missing {
		fmt.Fprintf(&buf, "  %q [label=%q, style=\"rounded,filled,dashed\", fillcolor=lightgrey, fontcolor=black];\n", name, name)
	}

	buf.WriteString("\n")
	for _, c := range constraints {
		if c.Before == c.After {
			continue
		}
		attrs := ""
		if !c.SatisfiedBy(order) {
			attrs = " [color=red]"
		}
		fmt.Fprintf(&buf, "  %q -> %q%s;\n", c.Before, c.After, attrs)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// GraphDOT returns a DOT digraph of an fx graph's data flow.
func GraphDOT(g *fx.Graph, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph fx {\n")
	buf.WriteString(header)
	buf.WriteString("\n")

	nodes := g.Nodes()
	for _, n := range nodes {
		fmt.Fprintf(&buf, "  %q [%s];\n", n.Name, strings.Join(nodeAttrs(n, opts.Detailed), ", "))
	}

	buf.WriteString("\n")
	for _, n := range nodes {
		for _, a := range slices.Compact(slices.Clone(n.Args)) {
			fmt.Fprintf(&buf, "  %q -> %q;\n", a, n.Name)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(n *fx.Node, detailed bool) []string {
	label := n.Name
	if detailed && n.Op == fx.OpCallFunction {
		label = fmt.Sprintf("%s\n%s", n.Name, n.Target)
	} else if detailed {
		label = fmt.Sprintf("%s\n%s", n.Name, n.Op)
	}

	attrs := []string{fmt.Sprintf("label=%q", label)}
	switch n.Op {
	case fx.OpPlaceholder:
		attrs = append(attrs, "shape=ellipse")
	case fx.OpOutput:
		attrs = append(attrs, "shape=doubleoctagon")
	}
	return attrs
}

// RenderSVG renders DOT source to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-based svg element with one whose
// viewBox starts at the origin, so the SVG scales to its container.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
