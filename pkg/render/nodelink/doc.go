// Package nodelink renders pass schedules and fx graphs as node-link
// diagrams.
//
// # Overview
//
// Two diagrams are supported:
//
//   - [ConstraintDOT]: one box per pass, an arrow for every ordering
//     constraint, and the resolved position of each pass in its label.
//   - [GraphDOT]: one node per fx node, an arrow from each argument to its
//     user. Placeholders and the output get distinct shapes.
//
// Both return Graphviz DOT source, which can be saved for external tools or
// rendered in-process with [RenderSVG]:
//
//	dot := nodelink.ConstraintDOT(pm.Passes(), pm.Constraints(), order, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for SVG rendering; no
// Graphviz installation is needed.
package nodelink
