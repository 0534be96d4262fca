// Package rewrite provides ready-made passes, observers and checks over
// [fx.Graph].
//
// The passes mutate the graph in place and report whether they changed it,
// so a [passes.Manager] can detect a fixed point:
//
//	pm, _ := passes.NewManager(
//	    []passes.Pass[*fx.Graph]{
//	        rewrite.ReplaceTarget("add_to_mul", fx.TargetAdd, fx.TargetMul),
//	        rewrite.DeadCodeElimination("dce"),
//	    }, nil, passes.Options{Steps: 3})
//	_ = pm.AddCheck(rewrite.ValidGraph)
package rewrite

import (
	"slices"

	"github.com/matzehuels/passforge/pkg/fx"
	"github.com/matzehuels/passforge/pkg/passes"
)

// ReplaceTarget returns a pass that retargets every call to from so it calls
// to instead.
func ReplaceTarget(name string, from, to fx.Target) passes.Pass[*fx.Graph] {
	return passes.Rewrite(name, func(g *fx.Graph) (bool, error) {
		modified := false
		for _, n := range g.Nodes() {
			if n.Op == fx.OpCallFunction && n.Target == from {
				n.Target = to
				modified = true
			}
		}
		return modified, nil
	})
}

// DeadCodeElimination returns a pass that removes call_function nodes whose
// results nothing uses. Placeholders are kept so the graph's signature does
// not change.
func DeadCodeElimination(name string) passes.Pass[*fx.Graph] {
	return passes.Rewrite(name, func(g *fx.Graph) (bool, error) {
		modified := false
		// Walking backwards lets a single sweep drop whole dead chains.
		nodes := g.Nodes()
		for _, n := range slices.Backward(nodes) {
			if n.Op != fx.OpCallFunction || len(g.Users(n.Name)) > 0 {
				continue
			}
			if err := g.Remove(n.Name); err != nil {
				return modified, err
			}
			modified = true
		}
		return modified, nil
	})
}
