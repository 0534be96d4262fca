// Package passes schedules and runs graph-transformation passes.
//
// # Overview
//
// A [Pass] is a named transformation over a graph of type G. The package does
// not interpret the graph: passes receive it, mutate or replace it, and report
// whether anything changed. A [Manager] holds an ordered list of passes,
// ordering [Constraint] values between them, and check functions that
// validate the graph. Calling [Manager.Run] resolves the order once, applies
// the passes until a fixed point or the step cap, and runs the checks.
//
// # Results
//
// A pass returns an [Output], which is either a bare graph ([Bare]) or a graph
// tagged with a modified flag ([Tagged]). Outputs are normalized into a
// [Result] exactly once; a bare graph counts as modified because the manager
// cannot prove otherwise.
//
// # Ordering
//
// [TopologicalSort] orders passes so every constraint holds. Constraints that
// name passes missing from the list are ignored. When the constraints contain
// a cycle the sort still returns every pass, in a deterministic best-effort
// order, and reports the cycle; [Manager.ValidateConstraints] turns that into
// an UNSATISFIABLE_CONSTRAINTS error.
//
// # Wrappers
//
// [PostPassHook] runs observers after a pass, [Loop] and [LoopWhile] repeat a
// pass, and [InPlace] and [Rewrite] adapt plain mutating functions.
//
// # Usage
//
//	addToMul := passes.Rewrite("add_to_mul", func(g *fx.Graph) (bool, error) { ... })
//	mulToDiv := passes.Rewrite("mul_to_div", func(g *fx.Graph) (bool, error) { ... })
//
//	pm, err := passes.NewManager(
//	    []passes.Pass[*fx.Graph]{mulToDiv, addToMul},
//	    []passes.Constraint{passes.ThisBeforeThat(addToMul, mulToDiv)},
//	    passes.Options{Steps: 5},
//	)
//	if err != nil {
//	    return err
//	}
//	res, err := pm.Run(g)
//
// A Manager is not safe for concurrent use.
package passes
