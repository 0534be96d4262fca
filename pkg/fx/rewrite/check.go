package rewrite

import (
	"fmt"
	"math"
	"slices"

	"github.com/matzehuels/passforge/pkg/fx"
	"github.com/matzehuels/passforge/pkg/passes"
)

// TargetError reports a call whose target a check does not allow.
type TargetError struct {
	Node   string
	Target fx.Target
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("node %s calls disallowed target %s", e.Node, e.Target)
}

// OnlyTargets returns a check that fails on any call to a target outside
// allowed.
func OnlyTargets(allowed ...fx.Target) passes.Check[*fx.Graph] {
	return func(g *fx.Graph) error {
		for _, n := range g.Nodes() {
			if n.Op == fx.OpCallFunction && !slices.Contains(allowed, n.Target) {
				return &TargetError{Node: n.Name, Target: n.Target}
			}
		}
		return nil
	}
}

// NoTargets returns a check that fails on any call to one of denied.
func NoTargets(denied ...fx.Target) passes.Check[*fx.Graph] {
	return func(g *fx.Graph) error {
		for _, n := range g.Nodes() {
			if n.Op == fx.OpCallFunction && slices.Contains(denied, n.Target) {
				return &TargetError{Node: n.Name, Target: n.Target}
			}
		}
		return nil
	}
}

// ValidGraph is a check that runs [fx.Graph.Validate].
func ValidGraph(g *fx.Graph) error { return g.Validate() }

// NumericsError reports an output element that drifted from the reference.
type NumericsError struct {
	Output, Index int
	Got, Want     float64
}

func (e *NumericsError) Error() string {
	return fmt.Sprintf("output %d[%d] = %g, want %g", e.Output, e.Index, e.Got, e.Want)
}

// Numerics returns a check that evaluates the graph on inputs and compares
// the result with the outputs of reference on the same inputs. Two values
// match when |got - want| <= atol + rtol*|want|. The reference outputs are
// computed once, here, so reference may be mutated afterwards.
func Numerics(in *fx.Interpreter, reference *fx.Graph, inputs [][]float64, rtol, atol float64) (passes.Check[*fx.Graph], error) {
	if rtol < 0 || atol < 0 {
		return nil, fmt.Errorf("tolerances must not be negative: rtol=%g atol=%g", rtol, atol)
	}
	want, err := in.Run(reference, inputs...)
	if err != nil {
		return nil, fmt.Errorf("evaluate reference graph: %w", err)
	}

	return func(g *fx.Graph) error {
		got, err := in.Run(g, inputs...)
		if err != nil {
			return fmt.Errorf("evaluate graph: %w", err)
		}
		if len(got) != len(want) {
			return fmt.Errorf("graph returns %d outputs, want %d", len(got), len(want))
		}
		for i := range want {
			if len(got[i]) != len(want[i]) {
				return fmt.Errorf("output %d has %d elements, want %d", i, len(got[i]), len(want[i]))
			}
			for j, w := range want[i] {
				if !within(got[i][j], w, rtol, atol) {
					return &NumericsError{Output: i, Index: j, Got: got[i][j], Want: w}
				}
			}
		}
		return nil
	}, nil
}

func within(got, want, rtol, atol float64) bool {
	if math.IsNaN(got) || math.IsNaN(want) {
		return math.IsNaN(got) && math.IsNaN(want)
	}
	if math.IsInf(want, 0) {
		return got == want
	}
	return math.Abs(got-want) <= atol+rtol*math.Abs(want)
}
