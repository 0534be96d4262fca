package rewrite

import "github.com/matzehuels/passforge/pkg/fx"

// CallCounter tallies call_function nodes every time it observes a graph.
// Attach [CallCounter.Observe] with [passes.PostPassHook].
type CallCounter struct {
	Observations int // Number of graphs observed
	Total        int // Sum of call_function nodes over all observations
	Last         int // call_function nodes in the most recent graph
}

// Observe records the call_function nodes in g.
func (c *CallCounter) Observe(g *fx.Graph) error {
	c.Last = g.Count(fx.OpCallFunction)
	c.Total += c.Last
	c.Observations++
	return nil
}
