package passes

// Result is the outcome of applying one pass, or a whole manager run.
type Result[G any] struct {
	Graph    G    // The possibly mutated or replaced graph
	Modified bool // Whether the graph's observable state changed
}

// Output is what a pass returns: either a bare graph or a graph tagged with an
// explicit modified flag. The zero value is a bare zero graph.
type Output[G any] struct {
	graph    G
	tagged   bool
	modified bool
}

// Bare returns an output carrying only a graph. It normalizes to a modified
// result.
func Bare[G any](g G) Output[G] {
	return Output[G]{graph: g}
}

// Tagged returns an output carrying a graph and its modified flag.
func Tagged[G any](g G, modified bool) Output[G] {
	return Output[G]{graph: g, tagged: true, modified: modified}
}

// IsBare reports whether the output was created with [Bare].
func (o Output[G]) IsBare() bool { return !o.tagged }

// Result normalizes the output.
func (o Output[G]) Result() Result[G] {
	if !o.tagged {
		return Result[G]{Graph: o.graph, Modified: true}
	}
	return Result[G]{Graph: o.graph, Modified: o.modified}
}

// Pass is a named transformation over a graph of type G.
//
// The name identifies the pass: constraints refer to passes by name and a
// manager rejects two passes with the same name.
type Pass[G any] interface {
	Name() string
	Apply(g G) (Output[G], error)
}

// Func is the signature of a pass body.
type Func[G any] func(g G) (Output[G], error)

type funcPass[G any] struct {
	name string
	fn   Func[G]
}

func (p *funcPass[G]) Name() string                 { return p.name }
func (p *funcPass[G]) Apply(g G) (Output[G], error) { return p.fn(g) }

// New returns a pass that runs fn.
func New[G any](name string, fn Func[G]) Pass[G] {
	return &funcPass[G]{name: name, fn: fn}
}

// Rewrite returns a pass that mutates the graph in place and reports whether
// it changed anything.
func Rewrite[G any](name string, fn func(g G) (bool, error)) Pass[G] {
	return New[G](name, func(g G) (Output[G], error) {
		modified, err := fn(g)
		if err != nil {
			return Output[G]{}, err
		}
		return Tagged(g, modified), nil
	})
}

// InPlace returns a pass that mutates the graph in place without reporting
// modification. The pass always counts as modified.
func InPlace[G any](name string, fn func(g G) error) Pass[G] {
	return New[G](name, func(g G) (Output[G], error) {
		if err := fn(g); err != nil {
			return Output[G]{}, err
		}
		return Bare(g), nil
	})
}

// apply runs p and normalizes its output.
func apply[G any](p Pass[G], g G) (Result[G], error) {
	out, err := p.Apply(g)
	if err != nil {
		return Result[G]{Graph: g}, err
	}
	return out.Result(), nil
}

func names[G any](ps []Pass[G]) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name()
	}
	return out
}
