package fx

import (
	"fmt"
	"sync/atomic"

	"github.com/matzehuels/passforge/pkg/trace"
)

// Interpreter evaluates graphs on float64 vectors.
//
// When created with callbacks, each run reports a stream, one allocation and
// deallocation per intermediate buffer, and a completion event that is
// created, recorded, waited on and deleted. Buffers are released as soon as
// their last user has run.
//
// An Interpreter is safe for concurrent use.
type Interpreter struct {
	callbacks *trace.Callbacks
	handles   atomic.Uint64
}

// NewInterpreter creates an interpreter. cb may be nil.
func NewInterpreter(cb *trace.Callbacks) *Interpreter {
	return &Interpreter{callbacks: cb}
}

func (in *Interpreter) next() trace.Handle {
	return trace.Handle(in.handles.Add(1))
}

type buffer struct {
	handle trace.Handle
	value  []float64
	uses   int
}

// Run evaluates g with one input per placeholder, bound in graph order, and
// returns the values named by the output node.
func (in *Interpreter) Run(g *Graph, inputs ...[]float64) ([][]float64, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if want := g.Count(OpPlaceholder); len(inputs) != want {
		return nil, fmt.Errorf("graph takes %d inputs, got %d", want, len(inputs))
	}

	stream := in.next()
	if in.callbacks != nil {
		in.callbacks.StreamCreation.Fire(stream)
	}

	uses := make(map[string]int)
	for _, n := range g.nodes {
		for _, a := range n.Args {
			uses[a]++
		}
	}

	env := make(map[string]*buffer, len(g.nodes))
	defer func() {
		for _, b := range env {
			in.release(b)
		}
	}()

	var outputs [][]float64
	placeholder := 0
	for _, n := range g.nodes {
		switch n.Op {
		case OpPlaceholder:
			env[n.Name] = in.alloc(inputs[placeholder], uses[n.Name])
			placeholder++
		case OpCallFunction:
			lhs, rhs := env[n.Args[0]], env[n.Args[1]]
			v, err := eval(n.Target, lhs.value, rhs.value)
			if err != nil {
				return nil, fmt.Errorf("node %s: %w", n.Name, err)
			}
			in.consume(env, n.Args)
			env[n.Name] = in.alloc(v, uses[n.Name])
		case OpOutput:
			outputs = make([][]float64, len(n.Args))
			for i, a := range n.Args {
				outputs[i] = append([]float64(nil), env[a].value...)
			}
			in.consume(env, n.Args)
		}
	}

	if in.callbacks != nil {
		done := in.next()
		in.callbacks.EventCreation.Fire(done)
		in.callbacks.EventRecord.Fire(trace.StreamEvent{Event: done, Stream: stream})
		in.callbacks.EventWait.Fire(trace.StreamEvent{Event: done, Stream: stream})
		in.callbacks.EventDeletion.Fire(done)
	}
	return outputs, nil
}

func (in *Interpreter) alloc(v []float64, uses int) *buffer {
	b := &buffer{handle: in.next(), value: v, uses: uses}
	if in.callbacks != nil {
		in.callbacks.MemoryAllocation.Fire(b.handle)
	}
	return b
}

// consume drops one use of each argument and releases buffers with none left.
func (in *Interpreter) consume(env map[string]*buffer, args []string) {
	for _, a := range args {
		b := env[a]
		b.uses--
		if b.uses == 0 {
			in.release(b)
			delete(env, a)
		}
	}
}

func (in *Interpreter) release(b *buffer) {
	if in.callbacks != nil {
		in.callbacks.MemoryDeallocation.Fire(b.handle)
	}
}

func eval(t Target, a, b []float64) ([]float64, error) {
	n := len(a)
	switch {
	case len(a) == len(b):
	case len(a) == 1:
		n = len(b)
	case len(b) == 1:
	default:
		return nil, fmt.Errorf("%s: operand lengths %d and %d do not broadcast", t, len(a), len(b))
	}

	at := func(v []float64, i int) float64 {
		if len(v) == 1 {
			return v[0]
		}
		return v[i]
	}

	out := make([]float64, n)
	for i := range out {
		x, y := at(a, i), at(b, i)
		switch t {
		case TargetAdd:
			out[i] = x + y
		case TargetSub:
			out[i] = x - y
		case TargetMul:
			out[i] = x * y
		case TargetDiv:
			out[i] = x / y
		default:
			return nil, fmt.Errorf("unknown target %q", t)
		}
	}
	return out, nil
}
