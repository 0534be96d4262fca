package fx

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	perrors "github.com/matzehuels/passforge/pkg/errors"
)

var (
	// ErrDuplicateNode is returned by [Graph.AddNode] when a node with the
	// same name already exists.
	ErrDuplicateNode = errors.New("duplicate node name")

	// ErrUnknownArg is returned by [Graph.AddNode] when an argument does not
	// name an earlier node.
	ErrUnknownArg = errors.New("unknown argument")

	// ErrUnknownNode is returned by [Graph.Remove] for a missing node.
	ErrUnknownNode = errors.New("unknown node")

	// ErrNodeInUse is returned by [Graph.Remove] when other nodes still use
	// the node.
	ErrNodeInUse = errors.New("node still has users")
)

// Op is a node's operation kind.
type Op string

const (
	OpPlaceholder  Op = "placeholder"
	OpCallFunction Op = "call_function"
	OpOutput       Op = "output"
)

// Target names the function a call_function node applies.
type Target string

const (
	TargetAdd Target = "add"
	TargetSub Target = "sub"
	TargetMul Target = "mul"
	TargetDiv Target = "div"
)

// Targets lists every target the interpreter can evaluate.
var Targets = []Target{TargetAdd, TargetSub, TargetMul, TargetDiv}

// Valid reports whether t is a known target.
func (t Target) Valid() bool { return slices.Contains(Targets, t) }

// Node is one operation in a graph.
type Node struct {
	Name   string   // Unique within the graph
	Op     Op       // Operation kind
	Target Target   // Function applied by call_function nodes
	Args   []string // Names of earlier nodes
}

func (n *Node) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%%%s : %s", n.Name, n.Op)
	if n.Op == OpCallFunction {
		fmt.Fprintf(&b, "[target=%s]", n.Target)
	}
	if len(n.Args) > 0 {
		args := make([]string, len(n.Args))
		for i, a := range n.Args {
			args[i] = "%" + a
		}
		fmt.Fprintf(&b, "(args = (%s))", strings.Join(args, ", "))
	}
	return b.String()
}

// Graph is an ordered list of nodes with unique names.
//
// The zero value is not usable; create graphs with [New].
// Graph is not safe for concurrent use.
type Graph struct {
	nodes  []*Node
	byName map[string]*Node
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{byName: make(map[string]*Node)}
}

// AddNode appends a node. Arguments must name nodes already in the graph.
func (g *Graph) AddNode(n Node) (*Node, error) {
	if err := perrors.ValidateNodeName(n.Name); err != nil {
		return nil, err
	}
	if _, ok := g.byName[n.Name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateNode, n.Name)
	}
	for _, a := range n.Args {
		if _, ok := g.byName[a]; !ok {
			return nil, fmt.Errorf("%w: %s (used by %s)", ErrUnknownArg, a, n.Name)
		}
	}
	node := &Node{Name: n.Name, Op: n.Op, Target: n.Target, Args: slices.Clone(n.Args)}
	g.nodes = append(g.nodes, node)
	g.byName[node.Name] = node
	return node, nil
}

// Placeholder appends an input node and returns its name.
func (g *Graph) Placeholder(name string) (string, error) {
	n, err := g.AddNode(Node{Name: name, Op: OpPlaceholder})
	if err != nil {
		return "", err
	}
	return n.Name, nil
}

// Call appends a call_function node. The node is named after its target,
// with a numeric suffix when that name is taken ("add", "add_1", ...).
func (g *Graph) Call(target Target, args ...string) (string, error) {
	n, err := g.AddNode(Node{Name: g.uniqueName(string(target)), Op: OpCallFunction, Target: target, Args: args})
	if err != nil {
		return "", err
	}
	return n.Name, nil
}

// Output appends the output node.
func (g *Graph) Output(args ...string) error {
	_, err := g.AddNode(Node{Name: g.uniqueName("output"), Op: OpOutput, Args: args})
	return err
}

func (g *Graph) uniqueName(base string) string {
	if _, ok := g.byName[base]; !ok {
		return base
	}
	for i := 1; ; i++ {
		name := fmt.Sprintf("%s_%d", base, i)
		if _, ok := g.byName[name]; !ok {
			return name
		}
	}
}

// Nodes returns the nodes in order. The slice is a copy; the nodes are not,
// so callers may mutate their Op, Target and Args in place. Renaming a node
// in place is not supported.
func (g *Graph) Nodes() []*Node { return slices.Clone(g.nodes) }

// Node returns the node with the given name.
func (g *Graph) Node(name string) (*Node, bool) {
	n, ok := g.byName[name]
	return n, ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Count returns the number of nodes with the given op.
func (g *Graph) Count(op Op) int {
	count := 0
	for _, n := range g.nodes {
		if n.Op == op {
			count++
		}
	}
	return count
}

// Users returns the nodes that take name as an argument, in graph order.
func (g *Graph) Users(name string) []*Node {
	var out []*Node
	for _, n := range g.nodes {
		if slices.Contains(n.Args, name) {
			out = append(out, n)
		}
	}
	return out
}

// Remove deletes a node that has no users.
func (g *Graph) Remove(name string) error {
	if _, ok := g.byName[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, name)
	}
	if users := g.Users(name); len(users) > 0 {
		return fmt.Errorf("%w: %s is used by %s", ErrNodeInUse, name, users[0].Name)
	}
	g.nodes = slices.DeleteFunc(g.nodes, func(n *Node) bool { return n.Name == name })
	delete(g.byName, name)
	return nil
}

// Validate checks that the graph is well formed: every call has a known
// target, arguments refer to earlier nodes, and there is exactly one output
// node, in last position.
func (g *Graph) Validate() error {
	seen := make(map[string]bool, len(g.nodes))
	outputs := 0
	for i, n := range g.nodes {
		for _, a := range n.Args {
			if !seen[a] {
				return perrors.New(perrors.ErrCodeInvalidGraph, "node %s uses %s before it is defined", n.Name, a)
			}
		}
		switch n.Op {
		case OpPlaceholder:
			if len(n.Args) > 0 {
				return perrors.New(perrors.ErrCodeInvalidGraph, "placeholder %s cannot take arguments", n.Name)
			}
		case OpCallFunction:
			if !n.Target.Valid() {
				return perrors.New(perrors.ErrCodeInvalidGraph, "node %s has unknown target %q", n.Name, n.Target)
			}
			if len(n.Args) != 2 {
				return perrors.New(perrors.ErrCodeInvalidGraph, "node %s: %s takes 2 arguments, got %d", n.Name, n.Target, len(n.Args))
			}
		case OpOutput:
			outputs++
			if i != len(g.nodes)-1 {
				return perrors.New(perrors.ErrCodeInvalidGraph, "output node %s must be last", n.Name)
			}
		default:
			return perrors.New(perrors.ErrCodeInvalidGraph, "node %s has unknown op %q", n.Name, n.Op)
		}
		seen[n.Name] = true
	}
	if outputs != 1 {
		return perrors.New(perrors.ErrCodeInvalidGraph, "graph must have exactly one output node, found %d", outputs)
	}
	return nil
}

// Clone returns a deep copy of the graph.
func (g *Graph) Clone() *Graph {
	out := New()
	for _, n := range g.nodes {
		node := &Node{Name: n.Name, Op: n.Op, Target: n.Target, Args: slices.Clone(n.Args)}
		out.nodes = append(out.nodes, node)
		out.byName[node.Name] = node
	}
	return out
}

// String lists the nodes one per line.
func (g *Graph) String() string {
	lines := make([]string, len(g.nodes))
	for i, n := range g.nodes {
		lines[i] = n.String()
	}
	return strings.Join(lines, "\n")
}
