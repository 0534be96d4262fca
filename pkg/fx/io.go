package fx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

type graphJSON struct {
	Nodes []nodeJSON `json:"nodes"`
}

type nodeJSON struct {
	Name   string   `json:"name"`
	Op     Op       `json:"op"`
	Target Target   `json:"target,omitempty"`
	Args   []string `json:"args,omitempty"`
}

// MarshalJSON encodes the graph in the flat node-list format.
func (g *Graph) MarshalJSON() ([]byte, error) {
	out := graphJSON{Nodes: make([]nodeJSON, len(g.nodes))}
	for i, n := range g.nodes {
		out.Nodes[i] = nodeJSON{Name: n.Name, Op: n.Op, Target: n.Target, Args: n.Args}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the flat node-list format, replacing the graph's
// contents. Nodes are added in order, so arguments must refer to earlier
// nodes.
func (g *Graph) UnmarshalJSON(data []byte) error {
	var in graphJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	fresh := New()
	for _, n := range in.Nodes {
		if _, err := fresh.AddNode(Node{Name: n.Name, Op: n.Op, Target: n.Target, Args: n.Args}); err != nil {
			return fmt.Errorf("node %s: %w", n.Name, err)
		}
	}
	*g = *fresh
	return nil
}

// ReadJSON decodes a graph from r and validates it.
//
// ReadJSON returns an error if the JSON is malformed, a node name is
// duplicated, an argument refers to a later or unknown node, or the graph
// fails [Graph.Validate]. ReadJSON does not close r.
func ReadJSON(r io.Reader) (*Graph, error) {
	g := New()
	if err := json.NewDecoder(r).Decode(g); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// ImportJSON reads and validates the graph stored at path.
func ImportJSON(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSON(f)
}

// WriteJSON encodes g as indented JSON to w.
func WriteJSON(g *Graph, w io.Writer) error {
	data, err := Marshal(g)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// ExportJSON writes g to a JSON file at path.
func ExportJSON(g *Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSON(g, f)
}

// Marshal returns the indented JSON encoding of g, with a trailing newline.
// The encoding is deterministic, so it can be hashed for cache keys.
func Marshal(g *Graph) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(g); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return buf.Bytes(), nil
}
