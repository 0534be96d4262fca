// Package fx provides a small mutable operation graph and an interpreter for it.
//
// # Overview
//
// A [Graph] is an ordered list of [Node] values. Each node has an operation
// kind ([OpPlaceholder], [OpCallFunction], [OpOutput]), a target for calls,
// and arguments naming earlier nodes:
//
//	%x : placeholder
//	%add : call_function[target=add](args = (%x, %x))
//	%add_1 : call_function[target=add](args = (%add, %x))
//	%output : output(args = (%add_1))
//
// Graphs are built with [Graph.Placeholder], [Graph.Call] and [Graph.Output],
// and nodes returned by [Graph.Nodes] may be mutated in place, which is how
// rewrite passes retarget calls.
//
// # Execution
//
// [Interpreter] evaluates a graph on vectors of float64. Arithmetic is
// elementwise; a length-1 operand broadcasts against the other.
//
// # Serialization
//
// [ReadJSON] and [WriteJSON] use a flat format:
//
//	{
//	  "nodes": [
//	    {"name": "x", "op": "placeholder"},
//	    {"name": "add", "op": "call_function", "target": "add", "args": ["x", "x"]},
//	    {"name": "output", "op": "output", "args": ["add"]}
//	  ]
//	}
package fx
