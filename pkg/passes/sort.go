package passes

import "slices"

// TopologicalSort orders passes so that every constraint naming two of them
// holds, and reports whether the constraints contain a cycle.
//
// The order is the reversed post-order of a depth-first search that starts
// from the passes in reverse input order and follows each pass's successors in
// input order. Without constraints this is the input order. When a cycle is
// found the search carries on, so the result always holds every pass exactly
// once; the order is then best effort and some constraint is violated.
//
// Constraints naming passes that are not in the list are ignored. Passes are
// identified by name; if two passes share a name only the first takes part in
// constraints. The input slice is not modified.
func TopologicalSort[G any](ps []Pass[G], constraints []Constraint) ([]Pass[G], bool) {
	if len(constraints) == 0 {
		return slices.Clone(ps), false
	}

	index := make(map[string]int, len(ps))
	for i, p := range ps {
		if _, ok := index[p.Name()]; !ok {
			index[p.Name()] = i
		}
	}

	succ := make([][]int, len(ps))
	for _, c := range constraints {
		from, ok := index[c.Before]
		if !ok {
			continue
		}
		to, ok := index[c.After]
		if !ok || from == to {
			continue
		}
		succ[from] = append(succ[from], to)
	}
	for i := range succ {
		slices.Sort(succ[i])
		succ[i] = slices.Compact(succ[i])
	}

	const (
		white = iota
		gray
		black
	)

	color := make([]int, len(ps))
	post := make([]int, 0, len(ps))
	cyclic := false

	var visit func(u int)
	visit = func(u int) {
		color[u] = gray
		for _, v := range succ[u] {
			switch color[v] {
			case white:
				visit(v)
			case gray:
				cyclic = true
			}
		}
		color[u] = black
		post = append(post, u)
	}

	for u := len(ps) - 1; u >= 0; u-- {
		if color[u] == white {
			visit(u)
		}
	}

	out := make([]Pass[G], len(post))
	for i, u := range post {
		out[len(post)-1-i] = ps[u]
	}
	return out, cyclic
}
