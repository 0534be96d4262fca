package passes

// Constraint requires the pass named Before to run before the pass named After.
type Constraint struct {
	Before string
	After  string
}

// ThisBeforeThat returns a constraint placing this before that.
func ThisBeforeThat[G any](this, that Pass[G]) Constraint {
	return Constraint{Before: this.Name(), After: that.Name()}
}

// TheseBeforeThose returns one constraint for every pair in these × those.
func TheseBeforeThose[G any](these, those []Pass[G]) []Constraint {
	out := make([]Constraint, 0, len(these)*len(those))
	for _, a := range these {
		for _, b := range those {
			out = append(out, ThisBeforeThat(a, b))
		}
	}
	return out
}

// Holds reports whether the constraint is satisfied by an ordering that
// places Before at index before and After at index after. A negative index
// marks a pass absent from the ordering; absence satisfies the constraint, as
// does a constraint between a pass and itself.
func (c Constraint) Holds(before, after int) bool {
	if before < 0 || after < 0 || c.Before == c.After {
		return true
	}
	return before < after
}

// SatisfiedBy reports whether the constraint holds for the given order of
// pass names.
func (c Constraint) SatisfiedBy(order []string) bool {
	return c.Holds(indexOf(order, c.Before), indexOf(order, c.After))
}

func (c Constraint) String() string {
	return c.Before + " -> " + c.After
}

func indexOf(order []string, name string) int {
	for i, n := range order {
		if n == name {
			return i
		}
	}
	return -1
}
