package rewrite

import (
	"errors"
	"slices"
	"testing"

	"github.com/matzehuels/passforge/pkg/fx"
	"github.com/matzehuels/passforge/pkg/passes"
)

func twoAdds(t *testing.T) *fx.Graph {
	t.Helper()
	g := fx.New()
	x, _ := g.Placeholder("x")
	y, _ := g.Call(fx.TargetAdd, x, x)
	z, _ := g.Call(fx.TargetAdd, y, x)
	if err := g.Output(z); err != nil {
		t.Fatal(err)
	}
	return g
}

func apply(t *testing.T, p passes.Pass[*fx.Graph], g *fx.Graph) bool {
	t.Helper()
	out, err := p.Apply(g)
	if err != nil {
		t.Fatalf("%s: Apply() error = %v", p.Name(), err)
	}
	return out.Result().Modified
}

func TestReplaceTarget(t *testing.T) {
	g := twoAdds(t)
	p := ReplaceTarget("add_to_mul", fx.TargetAdd, fx.TargetMul)

	if p.Name() != "add_to_mul" {
		t.Errorf("Name() = %q", p.Name())
	}
	if !apply(t, p, g) {
		t.Error("first Apply() reported no modification")
	}
	if apply(t, p, g) {
		t.Error("second Apply() reported a modification")
	}
	if g.Count(fx.OpCallFunction) != 2 {
		t.Fatalf("call count changed to %d", g.Count(fx.OpCallFunction))
	}
	if err := OnlyTargets(fx.TargetMul)(g); err != nil {
		t.Errorf("OnlyTargets(mul) = %v after rewrite", err)
	}
}

func TestDeadCodeElimination(t *testing.T) {
	g := fx.New()
	g.Placeholder("x")
	g.Placeholder("unused")
	g.Call(fx.TargetAdd, "x", "x")   // add: live
	g.Call(fx.TargetMul, "x", "x")   // mul: dead
	g.Call(fx.TargetSub, "mul", "x") // sub: dead, keeps mul alive until removed
	g.Call(fx.TargetDiv, "add", "x") // div: live
	g.Output("div")

	p := DeadCodeElimination("dce")
	if !apply(t, p, g) {
		t.Fatal("Apply() reported no modification")
	}

	var got []string
	for _, n := range g.Nodes() {
		got = append(got, n.Name)
	}
	want := []string{"x", "unused", "add", "div", "output"}
	if !slices.Equal(got, want) {
		t.Errorf("nodes = %v, want %v", got, want)
	}
	if apply(t, p, g) {
		t.Error("second Apply() reported a modification")
	}
	if err := ValidGraph(g); err != nil {
		t.Errorf("ValidGraph() = %v", err)
	}
}

func TestTargetChecks(t *testing.T) {
	g := twoAdds(t)

	tests := []struct {
		name    string
		check   passes.Check[*fx.Graph]
		wantErr bool
	}{
		{"only allowed", OnlyTargets(fx.TargetAdd), false},
		{"only disallowed", OnlyTargets(fx.TargetDiv, fx.TargetMul), true},
		{"no targets clean", NoTargets(fx.TargetMul), false},
		{"no targets hit", NoTargets(fx.TargetSub, fx.TargetAdd), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.check(g)
			if (err != nil) != tt.wantErr {
				t.Fatalf("check() error = %v, wantErr %v", err, tt.wantErr)
			}
			var te *TargetError
			if err != nil && (!errors.As(err, &te) || te.Node != "add" || te.Target != fx.TargetAdd) {
				t.Errorf("check() error = %#v, want TargetError for add", err)
			}
		})
	}
}

func TestValidGraphFailure(t *testing.T) {
	g := fx.New()
	g.Placeholder("x")
	if err := ValidGraph(g); err == nil {
		t.Error("ValidGraph() = nil for a graph without output")
	}
}

func TestNumerics(t *testing.T) {
	in := fx.NewInterpreter(nil)
	ref := twoAdds(t)
	inputs := [][]float64{{1, 2, 3}}

	check, err := Numerics(in, ref, inputs, 1e-6, 0)
	if err != nil {
		t.Fatalf("Numerics() error = %v", err)
	}

	g := ref.Clone()
	if err := check(g); err != nil {
		t.Errorf("check(clone) = %v", err)
	}

	// x*x*x differs from 3x at x = 1.
	apply(t, ReplaceTarget("add_to_mul", fx.TargetAdd, fx.TargetMul), g)
	err = check(g)
	var ne *NumericsError
	if !errors.As(err, &ne) {
		t.Fatalf("check(rewritten) = %v, want NumericsError", err)
	}
	if ne.Index != 0 || ne.Got != 1 || ne.Want != 3 {
		t.Errorf("NumericsError = %+v, want index 0 got 1 want 3", ne)
	}

	// Mutating the reference later does not change the expectation.
	apply(t, ReplaceTarget("add_to_sub", fx.TargetAdd, fx.TargetSub), ref)
	if err := check(ref); err == nil {
		t.Error("check(mutated reference) = nil, want mismatch")
	}
}

func TestNumericsTolerance(t *testing.T) {
	tests := []struct {
		got, want, rtol, atol float64
		ok                    bool
	}{
		{1.0, 1.0, 0, 0, true},
		{1.05, 1.0, 0.1, 0, true},
		{1.2, 1.0, 0.1, 0, false},
		{0.001, 0, 0, 0.01, true},
		{0.1, 0, 0.5, 0, false},
	}
	for _, tt := range tests {
		if got := within(tt.got, tt.want, tt.rtol, tt.atol); got != tt.ok {
			t.Errorf("within(%g, %g, %g, %g) = %v, want %v", tt.got, tt.want, tt.rtol, tt.atol, got, tt.ok)
		}
	}
}

func TestNumericsErrors(t *testing.T) {
	in := fx.NewInterpreter(nil)
	if _, err := Numerics(in, twoAdds(t), [][]float64{{1}}, -1, 0); err == nil {
		t.Error("Numerics() with negative rtol should fail")
	}
	if _, err := Numerics(in, twoAdds(t), nil, 0, 0); err == nil {
		t.Error("Numerics() with missing inputs should fail")
	}
}

func TestCallCounterWithManager(t *testing.T) {
	var counter CallCounter
	addToMul := passes.PostPassHook(ReplaceTarget("add_to_mul", fx.TargetAdd, fx.TargetMul), counter.Observe)
	mulToDiv := passes.PostPassHook(ReplaceTarget("mul_to_div", fx.TargetMul, fx.TargetDiv), counter.Observe)

	pm, err := passes.NewManager(
		[]passes.Pass[*fx.Graph]{addToMul, mulToDiv},
		[]passes.Constraint{passes.ThisBeforeThat(addToMul, mulToDiv)},
		passes.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := pm.Run(twoAdds(t)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if counter.Total != 4 || counter.Observations != 2 || counter.Last != 2 {
		t.Errorf("counter = %+v, want Total 4, Observations 2, Last 2", counter)
	}
}
