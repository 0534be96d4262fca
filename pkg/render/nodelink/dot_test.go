package nodelink

import (
	"strings"
	"testing"

	"github.com/matzehuels/passforge/pkg/fx"
	"github.com/matzehuels/passforge/pkg/passes"
)

func TestConstraintDOT(t *testing.T) {
	ps := []string{"p0", "p1", "p2"}
	cs := []passes.Constraint{
		{Before: "p2", After: "p0"},
		{Before: "p1", After: "ghost"},
		{Before: "p1", After: "p1"},
	}

	dot := ConstraintDOT(ps, cs, []string{"p1", "p2", "p0"}, Options{Detailed: true})

	for _, want := range []string{
		"digraph passes {",
		`"p2" -> "p0";`,
		`"p1" -> "ghost";`,
		`"ghost" [label="ghost", style="rounded,filled,dashed"`,
		`"p0" [label="p0\n#3"];`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
	if strings.Contains(dot, `"p1" -> "p1"`) {
		t.Error("self constraint drawn")
	}
}

func TestConstraintDOTMarksViolations(t *testing.T) {
	cs := []passes.Constraint{{Before: "a", After: "b"}}

	dot := ConstraintDOT([]string{"a", "b"}, cs, []string{"b", "a"}, Options{})
	if !strings.Contains(dot, `"a" -> "b" [color=red];`) {
		t.Errorf("violated constraint not highlighted:\n%s", dot)
	}

	dot = ConstraintDOT([]string{"a", "b"}, cs, []string{"a", "b"}, Options{})
	if strings.Contains(dot, "color=red") {
		t.Errorf("satisfied constraint highlighted:\n%s", dot)
	}
}

func TestGraphDOT(t *testing.T) {
	g := fx.New()
	g.Placeholder("x")
	g.Call(fx.TargetAdd, "x", "x")
	g.Output("add")

	dot := GraphDOT(g, Options{Detailed: true})
	for _, want := range []string{
		"digraph fx {",
		`"x" [label="x\nplaceholder", shape=ellipse];`,
		`"add" [label="add\nadd"];`,
		`"output" [label="output\noutput", shape=doubleoctagon];`,
		`"add" -> "output";`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
	if n := strings.Count(dot, `"x" -> "add";`); n != 1 {
		t.Errorf("x -> add drawn %d times, want once", n)
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="62pt" height="116pt" viewBox="0.00 0.00 62.00 116.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	out := string(normalizeViewBox(in))
	if !strings.Contains(out, `viewBox="0 0 62.00 116.00" width="62" height="116"`) {
		t.Errorf("normalizeViewBox() = %s", out)
	}

	plain := []byte(`<svg><g/></svg>`)
	if string(normalizeViewBox(plain)) != string(plain) {
		t.Error("svg without viewBox changed")
	}
}
