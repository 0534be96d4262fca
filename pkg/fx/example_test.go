package fx_test

import (
	"fmt"

	"github.com/matzehuels/passforge/pkg/fx"
)

func ExampleGraph() {
	g := fx.New()
	x, _ := g.Placeholder("x")
	y, _ := g.Call(fx.TargetAdd, x, x)
	z, _ := g.Call(fx.TargetMul, y, x)
	_ = g.Output(z)

	fmt.Println(g)

	out, _ := fx.NewInterpreter(nil).Run(g, []float64{1, 2})
	fmt.Println(out)
	// Output:
	// %x : placeholder
	// %add : call_function[target=add](args = (%x, %x))
	// %mul : call_function[target=mul](args = (%add, %x))
	// %output : output(args = (%mul))
	// [[2 8]]
}
