package passes_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/passforge/pkg/fx"
	"github.com/matzehuels/passforge/pkg/passes"
)

func TestPostPassHookCountsNodes(t *testing.T) {
	count := 0
	calls := 0
	countCalls := func(g *fx.Graph) error {
		calls++
		count += g.Count(fx.OpCallFunction)
		return nil
	}

	addToMul := passes.PostPassHook(replaceTarget("add_to_mul", fx.TargetAdd, fx.TargetMul), countCalls)
	mulToDiv := passes.PostPassHook(replaceTarget("mul_to_div", fx.TargetMul, fx.TargetDiv), countCalls)
	pm := newManager(t,
		[]passes.Pass[*fx.Graph]{addToMul, mulToDiv},
		[]passes.Constraint{passes.ThisBeforeThat(addToMul, mulToDiv)},
		passes.Options{})

	if _, err := pm.Run(twoAdds(t)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if calls != 2 {
		t.Errorf("observer calls = %d, want 2", calls)
	}
	if count != 4 {
		t.Errorf("count = %d, want 4", count)
	}
}

func TestPostPassHookPreservesModified(t *testing.T) {
	tests := []struct {
		name string
		pass passes.Pass[*fx.Graph]
		want bool
	}{
		{
			name: "tagged unmodified",
			pass: passes.Rewrite("noop", func(*fx.Graph) (bool, error) { return false, nil }),
			want: false,
		},
		{
			name: "tagged modified",
			pass: passes.Rewrite("touch", func(*fx.Graph) (bool, error) { return true, nil }),
			want: true,
		},
		{
			name: "bare",
			pass: passes.InPlace("bare", func(*fx.Graph) error { return nil }),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen *fx.Graph
			hooked := passes.PostPassHook(tt.pass, func(g *fx.Graph) error { seen = g; return nil })
			if hooked.Name() != tt.pass.Name() {
				t.Errorf("Name() = %q, want %q", hooked.Name(), tt.pass.Name())
			}

			g := twoAdds(t)
			out, err := hooked.Apply(g)
			if err != nil {
				t.Fatal(err)
			}
			if out.IsBare() {
				t.Error("hooked output is bare, want tagged")
			}
			res := out.Result()
			if res.Modified != tt.want {
				t.Errorf("Modified = %v, want %v", res.Modified, tt.want)
			}
			if seen != g || res.Graph != g {
				t.Error("observer or result did not carry the pass's graph")
			}
		})
	}
}

func TestPostPassHookErrors(t *testing.T) {
	errObserver := errors.New("observer failed")
	errPass := errors.New("pass failed")

	later := false
	hooked := passes.PostPassHook(
		passes.InPlace("p", func(*fx.Graph) error { return nil }),
		func(*fx.Graph) error { return errObserver },
		func(*fx.Graph) error { later = true; return nil },
	)
	if _, err := hooked.Apply(twoAdds(t)); !errors.Is(err, errObserver) {
		t.Errorf("Apply() error = %v, want observer error", err)
	}
	if later {
		t.Error("observer after a failing one still ran")
	}

	observed := false
	failing := passes.PostPassHook(
		passes.InPlace("q", func(*fx.Graph) error { return errPass }),
		func(*fx.Graph) error { observed = true; return nil },
	)
	if _, err := failing.Apply(twoAdds(t)); !errors.Is(err, errPass) {
		t.Errorf("Apply() error = %v, want pass error", err)
	}
	if observed {
		t.Error("observer ran after a failing pass")
	}
}

func TestLogHook(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})

	hooked := passes.PostPassHook(replaceTarget("add_to_mul", fx.TargetAdd, fx.TargetMul), passes.LogHook[*fx.Graph](logger))
	if _, err := hooked.Apply(twoAdds(t)); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "graph after pass") || !strings.Contains(out, "target=mul") {
		t.Errorf("log output missing graph dump:\n%s", out)
	}
}

func TestLoop(t *testing.T) {
	inc := passes.New[int]("inc", func(g int) (passes.Output[int], error) { return passes.Tagged(g+1, true), nil })

	out, err := passes.Loop(inc, 3).Apply(0)
	if err != nil {
		t.Fatal(err)
	}
	if res := out.Result(); res.Graph != 3 || !res.Modified {
		t.Errorf("Loop(3) = %+v, want {3 true}", res)
	}

	out, err = passes.Loop(inc, 0).Apply(5)
	if err != nil {
		t.Fatal(err)
	}
	if res := out.Result(); res.Graph != 5 || res.Modified {
		t.Errorf("Loop(0) = %+v, want {5 false}", res)
	}

	out, err = passes.LoopWhile(inc, func(g int) bool { return g < 7 }).Apply(2)
	if err != nil {
		t.Fatal(err)
	}
	if res := out.Result(); res.Graph != 7 || !res.Modified {
		t.Errorf("LoopWhile(<7) = %+v, want {7 true}", res)
	}

	if name := passes.Loop(inc, 2).Name(); name != "inc" {
		t.Errorf("Name() = %q, want inc", name)
	}
}

func TestLoopBounded(t *testing.T) {
	calls := 0
	inc := passes.New[int]("inc", func(g int) (passes.Output[int], error) {
		calls++
		return passes.Tagged(g+1, true), nil
	})

	tests := []struct {
		name string
		pass passes.Pass[int]
	}{
		{"negative count", passes.Loop(inc, -1)},
		{"nil predicate", passes.LoopWhile(inc, nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls = 0
			done := make(chan passes.Result[int], 1)
			go func() {
				out, err := tt.pass.Apply(4)
				if err != nil {
					t.Error(err)
				}
				done <- out.Result()
			}()

			select {
			case res := <-done:
				if res.Graph != 4 || res.Modified {
					t.Errorf("Apply(4) = %+v, want {4 false}", res)
				}
				if calls != 0 {
					t.Errorf("calls = %d, want 0", calls)
				}
			case <-time.After(time.Second):
				t.Fatal("loop did not return")
			}
		})
	}
}

func TestLoopStopsOnError(t *testing.T) {
	errStop := errors.New("stop")
	calls := 0
	p := passes.New[int]("flaky", func(g int) (passes.Output[int], error) {
		calls++
		if calls == 2 {
			return passes.Output[int]{}, errStop
		}
		return passes.Tagged(g, true), nil
	})
	if _, err := passes.Loop(p, 5).Apply(0); !errors.Is(err, errStop) {
		t.Errorf("Apply() error = %v, want errStop", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestOutputNormalization(t *testing.T) {
	if res := passes.Bare(1).Result(); !res.Modified || res.Graph != 1 {
		t.Errorf("Bare(1).Result() = %+v, want {1 true}", res)
	}
	if res := passes.Tagged(2, false).Result(); res.Modified || res.Graph != 2 {
		t.Errorf("Tagged(2, false).Result() = %+v, want {2 false}", res)
	}
	if !passes.Bare("g").IsBare() || passes.Tagged("g", true).IsBare() {
		t.Error("IsBare() reports the wrong variant")
	}
}
