package pipeline

import (
	"bytes"
	"context"
	stderrors "errors"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/passforge/pkg/cache"
	"github.com/matzehuels/passforge/pkg/errors"
	"github.com/matzehuels/passforge/pkg/fx"
	"github.com/matzehuels/passforge/pkg/fx/rewrite"
	"github.com/matzehuels/passforge/pkg/trace"
)

func loadGraph(t *testing.T) *fx.Graph {
	t.Helper()
	g, err := fx.ImportJSON(filepath.Join("testdata", "two_adds.json"))
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func loadConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := LoadConfigFile(filepath.Join("testdata", "rewrite.toml"))
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func newTestRunner(t *testing.T, c cache.Cache) (*Runner, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})
	return NewRunner(c, nil, logger), &buf
}

func TestExecute(t *testing.T) {
	r, _ := newTestRunner(t, nil)
	g := loadGraph(t)
	before := g.String()

	res, err := r.Execute(context.Background(), loadConfig(t), g)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if !res.Modified {
		t.Error("Modified = false, want true")
	}
	if !slices.Equal(res.Order, []string{"add_to_mul", "mul_to_div"}) {
		t.Errorf("Order = %v", res.Order)
	}
	if err := rewrite.OnlyTargets(fx.TargetDiv)(res.Graph); err != nil {
		t.Errorf("result graph: %v", err)
	}
	if g.String() != before {
		t.Error("Execute() modified the input graph")
	}
	if res.RunID == "" || res.CacheHit {
		t.Errorf("RunID = %q, CacheHit = %v", res.RunID, res.CacheHit)
	}
	// add_to_mul runs twice (the second step reaches the fixed point) and
	// sees two calls each time.
	if res.Stats.Observations != 2 || res.Stats.Observed != 4 {
		t.Errorf("Stats = %+v, want 2 observations of 4 calls", res.Stats)
	}
	if res.Stats.CallsBefore != 2 || res.Stats.CallsAfter != 2 {
		t.Errorf("Stats = %+v", res.Stats)
	}
}

func TestExecuteCache(t *testing.T) {
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r, _ := newTestRunner(t, c)
	ctx := context.Background()

	first, err := r.Execute(ctx, loadConfig(t), loadGraph(t))
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.Execute(ctx, loadConfig(t), loadGraph(t))
	if err != nil {
		t.Fatal(err)
	}

	if first.CacheHit || !second.CacheHit {
		t.Errorf("CacheHit = %v, %v; want false, true", first.CacheHit, second.CacheHit)
	}
	if first.RunID == second.RunID {
		t.Error("cached result reused the run ID")
	}
	if second.Graph.String() != first.Graph.String() || !slices.Equal(second.Order, first.Order) {
		t.Error("cached result differs from the original")
	}

	cfg := loadConfig(t)
	cfg.Steps = 1
	third, err := r.Execute(ctx, cfg, loadGraph(t))
	if err != nil {
		t.Fatal(err)
	}
	if third.CacheHit {
		t.Error("changed config hit the cache")
	}
}

func TestExecuteCheckFailure(t *testing.T) {
	r, logs := newTestRunner(t, nil)
	cfg := loadConfig(t)
	cfg.Passes = cfg.Passes[1:] // drop mul_to_div

	_, err := r.Execute(context.Background(), cfg, loadGraph(t))
	if !errors.Is(err, errors.ErrCodeCheckFailed) {
		t.Fatalf("Execute() error = %v, want CHECK_FAILED", err)
	}
	var te *rewrite.TargetError
	if !stderrors.As(err, &te) || te.Target != fx.TargetMul {
		t.Errorf("error %v does not carry the TargetError", err)
	}
	if !bytes.Contains(logs.Bytes(), []byte("pipeline failed")) {
		t.Error("failure not logged")
	}
}

func TestExecuteNumericsDetectsRewrite(t *testing.T) {
	cb := trace.NewCallbacks(nil)
	allocs := 0
	cb.MemoryAllocation.AddCallback(func(trace.Handle) error { allocs++; return nil })

	r, _ := newTestRunner(t, nil)
	r.Callbacks = cb

	cfg := &Config{
		Passes: []PassSpec{{Name: "add_to_mul", Kind: KindReplaceTarget, From: "add", To: "mul"}},
		Checks: []CheckSpec{{Kind: CheckNumerics, Inputs: [][]float64{{1, 2, 3}}, RTol: 1e-9}},
	}
	_, err := r.Execute(context.Background(), cfg, loadGraph(t))
	var ne *rewrite.NumericsError
	if !stderrors.As(err, &ne) {
		t.Fatalf("Execute() error = %v, want NumericsError", err)
	}
	if allocs == 0 {
		t.Error("interpreter did not report allocations")
	}

	cfg.Passes[0].To = "add"
	if _, err := r.Execute(context.Background(), cfg, loadGraph(t)); err != nil {
		t.Errorf("identity rewrite failed numerics: %v", err)
	}
}

func TestExecuteInvalid(t *testing.T) {
	r, _ := newTestRunner(t, nil)
	cfg := loadConfig(t)
	cfg.Constraints = append(cfg.Constraints, ConstraintSpec{Before: "mul_to_div", After: "add_to_mul"})

	if _, err := r.Execute(context.Background(), cfg, loadGraph(t)); !errors.Is(err, errors.ErrCodeUnsatisfiableConstraints) {
		t.Errorf("cyclic config: err = %v, want UNSATISFIABLE_CONSTRAINTS", err)
	}

	cfg = loadConfig(t)
	cfg.Steps = -3
	if _, err := r.Execute(context.Background(), cfg, loadGraph(t)); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("negative steps: err = %v, want INVALID_CONFIG", err)
	}
}

func TestRunnerOrder(t *testing.T) {
	c, _ := cache.NewFileCache(t.TempDir())
	r, _ := newTestRunner(t, c)
	ctx := context.Background()

	for range 2 {
		order, err := r.Order(ctx, loadConfig(t))
		if err != nil {
			t.Fatalf("Order() error = %v", err)
		}
		if !slices.Equal(order, []string{"add_to_mul", "mul_to_div"}) {
			t.Errorf("Order() = %v", order)
		}
	}
}

// brokenCache misses every read and fails every write.
type brokenCache struct{ *cache.NullCache }

func (brokenCache) Set(context.Context, string, []byte, time.Duration) error {
	return cache.Retryable(cache.ErrBackend)
}

func TestRunnerOrderLogsCacheFailure(t *testing.T) {
	r, logs := newTestRunner(t, brokenCache{&cache.NullCache{}})

	order, err := r.Order(context.Background(), loadConfig(t))
	if err != nil {
		t.Fatalf("Order() error = %v", err)
	}
	if len(order) != 2 {
		t.Errorf("Order() = %v, want two passes", order)
	}
	if !strings.Contains(logs.String(), "cache store failed") {
		t.Errorf("log missing cache failure:\n%s", logs.String())
	}
}
