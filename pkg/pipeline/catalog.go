package pipeline

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/passforge/pkg/errors"
	"github.com/matzehuels/passforge/pkg/fx"
	"github.com/matzehuels/passforge/pkg/fx/rewrite"
	"github.com/matzehuels/passforge/pkg/observability"
	"github.com/matzehuels/passforge/pkg/passes"
)

// Pass kinds.
const (
	KindReplaceTarget       = "replace_target"
	KindDeadCodeElimination = "dead_code_elimination"
)

// Observer names.
const (
	ObserveCountCalls = "count_calls"
	ObserveLog        = "log"
)

// Check kinds.
const (
	CheckOnlyTargets = "only_targets"
	CheckNoTargets   = "no_targets"
	CheckValidGraph  = "valid_graph"
	CheckNumerics    = "numerics"
)

// Observers lists the observer names a pass may use.
var Observers = []string{ObserveCountCalls, ObserveLog}

// Entry describes one catalog item.
type Entry struct {
	Category    string `json:"category"` // "pass", "observer" or "check"
	Kind        string `json:"kind"`
	Description string `json:"description"`
}

// Catalog lists every pass kind, observer and check a config can name.
func Catalog() []Entry {
	return []Entry{
		{"pass", KindReplaceTarget, "retarget every call to `from` so it calls `to`"},
		{"pass", KindDeadCodeElimination, "remove calls whose results are unused"},
		{"observer", ObserveCountCalls, "count call_function nodes after the pass"},
		{"observer", ObserveLog, "log the graph after the pass at debug level"},
		{"check", CheckOnlyTargets, "fail on a call to a target outside `targets`"},
		{"check", CheckNoTargets, "fail on a call to any of `targets`"},
		{"check", CheckValidGraph, "fail if the graph is malformed"},
		{"check", CheckNumerics, "fail if outputs on `inputs` drift from the input graph beyond rtol/atol"},
	}
}

// Deps carries the collaborators Build wires into passes and checks.
// Zero values are replaced with defaults.
type Deps struct {
	Logger      *log.Logger
	Hooks       observability.PassHooks
	Interpreter *fx.Interpreter
	Counter     *rewrite.CallCounter
}

// Build creates a manager for cfg. input is the graph the pipeline will run
// over; numerics checks evaluate it once, here, as their reference. The
// config must already be valid.
func Build(cfg *Config, input *fx.Graph, deps Deps) (*passes.Manager[*fx.Graph], error) {
	pm, err := build(cfg, deps)
	if err != nil {
		return nil, err
	}
	if deps.Interpreter == nil {
		deps.Interpreter = fx.NewInterpreter(nil)
	}
	for i, spec := range cfg.Checks {
		check, err := buildCheck(spec, input, deps.Interpreter)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "check %d (%s)", i, spec.Kind)
		}
		if err := pm.AddCheck(check); err != nil {
			return nil, err
		}
	}
	return pm, nil
}

// build creates the manager with passes and constraints but no checks.
func build(cfg *Config, deps Deps) (*passes.Manager[*fx.Graph], error) {
	if deps.Logger == nil {
		deps.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if deps.Counter == nil {
		deps.Counter = &rewrite.CallCounter{}
	}

	ps := make([]passes.Pass[*fx.Graph], 0, len(cfg.Passes))
	for _, spec := range cfg.Passes {
		p, err := buildPass(spec, deps)
		if err != nil {
			return nil, err
		}
		ps = append(ps, p)
	}

	return passes.NewManager(ps, cfg.PassConstraints(), passes.Options{
		Steps:                  cfg.Steps,
		RunChecksAfterEachPass: cfg.RunChecksAfterEachPass,
		ExhaustSteps:           cfg.ExhaustSteps,
		StrictConstraints:      cfg.StrictConstraints,
		Logger:                 deps.Logger,
		Hooks:                  deps.Hooks,
	})
}

func buildPass(spec PassSpec, deps Deps) (passes.Pass[*fx.Graph], error) {
	var p passes.Pass[*fx.Graph]
	switch spec.Kind {
	case KindReplaceTarget:
		p = rewrite.ReplaceTarget(spec.Name, fx.Target(spec.From), fx.Target(spec.To))
	case KindDeadCodeElimination:
		p = rewrite.DeadCodeElimination(spec.Name)
	default:
		return nil, errors.New(errors.ErrCodeUnknownPass, "unknown pass kind %q", spec.Kind)
	}

	if spec.Repeat > 1 {
		p = passes.Loop(p, spec.Repeat)
	}

	var observers []passes.Observer[*fx.Graph]
	for _, name := range spec.Observe {
		switch name {
		case ObserveCountCalls:
			observers = append(observers, deps.Counter.Observe)
		case ObserveLog:
			observers = append(observers, passes.LogHook[*fx.Graph](deps.Logger.With("pass", spec.Name)))
		default:
			return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown observer %q", name)
		}
	}
	if len(observers) > 0 {
		p = passes.PostPassHook(p, observers...)
	}
	return p, nil
}

func buildCheck(spec CheckSpec, input *fx.Graph, in *fx.Interpreter) (passes.Check[*fx.Graph], error) {
	targets := make([]fx.Target, len(spec.Targets))
	for i, t := range spec.Targets {
		targets[i] = fx.Target(t)
	}

	switch spec.Kind {
	case CheckOnlyTargets:
		return rewrite.OnlyTargets(targets...), nil
	case CheckNoTargets:
		return rewrite.NoTargets(targets...), nil
	case CheckValidGraph:
		return rewrite.ValidGraph, nil
	case CheckNumerics:
		if input == nil {
			return nil, errors.New(errors.ErrCodeInvalidInput, "numerics needs an input graph")
		}
		return rewrite.Numerics(in, input, spec.Inputs, spec.RTol, spec.ATol)
	}
	return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown check kind %q", spec.Kind)
}
