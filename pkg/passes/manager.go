package passes

import (
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/passforge/pkg/errors"
	"github.com/matzehuels/passforge/pkg/observability"
)

// DefaultSteps is the number of sweeps over the passes when Options.Steps is zero.
const DefaultSteps = 1

// Options configures a Manager.
type Options struct {
	// Steps caps the number of sweeps over the pass list. Zero means DefaultSteps.
	Steps int

	// RunChecksAfterEachPass runs every check after every pass application,
	// in addition to the final sweep.
	RunChecksAfterEachPass bool

	// ExhaustSteps runs all Steps sweeps even when a sweep modifies nothing.
	// By default the manager stops at the first unmodified sweep.
	ExhaustSteps bool

	// StrictConstraints rejects constraints that name a pass missing from the
	// pass list. By default such constraints are ignored.
	StrictConstraints bool

	// Logger receives debug output. Nil discards it.
	Logger *log.Logger

	// Hooks receives pass and check events. Nil means no hooks.
	Hooks observability.PassHooks
}

// Manager applies an ordered list of passes to a graph.
//
// The manager resolves the pass order from its constraints once and caches
// it; adding a pass or a constraint invalidates the cache. Apart from that
// cache a Manager keeps no state between runs.
type Manager[G any] struct {
	passes      []Pass[G]
	constraints []Constraint
	checks      []Check[G]
	opts        Options

	order     []Pass[G]
	validated bool
}

// NewManager creates a manager for the given passes and constraints.
// It returns an error for duplicate pass names or a negative step count.
// Constraints are not validated until the first run or an explicit
// [Manager.ValidateConstraints].
func NewManager[G any](ps []Pass[G], constraints []Constraint, opts Options) (*Manager[G], error) {
	if opts.Steps < 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "steps must be positive, got %d", opts.Steps)
	}
	if opts.Steps == 0 {
		opts.Steps = DefaultSteps
	}
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if opts.Hooks == nil {
		opts.Hooks = observability.NoopPassHooks{}
	}

	m := &Manager[G]{
		constraints: slices.Clone(constraints),
		opts:        opts,
	}
	for _, p := range ps {
		if err := m.AddPass(p); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Passes returns the declared pass list.
func (m *Manager[G]) Passes() []Pass[G] { return slices.Clone(m.passes) }

// Constraints returns the registered constraints.
func (m *Manager[G]) Constraints() []Constraint { return slices.Clone(m.constraints) }

// Steps returns the configured step cap.
func (m *Manager[G]) Steps() int { return m.opts.Steps }

// AddPass appends a pass. Names must be unique within a manager.
func (m *Manager[G]) AddPass(p Pass[G]) error {
	if p == nil {
		return errors.New(errors.ErrCodeInvalidInput, "pass is nil")
	}
	for _, q := range m.passes {
		if q.Name() == p.Name() {
			return errors.New(errors.ErrCodeDuplicatePass, "pass %q already registered", p.Name())
		}
	}
	m.passes = append(m.passes, p)
	m.invalidate()
	return nil
}

// AddConstraint appends a constraint.
func (m *Manager[G]) AddConstraint(c Constraint) {
	m.constraints = append(m.constraints, c)
	m.invalidate()
}

// AddCheck registers a check function. fn must take exactly one argument
// that accepts a G and return nothing or an error; any other signature is
// rejected with a SIGNATURE_MISMATCH error and nothing is registered.
func (m *Manager[G]) AddCheck(fn any) error {
	c, err := checkOf[G](fn)
	if err != nil {
		return err
	}
	m.checks = append(m.checks, c)
	return nil
}

func (m *Manager[G]) invalidate() {
	m.validated = false
	m.order = nil
}

// ValidateConstraints resolves the pass order and caches it. It fails with
// UNSATISFIABLE_CONSTRAINTS when the constraints contain a cycle, and with
// UNKNOWN_PASS for a constraint naming a missing pass when StrictConstraints
// is set. Repeated calls with unchanged state return the same result.
func (m *Manager[G]) ValidateConstraints() error {
	if m.validated {
		return nil
	}

	declared := names(m.passes)
	for _, c := range m.constraints {
		if indexOf(declared, c.Before) >= 0 && indexOf(declared, c.After) >= 0 {
			continue
		}
		if m.opts.StrictConstraints {
			return errors.New(errors.ErrCodeUnknownPass, "constraint %s names a pass that is not registered", c)
		}
		m.opts.Logger.Debug("ignoring constraint on unregistered pass", "constraint", c.String())
	}

	order, cyclic := TopologicalSort(m.passes, m.constraints)
	if cyclic {
		return errors.New(errors.ErrCodeUnsatisfiableConstraints,
			"no valid pass ordering exists: constraints form a cycle among %v", declared)
	}

	m.order = order
	m.validated = true
	m.opts.Logger.Debug("resolved pass order", "order", names(order))
	return nil
}

// Order returns the resolved pass order, validating first if needed.
func (m *Manager[G]) Order() ([]Pass[G], error) {
	if err := m.ValidateConstraints(); err != nil {
		return nil, err
	}
	return slices.Clone(m.order), nil
}

// ValidateSchedule checks the declared pass list, as given, against every
// constraint. It does not reorder anything; see [Manager.SolveConstraints].
func (m *Manager[G]) ValidateSchedule() error {
	declared := names(m.passes)
	for _, c := range m.constraints {
		before, after := indexOf(declared, c.Before), indexOf(declared, c.After)
		if !c.Holds(before, after) {
			return errors.New(errors.ErrCodeScheduleViolated,
				"pass schedule constraint violated: expected %q before %q but found %q at index %d and %q at index %d",
				c.Before, c.After, c.Before, before, c.After, after)
		}
	}
	return nil
}

// SolveConstraints validates the constraints and rewrites the declared pass
// list into the resolved order.
func (m *Manager[G]) SolveConstraints() error {
	if err := m.ValidateConstraints(); err != nil {
		return err
	}
	m.passes = slices.Clone(m.order)
	return nil
}

// Run applies the passes to g.
//
// Each step applies every pass once in resolved order, threading the graph
// from one pass to the next. Steps repeat until one modifies nothing or the
// step cap is reached. The checks then run once more against the final graph.
//
// A failing pass aborts the run with PASS_FAILED; a failing check aborts it
// with CHECK_FAILED. In both cases the original error stays reachable with
// errors.Is and errors.As, and the returned Result holds the graph as it was
// when the failure happened. Nothing is rolled back.
func (m *Manager[G]) Run(g G) (Result[G], error) {
	if err := m.ValidateConstraints(); err != nil {
		return Result[G]{Graph: g}, err
	}

	current := g
	overall := false
	for step := 0; step < m.opts.Steps; step++ {
		modified := false
		for i, p := range m.order {
			res, err := m.applyPass(p, step, current)
			if err != nil {
				return Result[G]{Graph: current, Modified: overall || modified},
					errors.Wrap(errors.ErrCodePassFailed, err,
						"an error occurred when running the %q pass in step %d after the following passes: %v",
						p.Name(), step, names(m.order[:i]))
			}
			current = res.Graph
			modified = modified || res.Modified

			if m.opts.RunChecksAfterEachPass {
				if err := m.runChecks(p.Name(), current); err != nil {
					return Result[G]{Graph: current, Modified: overall || modified}, err
				}
			}
		}
		overall = overall || modified
		if !modified {
			m.opts.Hooks.OnFixedPoint(step)
			if !m.opts.ExhaustSteps {
				m.opts.Logger.Debug("fixed point reached", "step", step)
				break
			}
		}
	}

	if err := m.runChecks("", current); err != nil {
		return Result[G]{Graph: current, Modified: overall}, err
	}
	return Result[G]{Graph: current, Modified: overall}, nil
}

func (m *Manager[G]) applyPass(p Pass[G], step int, g G) (Result[G], error) {
	m.opts.Hooks.OnPassStart(p.Name(), step)
	start := time.Now()
	out, err := p.Apply(g)
	res := Result[G]{Graph: g}
	if err == nil {
		if out.IsBare() {
			m.opts.Logger.Debug("bare pass output counted as modified", "pass", p.Name(), "step", step)
		}
		res = out.Result()
	}
	m.opts.Hooks.OnPassComplete(p.Name(), step, res.Modified, time.Since(start), err)
	return res, err
}

// runChecks runs every check in registration order and stops at the first
// failure. after names the pass that just ran, or is empty for the final sweep.
func (m *Manager[G]) runChecks(after string, g G) error {
	for i, c := range m.checks {
		if err := c(g); err != nil {
			m.opts.Hooks.OnCheck(after, len(m.checks), err)
			if after == "" {
				return errors.Wrap(errors.ErrCodeCheckFailed, err, "check %d failed on the final graph", i)
			}
			return errors.Wrap(errors.ErrCodeCheckFailed, err, "check %d failed after pass %q", i, after)
		}
	}
	if len(m.checks) > 0 {
		m.opts.Hooks.OnCheck(after, len(m.checks), nil)
	}
	return nil
}
