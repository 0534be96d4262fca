// Package pipeline runs declarative pass pipelines over fx graphs.
//
// A pipeline config names the passes to run, the ordering constraints between
// them and the checks the result must satisfy. It can be written in TOML,
// YAML, HCL or JSON; all four decode into the same [Config]. The [Runner]
// builds a [passes.Manager] from a config, runs it over a graph and caches
// the result by content hash, so CLI, HTTP server and tests share one code
// path.
//
// # Usage
//
//	cfg, err := pipeline.LoadConfigFile("pipeline.toml")
//	if err != nil {
//	    return err
//	}
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, cfg, graph)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(result.Order, result.Modified)
//
// # Config
//
// A TOML pipeline that rewrites adds into muls and then into divs:
//
//	steps = 5
//
//	[[passes]]
//	name = "mul_to_div"
//	kind = "replace_target"
//	from = "mul"
//	to   = "div"
//
//	[[passes]]
//	name    = "add_to_mul"
//	kind    = "replace_target"
//	from    = "add"
//	to      = "mul"
//	observe = ["count_calls"]
//
//	[[constraints]]
//	before = "add_to_mul"
//	after  = "mul_to_div"
//
//	[[checks]]
//	kind    = "only_targets"
//	targets = ["div"]
package pipeline

import (
	"slices"

	"github.com/matzehuels/passforge/pkg/errors"
	"github.com/matzehuels/passforge/pkg/fx"
	"github.com/matzehuels/passforge/pkg/passes"
)

// Config is a declarative pass pipeline.
type Config struct {
	Steps                  int              `json:"steps,omitempty" toml:"steps" yaml:"steps,omitempty"`
	RunChecksAfterEachPass bool             `json:"run_checks_after_each_pass,omitempty" toml:"run_checks_after_each_pass" yaml:"run_checks_after_each_pass,omitempty"`
	ExhaustSteps           bool             `json:"exhaust_steps,omitempty" toml:"exhaust_steps" yaml:"exhaust_steps,omitempty"`
	StrictConstraints      bool             `json:"strict_constraints,omitempty" toml:"strict_constraints" yaml:"strict_constraints,omitempty"`
	Passes                 []PassSpec       `json:"passes" toml:"passes" yaml:"passes"`
	Constraints            []ConstraintSpec `json:"constraints,omitempty" toml:"constraints" yaml:"constraints,omitempty"`
	Checks                 []CheckSpec      `json:"checks,omitempty" toml:"checks" yaml:"checks,omitempty"`
}

// PassSpec declares one pass.
type PassSpec struct {
	Name    string   `json:"name" toml:"name" yaml:"name"`
	Kind    string   `json:"kind" toml:"kind" yaml:"kind"`
	From    string   `json:"from,omitempty" toml:"from" yaml:"from,omitempty"`          // replace_target only
	To      string   `json:"to,omitempty" toml:"to" yaml:"to,omitempty"`                // replace_target only
	Repeat  int      `json:"repeat,omitempty" toml:"repeat" yaml:"repeat,omitempty"`    // Apply the pass this many times per step
	Observe []string `json:"observe,omitempty" toml:"observe" yaml:"observe,omitempty"` // Observers run after the pass
}

// ConstraintSpec requires Before to run before After.
type ConstraintSpec struct {
	Before string `json:"before" toml:"before" yaml:"before"`
	After  string `json:"after" toml:"after" yaml:"after"`
}

// CheckSpec declares one check.
type CheckSpec struct {
	Kind    string      `json:"kind" toml:"kind" yaml:"kind"`
	Targets []string    `json:"targets,omitempty" toml:"targets" yaml:"targets,omitempty"` // only_targets, no_targets
	Inputs  [][]float64 `json:"inputs,omitempty" toml:"inputs" yaml:"inputs,omitempty"`    // numerics
	RTol    float64     `json:"rtol,omitempty" toml:"rtol" yaml:"rtol,omitempty"`          // numerics
	ATol    float64     `json:"atol,omitempty" toml:"atol" yaml:"atol,omitempty"`          // numerics
}

// Validate checks the config without building anything. All errors carry
// the INVALID_CONFIG code.
func (c *Config) Validate() error {
	if c.Steps < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "steps must not be negative, got %d", c.Steps)
	}
	if len(c.Passes) == 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "pipeline declares no passes")
	}

	names := make([]string, 0, len(c.Passes))
	for i, p := range c.Passes {
		if err := errors.ValidatePassName(p.Name); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "pass %d", i)
		}
		if slices.Contains(names, p.Name) {
			return errors.New(errors.ErrCodeInvalidConfig, "pass %q declared twice", p.Name)
		}
		names = append(names, p.Name)
		if err := p.validate(); err != nil {
			return err
		}
	}

	for _, cs := range c.Constraints {
		if cs.Before == "" || cs.After == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "constraint %q -> %q must name two passes", cs.Before, cs.After)
		}
		if !c.StrictConstraints {
			continue
		}
		for _, n := range []string{cs.Before, cs.After} {
			if !slices.Contains(names, n) {
				return errors.New(errors.ErrCodeInvalidConfig, "constraint %s -> %s names undeclared pass %q", cs.Before, cs.After, n)
			}
		}
	}

	for i, ch := range c.Checks {
		if err := ch.validate(); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "check %d", i)
		}
	}
	return nil
}

// PassNames returns the declared pass names in order.
func (c *Config) PassNames() []string {
	out := make([]string, len(c.Passes))
	for i, p := range c.Passes {
		out[i] = p.Name
	}
	return out
}

// PassConstraints returns the declared constraints as pass constraints.
func (c *Config) PassConstraints() []passes.Constraint {
	out := make([]passes.Constraint, len(c.Constraints))
	for i, cs := range c.Constraints {
		out[i] = passes.Constraint{Before: cs.Before, After: cs.After}
	}
	return out
}

func (p PassSpec) validate() error {
	switch p.Kind {
	case KindReplaceTarget:
		for _, t := range []string{p.From, p.To} {
			if !fx.Target(t).Valid() {
				return errors.New(errors.ErrCodeInvalidConfig, "pass %q: unknown target %q (must be one of %v)", p.Name, t, fx.Targets)
			}
		}
	case KindDeadCodeElimination:
	case "":
		return errors.New(errors.ErrCodeInvalidConfig, "pass %q has no kind", p.Name)
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "pass %q: unknown kind %q", p.Name, p.Kind)
	}
	if p.Repeat < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "pass %q: repeat must not be negative", p.Name)
	}
	for _, o := range p.Observe {
		if !slices.Contains(Observers, o) {
			return errors.New(errors.ErrCodeInvalidConfig, "pass %q: unknown observer %q", p.Name, o)
		}
	}
	return nil
}

func (c CheckSpec) validate() error {
	switch c.Kind {
	case CheckOnlyTargets, CheckNoTargets:
		if len(c.Targets) == 0 {
			return errors.New(errors.ErrCodeInvalidConfig, "%s needs at least one target", c.Kind)
		}
		for _, t := range c.Targets {
			if !fx.Target(t).Valid() {
				return errors.New(errors.ErrCodeInvalidConfig, "%s: unknown target %q", c.Kind, t)
			}
		}
	case CheckValidGraph:
	case CheckNumerics:
		if len(c.Inputs) == 0 {
			return errors.New(errors.ErrCodeInvalidConfig, "numerics needs inputs")
		}
		if c.RTol < 0 || c.ATol < 0 {
			return errors.New(errors.ErrCodeInvalidConfig, "numerics tolerances must not be negative")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown check kind %q", c.Kind)
	}
	return nil
}
