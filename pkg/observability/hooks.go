// Package observability provides hooks for pass manager metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. A [passes.Manager] calls its hooks as it
// applies passes and runs checks; consumers plug in an implementation when
// building the manager.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define a hook interface for pass manager events
//   - Provide no-op and logging implementations
//   - Let owners combine several implementations with [Multi]
//
// Hooks are passed explicitly to the manager rather than registered globally,
// so two managers in one process can report to different backends.
//
// # Usage
//
//	hooks := observability.Multi(observability.NewLogHooks(logger), myMetrics)
//	pm, err := passes.NewManager(ps, cs, passes.Options{Hooks: hooks})
package observability

import (
	"time"

	"github.com/charmbracelet/log"
)

// =============================================================================
// Pass Hooks
// =============================================================================

// PassHooks receives events from a pass manager run.
type PassHooks interface {
	// Pass events
	OnPassStart(pass string, step int)
	OnPassComplete(pass string, step int, modified bool, duration time.Duration, err error)

	// OnCheck records one sweep over the registered checks. After is the name
	// of the pass that preceded the sweep, or empty for the final sweep.
	OnCheck(after string, checks int, err error)

	// OnFixedPoint records that a full step left the graph unmodified.
	OnFixedPoint(step int)
}

// =============================================================================
// No-op Implementation
// =============================================================================

// NoopPassHooks is a no-op implementation of PassHooks.
type NoopPassHooks struct{}

func (NoopPassHooks) OnPassStart(string, int)                                {}
func (NoopPassHooks) OnPassComplete(string, int, bool, time.Duration, error) {}
func (NoopPassHooks) OnCheck(string, int, error)                             {}
func (NoopPassHooks) OnFixedPoint(int)                                       {}

// =============================================================================
// Logging Implementation
// =============================================================================

// LogHooks writes pass manager events to a charmbracelet logger.
// Pass events are logged at debug level, failures at error level.
type LogHooks struct {
	logger *log.Logger
}

// NewLogHooks creates hooks that report to l.
// A nil logger falls back to log.Default().
func NewLogHooks(l *log.Logger) *LogHooks {
	if l == nil {
		l = log.Default()
	}
	return &LogHooks{logger: l}
}

func (h *LogHooks) OnPassStart(pass string, step int) {
	h.logger.Debug("running pass", "pass", pass, "step", step)
}

func (h *LogHooks) OnPassComplete(pass string, step int, modified bool, d time.Duration, err error) {
	if err != nil {
		h.logger.Error("pass failed", "pass", pass, "step", step, "err", err)
		return
	}
	h.logger.Debug("pass complete", "pass", pass, "step", step, "modified", modified, "duration", d)
}

func (h *LogHooks) OnCheck(after string, checks int, err error) {
	if err != nil {
		h.logger.Error("check failed", "after", after, "checks", checks, "err", err)
		return
	}
	h.logger.Debug("checks passed", "after", after, "checks", checks)
}

func (h *LogHooks) OnFixedPoint(step int) {
	h.logger.Debug("fixed point reached", "step", step)
}

// =============================================================================
// Fan-out
// =============================================================================

type multi []PassHooks

// Multi combines hooks; each event is delivered to every non-nil hook in order.
func Multi(hooks ...PassHooks) PassHooks {
	var out multi
	for _, h := range hooks {
		if h != nil {
			out = append(out, h)
		}
	}
	if len(out) == 0 {
		return NoopPassHooks{}
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}

func (m multi) OnPassStart(pass string, step int) {
	for _, h := range m {
		h.OnPassStart(pass, step)
	}
}

func (m multi) OnPassComplete(pass string, step int, modified bool, d time.Duration, err error) {
	for _, h := range m {
		h.OnPassComplete(pass, step, modified, d, err)
	}
}

func (m multi) OnCheck(after string, checks int, err error) {
	for _, h := range m {
		h.OnCheck(after, checks, err)
	}
}

func (m multi) OnFixedPoint(step int) {
	for _, h := range m {
		h.OnFixedPoint(step)
	}
}
