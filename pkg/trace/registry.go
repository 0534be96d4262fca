// Package trace provides callback registries for resource lifecycle events.
//
// A [Registry] is a named fan-out list: [Registry.Fire] calls every
// registered callback with the event payload. A callback that returns an
// error or panics is logged and skipped; it never reaches the code that fired
// the event and never prevents the remaining callbacks from running.
//
// [Callbacks] groups the seven lifecycle registries an executor reports to.
// Build it once at startup with [NewCallbacks] and hand the pointer to the
// producers and consumers that need it:
//
//	cb := trace.NewCallbacks(logger)
//	cb.MemoryAllocation.AddCallback(func(h trace.Handle) error {
//	    logger.Debug("alloc", "ptr", h)
//	    return nil
//	})
//	interp := fx.NewInterpreter(cb)
package trace

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
)

// Callback receives an event payload.
type Callback[E any] func(e E) error

// Registry holds the callbacks for one kind of event.
// It is safe for concurrent use.
type Registry[E any] struct {
	name   string
	logger *log.Logger

	mu        sync.RWMutex
	callbacks []Callback[E]
}

// NewRegistry creates an empty registry. name identifies the registry in
// failure logs. A nil logger discards those logs.
func NewRegistry[E any](name string, logger *log.Logger) *Registry[E] {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Registry[E]{name: name, logger: logger}
}

// Name returns the registry name.
func (r *Registry[E]) Name() string { return r.name }

// Len returns the number of registered callbacks.
func (r *Registry[E]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.callbacks)
}

// AddCallback appends cb. Nil callbacks are ignored.
func (r *Registry[E]) AddCallback(cb Callback[E]) {
	if cb == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks = append(r.callbacks, cb)
}

// Fire calls every callback with e in registration order.
func (r *Registry[E]) Fire(e E) {
	r.mu.RLock()
	cbs := r.callbacks
	r.mu.RUnlock()

	for i, cb := range cbs {
		if err := r.call(cb, e); err != nil {
			r.logger.Error("callback failed", "registry", r.name, "callback", i, "err", err)
		}
	}
}

func (r *Registry[E]) call(cb Callback[E], e E) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return cb(e)
}
