package passes

import (
	"fmt"

	"github.com/charmbracelet/log"
)

// Observer inspects the graph after a pass. Its error aborts the run.
type Observer[G any] func(g G) error

type hookedPass[G any] struct {
	Pass[G]
	observers []Observer[G]
}

// PostPassHook returns a pass that runs p and then calls every observer with
// the resulting graph. The wrapped pass keeps p's name and reports p's
// modified flag unchanged; a bare output from p is normalized first.
func PostPassHook[G any](p Pass[G], observers ...Observer[G]) Pass[G] {
	return &hookedPass[G]{Pass: p, observers: observers}
}

func (h *hookedPass[G]) Apply(g G) (Output[G], error) {
	res, err := apply(h.Pass, g)
	if err != nil {
		return Output[G]{}, err
	}
	for _, obs := range h.observers {
		if err := obs(res.Graph); err != nil {
			return Output[G]{}, err
		}
	}
	return Tagged(res.Graph, res.Modified), nil
}

// LogHook returns an observer that logs the graph at debug level.
func LogHook[G any](logger *log.Logger) Observer[G] {
	if logger == nil {
		logger = log.Default()
	}
	return func(g G) error {
		logger.Debug("graph after pass", "graph", fmt.Sprint(g))
		return nil
	}
}

type loopPass[G any] struct {
	Pass[G]
	n     int
	while bool
	pred  func(G) bool
}

// Loop returns a pass that applies p n times in a row. The loop reports a
// modification if any iteration did. A count of zero or less applies p
// zero times.
func Loop[G any](p Pass[G], n int) Pass[G] {
	return &loopPass[G]{Pass: p, n: max(n, 0)}
}

// LoopWhile returns a pass that applies p for as long as pred holds for the
// current graph. pred is evaluated before every iteration, so p may not run
// at all. A nil pred never holds.
func LoopWhile[G any](p Pass[G], pred func(g G) bool) Pass[G] {
	return &loopPass[G]{Pass: p, while: true, pred: pred}
}

func (l *loopPass[G]) next(i int, g G) bool {
	if l.while {
		return l.pred != nil && l.pred(g)
	}
	return i < l.n
}

func (l *loopPass[G]) Apply(g G) (Output[G], error) {
	modified := false
	for i := 0; l.next(i, g); i++ {
		res, err := apply(l.Pass, g)
		if err != nil {
			return Output[G]{}, err
		}
		g = res.Graph
		modified = modified || res.Modified
	}
	return Tagged(g, modified), nil
}
