package passes

import (
	"reflect"

	"github.com/matzehuels/passforge/pkg/errors"
)

// Check validates a graph and returns an error describing the first violated
// invariant.
type Check[G any] func(g G) error

var errorType = reflect.TypeFor[error]()

// checkOf converts fn into a Check. The common signatures are matched
// directly; anything else is inspected by reflection, once, here.
func checkOf[G any](fn any) (Check[G], error) {
	switch f := fn.(type) {
	case nil:
		return nil, errors.New(errors.ErrCodeSignatureMismatch, "check function is nil")
	case Check[G]:
		return f, nil
	case func(G) error:
		return f, nil
	case func(G):
		return func(g G) error { f(g); return nil }, nil
	}

	v := reflect.ValueOf(fn)
	t := v.Type()
	if t.Kind() != reflect.Func {
		return nil, errors.New(errors.ErrCodeSignatureMismatch, "check must be a function, got %s", t)
	}
	if v.IsNil() {
		return nil, errors.New(errors.ErrCodeSignatureMismatch, "check function is nil")
	}
	if t.IsVariadic() || t.NumIn() != 1 {
		return nil, errors.New(errors.ErrCodeSignatureMismatch,
			"check should only take in one argument, a graph; %s takes %d", t, t.NumIn())
	}
	graphType := reflect.TypeFor[G]()
	if !graphType.AssignableTo(t.In(0)) {
		return nil, errors.New(errors.ErrCodeSignatureMismatch,
			"check parameter %s cannot accept a graph of type %s", t.In(0), graphType)
	}
	switch {
	case t.NumOut() == 0:
	case t.NumOut() == 1 && t.Out(0) == errorType:
	default:
		return nil, errors.New(errors.ErrCodeSignatureMismatch,
			"check must return nothing or an error, %s does not", t)
	}

	return func(g G) error {
		out := v.Call([]reflect.Value{reflect.ValueOf(&g).Elem()})
		if len(out) == 0 || out[0].IsNil() {
			return nil
		}
		return out[0].Interface().(error)
	}, nil
}
