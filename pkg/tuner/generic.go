package tuner

import (
	"fmt"

	"github.com/AshishBagdane/go-parallel-tuner/pkg/api"
	"github.com/AshishBagdane/go-parallel-tuner/pkg/source"
)

// Func adapts a typed function into a Task. Items that are not T fail with a
// type error rather than panicking, so a mixed source degrades item by item
// instead of killing the run.
func Func[T, U any](fn func(T) (U, error)) api.Task {
	return func(item any) (any, error) {
		v, ok := item.(T)
		if !ok {
			var zero T
			return nil, fmt.Errorf("task: item of type %T is not %T", item, zero)
		}
		return fn(v)
	}
}

// Map is the typed convenience path: tune and execute fn over items,
// returning typed results in input order.
//
// Note the adapter returned by Func is a fresh closure, so Map workloads are
// not process-transferable; they route to threads or serial. Register a
// top-level Task for process execution.
func Map[T, U any](fn func(T) (U, error), items []T, opts ...Option) ([]U, error) {
	results, err := Execute(Func(fn), source.FromSlice(items), opts...)
	if err != nil {
		return nil, err
	}

	out := make([]U, len(results))
	for i, r := range results {
		v, ok := r.(U)
		if !ok {
			var zero U
			return nil, fmt.Errorf("map: result %d of type %T is not %T", i, r, zero)
		}
		out[i] = v
	}
	return out, nil
}
