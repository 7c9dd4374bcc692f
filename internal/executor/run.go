package executor

import (
	"context"

	"github.com/AshishBagdane/go-parallel-tuner/pkg/api"
)

// Drain materializes a source into a slice. A Finite source is copied by
// index; a Lazy source is consumed to exhaustion.
func Drain(src api.Source) []any {
	switch s := src.(type) {
	case api.Finite:
		items := make([]any, s.Len())
		for i := range items {
			items[i] = s.Item(i)
		}
		return items
	case api.Lazy:
		var items []any
		for {
			item, ok := s.Next()
			if !ok {
				return items
			}
			items = append(items, item)
		}
	default:
		return nil
	}
}

// Run dispatches the task over the source under the decision's parameters.
// Results preserve input order. Pools are torn down before Run returns; no
// background goroutines or processes remain.
//
// The process flavor requires the task to be registered; the optimizer only
// selects ExecProcess for registered tasks, but if the pool cannot be started
// at execution time (for example the host binary never installed the worker
// hook) Run degrades to the thread executor rather than failing the workload.
func Run(ctx context.Context, d *api.Decision, task api.Task, src api.Source) ([]any, error) {
	items := Drain(src)
	if len(items) == 0 {
		return []any{}, nil
	}

	switch d.Executor {
	case api.ExecProcess:
		name, ok := NameOf(task)
		if !ok {
			return RunThreads(ctx, task, items, d.Workers, d.Chunksize)
		}
		pool, err := StartProcessPool(d.Workers, 0)
		if err != nil {
			return RunThreads(ctx, task, items, d.Workers, d.Chunksize)
		}
		defer pool.Close()
		return pool.Map(ctx, name, items, d.Chunksize)

	case api.ExecThread:
		return RunThreads(ctx, task, items, d.Workers, d.Chunksize)

	default:
		return RunSerial(ctx, task, items)
	}
}
