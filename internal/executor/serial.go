package executor

import (
	"context"

	"github.com/AshishBagdane/go-parallel-tuner/pkg/api"
)

// RunSerial applies the task to every item on the calling goroutine.
// The first task error aborts the run and is returned as-is; callers that
// need the failing index can compare against the length of the partial
// result, which is also returned.
func RunSerial(ctx context.Context, task api.Task, items []any) ([]any, error) {
	results := make([]any, 0, len(items))
	for _, item := range items {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}

		out, err := task(item)
		if err != nil {
			return results, err
		}
		results = append(results, out)
	}
	return results, nil
}
