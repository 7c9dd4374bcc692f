package executor

import (
	"context"

	"github.com/AshishBagdane/go-parallel-tuner/pkg/api"
)

// RunThreads dispatches the task over a goroutine worker pool in chunks and
// reassembles the results in input order. Per-item failures are wrapped in
// *ItemError carrying the originating item's index; the first failure cancels
// the remaining workers.
func RunThreads(ctx context.Context, task api.Task, items []any, workers, chunksize int) ([]any, error) {
	if len(items) == 0 {
		return []any{}, nil
	}
	if workers < 1 {
		workers = 1
	}

	chunks := BuildChunks(items, chunksize)

	pool := NewWorkerPool(workers)
	defer pool.Close()

	results, err := pool.ProcessChunks(ctx, chunks, func(ctx context.Context, chunk Chunk) ([]any, error) {
		out := make([]any, 0, len(chunk.Items))
		for i, item := range chunk.Items {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}

			v, err := task(item)
			if err != nil {
				return nil, &ItemError{Index: chunk.Start + i, Err: err}
			}
			out = append(out, v)
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	flat := make([]any, 0, len(items))
	for _, r := range results {
		flat = append(flat, r.Out...)
	}
	return flat, nil
}
