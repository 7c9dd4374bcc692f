package executor

import (
	"context"
	"fmt"
	"sync"
)

// WorkerPool runs chunk work on a bounded set of goroutines. Ordering falls
// out of the data layout rather than a reassembly step: every chunk owns a
// result slot at its own index, workers write their slot in place, and the
// slice is complete and ordered the moment they all return.
//
// Thread-safe: yes, all methods can be called concurrently.
//
// Example:
//
//	pool := NewWorkerPool(4)
//	defer pool.Close()
//
//	results, err := pool.ProcessChunks(ctx, chunks, func(ctx context.Context, c Chunk) ([]any, error) {
//	    return runChunk(c)
//	})
type WorkerPool struct {
	// workers is the number of concurrent workers.
	workers int

	// closeOnce ensures Close runs only once.
	closeOnce sync.Once

	// closed rejects new work after Close.
	closed bool

	// mu protects the closed flag.
	mu sync.RWMutex
}

// ChunkFunc is the function a worker runs on each chunk. It returns the
// per-item results aligned with the chunk's items.
type ChunkFunc func(ctx context.Context, chunk Chunk) ([]any, error)

// NewWorkerPool creates a pool with the given number of workers.
// Panics on a non-positive count; that is a programmer error, user-supplied
// counts are validated by the optimizer long before reaching here.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		panic(fmt.Sprintf("worker pool: invalid worker count %d", workers))
	}
	return &WorkerPool{workers: workers}
}

// ProcessChunks runs fn over all chunks concurrently and returns one Result
// per chunk, in chunk order.
//
// Cancellation: the first chunk error stops the feed and cancels the run
// context handed to fn; a canceled parent context is reported as ctx.Err().
// Either way no goroutines outlive the call.
func (p *WorkerPool) ProcessChunks(ctx context.Context, chunks []Chunk, fn ChunkFunc) ([]Result, error) {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return nil, fmt.Errorf("worker pool: closed to new work")
	}
	p.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return []Result{}, nil
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	var (
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			stop()
		})
	}

	// One slot per chunk; workers never touch each other's slots, so the
	// writes need no lock and no post-hoc reordering.
	results := make([]Result, len(chunks))
	feed := make(chan int)

	workers := min(p.workers, len(chunks))
	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			for idx := range feed {
				chunk := chunks[idx]
				slot := &results[idx]
				slot.Index = chunk.Index
				slot.Start = chunk.Start

				if err := runCtx.Err(); err != nil {
					slot.Err = err
					continue
				}

				slot.Out, slot.Err = fn(runCtx, chunk)
				if slot.Err != nil {
					fail(slot.Err)
				}
			}
		}()
	}

feedAll:
	for i := range chunks {
		select {
		case feed <- i:
		case <-runCtx.Done():
			break feedAll
		}
	}
	close(feed)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

// Close marks the pool closed so it rejects new work. Idempotent. Active
// ProcessChunks calls finish on their own; use context cancellation to stop
// them early.
func (p *WorkerPool) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
	})
	return nil
}

// Workers returns the pool's worker count.
func (p *WorkerPool) Workers() int {
	return p.workers
}

// IsClosed reports whether the pool has been closed.
func (p *WorkerPool) IsClosed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}
