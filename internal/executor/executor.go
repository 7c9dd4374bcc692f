// Package executor implements the execution adapter consuming a Decision:
// a serial runner, a goroutine worker pool for the thread flavor, and a
// re-exec process pool for the process flavor. It also owns the task registry
// that gives tasks the stable names the process pool dispatches by.
//
// The adapter is deliberately thin: it dispatches the task across the chosen
// executor with the chosen chunksize, always preserves input order (there is
// no unordered mode), tears its pools down before returning, and never
// retries.
package executor

import (
	"fmt"
)

// Chunk is one unit of scheduling: a contiguous slice of items plus the
// metadata needed to reassemble results in input order.
type Chunk struct {
	// Index is the chunk's position in the chunk sequence.
	Index int

	// Start is the index of the chunk's first item in the full dataset.
	Start int

	// Items is the slice of items to process.
	Items []any
}

// Result holds the outcome of processing one chunk.
type Result struct {
	// Index mirrors Chunk.Index for ordered reassembly.
	Index int

	// Start mirrors Chunk.Start.
	Start int

	// Out holds the per-item results, aligned with Chunk.Items.
	Out []any

	// Err is the first error encountered within the chunk, nil otherwise.
	Err error
}

// ItemError wraps a task error with the index of the originating item.
// Parallel executors report failures through this type; the serial runner
// surfaces task errors as-is.
type ItemError struct {
	Index int
	Err   error
}

// Error implements the error interface.
func (e *ItemError) Error() string {
	return fmt.Sprintf("item %d: %v", e.Index, e.Err)
}

// Unwrap exposes the underlying task error.
func (e *ItemError) Unwrap() error {
	return e.Err
}

// BuildChunks splits items into chunks of at most size items. The final chunk
// may be shorter. Size values below 1 are treated as 1.
func BuildChunks(items []any, size int) []Chunk {
	if size < 1 {
		size = 1
	}
	if len(items) == 0 {
		return nil
	}

	chunks := make([]Chunk, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Start: start,
			Items: items[start:end],
		})
	}
	return chunks
}
