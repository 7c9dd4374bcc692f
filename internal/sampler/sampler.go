package sampler

import (
	"fmt"

	"github.com/AshishBagdane/go-parallel-tuner/internal/errors"
	"github.com/AshishBagdane/go-parallel-tuner/internal/executor"
	"github.com/AshishBagdane/go-parallel-tuner/pkg/api"
)

// Sample is the result of drawing a bounded prefix from a data source.
type Sample struct {
	// Items is the drawn prefix, at most k items.
	Items []any

	// Reconstructed presents the full original sequence to downstream
	// consumers: the source itself for a Finite source, or the drawn
	// prefix stitched back onto the remainder for a Lazy one.
	Reconstructed api.Source

	// Lazy reports whether the source was single-pass.
	Lazy bool

	// Known is the total item count for a Finite source, -1 for Lazy
	// (0 once a Lazy source turns out to be empty).
	Known int

	// TaskTransferable and ItemsTransferable are the process-boundary
	// verdicts; the error fields carry the first rejection.
	TaskTransferable  bool
	TaskTransferErr   string
	ItemsTransferable bool
	ItemTransferIndex int
	ItemTransferErr   string

	// Warnings collects non-fatal sampling conditions.
	Warnings []string
}

// Draw pulls up to k items from the source and checks transferability of the
// task and the drawn items. It never fails: a panicking source yields an
// empty sample with a warning, and the reconstructed source still replays
// whatever was consumed before the panic.
//
// Ordering guarantee: the first item of Reconstructed is the first item the
// caller would have seen from the original source.
func Draw(task api.Task, src api.Source, k int) (s Sample) {
	s.ItemTransferIndex = -1
	s.Known = -1

	defer func() {
		if r := recover(); r != nil {
			// A panicking Item/Next is user data misbehaving, not a
			// tuner failure; report it and keep the sample empty. Items
			// already pulled from a single-pass source are stitched back
			// so the caller still sees them.
			s.Warnings = append(s.Warnings, errors.SamplingFailed(
				len(s.Items), fmt.Errorf("source panicked: %v", r)).Message())
			if s.Reconstructed == nil {
				if d, ok := src.(api.Lazy); ok {
					s.Reconstructed = NewPrefixed(s.Items, d)
				} else {
					s.Reconstructed = src
				}
			}
			s.Items = nil
		}
	}()

	if k < 1 {
		k = 1
	}

	switch d := src.(type) {
	case api.Finite:
		s.Known = d.Len()
		s.Reconstructed = src

		n := k
		if n > d.Len() {
			n = d.Len()
		}
		if n == 0 {
			s.Warnings = append(s.Warnings, errors.EmptyWorkload().Message())
		}
		s.Items = make([]any, 0, n)
		for i := 0; i < n; i++ {
			s.Items = append(s.Items, d.Item(i))
		}

	case api.Lazy:
		s.Lazy = true
		s.Items = make([]any, 0, k)
		for len(s.Items) < k {
			item, ok := d.Next()
			if !ok {
				break
			}
			s.Items = append(s.Items, item)
		}
		s.Reconstructed = NewPrefixed(s.Items, d)
		if len(s.Items) == 0 {
			s.Known = 0
			s.Warnings = append(s.Warnings, errors.EmptyWorkload().Message())
		}

	default:
		s.Reconstructed = src
		s.Warnings = append(s.Warnings, errors.SamplingFailed(
			0, fmt.Errorf("unsupported source type %T", src)).Message())
	}

	s.TaskTransferable, s.TaskTransferErr = checkTask(task)
	s.ItemsTransferable, s.ItemTransferIndex, s.ItemTransferErr = checkItems(s.Items)
	return s
}

// checkTask decides whether the task can be dispatched by name to worker
// processes.
func checkTask(task api.Task) (bool, string) {
	if task == nil {
		return false, errors.NotTransferable("task", fmt.Errorf("task is nil")).Message()
	}
	if _, ok := executor.NameOf(task); !ok {
		return false, errors.NotTransferable("task",
			fmt.Errorf("no registered name; process workers resolve tasks by name")).Message()
	}
	return true, ""
}

// checkItems probes each sampled item through the wire codec and reports the
// first failure.
func checkItems(items []any) (ok bool, failedIndex int, errMsg string) {
	for i, item := range items {
		if err := Encodable(item); err != nil {
			return false, i, errors.NotTransferable(
				fmt.Sprintf("item %d", i), err).Message()
		}
	}
	return true, -1, ""
}
