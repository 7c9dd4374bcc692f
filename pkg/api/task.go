// Package api defines the public data model of the parallel tuner: the task
// and data-source contracts consumed by the optimizer, and the record types it
// produces (SystemSnapshot, SampleReport, CostCandidate, Decision).
//
// The types in this package are plain value records. They carry no behavior
// beyond validation and formatting helpers, so they can be logged, serialized,
// and passed across package boundaries freely.
package api

// Task is the unit of work mapped over a data source: a function of one
// argument producing one result.
//
// A Task is always invocable in-process (serial and thread executors). To be
// dispatchable to worker processes it must additionally be registered under a
// stable name (see the executor registry) and its items must survive the wire
// codec; the optimizer checks both during sampling and routes accordingly.
//
// Contract:
//   - Must be safe to call from multiple goroutines when the thread executor
//     is selected.
//   - A returned error marks the item as failed; the task must not panic on
//     malformed input it wants reported.
type Task func(item any) (any, error)
