package api

import (
	"fmt"
	"strings"
	"time"
)

// ExecutorKind selects the executor flavor a Decision routes to.
type ExecutorKind int

const (
	// ExecSerial runs items one by one on the calling goroutine.
	ExecSerial ExecutorKind = iota

	// ExecProcess dispatches chunks to worker processes over the wire
	// codec.
	ExecProcess

	// ExecThread dispatches chunks to a goroutine worker pool within the
	// calling process.
	ExecThread
)

// String returns the canonical name of the executor kind.
func (k ExecutorKind) String() string {
	switch k {
	case ExecSerial:
		return "serial"
	case ExecProcess:
		return "process"
	case ExecThread:
		return "thread"
	default:
		return "unknown"
	}
}

// CostCandidate is one evaluated (workers, chunksize) pair with its estimated
// wall time, the speedup relative to serial execution, and the decomposition
// of the four overhead terms the estimate charged.
type CostCandidate struct {
	Workers   int
	Chunksize int

	// EstTotal is the estimated total wall time at this configuration.
	EstTotal time.Duration

	// Speedup is EstSerial/EstTotal, capped at Workers.
	Speedup float64

	// Overhead decomposition.
	SpawnOverhead       time.Duration
	InputCodecOverhead  time.Duration
	OutputCodecOverhead time.Duration
	SchedulingOverhead  time.Duration
}

// Decision is the optimizer's output: the recommended execution parameters,
// the estimates behind them, and the human-readable trail of reasons and
// warnings that produced them.
//
// Invariants:
//   - Workers >= 1 and Chunksize >= 1.
//   - Workers == 1 implies Executor == ExecSerial and Speedup <= 1.
//   - Workers <= 2 * Snapshot.PhysicalCores.
//   - Speedup <= Workers (no super-linear estimates).
//   - When the workload size M is known, Chunksize <= ceil(M / Workers).
type Decision struct {
	// Workers is the recommended worker count.
	Workers int

	// Chunksize is the number of items handed to a worker as one unit.
	Chunksize int

	// Executor is the recommended executor flavor.
	Executor ExecutorKind

	// Speedup is the estimated speedup relative to serial execution.
	Speedup float64

	// EstTotal and EstSerial are the estimated wall times under the
	// recommendation and under serial execution.
	EstTotal  time.Duration
	EstSerial time.Duration

	// Reasons explains, in order, why this configuration was chosen.
	// Entries are prefixed with a stable condition tag (for example
	// "empty_workload: ...") so callers can match on them.
	Reasons []string

	// Warnings collects non-fatal conditions accumulated across the
	// pipeline: profiling fallbacks, rejected overrides, memory caps.
	Warnings []string

	// Snapshot and Report are the inputs the decision was computed from.
	Snapshot SystemSnapshot
	Report   SampleReport
}

// Serial reports whether the decision declined parallelism.
func (d *Decision) Serial() bool {
	return d.Executor == ExecSerial
}

// Summary renders a multi-line human-readable account of the decision,
// including the reason trail. Intended for verbose output and logs.
func (d *Decision) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "executor=%s workers=%d chunksize=%d speedup=%.2fx (serial %s -> %s)\n",
		d.Executor, d.Workers, d.Chunksize, d.Speedup, d.EstSerial, d.EstTotal)
	for _, r := range d.Reasons {
		fmt.Fprintf(&b, "  reason: %s\n", r)
	}
	for _, w := range d.Warnings {
		fmt.Fprintf(&b, "  warning: %s\n", w)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Validate checks the structural invariants above except the chunksize bound,
// which needs the workload size the Decision does not carry. It exists for tests and
// debug assertions; the optimizer always produces valid decisions.
func (d *Decision) Validate() error {
	if d.Workers < 1 {
		return fmt.Errorf("decision: workers %d < 1", d.Workers)
	}
	if d.Chunksize < 1 {
		return fmt.Errorf("decision: chunksize %d < 1", d.Chunksize)
	}
	if d.Workers == 1 && d.Executor != ExecSerial {
		return fmt.Errorf("decision: single worker must be serial, got %s", d.Executor)
	}
	if d.Workers == 1 && d.Speedup > 1 {
		return fmt.Errorf("decision: serial speedup %.2f > 1", d.Speedup)
	}
	if max := d.Snapshot.PhysicalCores * 2; max >= 1 && d.Workers > max {
		return fmt.Errorf("decision: workers %d > 2*physical %d", d.Workers, max)
	}
	if float64(d.Workers) < d.Speedup {
		return fmt.Errorf("decision: speedup %.2f exceeds workers %d", d.Speedup, d.Workers)
	}
	return nil
}
