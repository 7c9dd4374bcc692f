package api

import (
	"fmt"
	"time"
)

// WorkloadKind is the coarse classification of a task derived from sampled CPU
// utilization: the fraction of wall time the task spent on-CPU.
type WorkloadKind int

const (
	// KindCPUBound means utilization >= 0.7; the task saturates a core.
	KindCPUBound WorkloadKind = iota

	// KindIOBound means utilization < 0.3; the task mostly waits.
	KindIOBound

	// KindMixed covers everything in between.
	KindMixed
)

// String returns the canonical name of the workload kind.
func (k WorkloadKind) String() string {
	switch k {
	case KindCPUBound:
		return "cpu_bound"
	case KindIOBound:
		return "io_bound"
	case KindMixed:
		return "mixed"
	default:
		return "unknown"
	}
}

// SampleReport is the dry-run measurer's output: per-item cost statistics for
// the sampled prefix of the data source, plus the transferability verdicts and
// the reconstructed source handed back to the caller.
//
// Ownership: the report owns Reconstructed until the caller (normally the
// execution adapter) takes it. Everything else is a plain value.
type SampleReport struct {
	// SampleSize is the number of items actually measured. Zero means
	// sampling found no data or failed before the first item.
	SampleSize int

	// AvgItemTime is the mean wall-clock time per item.
	AvgItemTime time.Duration

	// ItemTimeCV is the coefficient of variation of per-item wall times
	// (stddev/mean). Zero when fewer than two items were sampled.
	ItemTimeCV float64

	// AvgInputEncode and AvgOutputEncode are the mean wire-codec encoding
	// times for one input item and one result.
	AvgInputEncode  time.Duration
	AvgOutputEncode time.Duration

	// AvgInputBytes and AvgOutputBytes are the mean encoded sizes.
	AvgInputBytes  float64
	AvgOutputBytes float64

	// CPUUtilization is sum(cpu)/sum(wall) over the sample, clamped to
	// [0, 1]. Zero when CPU time is unavailable on the platform.
	CPUUtilization float64

	// PeakAllocBytes is the largest single-item allocation delta observed
	// during the dry run, 0 when the platform offers no cheap measurement.
	PeakAllocBytes uint64

	// Kind is the workload classification derived from CPUUtilization.
	Kind WorkloadKind

	// TaskTransferable reports whether the task can be dispatched to
	// worker processes (registered name, see executor registry).
	// TaskTransferErr holds the reason when false.
	TaskTransferable bool
	TaskTransferErr  string

	// ItemsTransferable reports whether every sampled item survived the
	// wire codec. On failure ItemTransferIndex and ItemTransferErr record
	// the first offending item.
	ItemsTransferable bool
	ItemTransferIndex int
	ItemTransferErr   string

	// Lazy reports whether the source was single-pass.
	Lazy bool

	// Reconstructed is the full original sequence: the source itself for a
	// Finite source, or the sampled prefix re-prepended to the remainder
	// for a Lazy one.
	Reconstructed Source

	// Failed is set when the task returned an error during the dry run;
	// FailureIndex and FailureErr identify the item. A failed sample
	// forces a serial decision.
	Failed       bool
	FailureIndex int
	FailureErr   string

	// SlowItems counts sampled items that exceeded the per-item timeout,
	// when one was configured. Their observed durations still count
	// toward the averages.
	SlowItems int

	// Warnings collects non-fatal sampling conditions.
	Warnings []string
}

// String renders a one-line summary suitable for verbose logs.
func (r SampleReport) String() string {
	return fmt.Sprintf(
		"n=%d t=%s cv=%.2f cpu=%.2f kind=%s in=%.0fB out=%.0fB task_ok=%t items_ok=%t",
		r.SampleSize, r.AvgItemTime, r.ItemTimeCV, r.CPUUtilization, r.Kind,
		r.AvgInputBytes, r.AvgOutputBytes, r.TaskTransferable, r.ItemsTransferable,
	)
}
