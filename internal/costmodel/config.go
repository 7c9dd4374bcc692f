// Package costmodel scores (workers, chunksize) candidates with a
// generalized Amdahl's law carrying four quantified overhead terms (worker
// spawn, input codec, output codec, and per-chunk scheduling) and selects
// the candidate with the best estimated speedup subject to memory,
// transferability, and minimum-speedup guards.
package costmodel

import "time"

// Config holds the model's tunable constants. Options-driven fields
// (MinSpeedup, MemoryFraction, PreferThreadsForIO) are filled in by the
// optimizer from the user's options; the rest are modeling choices with
// defaults from DefaultConfig.
type Config struct {
	// IPCOverlap scales the concave IPC-overlap schedule
	// alpha(N) = IPCOverlap * (1 - 1/N). Codec transfer partially overlaps
	// worker compute, so effective IPC cost is charged at (1 - alpha).
	IPCOverlap float64

	// TargetChunkTime is the per-chunk wall time the chunksize rule aims
	// for.
	TargetChunkTime time.Duration

	// MinSpeedup is the estimated speedup below which the model declines
	// parallelism.
	MinSpeedup float64

	// MemoryFraction is the fraction of available memory the worker
	// search may budget.
	MemoryFraction float64

	// PreferThreadsForIO routes io_bound workloads to the thread
	// executor.
	PreferThreadsForIO bool

	// ThreadSpawnCost is the nominal cost of bringing up one goroutine
	// worker; it stands in for sigma when re-scoring the thread flavor.
	ThreadSpawnCost time.Duration

	// ProcessBaseMemory and ThreadBaseMemory are the per-worker baseline
	// memory estimates before buffered output is added.
	ProcessBaseMemory uint64
	ThreadBaseMemory  uint64

	// TinyWorkloadFloor is the estimated serial time below which
	// parallelization cannot win regardless of the model's arithmetic.
	TinyWorkloadFloor time.Duration

	// MaxWorkersCap further bounds the worker search when positive; the
	// optimizer sets it when nested parallelism is detected.
	MaxWorkersCap int

	// NominalLazyHorizon is the assumed item count used to score lazy
	// sources, whose true size is unknowable up front.
	NominalLazyHorizon int
}

// DefaultConfig returns the documented modeling defaults.
func DefaultConfig() Config {
	return Config{
		IPCOverlap:         0.5,
		TargetChunkTime:    200 * time.Millisecond,
		MinSpeedup:         1.2,
		MemoryFraction:     0.8,
		PreferThreadsForIO: true,
		ThreadSpawnCost:    50 * time.Microsecond,
		ProcessBaseMemory:  32 << 20,
		ThreadBaseMemory:   8 << 20,
		TinyWorkloadFloor:  100 * time.Millisecond,
		MaxWorkersCap:      0,
		NominalLazyHorizon: 10_000,
	}
}
