package api

import (
	"fmt"
	"time"
)

// StartMethod identifies how the platform brings up worker processes. It
// determines the order of magnitude of the spawn cost and the validation range
// applied to measured values.
type StartMethod int

const (
	// StartFork is copy-on-write process creation (Linux default).
	StartFork StartMethod = iota

	// StartSpawn launches a fresh process image (Windows, modern macOS).
	StartSpawn

	// StartForkServer forks from a pre-warmed server process (Linux opt-in).
	StartForkServer

	// StartThreadsOnly marks platforms without multi-process support;
	// only the serial and thread executors are available.
	StartThreadsOnly
)

// String returns the canonical name of the start method.
func (m StartMethod) String() string {
	switch m {
	case StartFork:
		return "fork"
	case StartSpawn:
		return "spawn"
	case StartForkServer:
		return "forkserver"
	case StartThreadsOnly:
		return "threads_only"
	default:
		return "unknown"
	}
}

// ParseStartMethod converts a canonical name back into a StartMethod.
func ParseStartMethod(s string) (StartMethod, error) {
	switch s {
	case "fork":
		return StartFork, nil
	case "spawn":
		return StartSpawn, nil
	case "forkserver":
		return StartForkServer, nil
	case "threads_only":
		return StartThreadsOnly, nil
	default:
		return StartFork, fmt.Errorf("unknown start method %q", s)
	}
}

// Quality records whether an overhead figure was actually measured on this
// host or substituted from the start-method default after a failed validation.
type Quality int

const (
	// QualityMeasured means the value passed all validation checks.
	QualityMeasured Quality = iota

	// QualityFallback means measurement failed or was rejected and the
	// start-method default is in use.
	QualityFallback
)

// String returns "measured" or "fallback".
func (q Quality) String() string {
	if q == QualityMeasured {
		return "measured"
	}
	return "fallback"
}

// SystemSnapshot is the profiler's view of the host: core counts, effective
// memory, the process start method, and the two measured overhead figures the
// cost model depends on. A snapshot is produced once per process and cached;
// all fields are immutable after construction.
//
// Invariants:
//   - PhysicalCores >= 1 and LogicalCores >= PhysicalCores.
//   - SpawnCost > 0 and ChunkOverhead > 0 (fallback defaults guarantee this
//     even when measurement fails).
type SystemSnapshot struct {
	// PhysicalCores is the number of real CPU cores, excluding SMT
	// siblings.
	PhysicalCores int

	// LogicalCores is the scheduler-visible CPU count.
	LogicalCores int

	// AvailableMemory is the effective memory budget in bytes: the
	// container (cgroup) limit when one applies, otherwise host available
	// memory.
	AvailableMemory uint64

	// StartMethod is the platform's process-creation method.
	StartMethod StartMethod

	// SpawnCost is the marginal wall-clock cost of one additional worker
	// process.
	SpawnCost time.Duration

	// ChunkOverhead is the per-chunk scheduling cost of the dispatch loop.
	ChunkOverhead time.Duration

	// SpawnQuality and ChunkQuality record whether the corresponding
	// figure was measured or defaulted.
	SpawnQuality Quality
	ChunkQuality Quality

	// Warnings collects non-fatal conditions hit while profiling, such as
	// memory detection falling through to the absolute default.
	Warnings []string
}

// String renders a one-line summary suitable for verbose logs.
func (s SystemSnapshot) String() string {
	return fmt.Sprintf(
		"cores=%d/%d mem=%dMiB start=%s spawn=%s(%s) chunk=%s(%s)",
		s.PhysicalCores, s.LogicalCores, s.AvailableMemory>>20,
		s.StartMethod, s.SpawnCost, s.SpawnQuality,
		s.ChunkOverhead, s.ChunkQuality,
	)
}
