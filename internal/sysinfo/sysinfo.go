// Package sysinfo implements the system profiler: physical core detection
// with layered fallbacks, container-aware memory detection, start-method
// identification, and the two micro-benchmarks (marginal spawn cost,
// per-chunk scheduling overhead) the cost model depends on.
//
// Profiling is expensive relative to a tuning call, so the snapshot is
// computed once and cached process-wide; hosts profile the same machine many
// times. The profiler never fails: every detection strategy has a fallback,
// every benchmark has a start-method default, and rejected measurements are
// recorded as quality "fallback" with a warning rather than an error.
package sysinfo

import (
	"sync"
	"sync/atomic"

	"github.com/AshishBagdane/go-parallel-tuner/internal/config"
	"github.com/AshishBagdane/go-parallel-tuner/internal/logging"
	"github.com/AshishBagdane/go-parallel-tuner/pkg/api"
)

// Profiler produces and caches a SystemSnapshot. The zero value is usable;
// fields exist to inject alternatives in tests.
type Profiler struct {
	// ProcRoot overrides the procfs root used by /proc/cpuinfo parsing.
	// Empty means "/proc".
	ProcRoot string

	// Launcher overrides the worker-pool launcher used by the spawn-cost
	// benchmark. Nil means the real process pool.
	Launcher PoolLauncher

	// Logger receives measurement traces. Nil means discard.
	Logger *logging.Logger

	mu     sync.Mutex
	cached atomic.Pointer[api.SystemSnapshot]
}

// Default is the process-wide profiler behind the package-level Snapshot and
// Reset functions.
var Default = &Profiler{}

// Snapshot returns the cached snapshot, computing it on first call.
// measureSpawn enables the spawn-cost benchmark for that first computation;
// later calls return the cached snapshot regardless. Double-checked locking:
// the atomic fast path serves the common case, the mutex serializes the
// one-time build.
func (p *Profiler) Snapshot(measureSpawn bool) api.SystemSnapshot {
	if snap := p.cached.Load(); snap != nil {
		return *snap
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if snap := p.cached.Load(); snap != nil {
		return *snap
	}

	snap := p.build(measureSpawn)
	p.cached.Store(&snap)
	return snap
}

// Reset clears the cached snapshot. Test-only.
func (p *Profiler) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cached.Store(nil)
}

// Snapshot returns the default profiler's snapshot.
func Snapshot(measureSpawn bool) api.SystemSnapshot {
	return Default.Snapshot(measureSpawn)
}

// Reset clears the default profiler's cache. Test-only.
func Reset() {
	Default.Reset()
}

func (p *Profiler) logger() *logging.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return logging.Nop()
}

func (p *Profiler) procRoot() string {
	if p.ProcRoot != "" {
		return p.ProcRoot
	}
	return "/proc"
}

// build assembles a fresh snapshot. It must not panic or return an error;
// every path degrades to a usable default.
func (p *Profiler) build(measureSpawn bool) api.SystemSnapshot {
	log := p.logger().WithComponent("profiler")

	physical, logical, warnings := detectCores(p.procRoot(), log)
	memBytes, memWarnings := detectMemory()
	warnings = append(warnings, memWarnings...)

	method := detectStartMethod()

	snap := api.SystemSnapshot{
		PhysicalCores:   physical,
		LogicalCores:    logical,
		AvailableMemory: memBytes,
		StartMethod:     method,
	}

	disabled := config.MeasurementsDisabled()

	if disabled || !measureSpawn || method == api.StartThreadsOnly {
		snap.SpawnCost = spawnDefault(method)
		snap.SpawnQuality = api.QualityFallback
	} else {
		launch := p.Launcher
		if launch == nil {
			launch = defaultPoolLauncher
		}
		cost, quality, warning := measureSpawnCost(launch, method, log)
		snap.SpawnCost = cost
		snap.SpawnQuality = quality
		if warning != "" {
			warnings = append(warnings, warning)
		}
	}

	if disabled {
		snap.ChunkOverhead = defaultChunkOverhead
		snap.ChunkQuality = api.QualityFallback
	} else {
		overhead, quality, warning := measureChunkOverhead(log)
		snap.ChunkOverhead = overhead
		snap.ChunkQuality = quality
		if warning != "" {
			warnings = append(warnings, warning)
		}
	}

	snap.Warnings = warnings

	log.Debug("system snapshot ready",
		"physical_cores", snap.PhysicalCores,
		"logical_cores", snap.LogicalCores,
		"available_memory", snap.AvailableMemory,
		"start_method", snap.StartMethod.String(),
		"spawn_cost", snap.SpawnCost,
		"spawn_quality", snap.SpawnQuality.String(),
		"chunk_overhead", snap.ChunkOverhead,
		"chunk_quality", snap.ChunkQuality.String(),
	)

	return snap
}
