package sysinfo

import (
	"runtime"
	"time"

	"github.com/AshishBagdane/go-parallel-tuner/internal/config"
	"github.com/AshishBagdane/go-parallel-tuner/pkg/api"
)

// detectStartMethod maps the platform to its process-creation method.
// PARTUNE_START_METHOD overrides detection, which is how forkserver (a
// deliberate opt-in everywhere) is selected.
func detectStartMethod() api.StartMethod {
	if v := config.StartMethodOverride(); v != "" {
		if m, err := api.ParseStartMethod(v); err == nil {
			return m
		}
	}

	switch runtime.GOOS {
	case "linux", "freebsd", "openbsd", "netbsd", "dragonfly", "solaris", "illumos":
		return api.StartFork
	case "darwin", "windows":
		return api.StartSpawn
	default:
		// js, wasip1, plan9: no worker processes.
		return api.StartThreadsOnly
	}
}

// spawnDefault is the start-method default marginal spawn cost, used when
// measurement is disabled or rejected.
func spawnDefault(m api.StartMethod) time.Duration {
	switch m {
	case api.StartFork:
		return 15 * time.Millisecond
	case api.StartSpawn:
		return 200 * time.Millisecond
	case api.StartForkServer:
		return 75 * time.Millisecond
	default:
		// threads_only: a nominal figure so the model never divides by
		// or compares against zero.
		return time.Millisecond
	}
}

// spawnRange is the plausibility window for a measured marginal spawn cost.
func spawnRange(m api.StartMethod) (lo, hi time.Duration) {
	switch m {
	case api.StartFork:
		return time.Millisecond, 100 * time.Millisecond
	case api.StartSpawn:
		return 50 * time.Millisecond, time.Second
	case api.StartForkServer:
		return 10 * time.Millisecond, 500 * time.Millisecond
	default:
		return 100 * time.Microsecond, 100 * time.Millisecond
	}
}

// defaultChunkOverhead is the per-chunk scheduling default when the
// benchmark is disabled or rejected.
const defaultChunkOverhead = 500 * time.Microsecond

// Chunk-overhead plausibility window. Goroutine scheduling is far cheaper
// than process-pool dispatch, so the window reaches well below the default.
const (
	chunkOverheadMin = time.Microsecond
	chunkOverheadMax = 10 * time.Millisecond
)
