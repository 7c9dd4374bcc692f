package optimizer

import (
	"fmt"
	"runtime"
)

// nestedGoroutineThreshold is the goroutine count above which the host
// process is assumed to already run its own parallel machinery.
const nestedGoroutineThreshold = 64

// detectNestedParallelism spots hosts that are already parallel: a clamped
// GOMAXPROCS (container quota or a tuned runtime) or a large live goroutine
// population. Adding a full worker complement on top of either oversubscribes
// the machine, so the optimizer halves its ceiling. Suppressed in testing
// mode, where the test runner's own pools would trip it constantly.
func detectNestedParallelism() (bool, string) {
	if procs, cpus := runtime.GOMAXPROCS(0), runtime.NumCPU(); procs < cpus {
		return true, fmt.Sprintf("GOMAXPROCS %d below %d visible CPUs", procs, cpus)
	}
	if n := runtime.NumGoroutine(); n > nestedGoroutineThreshold {
		return true, fmt.Sprintf("%d goroutines already live", n)
	}
	return false, ""
}
