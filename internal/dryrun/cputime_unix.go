//go:build unix

package dryrun

import (
	"time"

	"golang.org/x/sys/unix"
)

// processCPUTime returns the process's cumulative user+system CPU time.
// Deltas across a task invocation give the item's CPU cost; background
// goroutines contribute noise, which the coarse 0.3/0.7 classification
// cutoffs tolerate.
func processCPUTime() (time.Duration, bool) {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return 0, false
	}
	return time.Duration(ru.Utime.Nano() + ru.Stime.Nano()), true
}
