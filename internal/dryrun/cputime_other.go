//go:build !unix

package dryrun

import "time"

// processCPUTime reports CPU time as unavailable on platforms without
// getrusage; the measurer classifies the workload as mixed and warns.
func processCPUTime() (time.Duration, bool) {
	return 0, false
}
