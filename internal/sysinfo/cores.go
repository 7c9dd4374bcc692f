package sysinfo

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/cpu"

	"github.com/AshishBagdane/go-parallel-tuner/internal/logging"
)

// detectCores returns the physical and logical core counts. Strategies are
// tried in order until one succeeds:
//
//  1. gopsutil's physical count (the high-level OS API).
//  2. /proc/cpuinfo, counting distinct (physical id, core id) pairs.
//  3. lscpu -p output.
//  4. Conservative half of the logical count.
//  5. One.
//
// The result always satisfies 1 <= physical <= logical.
func detectCores(procRoot string, log *logging.Logger) (physical, logical int, warnings []string) {
	logical = logicalCores()

	strategies := []struct {
		name string
		fn   func() (int, error)
	}{
		{"os_api", func() (int, error) { return cpu.Counts(false) }},
		{"cpuinfo", func() (int, error) { return parseCPUInfo(filepath.Join(procRoot, "cpuinfo")) }},
		{"lscpu", physicalFromLscpu},
	}

	for _, s := range strategies {
		n, err := s.fn()
		if err == nil && n >= 1 {
			log.Debug("physical core detection", "strategy", s.name, "cores", n)
			physical = n
			break
		}
		if err != nil {
			log.Debug("physical core strategy failed", "strategy", s.name, "error", err)
		}
	}

	if physical < 1 {
		physical = logical / 2
		if physical < 1 {
			physical = 1
		}
		warnings = append(warnings, fmt.Sprintf(
			"physical core detection fell back to logical/2 (%d)", physical))
	}

	if logical < physical {
		logical = physical
	}
	return physical, logical, warnings
}

// logicalCores never fails; gopsutil first, runtime as backstop.
func logicalCores() int {
	if n, err := cpu.Counts(true); err == nil && n >= 1 {
		return n
	}
	return runtime.NumCPU()
}

// parseCPUInfo counts distinct (physical id, core id) pairs in a Linux
// /proc/cpuinfo. Architectures that omit those keys (some ARM boards) make
// the count zero, which is reported as an error so the next strategy runs.
func parseCPUInfo(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	pairs := make(map[[2]string]struct{})
	var physID, coreID string
	flush := func() {
		if physID != "" && coreID != "" {
			pairs[[2]string{physID, coreID}] = struct{}{}
		}
		physID, coreID = "", ""
	}

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			// Blank line terminates one processor block.
			flush()
			continue
		}
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		switch strings.TrimSpace(key) {
		case "physical id":
			physID = strings.TrimSpace(value)
		case "core id":
			coreID = strings.TrimSpace(value)
		}
	}
	flush()

	if err := sc.Err(); err != nil {
		return 0, err
	}
	if len(pairs) == 0 {
		return 0, fmt.Errorf("cpuinfo: no (physical id, core id) pairs in %s", path)
	}
	return len(pairs), nil
}

// physicalFromLscpu shells out to lscpu -p=Core,Socket and counts distinct
// core/socket pairs.
func physicalFromLscpu() (int, error) {
	out, err := exec.Command("lscpu", "-p=Core,Socket").Output()
	if err != nil {
		return 0, fmt.Errorf("lscpu: %w", err)
	}
	return parseLscpu(string(out))
}

// parseLscpu parses lscpu -p=Core,Socket output: one "core,socket" pair per
// non-comment line.
func parseLscpu(out string) (int, error) {
	pairs := make(map[string]struct{})
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		pairs[line] = struct{}{}
	}
	if len(pairs) == 0 {
		return 0, fmt.Errorf("lscpu: no core/socket pairs parsed")
	}
	return len(pairs), nil
}
