package sysinfo

import (
	"github.com/KimMachineGun/automemlimit/memlimit"
	"github.com/pbnjay/memory"
	"github.com/shirou/gopsutil/v4/mem"
)

// fallbackMemory is the absolute last-resort memory figure when every
// detection source fails.
const fallbackMemory = 4 << 30 // 4 GiB

// Detection sources, replaceable in tests.
var (
	cgroupLimit = memlimit.FromCgroupHybrid
	hostVirtual = mem.VirtualMemory
	hostTotal   = memory.TotalMemory
	hostFree    = memory.FreeMemory
)

// detectMemory returns the effective available memory in bytes.
//
// Containers come first: a cgroup limit (v1 then v2, via automemlimit)
// bounds the workload regardless of what the host has free. The limit is
// clamped against host total memory because cgroups happily report limits
// like "max" rendered as huge numbers. Outside a container, host available
// memory is used, then free memory, then the 4 GiB constant with a warning.
func detectMemory() (uint64, []string) {
	total := hostTotal()

	if limit, err := cgroupLimit(); err == nil && limit > 0 {
		if total > 0 && limit > total {
			limit = total
		}
		return limit, nil
	}

	if vm, err := hostVirtual(); err == nil && vm != nil && vm.Available > 0 {
		return vm.Available, nil
	}

	if free := hostFree(); free > 0 {
		return free, nil
	}

	return fallbackMemory, []string{"memory detection failed on all sources; assuming 4 GiB"}
}
