package sysinfo

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v4/mem"

	"github.com/AshishBagdane/go-parallel-tuner/internal/config"
	"github.com/AshishBagdane/go-parallel-tuner/internal/logging"
	"github.com/AshishBagdane/go-parallel-tuner/pkg/api"
)

// --- Core Detection Tests ---

const twoSocketCPUInfo = `processor	: 0
physical id	: 0
core id	: 0

processor	: 1
physical id	: 0
core id	: 1

processor	: 2
physical id	: 0
core id	: 0

processor	: 3
physical id	: 0
core id	: 1

processor	: 4
physical id	: 1
core id	: 0

processor	: 5
physical id	: 1
core id	: 0
`

func TestParseCPUInfo(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
		wantErr bool
	}{
		{
			name:    "hyperthreaded two sockets",
			content: twoSocketCPUInfo,
			want:    3, // (0,0) (0,1) (1,0)
		},
		{
			name:    "no topology keys",
			content: "processor\t: 0\nmodel name\t: ARMv8\n\nprocessor\t: 1\n",
			wantErr: true,
		},
		{
			name:    "empty file",
			content: "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "cpuinfo")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}

			got, err := parseCPUInfo(path)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseCPUInfo() = %d, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseCPUInfo() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("parseCPUInfo() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseCPUInfoMissingFile(t *testing.T) {
	if _, err := parseCPUInfo(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParseLscpu(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		want    int
		wantErr bool
	}{
		{
			name: "four cores one socket with SMT",
			out:  "# comment\n0,0\n1,0\n2,0\n3,0\n0,0\n1,0\n2,0\n3,0\n",
			want: 4,
		},
		{
			name:    "only comments",
			out:     "# The following is...\n# Core,Socket\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseLscpu(tt.out)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseLscpu() = %d, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseLscpu() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("parseLscpu() = %d, want %d", got, tt.want)
			}
		})
	}
}

// --- Memory Detection Tests ---

func TestDetectMemoryFallbackChain(t *testing.T) {
	origCgroup, origVirtual, origTotal, origFree := cgroupLimit, hostVirtual, hostTotal, hostFree
	t.Cleanup(func() {
		cgroupLimit, hostVirtual, hostTotal, hostFree = origCgroup, origVirtual, origTotal, origFree
	})

	failAll := func() {
		cgroupLimit = func() (uint64, error) { return 0, os.ErrNotExist }
		hostVirtual = func() (*mem.VirtualMemoryStat, error) { return nil, os.ErrNotExist }
		hostTotal = func() uint64 { return 0 }
		hostFree = func() uint64 { return 0 }
	}

	t.Run("cgroup limit wins", func(t *testing.T) {
		failAll()
		cgroupLimit = func() (uint64, error) { return 2 << 30, nil }
		hostTotal = func() uint64 { return 16 << 30 }

		got, warnings := detectMemory()
		if got != 2<<30 {
			t.Errorf("detectMemory() = %d, want cgroup limit", got)
		}
		if len(warnings) != 0 {
			t.Errorf("unexpected warnings: %v", warnings)
		}
	})

	t.Run("cgroup limit clamped to host total", func(t *testing.T) {
		failAll()
		cgroupLimit = func() (uint64, error) { return 1 << 62, nil }
		hostTotal = func() uint64 { return 8 << 30 }

		got, _ := detectMemory()
		if got != 8<<30 {
			t.Errorf("detectMemory() = %d, want host total clamp", got)
		}
	})

	t.Run("host free as last real source", func(t *testing.T) {
		failAll()
		hostFree = func() uint64 { return 1 << 30 }

		got, _ := detectMemory()
		if got != 1<<30 {
			t.Errorf("detectMemory() = %d, want free memory", got)
		}
	})

	t.Run("absolute fallback warns", func(t *testing.T) {
		failAll()

		got, warnings := detectMemory()
		if got != fallbackMemory {
			t.Errorf("detectMemory() = %d, want %d", got, fallbackMemory)
		}
		if len(warnings) != 1 {
			t.Fatalf("warnings = %v, want one entry", warnings)
		}
	})
}

// --- Start Method Tests ---

func TestDetectStartMethodOverride(t *testing.T) {
	t.Setenv(config.EnvStartMethod, "forkserver")
	if got := detectStartMethod(); got != api.StartForkServer {
		t.Errorf("detectStartMethod() = %v, want forkserver override", got)
	}

	t.Setenv(config.EnvStartMethod, "not-a-method")
	if got := detectStartMethod(); got == api.StartForkServer {
		t.Error("invalid override should fall back to platform detection")
	}
}

func TestSpawnDefaultsWithinRanges(t *testing.T) {
	methods := []api.StartMethod{api.StartFork, api.StartSpawn, api.StartForkServer}
	for _, m := range methods {
		t.Run(m.String(), func(t *testing.T) {
			lo, hi := spawnRange(m)
			def := spawnDefault(m)
			if def < lo || def > hi {
				t.Errorf("default %s outside its own range [%s, %s]", def, lo, hi)
			}
		})
	}
}

// --- Spawn Validation Tests ---

func TestValidateSpawn(t *testing.T) {
	const ms = time.Millisecond

	tests := []struct {
		name     string
		marginal time.Duration
		t1       time.Duration
		t2       time.Duration
		method   api.StartMethod
		accept   bool
	}{
		{
			name:     "clean fork measurement",
			marginal: 15 * ms, t1: 20 * ms, t2: 35 * ms,
			method: api.StartFork, accept: true,
		},
		{
			name:     "negative marginal",
			marginal: -ms, t1: 20 * ms, t2: 19 * ms,
			method: api.StartFork, accept: false,
		},
		{
			name:     "outside fork range",
			marginal: 300 * ms, t1: 100 * ms, t2: 400 * ms,
			method: api.StartFork, accept: false,
		},
		{
			name:     "below noise floor",
			marginal: 2 * ms, t1: 100 * ms, t2: 102 * ms,
			method: api.StartFork, accept: false,
		},
		{
			name:     "slow but within ten times the estimate",
			marginal: 90 * ms, t1: 30 * ms, t2: 120 * ms,
			method: api.StartFork, accept: true,
		},
		{
			name:     "marginal dominates t2",
			marginal: 50 * ms, t1: 2 * ms, t2: 52 * ms,
			method: api.StartFork, accept: false,
		},
		{
			name:     "spawn range accepts slower measurements",
			marginal: 180 * ms, t1: 200 * ms, t2: 380 * ms,
			method: api.StartSpawn, accept: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detail := validateSpawn(tt.marginal, tt.t1, tt.t2, tt.method)
			if tt.accept && detail != "" {
				t.Errorf("validateSpawn() rejected: %s", detail)
			}
			if !tt.accept && detail == "" {
				t.Error("validateSpawn() accepted an implausible measurement")
			}
		})
	}
}

// --- Benchmark Tests (fake launcher) ---

func sleepLauncher(perWorker time.Duration) PoolLauncher {
	return func(workers int) (func() error, error) {
		time.Sleep(time.Duration(workers) * perWorker)
		return func() error { return nil }, nil
	}
}

func TestMeasureSpawnCostAcceptsPlausibleLauncher(t *testing.T) {
	cost, quality, warning := measureSpawnCost(sleepLauncher(15*time.Millisecond), api.StartFork, logging.Nop())
	if quality != api.QualityMeasured {
		t.Fatalf("quality = %v (warning %q), want measured", quality, warning)
	}
	// Marginal should land near the per-worker sleep.
	if cost < 5*time.Millisecond || cost > 60*time.Millisecond {
		t.Errorf("measured cost %s implausibly far from 15ms", cost)
	}
}

func TestMeasureSpawnCostFallsBackOnLaunchError(t *testing.T) {
	failing := func(workers int) (func() error, error) {
		return nil, os.ErrPermission
	}

	cost, quality, warning := measureSpawnCost(failing, api.StartFork, logging.Nop())
	if quality != api.QualityFallback {
		t.Fatal("quality should be fallback when launching fails")
	}
	if cost != spawnDefault(api.StartFork) {
		t.Errorf("cost = %s, want fork default", cost)
	}
	if !strings.HasPrefix(warning, "measurement_unreliable:") {
		t.Errorf("warning %q missing measurement_unreliable tag", warning)
	}
}

// --- Snapshot Cache Tests ---

func TestSnapshotCachedAndReset(t *testing.T) {
	t.Setenv(config.EnvNoMeasure, "1")

	p := &Profiler{}
	first := p.Snapshot(true)

	if first.PhysicalCores < 1 {
		t.Errorf("PhysicalCores = %d, want >= 1", first.PhysicalCores)
	}
	if first.LogicalCores < first.PhysicalCores {
		t.Errorf("LogicalCores %d < PhysicalCores %d", first.LogicalCores, first.PhysicalCores)
	}
	if first.SpawnCost <= 0 || first.ChunkOverhead <= 0 {
		t.Error("overhead figures must be positive even under fallback")
	}
	if first.SpawnQuality != api.QualityFallback || first.ChunkQuality != api.QualityFallback {
		t.Error("PARTUNE_NO_MEASURE should force fallback quality")
	}

	// Cached: the second call must be effectively instant.
	start := time.Now()
	second := p.Snapshot(true)
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("cached Snapshot() took %s", elapsed)
	}
	if second.PhysicalCores != first.PhysicalCores || second.SpawnCost != first.SpawnCost {
		t.Error("cached snapshot differs from the first")
	}

	p.Reset()
	third := p.Snapshot(true)
	if third.PhysicalCores != first.PhysicalCores {
		t.Error("rebuilt snapshot should match on stable hardware facts")
	}
}
