// Package config holds the tuner's option record, its defaults, file loading
// with environment overrides, and the behavioral environment switches.
//
// Validation here never fails a call: out-of-range values are replaced by the
// computed defaults and the rejection is reported as a warning, matching the
// tuner's never-raise-on-user-input policy.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/AshishBagdane/go-parallel-tuner/internal/errors"
)

const (
	// DefaultSampleSize is the number of items drawn for the dry run.
	DefaultSampleSize = 5

	// DefaultMemorySafetyFraction is the fraction of available memory the
	// worker search may budget.
	DefaultMemorySafetyFraction = 0.8

	// DefaultMinSpeedup is the estimated speedup below which the tuner
	// falls back to serial execution.
	DefaultMinSpeedup = 1.2
)

// Options is the configuration record recognized by Optimize and Execute.
// The zero value is not usable directly; start from Default().
type Options struct {
	// SampleSize is the number of items to draw for the dry run.
	SampleSize int `yaml:"sample_size" json:"sample_size"`

	// Verbose emits human-readable trace lines through the logging layer.
	// It has no effect on the Decision.
	Verbose bool `yaml:"verbose" json:"verbose"`

	// ForceWorkers overrides the computed worker count when >= 1.
	// Zero means auto.
	ForceWorkers int `yaml:"force_workers" json:"force_workers"`

	// ForceChunksize overrides the computed chunksize when >= 1.
	// Zero means auto.
	ForceChunksize int `yaml:"force_chunksize" json:"force_chunksize"`

	// PreferThreadsForIO routes io_bound workloads to the thread executor.
	PreferThreadsForIO bool `yaml:"prefer_threads_for_io" json:"prefer_threads_for_io"`

	// MemorySafetyFraction is the fraction of available memory usable by
	// workers, in (0, 1].
	MemorySafetyFraction float64 `yaml:"memory_safety_fraction" json:"memory_safety_fraction"`

	// MinSpeedup is the minimum estimated speedup worth parallelizing for.
	MinSpeedup float64 `yaml:"min_speedup" json:"min_speedup"`

	// MeasureSpawn enables the spawn-cost benchmark; when false the
	// start-method default is used directly.
	MeasureSpawn bool `yaml:"measure_spawn" json:"measure_spawn"`

	// SampleTimeout is the optional per-item timeout for the dry run.
	// Items exceeding it are marked slow but still measured. Zero
	// disables the check.
	SampleTimeout time.Duration `yaml:"sample_timeout" json:"sample_timeout"`
}

// Default returns the option record with all documented defaults applied.
func Default() Options {
	return Options{
		SampleSize:           DefaultSampleSize,
		Verbose:              false,
		ForceWorkers:         0,
		ForceChunksize:       0,
		PreferThreadsForIO:   true,
		MemorySafetyFraction: DefaultMemorySafetyFraction,
		MinSpeedup:           DefaultMinSpeedup,
		MeasureSpawn:         true,
		SampleTimeout:        0,
	}
}

// Normalize clamps out-of-range fields back to their defaults and returns a
// warning for each rejected value. It never fails.
func (o *Options) Normalize() []string {
	var warnings []string
	reject := func(field string, value any, detail string) {
		warnings = append(warnings, errors.InvalidOverride(field, value, detail).Message())
	}

	if o.SampleSize < 1 {
		reject("sample_size", o.SampleSize, "must be >= 1; using default")
		o.SampleSize = DefaultSampleSize
	}
	if o.ForceWorkers < 0 {
		reject("force_workers", o.ForceWorkers, "must be >= 1 or unset; ignoring")
		o.ForceWorkers = 0
	}
	if o.ForceChunksize < 0 {
		reject("force_chunksize", o.ForceChunksize, "must be >= 1 or unset; ignoring")
		o.ForceChunksize = 0
	}
	if o.MemorySafetyFraction <= 0 || o.MemorySafetyFraction > 1 {
		reject("memory_safety_fraction", o.MemorySafetyFraction, "must be in (0, 1]; using default")
		o.MemorySafetyFraction = DefaultMemorySafetyFraction
	}
	if o.MinSpeedup < 1 {
		reject("min_speedup", o.MinSpeedup, "must be >= 1; using default")
		o.MinSpeedup = DefaultMinSpeedup
	}
	if o.SampleTimeout < 0 {
		reject("sample_timeout", o.SampleTimeout, "must be >= 0; disabling")
		o.SampleTimeout = 0
	}

	return warnings
}

// Environment variable keys recognized by the tuner. These are behavioral
// switches, not option overrides: they exist so restricted environments and
// test hosts can alter measurement behavior without touching call sites.
const (
	// EnvPrefix is the prefix for all tuner environment variables.
	EnvPrefix = "PARTUNE"

	// EnvTesting suppresses nested-parallelism detection; test hosts run
	// their own pools and would trip it constantly.
	EnvTesting = EnvPrefix + "_TESTING"

	// EnvNoMeasure forces start-method defaults for spawn cost and chunk
	// overhead, skipping all benchmarks.
	EnvNoMeasure = EnvPrefix + "_NO_MEASURE"

	// EnvStartMethod overrides start-method detection ("fork", "spawn",
	// "forkserver", "threads_only").
	EnvStartMethod = EnvPrefix + "_START_METHOD"

	// EnvWorker marks a re-exec'd worker process. Set by the process pool,
	// never by users.
	EnvWorker = EnvPrefix + "_WORKER"
)

// TestingMode reports whether nested-parallelism detection is suppressed.
func TestingMode() bool {
	return envBool(EnvTesting)
}

// MeasurementsDisabled reports whether benchmarks are globally disabled.
func MeasurementsDisabled() bool {
	return envBool(EnvNoMeasure)
}

// StartMethodOverride returns the start-method override, empty if unset.
func StartMethodOverride() string {
	return os.Getenv(EnvStartMethod)
}

func envBool(key string) bool {
	switch os.Getenv(key) {
	case "", "0", "false", "no":
		return false
	default:
		return true
	}
}

// String renders the options for verbose logs.
func (o Options) String() string {
	return fmt.Sprintf(
		"sample_size=%d force_workers=%d force_chunksize=%d threads_for_io=%t mem_fraction=%.2f min_speedup=%.2f measure_spawn=%t",
		o.SampleSize, o.ForceWorkers, o.ForceChunksize,
		o.PreferThreadsForIO, o.MemorySafetyFraction, o.MinSpeedup, o.MeasureSpawn,
	)
}
