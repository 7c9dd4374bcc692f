package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader handles option loading from files and the environment. File loading
// is a convenience for hosts that keep tuner settings next to their other
// service config; the in-code functional options remain the primary path.
type Loader struct {
	// applyEnvOverrides determines if PARTUNE_* environment variables
	// override file values.
	applyEnvOverrides bool
}

// NewLoader creates a new option loader.
func NewLoader() *Loader {
	return &Loader{}
}

// WithEnvOverrides enables environment variable overrides. When enabled,
// variables of the form PARTUNE_<FIELD> override values from the file:
//
//	PARTUNE_SAMPLE_SIZE=10
//	PARTUNE_MIN_SPEEDUP=1.5
//	PARTUNE_MEASURE_SPAWN=false
func (l *Loader) WithEnvOverrides() *Loader {
	l.applyEnvOverrides = true
	return l
}

// LoadFromFile loads options from a YAML or JSON file, determined by the file
// extension (.yaml, .yml, or .json). Missing fields keep their defaults;
// out-of-range fields are normalized at Optimize time, not here.
func (l *Loader) LoadFromFile(path string) (Options, error) {
	opts := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return opts, fmt.Errorf("options file not found: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("failed to read options file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &opts); err != nil {
			return Default(), fmt.Errorf("failed to parse YAML options: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &opts); err != nil {
			return Default(), fmt.Errorf("failed to parse JSON options: %w", err)
		}
	default:
		return opts, fmt.Errorf("unsupported options file format: %s (use .yaml, .yml, or .json)", ext)
	}

	if l.applyEnvOverrides {
		applyEnvironmentOverrides(&opts)
	}

	return opts, nil
}

// FromEnv returns the defaults with PARTUNE_* overrides applied. Used by
// hosts that configure entirely through the environment.
func FromEnv() Options {
	opts := Default()
	applyEnvironmentOverrides(&opts)
	return opts
}

// applyEnvironmentOverrides applies PARTUNE_<FIELD> overrides to opts.
// Unparseable values are ignored; Normalize handles range checking later.
func applyEnvironmentOverrides(opts *Options) {
	if v, ok := envInt("SAMPLE_SIZE"); ok {
		opts.SampleSize = v
	}
	if v, ok := envInt("FORCE_WORKERS"); ok {
		opts.ForceWorkers = v
	}
	if v, ok := envInt("FORCE_CHUNKSIZE"); ok {
		opts.ForceChunksize = v
	}
	if v, ok := envFloat("MEMORY_SAFETY_FRACTION"); ok {
		opts.MemorySafetyFraction = v
	}
	if v, ok := envFloat("MIN_SPEEDUP"); ok {
		opts.MinSpeedup = v
	}
	if v, ok := envBoolVal("VERBOSE"); ok {
		opts.Verbose = v
	}
	if v, ok := envBoolVal("PREFER_THREADS_FOR_IO"); ok {
		opts.PreferThreadsForIO = v
	}
	if v, ok := envBoolVal("MEASURE_SPAWN"); ok {
		opts.MeasureSpawn = v
	}
	if v := os.Getenv(EnvPrefix + "_SAMPLE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			opts.SampleTimeout = d
		}
	}
}

func envInt(field string) (int, bool) {
	v := os.Getenv(EnvPrefix + "_" + field)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envFloat(field string) (float64, bool) {
	v := os.Getenv(EnvPrefix + "_" + field)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func envBoolVal(field string) (bool, bool) {
	v := os.Getenv(EnvPrefix + "_" + field)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

// LoadFromFile is a convenience that creates a loader and loads a file.
func LoadFromFile(path string) (Options, error) {
	return NewLoader().LoadFromFile(path)
}

// LoadFromFileWithEnv is a convenience that creates a loader with env
// overrides and loads a file.
func LoadFromFileWithEnv(path string) (Options, error) {
	return NewLoader().WithEnvOverrides().LoadFromFile(path)
}
