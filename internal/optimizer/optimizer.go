// Package optimizer orchestrates the tuning pipeline: profile the host,
// sample the source, dry-run the task, score candidates, apply overrides and
// guards, and assemble the Decision with its reason and warning trails.
//
// The orchestrator never fails on user data. The only errors it returns are
// programmer errors (nil task, nil source) surfaced before any measurement;
// everything else degrades to a serial Decision that explains itself.
package optimizer

import (
	"fmt"

	"github.com/AshishBagdane/go-parallel-tuner/internal/config"
	"github.com/AshishBagdane/go-parallel-tuner/internal/costmodel"
	"github.com/AshishBagdane/go-parallel-tuner/internal/dryrun"
	"github.com/AshishBagdane/go-parallel-tuner/internal/errors"
	"github.com/AshishBagdane/go-parallel-tuner/internal/logging"
	"github.com/AshishBagdane/go-parallel-tuner/internal/sampler"
	"github.com/AshishBagdane/go-parallel-tuner/internal/sysinfo"
	"github.com/AshishBagdane/go-parallel-tuner/pkg/api"
)

// Optimizer drives one or more tuning calls under a fixed option set.
type Optimizer struct {
	// Opts is the option record; it is normalized (with warnings) on each
	// call, never mutated.
	Opts config.Options

	// Profiler overrides the process-wide profiler. Nil means the shared
	// default, which is what production callers want: the snapshot cache
	// is deliberately global.
	Profiler *sysinfo.Profiler

	// Logger receives the verbose trace. Nil with Verbose set creates a
	// debug text logger; nil otherwise discards.
	Logger *logging.Logger
}

// New creates an Optimizer with the given options.
func New(opts config.Options) *Optimizer {
	return &Optimizer{Opts: opts}
}

// Optimize runs the pipeline and returns the Decision.
func (o *Optimizer) Optimize(task api.Task, src api.Source) (*api.Decision, error) {
	if task == nil {
		return nil, fmt.Errorf("optimize: task must not be nil")
	}
	if src == nil {
		return nil, fmt.Errorf("optimize: source must not be nil")
	}

	opts := o.Opts
	warnings := opts.Normalize()
	log := o.logger(opts)

	if opts.Verbose {
		log.Info("optimizing", "options", opts.String())
	}

	prof := o.Profiler
	if prof == nil {
		prof = sysinfo.Default
	}
	snap := prof.Snapshot(opts.MeasureSpawn)
	if opts.Verbose {
		log.Info("system snapshot", "snapshot", snap.String())
	}

	s := sampler.Draw(task, src, opts.SampleSize)
	rep := dryrun.Measure(task, s, dryrun.Config{
		Timeout: opts.SampleTimeout,
		Logger:  log,
	})
	if opts.Verbose {
		log.Info("sample report", "report", rep.String())
	}

	cfg := costmodel.DefaultConfig()
	cfg.MinSpeedup = opts.MinSpeedup
	cfg.MemoryFraction = opts.MemorySafetyFraction
	cfg.PreferThreadsForIO = opts.PreferThreadsForIO

	if !config.TestingMode() {
		if nested, detail := detectNestedParallelism(); nested {
			cfg.MaxWorkersCap = snap.PhysicalCores
			if cfg.MaxWorkersCap < 1 {
				cfg.MaxWorkersCap = 1
			}
			warnings = append(warnings, fmt.Sprintf(
				"nested parallelism detected (%s); halving the worker ceiling to %d",
				detail, cfg.MaxWorkersCap))
		}
	}

	var sel costmodel.Selection
	if opts.ForceWorkers > 0 || opts.ForceChunksize > 0 {
		sel = o.applyForced(snap, rep, s.Known, cfg, opts, &warnings)
	} else {
		sel = costmodel.Choose(snap, rep, s.Known, cfg)
	}

	// Transferability rejections surface as warnings even when routing
	// already avoided the process executor.
	if !rep.TaskTransferable && rep.TaskTransferErr != "" {
		warnings = append(warnings, rep.TaskTransferErr)
	}
	if !rep.ItemsTransferable && rep.ItemTransferErr != "" {
		warnings = append(warnings, rep.ItemTransferErr)
	}

	warnings = append(warnings, snap.Warnings...)
	warnings = append(warnings, rep.Warnings...)
	warnings = append(warnings, sel.Warnings...)

	d := &api.Decision{
		Workers:   sel.Workers,
		Chunksize: sel.Chunksize,
		Executor:  sel.Executor,
		Speedup:   sel.Speedup,
		EstTotal:  sel.EstTotal,
		EstSerial: sel.EstSerial,
		Reasons:   sel.Reasons,
		Warnings:  warnings,
		Snapshot:  snap,
		Report:    rep,
	}

	if opts.Verbose {
		log.Info("decision ready", "summary", d.Summary())
	}
	return d, nil
}

// applyForced prices the user's forced parameters instead of searching.
// Invalid overrides are ignored with a warning and the computed value takes
// their place; the hard guards (empty workload, failed sampling,
// transferability) still apply.
func (o *Optimizer) applyForced(snap api.SystemSnapshot, rep api.SampleReport, m int, cfg costmodel.Config, opts config.Options, warnings *[]string) costmodel.Selection {
	// Hard guards first; a forced worker count cannot resurrect an empty
	// or failed workload.
	if m == 0 || rep.Failed || rep.SampleSize == 0 {
		return costmodel.Choose(snap, rep, m, cfg)
	}

	computed := costmodel.Choose(snap, rep, m, cfg)

	maxWorkers := snap.PhysicalCores * 2
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if m > 0 && maxWorkers > m {
		maxWorkers = m
	}

	workers := computed.Workers
	if opts.ForceWorkers > 0 {
		if opts.ForceWorkers > maxWorkers {
			*warnings = append(*warnings, errors.InvalidOverride(
				"force_workers", opts.ForceWorkers,
				fmt.Sprintf("exceeds the %d-worker ceiling; using computed value", maxWorkers)).Message())
		} else {
			workers = opts.ForceWorkers
		}
	}

	flavor, routeReason := costmodel.Route(snap, rep, cfg)
	if workers <= 1 {
		flavor = api.ExecSerial
	}

	chunksize := costmodel.ChunksizeFor(rep.AvgItemTime, rep.ItemTimeCV, m, workers, cfg)
	if opts.ForceChunksize > 0 {
		forced := opts.ForceChunksize
		if m > 0 && forced*workers > m {
			clamped := m / workers
			if clamped < 1 {
				clamped = 1
			}
			*warnings = append(*warnings, errors.InvalidOverride(
				"force_chunksize", forced,
				fmt.Sprintf("chunksize*workers exceeds the workload; clamped to %d", clamped)).Message())
			chunksize = clamped
		} else {
			chunksize = forced
		}
	}

	cand := costmodel.Score(snap, rep, cfg, flavor, m, workers, chunksize)

	sel := costmodel.Selection{
		Workers:   workers,
		Chunksize: chunksize,
		Executor:  flavor,
		Speedup:   cand.Speedup,
		EstTotal:  cand.EstTotal,
		EstSerial: computed.EstSerial,
		Best:      cand,
		Warnings:  computed.Warnings,
	}
	if flavor == api.ExecSerial {
		if sel.Speedup > 1 {
			sel.Speedup = 1
		}
		sel.Reasons = append(sel.Reasons, "user-forced single worker; running serial")
	} else {
		sel.Reasons = append(sel.Reasons, routeReason, fmt.Sprintf(
			"user-forced parameters: %d workers at chunksize %d (estimated %.2fx)",
			workers, chunksize, cand.Speedup))
	}
	return sel
}

func (o *Optimizer) logger(opts config.Options) *logging.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	if opts.Verbose {
		return logging.NewLogger(logging.Config{
			Level:     logging.LevelDebug,
			Format:    logging.FormatText,
			Component: "tuner",
		})
	}
	return logging.Nop()
}
