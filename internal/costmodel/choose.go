package costmodel

import (
	"fmt"
	"time"

	"github.com/AshishBagdane/go-parallel-tuner/internal/errors"
	"github.com/AshishBagdane/go-parallel-tuner/pkg/api"
)

// Selection is the model's verdict: the chosen execution parameters, the
// estimates behind them, and the reason/warning fragments the optimizer folds
// into the Decision.
type Selection struct {
	Workers   int
	Chunksize int
	Executor  api.ExecutorKind
	Speedup   float64
	EstTotal  time.Duration
	EstSerial time.Duration

	// Best is the winning candidate with its overhead decomposition;
	// zero-valued for serial selections made by Choose.
	Best api.CostCandidate

	Reasons  []string
	Warnings []string
}

// Choose scores candidates and picks the best (workers, chunksize, executor)
// for a workload of m items. m < 0 means the size is unknown (lazy source);
// scoring then assumes the configured nominal horizon. m == 0 short-circuits
// to serial.
func Choose(snap api.SystemSnapshot, rep api.SampleReport, m int, cfg Config) Selection {
	sel := Selection{
		Workers:   1,
		Chunksize: 1,
		Executor:  api.ExecSerial,
		Speedup:   1,
	}

	scoringM := m
	if m < 0 {
		scoringM = cfg.NominalLazyHorizon
	}

	estSerial := time.Duration(float64(rep.AvgItemTime) * float64(scoringM))
	sel.EstSerial = estSerial
	sel.EstTotal = estSerial

	// Hard guards: nothing to run, or the dry run already failed.
	if m == 0 {
		sel.EstSerial, sel.EstTotal = 0, 0
		sel.Reasons = append(sel.Reasons, errors.EmptyWorkload().Message())
		return sel
	}
	if rep.Failed {
		sel.Reasons = append(sel.Reasons, fmt.Sprintf(
			"%s: task failed during dry run; cannot parallelize", errors.KindSamplingFailed))
		return sel
	}
	if rep.SampleSize == 0 {
		sel.Warnings = append(sel.Warnings, "no items were sampled; running serial")
		return sel
	}

	flavor, routeReason := Route(snap, rep, cfg)

	nmax := snap.PhysicalCores * 2
	if nmax < 1 {
		nmax = 1
	}
	if cfg.MaxWorkersCap > 0 && nmax > cfg.MaxWorkersCap {
		nmax = cfg.MaxWorkersCap
	}
	if m > 0 && nmax > m {
		nmax = m
	}

	budget := uint64(float64(snap.AvailableMemory) * cfg.MemoryFraction)
	baseMem := cfg.ThreadBaseMemory
	if flavor == api.ExecProcess {
		baseMem = cfg.ProcessBaseMemory
	}

	var best api.CostCandidate
	memAllowed := nmax

	for n := 1; n <= nmax; n++ {
		c := chunksizeFor(rep.AvgItemTime, rep.ItemTimeCV, m, n, cfg)

		perWorker := baseMem + uint64(rep.AvgOutputBytes*float64(c))
		if budget > 0 && uint64(n)*perWorker > budget {
			if n-1 < memAllowed {
				memAllowed = n - 1
			}
			break
		}

		cand := estimate(snap, rep, cfg, flavor, scoringM, n, c)
		// Strictly-greater keeps the smallest N on ties.
		if cand.Speedup > best.Speedup {
			best = cand
		}
	}

	if memAllowed < nmax {
		detail := fmt.Sprintf("memory budget %d MiB caps workers at %d (of %d candidates)",
			budget>>20, memAllowed, nmax)
		sel.Warnings = append(sel.Warnings, errors.ResourceShortage("memory", detail).Message())
	}

	if best.Workers == 0 {
		// Even a single worker exceeded the memory budget; serial is all
		// that's left.
		sel.Reasons = append(sel.Reasons,
			errors.ResourceShortage("memory", "no worker fits the memory budget; running serial").Message())
		return sel
	}

	spawnDominated := flavor == api.ExecProcess && m > 0 && estSerial <= snap.SpawnCost

	if best.Workers <= 1 || best.Speedup < cfg.MinSpeedup || spawnDominated ||
		(m > 0 && estSerial < cfg.TinyWorkloadFloor) {

		if spawnDominated {
			sel.Reasons = append(sel.Reasons, fmt.Sprintf(
				"workload dominated by spawn cost (serial %s <= %s per extra worker)",
				estSerial, snap.SpawnCost))
		}
		if m > 0 && estSerial < cfg.TinyWorkloadFloor {
			sel.Reasons = append(sel.Reasons, fmt.Sprintf(
				"estimated serial time %s is below the %s floor; too small to parallelize",
				estSerial, cfg.TinyWorkloadFloor))
		}
		if best.Speedup < cfg.MinSpeedup {
			sel.Reasons = append(sel.Reasons, fmt.Sprintf(
				"best estimated speedup %.2fx (workers=%d) is below the %.2fx minimum threshold",
				best.Speedup, best.Workers, cfg.MinSpeedup))
		} else {
			sel.Reasons = append(sel.Reasons, fmt.Sprintf(
				"running serial; best candidate was %.2fx with %d workers",
				best.Speedup, best.Workers))
		}
		return sel
	}

	sel.Workers = best.Workers
	sel.Chunksize = best.Chunksize
	sel.Executor = flavor
	sel.Speedup = best.Speedup
	sel.EstTotal = best.EstTotal
	sel.Best = best
	sel.Reasons = append(sel.Reasons, routeReason, fmt.Sprintf(
		"estimated %.2fx speedup with %d workers at chunksize %d",
		best.Speedup, best.Workers, best.Chunksize))
	if m < 0 {
		sel.Reasons = append(sel.Reasons, fmt.Sprintf(
			"lazy source: estimates assume a %d-item horizon", cfg.NominalLazyHorizon))
	}
	return sel
}

// Route picks the executor flavor from the workload kind and the
// transferability verdicts. A workload that cannot cross the process boundary
// never routes to process. Exported because the forced-override path scores a
// user-chosen candidate under the same routing.
func Route(snap api.SystemSnapshot, rep api.SampleReport, cfg Config) (api.ExecutorKind, string) {
	processAllowed := rep.TaskTransferable && rep.ItemsTransferable &&
		snap.StartMethod != api.StartThreadsOnly

	switch {
	case rep.Kind == api.KindIOBound && cfg.PreferThreadsForIO:
		return api.ExecThread, "io_bound workload routed to thread executor (no spawn or codec tax)"
	case processAllowed:
		return api.ExecProcess, fmt.Sprintf("%s workload routed to process executor", rep.Kind)
	default:
		return api.ExecThread, "process executor unavailable for this workload; using threads"
	}
}
