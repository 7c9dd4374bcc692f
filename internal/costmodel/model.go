package costmodel

import (
	"math"
	"time"

	"github.com/AshishBagdane/go-parallel-tuner/pkg/api"
)

// estimate computes one candidate's total-time decomposition for a workload
// of m items under the given executor flavor:
//
//	T(N, C) = N*sigma                       spawn, one-shot per worker
//	        + (m*t) / P(N)                  balanced parallel compute
//	        + m*(sIn+sOut) * (1 - alpha(N)) codec transfer, overlap-reduced
//	        + (m/C) * gamma                 per-chunk scheduling
//
// P(N) is the effective parallelism: min(N, physical cores) for cpu_bound
// workloads, because SMT siblings do not scale compute, and N otherwise.
// Speedup is T_serial/T capped at N; no super-linear estimates.
func estimate(snap api.SystemSnapshot, rep api.SampleReport, cfg Config, flavor api.ExecutorKind, m, workers, chunksize int) api.CostCandidate {
	t := rep.AvgItemTime.Seconds()
	mf := float64(m)
	n := float64(workers)
	c := float64(chunksize)

	var sigma, sIn, sOut float64
	gamma := snap.ChunkOverhead.Seconds()
	if flavor == api.ExecProcess {
		sigma = snap.SpawnCost.Seconds()
		sIn = rep.AvgInputEncode.Seconds()
		sOut = rep.AvgOutputEncode.Seconds()
	} else {
		// Threads share the address space: no codec tax, and spawn is a
		// goroutine, not a process.
		sigma = cfg.ThreadSpawnCost.Seconds()
	}

	eff := n
	if rep.Kind == api.KindCPUBound && workers > snap.PhysicalCores {
		eff = float64(snap.PhysicalCores)
	}

	var alpha float64
	if workers > 1 {
		alpha = cfg.IPCOverlap * (1 - 1/n)
	}

	spawn := n * sigma
	compute := mf * t / eff
	inCodec := mf * sIn * (1 - alpha)
	outCodec := mf * sOut * (1 - alpha)
	scheduling := mf / c * gamma

	total := spawn + compute + inCodec + outCodec + scheduling
	serial := mf * t

	speedup := 0.0
	if total > 0 {
		speedup = serial / total
	}
	if speedup > n {
		speedup = n
	}

	return api.CostCandidate{
		Workers:             workers,
		Chunksize:           chunksize,
		EstTotal:            secondsToDuration(total),
		Speedup:             speedup,
		SpawnOverhead:       secondsToDuration(spawn),
		InputCodecOverhead:  secondsToDuration(inCodec),
		OutputCodecOverhead: secondsToDuration(outCodec),
		SchedulingOverhead:  secondsToDuration(scheduling),
	}
}

// Score evaluates one explicit (workers, chunksize) candidate. The search in
// Choose uses it indirectly; the optimizer calls it directly to price
// user-forced parameters. m < 0 scores against the nominal lazy horizon.
func Score(snap api.SystemSnapshot, rep api.SampleReport, cfg Config, flavor api.ExecutorKind, m, workers, chunksize int) api.CostCandidate {
	if m < 0 {
		m = cfg.NominalLazyHorizon
	}
	return estimate(snap, rep, cfg, flavor, m, workers, chunksize)
}

// ChunksizeFor exposes the chunksize rule for the forced-workers path, where
// the worker count is fixed but the chunksize is still computed.
func ChunksizeFor(avgItem time.Duration, cv float64, m, workers int, cfg Config) int {
	return chunksizeFor(avgItem, cv, m, workers, cfg)
}

// chunksizeFor applies the chunksize rule: target TargetChunkTime of work per
// chunk, shrink for heterogeneous timings (cv > 1), clamp to [1, floor(m/N)]
// when the workload size is known.
func chunksizeFor(avgItem time.Duration, cv float64, m, workers int, cfg Config) int {
	t := avgItem.Seconds()

	var c int
	if t <= 0 {
		// Effectively free items: any chunk hits the target; let the
		// upper clamp decide.
		c = math.MaxInt32
	} else {
		c = int(math.Round(cfg.TargetChunkTime.Seconds() / t))
	}
	if c < 1 {
		c = 1
	}

	// High variance starves workers at the tail; smaller chunks rebalance.
	if cv > 1 {
		c = int(float64(c) / (1 + cv))
		if c < 1 {
			c = 1
		}
	}

	if m > 0 {
		// Floor, not ceil: chunksize * workers must never exceed the
		// workload size.
		maxC := m / workers
		if maxC < 1 {
			maxC = 1
		}
		if c > maxC {
			c = maxC
		}
	} else if c == math.MaxInt32 {
		c = 1024
	}

	return c
}

func secondsToDuration(s float64) time.Duration {
	if s <= 0 {
		return 0
	}
	if s > math.MaxInt64/float64(time.Second) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(s * float64(time.Second))
}
