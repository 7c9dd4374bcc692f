// Package dryrun executes the task on the sampled items under measurement:
// per-item wall and CPU time, wire-codec sizes and times for inputs and
// outputs, timing variance, allocation peaks, and the workload-kind
// classification the cost model routes on.
//
// The measurer never fails. A task error on a sample item marks the report
// failed and the optimizer treats the workload as not parallelizable.
package dryrun

import (
	"fmt"
	"runtime"
	"time"

	"github.com/AshishBagdane/go-parallel-tuner/internal/errors"
	"github.com/AshishBagdane/go-parallel-tuner/internal/logging"
	"github.com/AshishBagdane/go-parallel-tuner/internal/sampler"
	"github.com/AshishBagdane/go-parallel-tuner/pkg/api"
)

// Workload-kind cutoffs on sampled CPU utilization.
const (
	ioBoundBelow  = 0.3
	cpuBoundAbove = 0.7
)

// Config tweaks one measurement run.
type Config struct {
	// Timeout is the optional per-item budget. Items exceeding it are
	// counted as slow, their observed duration still included in the
	// averages. Zero disables the check.
	Timeout time.Duration

	// Logger receives measurement traces. Nil means discard.
	Logger *logging.Logger
}

// Measure runs the task over the sample strictly in index order and returns
// the aggregated report. The sample's transferability verdicts,
// reconstruction, and warnings are carried through so the report is the
// single record downstream stages consume.
func Measure(task api.Task, s sampler.Sample, cfg Config) api.SampleReport {
	log := cfg.Logger
	if log == nil {
		log = logging.Nop()
	}
	log = log.WithComponent("dryrun")

	rep := api.SampleReport{
		TaskTransferable:  s.TaskTransferable,
		TaskTransferErr:   s.TaskTransferErr,
		ItemsTransferable: s.ItemsTransferable,
		ItemTransferIndex: s.ItemTransferIndex,
		ItemTransferErr:   s.ItemTransferErr,
		Lazy:              s.Lazy,
		Reconstructed:     s.Reconstructed,
		FailureIndex:      -1,
		Warnings:          append([]string(nil), s.Warnings...),
	}

	if task == nil {
		rep.Failed = true
		rep.FailureErr = "task is nil"
		return rep
	}
	if len(s.Items) == 0 {
		return rep
	}

	var (
		wallStats welford
		wallSum   kahan
		cpuSum    kahan
		inBytes   kahan
		inTime    kahan
		outBytes  kahan
		outTime   kahan
		peakAlloc uint64
		cpuSeen   = true
	)

	var memBefore, memAfter runtime.MemStats

	for i, item := range s.Items {
		if b, d, err := sampler.EncodeProbe(item); err == nil {
			inBytes.add(float64(b))
			inTime.add(d.Seconds())
		}

		cpuBefore, ok := processCPUTime()
		if !ok {
			cpuSeen = false
		}
		runtime.ReadMemStats(&memBefore)

		start := time.Now()
		out, err := task(item)
		wall := time.Since(start)

		if err != nil {
			rep.Failed = true
			rep.FailureIndex = i
			rep.FailureErr = err.Error()
			rep.AvgItemTime = 0
			rep.Warnings = append(rep.Warnings, errors.SamplingFailed(i, err).Message())
			log.Debug("dry run aborted", "item", i, "error", err)
			return rep
		}

		if cpuAfter, ok := processCPUTime(); ok && cpuSeen {
			cpuSum.add((cpuAfter - cpuBefore).Seconds())
		}
		runtime.ReadMemStats(&memAfter)
		if delta := memAfter.TotalAlloc - memBefore.TotalAlloc; delta > peakAlloc {
			peakAlloc = delta
		}

		wallStats.add(wall.Seconds())
		wallSum.add(wall.Seconds())

		if cfg.Timeout > 0 && wall > cfg.Timeout {
			rep.SlowItems++
		}

		if b, d, err := sampler.EncodeProbe(out); err == nil {
			outBytes.add(float64(b))
			outTime.add(d.Seconds())
		}

		rep.SampleSize++
	}

	n := float64(rep.SampleSize)
	avgWall := wallSum.sum / n

	rep.AvgItemTime = time.Duration(avgWall * float64(time.Second))
	if avgWall > 0 {
		rep.ItemTimeCV = wallStats.stddev() / avgWall
	}
	rep.AvgInputBytes = inBytes.sum / n
	rep.AvgOutputBytes = outBytes.sum / n
	rep.AvgInputEncode = time.Duration(inTime.sum / n * float64(time.Second))
	rep.AvgOutputEncode = time.Duration(outTime.sum / n * float64(time.Second))
	rep.PeakAllocBytes = peakAlloc

	if cpuSeen {
		util := 0.0
		if wallSum.sum > 0 {
			util = cpuSum.sum / wallSum.sum
		}
		rep.CPUUtilization = clamp01(util)
		rep.Kind = classify(rep.CPUUtilization)
	} else {
		rep.CPUUtilization = 0
		rep.Kind = api.KindMixed
		rep.Warnings = append(rep.Warnings, "cpu time unavailable on this platform; workload kind defaulted to mixed")
	}

	if rep.SlowItems > 0 {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf(
			"%d of %d sampled items exceeded the %s per-item budget",
			rep.SlowItems, rep.SampleSize, cfg.Timeout))
	}

	log.Debug("dry run complete",
		"sample_size", rep.SampleSize,
		"avg_item_time", rep.AvgItemTime,
		"cv", rep.ItemTimeCV,
		"cpu_utilization", rep.CPUUtilization,
		"kind", rep.Kind.String(),
	)
	return rep
}

// classify maps CPU utilization to a workload kind.
func classify(util float64) api.WorkloadKind {
	switch {
	case util < ioBoundBelow:
		return api.KindIOBound
	case util >= cpuBoundAbove:
		return api.KindCPUBound
	default:
		return api.KindMixed
	}
}

func clamp01(x float64) float64 {
	if x < 0 || x != x {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
