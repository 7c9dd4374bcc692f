package sysinfo

import (
	"context"
	"fmt"
	"time"

	"github.com/AshishBagdane/go-parallel-tuner/internal/errors"
	"github.com/AshishBagdane/go-parallel-tuner/internal/executor"
	"github.com/AshishBagdane/go-parallel-tuner/internal/logging"
	"github.com/AshishBagdane/go-parallel-tuner/pkg/api"
)

// benchPhaseTimeout bounds each benchmark phase; a hung pool start must not
// hang the tuning call.
const benchPhaseTimeout = 5 * time.Second

// PoolLauncher starts a worker pool of the given size and returns its
// shutdown function. The spawn-cost benchmark times launch+shutdown pairs.
type PoolLauncher func(workers int) (shutdown func() error, err error)

// defaultPoolLauncher launches a real process pool by re-exec.
func defaultPoolLauncher(workers int) (func() error, error) {
	pool, err := executor.StartProcessPool(workers, benchPhaseTimeout)
	if err != nil {
		return nil, err
	}
	return pool.Close, nil
}

// measureSpawnCost measures the marginal cost of one additional worker:
// time a 1-worker pool's full lifecycle, time a 2-worker pool's, subtract.
// The marginal figure is accepted only if it passes all validation checks;
// otherwise the start-method default is returned with quality fallback and a
// warning describing the rejection.
func measureSpawnCost(launch PoolLauncher, method api.StartMethod, log *logging.Logger) (time.Duration, api.Quality, string) {
	fallback := func(detail string) (time.Duration, api.Quality, string) {
		cond := errors.MeasurementUnreliable("spawn", detail)
		log.Debug("spawn measurement rejected", "detail", detail)
		return spawnDefault(method), api.QualityFallback, cond.Message()
	}

	t1, err := timePoolLifecycle(launch, 1)
	if err != nil {
		return fallback(fmt.Sprintf("1-worker pool: %v", err))
	}
	t2, err := timePoolLifecycle(launch, 2)
	if err != nil {
		return fallback(fmt.Sprintf("2-worker pool: %v", err))
	}

	marginal := t2 - t1
	if detail := validateSpawn(marginal, t1, t2, method); detail != "" {
		return fallback(detail)
	}

	log.Debug("spawn cost measured", "t1", t1, "t2", t2, "marginal", marginal)
	return marginal, api.QualityMeasured, ""
}

// timePoolLifecycle times one launch+shutdown cycle under the phase timeout.
// On timeout the pool keeps shutting down in the background; the measurement
// is simply abandoned.
func timePoolLifecycle(launch PoolLauncher, workers int) (time.Duration, error) {
	type outcome struct {
		elapsed time.Duration
		err     error
	}
	ch := make(chan outcome, 1)

	go func() {
		start := time.Now()
		shutdown, err := launch(workers)
		if err != nil {
			ch <- outcome{0, err}
			return
		}
		err = shutdown()
		ch <- outcome{time.Since(start), err}
	}()

	select {
	case o := <-ch:
		return o.elapsed, o.err
	case <-time.After(benchPhaseTimeout):
		return 0, fmt.Errorf("timed out after %s", benchPhaseTimeout)
	}
}

// validateSpawn applies the four acceptance checks to a measured marginal
// spawn cost. Returns the empty string on acceptance, the failed check
// otherwise.
func validateSpawn(marginal, t1, t2 time.Duration, method api.StartMethod) string {
	if marginal <= 0 {
		return fmt.Sprintf("marginal %s not positive", marginal)
	}

	lo, hi := spawnRange(method)
	if marginal < lo || marginal > hi {
		return fmt.Sprintf("marginal %s outside %s range [%s, %s]", marginal, method, lo, hi)
	}

	// Two workers must cost measurably more than one, or the marginal is
	// noise.
	if float64(t2) < 1.1*float64(t1) {
		return fmt.Sprintf("t2 %s below noise floor 1.1*t1 (t1 %s)", t2, t1)
	}

	est := spawnDefault(method)
	if marginal < est/10 || marginal > est*10 {
		return fmt.Sprintf("marginal %s inconsistent with %s estimate %s", marginal, method, est)
	}

	if float64(marginal) >= 0.9*float64(t2) {
		return fmt.Sprintf("marginal %s is an implausible fraction of t2 %s", marginal, t2)
	}

	return ""
}

// measureChunkOverhead measures per-chunk scheduling cost: run a no-op
// workload through the thread pool at chunksize 1 and at a coarse chunksize,
// and divide the wall-time difference by the difference in chunk count.
func measureChunkOverhead(log *logging.Logger) (time.Duration, api.Quality, string) {
	const (
		items       = 512
		coarseChunk = 128
	)

	fallback := func(detail string) (time.Duration, api.Quality, string) {
		cond := errors.MeasurementUnreliable("chunk", detail)
		log.Debug("chunk measurement rejected", "detail", detail)
		return defaultChunkOverhead, api.QualityFallback, cond.Message()
	}

	noop := func(item any) (any, error) { return item, nil }
	data := make([]any, items)
	for i := range data {
		data[i] = i
	}

	fine, err := timeThreadRun(noop, data, 1)
	if err != nil {
		return fallback(fmt.Sprintf("fine-grained run: %v", err))
	}
	coarse, err := timeThreadRun(noop, data, coarseChunk)
	if err != nil {
		return fallback(fmt.Sprintf("coarse run: %v", err))
	}

	if fine <= coarse {
		return fallback(fmt.Sprintf("no chunking signal (fine %s <= coarse %s)", fine, coarse))
	}

	extraChunks := items - items/coarseChunk
	perChunk := (fine - coarse) / time.Duration(extraChunks)

	if perChunk < chunkOverheadMin || perChunk > chunkOverheadMax {
		return fallback(fmt.Sprintf("per-chunk %s outside range [%s, %s]", perChunk, chunkOverheadMin, chunkOverheadMax))
	}

	log.Debug("chunk overhead measured", "fine", fine, "coarse", coarse, "per_chunk", perChunk)
	return perChunk, api.QualityMeasured, ""
}

// timeThreadRun times one pass of the no-op workload through the thread
// executor at the given chunksize.
func timeThreadRun(task api.Task, items []any, chunksize int) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(context.Background(), benchPhaseTimeout)
	defer cancel()

	start := time.Now()
	_, err := executor.RunThreads(ctx, task, items, 2, chunksize)
	if err != nil {
		return 0, err
	}
	return time.Since(start), nil
}
