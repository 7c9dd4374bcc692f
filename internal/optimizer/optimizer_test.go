package optimizer

import (
	"strings"
	"testing"
	"time"

	"github.com/AshishBagdane/go-parallel-tuner/internal/config"
	"github.com/AshishBagdane/go-parallel-tuner/internal/sysinfo"
	"github.com/AshishBagdane/go-parallel-tuner/pkg/api"
	"github.com/AshishBagdane/go-parallel-tuner/pkg/source"
)

// quietEnv pins the environment every optimizer test wants: no benchmarks
// (fast, deterministic snapshots) and no nested-parallelism detection (the
// test runner has its own pools).
func quietEnv(t *testing.T) {
	t.Helper()
	t.Setenv(config.EnvNoMeasure, "1")
	t.Setenv(config.EnvTesting, "1")
}

// newOptimizer builds an optimizer with a private profiler so tests don't
// share the process-wide cache.
func newOptimizer(opts config.Options) *Optimizer {
	o := New(opts)
	o.Profiler = &sysinfo.Profiler{}
	return o
}

func ints(n int) *source.Slice {
	items := make([]int, n)
	for i := range items {
		items[i] = i
	}
	return source.FromSlice(items)
}

func sleepTask(d time.Duration) api.Task {
	return func(item any) (any, error) {
		time.Sleep(d)
		return item, nil
	}
}

// --- Programmer Error Tests ---

func TestOptimizeNilInputs(t *testing.T) {
	quietEnv(t)
	o := newOptimizer(config.Default())

	if _, err := o.Optimize(nil, ints(5)); err == nil {
		t.Error("nil task must be rejected")
	}
	task := func(item any) (any, error) { return item, nil }
	if _, err := o.Optimize(task, nil); err == nil {
		t.Error("nil source must be rejected")
	}
}

// --- Decision Shape Tests ---

func TestOptimizeEmptyWorkload(t *testing.T) {
	quietEnv(t)
	o := newOptimizer(config.Default())

	d, err := o.Optimize(func(item any) (any, error) { return item, nil }, ints(0))
	if err != nil {
		t.Fatalf("Optimize() error: %v", err)
	}
	if err := d.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}

	if d.Workers != 1 || d.Executor != api.ExecSerial {
		t.Errorf("empty workload decision: workers=%d executor=%v", d.Workers, d.Executor)
	}
	if d.Speedup != 1.0 {
		t.Errorf("Speedup = %v, want 1.0", d.Speedup)
	}
	found := false
	for _, r := range d.Reasons {
		if strings.HasPrefix(r, "empty_workload") {
			found = true
		}
	}
	if !found {
		t.Errorf("Reasons = %v, want empty_workload entry", d.Reasons)
	}
}

func TestOptimizeTrivialWorkloadGoesSerial(t *testing.T) {
	quietEnv(t)
	o := newOptimizer(config.Default())

	d, err := o.Optimize(func(item any) (any, error) { return item.(int) + 1, nil }, ints(10_000))
	if err != nil {
		t.Fatalf("Optimize() error: %v", err)
	}
	if err := d.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
	if d.Executor != api.ExecSerial || d.Workers != 1 {
		t.Errorf("trivial workload: workers=%d executor=%v, want serial", d.Workers, d.Executor)
	}
}

func TestOptimizeFailingTaskGoesSerial(t *testing.T) {
	quietEnv(t)
	o := newOptimizer(config.Default())

	task := func(item any) (any, error) {
		if item.(int) == 1 {
			return nil, &failErr{}
		}
		return item, nil
	}

	d, err := o.Optimize(task, ints(100))
	if err != nil {
		t.Fatalf("Optimize() must not error on a failing task: %v", err)
	}
	if d.Executor != api.ExecSerial {
		t.Errorf("Executor = %v, want serial after sampling failure", d.Executor)
	}
	if !d.Report.Failed {
		t.Error("report should record the failure")
	}
}

type failErr struct{}

func (*failErr) Error() string { return "synthetic failure" }

func TestOptimizeUnregisteredTaskNeverProcess(t *testing.T) {
	quietEnv(t)
	o := newOptimizer(config.Default())

	captured := 0
	task := func(item any) (any, error) {
		// Enough busy work to look parallelizable.
		deadline := time.Now().Add(3 * time.Millisecond)
		for time.Now().Before(deadline) {
			captured++
		}
		return captured, nil
	}

	d, err := o.Optimize(task, ints(2_000))
	if err != nil {
		t.Fatalf("Optimize() error: %v", err)
	}
	if d.Executor == api.ExecProcess {
		t.Fatal("unregistered closure routed to process executor")
	}
	found := false
	for _, w := range d.Warnings {
		if strings.HasPrefix(w, "not_transferable:") {
			found = true
		}
	}
	if !found {
		t.Errorf("Warnings = %v, want not_transferable entry", d.Warnings)
	}
}

// --- Override Tests ---

func TestOptimizeInvalidOptionWarns(t *testing.T) {
	quietEnv(t)
	opts := config.Default()
	opts.MemorySafetyFraction = 7 // invalid
	o := newOptimizer(opts)

	d, err := o.Optimize(sleepTask(2*time.Millisecond), ints(200))
	if err != nil {
		t.Fatalf("Optimize() error: %v", err)
	}
	found := false
	for _, w := range d.Warnings {
		if strings.HasPrefix(w, "invalid_override:") && strings.Contains(w, "memory_safety_fraction") {
			found = true
		}
	}
	if !found {
		t.Errorf("Warnings = %v, want invalid_override for memory_safety_fraction", d.Warnings)
	}
}

func TestOptimizeForcedWorkers(t *testing.T) {
	quietEnv(t)
	opts := config.Default()
	opts.ForceWorkers = 2
	o := newOptimizer(opts)

	d, err := o.Optimize(sleepTask(5*time.Millisecond), ints(500))
	if err != nil {
		t.Fatalf("Optimize() error: %v", err)
	}
	if err := d.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
	if d.Workers != 2 {
		t.Errorf("Workers = %d, want forced 2", d.Workers)
	}
	if d.Executor == api.ExecSerial {
		t.Error("forced 2 workers should not be serial")
	}
}

func TestOptimizeForcedWorkersTooLargeIgnored(t *testing.T) {
	quietEnv(t)
	opts := config.Default()
	opts.ForceWorkers = 100_000
	o := newOptimizer(opts)

	d, err := o.Optimize(sleepTask(2*time.Millisecond), ints(300))
	if err != nil {
		t.Fatalf("Optimize() error: %v", err)
	}
	if err := d.Validate(); err != nil {
		t.Errorf("Validate() = %v; an ignored override must still produce a valid decision", err)
	}
	found := false
	for _, w := range d.Warnings {
		if strings.HasPrefix(w, "invalid_override:") && strings.Contains(w, "force_workers") {
			found = true
		}
	}
	if !found {
		t.Errorf("Warnings = %v, want invalid_override for force_workers", d.Warnings)
	}
}

func TestOptimizeForcedChunksizeClamped(t *testing.T) {
	quietEnv(t)
	opts := config.Default()
	opts.ForceWorkers = 2
	opts.ForceChunksize = 1_000_000
	o := newOptimizer(opts)

	d, err := o.Optimize(sleepTask(2*time.Millisecond), ints(100))
	if err != nil {
		t.Fatalf("Optimize() error: %v", err)
	}
	if d.Chunksize*d.Workers > 100 {
		t.Errorf("chunksize %d * workers %d exceeds workload", d.Chunksize, d.Workers)
	}
}

func TestOptimizeForcedSingleWorkerIsSerial(t *testing.T) {
	quietEnv(t)
	opts := config.Default()
	opts.ForceWorkers = 1
	o := newOptimizer(opts)

	d, err := o.Optimize(sleepTask(2*time.Millisecond), ints(100))
	if err != nil {
		t.Fatalf("Optimize() error: %v", err)
	}
	if d.Executor != api.ExecSerial {
		t.Errorf("forced single worker executor = %v, want serial", d.Executor)
	}
	if d.Speedup > 1 {
		t.Errorf("Speedup = %v, want <= 1 for serial", d.Speedup)
	}
}

// --- Pipeline Property Tests ---

func TestOptimizeLazyReconstructionSurvives(t *testing.T) {
	quietEnv(t)
	o := newOptimizer(config.Default())

	const total = 12
	i := 0
	lazy := source.FromFunc(func() (any, bool) {
		if i >= total {
			return nil, false
		}
		v := i
		i++
		return v, true
	})

	d, err := o.Optimize(func(item any) (any, error) { return item, nil }, lazy)
	if err != nil {
		t.Fatalf("Optimize() error: %v", err)
	}
	if !d.Report.Lazy {
		t.Error("report should mark the source lazy")
	}

	recon, ok := d.Report.Reconstructed.(api.Lazy)
	if !ok {
		t.Fatal("reconstruction must be lazy")
	}
	for want := 0; want < total; want++ {
		item, ok := recon.Next()
		if !ok || item != want {
			t.Fatalf("reconstruction item = %v (ok=%t), want %d", item, ok, want)
		}
	}
	if _, ok := recon.Next(); ok {
		t.Error("reconstruction yielded extra items")
	}
}

func TestOptimizeStableExecutorForStableWorkload(t *testing.T) {
	quietEnv(t)
	o := newOptimizer(config.Default())

	task := sleepTask(5 * time.Millisecond)
	first, err := o.Optimize(task, ints(1_000))
	if err != nil {
		t.Fatal(err)
	}
	second, err := o.Optimize(task, ints(1_000))
	if err != nil {
		t.Fatal(err)
	}

	// Measurement noise aside, the routing and worker count must agree for
	// an identical workload against the cached snapshot.
	if first.Executor != second.Executor {
		t.Errorf("executors differ: %v vs %v", first.Executor, second.Executor)
	}
	if first.Workers != second.Workers {
		t.Errorf("worker counts differ: %d vs %d", first.Workers, second.Workers)
	}
}

func TestOptimizeDecisionInvariants(t *testing.T) {
	quietEnv(t)
	o := newOptimizer(config.Default())

	tasks := map[string]api.Task{
		"sleeper": sleepTask(3 * time.Millisecond),
		"instant": func(item any) (any, error) { return item, nil },
	}
	sizes := []int{0, 1, 10, 5_000}

	for name, task := range tasks {
		for _, n := range sizes {
			d, err := o.Optimize(task, ints(n))
			if err != nil {
				t.Fatalf("%s/%d: %v", name, n, err)
			}
			if err := d.Validate(); err != nil {
				t.Errorf("%s/%d: %v", name, n, err)
			}
			if n > 0 && d.Workers > 1 && d.Chunksize*d.Workers > n {
				t.Errorf("%s/%d: chunk*workers %d exceeds size", name, n, d.Chunksize*d.Workers)
			}
		}
	}
}

// --- Nested Parallelism Tests ---

func TestNestedDetectionSuppressedInTestingMode(t *testing.T) {
	quietEnv(t)
	o := newOptimizer(config.Default())

	d, err := o.Optimize(sleepTask(2*time.Millisecond), ints(200))
	if err != nil {
		t.Fatal(err)
	}
	for _, w := range d.Warnings {
		if strings.Contains(w, "nested parallelism") {
			t.Errorf("nested-parallelism warning present in testing mode: %q", w)
		}
	}
}
