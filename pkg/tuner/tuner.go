// Package tuner is the public entry point: Optimize predicts near-optimal
// parallelization parameters for "apply F to every element of D" workloads,
// and Execute runs the workload under the resulting Decision.
//
// Example:
//
//	func hashItem(item any) (any, error) { ... }
//
//	func main() {
//	    tuner.WorkerMain() // enables the process executor for this binary
//	    tuner.MustRegister("app.hash", hashItem)
//
//	    d, err := tuner.Optimize(hashItem, source.FromSlice(payloads))
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(d.Summary())
//
//	    results, err := tuner.Execute(hashItem, source.FromSlice(payloads))
//	    ...
//	}
package tuner

import (
	"context"
	"time"

	"github.com/AshishBagdane/go-parallel-tuner/internal/config"
	"github.com/AshishBagdane/go-parallel-tuner/internal/executor"
	"github.com/AshishBagdane/go-parallel-tuner/internal/optimizer"
	"github.com/AshishBagdane/go-parallel-tuner/internal/sysinfo"
	"github.com/AshishBagdane/go-parallel-tuner/pkg/api"
)

// Option configures one Optimize or Execute call.
type Option func(*config.Options)

// WithSampleSize sets how many items the dry run draws (default 5).
func WithSampleSize(n int) Option {
	return func(o *config.Options) { o.SampleSize = n }
}

// WithVerbose emits a human-readable trace of the pipeline. No effect on the
// Decision.
func WithVerbose(v bool) Option {
	return func(o *config.Options) { o.Verbose = v }
}

// WithForceWorkers overrides the computed worker count. The value is still
// validated; impossible counts are ignored with a warning.
func WithForceWorkers(n int) Option {
	return func(o *config.Options) { o.ForceWorkers = n }
}

// WithForceChunksize overrides the computed chunksize, validated the same
// way.
func WithForceChunksize(n int) Option {
	return func(o *config.Options) { o.ForceChunksize = n }
}

// WithPreferThreadsForIO routes io_bound workloads to the thread executor
// (default true).
func WithPreferThreadsForIO(v bool) Option {
	return func(o *config.Options) { o.PreferThreadsForIO = v }
}

// WithMemorySafetyFraction sets the fraction of available memory the worker
// search may budget, in (0, 1] (default 0.8).
func WithMemorySafetyFraction(f float64) Option {
	return func(o *config.Options) { o.MemorySafetyFraction = f }
}

// WithMinSpeedup sets the estimated speedup below which the tuner stays
// serial (default 1.2).
func WithMinSpeedup(f float64) Option {
	return func(o *config.Options) { o.MinSpeedup = f }
}

// WithMeasureSpawn toggles the spawn-cost benchmark; when off, the
// start-method default is used (default on).
func WithMeasureSpawn(v bool) Option {
	return func(o *config.Options) { o.MeasureSpawn = v }
}

// WithSampleTimeout sets the optional per-item dry-run budget; slower items
// are flagged but still measured.
func WithSampleTimeout(d time.Duration) Option {
	return func(o *config.Options) { o.SampleTimeout = d }
}

// FromFile loads options from a YAML or JSON file (with PARTUNE_* overrides).
// The returned Option replaces the whole option set with the loaded values:
// options listed before it in a call are discarded, options after it apply on
// top.
func FromFile(path string) (Option, error) {
	loaded, err := config.LoadFromFileWithEnv(path)
	if err != nil {
		return nil, err
	}
	return func(o *config.Options) { *o = loaded }, nil
}

// Optimize profiles the host, samples the source, dry-runs the task, and
// returns the recommended (workers, chunksize, executor) with estimates and
// the reasoning trail. It never fails on user data; the only errors are nil
// task or nil source.
func Optimize(task api.Task, src api.Source, opts ...Option) (*api.Decision, error) {
	return newOptimizer(opts).Optimize(task, src)
}

// Execute is the convenience path: Optimize, then dispatch the task over the
// reconstructed source under the Decision. Results preserve input order.
// When parallelism is declined the workload still runs, serially.
func Execute(task api.Task, src api.Source, opts ...Option) ([]any, error) {
	return ExecuteContext(context.Background(), task, src, opts...)
}

// ExecuteContext is Execute with cancellation.
func ExecuteContext(ctx context.Context, task api.Task, src api.Source, opts ...Option) ([]any, error) {
	d, err := newOptimizer(opts).Optimize(task, src)
	if err != nil {
		return nil, err
	}

	runSrc := d.Report.Reconstructed
	if runSrc == nil {
		runSrc = src
	}
	return executor.Run(ctx, d, task, runSrc)
}

// ExecuteDecision dispatches under an existing Decision, skipping the
// optimization pass. Useful when one Decision is reused across identical
// workloads.
func ExecuteDecision(ctx context.Context, d *api.Decision, task api.Task, src api.Source) ([]any, error) {
	return executor.Run(ctx, d, task, src)
}

// Register gives a task the stable name the process executor dispatches by.
// Tasks without a name never route to worker processes.
func Register(name string, task api.Task) error {
	return executor.Register(name, task)
}

// MustRegister is Register that panics on error; intended for init functions.
func MustRegister(name string, task api.Task) {
	executor.MustRegister(name, task)
}

// WorkerMain installs the process-executor worker hook. Call it first thing
// in main: in a worker process it runs the worker loop and exits, in a normal
// process it returns immediately.
func WorkerMain() {
	executor.MaybeWorker()
}

// ResetProfileCache clears the process-wide system snapshot so the next call
// re-profiles. Test-only.
func ResetProfileCache() {
	sysinfo.Reset()
}

func newOptimizer(opts []Option) *optimizer.Optimizer {
	options := config.Default()
	for _, opt := range opts {
		opt(&options)
	}
	return optimizer.New(options)
}
