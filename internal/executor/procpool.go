package executor

import (
	"context"
	"encoding/gob"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/AshishBagdane/go-parallel-tuner/internal/config"
)

// The process pool launches workers by re-executing the current binary with
// PARTUNE_WORKER set and speaks length-delimited gob streams over the
// workers' stdin/stdout. Host binaries opt in by calling MaybeWorker (via the
// public tuner.WorkerMain) as the first statement of main; binaries that
// don't will fail the startup handshake. The profiler's spawn benchmark then
// falls back to the start-method default, and Run treats it as "process
// executor unavailable" and uses threads; neither reports an error.
//
// Items travel as interface values, so their concrete types must be
// registered with encoding/gob in addition to the task being registered by
// name. Common scalar and container types are pre-registered below.

// protocolVersion guards against a parent and a stale worker binary
// disagreeing about the frame layout.
const protocolVersion = 1

// defaultHandshakeTimeout bounds how long pool startup waits for a worker's
// hello frame.
const defaultHandshakeTimeout = 5 * time.Second

func init() {
	gob.Register(int(0))
	gob.Register(int32(0))
	gob.Register(int64(0))
	gob.Register(uint64(0))
	gob.Register(float32(0))
	gob.Register(float64(0))
	gob.Register(string(""))
	gob.Register(bool(false))
	gob.Register([]byte(nil))
	gob.Register([]any(nil))
	gob.Register(map[string]any(nil))
	gob.Register(time.Duration(0))
}

// workerHello is the first frame a worker writes after starting.
type workerHello struct {
	PID     int
	Version int
}

// jobRequest is a parent-to-worker frame: one chunk to run, or a shutdown
// marker.
type jobRequest struct {
	Task     string
	Index    int
	Start    int
	Items    []any
	Shutdown bool
}

// jobResponse is the worker's answer to one jobRequest. ErrIndex is the
// absolute index of the failing item, -1 when the error is not item-bound.
type jobResponse struct {
	Index    int
	Start    int
	Results  []any
	ErrMsg   string
	ErrIndex int
}

// MaybeWorker enters the worker loop and exits the process when the current
// process was launched as a pool worker; otherwise it returns false
// immediately. Host binaries call this (through tuner.WorkerMain) before any
// other work in main.
func MaybeWorker() bool {
	if os.Getenv(config.EnvWorker) == "" {
		return false
	}
	if err := RunWorkerLoop(os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "worker %d: %v\n", os.Getpid(), err)
		os.Exit(1)
	}
	os.Exit(0)
	return true
}

// RunWorkerLoop speaks the worker side of the pool protocol on r and w until
// a shutdown frame or EOF. Exported within the module so tests can drive the
// loop in-process over pipes.
func RunWorkerLoop(r io.Reader, w io.Writer) error {
	enc := gob.NewEncoder(w)
	dec := gob.NewDecoder(r)

	if err := enc.Encode(workerHello{PID: os.Getpid(), Version: protocolVersion}); err != nil {
		return fmt.Errorf("send hello: %w", err)
	}

	for {
		var req jobRequest
		if err := dec.Decode(&req); err != nil {
			if stderrors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read request: %w", err)
		}
		if req.Shutdown {
			return nil
		}
		if err := enc.Encode(runJob(req)); err != nil {
			return fmt.Errorf("send response: %w", err)
		}
	}
}

// runJob executes one chunk against the registry.
func runJob(req jobRequest) jobResponse {
	resp := jobResponse{Index: req.Index, Start: req.Start, ErrIndex: -1}

	task, ok := Lookup(req.Task)
	if !ok {
		resp.ErrMsg = fmt.Sprintf("task %q not registered in worker process", req.Task)
		return resp
	}

	results := make([]any, 0, len(req.Items))
	for i, item := range req.Items {
		out, err := task(item)
		if err != nil {
			resp.ErrMsg = err.Error()
			resp.ErrIndex = req.Start + i
			return resp
		}
		results = append(results, out)
	}
	resp.Results = results
	return resp
}

// procWorker is the parent-side handle of one worker process. A worker
// handles one request at a time; mu serializes the request/response exchange.
type procWorker struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	enc   *gob.Encoder
	dec   *gob.Decoder
	mu    sync.Mutex
}

// ProcessPool is a fixed-size pool of worker processes.
type ProcessPool struct {
	workers   []*procWorker
	closeOnce sync.Once
	closeErr  error
}

// StartProcessPool launches n workers and waits for each handshake.
// A non-positive handshakeTimeout uses the default of 5 seconds. On any
// startup failure the already-started workers are torn down and an error is
// returned; the caller decides whether that means fallback or failure.
func StartProcessPool(n int, handshakeTimeout time.Duration) (*ProcessPool, error) {
	if n < 1 {
		return nil, fmt.Errorf("process pool: worker count must be >= 1, got %d", n)
	}
	if handshakeTimeout <= 0 {
		handshakeTimeout = defaultHandshakeTimeout
	}

	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("process pool: resolve executable: %w", err)
	}

	pool := &ProcessPool{}
	for i := 0; i < n; i++ {
		w, err := startWorker(exe, handshakeTimeout)
		if err != nil {
			_ = pool.Close()
			return nil, err
		}
		pool.workers = append(pool.workers, w)
	}
	return pool, nil
}

// startWorker launches a single worker process and performs the handshake.
func startWorker(exe string, timeout time.Duration) (*procWorker, error) {
	cmd := exec.Command(exe)
	cmd.Env = append(os.Environ(), config.EnvWorker+"=1")
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("process pool: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("process pool: stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("process pool: start worker: %w", err)
	}

	w := &procWorker{
		cmd:   cmd,
		stdin: stdin,
		enc:   gob.NewEncoder(stdin),
		dec:   gob.NewDecoder(stdout),
	}

	helloCh := make(chan error, 1)
	go func() {
		var hello workerHello
		if err := w.dec.Decode(&hello); err != nil {
			helloCh <- err
			return
		}
		if hello.Version != protocolVersion {
			helloCh <- fmt.Errorf("protocol version %d, want %d", hello.Version, protocolVersion)
			return
		}
		helloCh <- nil
	}()

	select {
	case err := <-helloCh:
		if err != nil {
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
			return nil, fmt.Errorf("process pool: worker handshake: %w", err)
		}
	case <-time.After(timeout):
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, fmt.Errorf("process pool: worker handshake timed out after %s (host binary must call tuner.WorkerMain)", timeout)
	}

	return w, nil
}

// Size returns the number of workers in the pool.
func (p *ProcessPool) Size() int {
	return len(p.workers)
}

// Map dispatches the named task over items in chunks and returns the results
// in input order. Per-item failures arrive as *ItemError with the originating
// item's absolute index; the first failure stops the feed and drops the rest
// of the chunks.
//
// Like the in-process pool, each chunk writes a result slot at its own index,
// so ordering needs no reassembly pass.
func (p *ProcessPool) Map(ctx context.Context, taskName string, items []any, chunksize int) ([]any, error) {
	if len(items) == 0 {
		return []any{}, nil
	}

	chunks := BuildChunks(items, chunksize)
	results := make([]Result, len(chunks))
	feed := make(chan int)

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	var (
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			stop()
		})
	}

	var wg sync.WaitGroup
	wg.Add(len(p.workers))
	for _, w := range p.workers {
		go func(w *procWorker) {
			defer wg.Done()
			for idx := range feed {
				if err := runCtx.Err(); err != nil {
					results[idx] = Result{Index: chunks[idx].Index, Start: chunks[idx].Start, Err: err}
					continue
				}
				res := w.exchange(taskName, chunks[idx])
				results[idx] = res
				if res.Err != nil {
					fail(res.Err)
				}
			}
		}(w)
	}

feedAll:
	for i := range chunks {
		select {
		case feed <- i:
		case <-runCtx.Done():
			break feedAll
		}
	}
	close(feed)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if firstErr != nil {
		return nil, firstErr
	}

	flat := make([]any, 0, len(items))
	for _, r := range results {
		flat = append(flat, r.Out...)
	}
	return flat, nil
}

// exchange sends one chunk to the worker and reads its response.
func (w *procWorker) exchange(taskName string, chunk Chunk) Result {
	w.mu.Lock()
	defer w.mu.Unlock()

	res := Result{Index: chunk.Index, Start: chunk.Start}

	req := jobRequest{Task: taskName, Index: chunk.Index, Start: chunk.Start, Items: chunk.Items}
	if err := w.enc.Encode(req); err != nil {
		res.Err = fmt.Errorf("process pool: send chunk %d: %w", chunk.Index, err)
		return res
	}

	var resp jobResponse
	if err := w.dec.Decode(&resp); err != nil {
		res.Err = fmt.Errorf("process pool: recv chunk %d: %w", chunk.Index, err)
		return res
	}

	if resp.ErrMsg != "" {
		if resp.ErrIndex >= 0 {
			res.Err = &ItemError{Index: resp.ErrIndex, Err: stderrors.New(resp.ErrMsg)}
		} else {
			res.Err = stderrors.New(resp.ErrMsg)
		}
		return res
	}

	res.Out = resp.Results
	return res
}

// Close sends every worker a shutdown frame, closes its stdin, and waits for
// it to exit, killing stragglers after a grace period. Idempotent.
func (p *ProcessPool) Close() error {
	p.closeOnce.Do(func() {
		for _, w := range p.workers {
			w.mu.Lock()
			_ = w.enc.Encode(jobRequest{Shutdown: true})
			_ = w.stdin.Close()
			w.mu.Unlock()
		}

		for _, w := range p.workers {
			done := make(chan error, 1)
			go func(w *procWorker) { done <- w.cmd.Wait() }(w)

			select {
			case err := <-done:
				if err != nil && p.closeErr == nil {
					p.closeErr = err
				}
			case <-time.After(2 * time.Second):
				_ = w.cmd.Process.Kill()
				<-done
			}
		}
	})
	return p.closeErr
}
