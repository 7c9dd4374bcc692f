package executor

import (
	"context"
	"encoding/gob"
	"errors"
	"io"
	"testing"
	"time"
)

// --- Worker Loop Tests (in-process, over pipes) ---

// startLoopback runs the worker loop on in-process pipes and returns the
// parent-side endpoints.
func startLoopback(t *testing.T) (*procWorker, func()) {
	t.Helper()

	toWorkerR, toWorkerW := io.Pipe()
	fromWorkerR, fromWorkerW := io.Pipe()

	done := make(chan error, 1)
	go func() {
		done <- RunWorkerLoop(toWorkerR, fromWorkerW)
	}()

	w := &procWorker{
		stdin: toWorkerW,
		enc:   gob.NewEncoder(toWorkerW),
		dec:   gob.NewDecoder(fromWorkerR),
	}

	var hello workerHello
	if err := w.dec.Decode(&hello); err != nil {
		t.Fatalf("handshake decode: %v", err)
	}
	if hello.Version != protocolVersion {
		t.Fatalf("hello version = %d, want %d", hello.Version, protocolVersion)
	}

	cleanup := func() {
		_ = w.enc.Encode(jobRequest{Shutdown: true})
		_ = toWorkerW.Close()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("worker loop error: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("worker loop did not shut down")
		}
	}
	return w, cleanup
}

func TestWorkerLoopRunsChunks(t *testing.T) {
	w, cleanup := startLoopback(t)
	defer cleanup()

	res := w.exchange("test.double", Chunk{Index: 0, Start: 0, Items: []any{1, 2, 3}})
	if res.Err != nil {
		t.Fatalf("exchange error: %v", res.Err)
	}
	want := []any{2, 4, 6}
	if len(res.Out) != len(want) {
		t.Fatalf("got %d results, want %d", len(res.Out), len(want))
	}
	for i := range want {
		if res.Out[i] != want[i] {
			t.Errorf("result[%d] = %v, want %v", i, res.Out[i], want[i])
		}
	}
}

func TestWorkerLoopUnknownTask(t *testing.T) {
	w, cleanup := startLoopback(t)
	defer cleanup()

	res := w.exchange("test.nonexistent", Chunk{Index: 0, Start: 0, Items: []any{1}})
	if res.Err == nil {
		t.Fatal("expected error for unregistered task")
	}
	var itemErr *ItemError
	if errors.As(res.Err, &itemErr) {
		t.Error("registry miss should not be item-bound")
	}
}

func TestWorkerLoopItemError(t *testing.T) {
	failAt := func(item any) (any, error) {
		if item.(int) == 5 {
			return nil, errors.New("item five rejected")
		}
		return item, nil
	}
	t.Cleanup(func() {
		ResetRegistry()
		MustRegister("test.double", doubleTask)
	})
	MustRegister("test.failat", failAt)

	w, cleanup := startLoopback(t)
	defer cleanup()

	res := w.exchange("test.failat", Chunk{Index: 1, Start: 4, Items: []any{4, 5, 6}})
	var itemErr *ItemError
	if !errors.As(res.Err, &itemErr) {
		t.Fatalf("error %v is not an *ItemError", res.Err)
	}
	if itemErr.Index != 5 {
		t.Errorf("ItemError.Index = %d, want absolute index 5", itemErr.Index)
	}
}

// --- Process Pool Tests (real re-exec via TestMain hook) ---

func TestProcessPoolEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping process spawn in short mode")
	}

	pool, err := StartProcessPool(2, 10*time.Second)
	if err != nil {
		t.Fatalf("StartProcessPool() error: %v", err)
	}
	defer pool.Close()

	if pool.Size() != 2 {
		t.Errorf("Size() = %d, want 2", pool.Size())
	}

	items := make([]any, 25)
	for i := range items {
		items[i] = i
	}

	results, err := pool.Map(context.Background(), "test.double", items, 4)
	if err != nil {
		t.Fatalf("Map() error: %v", err)
	}
	if len(results) != len(items) {
		t.Fatalf("got %d results, want %d", len(results), len(items))
	}
	for i, v := range results {
		if v != i*2 {
			t.Fatalf("result[%d] = %v, want %d", i, v, i*2)
		}
	}
}

func TestProcessPoolCloseIdempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping process spawn in short mode")
	}

	pool, err := StartProcessPool(1, 10*time.Second)
	if err != nil {
		t.Fatalf("StartProcessPool() error: %v", err)
	}
	if err := pool.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
	if err := pool.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}
}

func TestStartProcessPoolRejectsBadCount(t *testing.T) {
	if _, err := StartProcessPool(0, time.Second); err == nil {
		t.Error("StartProcessPool(0) should fail")
	}
}
