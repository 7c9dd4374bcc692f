// Command example demonstrates the full tuning pipeline: register a task,
// install the worker hook, tune a CPU-heavy workload, and execute it under
// the resulting decision.
package main

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"log"

	"go.uber.org/automaxprocs/maxprocs"

	"github.com/AshishBagdane/go-parallel-tuner/pkg/source"
	"github.com/AshishBagdane/go-parallel-tuner/pkg/tuner"
)

// hashRounds makes one item expensive enough for parallelism to matter.
const hashRounds = 20_000

// hashItem repeatedly hashes its input. Top-level function: registered by
// name, so it is eligible for the process executor.
func hashItem(item any) (any, error) {
	n, ok := item.(int)
	if !ok {
		return nil, fmt.Errorf("hash: item %T is not an int", item)
	}

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(n))
	sum := sha256.Sum256(buf[:])
	for i := 0; i < hashRounds; i++ {
		sum = sha256.Sum256(sum[:])
	}
	return sum[:], nil
}

func init() {
	tuner.MustRegister("example.hash", hashItem)
}

func main() {
	// Must run before anything else: in a re-exec'd worker process this
	// enters the worker loop and never returns.
	tuner.WorkerMain()

	// Respect container CPU quotas when sizing GOMAXPROCS.
	undo, err := maxprocs.Set(maxprocs.Logger(log.Printf))
	if err != nil {
		log.Printf("maxprocs: %v", err)
	}
	defer undo()

	items := make([]int, 2_000)
	for i := range items {
		items[i] = i
	}

	decision, err := tuner.Optimize(hashItem, source.FromSlice(items), tuner.WithVerbose(true))
	if err != nil {
		log.Fatalf("optimize: %v", err)
	}
	fmt.Println(decision.Summary())

	results, err := tuner.Execute(hashItem, source.FromSlice(items))
	if err != nil {
		log.Fatalf("execute: %v", err)
	}
	fmt.Printf("hashed %d items under %s executor\n", len(results), decision.Executor)
}
