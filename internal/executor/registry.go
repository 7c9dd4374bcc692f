package executor

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/AshishBagdane/go-parallel-tuner/pkg/api"
)

// The registry maps stable names to tasks. Worker processes cannot receive
// function values over the wire, so the process pool dispatches by name and
// both sides of the re-exec resolve the name through this registry. A task
// without a registered name is therefore not process-transferable; the
// sampler reports that and the optimizer routes to threads or serial.
//
// Identity is the task function's code pointer. Closures created from the
// same function literal share a code pointer, so tasks intended for process
// execution should be top-level functions, not capturing closures.

var registry = struct {
	mu     sync.RWMutex
	byName map[string]api.Task
	names  map[uintptr]string
}{
	byName: make(map[string]api.Task),
	names:  make(map[uintptr]string),
}

// Register associates a task with a stable name for process dispatch.
// Registration normally happens from init functions or early in main, before
// any optimization call, so the same name resolves in re-exec'd workers.
//
// Returns an error if the task is nil or the name is already taken by a
// different task. Re-registering the same task under the same name is a
// no-op.
func Register(name string, task api.Task) error {
	if task == nil {
		return fmt.Errorf("executor: cannot register nil task %q", name)
	}
	if name == "" {
		return fmt.Errorf("executor: task name must not be empty")
	}

	ptr := reflect.ValueOf(task).Pointer()

	registry.mu.Lock()
	defer registry.mu.Unlock()

	if existing, ok := registry.byName[name]; ok {
		if reflect.ValueOf(existing).Pointer() == ptr {
			return nil
		}
		return fmt.Errorf("executor: task name %q already registered", name)
	}

	registry.byName[name] = task
	registry.names[ptr] = name
	return nil
}

// MustRegister is Register that panics on error. Intended for init functions,
// where a registration failure is a programmer error.
func MustRegister(name string, task api.Task) {
	if err := Register(name, task); err != nil {
		panic(err)
	}
}

// Lookup resolves a registered task by name.
func Lookup(name string) (api.Task, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	task, ok := registry.byName[name]
	return task, ok
}

// NameOf returns the registered name for a task, if any.
func NameOf(task api.Task) (string, bool) {
	if task == nil {
		return "", false
	}

	registry.mu.RLock()
	defer registry.mu.RUnlock()
	name, ok := registry.names[reflect.ValueOf(task).Pointer()]
	return name, ok
}

// ResetRegistry clears all registrations. Test-only.
func ResetRegistry() {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.byName = make(map[string]api.Task)
	registry.names = make(map[uintptr]string)
}
