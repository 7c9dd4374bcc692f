// Package source provides ready-made Source adapters for common data shapes:
// slices (finite), iterator functions and channels (lazy), CSV streams, and
// database rows. Anything implementing api.Finite or api.Lazy works with the
// optimizer; these adapters cover the usual cases.
package source

import (
	"github.com/AshishBagdane/go-parallel-tuner/pkg/api"
)

// Slice is a Finite source backed by a []any.
type Slice struct {
	items []any
}

// FromSlice adapts a typed slice into a Finite source. The slice is boxed
// once up front; the source borrows it and must not be mutated concurrently.
func FromSlice[T any](items []T) *Slice {
	boxed := make([]any, len(items))
	for i, v := range items {
		boxed[i] = v
	}
	return &Slice{items: boxed}
}

// FromAny adapts an already-boxed []any without copying.
func FromAny(items []any) *Slice {
	return &Slice{items: items}
}

// SinglePass reports false; slices can be iterated repeatedly.
func (s *Slice) SinglePass() bool { return false }

// Len returns the number of items.
func (s *Slice) Len() int { return len(s.items) }

// Item returns the item at index i.
func (s *Slice) Item(i int) any { return s.items[i] }

// Func is a Lazy source driven by a pull function.
type Func struct {
	next func() (any, bool)
}

// FromFunc adapts a pull function into a Lazy source. The function returns
// the next item and true, or false when exhausted; it is called from a single
// goroutine.
func FromFunc(next func() (any, bool)) *Func {
	return &Func{next: next}
}

// SinglePass reports true.
func (f *Func) SinglePass() bool { return true }

// Next pulls the next item.
func (f *Func) Next() (any, bool) { return f.next() }

// Chan is a Lazy source draining a channel.
type Chan[T any] struct {
	ch <-chan T
}

// FromChan adapts a receive channel into a Lazy source. The source is
// exhausted when the channel closes.
func FromChan[T any](ch <-chan T) *Chan[T] {
	return &Chan[T]{ch: ch}
}

// SinglePass reports true.
func (c *Chan[T]) SinglePass() bool { return true }

// Next receives the next item, blocking until one arrives or the channel
// closes.
func (c *Chan[T]) Next() (any, bool) {
	v, ok := <-c.ch
	return v, ok
}

// Collect drains any source into a typed slice. Items that are not T are
// skipped; use it in tests and small tools, not hot paths.
func Collect[T any](src api.Source) []T {
	var out []T
	switch s := src.(type) {
	case api.Finite:
		for i := 0; i < s.Len(); i++ {
			if v, ok := s.Item(i).(T); ok {
				out = append(out, v)
			}
		}
	case api.Lazy:
		for {
			item, ok := s.Next()
			if !ok {
				break
			}
			if v, ok := item.(T); ok {
				out = append(out, v)
			}
		}
	}
	return out
}
