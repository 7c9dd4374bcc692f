package api

// Source is the data collection a Task is mapped over. It is a closed variant:
// every Source is either a Finite (indexable, known length) or a Lazy
// (single-pass iterator). Consumers type-switch on the two sub-interfaces.
//
// Ownership: a Source handed to the optimizer is borrowed for the duration of
// the call. For a Lazy source the optimizer consumes a bounded prefix and
// returns a reconstructed Source that replays the consumed items before
// delegating to the original, so the caller still observes every item exactly
// once, in order.
type Source interface {
	// SinglePass reports whether the source can only be iterated once.
	SinglePass() bool
}

// Finite is an indexable source with a known length. Sampling a Finite source
// is non-destructive: the reconstructed source is the original.
type Finite interface {
	Source

	// Len returns the number of items.
	Len() int

	// Item returns the item at index i. Panics if i is out of range,
	// mirroring slice semantics.
	Item(i int) any
}

// Lazy is a single-pass source. Next returns the next item and true, or a zero
// value and false once the source is exhausted. Next is not required to be
// safe for concurrent use; the optimizer and executors call it from a single
// goroutine.
type Lazy interface {
	Source

	Next() (any, bool)
}
