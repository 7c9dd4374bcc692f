// Package sampler obtains a bounded sample from a data source without
// destroying it for the caller, and determines whether the task and its items
// can cross a process boundary.
//
// "Transferable" is the process executor's reality check: items must survive
// the gob wire codec the pool actually uses, and the task must have a
// registered name. Both checks run here so the optimizer can route
// non-transferable workloads to threads before any worker process exists.
package sampler

import (
	"encoding/gob"
	"time"

	"github.com/AshishBagdane/go-parallel-tuner/internal/memory"
)

// probeEnvelope forces the value through gob's interface encoding, the same
// path the process pool uses for chunk items. Encoding a bare concrete value
// would succeed for types that still fail inside a []any frame.
type probeEnvelope struct {
	V any
}

// EncodeProbe encodes one value through the wire codec and reports the
// encoded size and the time the encoding took. The returned error is the
// codec's verdict on transferability.
func EncodeProbe(v any) (bytes int, elapsed time.Duration, err error) {
	buf := memory.GetBuffer()
	defer memory.PutBuffer(buf)

	start := time.Now()
	err = gob.NewEncoder(buf).Encode(probeEnvelope{V: v})
	elapsed = time.Since(start)

	if err != nil {
		return 0, elapsed, err
	}
	return buf.Len(), elapsed, nil
}

// Encodable reports whether a value survives the wire codec.
func Encodable(v any) error {
	_, _, err := EncodeProbe(v)
	return err
}
