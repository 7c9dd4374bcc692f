// Package memory provides small allocation-reuse helpers for the hot
// measurement paths.
package memory

import (
	"bytes"
	"sync"
)

// BufferPool pools bytes.Buffer instances for the codec probes, which encode
// every sampled item and result and would otherwise allocate a fresh buffer
// per probe. Safe for concurrent use.
type BufferPool struct {
	pool sync.Pool
}

var globalPool = NewBufferPool()

// NewBufferPool creates a new BufferPool.
func NewBufferPool() *BufferPool {
	return &BufferPool{
		pool: sync.Pool{
			New: func() any {
				return new(bytes.Buffer)
			},
		},
	}
}

// Get retrieves an empty buffer from the pool.
func (p *BufferPool) Get() *bytes.Buffer {
	return p.pool.Get().(*bytes.Buffer)
}

// Put resets the buffer and returns it to the pool. Oversized buffers are
// dropped so one huge item doesn't pin memory for the rest of the process.
func (p *BufferPool) Put(b *bytes.Buffer) {
	if b == nil {
		return
	}
	const maxRetained = 1 << 20
	if b.Cap() > maxRetained {
		return
	}
	b.Reset()
	p.pool.Put(b)
}

// GetBuffer is a helper to get from the global pool.
func GetBuffer() *bytes.Buffer {
	return globalPool.Get()
}

// PutBuffer is a helper to return to the global pool.
func PutBuffer(b *bytes.Buffer) {
	globalPool.Put(b)
}
