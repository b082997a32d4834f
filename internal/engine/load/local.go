// # internal/engine/load/local.go
package load

import (
	"math"
	"sync"

	"sparrow/internal/core/errors"
	"sparrow/internal/shared/observability"
)

// chunk is one thread-local accumulator: a flat buffer of relationship
// records, arity int64 slots each (source, target, then one slot per
// property value stored as raw float64 bits). A chunk is only ever written
// by the thread holding its lease.
type chunk struct {
	arity     int
	nodeCount int64
	data      []int64
}

func newChunk(propertyCount int, nodeCount int64) *chunk {
	return &chunk{
		arity:     2 + propertyCount,
		nodeCount: nodeCount,
		data:      make([]int64, 0, 4096),
	}
}

// append stores one record, padding missing trailing property values with
// def. Ids must be dense internal ids from the id map; anything outside
// [0, nodeCount) is a programmer error.
func (c *chunk) append(source, target int64, values []float64, def float64) {
	if source < 0 || source >= c.nodeCount || target < 0 || target >= c.nodeCount {
		panic(errors.Newf(errors.CodeInternal,
			"relationship (%d)-->(%d) outside the declared node count %d", source, target, c.nodeCount))
	}
	c.data = append(c.data, source, target)
	for i := 0; i < c.arity-2; i++ {
		v := def
		if i < len(values) {
			v = values[i]
		}
		c.data = append(c.data, int64(math.Float64bits(v)))
	}
}

func (c *chunk) records() int64 {
	return int64(len(c.data)) / int64(c.arity)
}

// bufferProvider hands out chunks so that concurrent producers never share a
// buffer. Unlike a plain sync.Pool it retains every chunk it ever created:
// the buffered records are the whole point and must survive until Close
// drains them.
//
// Usage (inside every builder add path):
//
//	h := provider.Acquire()
//	defer h.Release()
//	h.Get().append(source, target, values)
//
// Concurrency: safe for use by multiple goroutines simultaneously.
type bufferProvider struct {
	mu     sync.Mutex
	free   []*chunk
	all    []*chunk
	leased int
	closed bool

	propertyCount int
	nodeCount     int64
}

func newBufferProvider(propertyCount int, nodeCount int64) *bufferProvider {
	return &bufferProvider{
		propertyCount: propertyCount,
		nodeCount:     nodeCount,
	}
}

// Acquire leases a free chunk, allocating one when none is available.
func (p *bufferProvider) Acquire() *bufferHandle {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		panic(errors.New(errors.CodeConflict, "acquire on closed import buffer provider"))
	}

	var c *chunk
	if n := len(p.free); n > 0 {
		c = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		c = newChunk(p.propertyCount, p.nodeCount)
		p.all = append(p.all, c)
	}
	p.leased++
	observability.BuffersLeased.Set(float64(p.leased))
	return &bufferHandle{provider: p, chunk: c}
}

func (p *bufferProvider) release(c *chunk) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.free = append(p.free, c)
	p.leased--
	observability.BuffersLeased.Set(float64(p.leased))
}

// Close seals the provider and surrenders every chunk for draining. It must
// be called exactly once; a second call, or a call while handles are still
// leased, is an error and yields no chunks.
func (p *bufferProvider) Close() ([]*chunk, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, errors.New(errors.CodeConflict, "import buffer provider already closed")
	}
	if p.leased > 0 {
		return nil, errors.Newf(errors.CodeConflict,
			"%d import buffers still leased; all producers must finish before build", p.leased)
	}
	p.closed = true
	p.free = nil
	return p.all, nil
}

// Stats returns the number of currently leased chunks.
func (p *bufferProvider) Stats() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.leased
}

// bufferHandle is a scoped lease of one chunk. Release is safe to call more
// than once; only the first call returns the chunk to the provider.
type bufferHandle struct {
	provider *bufferProvider
	chunk    *chunk
	released bool
}

func (h *bufferHandle) Get() *chunk {
	return h.chunk
}

func (h *bufferHandle) Release() {
	if h.released {
		return
	}
	h.released = true
	h.provider.release(h.chunk)
}
