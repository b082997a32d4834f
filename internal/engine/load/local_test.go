package load

import (
	"math"
	"testing"

	"sparrow/internal/core/errors"
)

func TestBufferProviderReuse(t *testing.T) {
	p := newBufferProvider(1, 10)

	h := p.Acquire()
	first := h.Get()
	if p.Stats() != 1 {
		t.Errorf("Stats() = %d after acquire, want 1", p.Stats())
	}
	h.Release()
	if p.Stats() != 0 {
		t.Errorf("Stats() = %d after release, want 0", p.Stats())
	}

	h2 := p.Acquire()
	if h2.Get() != first {
		t.Error("released chunk was not reused")
	}
	h2.Release()
}

func TestBufferHandleReleaseIdempotent(t *testing.T) {
	p := newBufferProvider(0, 10)

	h := p.Acquire()
	h.Release()
	h.Release()
	if p.Stats() != 0 {
		t.Errorf("Stats() = %d after double release, want 0", p.Stats())
	}
}

func TestBufferProviderConcurrentLeases(t *testing.T) {
	p := newBufferProvider(0, 10)

	h1 := p.Acquire()
	h2 := p.Acquire()
	if h1.Get() == h2.Get() {
		t.Fatal("two live leases share one chunk")
	}
	h1.Release()
	h2.Release()

	chunks, err := p.Close()
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(chunks) != 2 {
		t.Errorf("Close surrendered %d chunks, want 2", len(chunks))
	}
}

func TestBufferProviderCloseTwice(t *testing.T) {
	p := newBufferProvider(0, 10)

	if _, err := p.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	_, err := p.Close()
	if !errors.IsCode(err, errors.CodeConflict) {
		t.Errorf("second Close error = %v, want code %s", err, errors.CodeConflict)
	}
}

func TestBufferProviderCloseWhileLeased(t *testing.T) {
	p := newBufferProvider(0, 10)

	h := p.Acquire()
	if _, err := p.Close(); !errors.IsCode(err, errors.CodeConflict) {
		t.Errorf("Close with live lease error = %v, want code %s", err, errors.CodeConflict)
	}

	// A failed Close does not seal the provider.
	h.Release()
	if _, err := p.Close(); err != nil {
		t.Errorf("Close after release: %v", err)
	}
}

func TestChunkLayout(t *testing.T) {
	c := newChunk(2, 5)
	c.append(0, 1, []float64{7}, 9.5)
	c.append(2, 3, nil, 9.5)

	if got := c.records(); got != 2 {
		t.Fatalf("records() = %d, want 2", got)
	}
	want := []int64{
		0, 1, int64(math.Float64bits(7)), int64(math.Float64bits(9.5)),
		2, 3, int64(math.Float64bits(9.5)), int64(math.Float64bits(9.5)),
	}
	if len(c.data) != len(want) {
		t.Fatalf("data length = %d, want %d", len(c.data), len(want))
	}
	for i := range want {
		if c.data[i] != want[i] {
			t.Errorf("data[%d] = %d, want %d", i, c.data[i], want[i])
		}
	}
}

func TestChunkRejectsOutOfRangeIDs(t *testing.T) {
	c := newChunk(0, 5)

	defer func() {
		if recover() == nil {
			t.Error("append beyond the node count did not panic")
		}
	}()
	c.append(5, 0, nil, 0)
}
