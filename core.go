package stealq

import (
	"io"
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// core is the state shared by an Owner and every Stealer cloned from it:
// the ring buffer of slots, the packed head field, the tail field, and a
// reference count used to run the one-time teardown described in spec §4.7.
//
// Re-architecture note (spec §9, "Ownership sharing"): the systems-language
// source models this as a single heap allocation with two handle kinds
// sharing ownership; Go has no such primitive, so it is modeled here as an
// atomically reference-counted object, same as any Go type shared across
// goroutines without a GC-visible cycle. The last Close() call (on the
// Owner or on any Stealer) runs teardown.
type core[T any] struct {
	buf     []T
	capMask position

	// tail and head are hot, independently-contended fields (the owner
	// writes tail on every Push and on a multi-item LIFO Pop; stealers CAS
	// head on every Steal, and the owner CASes it on every FIFO Pop and on
	// a single-item LIFO Pop). cpu.CacheLinePad keeps them on separate cache lines, the
	// ecosystem replacement for go-eventloop's hand-rolled
	// "_ [N]byte // cache line padding" fields in ingress.go and state.go.
	tail tailWord
	_    cpu.CacheLinePad
	head headWord

	refs atomic.Int64
	name string
}

func newCore[T any](capacity uint32, name string) *core[T] {
	c := &core[T]{
		buf:     make([]T, capacity),
		capMask: position(capacity - 1),
		name:    name,
	}
	c.refs.Store(1)
	return c
}

func (c *core[T]) capacity() position {
	return position(len(c.buf))
}

// retain adds one reference, called when a new Stealer handle is minted
// (Owner.Stealer, Stealer.Clone).
func (c *core[T]) retain() {
	c.refs.Add(1)
}

// release drops one reference, running teardown exactly once when the
// count reaches zero.
func (c *core[T]) release() {
	if c.refs.Add(-1) == 0 {
		c.teardown()
	}
}

// teardown destroys any slots still in [real_head, tail) — spec §4.7: all
// other slots are uninitialized storage and must not be touched. Go has no
// destructors, so this is the idiomatic analogue: zero each live slot for
// GC (same discipline as go-eventloop's returnChunk clearing task slots to
// avoid retaining stale closures) and, for item types that carry their own
// resources, invoke io.Closer.Close exactly once.
func (c *core[T]) teardown() {
	h := c.head.Load()
	realHead, _ := unpackHead(h)
	tail := position(c.tail.Load())
	var zero T
	for p := realHead; p != tail; p++ {
		idx := p & c.capMask
		if closer, ok := any(c.buf[idx]).(io.Closer); ok && closer != nil {
			_ = closer.Close()
		}
		c.buf[idx] = zero
	}
}
