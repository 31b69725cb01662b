package stealq

import "sync/atomic"

// popOrder distinguishes the two worker variants named in spec §1. It is
// the only thing that differs between them — everything else (Push,
// Capacity, Len, Stealer, Drain, Close) is the common Owner contract from
// spec §4.3.
type popOrder uint8

const (
	popFIFO popOrder = iota
	popLIFO
)

// Owner is the single-producer handle to a work-stealing queue: the only
// handle that may Push or Pop. It must not be used concurrently by two
// goroutines for mutating calls — spec §5 requires this be enforced or at
// least checked, and since Go has no move-only types, Owner checks it with
// a CAS-guarded reentrancy flag, the same mechanism go-eventloop's Loop
// uses for ErrReentrantRun in loop.go. Owner contains atomic fields, so
// `go vet`'s copylocks check already flags accidental copies after first
// use; do not work around that by taking its address repeatedly through a
// value receiver.
type Owner[T any] struct {
	c     *core[T]
	order popOrder

	inUse  atomic.Bool
	closed atomic.Bool
}

// NewFIFO creates a FIFO worker queue: the owner pops in insertion order
// (oldest first); stealers also take the oldest items. Capacity must be a
// power of two, at least 1, and at most MaxCapacity for the current
// platform's position width (see position_wide.go / position_narrow.go).
func NewFIFO[T any](capacity uint32, opts ...Option) (*Owner[T], error) {
	return newOwner[T](capacity, popFIFO, opts)
}

// NewLIFO creates a LIFO worker queue: the owner pops newest first; as
// with the FIFO variant, stealers still take the oldest items.
func NewLIFO[T any](capacity uint32, opts ...Option) (*Owner[T], error) {
	return newOwner[T](capacity, popLIFO, opts)
}

func newOwner[T any](capacity uint32, order popOrder, opts []Option) (*Owner[T], error) {
	if capacity == 0 || capacity&(capacity-1) != 0 {
		return nil, &ConstructionError{Capacity: capacity, Reason: "capacity must be a power of two"}
	}
	if capacity > maxCapacity {
		return nil, &ConstructionError{Capacity: capacity, Reason: "capacity exceeds MaxCapacity for this platform's position width"}
	}
	cfg := newConfig(opts)
	return &Owner[T]{
		c:     newCore[T](capacity, cfg.name),
		order: order,
	}, nil
}

// MaxCapacity returns the largest capacity this platform's position width
// can support, per spec §6 (2^(W-1), so generation bits dominate).
func MaxCapacity() uint32 {
	return maxCapacity
}

// Name returns the diagnostic label given via WithName, or "" if none.
func (o *Owner[T]) Name() string {
	return o.c.name
}

// Capacity returns the fixed capacity chosen at construction.
func (o *Owner[T]) Capacity() int {
	return len(o.c.buf)
}

// Len returns the number of items currently owned by this queue. It reads
// tail and head as two independent atomic loads, so under concurrent
// stealing this is an approximation — spec §4.3 calls it out explicitly as
// a lower bound, not a linearizable snapshot.
func (o *Owner[T]) Len() int {
	tail := position(o.c.tail.Load())
	realHead, _ := unpackHead(o.c.head.Load())
	return int(distance(realHead, tail))
}

func (o *Owner[T]) freeCapacity() uint32 {
	n := o.Len()
	capacity := o.Capacity()
	if n >= capacity {
		return 0
	}
	return uint32(capacity - n)
}

// enter guards against a second mutating call racing in from another
// goroutine while one is in flight. It is not a mutex: legitimate
// concurrent callers (stealers) never take this path, only misuse of the
// single-owner contract does.
func (o *Owner[T]) enter() {
	if !o.inUse.CompareAndSwap(false, true) {
		panic("stealq: concurrent call on a single-owner queue")
	}
}

func (o *Owner[T]) exit() {
	o.inUse.Store(false)
}

// Push appends v at the tail. It fails with *FullError[T] (wrapping v back
// to the caller) when occupancy already equals capacity. Push reads head to
// check occupancy but writes only the tail field, with a plain store; the
// only atomic read-modify-write it performs is the reentrancy guard's CAS.
func (o *Owner[T]) Push(v T) error {
	o.enter()
	defer o.exit()

	tail := position(o.c.tail.Load())
	realHead, _ := unpackHead(o.c.head.Load())
	if distance(realHead, tail) == o.c.capacity() {
		return &FullError[T]{Value: v}
	}
	o.c.buf[tail&o.c.capMask] = v
	o.c.tail.Store(uint32(tail + 1))
	return nil
}

// Pop removes and returns the next item per the owner's pop order: oldest
// first for a FIFO queue (spec §4.4), newest first for a LIFO queue (spec
// §4.5). It returns ErrEmpty if the queue currently holds nothing.
func (o *Owner[T]) Pop() (T, error) {
	o.enter()
	defer o.exit()

	if o.order == popFIFO {
		return o.popFIFO()
	}
	return o.popLIFO()
}

// popFIFO implements spec §4.4: load head and tail, bail if empty,
// otherwise CAS the packed head forward by one on both halves at once —
// this single RMW both reserves the slot against stealers and commits its
// removal. A stealer's reservation CAS (spec §4.6 step 5) touches the same
// word, so a race landing between this method's load and its own CAS makes
// the CAS fail and the loop retries.
//
// real_head != stealer_head in a freshly loaded snapshot means a steal has
// already reserved [real_head, stealer_head) and may still be mid-copy —
// that range is off limits until the steal's commit CAS (spec §4.6 step 7)
// brings real_head back up to stealer_head. Proposing real_head+1 against
// such a snapshot would, if nothing else touched head meanwhile, succeed
// and hand the owner a slot the stealer is still reading: the loop spins
// past that case instead of attempting the CAS, guaranteeing progress once
// the steal commits.
func (o *Owner[T]) popFIFO() (T, error) {
	var zero T
	for {
		h := o.c.head.Load()
		realHead, stealerHead := unpackHead(h)
		tail := position(o.c.tail.Load())
		if realHead == tail {
			return zero, ErrEmpty
		}
		if realHead != stealerHead {
			continue
		}
		newHead := packHead(realHead+1, stealerHead+1)
		if o.c.head.CompareAndSwap(h, newHead) {
			idx := realHead & o.c.capMask
			v := o.c.buf[idx]
			o.c.buf[idx] = zero
			return v, nil
		}
	}
}

// popLIFO implements spec §4.5. With more than one item present and no
// in-flight reservation reaching as far as the candidate slot, the owner
// can simply move tail back by one with a plain release store: no CAS is
// needed because only the owner ever writes tail. But a steal's
// reservation (spec §4.6 step 5) can cover a range up to and including
// candidate — a CountFunc is free to take every available item, per
// spec §4.6's own wording ("left to the caller's function") — in which
// case candidate is not ours alone, and the owner must defer to it the
// same way the single-item branch defers to an already-reserved last
// slot. With exactly one item left, the owner and a stealer can be
// racing for the very same slot, so that case is resolved with a single
// CAS on the packed head — the one RMW this design needs in the
// contended path, and the only one in the whole LIFO pop.
func (o *Owner[T]) popLIFO() (T, error) {
	var zero T
	tail := position(o.c.tail.Load())
	candidate := tail - 1
	h := o.c.head.Load()
	realHead, stealerHead := unpackHead(h)
	if realHead == tail {
		return zero, ErrEmpty
	}

	if distance(realHead, candidate) != 0 {
		// Multi-item case. The reservation (if any) covers
		// [real_head, stealer_head); since real_head <= stealer_head <=
		// tail always holds, stealer_head can reach candidate (= tail-1)
		// only by reaching tail exactly, i.e. a steal in flight has
		// already claimed every item up to and including candidate. In
		// that case there is nothing left for the owner to take right
		// now — treat it the same as the single-item branch's "a stealer
		// won" case and report Empty, rather than reading a slot the
		// stealer may still be mid-copy over.
		if distance(realHead, stealerHead) > distance(realHead, candidate) {
			return zero, ErrEmpty
		}
		o.c.tail.Store(uint32(candidate))
		idx := candidate & o.c.capMask
		v := o.c.buf[idx]
		o.c.buf[idx] = zero
		return v, nil
	}

	// Single-item case: real_head == candidate, the last slot. If
	// stealer_head already differs from real_head in this snapshot, a
	// steal has already reserved this very slot and may be mid-copy —
	// attempting the claim CAS against a stable snapshot like that would
	// succeed and hand the owner a slot the stealer is still reading, so
	// treat it the same as losing the race: report Empty. Otherwise claim
	// the last item by advancing both head halves to tail; if a stealer's
	// reservation CAS wins the true race instead, this CAS fails and we
	// report Empty rather than retry, matching spec §4.5's "on failure, a
	// stealer won — return empty".
	if realHead != stealerHead {
		return zero, ErrEmpty
	}
	newHead := packHead(tail, tail)
	if o.c.head.CompareAndSwap(h, newHead) {
		idx := candidate & o.c.capMask
		v := o.c.buf[idx]
		o.c.buf[idx] = zero
		return v, nil
	}
	return zero, ErrEmpty
}

// Drain moves currently-owned items into dst, in the owner's natural pop
// order, stopping when either the queue empties or dst fills. It returns
// the number of items copied. Intended for shutdown, where every
// remaining item needs to move somewhere other than "destructed in place".
func (o *Owner[T]) Drain(dst []T) int {
	n := 0
	for n < len(dst) {
		v, err := o.Pop()
		if err != nil {
			break
		}
		dst[n] = v
		n++
	}
	return n
}

// Stealer mints a new Stealer handle bound to this queue, retaining a
// reference to the shared state.
func (o *Owner[T]) Stealer() *Stealer[T] {
	o.c.retain()
	return &Stealer[T]{c: o.c}
}

// Close releases this Owner's reference to the shared state, running
// teardown if it was the last live handle. Calling Close more than once is
// a no-op. After Close, Push/Pop/Drain on this Owner are not meaningful —
// the underlying storage may already have been torn down.
func (o *Owner[T]) Close() {
	o.enter()
	defer o.exit()
	if o.closed.CompareAndSwap(false, true) {
		o.c.release()
	}
}
