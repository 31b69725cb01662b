package stealq

import "sync/atomic"

// Stealer is a cloneable, thread-safe handle that bulk-removes items from
// the front of a source queue and deposits them into a destination Owner's
// queue. Any number of Stealers, cloned from the same or different Owners,
// may exist and operate concurrently; Steal enforces mutual exclusion
// between them itself, via the packed head field, so no external
// synchronization is required.
type Stealer[T any] struct {
	c      *core[T]
	closed atomic.Bool
}

// Clone returns a new Stealer bound to the same source queue, retaining a
// reference to the shared state. The clone is independent: closing one
// does not affect the other, and both may steal concurrently (competing
// for reservations exactly as any other pair of stealers would).
func (s *Stealer[T]) Clone() *Stealer[T] {
	s.c.retain()
	return &Stealer[T]{c: s.c}
}

// Name returns the source queue's diagnostic label, or "" if none.
func (s *Stealer[T]) Name() string {
	return s.c.name
}

// IsEmpty reports whether the source queue currently appears to hold no
// items. Approximate: under concurrent pushes or pops this can be stale
// the instant it returns, same caveat as go-eventloop's
// MicrotaskRing.IsEmpty ("may have false negatives under concurrent
// modification").
func (s *Stealer[T]) IsEmpty() bool {
	tail := position(s.c.tail.Load())
	realHead, _ := unpackHead(s.c.head.Load())
	return realHead == tail
}

// CountFunc decides, given the number of items currently observed as
// stealable, how many to actually take. The library clamps the result
// both to the observed count and to the destination's free capacity;
// CountFunc receives the pre-clamp count, per spec §9's resolution of that
// open question ("the specification fixes it to pre-clamp").
type CountFunc func(available uint32) uint32

// Steal implements spec §4.6. It is a two-phase reservation protocol:
//
//  1. Load the packed head; if stealer_head != real_head, another steal is
//     already in flight on this source, so return ErrBusy without any RMW.
//  2. Load tail; if the source is empty, return ErrEmpty.
//  3. Ask countFn how many of the available items to take, then clamp that
//     to dest's free capacity.
//  4. CAS the packed head to advance stealer_head by k, reserving
//     [real_head, real_head+k) exclusively against every other actor —
//     including the source's own FIFO owner pop, which CASes the same
//     word. A losing CAS here (another stealer or the owner raced in
//     first) returns ErrBusy.
//  5. Copy the k reserved items into dest's tail region and publish dest's
//     new tail with a release store — at this point no further
//     synchronization is needed per item, since the reservation already
//     grants exclusive read rights over the range.
//  6. CAS real_head forward to match stealer_head, committing the steal
//     and releasing the reservation.
//
// dest must not be the same queue as the one this Stealer was minted from
// (ErrSameQueue); spec leaves same-queue stealing unspecified and this
// package rejects it rather than defining a silent no-op.
func (s *Stealer[T]) Steal(dest *Owner[T], countFn CountFunc) (uint32, error) {
	if s.c == dest.c {
		return 0, ErrSameQueue
	}

	h := s.c.head.Load()
	realHead, stealerHead := unpackHead(h)
	if realHead != stealerHead {
		return 0, ErrBusy
	}

	tail := position(s.c.tail.Load())
	available := distance(realHead, tail)
	if available == 0 {
		return 0, ErrEmpty
	}

	k := countFn(uint32(available))
	if k > uint32(available) {
		k = uint32(available)
	}
	if free := dest.freeCapacity(); k > free {
		k = free
	}
	if k == 0 {
		return 0, nil
	}

	newHead := packHead(realHead, stealerHead+position(k))
	if !s.c.head.CompareAndSwap(h, newHead) {
		return 0, ErrBusy
	}

	destTail := position(dest.c.tail.Load())
	var zero T
	for i := position(0); i < position(k); i++ {
		srcIdx := (realHead + i) & s.c.capMask
		dest.c.buf[(destTail+i)&dest.c.capMask] = s.c.buf[srcIdx]
		s.c.buf[srcIdx] = zero
	}
	dest.c.tail.Store(uint32(destTail + position(k)))

	for {
		ch := s.c.head.Load()
		cRealHead, cStealerHead := unpackHead(ch)
		commit := packHead(cRealHead+position(k), cStealerHead)
		if s.c.head.CompareAndSwap(ch, commit) {
			break
		}
	}

	return k, nil
}

// Close releases this Stealer's reference to the shared state, running
// teardown if it was the last live handle. Calling Close more than once is
// a no-op.
func (s *Stealer[T]) Close() {
	if s.closed.CompareAndSwap(false, true) {
		s.c.release()
	}
}
