package stealq

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConservation_OwnerPopsRaceStealers is the general form of the
// "Conservation" and "Exclusion" properties from spec §8: across a run
// mixing owner pops and concurrent steals, the multiset of items ever
// pushed must equal exactly the multiset observed across every pop and
// every stolen destination, with nothing seen twice and nothing lost.
func TestConservation_OwnerPopsRaceStealers(t *testing.T) {
	for _, order := range []popOrder{popFIFO, popLIFO} {
		order := order
		t.Run(orderName(order), func(t *testing.T) {
			const (
				items    = 2000
				stealers = 4
			)
			o := mustNewOwner[int](t, 2048, order)
			for i := 0; i < items; i++ {
				require.NoError(t, o.Push(i))
			}

			dests := make([]*Owner[int], stealers)
			for i := range dests {
				dests[i] = mustNewOwner[int](t, 256, popFIFO)
			}
			base := o.Stealer()

			var wg sync.WaitGroup
			var ownerPopped int64
			var ownerValues []int
			ownerDone := make(chan struct{})
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer close(ownerDone)
				for {
					if v, err := o.Pop(); err == nil {
						atomic.AddInt64(&ownerPopped, 1)
						ownerValues = append(ownerValues, v)
					} else {
						return
					}
				}
			}()

			wg.Add(stealers)
			for i := 0; i < stealers; i++ {
				s := base
				if i > 0 {
					s = base.Clone()
				}
				dest := dests[i]
				go func(s *Stealer[int], dest *Owner[int]) {
					defer wg.Done()
					for {
						select {
						case <-ownerDone:
							for {
								if _, err := s.Steal(dest, func(n uint32) uint32 { return n }); err != nil {
									return
								}
							}
						default:
							_, _ = s.Steal(dest, func(n uint32) uint32 { return (n + 1) / 2 })
						}
					}
				}(s, dest)
			}

			wg.Wait()

			seen := make([]int, items)
			record := func(v int) {
				seen[v]++
			}
			for _, v := range ownerValues {
				record(v)
			}
			drainAll(t, o, record)
			for _, d := range dests {
				drainAll(t, d, record)
			}

			for v, count := range seen {
				assert.Equalf(t, 1, count, "item %d observed %d times", v, count)
			}
		})
	}
}

// TestFIFO_PopWaitsForInFlightSteal pins down the fix to a race that the
// literal reading of spec §4.4's steps (a single unconditional CAS
// advancing both head halves by one) permits: if a steal has already
// reserved [real_head, stealer_head) and is mid-copy, an owner pop that
// doesn't check for that reservation first could CAS straight past it
// using a stable snapshot, handing itself a slot the stealer is still
// reading. Pop must instead spin until the reservation commits and only
// then take the next unreserved item.
func TestFIFO_PopWaitsForInFlightSteal(t *testing.T) {
	o, err := NewFIFO[int](8)
	require.NoError(t, err)
	for _, v := range []int{1, 2, 3, 4} {
		require.NoError(t, o.Push(v))
	}

	// Simulate a stealer that has reserved the first two slots (spec §4.6
	// step 5) but not yet committed (step 7) — head is stable in this
	// state for as long as the test holds it there.
	h := o.c.head.Load()
	realHead, stealerHead := unpackHead(h)
	require.True(t, o.c.head.CompareAndSwap(h, packHead(realHead, stealerHead+2)))

	popDone := make(chan int, 1)
	go func() {
		v, err := o.Pop()
		if err != nil {
			return
		}
		popDone <- v
	}()

	select {
	case <-popDone:
		t.Fatal("Pop returned while a steal reservation on its own slot was still open")
	case <-time.After(20 * time.Millisecond):
	}

	// Commit the simulated reservation, as the stealer's step 7 would.
	ch := o.c.head.Load()
	cRealHead, cStealerHead := unpackHead(ch)
	require.True(t, o.c.head.CompareAndSwap(ch, packHead(cRealHead+2, cStealerHead)))

	select {
	case v := <-popDone:
		assert.Equal(t, 3, v, "Pop must resume past the reserved range, not into it")
	case <-time.After(time.Second):
		t.Fatal("Pop did not make progress after the reservation committed")
	}
}

func orderName(o popOrder) string {
	if o == popFIFO {
		return "FIFO"
	}
	return "LIFO"
}

func mustNewOwner[T any](t *testing.T, capacity uint32, order popOrder) *Owner[T] {
	t.Helper()
	o, err := newOwner[T](capacity, order, nil)
	require.NoError(t, err)
	return o
}

func drainAll(t *testing.T, o *Owner[int], record func(int)) {
	t.Helper()
	for {
		v, err := o.Pop()
		if err != nil {
			return
		}
		record(v)
	}
}

// TestOwnerOrder_FIFOUnderConcurrentSteal checks spec §8 property 3: FIFO
// pops return items in push order modulo whatever was stolen out from
// under them — i.e. the relative order of everything the owner itself
// pops is preserved even while stealers are concurrently removing a
// disjoint prefix.
func TestOwnerOrder_FIFOUnderConcurrentSteal(t *testing.T) {
	o := mustNewOwner[int](t, 256, popFIFO)
	for i := 0; i < 200; i++ {
		require.NoError(t, o.Push(i))
	}

	dest := mustNewOwner[int](t, 256, popFIFO)
	stealer := o.Stealer()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_, _ = stealer.Steal(dest, func(n uint32) uint32 {
				if n == 0 {
					return 0
				}
				return 1
			})
		}
	}()

	var last = -1
	for {
		v, err := o.Pop()
		if err != nil {
			break
		}
		assert.Greater(t, v, last, "owner pops must remain strictly increasing")
		last = v
	}
	wg.Wait()
}
