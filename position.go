package stealq

import "sync/atomic"

// tailWord is the atomic type backing the tail field. Positions always fit
// in 32 bits regardless of build (position is uint32 on the wide build,
// uint16 on the narrow one), so a single concrete width suffices here; only
// the packed head field needs per-build widening.
type tailWord = atomic.Uint32

// distance returns how many slots lie between a and b going forward, using
// wrapping subtraction: distance(a, b) = (b - a) mod 2^W. This is the whole
// of the ABA defense described in spec §4.2 — generation bits above
// log2(N) turn over only after roughly 2^(W-log2(N)) push/pop cycles, so a
// stealer preempted for any shorter interval observes a different position
// than its cached value and bails rather than acting on stale state.
//
// distance is only meaningful where the design guarantees 0 <= result <= N;
// callers never invoke it on positions that could legitimately be more
// than a capacity apart.
func distance(a, b position) position {
	return b - a
}
