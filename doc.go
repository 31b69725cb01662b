// Package stealq implements a pair of fixed-capacity, lock-free,
// single-producer / multi-consumer work-stealing queues, intended as the
// per-worker queues of an M:N task scheduler.
//
// One goroutine (the "owner") performs local Push and Pop; any number of
// other goroutines ("stealers") concurrently remove items in bulk via
// [Stealer.Steal] and deposit them into their own worker queue. Two pop
// orders are available from [NewFIFO] and [NewLIFO]; stealers always take
// the oldest items regardless of the owner's variant.
//
// The algorithm is described in detail on [Owner] and [Stealer]. Push,
// LIFO Pop and the reservation step of Steal either complete or return one
// of [ErrEmpty], [ErrBusy], or a [*FullError] without retrying. A FIFO Pop
// that finds a steal's reservation open spins until that steal commits, and
// Steal's commit step retries its CAS until it succeeds. There is no
// parking, no condition variables, and no unbounded growth; capacity is
// fixed at construction and must be a power of two.
package stealq
