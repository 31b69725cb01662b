package stealq

import (
	"errors"
	"fmt"
)

// Standard errors. Mirrors the sentinel-error convention used throughout
// this module's sibling packages (e.g. go-eventloop's ErrLoopAlreadyRunning,
// ErrReentrantRun): package-level errors.New values for conditions with no
// associated data, and dedicated types below for conditions that carry a
// payload back to the caller.
var (
	// ErrEmpty is returned by Pop and Steal when no items are available.
	ErrEmpty = errors.New("stealq: queue is empty")

	// ErrBusy is returned by Steal when another steal is already in
	// progress on the same source queue, or when the head CAS it depends
	// on loses a bounded race against a concurrent steal or FIFO pop.
	ErrBusy = errors.New("stealq: steal already in progress on source queue")

	// ErrSameQueue is returned by Steal when the destination owner is the
	// same queue as the source; spec left this case to be rejected or
	// documented as a no-op, this package rejects it.
	ErrSameQueue = errors.New("stealq: steal destination must not be the source queue")
)

// FullError is returned by Push when occupancy equals capacity. Value holds
// the item that could not be enqueued, so no element is ever dropped
// silently; the caller decides whether to retry, redirect, or discard it.
type FullError[T any] struct {
	Value T
}

func (e *FullError[T]) Error() string {
	return "stealq: queue is full"
}

// ConstructionError is returned by NewFIFO and NewLIFO when the requested
// capacity is not a power of two, or exceeds MaxCapacity for the platform's
// position width.
type ConstructionError struct {
	Capacity uint32
	Reason   string
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("stealq: invalid capacity %d: %s", e.Capacity, e.Reason)
}
