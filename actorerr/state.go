// Package actorerr defines the completion-code taxonomy and cause-chain
// compatible error types shared by every subsystem of actorgo: strands,
// generators, channels, mutexes, timers, and sockets all report completion
// through these types rather than through panics across suspension points.
package actorerr

import "fmt"

// AsyncState is the completion code for an asynchronous channel, mutex, or
// timer-composed operation. Every suspension in actorgo resolves to exactly
// one of these values; there are no exceptions across generator suspension
// points (spec.md §7).
type AsyncState int

const (
	// OK indicates the operation completed normally, handing off or
	// receiving a value (or, for close, succeeding).
	OK AsyncState = iota
	// Fail indicates the operation could not complete (e.g. a non-blocking
	// try-variant found no counterparty).
	Fail
	// Cancel indicates the waiter was woken by a cancellation (stop(),
	// cancel_push/cancel_pop) without the channel being closed.
	Cancel
	// Closed indicates the channel, mutex, or socket was closed; further
	// operations keep returning Closed until the object is destroyed or
	// reset.
	Closed
	// Overtime indicates a timer composed with the operation fired before
	// the operation itself completed.
	Overtime
)

// String implements fmt.Stringer.
func (s AsyncState) String() string {
	switch s {
	case OK:
		return "ok"
	case Fail:
		return "fail"
	case Cancel:
		return "cancel"
	case Closed:
		return "closed"
	case Overtime:
		return "overtime"
	default:
		return fmt.Sprintf("AsyncState(%d)", int(s))
	}
}

// IOResult is the completion shape for socket operations (spec.md §6):
// a byte count, an OS-shaped error, and a redundant-but-convenient OK flag
// (true iff Err is nil and the op was not cut short by a timeout).
type IOResult struct {
	N   int
	Err error
	OK  bool
}

// TimedOut reports whether this result represents a timeout-closed
// operation, per the "every timed close-on-timeout path" rule in spec.md §4.7.
func (r IOResult) TimedOut() bool {
	return !r.OK && r.Err == ErrTimedOut
}
