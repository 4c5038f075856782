// Package timer provides the strand-facing, cancellable one-shot deadline
// used directly by application code and as a Select arm (spec.md §4.4 seed
// scenario 3: "Select over two channels with no senders, plus a 50ms timer
// case"). It is a thin, notify-protocol-compatible front end over the
// reactor pool's internal timer heap (reactor/timer.go), the way gen.Sleep
// and achan's TimedPush/TimedPop compose timers internally but don't expose
// a standalone, re-armable timer object of their own.
package timer

import (
	"time"

	"github.com/qq587282/actorgo/actorerr"
	"github.com/qq587282/actorgo/reactor"
	"github.com/qq587282/actorgo/strand"
)

// VoidCallback receives a timer's firing state: OK on a normal fire,
// Cancel if the timer was cancelled before firing.
type VoidCallback func(state actorerr.AsyncState)

// Timer is a strand-bound, one-shot, cancellable deadline. Starting it
// again before it fires replaces the pending deadline and its callback.
type Timer struct { //nolint:govet
	strand *strand.Strand
	handle *reactor.TimerHandle
	notify VoidCallback
	fired  bool
}

// New creates an unarmed Timer bound to s.
func New(s *strand.Strand) *Timer {
	return &Timer{strand: s}
}

// Start arms the timer to fire notify(OK) no earlier than d from now
// (spec.md §5: "A timer scheduled for time T fires no earlier than T").
func (t *Timer) Start(d time.Duration, notify VoidCallback) {
	t.strand.Distribute(func() {
		t.cancelLocked()
		t.fired = false
		t.notify = notify
		t.handle = t.strand.Pool().ScheduleTimer(d, func() {
			t.strand.Distribute(func() {
				if t.fired || t.notify == nil {
					return
				}
				t.fired = true
				fn := t.notify
				t.notify = nil
				fn(actorerr.OK)
			})
		})
	})
}

// Cancel retracts a pending Start, firing its notify with Cancel if it had
// not already fired. Safe to call even if the timer never started or
// already fired.
func (t *Timer) Cancel() {
	t.strand.Distribute(func() {
		t.cancelLocked()
	})
}

func (t *Timer) cancelLocked() {
	if t.handle != nil {
		t.handle.Cancel()
		t.handle = nil
	}
	if !t.fired && t.notify != nil {
		fn := t.notify
		t.notify = nil
		fn(actorerr.Cancel)
	}
	t.fired = true
}

// Reset clears a fired or cancelled timer so it can be Start-ed again
// without carrying over any stale callback.
func (t *Timer) Reset() {
	t.strand.Distribute(func() {
		t.handle = nil
		t.notify = nil
		t.fired = false
	})
}

// register is the notify-only registration primitive achan.TimerCase uses
// to admit a Timer as a Select arm: Start already delivers exactly once,
// either OK on fire or Cancel on retraction, matching the Channel notify
// protocol's contract exactly.
func (t *Timer) register(d time.Duration, ready func(state actorerr.AsyncState)) {
	t.Start(d, VoidCallback(ready))
}

// Arm starts the timer as a Select-arm registration with deadline d; the
// returned token is this Timer itself (Cancel is the matching retraction).
func (t *Timer) Arm(d time.Duration, ready func(state actorerr.AsyncState)) *Timer {
	t.register(d, ready)
	return t
}
