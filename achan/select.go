package achan

import (
	"time"

	"github.com/qq587282/actorgo/actorerr"
	"github.com/qq587282/actorgo/strand"
	"github.com/qq587282/actorgo/timer"
)

// SelectCase is one arm of a Select: a channel- or timer-agnostic handle
// built by Case[T]/MsgBufferCase/TimerCase closing over a concrete ready
// source. register arranges for ready() to be called (exactly once) when
// the arm becomes ready; unregister retracts that arrangement. The token
// type is arm-specific (a *NotifyToken for channels, the *timer.Timer
// itself for a timer arm), so it is threaded through as `any`.
type SelectCase interface {
	register(ready func(state actorerr.AsyncState)) any
	unregister(token any, done func(state actorerr.AsyncState))
}

type channelCase[T any] struct {
	ch *Channel[T]
}

func (c channelCase[T]) register(ready func(state actorerr.AsyncState)) any {
	return c.ch.AppendPopNotify(ready)
}

func (c channelCase[T]) unregister(token any, done func(state actorerr.AsyncState)) {
	c.ch.RemovePopNotify(token.(*NotifyToken), done)
}

// Case wraps a Channel as a Select arm.
func Case[T any](ch *Channel[T]) SelectCase { return channelCase[T]{ch: ch} }

// MsgBufferCase wraps a MsgBuffer as a Select arm.
func MsgBufferCase[T any](b *MsgBuffer[T]) SelectCase { return channelCase[T]{ch: b.ch} }

// timerCase adapts a timer.Timer into a Select arm with a fixed deadline,
// grounding spec.md §4.4 seed scenario 3 ("Select ... plus a 50ms timer
// case"): the timer's own Start/Cancel pair already delivers exactly once
// with OK on fire or Cancel on retraction, matching the notify protocol.
type timerCase struct {
	t *timer.Timer
	d time.Duration
}

func (c timerCase) register(ready func(state actorerr.AsyncState)) any {
	return c.t.Arm(c.d, ready)
}

func (c timerCase) unregister(token any, done func(state actorerr.AsyncState)) {
	token.(*timer.Timer).Cancel()
	done(actorerr.Cancel)
}

// TimerCase wraps a Timer, armed with deadline d, as a Select arm.
func TimerCase(t *timer.Timer, d time.Duration) SelectCase { return timerCase{t: t, d: d} }

// Select implements spec.md §4.4: a multi-way wait over a fixed set of
// channels built from the notify-only protocol and a private internal
// pump — here, a simple FIFO of ready case indices delivered under the
// select's own strand, rather than a full Channel, since the pump only
// ever needs to move an int between code already running on one strand.
//
// All cases passed to a single Select must be bound to the same strand as
// the Select itself; cross-strand selection is out of scope (spec.md §1
// non-goals: "no distributed coordination").
type Select struct { //nolint:govet
	strand *strand.Strand
	cases  []*selectArm

	pending []readyEvent
	waiter  func(ev readyEvent)
}

type selectArm struct {
	id    int
	c     SelectCase
	token any
	armed bool
}

type readyEvent struct {
	caseID int
	state  actorerr.AsyncState
}

// NewSelect creates a Select bound to s with the given cases, indexed 0..n-1
// in the order given.
func NewSelect(s *strand.Strand, cases ...SelectCase) *Select {
	sel := &Select{strand: s}
	for i, c := range cases {
		sel.cases = append(sel.cases, &selectArm{id: i, c: c})
	}
	return sel
}

// Arm registers notify-only observers on every case that isn't already
// armed (spec.md §4.4 "registration-based readiness notification"). Must be
// called on the select's strand.
func (sel *Select) Arm() {
	for _, arm := range sel.cases {
		if arm.armed {
			continue
		}
		arm.armed = true
		id := arm.id
		arm.token = arm.c.register(func(state actorerr.AsyncState) {
			sel.deliver(readyEvent{caseID: id, state: state})
		})
	}
}

// deliver runs on the select's strand (the channel's own notify dispatch
// guarantees this, since Select requires same-strand cases) and either
// wakes a pending waiter or queues the event for the next AwaitReady call.
func (sel *Select) deliver(ev readyEvent) {
	if sel.waiter != nil {
		w := sel.waiter
		sel.waiter = nil
		w(ev)
		return
	}
	sel.pending = append(sel.pending, ev)
}

// AwaitReady hands back the next ready case id and its notify state via
// resume, once one is available, suspending (by not calling resume
// synchronously) if none is queued yet. Callers compose this with
// gen.Gen's AsyncHandler/Await, or poll it directly from any strand-bound
// callback.
func (sel *Select) AwaitReady(resume func(caseID int, state actorerr.AsyncState)) {
	sel.strand.Distribute(func() {
		if len(sel.pending) > 0 {
			ev := sel.pending[0]
			sel.pending = sel.pending[1:]
			resume(ev.caseID, ev.state)
			return
		}
		sel.waiter = func(ev readyEvent) { resume(ev.caseID, ev.state) }
	})
}

// Disarm retracts every case's registration except winner (the case a
// caller just serviced), which it assumes has already naturally settled
// (its notify already fired). Safe to call even if some cases were never
// armed.
func (sel *Select) Disarm(winner int, done func()) {
	sel.strand.Distribute(func() {
		remaining := len(sel.cases)
		if remaining == 0 {
			if done != nil {
				done()
			}
			return
		}
		settle := func() {
			remaining--
			if remaining == 0 && done != nil {
				done()
			}
		}
		for _, arm := range sel.cases {
			if !arm.armed {
				settle()
				continue
			}
			arm.armed = false
			if arm.id == winner {
				settle()
				continue
			}
			arm.c.unregister(arm.token, func(actorerr.AsyncState) { settle() })
		}
	})
}

// Reset clears queued-but-unconsumed ready events, for reuse in a looping
// select (spec.md §4.4 "builds a one-shot or looping multi-way wait").
func (sel *Select) Reset() {
	sel.strand.Distribute(func() {
		sel.pending = nil
		sel.waiter = nil
	})
}
