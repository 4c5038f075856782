// Package achan implements the typed asynchronous channel family of
// spec.md §4.3: a bounded ring-buffered channel, the same type specialized
// to capacity zero for unbuffered rendezvous semantics, an unbounded
// message buffer, and — built on top of the shared notify-registration
// protocol — the multi-way Select coordinator.
//
// Every channel is bound to a strand at construction and is safe to call
// from any goroutine: an operation invoked off the owning strand is
// reposted onto it before touching any state, exactly the way the source
// material's co_channel/co_msg_buffer dispatch on running_in_this_thread.
package achan

import (
	"time"

	"github.com/qq587282/actorgo/actorerr"
	"github.com/qq587282/actorgo/reactor"
	"github.com/qq587282/actorgo/strand"
)

// Callback receives the outcome of a channel operation: a completion code
// and, for pops, the delivered value.
type Callback[T any] func(state actorerr.AsyncState, val T)

// VoidCallback is Callback for operations that carry no payload (push, or
// a channel of no useful element type).
type VoidCallback func(state actorerr.AsyncState)

type pushWaiter[T any] struct {
	val     T
	notify  VoidCallback
	timer   *reactor.TimerHandle
	removed bool
}

type popWaiter[T any] struct {
	notify  Callback[T]
	timer   *reactor.TimerHandle
	removed bool
}

// Channel is a typed, strand-bound pipe. Capacity 0 gives unbuffered
// rendezvous semantics (spec.md §4.3 "Unbuffered channel"); capacity > 0
// gives the bounded ring-buffer semantics (spec.md §4.3 "Channel
// (bounded)"): the invariant held at every quiescent point is "if the
// buffer is non-full, no pusher waits; if the buffer is non-empty, no
// popper waits."
type Channel[T any] struct { //nolint:govet
	strand   *strand.Strand
	capacity int

	buf []T

	pushWait []*pushWaiter[T]
	popWait  []*popWaiter[T]

	notifyList []*notifyEntry

	closed bool
}

// New creates a Channel bound to s with the given capacity. Capacity 0
// yields unbuffered rendezvous semantics.
func New[T any](s *strand.Strand, capacity int) *Channel[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Channel[T]{strand: s, capacity: capacity}
}

// SelfStrand returns the strand this channel is bound to.
func (c *Channel[T]) SelfStrand() *strand.Strand { return c.strand }

// Push enqueues val, blocking (suspending the caller's callback) until
// room is available or a popper is waiting to receive it directly.
func (c *Channel[T]) Push(val T, notify VoidCallback) {
	c.run(func() { c.push(val, notify) })
}

// TryPush attempts to enqueue val without waiting: Fail if no room and no
// waiting popper, OK otherwise.
func (c *Channel[T]) TryPush(val T, notify VoidCallback) {
	c.run(func() { c.tryPush(val, notify) })
}

// TimedPush is Push composed with a timer: Overtime if the timer fires
// before the push completes.
func (c *Channel[T]) TimedPush(d time.Duration, val T, notify VoidCallback) {
	c.run(func() { c.timedPush(d, val, notify) })
}

// Pop dequeues a value, blocking until one is available or the channel is
// closed.
func (c *Channel[T]) Pop(notify Callback[T]) {
	c.run(func() { c.pop(notify) })
}

// TryPop attempts to dequeue without waiting: Fail if nothing is
// immediately available.
func (c *Channel[T]) TryPop(notify Callback[T]) {
	c.run(func() { c.tryPop(notify) })
}

// TimedPop is Pop composed with a timer: Overtime if the timer fires
// before a value is delivered.
func (c *Channel[T]) TimedPop(d time.Duration, notify Callback[T]) {
	c.run(func() { c.timedPop(d, notify) })
}

// Close closes the channel: the buffer is discarded, and every waiting
// pusher and popper is woken with Closed (spec.md §7 "close wakes pop",
// grounded on the source's co_msg_buffer::_close clearing the buffer
// outright rather than draining it first).
func (c *Channel[T]) Close(notify VoidCallback) {
	c.run(func() {
		c.closed = true
		c.buf = nil
		c.wakeAllPush(actorerr.Closed)
		c.wakeAllPop(actorerr.Closed)
		if notify != nil {
			notify(actorerr.OK)
		}
	})
}

// Cancel wakes every currently-waiting pusher and popper with Cancel,
// without closing the channel — used to unblock operations tied to a
// generator that is itself being cancelled. It is equivalent to calling
// CancelPush and CancelPop together, matching the combined teardown the
// source material's generator performs when it drops every channel a
// cancelled frame held (generator.h's cancel() calling both halves).
func (c *Channel[T]) Cancel(notify VoidCallback) {
	c.run(func() {
		c.wakeAllPush(actorerr.Cancel)
		c.wakeAllPop(actorerr.Cancel)
		if notify != nil {
			notify(actorerr.OK)
		}
	})
}

// CancelPush wakes every currently-waiting pusher with Cancel, leaving
// poppers (and their notify registrations) untouched. This is the half of
// Cancel a generator invokes when only its push side is being torn down —
// grounded on the source material's generator.h cancel_push(), a distinct
// public method from cancel_pop().
func (c *Channel[T]) CancelPush(notify VoidCallback) {
	c.run(func() {
		c.wakeAllPush(actorerr.Cancel)
		if notify != nil {
			notify(actorerr.OK)
		}
	})
}

// CancelPop wakes every currently-waiting popper, and every registered
// AppendPopNotify observer, with Cancel, leaving pushers untouched. This is
// the half of Cancel a generator invokes when only its pop side is being
// torn down — grounded on the source material's generator.h cancel_pop(),
// a distinct public method from cancel_push().
func (c *Channel[T]) CancelPop(notify VoidCallback) {
	c.run(func() {
		c.wakeAllPop(actorerr.Cancel)
		if notify != nil {
			notify(actorerr.OK)
		}
	})
}

func (c *Channel[T]) wakeAllPush(state actorerr.AsyncState) {
	pushWait := c.pushWait
	c.pushWait = nil
	for _, w := range pushWait {
		if w.removed {
			continue
		}
		if w.timer != nil {
			w.timer.Cancel()
		}
		w.notify(state)
	}
}

func (c *Channel[T]) wakeAllPop(state actorerr.AsyncState) {
	popWait := c.popWait
	c.popWait = nil
	for _, w := range popWait {
		if w.removed {
			continue
		}
		if w.timer != nil {
			w.timer.Cancel()
		}
		var zero T
		w.notify(state, zero)
	}
	c.fireAllNotify(state)
}

// run posts f onto the channel's strand if the caller is elsewhere,
// otherwise runs it inline — the dispatch rule every operation above
// shares.
func (c *Channel[T]) run(f func()) {
	c.strand.Distribute(f)
}

func (c *Channel[T]) push(val T, notify VoidCallback) {
	if c.closed {
		notify(actorerr.Closed)
		return
	}
	if len(c.popWait) > 0 && len(c.buf) == 0 {
		w := c.popWait[0]
		c.popWait = c.popWait[1:]
		w.notify(actorerr.OK, val)
		notify(actorerr.OK)
		return
	}
	if len(c.buf) < c.capacity {
		c.buf = append(c.buf, val)
		c.fireOneNotify()
		notify(actorerr.OK)
		return
	}
	c.pushWait = append(c.pushWait, &pushWaiter[T]{val: val, notify: notify})
	if c.capacity == 0 {
		c.fireOneNotify()
	}
}

func (c *Channel[T]) tryPush(val T, notify VoidCallback) {
	if c.closed {
		notify(actorerr.Closed)
		return
	}
	if len(c.popWait) > 0 && len(c.buf) == 0 {
		w := c.popWait[0]
		c.popWait = c.popWait[1:]
		w.notify(actorerr.OK, val)
		notify(actorerr.OK)
		return
	}
	if len(c.buf) < c.capacity {
		c.buf = append(c.buf, val)
		c.fireOneNotify()
		notify(actorerr.OK)
		return
	}
	notify(actorerr.Fail)
}

func (c *Channel[T]) timedPush(d time.Duration, val T, notify VoidCallback) {
	if c.closed {
		notify(actorerr.Closed)
		return
	}
	if len(c.popWait) > 0 && len(c.buf) == 0 {
		w := c.popWait[0]
		c.popWait = c.popWait[1:]
		w.notify(actorerr.OK, val)
		notify(actorerr.OK)
		return
	}
	if len(c.buf) < c.capacity {
		c.buf = append(c.buf, val)
		c.fireOneNotify()
		notify(actorerr.OK)
		return
	}
	waiter := &pushWaiter[T]{val: val, notify: notify}
	waiter.timer = c.strand.Pool().ScheduleTimer(d, func() {
		c.strand.Distribute(func() {
			if waiter.removed || !c.removePushWaiter(waiter) {
				return
			}
			waiter.removed = true
			notify(actorerr.Overtime)
		})
	})
	c.pushWait = append(c.pushWait, waiter)
	if c.capacity == 0 {
		c.fireOneNotify()
	}
}

func (c *Channel[T]) pop(notify Callback[T]) {
	if len(c.buf) > 0 {
		v := c.buf[0]
		c.buf = c.buf[1:]
		c.admitOnePusher()
		notify(actorerr.OK, v)
		return
	}
	if c.capacity == 0 && len(c.pushWait) > 0 {
		w := c.pushWait[0]
		c.pushWait = c.pushWait[1:]
		notify(actorerr.OK, w.val)
		w.notify(actorerr.OK)
		return
	}
	if c.closed {
		var zero T
		notify(actorerr.Closed, zero)
		return
	}
	c.popWait = append(c.popWait, &popWaiter[T]{notify: notify})
}

func (c *Channel[T]) tryPop(notify Callback[T]) {
	if len(c.buf) > 0 {
		v := c.buf[0]
		c.buf = c.buf[1:]
		c.admitOnePusher()
		notify(actorerr.OK, v)
		return
	}
	if c.capacity == 0 && len(c.pushWait) > 0 {
		w := c.pushWait[0]
		c.pushWait = c.pushWait[1:]
		notify(actorerr.OK, w.val)
		w.notify(actorerr.OK)
		return
	}
	if c.closed {
		var zero T
		notify(actorerr.Closed, zero)
		return
	}
	var zero T
	notify(actorerr.Fail, zero)
}

func (c *Channel[T]) timedPop(d time.Duration, notify Callback[T]) {
	if len(c.buf) > 0 {
		v := c.buf[0]
		c.buf = c.buf[1:]
		c.admitOnePusher()
		notify(actorerr.OK, v)
		return
	}
	if c.capacity == 0 && len(c.pushWait) > 0 {
		w := c.pushWait[0]
		c.pushWait = c.pushWait[1:]
		notify(actorerr.OK, w.val)
		w.notify(actorerr.OK)
		return
	}
	if c.closed {
		var zero T
		notify(actorerr.Closed, zero)
		return
	}
	waiter := &popWaiter[T]{notify: notify}
	waiter.timer = c.strand.Pool().ScheduleTimer(d, func() {
		c.strand.Distribute(func() {
			if waiter.removed || !c.removePopWaiter(waiter) {
				return
			}
			waiter.removed = true
			var zero T
			notify(actorerr.Overtime, zero)
		})
	})
	c.popWait = append(c.popWait, waiter)
}

// admitOnePusher moves one queued pusher's value into the buffer once a
// pop freed a slot, preserving the "buffer non-full implies no pusher
// waits" invariant.
func (c *Channel[T]) admitOnePusher() {
	if len(c.pushWait) == 0 || len(c.buf) >= c.capacity {
		return
	}
	w := c.pushWait[0]
	c.pushWait = c.pushWait[1:]
	if w.timer != nil {
		w.timer.Cancel()
	}
	c.buf = append(c.buf, w.val)
	w.notify(actorerr.OK)
}

func (c *Channel[T]) removePushWaiter(target *pushWaiter[T]) bool {
	for i, w := range c.pushWait {
		if w == target {
			c.pushWait = append(c.pushWait[:i], c.pushWait[i+1:]...)
			return true
		}
	}
	return false
}

func (c *Channel[T]) removePopWaiter(target *popWaiter[T]) bool {
	for i, w := range c.popWait {
		if w == target {
			c.popWait = append(c.popWait[:i], c.popWait[i+1:]...)
			return true
		}
	}
	return false
}

// Len reports how many values are currently buffered (diagnostic only; not
// part of the blocking contract).
func (c *Channel[T]) Len() int {
	n := 0
	done := make(chan struct{})
	c.run(func() {
		n = len(c.buf)
		close(done)
	})
	<-done
	return n
}
