package achan

import (
	"time"

	"github.com/qq587282/actorgo/actorerr"
	"github.com/qq587282/actorgo/strand"
)

// MsgBuffer is the unbounded variant of Channel: push never waits (it
// always succeeds unless the buffer is closed), matching spec.md §4.3
// "Message buffer. Unbounded variant: no push-side waiting; push always
// succeeds (unless closed)." It is implemented as a Channel with an
// unbounded capacity rather than a separate algorithm, since the only
// difference from the bounded case is that the "buffer full" branch is
// unreachable.
type MsgBuffer[T any] struct {
	ch *Channel[T]
}

// NewMsgBuffer creates an unbounded message buffer bound to s.
func NewMsgBuffer[T any](s *strand.Strand) *MsgBuffer[T] {
	return &MsgBuffer[T]{ch: New[T](s, unboundedCapacity)}
}

// unboundedCapacity is large enough that the "buffer full" branch in
// Channel's push/tryPush/timedPush is never taken in practice, giving
// MsgBuffer its no-push-side-waiting contract for free.
const unboundedCapacity = int(^uint(0) >> 1)

func (b *MsgBuffer[T]) SelfStrand() *strand.Strand { return b.ch.SelfStrand() }

// Push always succeeds unless the buffer is closed.
func (b *MsgBuffer[T]) Push(val T, notify VoidCallback) { b.ch.Push(val, notify) }

func (b *MsgBuffer[T]) Pop(notify Callback[T])                       { b.ch.Pop(notify) }
func (b *MsgBuffer[T]) TryPop(notify Callback[T])                    { b.ch.TryPop(notify) }
func (b *MsgBuffer[T]) TimedPop(d time.Duration, notify Callback[T]) { b.ch.TimedPop(d, notify) }

func (b *MsgBuffer[T]) Close(notify VoidCallback)  { b.ch.Close(notify) }
func (b *MsgBuffer[T]) Cancel(notify VoidCallback) { b.ch.Cancel(notify) }

// CancelPop wakes every waiting popper and registered notify with Cancel.
// There is no CancelPush counterpart: MsgBuffer never has a waiting pusher
// to wake (push always succeeds unless the buffer is closed).
func (b *MsgBuffer[T]) CancelPop(notify VoidCallback) { b.ch.CancelPop(notify) }

func (b *MsgBuffer[T]) AppendPopNotify(fn func(state actorerr.AsyncState)) *NotifyToken {
	return b.ch.AppendPopNotify(fn)
}

func (b *MsgBuffer[T]) RemovePopNotify(token *NotifyToken, notify VoidCallback) {
	b.ch.RemovePopNotify(token, notify)
}

func (b *MsgBuffer[T]) Len() int { return b.ch.Len() }
