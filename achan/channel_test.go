package achan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qq587282/actorgo/actorerr"
	"github.com/qq587282/actorgo/reactor"
	"github.com/qq587282/actorgo/strand"
)

func newTestStrand(t *testing.T) *strand.Strand {
	p := reactor.New(reactor.WithWorkers(4))
	t.Cleanup(p.Shutdown)
	return strand.New(p)
}

func TestChannelPushThenPopOnEmptyOpenChannelRoundTrips(t *testing.T) {
	s := newTestStrand(t)
	ch := New[int](s, 4)

	pushed := make(chan struct{})
	ch.Push(42, func(state actorerr.AsyncState) {
		require.Equal(t, actorerr.OK, state)
		close(pushed)
	})
	<-pushed

	popped := make(chan struct{})
	ch.Pop(func(state actorerr.AsyncState, v int) {
		assert.Equal(t, actorerr.OK, state)
		assert.Equal(t, 42, v)
		close(popped)
	})
	<-popped

	assert.Equal(t, 0, ch.Len())
}

func TestChannelPopBlocksUntilPush(t *testing.T) {
	s := newTestStrand(t)
	ch := New[string](s, 2)

	popped := make(chan string, 1)
	ch.Pop(func(state actorerr.AsyncState, v string) {
		popped <- v
	})

	select {
	case <-popped:
		t.Fatal("pop resolved before any push")
	case <-time.After(50 * time.Millisecond):
	}

	ch.Push("hello", func(actorerr.AsyncState) {})
	select {
	case v := <-popped:
		assert.Equal(t, "hello", v)
	case <-time.After(2 * time.Second):
		t.Fatal("pop never resumed after push")
	}
}

func TestUnbufferedChannelRendezvous(t *testing.T) {
	s := newTestStrand(t)
	ch := New[int](s, 0)

	pushResult := make(chan actorerr.AsyncState, 1)
	ch.Push(7, func(state actorerr.AsyncState) { pushResult <- state })

	// push must wait: no popper yet, capacity 0 means no buffering.
	select {
	case <-pushResult:
		t.Fatal("unbuffered push completed without a waiting popper")
	case <-time.After(50 * time.Millisecond):
	}

	popResult := make(chan int, 1)
	ch.Pop(func(state actorerr.AsyncState, v int) {
		assert.Equal(t, actorerr.OK, state)
		popResult <- v
	})

	select {
	case v := <-popResult:
		assert.Equal(t, 7, v)
	case <-time.After(2 * time.Second):
		t.Fatal("pop never received the rendezvous value")
	}
	select {
	case state := <-pushResult:
		assert.Equal(t, actorerr.OK, state)
	case <-time.After(2 * time.Second):
		t.Fatal("push was never woken by the matching pop")
	}
}

func TestChannelTryPushFailsWhenFull(t *testing.T) {
	s := newTestStrand(t)
	ch := New[int](s, 1)

	ok := make(chan struct{})
	ch.Push(1, func(actorerr.AsyncState) { close(ok) })
	<-ok

	full := make(chan actorerr.AsyncState, 1)
	ch.TryPush(2, func(state actorerr.AsyncState) { full <- state })
	assert.Equal(t, actorerr.Fail, <-full)
}

func TestChannelTryPopFailsWhenEmpty(t *testing.T) {
	s := newTestStrand(t)
	ch := New[int](s, 1)

	result := make(chan actorerr.AsyncState, 1)
	ch.TryPop(func(state actorerr.AsyncState, _ int) { result <- state })
	assert.Equal(t, actorerr.Fail, <-result)
}

func TestChannelTimedPopFiresOvertimeNoEarlierThanDuration(t *testing.T) {
	s := newTestStrand(t)
	ch := New[int](s, 1)

	start := time.Now()
	done := make(chan time.Time, 1)
	ch.TimedPop(50*time.Millisecond, func(state actorerr.AsyncState, _ int) {
		assert.Equal(t, actorerr.Overtime, state)
		done <- time.Now()
	})

	select {
	case when := <-done:
		assert.GreaterOrEqual(t, when.Sub(start), 50*time.Millisecond)
	case <-time.After(2 * time.Second):
		t.Fatal("timed pop never fired")
	}
}

func TestChannelTimedPopCancelledByLateArrivingPush(t *testing.T) {
	s := newTestStrand(t)
	ch := New[int](s, 1)

	done := make(chan actorerr.AsyncState, 1)
	var val int
	ch.TimedPop(500*time.Millisecond, func(state actorerr.AsyncState, v int) {
		done <- state
		val = v
	})

	ch.Push(99, func(actorerr.AsyncState) {})

	select {
	case state := <-done:
		assert.Equal(t, actorerr.OK, state)
		assert.Equal(t, 99, val)
	case <-time.After(2 * time.Second):
		t.Fatal("timed pop never resolved")
	}
}

func TestChannelCloseWakesWaitingPop(t *testing.T) {
	s := newTestStrand(t)
	ch := New[int](s, 1)

	done := make(chan actorerr.AsyncState, 1)
	ch.Pop(func(state actorerr.AsyncState, _ int) { done <- state })

	closed := make(chan struct{})
	ch.Close(func(actorerr.AsyncState) { close(closed) })

	select {
	case state := <-done:
		assert.Equal(t, actorerr.Closed, state)
	case <-time.After(2 * time.Second):
		t.Fatal("close never woke the waiting pop")
	}
	<-closed
}

func TestChannelPushAfterCloseFailsClosed(t *testing.T) {
	s := newTestStrand(t)
	ch := New[int](s, 1)

	closed := make(chan struct{})
	ch.Close(func(actorerr.AsyncState) { close(closed) })
	<-closed

	result := make(chan actorerr.AsyncState, 1)
	ch.Push(1, func(state actorerr.AsyncState) { result <- state })
	assert.Equal(t, actorerr.Closed, <-result)
}

func TestChannelBoundedFIFOOrdering(t *testing.T) {
	s := newTestStrand(t)
	ch := New[int](s, 10)

	for i := 0; i < 5; i++ {
		done := make(chan struct{})
		ch.Push(i, func(actorerr.AsyncState) { close(done) })
		<-done
	}

	for i := 0; i < 5; i++ {
		result := make(chan int, 1)
		ch.Pop(func(_ actorerr.AsyncState, v int) { result <- v })
		assert.Equal(t, i, <-result)
	}
}

func TestChannelCapacityOneBehavesAsRendezvousUnderSequentialUse(t *testing.T) {
	s := newTestStrand(t)
	ch := New[int](s, 1)

	done := make(chan struct{})
	ch.Push(1, func(actorerr.AsyncState) { close(done) })
	<-done

	popped := make(chan int, 1)
	ch.Pop(func(_ actorerr.AsyncState, v int) { popped <- v })
	assert.Equal(t, 1, <-popped)
	assert.Equal(t, 0, ch.Len())
}

func TestCancelPushWakesOnlyPushersLeavingPoppersWaiting(t *testing.T) {
	s := newTestStrand(t)
	ch := New[int](s, 1)

	ok := make(chan struct{})
	ch.Push(1, func(actorerr.AsyncState) { close(ok) })
	<-ok

	// Buffer is now full: a second push waits.
	stuckPush := make(chan actorerr.AsyncState, 1)
	ch.Push(2, func(state actorerr.AsyncState) { stuckPush <- state })

	// And the buffer's single slot is occupied, not empty, so a pop on a
	// second channel is used to confirm CancelPush leaves unrelated pop
	// waiters alone.
	other := New[int](s, 1)
	stuckPop := make(chan actorerr.AsyncState, 1)
	other.Pop(func(state actorerr.AsyncState, _ int) { stuckPop <- state })

	ch.CancelPush(func(actorerr.AsyncState) {})
	select {
	case state := <-stuckPush:
		assert.Equal(t, actorerr.Cancel, state)
	case <-time.After(2 * time.Second):
		t.Fatal("CancelPush never woke the waiting pusher")
	}

	select {
	case <-stuckPop:
		t.Fatal("CancelPush woke a popper on an unrelated channel")
	case <-time.After(50 * time.Millisecond):
	}

	other.CancelPop(func(actorerr.AsyncState) {})
	select {
	case state := <-stuckPop:
		assert.Equal(t, actorerr.Cancel, state)
	case <-time.After(2 * time.Second):
		t.Fatal("CancelPop never woke the waiting popper")
	}
}

func TestCancelPopWakesPoppersAndNotifiesLeavingPushersWaiting(t *testing.T) {
	s := newTestStrand(t)

	ch := New[int](s, 1)
	stuckPop := make(chan actorerr.AsyncState, 1)
	ch.Pop(func(state actorerr.AsyncState, _ int) { stuckPop <- state })
	notifyFired := make(chan actorerr.AsyncState, 1)
	ch.AppendPopNotify(func(state actorerr.AsyncState) { notifyFired <- state })

	other := New[int](s, 1)
	ok := make(chan struct{})
	other.Push(1, func(actorerr.AsyncState) { close(ok) })
	<-ok
	stuckPush := make(chan actorerr.AsyncState, 1)
	other.Push(2, func(state actorerr.AsyncState) { stuckPush <- state })

	ch.CancelPop(func(actorerr.AsyncState) {})
	select {
	case state := <-stuckPop:
		assert.Equal(t, actorerr.Cancel, state)
	case <-time.After(2 * time.Second):
		t.Fatal("CancelPop never woke the waiting popper")
	}
	select {
	case state := <-notifyFired:
		assert.Equal(t, actorerr.Cancel, state)
	case <-time.After(2 * time.Second):
		t.Fatal("CancelPop never woke the registered notify")
	}

	select {
	case <-stuckPush:
		t.Fatal("CancelPop woke a pusher on an unrelated channel")
	case <-time.After(50 * time.Millisecond):
	}

	other.CancelPush(func(actorerr.AsyncState) {})
	select {
	case state := <-stuckPush:
		assert.Equal(t, actorerr.Cancel, state)
	case <-time.After(2 * time.Second):
		t.Fatal("CancelPush never woke the remaining waiting pusher")
	}
}

func TestCancelWakesBothPushersAndPoppers(t *testing.T) {
	s := newTestStrand(t)
	pushCh := New[int](s, 1)
	ok := make(chan struct{})
	pushCh.Push(1, func(actorerr.AsyncState) { close(ok) })
	<-ok
	stuckPush := make(chan actorerr.AsyncState, 1)
	pushCh.Push(2, func(state actorerr.AsyncState) { stuckPush <- state })

	popCh := New[int](s, 1)
	stuckPop := make(chan actorerr.AsyncState, 1)
	popCh.Pop(func(state actorerr.AsyncState, _ int) { stuckPop <- state })

	pushCh.Cancel(func(actorerr.AsyncState) {})
	popCh.Cancel(func(actorerr.AsyncState) {})

	select {
	case state := <-stuckPush:
		assert.Equal(t, actorerr.Cancel, state)
	case <-time.After(2 * time.Second):
		t.Fatal("Cancel never woke the waiting pusher")
	}
	select {
	case state := <-stuckPop:
		assert.Equal(t, actorerr.Cancel, state)
	case <-time.After(2 * time.Second):
		t.Fatal("Cancel never woke the waiting popper")
	}
}
