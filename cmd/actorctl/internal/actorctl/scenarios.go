// Package actorctl hosts the CLI demo for actorgo: one subcommand per
// seed scenario from spec.md §8's "end-to-end scenarios", each building a
// reactor pool and strands from scratch and printing the observed result.
package actorctl

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/qq587282/actorgo/achan"
	"github.com/qq587282/actorgo/actorerr"
	"github.com/qq587282/actorgo/gen"
	"github.com/qq587282/actorgo/reactor"
	"github.com/qq587282/actorgo/strand"
	"github.com/qq587282/actorgo/timer"
)

// PingPongResult is the outcome of RunPingPong.
type PingPongResult struct {
	V1      int
	Elapsed time.Duration
}

// RunPingPong implements spec.md §8 scenario 1: two generators on two
// strands share two channels a, b. G1 pushes 1 onto a then pops b; G2 pops
// a then pushes back v2+1 onto b. The expected round-trip value is 2.
func RunPingPong(pool *reactor.Pool) (PingPongResult, error) {
	start := time.Now()
	s1 := strand.New(pool)
	s2 := strand.New(pool)
	a := achan.New[int](s1, 1)
	b := achan.New[int](s2, 1)

	done := make(chan int, 1)

	var g1Pushed, g1Popped gen.Step
	var pushState, popState actorerr.AsyncState
	var v1 int

	g1Start := func(g *gen.Gen) gen.Step {
		handler := g.AsyncHandler(g1Pushed)
		a.Push(1, func(state actorerr.AsyncState) {
			pushState = state
			handler()
		})
		return g.Await(g1Pushed)
	}
	g1Pushed = func(g *gen.Gen) gen.Step {
		if pushState != actorerr.OK {
			done <- -1
			return nil
		}
		handler := g.AsyncHandler(g1Popped)
		b.Pop(func(state actorerr.AsyncState, val int) {
			popState = state
			v1 = val
			handler()
		})
		return g.Await(g1Popped)
	}
	g1Popped = func(g *gen.Gen) gen.Step {
		if popState != actorerr.OK {
			done <- -1
			return nil
		}
		done <- v1
		return nil
	}

	var g2Popped gen.Step
	var popState2 actorerr.AsyncState
	var v2 int

	g2Start := func(g *gen.Gen) gen.Step {
		handler := g.AsyncHandler(g2Popped)
		a.Pop(func(state actorerr.AsyncState, val int) {
			popState2 = state
			v2 = val
			handler()
		})
		return g.Await(g2Popped)
	}
	g2Popped = func(g *gen.Gen) gen.Step {
		if popState2 != actorerr.OK {
			return nil
		}
		b.Push(v2+1, func(actorerr.AsyncState) {})
		return nil
	}

	gen.Create(s1, g1Start, nil).Run()
	gen.Create(s2, g2Start, nil).Run()

	select {
	case result := <-done:
		if result < 0 {
			return PingPongResult{}, errors.New("ping-pong: a push or pop failed")
		}
		return PingPongResult{V1: result, Elapsed: time.Since(start)}, nil
	case <-time.After(5 * time.Second):
		return PingPongResult{}, errors.New("ping-pong: timed out waiting for round trip")
	}
}

// FanInResult is the outcome of RunFanIn.
type FanInResult struct {
	Received []int
	Elapsed  time.Duration
}

// RunFanIn implements spec.md §8 scenario 2: 100 producers each push their
// id onto a capacity-10 channel; one consumer pops 100 times. The
// multiset of received ids is expected to equal {0..99}.
func RunFanIn(pool *reactor.Pool) (FanInResult, error) {
	const n = 100
	start := time.Now()
	s := strand.New(pool)
	ch := achan.New[int](s, 10)

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go ch.Push(i, func(actorerr.AsyncState) { wg.Done() })
	}

	var mu sync.Mutex
	received := make([]int, 0, n)
	done := make(chan struct{})

	var popNext func()
	popNext = func() {
		ch.Pop(func(state actorerr.AsyncState, val int) {
			if state != actorerr.OK {
				close(done)
				return
			}
			mu.Lock()
			received = append(received, val)
			count := len(received)
			mu.Unlock()
			if count == n {
				close(done)
				return
			}
			popNext()
		})
	}
	popNext()

	wg.Wait()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		return FanInResult{}, errors.New("fan-in: timed out waiting for all ids")
	}

	mu.Lock()
	out := append([]int(nil), received...)
	mu.Unlock()
	return FanInResult{Received: out, Elapsed: time.Since(start)}, nil
}

// SelectTimeoutResult is the outcome of RunSelectTimeout.
type SelectTimeoutResult struct {
	WinningCase int
	Elapsed     time.Duration
}

// RunSelectTimeout implements spec.md §8 scenario 3: select over two
// channels with no senders, plus a 50ms timer case. The timer case is
// expected to fire; the two channel registrations are then retracted.
func RunSelectTimeout(pool *reactor.Pool) (SelectTimeoutResult, error) {
	start := time.Now()
	s := strand.New(pool)
	c1 := achan.New[int](s, 1)
	c2 := achan.New[int](s, 1)
	tm := timer.New(s)
	sel := achan.NewSelect(s, achan.Case(c1), achan.Case(c2), achan.TimerCase(tm, 50*time.Millisecond))
	sel.Arm()

	winner := make(chan int, 1)
	sel.AwaitReady(func(caseID int, _ actorerr.AsyncState) {
		sel.Disarm(caseID, func() {
			winner <- caseID
		})
	})

	select {
	case id := <-winner:
		return SelectTimeoutResult{WinningCase: id, Elapsed: time.Since(start)}, nil
	case <-time.After(2 * time.Second):
		return SelectTimeoutResult{}, errors.New("select-timeout: no case ever fired")
	}
}

// CancelDuringLockStopResult is the outcome of RunCancelDuringLockStop.
type CancelDuringLockStopResult struct {
	Elapsed         time.Duration
	RanPastUnlock   bool
	TerminatedByGen bool
}

// RunCancelDuringLockStop implements spec.md §8 scenario 4: a generator
// enters lock_stop, schedules a 100ms sleep, and receives Stop() at
// t=10ms. The sleep is expected to complete at ~100ms, after which the
// generator terminates at UnlockStop without executing any statement past
// it.
func RunCancelDuringLockStop(pool *reactor.Pool) (CancelDuringLockStopResult, error) {
	start := time.Now()
	s := strand.New(pool)
	done := make(chan time.Duration, 1)
	var ranPast bool

	var afterSleep, pastUnlock gen.Step
	body := func(g *gen.Gen) gen.Step {
		g.LockStop()
		return g.Sleep(100*time.Millisecond, afterSleep)
	}
	afterSleep = func(g *gen.Gen) gen.Step {
		return g.UnlockStop(pastUnlock)
	}
	pastUnlock = func(g *gen.Gen) gen.Step {
		ranPast = true
		return nil
	}

	g := gen.Create(s, body, func(*gen.Gen) {
		done <- time.Since(start)
	})
	g.Run()
	time.AfterFunc(10*time.Millisecond, g.Stop)

	select {
	case elapsed := <-done:
		return CancelDuringLockStopResult{Elapsed: elapsed, RanPastUnlock: ranPast, TerminatedByGen: g.Stopped()}, nil
	case <-time.After(2 * time.Second):
		return CancelDuringLockStopResult{}, errors.New("cancel-during-lock-stop: generator never terminated")
	}
}

// CloseWakesPopResult is the outcome of RunCloseWakesPop.
type CloseWakesPopResult struct {
	State   actorerr.AsyncState
	Elapsed time.Duration
}

// RunCloseWakesPop implements spec.md §8 scenario 6: a pop suspends on an
// empty channel; another call closes the channel; the pop's notify is
// expected to fire with Closed within one strand cycle.
func RunCloseWakesPop(pool *reactor.Pool) (CloseWakesPopResult, error) {
	start := time.Now()
	s := strand.New(pool)
	c := achan.New[int](s, 1)

	result := make(chan actorerr.AsyncState, 1)
	c.Pop(func(state actorerr.AsyncState, _ int) {
		result <- state
	})
	c.Close(func(actorerr.AsyncState) {})

	select {
	case state := <-result:
		return CloseWakesPopResult{State: state, Elapsed: time.Since(start)}, nil
	case <-time.After(2 * time.Second):
		return CloseWakesPopResult{}, errors.New("close-wakes-pop: pop never woke on close")
	}
}

// FormatFanIn renders a FanInResult's received multiset into a short,
// human-checkable summary rather than dumping all 100 ids.
func FormatFanIn(r FanInResult) string {
	seen := make(map[int]bool, len(r.Received))
	for _, id := range r.Received {
		seen[id] = true
	}
	missing := 0
	for i := 0; i < 100; i++ {
		if !seen[i] {
			missing++
		}
	}
	return fmt.Sprintf("received %d ids (%d distinct, %d missing from {0..99}) in %s",
		len(r.Received), len(seen), missing, r.Elapsed)
}
