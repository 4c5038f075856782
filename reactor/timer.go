package reactor

import (
	"container/heap"
	"time"
)

// timerEntry is a single scheduled deadline, mirroring the teacher module's
// timer{when, task} pair, extended with a monotonic sequence number so that
// same-strand timers with equal deadlines fire in submission order
// (spec.md §5 Ordering guarantees), and a cancel flag so TimerHandle.Cancel is O(1)
// at the call site and O(log n) amortized at the next heap pop (teacher's
// documented complexity for cancel).
type timerEntry struct {
	when      time.Time
	seq       uint64
	fn        func()
	cancelled bool
	index     int // heap.Interface bookkeeping
}

// timerHeap is a min-heap ordered by (when, seq).
type timerHeap []*timerEntry

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].when.Equal(h[j].when) {
		return h[i].seq < h[j].seq
	}
	return h[i].when.Before(h[j].when)
}
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *timerHeap) Push(x any) {
	e := x.(*timerEntry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// TimerHandle cancels a single scheduled timer.
type TimerHandle struct {
	pool  *Pool
	entry *timerEntry
}

// Cancel marks the timer cancelled. If it has not yet fired, its callback
// will never run. Safe to call more than once, and safe to call after the
// timer has already fired (a no-op).
func (h *TimerHandle) Cancel() {
	if h == nil {
		return
	}
	h.pool.timerMu.Lock()
	h.entry.cancelled = true
	h.pool.timerMu.Unlock()
}

// scheduleTimer registers fn to run on the pool's ready queue no earlier
// than d from now (spec.md §5: "A timer scheduled for time T fires no
// earlier than T").
func (p *Pool) scheduleTimer(d time.Duration, fn func()) *TimerHandle {
	p.timerMu.Lock()
	p.timerSeq++
	e := &timerEntry{when: time.Now().Add(d), seq: p.timerSeq, fn: fn}
	heap.Push(&p.timers, e)
	p.rearmLocked()
	p.timerMu.Unlock()
	return &TimerHandle{pool: p, entry: e}
}

// rearmLocked resets the pool's single background time.Timer to fire at the
// next un-cancelled deadline. Must be called with timerMu held.
func (p *Pool) rearmLocked() {
	if p.timerGoroutineStarted {
		// wake the dedicated timer goroutine; it recomputes the sleep.
		select {
		case p.timerWake <- struct{}{}:
		default:
		}
		return
	}
	p.timerGoroutineStarted = true
	go p.runTimerLoop()
}

// runTimerLoop is the pool's dedicated timer goroutine: it sleeps until the
// next deadline (or is woken early by a new, earlier registration) and posts
// due callbacks onto the shared ready queue, matching spec.md §4.6's
// "Timer callbacks run with the strand's exclusivity guarantee" contract —
// the posted closure itself is whatever the caller supplied (normally a
// strand's own Post-wrapped resume), so exclusivity is the strand's job, not
// the timer's.
func (p *Pool) runTimerLoop() {
	for {
		p.timerMu.Lock()
		for len(p.timers) > 0 && p.timers[0].cancelled {
			heap.Pop(&p.timers)
		}
		if len(p.timers) == 0 {
			p.timerMu.Unlock()
			select {
			case <-p.timerWake:
				continue
			case <-p.closed:
				return
			}
		}
		next := p.timers[0]
		wait := time.Until(next.when)
		p.timerMu.Unlock()

		if wait <= 0 {
			p.timerMu.Lock()
			if len(p.timers) > 0 && p.timers[0] == next && !next.cancelled {
				heap.Pop(&p.timers)
				p.timerMu.Unlock()
				p.Submit(next.fn)
			} else {
				p.timerMu.Unlock()
			}
			continue
		}

		t := time.NewTimer(wait)
		select {
		case <-t.C:
		case <-p.timerWake:
			t.Stop()
		case <-p.closed:
			t.Stop()
			return
		}
	}
}
