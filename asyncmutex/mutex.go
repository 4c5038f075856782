// Package asyncmutex implements the strand-scoped logical lock of
// spec.md §4.5: a FIFO mutual-exclusion primitive for generators, where
// "blocking" means suspending a generator's resume callback rather than
// parking an OS thread. Ownership hands directly from the releasing holder
// to the next FIFO waiter — there is no re-acquisition race, matching the
// "hand-off unlock" semantics the source material's co_mutex implements on
// top of its strand's single-consumer guarantee.
package asyncmutex

import (
	"time"

	"github.com/qq587282/actorgo/actorerr"
	"github.com/qq587282/actorgo/reactor"
	"github.com/qq587282/actorgo/strand"
)

// VoidCallback receives the outcome of a lock attempt.
type VoidCallback func(state actorerr.AsyncState)

type waiter struct {
	notify  VoidCallback
	timer   *reactor.TimerHandle
	removed bool
}

// Mutex is a strand-bound, FIFO, generator-aware logical lock.
type Mutex struct { //nolint:govet
	strand *strand.Strand
	held   bool
	waitQ  []*waiter
}

// New creates an unheld Mutex bound to s. All operations auto-dispatch
// onto s if called from elsewhere, the same way channel operations do.
func New(s *strand.Strand) *Mutex {
	return &Mutex{strand: s}
}

// Lock acquires the mutex, suspending the caller (by not invoking notify
// synchronously) until every earlier waiter has released it.
func (m *Mutex) Lock(notify VoidCallback) {
	m.strand.Distribute(func() {
		if !m.held {
			m.held = true
			notify(actorerr.OK)
			return
		}
		m.waitQ = append(m.waitQ, &waiter{notify: notify})
	})
}

// TryLock acquires the mutex only if it is immediately free: Fail
// otherwise.
func (m *Mutex) TryLock(notify VoidCallback) {
	m.strand.Distribute(func() {
		if !m.held {
			m.held = true
			notify(actorerr.OK)
			return
		}
		notify(actorerr.Fail)
	})
}

// TimedLock is Lock composed with a timer: Overtime if the deadline passes
// before Unlock hands ownership to this waiter.
func (m *Mutex) TimedLock(d time.Duration, notify VoidCallback) {
	m.strand.Distribute(func() {
		if !m.held {
			m.held = true
			notify(actorerr.OK)
			return
		}
		w := &waiter{notify: notify}
		w.timer = m.strand.Pool().ScheduleTimer(d, func() {
			m.strand.Distribute(func() {
				if w.removed {
					return
				}
				m.removeWaiter(w)
				w.removed = true
				notify(actorerr.Overtime)
			})
		})
		m.waitQ = append(m.waitQ, w)
	})
}

// Unlock releases the mutex. If any generator is waiting, ownership hands
// directly to the oldest waiter (FIFO) rather than reopening the mutex for
// contention — no intervening TryLock can steal it.
func (m *Mutex) Unlock() {
	m.strand.Distribute(func() {
		if !m.held {
			panic("asyncmutex: Unlock of a mutex that is not held")
		}
		for len(m.waitQ) > 0 {
			w := m.waitQ[0]
			m.waitQ = m.waitQ[1:]
			if w.removed {
				continue
			}
			if w.timer != nil {
				w.timer.Cancel()
			}
			// held stays true: ownership transfers directly to w.
			w.notify(actorerr.OK)
			return
		}
		m.held = false
	})
}

func (m *Mutex) removeWaiter(target *waiter) {
	for i, w := range m.waitQ {
		if w == target {
			m.waitQ = append(m.waitQ[:i], m.waitQ[i+1:]...)
			return
		}
	}
}

// Held reports whether the mutex is currently held by anyone (diagnostic
// only).
func (m *Mutex) Held() bool {
	done := make(chan struct{})
	var held bool
	m.strand.Distribute(func() {
		held = m.held
		close(done)
	})
	<-done
	return held
}
