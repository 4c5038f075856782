// Package strand implements spec.md §4.1's Strand: a FIFO of callbacks
// multiplexed onto a shared reactor.Pool that guarantees mutual exclusion
// between its own callbacks, while running concurrently with other
// strands' callbacks on other workers.
//
// The scheduling discipline is a "mailbox" pattern: a Strand holds its
// pending closures in a private, mutex-guarded queue, and is itself
// submitted to the pool's shared ready queue only while it has work and is
// not already scheduled (a single atomic CAS flag coalesces any number of
// concurrent Post calls into at most one outstanding pool submission,
// which is the Go-idiomatic generalization of the teacher module's
// single-mailbox ChunkedIngress/FastState combination to many independent
// mailboxes sharing one worker pool).
package strand

import (
	"sync"
	"sync/atomic"

	"github.com/qq587282/actorgo/actorerr"
	"github.com/qq587282/actorgo/actorlog"
	"github.com/qq587282/actorgo/reactor"
)

// drainBudget bounds how many callbacks a single drain pass executes before
// re-submitting itself to the pool, so one overloaded strand cannot starve
// the other strands sharing the pool — the Go-level analogue of the
// teacher's processExternal "budget" constant in loop.go.
const drainBudget = 256

var idCounter atomic.Uint64

// Strand is a single-consumer FIFO bound to a reactor.Pool.
type Strand struct { //nolint:govet
	id    uint64
	pool  *reactor.Pool
	mu    sync.Mutex
	queue []func()
	next  []func() // populated by NextTick, merged in after the current batch drains
	// scheduled is true iff a drain job for this strand is already queued
	// or running on the pool; Post only submits when it can flip this from
	// false to true, exactly coalescing the "at most one outstanding
	// reactor wake-up" guarantee spec.md §4.1 asks of try_tick.
	scheduled atomic.Bool
	closed    atomic.Bool
}

// New creates a Strand bound to pool.
func New(pool *reactor.Pool) *Strand {
	return &Strand{id: idCounter.Add(1), pool: pool}
}

// ID returns a process-unique identifier for the strand, suitable as a
// catrate category or log field.
func (s *Strand) ID() uint64 { return s.id }

// Pool returns the reactor.Pool this strand is bound to.
func (s *Strand) Pool() *reactor.Pool { return s.pool }

// Post enqueues f for execution on some pool worker, with this strand's
// mutual-exclusion guarantee. Returns immediately. Ordering: callbacks
// submitted by a single goroutine via Post run in submission order
// (spec.md §4.1 Ordering).
func (s *Strand) Post(f func()) {
	s.mu.Lock()
	s.queue = append(s.queue, f)
	shouldSchedule := s.scheduled.CompareAndSwap(false, true)
	s.mu.Unlock()
	if shouldSchedule {
		if err := s.pool.SubmitCategory(s.category(), s.drain); err != nil {
			actorlog.L().Err(err).Uint64("strand_id", s.id).Log("strand: post after pool shutdown")
		}
	}
}

// Distribute runs f inline if the caller is already executing inside this
// strand (RunningInThisThread), otherwise behaves exactly like Post
// (spec.md §4.1).
func (s *Strand) Distribute(f func()) {
	if s.RunningInThisThread() {
		f()
		return
	}
	s.Post(f)
}

// TryTick is the coalescing variant used by async completion paths: since
// Post already coalesces any number of concurrent submissions into at most
// one outstanding pool submission via the scheduled flag, TryTick is
// Post — kept as a distinct named method because spec.md §4.1 calls it out
// as a separate operation callers reach for explicitly at I/O-completion
// sites, even though the underlying coalescing is identical.
func (s *Strand) TryTick(f func()) {
	s.Post(f)
}

// NextTick enqueues f to run after the current already-queued batch of
// work has drained, i.e. it yields the strand once before f runs
// (spec.md §4.1).
func (s *Strand) NextTick(f func()) {
	s.mu.Lock()
	s.next = append(s.next, f)
	shouldSchedule := s.scheduled.CompareAndSwap(false, true)
	s.mu.Unlock()
	if shouldSchedule {
		if err := s.pool.SubmitCategory(s.category(), s.drain); err != nil {
			actorlog.L().Err(err).Uint64("strand_id", s.id).Log("strand: next_tick after pool shutdown")
		}
	}
}

// Wrap returns a closure that, when invoked, calls Distribute(f) — the
// idiom used to adapt a strand-affine callback into a plain func() that can
// be handed to an unaware completion source (spec.md §4.1).
func (s *Strand) Wrap(f func()) func() {
	return func() { s.Distribute(f) }
}

// RunningInThisThread reports whether the calling goroutine is currently
// executing a callback of this strand.
func (s *Strand) RunningInThisThread() bool {
	owner, _ := s.pool.CurrentOwner().(*Strand)
	return owner == s
}

// category returns the catrate category key used when submitting this
// strand's drain job, so overload accounting is per-strand.
func (s *Strand) category() string {
	return "strand:" + uitoa(s.id)
}

// drain executes up to drainBudget queued callbacks, under the pool's
// exclusivity guarantee: exactly one worker runs this for a given strand at
// any instant, because Post only ever submits a new drain job while
// scheduled is false, and drain itself clears scheduled only after it is
// sure no more work will be silently stranded.
func (s *Strand) drain() {
	s.pool.SetCurrentOwner(s)
	defer s.pool.SetCurrentOwner(nil)

	for i := 0; i < drainBudget; i++ {
		s.mu.Lock()
		if len(s.queue) == 0 {
			if len(s.next) > 0 {
				s.queue, s.next = s.next, s.queue[:0]
				s.mu.Unlock()
				continue
			}
			// No more work: release the scheduled flag, then re-check
			// under the lock-free race window the same way the teacher's
			// CAS-based ingress does — if a Post snuck a task in right as
			// we were about to idle, we must not leave it stranded.
			s.scheduled.Store(false)
			s.mu.Unlock()
			s.mu.Lock()
			if len(s.queue) > 0 || len(s.next) > 0 {
				if s.scheduled.CompareAndSwap(false, true) {
					s.mu.Unlock()
					if err := s.pool.SubmitCategory(s.category(), s.drain); err != nil {
						actorlog.L().Err(err).Uint64("strand_id", s.id).Log("strand: resubmit after pool shutdown")
					}
					return
				}
			}
			s.mu.Unlock()
			return
		}
		f := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.runOne(f)
	}

	// Budget exhausted but there may be more work: resubmit to let other
	// strands' work interleave fairly (spec.md's "no guaranteed fairness
	// beyond FIFO within a strand" still holds — this bounds how much one
	// strand can monopolize a worker).
	s.mu.Lock()
	more := len(s.queue) > 0 || len(s.next) > 0
	if !more {
		// Cleared under the lock, so any Post after this point sees false
		// and submits a fresh drain itself.
		s.scheduled.Store(false)
	}
	s.mu.Unlock()
	if more {
		if err := s.pool.SubmitCategory(s.category(), s.drain); err != nil {
			actorlog.L().Err(err).Uint64("strand_id", s.id).Log("strand: resubmit after pool shutdown")
		}
	}
}

// runOne executes a single callback with panic isolation, converting any
// recovered value into a logged *actorerr.PanicError — generator and
// channel bodies are expected to report failure through results, not
// panics, per spec.md §4.2/§7.
func (s *Strand) runOne(f func()) {
	defer func() {
		if r := recover(); r != nil {
			actorlog.L().Err(&actorerr.PanicError{Value: r}).Uint64("strand_id", s.id).Log("strand: callback panicked")
		}
	}()
	f()
}

func uitoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
