// Package gen implements the stackless generator: a resumable computation
// pinned to a strand, whose suspension points are explicit Go closures
// rather than a real goroutine stack. Where the source material encoded
// resume points as an integer dispatched through a switch statement over a
// heap-allocated context struct, this package encodes each resume point as
// a first-class Step value — a tagged continuation whose "tag" is simply
// which Go closure it is, and whose "live locals" are whatever the closure
// captures. Resuming a generator is calling its current Step; a Step
// returns the next Step, or nil to terminate, or the Suspend sentinel to
// stop advancing until something external resumes it.
//
// This keeps the per-task footprint to one *Gen plus however many bytes the
// current Step's closure captures — no parked OS-thread-sized stack per
// task — which is the property the source's coNext/switch trick bought at
// the cost of hand-compiled control flow, and what this package buys
// through an explicit trampoline instead.
package gen

import (
	"reflect"
	"sync"
	"time"

	"github.com/qq587282/actorgo/actorerr"
	"github.com/qq587282/actorgo/actorlog"
	"github.com/qq587282/actorgo/reactor"
	"github.com/qq587282/actorgo/strand"
)

// Step is a single resume point of a generator body. It runs with the
// owning strand's exclusivity guarantee and returns the next Step to run
// (possibly immediately, in the same trampoline pass), Suspend to park
// until something external resumes the generator, or nil to terminate
// normally.
type Step func(g *Gen) Step

// suspend is the sentinel a Step returns to park the generator. Any Step
// value would work as a unique sentinel since Go compares function values
// by identity only to nil, so it is stored as a package-level closure and
// never invoked.
var suspend Step = func(*Gen) Step { panic("gen: suspend sentinel invoked") }

// Suspend is returned by a Step to park the generator until AsyncHandler's
// callback fires, a timer fires, or some other external call to Resume.
func Suspend() Step { return suspend }

// State is a generator's lifecycle state.
type State int

const (
	StateCreated State = iota
	StateRunning
	StateSuspended
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "Created"
	case StateRunning:
		return "Running"
	case StateSuspended:
		return "Suspended"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// Gen is a single stackless generator instance (spec.md §4.2's Generator).
type Gen struct { //nolint:govet
	strand *strand.Strand
	body   Step // the entry Step; restart re-enters here
	notify func(g *Gen)

	state     State
	current   Step // the pending resume point, stored across a yield
	lockStop  uint8
	readyQuit bool
	asyncSign bool
	quit      *SharedBool

	pendingTimer *reactor.TimerHandle
}

// framePool recycles terminated *Gen context frames the way the teacher's
// ChunkedIngress recycles exhausted chunk nodes (ingress.go's chunkPool):
// a bounded-lifetime allocation that is handed back once its last user is
// known to be done with it, instead of left for the garbage collector.
// Create only returns a frame to the pool when notify is nil, since that is
// the one case spec.md's contract guarantees nobody retains the *Gen handle
// past termination (see Create's doc comment) — the same "caller has
// already cleared its references" precondition returnChunk relies on.
var framePool = sync.Pool{
	New: func() any { return &Gen{} },
}

// Create builds a generator bound to s, running body when Run is called.
// notify, if non-nil, is invoked once when the generator terminates
// (normally, via stop, or via an uncaught panic converted to an error log).
//
// If notify is nil, the caller is asserting it will not retain the
// returned *Gen past termination (no call to Stop, Stopped, QuitSignal, or
// any other method once the body has run to completion): such frames are
// recycled through framePool for a later Create call once they terminate.
// Fork relies on this for its common fire-and-forget child generators;
// pass a non-nil notify whenever the handle must stay valid afterward.
func Create(s *strand.Strand, body Step, notify func(g *Gen)) *Gen {
	g := framePool.Get().(*Gen)
	*g = Gen{
		strand: s,
		body:   body,
		notify: notify,
		quit:   NewSharedBool(),
	}
	return g
}

// Strand returns the strand this generator is pinned to.
func (g *Gen) Strand() *strand.Strand { return g.strand }

// Run starts the generator: its body begins executing at the top, on its
// strand. Safe to call from any goroutine.
func (g *Gen) Run() {
	g.strand.Post(func() {
		if g.state != StateCreated {
			return
		}
		g.state = StateRunning
		g.advance(g.body)
	})
}

// Stop requests cancellation (spec.md §4.2 stop). If the generator is not
// inside a lock_stop bracket, it terminates right away, without running its
// body again; otherwise the request is deferred and observed by the
// matching UnlockStop.
func (g *Gen) Stop() {
	g.strand.Distribute(func() {
		if g.state == StateStopped {
			return
		}
		if g.lockStop == 0 {
			g.terminate()
		} else {
			g.readyQuit = true
		}
	})
}

// LockStop defers Stop requests until the matching UnlockStop, for
// bracketing a critical section a generator must finish even if cancelled
// mid-flight (spec.md §6 "cancel during lock_stop").
func (g *Gen) LockStop() {
	if g.lockStop == 255 {
		panic("gen: lock_stop counter overflow")
	}
	g.lockStop++
}

// UnlockStop closes a LockStop bracket. If a Stop arrived while the bracket
// was held, the generator terminates now, at this exact call site, rather
// than continuing to next (spec.md §7 "terminates the generator precisely
// at the unlock_stop point, not before").
func (g *Gen) UnlockStop(next Step) Step {
	if g.lockStop == 0 {
		panic("gen: unlock_stop without matching lock_stop")
	}
	g.lockStop--
	if g.lockStop == 0 && g.readyQuit {
		g.terminate()
		return suspend
	}
	return next
}

// Yield stores next as the resume point and returns control to the strand:
// the generator does not automatically continue; some external call to
// Resume(next) (or an AsyncHandler firing) must re-enter it (spec.md §4.2
// yield — "generator must be explicitly re-scheduled to continue").
func (g *Gen) Yield(next Step) Step {
	g.current = next
	g.state = StateSuspended
	return suspend
}

// Tick suspends and arranges for next to run on the strand's next idle
// tick (spec.md §4.1/§4.2 — the co_tick idiom: yield plus an implicit
// next_tick repost).
func (g *Gen) Tick(next Step) Step {
	g.state = StateSuspended
	g.strand.NextTick(func() { g.Resume(next) })
	return suspend
}

// AsyncHandler returns a completion callback to hand to an external async
// API (a channel push/pop, a socket read, a timer). Whichever happens
// first — the handler firing, or the body's matching Await call — sets
// asyncSign; the second to arrive consumes it and drives the resume,
// implementing spec.md §4.2's two-state rendezvous without per-operation
// allocation.
func (g *Gen) AsyncHandler(next Step) func() {
	return func() {
		g.strand.Distribute(func() {
			if g.state == StateStopped {
				return
			}
			if g.asyncSign {
				g.asyncSign = false
				g.advance(next)
			} else {
				g.asyncSign = true
			}
		})
	}
}

// Await is called immediately after issuing the async operation whose
// completion handler was obtained via AsyncHandler(next): if the handler
// already fired, it consumes the signal and continues straight to next;
// otherwise it marks the signal and suspends, leaving the handler to
// resume later.
func (g *Gen) Await(next Step) Step {
	if g.asyncSign {
		g.asyncSign = false
		return next
	}
	g.asyncSign = true
	g.state = StateSuspended
	return suspend
}

// Sleep registers a timer for d and suspends until it fires, then resumes
// at next (spec.md §4.2 sleep).
func (g *Gen) Sleep(d time.Duration, next Step) Step {
	g.state = StateSuspended
	g.pendingTimer = g.strand.Pool().ScheduleTimer(d, func() {
		g.strand.Distribute(func() {
			g.pendingTimer = nil
			g.Resume(next)
		})
	})
	return suspend
}

// Fork heap-allocates a sibling generator whose lockStop count is
// inherited from the parent, starting at childBody — the statement after
// the fork point in the source idiom this package replaces (spec.md §4.2
// fork, §7 "parent's lockStop count is inherited by child"). The parent
// continues immediately with parentNext; the child begins on its own
// strand tick.
//
// The child is created with a nil notify, so its frame is recycled via
// framePool once it terminates (see Create); the usual fire-and-forget
// caller discards the returned handle entirely. A caller that does keep it
// must stop touching it once the child is known to have terminated.
func (g *Gen) Fork(childBody Step, parentNext Step) (*Gen, Step) {
	child := Create(g.strand, childBody, nil)
	child.lockStop = g.lockStop
	child.Run()
	return child, parentNext
}

// Call runs a nested generator on the same strand and suspends the caller
// until it completes, then resumes at next (spec.md §4.2 call).
func (g *Gen) Call(body Step, next Step) Step {
	child := Create(g.strand, body, func(*Gen) {
		g.Resume(next)
	})
	child.Run()
	return Suspend()
}

// Restart destroys the current resume point and re-enters the body at the
// top, as though freshly Created (spec.md §4.2 restart).
func (g *Gen) Restart() Step {
	g.lockStop = 0
	g.readyQuit = false
	g.asyncSign = false
	g.current = g.body
	return g.body
}

// Resume explicitly re-enters the generator at step, from any goroutine.
// This is the operation an async completion source (a channel, a timer, a
// socket) performs to drive a suspended generator forward.
func (g *Gen) Resume(step Step) {
	g.strand.Distribute(func() {
		if g.state == StateStopped {
			return
		}
		g.advance(step)
	})
}

// advance runs step and its returned continuations until one returns nil
// (normal termination) or the Suspend sentinel (parked, waiting on an
// external resume), all under the owning strand's exclusivity guarantee.
func (g *Gen) advance(step Step) {
	g.state = StateRunning
	for {
		if step == nil {
			g.terminate()
			return
		}
		if isSuspend(step) {
			return
		}
		next := g.runStep(step)
		step = next
	}
}

var suspendPointer = reflect.ValueOf(suspend).Pointer()

// isSuspend identifies the Suspend sentinel by its code pointer. suspend is
// a single package-level closure with no captured variables, so every
// reference to it shares one underlying function value — comparing code
// pointers via reflect is the only way to compare func values for identity
// in Go, and it is safe here because suspend is never re-created.
func isSuspend(step Step) bool {
	return reflect.ValueOf(step).Pointer() == suspendPointer
}

func (g *Gen) runStep(step Step) (next Step) {
	defer func() {
		if r := recover(); r != nil {
			actorlog.L().Err(&actorerr.PanicError{Value: r}).Log("gen: step panicked")
			g.terminate()
			next = suspend
		}
	}()
	return step(g)
}

func (g *Gen) terminate() {
	if g.state == StateStopped {
		return
	}
	g.state = StateStopped
	if g.pendingTimer != nil {
		g.pendingTimer.Cancel()
		g.pendingTimer = nil
	}
	g.quit.Set(true)
	if g.notify != nil {
		g.notify(g)
		return
	}
	// No notify means nobody is documented to hold this handle past
	// termination (see Create) — safe to recycle.
	framePool.Put(g)
}

// Stopped reports whether the generator has terminated (normally or via
// Stop).
func (g *Gen) Stopped() bool { return g.state == StateStopped }

// QuitSignal returns the shared cancellation flag external resources
// (channels, sockets) can consult to drop late completions after this
// generator has been cancelled (spec.md §5 "nulled context pointer and the
// shared-bool disarm flag").
func (g *Gen) QuitSignal() *SharedBool { return g.quit }
