// Package reactor implements the OS-thread-backed worker pool described in
// spec.md §4.1/§4.6: it owns a fixed set of worker goroutines that drain a
// single shared ready queue fed by Submit calls (from strands and timers)
// and runs a dedicated timer goroutine that posts due callbacks back onto
// that queue. Everything that needs thread-safety above this package
// achieves it by funneling mutation through a strand (package strand);
// the ready queue itself is the one intentionally-shared mutable structure
// in the runtime.
package reactor

import (
	"errors"
	"sync"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/qq587282/actorgo/actorerr"
	"github.com/qq587282/actorgo/actorlog"
)

// Task is a unit of work submitted to the pool's ready queue.
type Task = func()

// Pool owns a set of worker goroutines standing in for the OS threads of
// spec.md's reactor pool, a shared ready queue, and a timer subsystem.
type Pool struct { //nolint:govet
	queue readyQueue
	state *poolState

	mu      sync.Mutex
	cond    *sync.Cond
	workers int
	wg      sync.WaitGroup
	closed  chan struct{}

	// timer subsystem (see timer.go)
	timerMu               sync.Mutex
	timers                timerHeap
	timerSeq              uint64
	timerWake             chan struct{}
	timerGoroutineStarted bool

	// overloadLimiter counts SubmitCategory calls per category via catrate;
	// onOverload is called for every submission the limiter rejects
	// (spec.md's ErrLoopOverloaded-equivalent signal). Rejections within one
	// window are not coalesced into a single call.
	overloadLimiter *catrate.Limiter
	onOverload      func(category string, err error)

	// workerSlots maps a worker goroutine's ID to the job it is currently
	// draining, so strand.RunningInThisThread() style checks can be
	// answered without plumbing a context through every callback. Owned by
	// worker.go.
	workerSlots sync.Map // uint64 goroutine id -> *workerSlot

	// metrics, if set, observes task latency and queue depth. Left as a
	// narrow interface (rather than importing package metrics directly) so
	// reactor has no dependency on the concrete collector implementation.
	metrics MetricsSink
}

// MetricsSink receives reactor pool observations: task execution latency
// (sampled per safeExecute call) and the ready queue's depth at the moment
// a task is popped. github.com/qq587282/actorgo/metrics.Collector
// implements this.
type MetricsSink interface {
	RecordTaskLatency(d time.Duration)
	SetQueueDepth(n int)
}

// workerSlot is a mutable cell a worker goroutine updates in place with
// whatever logical owner (e.g. *strand.Strand) it is currently executing
// work on behalf of. strand.Strand reads this via CurrentOwner.
type workerSlot struct {
	mu    sync.Mutex
	owner any
}

// PoolOption configures a Pool at construction time, mirroring the teacher
// module's functional-options shape (options.go's LoopOption).
type PoolOption interface {
	apply(*poolConfig)
}

type poolConfig struct {
	workers       int
	overloadRates map[time.Duration]int
	onOverload    func(category string, err error)
	metrics       MetricsSink
}

type poolOptionFunc func(*poolConfig)

func (f poolOptionFunc) apply(c *poolConfig) { f(c) }

// WithWorkers sets the number of worker goroutines backing the pool.
// Defaults to runtime.GOMAXPROCS(0) if unset or non-positive.
func WithWorkers(n int) PoolOption {
	return poolOptionFunc(func(c *poolConfig) { c.workers = n })
}

// WithOverloadRates configures the sliding-window thresholds (per category)
// above which Submit reports overload via OnOverload, using
// github.com/joeycumines/go-catrate. A nil/empty map disables overload
// reporting.
func WithOverloadRates(rates map[time.Duration]int) PoolOption {
	return poolOptionFunc(func(c *poolConfig) { c.overloadRates = rates })
}

// WithOnOverload registers a callback invoked for each SubmitCategory call
// that the limiter rejects because that category's volume exceeds the
// configured rates; repeated rejections within one window each invoke it.
func WithOnOverload(fn func(category string, err error)) PoolOption {
	return poolOptionFunc(func(c *poolConfig) { c.onOverload = fn })
}

// WithMetricsSink attaches a MetricsSink that observes per-task latency and
// ready-queue depth; see github.com/qq587282/actorgo/metrics.Collector.
func WithMetricsSink(sink MetricsSink) PoolOption {
	return poolOptionFunc(func(c *poolConfig) { c.metrics = sink })
}

// New creates and starts a reactor pool.
func New(opts ...PoolOption) *Pool {
	cfg := &poolConfig{}
	for _, o := range opts {
		if o != nil {
			o.apply(cfg)
		}
	}
	if cfg.workers <= 0 {
		cfg.workers = defaultWorkers()
	}

	p := &Pool{
		state:      newPoolState(),
		workers:    cfg.workers,
		closed:     make(chan struct{}),
		timerWake:  make(chan struct{}, 1),
		onOverload: cfg.onOverload,
		metrics:    cfg.metrics,
	}
	p.cond = sync.NewCond(&p.mu)
	if len(cfg.overloadRates) > 0 {
		p.overloadLimiter = catrate.NewLimiter(cfg.overloadRates)
	}

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.runWorker(i)
	}

	actorlog.L().Debug().Int("workers", p.workers).Log("reactor: pool started")
	return p
}

// Submit enqueues a task for execution by some worker, with the pool's
// exclusivity guarantee left entirely to whatever strand (if any) the task
// belongs to. Submit never blocks and never fails in steady state; calling
// it after Shutdown has completed is a fatal misuse (spec.md §4.1 Failure),
// reported here as ErrPoolShutdown rather than a panic so callers racing a
// graceful shutdown can observe and ignore it.
func (p *Pool) Submit(task Task) error {
	if p.state.Load() == StateShutdown {
		return actorerr.ErrPoolShutdown
	}
	p.mu.Lock()
	p.queue.pushLocked(task)
	p.mu.Unlock()
	p.cond.Signal()
	return nil
}

// SubmitCategory is Submit, plus overload accounting for the named
// category (typically a strand ID). When the configured catrate.Limiter
// reports the category over its budget, OnOverload fires for that
// submission; the task is submitted either way.
func (p *Pool) SubmitCategory(category string, task Task) error {
	if p.overloadLimiter != nil {
		if _, ok := p.overloadLimiter.Allow(category); !ok && p.onOverload != nil {
			p.onOverload(category, ErrOverloaded)
		}
	}
	return p.Submit(task)
}

// ErrOverloaded is passed to OnOverload when a category exceeds its
// configured catrate budget.
var ErrOverloaded = errors.New("reactor: submission rate exceeded configured budget")

// ScheduleTimer registers fn to run on the pool's ready queue no earlier
// than d from now. See timer.go.
func (p *Pool) ScheduleTimer(d time.Duration, fn func()) *TimerHandle {
	return p.scheduleTimer(d, fn)
}

// Workers returns the number of worker goroutines backing the pool.
func (p *Pool) Workers() int { return p.workers }

// Shutdown stops accepting new work once the current queue has drained,
// and blocks until every worker has exited. The pool joins when its queue
// is empty and all workers are idle, matching spec.md §6.
func (p *Pool) Shutdown() {
	if !p.state.TryTransition(StateRunning, StateShuttingDown) {
		return
	}
	close(p.closed)
	p.mu.Lock()
	p.cond.Broadcast()
	p.mu.Unlock()
	p.wg.Wait()
	p.state.Store(StateShutdown)
	actorlog.L().Debug().Log("reactor: pool shut down")
}

// State returns the pool's current lifecycle state.
func (p *Pool) State() PoolState { return p.state.Load() }
