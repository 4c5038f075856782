package reactor

import (
	"runtime"
	"time"

	"github.com/qq587282/actorgo/actorerr"
	"github.com/qq587282/actorgo/actorlog"
)

func defaultWorkers() int {
	n := runtime.GOMAXPROCS(0)
	if n < 1 {
		n = 1
	}
	return n
}

// runWorker is a single reactor worker's main loop: pop a task, run it with
// panic isolation, repeat. Workers block on the pool's condition variable
// when the queue is empty, exactly like a classic thread-pool executor; the
// strand-level exclusivity guarantee is provided entirely by package strand,
// not by this loop.
func (p *Pool) runWorker(_ int) {
	defer p.wg.Done()

	gid := goroutineID()
	slot := &workerSlot{}
	p.workerSlots.Store(gid, slot)
	defer p.workerSlots.Delete(gid)

	for {
		task, ok := p.waitForTask()
		if !ok {
			return
		}
		p.safeExecute(task)
	}
}

// waitForTask blocks until either a task is available (returned with ok
// true) or the pool has finished shutting down with an empty queue
// (ok false, signalling the worker to exit).
func (p *Pool) waitForTask() (Task, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		if task, ok := p.queue.popLocked(); ok {
			p.reportQueueDepthLocked()
			return task, true
		}
		if p.state.Load() == StateShutdown {
			return nil, false
		}
		select {
		case <-p.closed:
			// Draining: the queue was empty on this pass; if nothing else
			// submits more work, we are done.
			if task, ok := p.queue.popLocked(); ok {
				p.reportQueueDepthLocked()
				return task, true
			}
			return nil, false
		default:
		}
		p.cond.Wait()
	}
}

// reportQueueDepthLocked tells the configured MetricsSink (if any) how many
// tasks remain queued immediately after a pop. Must be called with p.mu
// held.
func (p *Pool) reportQueueDepthLocked() {
	if p.metrics != nil {
		p.metrics.SetQueueDepth(p.queue.Length())
	}
}

// safeExecute runs a task with panic isolation: a panicking body is a fatal
// programming error per spec.md §4.2 Failure, but a worker goroutine dying
// would take down the whole pool, so it is recovered and logged as a
// *actorerr.PanicError, and the worker goes on with its next task.
func (p *Pool) safeExecute(task Task) {
	start := time.Now()
	defer func() {
		if p.metrics != nil {
			p.metrics.RecordTaskLatency(time.Since(start))
		}
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			actorlog.L().Err(&actorerr.PanicError{Value: r, Stack: buf[:n]}).Log("reactor: task panicked")
		}
	}()
	task()
}

// CurrentOwner returns whatever value the calling worker goroutine last
// registered with SetCurrentOwner, or nil if the calling goroutine is not a
// worker of this pool. Used by package strand to implement
// Strand.RunningInThisThread without an explicit context parameter.
func (p *Pool) CurrentOwner() any {
	v, ok := p.workerSlots.Load(goroutineID())
	if !ok {
		return nil
	}
	slot := v.(*workerSlot)
	slot.mu.Lock()
	defer slot.mu.Unlock()
	return slot.owner
}

// SetCurrentOwner records owner as whatever logical unit of work the calling
// worker goroutine is currently draining, for the duration of the caller's
// choosing (call with nil to clear). No-op if called from a non-worker
// goroutine, since in that case there is no slot to update.
func (p *Pool) SetCurrentOwner(owner any) {
	v, ok := p.workerSlots.Load(goroutineID())
	if !ok {
		return
	}
	slot := v.(*workerSlot)
	slot.mu.Lock()
	slot.owner = owner
	slot.mu.Unlock()
}
