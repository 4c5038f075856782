// Package metrics tracks runtime observability for the reactor pool and
// its strands: task latency distribution (via a streaming P-Square
// quantile estimator), ready-queue depth, and a total task count,
// grounded directly on the teacher's eventloop package's own Metrics/
// LatencyMetrics/psquare machinery.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// LatencySnapshot is a point-in-time read of the task latency
// distribution, mirroring the teacher's own LatencyMetrics fields.
type LatencySnapshot struct {
	Count int
	P50   time.Duration
	P90   time.Duration
	P95   time.Duration
	P99   time.Duration
	Mean  time.Duration
	Max   time.Duration
}

// Collector implements reactor.MetricsSink and accumulates pool-wide
// observability: attach it with reactor.WithMetricsSink.
type Collector struct {
	mu        sync.Mutex
	latency   *multiQuantile
	queueSize atomic.Int64
	maxQueue  atomic.Int64
	tasks     atomic.Uint64
}

// NewCollector creates an empty Collector tracking P50/P90/P95/P99.
func NewCollector() *Collector {
	return &Collector{latency: newMultiQuantile(0.50, 0.90, 0.95, 0.99)}
}

// RecordTaskLatency implements reactor.MetricsSink.
func (c *Collector) RecordTaskLatency(d time.Duration) {
	c.tasks.Add(1)
	c.mu.Lock()
	c.latency.Update(float64(d))
	c.mu.Unlock()
}

// SetQueueDepth implements reactor.MetricsSink.
func (c *Collector) SetQueueDepth(n int) {
	c.queueSize.Store(int64(n))
	for {
		cur := c.maxQueue.Load()
		if int64(n) <= cur || c.maxQueue.CompareAndSwap(cur, int64(n)) {
			return
		}
	}
}

// QueueDepth returns the most recently observed ready-queue length.
func (c *Collector) QueueDepth() int { return int(c.queueSize.Load()) }

// MaxQueueDepth returns the largest ready-queue length observed so far.
func (c *Collector) MaxQueueDepth() int { return int(c.maxQueue.Load()) }

// TaskCount returns the total number of tasks whose latency was recorded.
func (c *Collector) TaskCount() uint64 { return c.tasks.Load() }

// Latency returns a snapshot of the current latency distribution.
func (c *Collector) Latency() LatencySnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return LatencySnapshot{
		Count: c.latency.count,
		P50:   time.Duration(c.latency.Value(0)),
		P90:   time.Duration(c.latency.Value(1)),
		P95:   time.Duration(c.latency.Value(2)),
		P99:   time.Duration(c.latency.Value(3)),
		Mean:  time.Duration(c.latency.Mean()),
		Max:   time.Duration(c.latency.Max()),
	}
}

// Counter is a simple named, thread-safe monotonic counter for
// application-level event counts (e.g. channel closes, mutex timeouts)
// that don't need a full quantile distribution.
type Counter struct {
	v atomic.Uint64
}

// Inc increments the counter by 1.
func (c *Counter) Inc() { c.v.Add(1) }

// Add increments the counter by n.
func (c *Counter) Add(n uint64) { c.v.Add(n) }

// Value returns the counter's current value.
func (c *Counter) Value() uint64 { return c.v.Load() }
