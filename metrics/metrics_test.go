package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCollectorRecordTaskLatencyTracksCount(t *testing.T) {
	c := NewCollector()
	for i := 0; i < 10; i++ {
		c.RecordTaskLatency(time.Duration(i+1) * time.Millisecond)
	}
	assert.Equal(t, uint64(10), c.TaskCount())
	snap := c.Latency()
	assert.Equal(t, 10, snap.Count)
	assert.Greater(t, snap.Max, time.Duration(0))
}

func TestCollectorLatencyP50IsRoughlyMedianForUniformSamples(t *testing.T) {
	c := NewCollector()
	for i := 1; i <= 1000; i++ {
		c.RecordTaskLatency(time.Duration(i) * time.Microsecond)
	}
	snap := c.Latency()
	// P-Square is an estimator, not exact: assert it lands in a wide but
	// meaningful band around the true median (500us).
	assert.InDelta(t, 500, snap.P50.Microseconds(), 150)
	assert.InDelta(t, 990, snap.P99.Microseconds(), 50)
}

func TestCollectorQueueDepthTracksMaxSeen(t *testing.T) {
	c := NewCollector()
	c.SetQueueDepth(3)
	c.SetQueueDepth(7)
	c.SetQueueDepth(2)
	assert.Equal(t, 2, c.QueueDepth())
	assert.Equal(t, 7, c.MaxQueueDepth())
}

func TestCounterIncAndAdd(t *testing.T) {
	var c Counter
	c.Inc()
	c.Inc()
	c.Add(5)
	assert.Equal(t, uint64(7), c.Value())
}

func TestQuantileHandlesFewerThanFiveSamples(t *testing.T) {
	q := newQuantile(0.5)
	q.Update(10)
	q.Update(30)
	q.Update(20)
	assert.Equal(t, float64(20), q.Value())
}
