package gen

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qq587282/actorgo/reactor"
	"github.com/qq587282/actorgo/strand"
)

func newTestStrand(t *testing.T) *strand.Strand {
	p := reactor.New(reactor.WithWorkers(4))
	t.Cleanup(p.Shutdown)
	return strand.New(p)
}

func TestGenRunSimpleBodyToCompletion(t *testing.T) {
	s := newTestStrand(t)
	done := make(chan struct{})
	var ran []string

	var step2 Step
	step1 := func(g *Gen) Step {
		ran = append(ran, "step1")
		return step2
	}
	step2 = func(g *Gen) Step {
		ran = append(ran, "step2")
		return nil
	}

	var g *Gen
	g = Create(s, step1, func(*Gen) { close(done) })
	g.Run()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("generator never completed")
	}
	assert.Equal(t, []string{"step1", "step2"}, ran)
	assert.True(t, g.Stopped())
}

func TestGenYieldRequiresExplicitResume(t *testing.T) {
	s := newTestStrand(t)
	var g *Gen
	reachedStep2 := make(chan struct{})

	step2 := func(g *Gen) Step {
		close(reachedStep2)
		return nil
	}
	step1 := func(g *Gen) Step {
		return g.Yield(step2)
	}

	g = Create(s, step1, nil)
	g.Run()

	select {
	case <-reachedStep2:
		t.Fatal("yield must not auto-resume")
	case <-time.After(100 * time.Millisecond):
	}

	g.Resume(step2)
	select {
	case <-reachedStep2:
	case <-time.After(2 * time.Second):
		t.Fatal("explicit Resume after Yield never ran step2")
	}
}

func TestGenTickResumesOnNextStrandTick(t *testing.T) {
	s := newTestStrand(t)
	done := make(chan struct{})
	var order []string

	var step2 Step
	step1 := func(g *Gen) Step {
		order = append(order, "step1")
		return g.Tick(step2)
	}
	step2 = func(g *Gen) Step {
		order = append(order, "step2")
		close(done)
		return nil
	}

	g := Create(s, step1, nil)
	g.Run()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("tick never resumed")
	}
	assert.Equal(t, []string{"step1", "step2"}, order)
}

func TestGenAwaitConsumesAlreadyFiredSignal(t *testing.T) {
	s := newTestStrand(t)
	done := make(chan struct{})
	var order []string

	var step2 Step
	step1 := func(g *Gen) Step {
		handler := g.AsyncHandler(step2)
		handler() // fires before await runs — asyncSign set true
		return g.Await(step2)
	}
	step2 = func(g *Gen) Step {
		order = append(order, "resumed")
		close(done)
		return nil
	}

	g := Create(s, step1, nil)
	g.Run()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("await never consumed the already-fired signal")
	}
	assert.Equal(t, []string{"resumed"}, order)
}

func TestGenAwaitSuspendsUntilHandlerFires(t *testing.T) {
	s := newTestStrand(t)
	done := make(chan struct{})

	var step2 Step
	var handler func()
	step1 := func(g *Gen) Step {
		handler = g.AsyncHandler(step2)
		return g.Await(step2)
	}
	step2 = func(g *Gen) Step {
		close(done)
		return nil
	}

	g := Create(s, step1, nil)
	g.Run()

	time.Sleep(50 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("generator resumed before handler fired")
	default:
	}

	handler()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler fire never resumed the generator")
	}
}

func TestGenSleepResumesNoEarlierThanDuration(t *testing.T) {
	s := newTestStrand(t)
	done := make(chan time.Time)
	start := time.Now()

	var step2 Step
	step1 := func(g *Gen) Step {
		return g.Sleep(50*time.Millisecond, step2)
	}
	step2 = func(g *Gen) Step {
		done <- time.Now()
		return nil
	}

	g := Create(s, step1, nil)
	g.Run()

	select {
	case when := <-done:
		assert.GreaterOrEqual(t, when.Sub(start), 50*time.Millisecond)
	case <-time.After(2 * time.Second):
		t.Fatal("sleep never resumed")
	}
}

func TestGenStopWithoutLockStopTerminatesImmediately(t *testing.T) {
	s := newTestStrand(t)
	done := make(chan struct{})
	ranStep2 := false

	var step2 Step
	step1 := func(g *Gen) Step {
		return g.Yield(step2)
	}
	step2 = func(g *Gen) Step {
		ranStep2 = true
		return nil
	}

	g := Create(s, step1, func(*Gen) { close(done) })
	g.Run()
	time.Sleep(20 * time.Millisecond)

	g.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stop never terminated the generator")
	}
	assert.False(t, ranStep2)
	assert.True(t, g.Stopped())
}

func TestGenLockStopDefersTerminationToUnlockStop(t *testing.T) {
	s := newTestStrand(t)
	done := make(chan struct{})
	var order []string

	var critical, afterUnlock Step
	step1 := func(g *Gen) Step {
		g.LockStop()
		return g.Sleep(100*time.Millisecond, critical)
	}
	critical = func(g *Gen) Step {
		order = append(order, "critical")
		return g.UnlockStop(afterUnlock)
	}
	afterUnlock = func(g *Gen) Step {
		order = append(order, "after")
		return nil
	}

	g := Create(s, step1, func(*Gen) { close(done) })
	g.Run()

	time.Sleep(10 * time.Millisecond)
	g.Stop() // arrives during the lock_stop bracket

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("generator never terminated")
	}
	assert.Equal(t, []string{"critical"}, order, "stop during lock_stop must terminate exactly at unlock_stop, before the next step")
}

func TestGenForkChildRunsIndependently(t *testing.T) {
	s := newTestStrand(t)
	var mu sync.Mutex
	var order []string
	parentDone := make(chan struct{})
	childDone := make(chan struct{})

	var childStep, parentNext Step
	childStep = func(g *Gen) Step {
		mu.Lock()
		order = append(order, "child")
		mu.Unlock()
		close(childDone)
		return nil
	}
	parentNext = func(g *Gen) Step {
		mu.Lock()
		order = append(order, "parent")
		mu.Unlock()
		close(parentDone)
		return nil
	}
	step1 := func(g *Gen) Step {
		_, next := g.Fork(childStep, parentNext)
		return next
	}

	g := Create(s, step1, nil)
	g.Run()

	<-parentDone
	<-childDone
	assert.Len(t, order, 2)
	assert.Contains(t, order, "parent")
	assert.Contains(t, order, "child")
}

func TestGenFramePoolRecyclesTerminatedNilNotifyFrames(t *testing.T) {
	s := newTestStrand(t)

	var first *Gen
	done := make(chan struct{})
	first = Create(s, func(g *Gen) Step {
		close(done)
		return nil
	}, nil)
	first.Run()
	<-done

	// terminate() runs synchronously inside the same strand callback that
	// ran the body above, so by the time done is closed the frame has
	// already been handed to framePool.Put. A single immediate Get on this
	// goroutine reliably observes it back (sync.Pool's per-P cache makes
	// Put-then-Get on the same goroutine LIFO in practice), the same
	// assumption the teacher's ingress_whitebox_test.go makes about
	// chunkPool round-tripping a specific chunk.
	recycled := framePool.Get().(*Gen)
	assert.Same(t, first, recycled, "nil-notify frame was not recycled through framePool")
}

func TestGenNonNilNotifyFrameIsNotRecycled(t *testing.T) {
	s := newTestStrand(t)

	// Seed the pool with a sentinel so the assertion below distinguishes
	// "frame was recycled" from "pool happened to be empty and allocated a
	// fresh *Gen via New".
	sentinel := &Gen{}
	framePool.Put(sentinel)

	done := make(chan struct{})
	var notified *Gen
	g := Create(s, func(g *Gen) Step {
		return nil
	}, func(n *Gen) {
		notified = n
		close(done)
	})
	g.Run()
	<-done
	assert.Same(t, g, notified)

	got := framePool.Get().(*Gen)
	assert.Same(t, sentinel, got, "generator created with a non-nil notify must not be recycled into framePool")
}

func TestGenCallSuspendsUntilChildCompletes(t *testing.T) {
	s := newTestStrand(t)
	done := make(chan struct{})
	var order []string

	childBody := func(g *Gen) Step {
		order = append(order, "child")
		return nil
	}
	var afterCall Step
	step1 := func(g *Gen) Step {
		return g.Call(childBody, afterCall)
	}
	afterCall = func(g *Gen) Step {
		order = append(order, "after-call")
		close(done)
		return nil
	}

	g := Create(s, step1, nil)
	g.Run()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("caller never resumed after child completion")
	}
	assert.Equal(t, []string{"child", "after-call"}, order)
}

func TestGenRestartReentersBody(t *testing.T) {
	s := newTestStrand(t)
	done := make(chan struct{})
	var count int

	var body Step
	body = func(g *Gen) Step {
		count++
		if count < 3 {
			return g.Restart()
		}
		close(done)
		return nil
	}

	g := Create(s, body, nil)
	g.Run()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("restart loop never completed")
	}
	assert.Equal(t, 3, count)
}

func TestGenQuitSignalTrueAfterTermination(t *testing.T) {
	s := newTestStrand(t)
	done := make(chan struct{})

	body := func(g *Gen) Step {
		return nil
	}
	g := Create(s, body, func(*Gen) { close(done) })
	g.Run()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("generator never completed")
	}
	assert.True(t, g.QuitSignal().True())
}

func TestGenPanicInStepIsRecoveredAndTerminates(t *testing.T) {
	s := newTestStrand(t)
	done := make(chan struct{})

	body := func(g *Gen) Step {
		panic("boom")
	}
	g := Create(s, body, func(*Gen) { close(done) })
	g.Run()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("panicking generator never terminated")
	}
	assert.True(t, g.Stopped())
}

func TestSharedBoolSetIsIdempotent(t *testing.T) {
	b := NewSharedBool()
	assert.True(t, b.Empty())

	b.Set(true)
	b.Set(false) // no-op, first write wins

	v, ok := b.Get()
	require.True(t, ok)
	assert.True(t, v)
	assert.True(t, b.True())
	assert.False(t, b.Empty())
}

func TestSharedBoolReset(t *testing.T) {
	b := NewSharedBool()
	b.Set(true)
	b.Reset()
	assert.True(t, b.Empty())
}
