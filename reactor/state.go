package reactor

import "sync/atomic"

// PoolState is the lifecycle state of a Pool.
type PoolState uint64

const (
	// StateRunning indicates workers are live and accepting Submit calls.
	StateRunning PoolState = iota
	// StateShuttingDown indicates Shutdown has been called; workers are
	// draining the ready queue but no longer sleep indefinitely.
	StateShuttingDown
	// StateShutdown indicates every worker has exited and the queue is
	// empty; Submit after this point is a fatal misuse (spec.md §4.1).
	StateShutdown
)

func (s PoolState) String() string {
	switch s {
	case StateRunning:
		return "Running"
	case StateShuttingDown:
		return "ShuttingDown"
	case StateShutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}

// poolState is a lock-free state machine, mirroring the teacher module's
// FastState: pure CAS transitions, no validation overhead on the read path.
type poolState struct {
	v atomic.Uint64
}

func newPoolState() *poolState {
	s := &poolState{}
	s.v.Store(uint64(StateRunning))
	return s
}

func (s *poolState) Load() PoolState { return PoolState(s.v.Load()) }

func (s *poolState) Store(v PoolState) { s.v.Store(uint64(v)) }

func (s *poolState) TryTransition(from, to PoolState) bool {
	return s.v.CompareAndSwap(uint64(from), uint64(to))
}
