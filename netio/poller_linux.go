//go:build linux

// Package netio implements the strand-bound socket/acceptor interface of
// spec.md §4.7: non-blocking sockets whose readiness is delivered through
// a reactor-fed epoll poller, composed with timers for timeouts, using the
// same op/timed_op/try_op vocabulary as channels.
package netio

import (
	"errors"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// maxFDs bounds direct-indexed lookup the same way a file-descriptor table
// is sized in most epoll wrappers: a fixed-size array trades memory for
// O(1) dispatch instead of a map keyed by fd.
const maxFDs = 65536

// IOEvents is a bitmask of readiness conditions reported for an armed file
// descriptor.
type IOEvents uint32

const (
	EventRead IOEvents = 1 << iota
	EventWrite
	EventError
	EventHangup
)

var (
	ErrFDOutOfRange   = errors.New("netio: fd out of range")
	ErrFDAlreadyArmed = errors.New("netio: fd already armed")
	ErrFDNotArmed     = errors.New("netio: fd not armed")
	ErrPollerClosed   = errors.New("netio: poller closed")
)

// IOCallback receives one readiness notification; it is invoked from the
// poller's own dispatch loop, so it must hand off to the owning strand
// itself rather than touch strand-owned state directly.
type IOCallback func(IOEvents)

// fdWaiter is the single outstanding readiness request for one fd. Every
// caller in this package (Socket.op, Acceptor.Accept) arms at most one
// waiter per fd at a time and expects exactly one firing — spec.md §4.7's
// `op` retries its syscall once on EAGAIN and never re-arms without first
// completing or cancelling — so the poller itself enforces the one-shot
// contract: Arm fails if a waiter is already outstanding, and dispatch
// consumes (clears) the slot before invoking fire, rather than leaving it
// to the caller to call a separate disarm method after every firing.
type fdWaiter struct {
	events IOEvents
	fire   IOCallback
}

// Poller drives a single epoll instance and dispatches readiness
// callbacks for the one-shot fd waiters Socket and Acceptor arm. A version
// counter detects and discards stale PollIO results if the waiter table
// changed mid-syscall — an epoll_wait batch that raced a Cancel for one of
// its fds reports about registrations that may no longer be live, so the
// whole batch is dropped rather than risk firing a cancelled waiter.
type Poller struct {
	epfd     int32
	version  atomic.Uint64
	eventBuf [256]unix.EpollEvent
	waiters  [maxFDs]*fdWaiter
	waitMu   sync.RWMutex
	closed   atomic.Bool
}

// NewPoller creates and initializes an epoll-backed Poller.
func NewPoller() (*Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &Poller{epfd: int32(epfd)}, nil
}

// Close releases the epoll file descriptor.
func (p *Poller) Close() error {
	p.closed.Store(true)
	if p.epfd > 0 {
		return unix.Close(int(p.epfd))
	}
	return nil
}

// Arm registers fd for exactly one readiness notification matching events;
// fire is invoked once, after which the fd is automatically removed from
// epoll — callers do not call Cancel after a successful firing, only to
// abandon a waiter that has not yet fired (e.g. the owning Socket closed).
func (p *Poller) Arm(fd int, events IOEvents, fire IOCallback) error {
	if p.closed.Load() {
		return ErrPollerClosed
	}
	if fd < 0 || fd >= maxFDs {
		return ErrFDOutOfRange
	}

	p.waitMu.Lock()
	if p.waiters[fd] != nil {
		p.waitMu.Unlock()
		return ErrFDAlreadyArmed
	}
	p.waiters[fd] = &fdWaiter{events: events, fire: fire}
	p.version.Add(1)
	p.waitMu.Unlock()

	ev := &unix.EpollEvent{Events: eventsToEpoll(events), Fd: int32(fd)}
	if err := unix.EpollCtl(int(p.epfd), unix.EPOLL_CTL_ADD, fd, ev); err != nil {
		p.waitMu.Lock()
		p.waiters[fd] = nil
		p.waitMu.Unlock()
		return err
	}
	return nil
}

// Cancel abandons an outstanding Arm for fd before it has fired, used by
// Socket.Close/Acceptor.Close to tear down a waiter that will never see
// its event. Firing a waiter already disarms it internally (see dispatch),
// so Cancel after a normal firing is a harmless no-op, reported as
// ErrFDNotArmed.
func (p *Poller) Cancel(fd int) error {
	if fd < 0 || fd >= maxFDs {
		return ErrFDOutOfRange
	}
	p.waitMu.Lock()
	if p.waiters[fd] == nil {
		p.waitMu.Unlock()
		return ErrFDNotArmed
	}
	p.waiters[fd] = nil
	p.version.Add(1)
	p.waitMu.Unlock()
	return unix.EpollCtl(int(p.epfd), unix.EPOLL_CTL_DEL, fd, nil)
}

// PollIO blocks up to timeoutMs waiting for readiness, then dispatches
// callbacks inline on the calling goroutine (the dedicated poller
// goroutine started by Run).
func (p *Poller) PollIO(timeoutMs int) (int, error) {
	if p.closed.Load() {
		return 0, ErrPollerClosed
	}
	v := p.version.Load()
	n, err := unix.EpollWait(int(p.epfd), p.eventBuf[:], timeoutMs)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return 0, nil
		}
		return 0, err
	}
	if p.version.Load() != v {
		return 0, nil
	}
	p.dispatch(n)
	return n, nil
}

// Run drives PollIO in a loop until closed, intended to be launched on its
// own goroutine by the owner (e.g. Acceptor setup code) once per
// process; every Socket shares the one Poller instance.
func (p *Poller) Run() {
	for !p.closed.Load() {
		if _, err := p.PollIO(1000); err != nil {
			return
		}
	}
}

func (p *Poller) dispatch(n int) {
	for i := 0; i < n; i++ {
		fd := int(p.eventBuf[i].Fd)
		if fd < 0 || fd >= maxFDs {
			continue
		}
		p.waitMu.Lock()
		w := p.waiters[fd]
		p.waiters[fd] = nil
		p.waitMu.Unlock()
		if w == nil {
			continue
		}
		_ = unix.EpollCtl(int(p.epfd), unix.EPOLL_CTL_DEL, fd, nil)
		w.fire(epollToEvents(p.eventBuf[i].Events))
	}
}

func eventsToEpoll(events IOEvents) uint32 {
	var e uint32
	if events&EventRead != 0 {
		e |= unix.EPOLLIN
	}
	if events&EventWrite != 0 {
		e |= unix.EPOLLOUT
	}
	return e
}

func epollToEvents(e uint32) IOEvents {
	var events IOEvents
	if e&unix.EPOLLIN != 0 {
		events |= EventRead
	}
	if e&unix.EPOLLOUT != 0 {
		events |= EventWrite
	}
	if e&unix.EPOLLERR != 0 {
		events |= EventError
	}
	if e&unix.EPOLLHUP != 0 {
		events |= EventHangup
	}
	return events
}
