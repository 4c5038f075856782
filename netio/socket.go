//go:build linux

package netio

import (
	"time"

	"github.com/qq587282/actorgo/actorerr"
	"github.com/qq587282/actorgo/strand"
)

// ReadWriteResult is the completion shape for a socket read or write
// (spec.md §4.7): a byte count, an OS-shaped error, and a redundant-but-
// convenient OK flag plus a TimedOut flag distinguishing a timer-forced
// close from any other failure.
type ReadWriteResult struct {
	N        int
	Err      error
	OK       bool
	TimedOut bool
}

// Callback receives the result of one Op/TimedOp/TryOp call.
type Callback func(ReadWriteResult)

// Socket is a non-blocking file descriptor bound to one strand and one
// shared Poller. All ops funnel onto the strand: the poller's own
// goroutine only ever marshals a completion back via strand.Distribute,
// preserving "a socket operation completes inside its owning strand"
// (spec.md §5 "Shared resources").
type Socket struct { //nolint:govet
	strand *strand.Strand
	poller *Poller
	fd     int
	closed bool
}

// New wraps fd (already non-blocking, or made so by calling SetNonblock)
// as a Socket bound to s, polled by p.
func New(s *strand.Strand, p *Poller, fd int) *Socket {
	return &Socket{strand: s, poller: p, fd: fd}
}

// SetNonblock puts the underlying fd into non-blocking mode, required
// before any Op/TimedOp call (spec.md §4.7's "pre-option" fast path
// assumes user-non-blocking mode).
func (sock *Socket) SetNonblock() error { return setNonblock(sock.fd) }

// FD returns the underlying file descriptor, for callers that need to set
// socket options this package does not wrap.
func (sock *Socket) FD() int { return sock.fd }

// Close cancels any outstanding poller arming for the fd and closes it.
func (sock *Socket) Close() error {
	if sock.closed {
		return nil
	}
	sock.closed = true
	_ = sock.poller.Cancel(sock.fd)
	return closeFD(sock.fd)
}

// Read performs a (possibly-suspending) read, per spec.md §4.7 `op`: it
// first tries the non-blocking syscall directly (the "pre-option" fast
// path — reduces scheduling latency without changing observable
// semantics), and only registers with the poller on EAGAIN.
func (sock *Socket) Read(buf []byte, notify Callback) {
	sock.op(EventRead, func() (int, error) { return readFD(sock.fd, buf) }, notify)
}

// Write performs a (possibly-suspending) write; see Read.
func (sock *Socket) Write(buf []byte, notify Callback) {
	sock.op(EventWrite, func() (int, error) { return writeFD(sock.fd, buf) }, notify)
}

// ReadVec is the vector read variant of spec.md §4.7: fills bufs in
// order via a single readv(2) call once the socket is readable.
func (sock *Socket) ReadVec(bufs [][]byte, notify Callback) {
	sock.op(EventRead, func() (int, error) { return readvFD(sock.fd, bufs) }, notify)
}

// WriteVec is the vector write variant of spec.md §4.7.
func (sock *Socket) WriteVec(bufs [][]byte, notify Callback) {
	sock.op(EventWrite, func() (int, error) { return writevFD(sock.fd, bufs) }, notify)
}

// TryRead is spec.md §4.7's `try_op`: a single non-blocking syscall, no
// registration, no suspension. Reports Fail-shaped results (N=0,
// OK=false) on EAGAIN rather than waiting.
func (sock *Socket) TryRead(buf []byte) ReadWriteResult {
	return tryOnce(func() (int, error) { return readFD(sock.fd, buf) })
}

// TryWrite is the try_op write counterpart to TryRead.
func (sock *Socket) TryWrite(buf []byte) ReadWriteResult {
	return tryOnce(func() (int, error) { return writeFD(sock.fd, buf) })
}

// TimedRead composes Read with a timer per spec.md §4.7 `timed_op`: the
// timer's fire action closes the socket (dropping the read's poller
// registration) and completes the read with TimedOut and ErrTimedOut; a
// read that completes first cancels the timer instead — "every timed
// close-on-timeout path is safe under the rule: the operation either
// completes before the timer or its resource is closed" (spec.md §5).
func (sock *Socket) TimedRead(d time.Duration, buf []byte, notify Callback) {
	sock.timedOp(d, func(cb Callback) { sock.Read(buf, cb) }, notify)
}

// TimedWrite is the write counterpart to TimedRead.
func (sock *Socket) TimedWrite(d time.Duration, buf []byte, notify Callback) {
	sock.timedOp(d, func(cb Callback) { sock.Write(buf, cb) }, notify)
}

func (sock *Socket) timedOp(d time.Duration, start func(Callback), notify Callback) {
	var settled bool
	timer := sock.strand.Pool().ScheduleTimer(d, func() {
		sock.strand.Distribute(func() {
			if settled {
				return
			}
			settled = true
			_ = sock.Close()
			notify(ReadWriteResult{Err: actorerr.ErrTimedOut, TimedOut: true})
		})
	})
	start(func(res ReadWriteResult) {
		sock.strand.Distribute(func() {
			if settled {
				return
			}
			settled = true
			timer.Cancel()
			notify(res)
		})
	})
}

// op implements spec.md §4.7's `op`: try the syscall inline first (the
// "pre-option" fast path); on EAGAIN, arm the poller for one readiness
// event, then retry exactly once, since epoll's level-triggered
// notification guarantees the retry will not itself block. The poller
// disarms the fd itself once it fires, so there is no matching Cancel call
// here on the success path.
func (sock *Socket) op(want IOEvents, syscall func() (int, error), notify Callback) {
	sock.strand.Distribute(func() {
		n, err := syscall()
		if !isEAGAIN(err) {
			notify(resultFrom(n, err))
			return
		}
		armErr := sock.poller.Arm(sock.fd, want, func(IOEvents) {
			sock.strand.Distribute(func() {
				n, err := syscall()
				notify(resultFrom(n, err))
			})
		})
		if armErr != nil {
			notify(ReadWriteResult{Err: armErr})
		}
	})
}

func tryOnce(syscall func() (int, error)) ReadWriteResult {
	n, err := syscall()
	if isEAGAIN(err) {
		return ReadWriteResult{OK: false}
	}
	return resultFrom(n, err)
}

func resultFrom(n int, err error) ReadWriteResult {
	return ReadWriteResult{N: n, Err: err, OK: err == nil}
}
