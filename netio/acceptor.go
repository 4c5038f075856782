//go:build linux

package netio

import (
	"github.com/qq587282/actorgo/strand"
)

// AcceptCallback receives a freshly-accepted Socket, already wrapped onto
// the acceptor's strand, or an error if accept failed.
type AcceptCallback func(*Socket, error)

// Acceptor is a listening, non-blocking socket bound to a strand: each
// Accept call suspends (via the poller, same as Socket.Read/Write) until a
// connection is ready, then hands back a new Socket sharing the
// acceptor's Poller.
type Acceptor struct { //nolint:govet
	strand *strand.Strand
	poller *Poller
	fd     int
}

// NewAcceptor wraps an already-listening, non-blocking fd.
func NewAcceptor(s *strand.Strand, p *Poller, fd int) *Acceptor {
	return &Acceptor{strand: s, poller: p, fd: fd}
}

// Accept suspends until one connection is ready, then delivers a Socket
// for it bound to the same strand and Poller as the Acceptor.
func (a *Acceptor) Accept(notify AcceptCallback) {
	a.strand.Distribute(func() {
		nfd, err := acceptFD(a.fd)
		if !isEAGAIN(err) {
			a.deliver(nfd, err, notify)
			return
		}
		armErr := a.poller.Arm(a.fd, EventRead, func(IOEvents) {
			a.strand.Distribute(func() {
				nfd, err := acceptFD(a.fd)
				a.deliver(nfd, err, notify)
			})
		})
		if armErr != nil {
			notify(nil, armErr)
		}
	})
}

func (a *Acceptor) deliver(nfd int, err error, notify AcceptCallback) {
	if err != nil {
		notify(nil, err)
		return
	}
	if err := setNonblock(nfd); err != nil {
		_ = closeFD(nfd)
		notify(nil, err)
		return
	}
	notify(New(a.strand, a.poller, nfd), nil)
}

// Close stops accepting and closes the listening fd.
func (a *Acceptor) Close() error {
	_ = a.poller.Cancel(a.fd)
	return closeFD(a.fd)
}
