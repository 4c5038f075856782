//go:build linux

package actorctl

import (
	"errors"
	"time"

	"golang.org/x/sys/unix"

	"github.com/qq587282/actorgo/netio"
	"github.com/qq587282/actorgo/reactor"
	"github.com/qq587282/actorgo/strand"
)

// TimedReadResult is the outcome of RunTimedRead.
type TimedReadResult struct {
	N        int
	OK       bool
	TimedOut bool
	Elapsed  time.Duration
}

// RunTimedRead implements spec.md §8 scenario 5: open a socket pair and
// issue a 50ms TimedRead on one side with nothing ever written to the
// other. The timer is expected to fire first, closing the socket and
// forcing the read's completion to report TimedOut at ~50ms — this
// package's Read is a single recv(2) call, not an accumulate-until-full
// read, so it cannot reproduce the source scenario's partial-bytes-plus-
// timeout edge case; it demonstrates the plain no-data timeout path that
// netio/socket_test.go's TestSocketTimedReadTimesOutAndClosesTheSocket
// already covers.
func RunTimedRead(pool *reactor.Pool) (TimedReadResult, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return TimedReadResult{}, err
	}
	readFD, writeFD := fds[0], fds[1]
	defer unix.Close(writeFD)

	poller, err := netio.NewPoller()
	if err != nil {
		return TimedReadResult{}, err
	}
	go poller.Run()
	defer poller.Close()

	s := strand.New(pool)
	sock := netio.New(s, poller, readFD)
	if err := sock.SetNonblock(); err != nil {
		return TimedReadResult{}, err
	}

	start := time.Now()
	result := make(chan netio.ReadWriteResult, 1)
	buf := make([]byte, 4)
	sock.TimedRead(50*time.Millisecond, buf, func(r netio.ReadWriteResult) {
		result <- r
	})

	select {
	case r := <-result:
		return TimedReadResult{N: r.N, OK: r.OK, TimedOut: r.TimedOut, Elapsed: time.Since(start)}, nil
	case <-time.After(2 * time.Second):
		return TimedReadResult{}, errors.New("timed-read: read never completed")
	}
}
