//go:build linux || darwin

package netio

import (
	"golang.org/x/sys/unix"
)

func closeFD(fd int) error { return unix.Close(fd) }

func readFD(fd int, buf []byte) (int, error) { return unix.Read(fd, buf) }

func writeFD(fd int, buf []byte) (int, error) { return unix.Write(fd, buf) }

// readvFD fills bufs in order, the vector counterpart to readFD used by
// Socket.ReadVec (spec.md §4.7's "vector variant for multi-buffer
// send/recv").
func readvFD(fd int, bufs [][]byte) (int, error) {
	return unix.Readv(fd, bufs)
}

// writevFD drains bufs in order, the vector counterpart to writeFD.
func writevFD(fd int, bufs [][]byte) (int, error) {
	return unix.Writev(fd, bufs)
}

func setNonblock(fd int) error { return unix.SetNonblock(fd, true) }

func acceptFD(fd int) (int, error) {
	nfd, _, err := unix.Accept(fd)
	return nfd, err
}

// isEAGAIN reports whether err is the "would block" signal a non-blocking
// syscall uses to mean "register with the poller and retry later" rather
// than a real failure.
func isEAGAIN(err error) bool {
	return err == unix.EAGAIN || err == unix.EWOULDBLOCK
}
