//go:build linux

package netio

import (
	"net"
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

func tcpFDPair(t *testing.T) (clientFD, serverFD int) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	acceptDone := make(chan net.Conn, 1)
	go func() {
		c, _ := ln.Accept()
		acceptDone <- c
	}()

	client, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	server := <-acceptDone
	require.NotNil(t, server)

	clientTCP := client.(*net.TCPConn)
	serverTCP := server.(*net.TCPConn)

	clientFile, err := clientTCP.File()
	require.NoError(t, err)
	serverFile, err := serverTCP.File()
	require.NoError(t, err)

	// The *net.TCPConn and the dup'd *os.File both own a copy of the fd
	// now; close the net-level wrappers so only our raw fds remain live.
	_ = client.Close()
	_ = server.Close()

	t.Cleanup(func() { _ = clientFile.Close() })
	t.Cleanup(func() { _ = serverFile.Close() })

	return int(clientFile.Fd()), int(serverFile.Fd())
}

func newTestPoller(t *testing.T) *Poller {
	p, err := NewPoller()
	require.NoError(t, err)
	go p.Run()
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestSocketWriteThenReadRoundTrips(t *testing.T) {
	s := newTestStrand(t)
	poller := newTestPoller(t)
	clientFD, serverFD := tcpFDPair(t)
	require.NoError(t, setNonblock(clientFD))
	require.NoError(t, setNonblock(serverFD))

	client := New(s, poller, clientFD)
	server := New(s, poller, serverFD)

	written := make(chan ReadWriteResult, 1)
	client.Write([]byte("hello"), func(res ReadWriteResult) { written <- res })

	buf := make([]byte, 5)
	read := make(chan ReadWriteResult, 1)
	server.Read(buf, func(res ReadWriteResult) { read <- res })

	select {
	case res := <-written:
		assert.True(t, res.OK)
		assert.Equal(t, 5, res.N)
	case <-time.After(2 * time.Second):
		t.Fatal("write never completed")
	}
	select {
	case res := <-read:
		assert.True(t, res.OK)
		assert.Equal(t, "hello", string(buf[:res.N]))
	case <-time.After(2 * time.Second):
		t.Fatal("read never completed")
	}
}

func TestSocketReadSuspendsUntilDataArrives(t *testing.T) {
	s := newTestStrand(t)
	poller := newTestPoller(t)
	clientFD, serverFD := tcpFDPair(t)
	require.NoError(t, setNonblock(clientFD))
	require.NoError(t, setNonblock(serverFD))

	client := New(s, poller, clientFD)
	server := New(s, poller, serverFD)

	buf := make([]byte, 4)
	read := make(chan ReadWriteResult, 1)
	server.Read(buf, func(res ReadWriteResult) { read <- res })

	select {
	case <-read:
		t.Fatal("read completed before any data was written")
	case <-time.After(50 * time.Millisecond):
	}

	client.Write([]byte("data"), func(ReadWriteResult) {})
	select {
	case res := <-read:
		assert.True(t, res.OK)
		assert.Equal(t, "data", string(buf[:res.N]))
	case <-time.After(2 * time.Second):
		t.Fatal("read never resumed after write")
	}
}

func TestSocketTryReadFailsWhenNoDataAvailable(t *testing.T) {
	s := newTestStrand(t)
	poller := newTestPoller(t)
	_, serverFD := tcpFDPair(t)
	require.NoError(t, setNonblock(serverFD))

	server := New(s, poller, serverFD)
	res := server.TryRead(make([]byte, 4))
	assert.False(t, res.OK)
}

func TestSocketTimedReadTimesOutAndClosesTheSocket(t *testing.T) {
	s := newTestStrand(t)
	poller := newTestPoller(t)
	_, serverFD := tcpFDPair(t)
	require.NoError(t, setNonblock(serverFD))

	server := New(s, poller, serverFD)

	start := time.Now()
	done := make(chan ReadWriteResult, 1)
	server.TimedRead(50*time.Millisecond, make([]byte, 4), func(res ReadWriteResult) { done <- res })

	select {
	case res := <-done:
		assert.True(t, res.TimedOut)
		assert.False(t, res.OK)
		assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	case <-time.After(2 * time.Second):
		t.Fatal("timed read never fired")
	}
}

func TestSocketTimedReadCancelledByInTimeData(t *testing.T) {
	s := newTestStrand(t)
	poller := newTestPoller(t)
	clientFD, serverFD := tcpFDPair(t)
	require.NoError(t, setNonblock(clientFD))
	require.NoError(t, setNonblock(serverFD))

	client := New(s, poller, clientFD)
	server := New(s, poller, serverFD)

	buf := make([]byte, 2)
	done := make(chan ReadWriteResult, 1)
	server.TimedRead(2*time.Second, buf, func(res ReadWriteResult) { done <- res })

	client.Write([]byte("ok"), func(ReadWriteResult) {})
	select {
	case res := <-done:
		assert.True(t, res.OK)
		assert.False(t, res.TimedOut)
		assert.Equal(t, "ok", string(buf[:res.N]))
	case <-time.After(2 * time.Second):
		t.Fatal("timed read never resolved")
	}
}
