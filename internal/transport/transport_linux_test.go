//go:build linux

// File: internal/transport/transport_linux_test.go
// Author: momentics <momentics@gmail.com>

package transport

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-arena/api"
	"github.com/momentics/hioload-arena/fake"
)

func socketPair(t *testing.T) (*FDConn, *FDConn) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	a, err := NewFDConn(fds[0])
	require.NoError(t, err)
	b, err := NewFDConn(fds[1])
	require.NoError(t, err)
	return a, b
}

func TestFDConnWouldBlockAndPeek(t *testing.T) {
	a, b := socketPair(t)
	defer a.Close()
	defer b.Close()

	buf := make([]byte, 8)
	_, err := a.Read(buf)
	require.ErrorIs(t, err, api.ErrWouldBlock)

	n, err := b.Write([]byte("ping"))
	require.NoError(t, err)
	require.Equal(t, 4, n)

	n, err = a.Peek(buf)
	require.NoError(t, err)
	require.Equal(t, "ping", string(buf[:n]))
	n, err = a.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "ping", string(buf[:n]))
}

func TestFDConnPeerClose(t *testing.T) {
	a, b := socketPair(t)
	defer a.Close()
	require.NoError(t, b.Shutdown(api.ShutdownWrite))
	require.NoError(t, b.Close())

	s := NewSocket(a, &fake.Yielder{})
	_, err := s.Read(make([]byte, 1))
	require.ErrorIs(t, err, api.ErrConnectionClosed)
}

func TestFDConnShutdownInvalid(t *testing.T) {
	a, b := socketPair(t)
	defer a.Close()
	defer b.Close()
	require.ErrorIs(t, a.Shutdown(api.ShutdownHow(42)), api.ErrInvalidArgument)
}

func TestListenerAccept(t *testing.T) {
	y := &fake.Yielder{}
	ln, err := Listen("127.0.0.1:0", 0, y)
	require.NoError(t, err)
	defer ln.Close()

	addr, err := ln.Addr()
	require.NoError(t, err)

	var client net.Conn
	y.OnYield = func(n int) {
		if n == 1 {
			c, derr := net.Dial("tcp", addr)
			require.NoError(t, derr)
			client = c
		} else {
			time.Sleep(time.Millisecond)
		}
	}
	conn, err := ln.Accept()
	require.NoError(t, err)
	defer conn.Close()
	defer client.Close()
	require.GreaterOrEqual(t, y.Count(), 1)

	_, err = client.Write([]byte("hi"))
	require.NoError(t, err)
	s := NewSocket(conn, y)
	buf := make([]byte, 2)
	n, err := s.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "hi", string(buf[:n]))
}

func TestResolveSockaddr(t *testing.T) {
	sa, family, err := resolveSockaddr(":6970")
	require.NoError(t, err)
	require.Equal(t, unix.AF_INET, family)
	require.Equal(t, 6970, sa.(*unix.SockaddrInet4).Port)

	_, family, err = resolveSockaddr("[::1]:0")
	require.NoError(t, err)
	require.Equal(t, unix.AF_INET6, family)

	_, _, err = resolveSockaddr("not an address")
	require.Error(t, err)
}
