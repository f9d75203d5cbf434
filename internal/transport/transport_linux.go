//go:build linux

// internal/transport/transport_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Non-blocking socket descriptors driven through golang.org/x/sys/unix.

package transport

import (
	"fmt"
	"net"
	"strconv"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-arena/api"
)

// FDConn is an api.RawConn over a non-blocking socket descriptor.
type FDConn struct {
	fd int
}

var _ api.RawConn = (*FDConn)(nil)

// NewFDConn switches fd to non-blocking mode and wraps it.
func NewFDConn(fd int) (*FDConn, error) {
	if err := unix.SetNonblock(fd, true); err != nil {
		return nil, fmt.Errorf("set nonblock: %w", err)
	}
	return &FDConn{fd: fd}, nil
}

// Fd returns the underlying descriptor.
func (c *FDConn) Fd() int {
	return c.fd
}

func (c *FDConn) Read(p []byte) (int, error) {
	for {
		n, err := unix.Read(c.fd, p)
		if err == unix.EINTR {
			continue
		}
		return ioResult(n, err)
	}
}

func (c *FDConn) Peek(p []byte) (int, error) {
	for {
		n, _, err := unix.Recvfrom(c.fd, p, unix.MSG_PEEK)
		if err == unix.EINTR {
			continue
		}
		return ioResult(n, err)
	}
}

func (c *FDConn) Write(p []byte) (int, error) {
	for {
		n, err := unix.Write(c.fd, p)
		if err == unix.EINTR {
			continue
		}
		return ioResult(n, err)
	}
}

func (c *FDConn) Shutdown(how api.ShutdownHow) error {
	var h int
	switch how {
	case api.ShutdownRead:
		h = unix.SHUT_RD
	case api.ShutdownWrite:
		h = unix.SHUT_WR
	case api.ShutdownBoth:
		h = unix.SHUT_RDWR
	default:
		return fmt.Errorf("shutdown %v: %w", how, api.ErrInvalidArgument)
	}
	return unix.Shutdown(c.fd, h)
}

func (c *FDConn) Close() error {
	return unix.Close(c.fd)
}

func ioResult(n int, err error) (int, error) {
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return 0, api.ErrWouldBlock
		}
		return 0, err
	}
	return n, nil
}

// Listener is a non-blocking TCP listening socket whose Accept yields.
type Listener struct {
	fd int
	y  api.Yielder
}

// Listen binds addr ("host:port") and starts listening with the given backlog.
func Listen(addr string, backlog int, y api.Yielder) (*Listener, error) {
	sa, family, err := resolveSockaddr(addr)
	if err != nil {
		return nil, err
	}
	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return nil, fmt.Errorf("socket create: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("setsockopt SO_REUSEADDR: %w", err)
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("bind %s: %w", addr, err)
	}
	if backlog <= 0 {
		backlog = unix.SOMAXCONN
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	return &Listener{fd: fd, y: y}, nil
}

// Accept waits, yielding, for the next connection and returns it as a
// non-blocking raw stream with TCP_NODELAY set.
func (l *Listener) Accept() (*FDConn, error) {
	for {
		nfd, _, err := unix.Accept4(l.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		switch err {
		case nil:
			_ = unix.SetsockoptInt(nfd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
			return &FDConn{fd: nfd}, nil
		case unix.EINTR, unix.ECONNABORTED:
			continue
		case unix.EAGAIN:
			l.y.Yield()
		default:
			return nil, api.NewTransportError("accept", err)
		}
	}
}

// Addr returns the bound address, useful after listening on port 0.
func (l *Listener) Addr() (string, error) {
	sa, err := unix.Getsockname(l.fd)
	if err != nil {
		return "", fmt.Errorf("getsockname: %w", err)
	}
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return net.JoinHostPort(net.IP(a.Addr[:]).String(), strconv.Itoa(a.Port)), nil
	case *unix.SockaddrInet6:
		return net.JoinHostPort(net.IP(a.Addr[:]).String(), strconv.Itoa(a.Port)), nil
	default:
		return "", fmt.Errorf("unexpected socket address %T: %w", sa, api.ErrNotSupported)
	}
}

// Close stops listening.
func (l *Listener) Close() error {
	return unix.Close(l.fd)
}

func resolveSockaddr(addr string) (unix.Sockaddr, int, error) {
	tcp, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, 0, fmt.Errorf("resolve %s: %w", addr, err)
	}
	if tcp.IP == nil || tcp.IP.To4() != nil {
		sa := &unix.SockaddrInet4{Port: tcp.Port}
		if tcp.IP != nil {
			copy(sa.Addr[:], tcp.IP.To4())
		}
		return sa, unix.AF_INET, nil
	}
	sa := &unix.SockaddrInet6{Port: tcp.Port}
	copy(sa.Addr[:], tcp.IP.To16())
	return sa, unix.AF_INET6, nil
}
