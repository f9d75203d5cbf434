//go:build !linux

// internal/transport/transport_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Placeholder for platforms without a raw descriptor transport.

package transport

import "github.com/momentics/hioload-arena/api"

// FDConn is unavailable on this platform.
type FDConn struct{}

// NewFDConn reports api.ErrNotSupported.
func NewFDConn(fd int) (*FDConn, error) {
	return nil, api.ErrNotSupported
}

func (c *FDConn) Fd() int { return -1 }
func (c *FDConn) Read(p []byte) (int, error) { return 0, api.ErrNotSupported }
func (c *FDConn) Peek(p []byte) (int, error) { return 0, api.ErrNotSupported }
func (c *FDConn) Write(p []byte) (int, error) { return 0, api.ErrNotSupported }
func (c *FDConn) Shutdown(api.ShutdownHow) error { return api.ErrNotSupported }
func (c *FDConn) Close() error { return api.ErrNotSupported }

// Listener is unavailable on this platform.
type Listener struct{}

// Listen reports api.ErrNotSupported.
func Listen(addr string, backlog int, y api.Yielder) (*Listener, error) {
	return nil, api.ErrNotSupported
}

func (l *Listener) Accept() (*FDConn, error) { return nil, api.ErrNotSupported }
func (l *Listener) Addr() (string, error) { return "", api.ErrNotSupported }
func (l *Listener) Close() error { return api.ErrNotSupported }
