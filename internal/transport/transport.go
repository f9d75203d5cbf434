// Package transport
// Author: momentics <momentics@gmail.com>
//
// Cooperative transport adapter over a non-blocking raw stream.

package transport

import (
	"errors"

	"github.com/momentics/hioload-arena/api"
)

// Socket is the transport handle of one connection. It is not safe for
// concurrent use: at most one read-side and one write-side operation may be
// in flight. Once Close returns, every operation, including one suspended
// in another task, fails with api.ErrConnectionClosed without touching the
// raw stream.
type Socket struct {
	raw     api.RawConn
	y       api.Yielder
	writing bool
	closed  bool
}

// NewSocket wraps raw, suspending through y whenever raw would block.
func NewSocket(raw api.RawConn, y api.Yielder) *Socket {
	return &Socket{raw: raw, y: y}
}

// Read reads at least one byte into p. It returns api.ErrConnectionClosed
// when the peer closed the stream and *api.TransportError on OS failure.
func (s *Socket) Read(p []byte) (int, error) {
	return s.retry("read", s.raw.Read, p)
}

// Peek is Read without consuming the bytes: a later Read observes them again.
func (s *Socket) Peek(p []byte) (int, error) {
	return s.retry("peek", s.raw.Peek, p)
}

// Write writes at least one byte of p. A short write is a valid result.
func (s *Socket) Write(p []byte) (int, error) {
	return s.retry("write", s.raw.Write, p)
}

// WriteAll writes p completely, looping over short writes. Concurrent
// WriteAll calls from different tasks are serialized so that their bytes
// never interleave on the wire.
func (s *Socket) WriteAll(p []byte) (int, error) {
	for s.writing {
		if err := s.suspend(); err != nil {
			return 0, err
		}
	}
	if s.closed {
		return 0, api.ErrConnectionClosed
	}
	s.writing = true
	defer func() { s.writing = false }()

	total := 0
	for total < len(p) {
		n, err := s.Write(p[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Suspend yields the calling task once, for callers polling with Peek.
func (s *Socket) Suspend() {
	s.y.Yield()
}

// Closed reports whether Close has been called.
func (s *Socket) Closed() bool {
	return s.closed
}

// Shutdown closes one or both directions of the stream.
func (s *Socket) Shutdown(how api.ShutdownHow) error {
	if s.closed {
		return api.ErrConnectionClosed
	}
	if err := s.raw.Shutdown(how); err != nil {
		return api.NewTransportError("shutdown", err)
	}
	return nil
}

// Close releases the underlying descriptor. The handle is unusable
// afterwards even if the release failed; a second Close is a no-op.
func (s *Socket) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.raw.Close(); err != nil {
		return api.NewTransportError("close", err)
	}
	return nil
}

// suspend yields once and reports whether the handle may still be used.
func (s *Socket) suspend() error {
	s.y.Yield()
	if u, ok := s.y.(api.Unwinder); ok && u.Unwinding() {
		return api.ErrShuttingDown
	}
	if s.closed {
		return api.ErrConnectionClosed
	}
	return nil
}

func (s *Socket) retry(op string, fn func([]byte) (int, error), p []byte) (int, error) {
	if s.closed {
		return 0, api.ErrConnectionClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	for {
		n, err := fn(p)
		if n > 0 {
			return n, nil
		}
		if err == nil {
			return 0, api.ErrConnectionClosed
		}
		if !errors.Is(err, api.ErrWouldBlock) {
			return 0, api.NewTransportError(op, err)
		}
		if err := s.suspend(); err != nil {
			return 0, err
		}
	}
}
