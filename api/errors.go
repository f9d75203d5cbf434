// File: api/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Error taxonomy shared by the transport, framing and send layers.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the server.
var (
	// ErrWouldBlock is returned by a RawConn when the operation cannot make
	// progress right now. It never escapes the transport adapter.
	ErrWouldBlock = errors.New("operation would block")

	// ErrConnectionClosed reports an orderly close by the peer, or use of a
	// handle that was already closed locally.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrShuttingDown is returned by blocked I/O in a task that is being
	// unwound because the scheduler is stopping.
	ErrShuttingDown = errors.New("scheduler shutting down")

	// ErrUnknownConnection is returned when sending to an id that is not registered.
	ErrUnknownConnection = errors.New("unknown connection id")

	ErrNotSupported    = errors.New("operation not supported")
	ErrInvalidArgument = errors.New("invalid argument")
)

// TransportError carries an OS-level I/O failure unrelated to would-block.
type TransportError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying OS error (usually a syscall.Errno).
func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError wraps err for operation op.
func NewTransportError(op string, err error) *TransportError {
	return &TransportError{Op: op, Err: err}
}
