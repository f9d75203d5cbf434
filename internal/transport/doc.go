// File: internal/transport/doc.go
// Package transport
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Non-blocking socket transport for the arena server.
//
// Socket turns the would-block contract of an api.RawConn into operations
// that never block the OS thread: when the raw stream cannot make progress
// the calling task yields to the scheduler and retries the same operation on
// resumption. This is a poll-and-yield design; every suspended connection
// costs one scheduler pass per round, which bounds the practical connection
// count. Raw descriptors are driven through golang.org/x/sys/unix on Linux;
// other platforms report api.ErrNotSupported.
package transport
