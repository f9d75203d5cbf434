// File: fake/conn.go
// Author: momentics <momentics@gmail.com>
//
// Scripted in-memory api.RawConn.

package fake

import (
	"sync"

	"github.com/momentics/hioload-arena/api"
)

// Conn is an in-memory raw stream. Reads drain bytes fed with Feed; with no
// bytes pending they report api.ErrWouldBlock until ClosePeer is called.
// Scripted would-block results are consumed before any data is delivered.
type Conn struct {
	mu sync.Mutex

	in         []byte
	readBlocks int
	readErr    error
	peerClosed bool

	out         []byte
	writeBlocks int
	writeChunk  int
	writeErr    error

	shutdowns []api.ShutdownHow
	closed    bool
	closeErr  error
}

var _ api.RawConn = (*Conn)(nil)

// NewConn returns a Conn with data already pending.
func NewConn(data []byte) *Conn {
	return &Conn{in: append([]byte(nil), data...)}
}

// Feed appends bytes for the reader.
func (c *Conn) Feed(p []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.in = append(c.in, p...)
}

// BlockReads makes the next n read or peek calls report would-block.
func (c *Conn) BlockReads(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readBlocks = n
}

// BlockWrites makes the next n write calls report would-block.
func (c *Conn) BlockWrites(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeBlocks = n
}

// LimitWrites caps the bytes accepted per write call, producing short writes.
func (c *Conn) LimitWrites(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeChunk = n
}

// FailReads makes reads and peeks return err.
func (c *Conn) FailReads(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readErr = err
}

// FailWrites makes writes return err.
func (c *Conn) FailWrites(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeErr = err
}

// FailClose makes Close return err.
func (c *Conn) FailClose(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeErr = err
}

// ClosePeer simulates an orderly close once pending bytes are drained.
func (c *Conn) ClosePeer() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.peerClosed = true
}

// Written returns a copy of everything written so far.
func (c *Conn) Written() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.out...)
}

// Pending returns the number of unread bytes.
func (c *Conn) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.in)
}

// Closed reports whether Close was called.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Shutdowns returns the directions passed to Shutdown.
func (c *Conn) Shutdowns() []api.ShutdownHow {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]api.ShutdownHow(nil), c.shutdowns...)
}

func (c *Conn) Read(p []byte) (int, error) {
	return c.read(p, true)
}

func (c *Conn) Peek(p []byte) (int, error) {
	return c.read(p, false)
}

func (c *Conn) read(p []byte, consume bool) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readBlocks > 0 {
		c.readBlocks--
		return 0, api.ErrWouldBlock
	}
	if c.readErr != nil {
		return 0, c.readErr
	}
	if len(c.in) == 0 {
		if c.peerClosed {
			return 0, nil
		}
		return 0, api.ErrWouldBlock
	}
	n := copy(p, c.in)
	if consume {
		c.in = c.in[n:]
	}
	return n, nil
}

func (c *Conn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeBlocks > 0 {
		c.writeBlocks--
		return 0, api.ErrWouldBlock
	}
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	n := len(p)
	if c.writeChunk > 0 && n > c.writeChunk {
		n = c.writeChunk
	}
	c.out = append(c.out, p[:n]...)
	return n, nil
}

func (c *Conn) Shutdown(how api.ShutdownHow) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shutdowns = append(c.shutdowns, how)
	if how == api.ShutdownRead || how == api.ShutdownBoth {
		c.peerClosed = true
		c.in = nil
	}
	return nil
}

func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return c.closeErr
}
