// File: protocol/handshake.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Server side of the opening handshake.

package protocol

import (
	"bytes"
	"fmt"
	"io"

	"github.com/gobwas/ws"
)

var headTerminator = []byte("\r\n\r\n")

// Handshake performs the server side of the upgrade. It peeks until the full
// request head is buffered in the kernel, consumes exactly those bytes, and
// answers through gobwas/ws. Bytes the client sent after the head (an early
// first frame) stay on the stream.
func Handshake(s Stream) (ws.Handshake, error) {
	head, err := readRequestHead(s)
	if err != nil {
		return ws.Handshake{}, err
	}
	rw := struct {
		io.Reader
		io.Writer
	}{
		Reader: bytes.NewReader(head),
		Writer: fullWriter{s},
	}
	var u ws.Upgrader
	hs, err := u.Upgrade(rw)
	if err != nil {
		return hs, fmt.Errorf("handshake upgrade: %w", err)
	}
	return hs, nil
}

func readRequestHead(s Stream) ([]byte, error) {
	buf := make([]byte, MaxHandshakeHeadersSize)
	seen := 0
	for {
		n, err := s.Peek(buf)
		if err != nil {
			return nil, fmt.Errorf("handshake peek: %w", err)
		}
		if i := bytes.Index(buf[:n], headTerminator); i >= 0 {
			head := make([]byte, i+len(headTerminator))
			if _, err := io.ReadFull(s, head); err != nil {
				return nil, fmt.Errorf("handshake read: %w", err)
			}
			return head, nil
		}
		if n == len(buf) {
			return nil, ErrHandshakeTooLarge
		}
		if n == seen {
			s.Suspend()
		}
		seen = n
	}
}

// fullWriter adapts Stream to io.Writer, which forbids short writes.
type fullWriter struct {
	s Stream
}

func (w fullWriter) Write(p []byte) (int, error) {
	return w.s.WriteAll(p)
}

var _ io.Writer = fullWriter{}

