// Package protocol
// Author: momentics <momentics@gmail.com>
//
// Wire limits and stream contract.

package protocol

import (
	"errors"
	"io"
)

const (
	// MaxFramePayload bounds one reassembled message.
	MaxFramePayload = 1 << 20 // 1 MiB

	// MaxHandshakeHeadersSize bounds the HTTP upgrade request head.
	MaxHandshakeHeadersSize = 8192
)

var (
	// ErrProtocol reports a peer that violated the framing rules.
	ErrProtocol = errors.New("websocket protocol violation")

	// ErrMessageTooBig reports a message over MaxFramePayload.
	ErrMessageTooBig = errors.New("websocket message too big")

	// ErrHandshakeTooLarge reports an upgrade request head over MaxHandshakeHeadersSize.
	ErrHandshakeTooLarge = errors.New("handshake headers too large")
)

// Stream is the transport capability the framing layer needs. It is
// satisfied by *transport.Socket.
type Stream interface {
	io.Reader
	// Peek reads without consuming.
	Peek(p []byte) (int, error)
	// WriteAll writes p completely.
	WriteAll(p []byte) (int, error)
	// Suspend yields the calling task once.
	Suspend()
}
