// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Shared API-level type declarations and constants.

package api

import "fmt"

// ConnID names one live connection for the lifetime of the process.
type ConnID uint32

// LengthFieldSize is the size of Message.ByteLength on the wire.
const LengthFieldSize = 4

// Message is an outbound binary message. ByteLength is the declared length
// of the whole structure, including the length field itself.
type Message struct {
	ByteLength uint32
	Bytes      []byte
}

// NewMessage wraps payload into a Message with a correct declared length.
func NewMessage(payload []byte) Message {
	return Message{
		ByteLength: uint32(len(payload) + LengthFieldSize),
		Bytes:      payload,
	}
}

// Validate checks the declared length against the buffer.
func (m Message) Validate() error {
	if m.ByteLength < LengthFieldSize {
		return fmt.Errorf("declared length %d shorter than length field: %w", m.ByteLength, ErrInvalidArgument)
	}
	if int(m.ByteLength-LengthFieldSize) > len(m.Bytes) {
		return fmt.Errorf("declared length %d exceeds buffer of %d bytes: %w",
			m.ByteLength, len(m.Bytes)+LengthFieldSize, ErrInvalidArgument)
	}
	return nil
}

// PayloadLen is the wire length: declared length minus the length field.
func (m Message) PayloadLen() int {
	return int(m.ByteLength) - LengthFieldSize
}

// Payload returns the bytes handed to the framing layer. Call Validate first.
func (m Message) Payload() []byte {
	return m.Bytes[:m.PayloadLen()]
}
