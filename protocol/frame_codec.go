// File: protocol/frame_codec.go
// Package protocol implements message framing with size enforcement.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package protocol

import (
	"fmt"
	"io"

	"github.com/gobwas/ws"

	"github.com/momentics/hioload-arena/api"
)

// WriteBinary sends payload as one unmasked, final binary frame.
func WriteBinary(s Stream, payload []byte) error {
	if len(payload) > MaxFramePayload {
		return fmt.Errorf("write %d bytes: %w", len(payload), ErrMessageTooBig)
	}
	return writeFrame(s, ws.NewBinaryFrame(payload))
}

// WriteClose sends a close frame with the given status and reason.
func WriteClose(s Stream, code ws.StatusCode, reason string) error {
	return writeFrame(s, ws.NewCloseFrame(ws.NewCloseFrameBody(code, reason)))
}

func writeFrame(s Stream, f ws.Frame) error {
	raw, err := ws.CompileFrame(f)
	if err != nil {
		return fmt.Errorf("compile frame: %w", err)
	}
	if _, err := s.WriteAll(raw); err != nil {
		return err
	}
	return nil
}

// ReadMessage returns the payload of the next complete binary message.
// Pings are answered and pongs skipped along the way. A close frame is
// echoed and reported as api.ErrConnectionClosed. Text messages, framing
// violations and oversize messages are answered with a close frame and
// reported as ErrProtocol or ErrMessageTooBig.
func ReadMessage(s Stream) ([]byte, error) {
	var msg []byte
	fragmented := false
	for {
		h, err := ws.ReadHeader(s)
		if err != nil {
			return nil, err
		}
		state := ws.StateServerSide
		if fragmented {
			state |= ws.StateFragmented
		}
		if err := ws.CheckHeader(h, state); err != nil {
			return nil, reject(s, ws.StatusProtocolError, fmt.Errorf("%w: %v", ErrProtocol, err))
		}
		if h.Length > MaxFramePayload || int64(len(msg))+h.Length > MaxFramePayload {
			return nil, reject(s, ws.StatusMessageTooBig, ErrMessageTooBig)
		}

		payload := make([]byte, h.Length)
		if _, err := io.ReadFull(s, payload); err != nil {
			return nil, err
		}
		if h.Masked {
			ws.Cipher(payload, h.Mask, 0)
		}

		switch h.OpCode {
		case ws.OpPing:
			if err := writeFrame(s, ws.NewPongFrame(payload)); err != nil {
				return nil, err
			}
		case ws.OpPong:
		case ws.OpClose:
			return nil, echoClose(s, payload)
		case ws.OpText:
			return nil, reject(s, ws.StatusUnsupportedData, fmt.Errorf("%w: text frames are not accepted", ErrProtocol))
		case ws.OpBinary:
			if fragmented {
				return nil, reject(s, ws.StatusProtocolError, fmt.Errorf("%w: new message inside fragmented message", ErrProtocol))
			}
			if h.Fin {
				return payload, nil
			}
			msg, fragmented = payload, true
		case ws.OpContinuation:
			if !fragmented {
				return nil, reject(s, ws.StatusProtocolError, fmt.Errorf("%w: continuation without a message", ErrProtocol))
			}
			msg = append(msg, payload...)
			if h.Fin {
				return msg, nil
			}
		default:
			return nil, reject(s, ws.StatusProtocolError, fmt.Errorf("%w: opcode %#x", ErrProtocol, byte(h.OpCode)))
		}
	}
}

// reject answers the peer with a close frame and returns cause. A failure
// to send the close frame is ignored: the connection is going away anyway.
func reject(s Stream, code ws.StatusCode, cause error) error {
	_ = WriteClose(s, code, "")
	return cause
}

func echoClose(s Stream, payload []byte) error {
	var body []byte
	if len(payload) >= 2 {
		code, _ := ws.ParseCloseFrameData(payload)
		body = ws.NewCloseFrameBody(code, "")
	}
	_ = writeFrame(s, ws.NewCloseFrame(body))
	return api.ErrConnectionClosed
}
