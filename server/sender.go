// File: server/sender.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Outbound message path: registry lookup, binary framing, accounting.

package server

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/momentics/hioload-arena/api"
	"github.com/momentics/hioload-arena/control"
	"github.com/momentics/hioload-arena/internal/session"
	"github.com/momentics/hioload-arena/internal/transport"
	"github.com/momentics/hioload-arena/protocol"
)

// Sender delivers messages to registered connections. It must be used from
// scheduled tasks only.
type Sender struct {
	registry *session.Registry
	tick     *control.TickCounters
	log      *zap.Logger
	fatal    FatalFunc
}

// NewSender builds a send path over registry, accounting into tick.
func NewSender(registry *session.Registry, tick *control.TickCounters, log *zap.Logger, fatal FatalFunc) *Sender {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sender{registry: registry, tick: tick, log: log, fatal: fatal}
}

// Send frames msg's payload as one binary message to id and, on success,
// records it in the per-tick accumulators. It returns the payload length.
func (s *Sender) Send(id api.ConnID, msg api.Message) (int, error) {
	sock, ok := s.registry.Get(id)
	if !ok {
		return 0, fmt.Errorf("send to %d: %w", id, api.ErrUnknownConnection)
	}
	if err := msg.Validate(); err != nil {
		return 0, fmt.Errorf("send to %d: %w", id, err)
	}
	payload := msg.Payload()
	if err := protocol.WriteBinary(sock, payload); err != nil {
		return 0, fmt.Errorf("send to %d: %w", id, err)
	}
	s.tick.Sent(len(payload))
	return len(payload), nil
}

// MustSend is Send with the fail-fast policy: an unknown id or a failed
// send is unrecoverable and goes to the fatal hook. A send abandoned because
// the server is stopping is only logged.
func (s *Sender) MustSend(id api.ConnID, msg api.Message) {
	if _, err := s.Send(id, msg); err != nil {
		if errors.Is(err, api.ErrShuttingDown) {
			s.log.Debug("send abandoned on shutdown", zap.Uint32("conn", uint32(id)))
			return
		}
		s.log.Error("could not send message", zap.Uint32("conn", uint32(id)), zap.Error(err))
		s.fatal(err)
	}
}

// Broadcast sends msg to every registered connection except the listed
// ones. Connections that leave or get closed while the broadcast is
// suspended are skipped; other failures are joined into the returned error.
func (s *Sender) Broadcast(msg api.Message, except ...api.ConnID) (int, error) {
	sent := 0
	var errs []error
	s.registry.Range(func(id api.ConnID, _ *transport.Socket) bool {
		for _, e := range except {
			if e == id {
				return true
			}
		}
		_, err := s.Send(id, msg)
		switch {
		case err == nil:
			sent++
		case errors.Is(err, api.ErrUnknownConnection), errors.Is(err, api.ErrConnectionClosed):
		default:
			errs = append(errs, err)
		}
		return true
	})
	return sent, errors.Join(errs...)
}
