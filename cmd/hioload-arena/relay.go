// File: cmd/hioload-arena/relay.go
// Author: momentics <momentics@gmail.com>
//
// Minimal application logic shipped with the binary: every player gets its
// id on join, and every message is relayed to all other players.

package main

import (
	"context"
	"encoding/binary"

	"go.uber.org/zap"

	"github.com/momentics/hioload-arena/api"
	"github.com/momentics/hioload-arena/server"
)

type relay struct {
	server.NopHandler
	sender *server.Sender
	log    *zap.Logger
}

func newRelay(sender *server.Sender, log *zap.Logger) *relay {
	return &relay{sender: sender, log: log}
}

func (r *relay) OnJoin(_ context.Context, id api.ConnID) {
	hello := make([]byte, 4)
	binary.LittleEndian.PutUint32(hello, uint32(id))
	r.sender.MustSend(id, api.NewMessage(hello))
}

func (r *relay) OnMessage(_ context.Context, id api.ConnID, payload []byte) error {
	if len(payload) == 0 {
		return server.ErrBogusMessage
	}
	if _, err := r.sender.Broadcast(api.NewMessage(payload), id); err != nil {
		r.log.Warn("relay incomplete", zap.Uint32("from", uint32(id)), zap.Error(err))
	}
	return nil
}
