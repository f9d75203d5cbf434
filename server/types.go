// File: server/types.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Server configuration, handler contract and the Server facade type.

package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/momentics/hioload-arena/api"
	"github.com/momentics/hioload-arena/control"
	"github.com/momentics/hioload-arena/internal/concurrency"
	"github.com/momentics/hioload-arena/internal/session"
	"github.com/momentics/hioload-arena/internal/transport"
)

// ExitSendFailure is the process exit status used by the default fatal hook.
const ExitSendFailure = 69

// ErrBogusMessage is returned by Handler.OnMessage for a malformed message.
// The server counts it and disconnects the player.
var ErrBogusMessage = errors.New("bogus message")

// Config holds all server-side configuration parameters.
type Config struct {
	ListenAddr      string        // TCP bind address, e.g. ":6970"
	Backlog         int           // listen backlog, 0 = SOMAXCONN
	MaxPlayers      int           // concurrent players, 0 = unlimited
	TickRate        int           // ticks per second
	StatsEveryTicks int           // report period in ticks, 0 = never
	RegistryShards  int           // connection registry shards
	MaxIdleBackoff  time.Duration // scheduler idle sleep cap, 0 = spin
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:      ":6970",
		Backlog:         0,
		MaxPlayers:      0,
		TickRate:        60,
		StatsEveryTicks: 600,
		RegistryShards:  session.DefaultShards,
		MaxIdleBackoff:  concurrency.DefaultMaxIdleBackoff,
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case c.ListenAddr == "":
		return fmt.Errorf("listen address is empty: %w", api.ErrInvalidArgument)
	case c.TickRate <= 0 || c.TickRate > 1000:
		return fmt.Errorf("tick rate %d outside 1..1000: %w", c.TickRate, api.ErrInvalidArgument)
	case c.MaxPlayers < 0:
		return fmt.Errorf("max players %d is negative: %w", c.MaxPlayers, api.ErrInvalidArgument)
	case c.StatsEveryTicks < 0:
		return fmt.Errorf("stats period %d is negative: %w", c.StatsEveryTicks, api.ErrInvalidArgument)
	case c.MaxIdleBackoff < 0:
		return fmt.Errorf("idle backoff %v is negative: %w", c.MaxIdleBackoff, api.ErrInvalidArgument)
	}
	return nil
}

// TickInterval is the wall-clock length of one tick.
func (c *Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.TickRate)
}

// Handler is the application logic driven by the server. Every callback runs
// as part of a scheduled task and may send through the server's Sender.
//
// OnLeave also runs while the server is stopping. A send made then does not
// wait for a full peer buffer: it fails with api.ErrShuttingDown.
type Handler interface {
	OnJoin(ctx context.Context, id api.ConnID)
	OnMessage(ctx context.Context, id api.ConnID, payload []byte) error
	OnLeave(ctx context.Context, id api.ConnID)
	OnTick(ctx context.Context, now time.Time)
}

// NopHandler implements Handler with no-ops; embed it to override selectively.
type NopHandler struct{}

func (NopHandler) OnJoin(context.Context, api.ConnID) {}
func (NopHandler) OnMessage(context.Context, api.ConnID, []byte) error { return nil }
func (NopHandler) OnLeave(context.Context, api.ConnID) {}
func (NopHandler) OnTick(context.Context, time.Time) {}

// FatalFunc terminates the process after an unrecoverable send failure.
type FatalFunc func(err error)

// Server is the façade tying the scheduler, listener, registry and
// statistics together.
type Server struct {
	cfg   *Config
	log   *zap.Logger
	clock func() time.Time
	out   io.Writer
	fatal FatalFunc

	sched    *concurrency.Scheduler
	listener *transport.Listener
	registry *session.Registry
	ids      session.IDAllocator
	stats    *control.Stats
	tick     control.TickCounters
	sender   *Sender
	probes   *control.DebugProbes
}
