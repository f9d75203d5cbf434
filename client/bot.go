// File: client/bot.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Swarm of bot players driven over gobwas/ws.

package client

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/momentics/hioload-arena/api"
)

// Config holds the swarm parameters.
type Config struct {
	URL         string        // ws://host:port/
	Players     int           // concurrent bots
	Interval    time.Duration // delay between messages of one bot, 0 = never send
	PayloadSize int           // random payload bytes per message
	DialTimeout time.Duration
}

// DefaultConfig returns a small swarm against a local server.
func DefaultConfig() Config {
	return Config{
		URL:         "ws://127.0.0.1:6970/",
		Players:     8,
		Interval:    100 * time.Millisecond,
		PayloadSize: 16,
		DialTimeout: 5 * time.Second,
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.URL == "":
		return fmt.Errorf("bot url is empty: %w", api.ErrInvalidArgument)
	case c.Players <= 0:
		return fmt.Errorf("bot players %d must be positive: %w", c.Players, api.ErrInvalidArgument)
	case c.Interval < 0:
		return fmt.Errorf("bot interval %v is negative: %w", c.Interval, api.ErrInvalidArgument)
	case c.PayloadSize <= 0:
		return fmt.Errorf("bot payload size %d must be positive: %w", c.PayloadSize, api.ErrInvalidArgument)
	case c.DialTimeout <= 0:
		return fmt.Errorf("bot dial timeout %v must be positive: %w", c.DialTimeout, api.ErrInvalidArgument)
	}
	return nil
}

// Totals are cumulative swarm counters.
type Totals struct {
	Joined   int64
	Sent     int64
	Received int64
}

// Dialer opens a WebSocket client connection. The returned reader, when not
// nil, holds bytes the server sent right after the handshake.
type Dialer func(ctx context.Context, url string) (net.Conn, *bufio.Reader, error)

// Swarm runs a set of bots.
type Swarm struct {
	cfg  Config
	log  *zap.Logger
	dial Dialer

	joined   int64
	sent     int64
	received int64
}

// NewSwarm validates cfg and builds a swarm. A nil logger disables logging.
func NewSwarm(cfg Config, log *zap.Logger) (*Swarm, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Swarm{cfg: cfg, log: log, dial: dialWS}, nil
}

func dialWS(ctx context.Context, url string) (net.Conn, *bufio.Reader, error) {
	conn, br, _, err := ws.Dial(ctx, url)
	return conn, br, err
}

// Totals reads the counters. Safe for concurrent use.
func (s *Swarm) Totals() Totals {
	return Totals{
		Joined:   atomic.LoadInt64(&s.joined),
		Sent:     atomic.LoadInt64(&s.sent),
		Received: atomic.LoadInt64(&s.received),
	}
}

// Run starts every bot and blocks until ctx is done or a bot fails.
// Cancellation is not an error.
func (s *Swarm) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < s.cfg.Players; i++ {
		g.Go(func() error { return s.runBot(gctx) })
	}
	err := g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (s *Swarm) runBot(ctx context.Context) error {
	dctx, cancel := context.WithTimeout(ctx, s.cfg.DialTimeout)
	conn, br, err := s.dial(dctx, s.cfg.URL)
	cancel()
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.cfg.URL, err)
	}
	defer conn.Close()
	var rw io.ReadWriter = conn
	if br != nil {
		rw = struct {
			io.Reader
			io.Writer
		}{br, conn}
	}

	hello, err := wsutil.ReadServerBinary(rw)
	if err != nil {
		return fmt.Errorf("read welcome: %w", err)
	}
	if len(hello) < 4 {
		return fmt.Errorf("welcome of %d bytes: %w", len(hello), api.ErrInvalidArgument)
	}
	id := binary.LittleEndian.Uint32(hello)
	atomic.AddInt64(&s.joined, 1)
	log := s.log.With(zap.Uint32("bot", id))
	log.Debug("bot joined")

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	readErr := make(chan error, 1)
	drained := make(chan struct{})
	go func() {
		readErr <- s.drain(rw)
		close(drained)
	}()

	if err := s.sendLoop(ctx, conn, drained); err != nil {
		conn.Close()
		<-readErr
		return err
	}
	err = <-readErr
	if ctx.Err() != nil {
		log.Debug("bot stopped")
		return ctx.Err()
	}
	return err
}

// drain counts relayed messages until the connection goes away.
func (s *Swarm) drain(rw io.ReadWriter) error {
	for {
		if _, err := wsutil.ReadServerBinary(rw); err != nil {
			var closed wsutil.ClosedError
			switch {
			case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed), errors.As(err, &closed):
				return nil
			default:
				return fmt.Errorf("read: %w", err)
			}
		}
		atomic.AddInt64(&s.received, 1)
	}
}

// sendLoop writes random payloads until ctx is done or the reader stops.
func (s *Swarm) sendLoop(ctx context.Context, conn net.Conn, drained <-chan struct{}) error {
	if s.cfg.Interval == 0 {
		select {
		case <-ctx.Done():
		case <-drained:
		}
		return nil
	}
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	payload := make([]byte, s.cfg.PayloadSize)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-drained:
			return nil
		case <-ticker.C:
		}
		if _, err := rand.Read(payload); err != nil {
			return fmt.Errorf("payload: %w", err)
		}
		if err := wsutil.WriteClientBinary(conn, payload); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("write: %w", err)
		}
		atomic.AddInt64(&s.sent, 1)
	}
}
