// File: server/server.go
// Package server implements the arena server: the accept task, one task per
// connection, the tick task, and graceful teardown on context cancellation.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gobwas/ws"
	"go.uber.org/zap"

	"github.com/momentics/hioload-arena/api"
	"github.com/momentics/hioload-arena/control"
	"github.com/momentics/hioload-arena/internal/concurrency"
	"github.com/momentics/hioload-arena/internal/session"
	"github.com/momentics/hioload-arena/internal/transport"
	"github.com/momentics/hioload-arena/protocol"
)

// ErrNotListening is returned by Serve before a successful Listen.
var ErrNotListening = errors.New("server is not listening")

// NewServer builds the Server facade.
func NewServer(cfg *Config, opts ...ServerOption) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Server{
		cfg:      cfg,
		log:      zap.NewNop(),
		clock:    time.Now,
		out:      os.Stdout,
		registry: session.NewRegistry(cfg.RegistryShards),
		stats:    control.NewStats(),
		probes:   control.NewDebugProbes(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.fatal == nil {
		s.fatal = exitOnFatal(s.log)
	}
	s.sched = concurrency.NewScheduler(
		concurrency.WithMaxIdleBackoff(cfg.MaxIdleBackoff),
		concurrency.WithLogger(s.log),
	)
	s.sender = NewSender(s.registry, &s.tick, s.log, s.fatal)

	s.probes.RegisterProbe("registry.size", func() any { return s.registry.Len() })
	s.probes.RegisterProbe("scheduler.ready", func() any { return s.sched.Len() })
	s.probes.RegisterProbe("scheduler.yields", func() any { return s.sched.Yields() })
	return s, nil
}

func exitOnFatal(log *zap.Logger) FatalFunc {
	return func(err error) {
		log.Error("unrecoverable send failure, terminating", zap.Error(err))
		_ = log.Sync()
		os.Exit(ExitSendFailure)
	}
}

// Stats exposes the statistics engine.
func (s *Server) Stats() *control.Stats {
	return s.stats
}

// Sender exposes the outbound message path.
func (s *Server) Sender() *Sender {
	return s.sender
}

// Probes exposes runtime debug probes.
func (s *Server) Probes() *control.DebugProbes {
	return s.probes
}

// Players returns the number of registered connections.
func (s *Server) Players() int {
	return s.registry.Len()
}

// Listen binds the configured address. It is separate from Serve so callers
// can learn the bound address before serving.
func (s *Server) Listen() error {
	ln, err := transport.Listen(s.cfg.ListenAddr, s.cfg.Backlog, s.sched)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.listener = ln
	return nil
}

// Addr returns the bound listen address.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	addr, err := s.listener.Addr()
	if err != nil {
		return ""
	}
	return addr
}

// ListenAndServe is Listen followed by Serve.
func (s *Server) ListenAndServe(ctx context.Context, h Handler) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx, h)
}

// Serve runs the accept and tick tasks until ctx is done, then unwinds all
// connection tasks and closes the listener. Cancellation is not an error.
func (s *Server) Serve(ctx context.Context, h Handler) error {
	if s.listener == nil {
		return ErrNotListening
	}
	defer func() {
		if err := s.listener.Close(); err != nil {
			s.log.Warn("listener close failed", zap.Error(err))
		}
	}()
	if h == nil {
		h = NopHandler{}
	}

	s.log.Info("arena server listening",
		zap.String("addr", s.Addr()),
		zap.Int("tick_rate", s.cfg.TickRate),
		zap.Int("max_players", s.cfg.MaxPlayers))

	s.stats.StartTimerAt(control.Uptime, s.clock())
	s.sched.Go(func() { s.acceptLoop(ctx, h) })
	s.sched.Go(func() { s.tickLoop(ctx, h) })

	err := s.sched.Run(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		s.log.Info("arena server stopped", zap.Int("players", s.registry.Len()))
		return nil
	}
	return err
}

// Kick evicts a player. It may be called from any goroutine: the lookup is
// repeated and the socket shut down inside a scheduled task, so a connection
// that left meanwhile is never touched. The connection task then observes
// the closed stream and performs the usual cleanup.
func (s *Server) Kick(id api.ConnID) error {
	if _, ok := s.registry.Get(id); !ok {
		return fmt.Errorf("kick %d: %w", id, api.ErrUnknownConnection)
	}
	s.sched.Go(func() { s.evict(id) })
	return nil
}

func (s *Server) evict(id api.ConnID) {
	sock, ok := s.registry.Get(id)
	if !ok {
		return
	}
	if err := sock.Shutdown(api.ShutdownBoth); err != nil {
		s.log.Debug("kick failed", zap.Uint32("conn", uint32(id)), zap.Error(err))
	}
}

const (
	minAcceptBackoff = time.Millisecond
	maxAcceptBackoff = time.Second
)

// acceptBackoff spaces out retries of a failing accept and decides which
// failures are worth a log line.
type acceptBackoff struct {
	failures int
	delay    time.Duration
}

// fail records one failure and returns the pause before the next attempt.
// report is set on the 1st, 2nd, 4th, 8th... consecutive failure.
func (b *acceptBackoff) fail() (delay time.Duration, report bool) {
	b.failures++
	switch {
	case b.delay == 0:
		b.delay = minAcceptBackoff
	case b.delay < maxAcceptBackoff:
		b.delay *= 2
		if b.delay > maxAcceptBackoff {
			b.delay = maxAcceptBackoff
		}
	}
	return b.delay, b.failures&(b.failures-1) == 0
}

func (b *acceptBackoff) reset() {
	*b = acceptBackoff{}
}

func (s *Server) acceptLoop(ctx context.Context, h Handler) {
	var backoff acceptBackoff
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			delay, report := backoff.fail()
			if report {
				s.log.Warn("accept failed",
					zap.Error(err),
					zap.Int("failures", backoff.failures),
					zap.Duration("retry_in", delay))
			}
			s.pause(delay)
			continue
		}
		if backoff.failures > 0 {
			s.log.Info("accept recovered", zap.Int("failures", backoff.failures))
			backoff.reset()
		}
		s.sched.Go(func() { s.serveConn(ctx, h, conn) })
	}
}

// pause yields until d has passed on the server clock.
func (s *Server) pause(d time.Duration) {
	until := s.clock().Add(d)
	for s.clock().Before(until) {
		s.sched.Yield()
	}
}

// serveConn owns one connection from handshake to close.
func (s *Server) serveConn(ctx context.Context, h Handler, raw api.RawConn) {
	sock := transport.NewSocket(raw, s.sched)

	if _, err := protocol.Handshake(sock); err != nil {
		s.log.Debug("handshake failed", zap.Error(err))
		s.reject(sock)
		return
	}
	if s.cfg.MaxPlayers > 0 && s.registry.Len() >= s.cfg.MaxPlayers {
		s.log.Debug("server full, rejecting player", zap.Int("players", s.registry.Len()))
		_ = protocol.WriteClose(sock, ws.StatusPolicyViolation, "server is full")
		s.reject(sock)
		return
	}

	id := s.ids.Next()
	s.registry.Set(id, sock)
	s.stats.Inc(control.PlayersJoined, 1)
	s.stats.Inc(control.PlayersCurrently, 1)
	log := s.log.With(zap.Uint32("conn", uint32(id)))
	log.Info("player joined")

	defer func() {
		s.registry.Delete(id)
		if err := sock.Close(); err != nil {
			log.Warn("close failed", zap.Error(err))
		}
		s.stats.Inc(control.PlayersLeft, 1)
		s.stats.Inc(control.PlayersCurrently, -1)
		h.OnLeave(ctx, id)
		log.Info("player left")
	}()

	h.OnJoin(ctx, id)
	for {
		payload, err := protocol.ReadMessage(sock)
		if err != nil {
			if errors.Is(err, api.ErrConnectionClosed) {
				log.Debug("connection closed by peer")
			} else {
				log.Warn("read failed", zap.Error(err))
			}
			return
		}
		// Another task may have evicted us while the read was suspended.
		if _, ok := s.registry.Get(id); !ok {
			return
		}
		s.tick.Received(len(payload))

		if err := h.OnMessage(ctx, id, payload); err != nil {
			if errors.Is(err, ErrBogusMessage) {
				s.stats.Inc(control.BogusMessages, 1)
				log.Info("bogus message, disconnecting", zap.Int("size", len(payload)))
				_ = protocol.WriteClose(sock, ws.StatusPolicyViolation, "bogus message")
				return
			}
			log.Warn("message handler failed", zap.Error(err))
			return
		}
	}
}

func (s *Server) reject(sock *transport.Socket) {
	s.stats.Inc(control.PlayersRejected, 1)
	if err := sock.Close(); err != nil {
		s.log.Warn("close failed", zap.Error(err))
	}
}

// tickLoop runs the periodic processing cycle. Between ticks it yields so
// connection tasks keep making progress.
func (s *Server) tickLoop(ctx context.Context, h Handler) {
	interval := s.cfg.TickInterval()
	next := s.clock()
	for {
		for s.clock().Before(next) {
			s.sched.Yield()
		}
		start := s.clock()
		s.runTick(ctx, h, start)

		next = next.Add(interval)
		if now := s.clock(); now.Sub(next) > interval {
			// Fell more than a tick behind: skip ahead instead of bursting.
			next = now.Add(interval)
		}
	}
}

func (s *Server) runTick(ctx context.Context, h Handler, start time.Time) {
	h.OnTick(ctx, start)
	s.tick.Flush(s.stats)
	elapsed := s.clock().Sub(start)
	s.stats.PushSample(control.TickTimes, float32(elapsed.Seconds()*1000))
	if err := s.stats.PrintPerNTicks(s.out, s.cfg.StatsEveryTicks, s.clock()); err != nil {
		s.log.Warn("stats report failed", zap.Error(err))
	}
	s.stats.Inc(control.TicksCount, 1)
}
