// File: server/options.go
// Package server defines functional options for the Server facade.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"io"
	"time"

	"go.uber.org/zap"
)

// ServerOption customizes server initialization.
type ServerOption func(*Server)

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) ServerOption {
	return func(s *Server) {
		s.log = l
	}
}

// WithStatsOutput redirects the periodic statistics report.
func WithStatsOutput(w io.Writer) ServerOption {
	return func(s *Server) {
		s.out = w
	}
}

// WithFatalHook replaces the process-terminating reaction to send failures.
func WithFatalHook(fn FatalFunc) ServerOption {
	return func(s *Server) {
		s.fatal = fn
	}
}

// WithClock overrides the time source used for ticks and timers.
func WithClock(now func() time.Time) ServerOption {
	return func(s *Server) {
		s.clock = now
	}
}
