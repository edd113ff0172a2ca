// File: server/options.go
// Package server defines functional options for the Server.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"time"

	"github.com/momentics/hioload-nio/reactor"
)

// Option customizes server initialization.
type Option func(*Server)

// WithHandler replaces the default echo handler.
func WithHandler(h Handler) Option {
	return func(s *Server) {
		if h != nil {
			s.handler = h
		}
	}
}

// WithReadBufferSize sets the size of the shared receive buffer.
func WithReadBufferSize(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.readSize = n
		}
	}
}

// WithPollInterval bounds how long one reactor wait may block, and so how
// quickly Run notices cancellation.
func WithPollInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithReactor drives the server from r instead of a new epoll reactor. The
// server closes r on shutdown.
func WithReactor(r reactor.Reactor) Option {
	return func(s *Server) { s.r = r }
}

// WithCPU pins the goroutine running Run to logical CPU cpu. A negative value
// leaves scheduling to the runtime.
func WithCPU(cpu int) Option {
	return func(s *Server) { s.cpu = cpu }
}

// WithMaxPending sets how many queued output bytes a session may hold before
// the server stops reading from it. The default is four read buffers.
func WithMaxPending(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxPending = n
		}
	}
}
