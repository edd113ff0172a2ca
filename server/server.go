// File: server/server.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Single event-loop server driving nio connections from reactor readiness.

package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/samber/oops"
	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-nio/affinity"
	"github.com/momentics/hioload-nio/api"
	"github.com/momentics/hioload-nio/control"
	"github.com/momentics/hioload-nio/nio"
	"github.com/momentics/hioload-nio/reactor"
)

var ErrAlreadyRunning = errors.New("server already running")

const (
	defaultReadSize     = 16 << 10
	defaultPollInterval = 50 * time.Millisecond

	// output queued beyond this many read buffers stops reading from the peer
	defaultPendingFactor = 4
)

// Server accepts connections on one listener and serves them from the
// goroutine calling Run. Only Close, Addr and Probes are safe to call from
// other goroutines while Run is active.
type Server struct {
	mod     *nio.Module
	r       reactor.Reactor
	log     *logrus.Entry
	handler Handler
	probes  *control.DebugProbes

	readSize     int
	pollInterval time.Duration
	cpu          int
	maxPending   int

	acceptPaused bool
	acceptResume time.Time
	buf          []byte
	iov          [][]byte

	listener *nio.Conn
	addr     atomic.Value // net.Addr
	sessions *xsync.MapOf[int, *session]

	running  atomic.Bool
	closed   atomic.Bool
	stopOnce sync.Once
	done     chan struct{}
}

// New builds a Server on top of mod. mod must have a pool; the server
// neither creates nor destroys it.
func New(mod *nio.Module, opts ...Option) (*Server, error) {
	if mod == nil {
		return nil, api.ErrInvalidArgument
	}
	s := &Server{
		mod:          mod,
		log:          mod.Logger().WithField("component", "server"),
		handler:      Echo(),
		probes:       control.NewDebugProbes(),
		readSize:     defaultReadSize,
		pollInterval: defaultPollInterval,
		cpu:          -1,
		iov:          make([][]byte, 0, maxIov),
		sessions:     xsync.NewMapOf[int, *session](),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.r == nil {
		r, err := reactor.New(s.log)
		if err != nil {
			return nil, oops.In("server").Wrapf(err, "create reactor")
		}
		s.r = r
	}
	s.buf = make([]byte, s.readSize)
	if s.maxPending <= 0 {
		s.maxPending = defaultPendingFactor * s.readSize
	}

	s.probes.RegisterProbe("pool", func() any { return mod.PoolStats() })
	s.probes.RegisterProbe("sessions", func() any { return s.sessions.Size() })
	s.probes.RegisterProbe("listen_addr", func() any {
		if a := s.Addr(); a != nil {
			return a.String()
		}
		return ""
	})
	return s, nil
}

// Listen binds the server to addr. It must be called before Run.
func (s *Server) Listen(addr net.Addr) error {
	if s.closed.Load() {
		return api.ErrServerClosed
	}
	if s.listener != nil {
		return oops.In("server").Errorf("already listening on %v", s.Addr())
	}

	l, err := s.mod.Listen(addr)
	if err != nil {
		return err
	}
	if err := s.r.Register(l.Fd(), reactor.EventRead, s.onAccept); err != nil {
		s.mod.Close(l)
		return oops.In("server").With("sd", l.Fd()).Wrapf(err, "register listener")
	}
	s.listener = l
	if la, err := l.LocalAddr(); err == nil {
		s.addr.Store(la)
	}
	return nil
}

// Addr reports the bound address, nil before Listen.
func (s *Server) Addr() net.Addr {
	a, _ := s.addr.Load().(net.Addr)
	return a
}

// Probes exposes pool and session state.
func (s *Server) Probes() *control.DebugProbes {
	return s.probes
}

// Run serves events until ctx is cancelled or Close is called, then closes
// every session and the listener.
func (s *Server) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.shutdown()

	if s.closed.Load() {
		return api.ErrServerClosed
	}
	if s.listener == nil {
		return oops.In("server").Errorf("run before listen")
	}

	if s.cpu >= 0 {
		unpin, err := affinity.Pin(s.cpu)
		if err != nil {
			return oops.In("server").With("cpu", s.cpu).Wrapf(err, "pin event loop")
		}
		defer unpin()
	}

	s.log.WithFields(logrus.Fields{"addr": s.Addr(), "cpu": s.cpu}).Info("server running")
	timeout := int(s.pollInterval / time.Millisecond)
	for !s.closed.Load() {
		if ctx.Err() != nil {
			return nil
		}
		if _, err := s.r.Poll(timeout); err != nil {
			return oops.In("server").Wrapf(err, "poll")
		}
		s.resumeAccept(time.Now())
	}
	return nil
}

// Close stops the server. When Run is active it waits for it to wind down.
func (s *Server) Close() error {
	s.closed.Store(true)
	if s.running.Load() {
		<-s.done
		return nil
	}
	s.shutdown()
	return nil
}

func (s *Server) shutdown() {
	s.stopOnce.Do(func() {
		defer close(s.done)

		s.sessions.Range(func(fd int, _ *session) bool {
			s.closeSession(fd)
			return true
		})
		if s.listener != nil {
			if err := s.r.Unregister(s.listener.Fd()); err != nil {
				s.log.WithError(err).Warn("unregister listener failed")
			}
			s.mod.Close(s.listener)
			s.listener = nil
		}
		if err := s.r.Close(); err != nil {
			s.log.WithError(err).Warn("reactor close failed")
		}
		s.log.Info("server stopped")
	})
}

// onAccept drains the accept backlog.
func (s *Server) onAccept(_ int, _ reactor.EventType) {
	for {
		c, err := s.mod.Accept(s.listener)
		if err != nil {
			s.pauseAccept(err)
			return
		}
		if c == nil {
			return
		}

		fd := c.Fd()
		s.sessions.Store(fd, newSession(c))
		if err := s.r.Register(fd, reactor.EventRead, s.onSession); err != nil {
			s.log.WithField("sd", fd).WithError(err).Error("register conn failed")
			s.sessions.Delete(fd)
			s.mod.Close(c)
		}
	}
}

// pauseAccept drops read interest on the listener for one poll interval.
// A level-triggered listener that keeps failing, e.g. with EMFILE, would
// otherwise wake every poll.
func (s *Server) pauseAccept(err error) {
	s.log.WithError(err).WithField("retry_in", s.pollInterval).Warn("accept failed, pausing accept")
	if err := s.r.Modify(s.listener.Fd(), 0); err != nil {
		s.log.WithError(err).Error("pause accept failed")
		return
	}
	s.acceptPaused = true
	s.acceptResume = time.Now().Add(s.pollInterval)
}

// resumeAccept re-arms the listener once the pause has elapsed.
func (s *Server) resumeAccept(now time.Time) {
	if !s.acceptPaused || now.Before(s.acceptResume) || s.listener == nil {
		return
	}
	if err := s.r.Modify(s.listener.Fd(), reactor.EventRead); err != nil {
		s.log.WithError(err).Error("resume accept failed")
		return
	}
	s.acceptPaused = false
	s.log.Debug("accept resumed")
}

func (s *Server) onSession(fd int, ev reactor.EventType) {
	sess, ok := s.sessions.Load(fd)
	if !ok {
		return
	}

	if ev&reactor.EventWrite != 0 {
		if !s.flush(fd, sess) {
			return
		}
	}
	if ev&reactor.EventRead == 0 {
		if ev&reactor.EventError != 0 {
			s.closeSession(fd)
		}
		return
	}

	res := s.mod.Recv(sess.conn, s.buf)
	switch res.Status {
	case api.StatusOK:
		sess.enqueue(s.handler.Handle(s.buf[:res.N]))
		s.flush(fd, sess)
	case api.StatusWouldBlock:
	case api.StatusEOF:
		if sess.pending > 0 {
			s.log.WithFields(logrus.Fields{"sd": fd, "pending": sess.pending}).
				Debug("peer closed with output pending")
		}
		s.closeSession(fd)
	default:
		s.closeSession(fd)
	}
}

// flush writes queued output until the queue is empty or the socket is
// full. While more than maxPending bytes wait, the peer is not read from.
// It reports false when the session was closed.
func (s *Server) flush(fd int, sess *session) bool {
	for sess.out.Length() > 0 {
		s.iov = sess.iovecs(s.iov)
		res := s.mod.SendV(sess.conn, s.iov)
		if res.Status == api.StatusError {
			s.closeSession(fd)
			return false
		}
		if res.Status == api.StatusWouldBlock || res.N == 0 {
			want := reactor.EventWrite
			if sess.pending <= s.maxPending {
				want |= reactor.EventRead
			}
			return s.arm(fd, sess, want)
		}
		sess.consume(res.N)
	}
	return s.arm(fd, sess, reactor.EventRead)
}

func (s *Server) arm(fd int, sess *session, events reactor.EventType) bool {
	if sess.interest == events {
		return true
	}
	if err := s.r.Modify(fd, events); err != nil {
		s.log.WithField("sd", fd).WithError(err).Error("modify interest failed")
		s.closeSession(fd)
		return false
	}
	if events&reactor.EventRead == 0 {
		s.log.WithFields(logrus.Fields{"sd": fd, "pending": sess.pending}).Debug("output backlog, reads paused")
	}
	sess.interest = events
	return true
}

func (s *Server) closeSession(fd int) {
	sess, ok := s.sessions.LoadAndDelete(fd)
	if !ok {
		return
	}
	if err := s.r.Unregister(fd); err != nil {
		s.log.WithField("sd", fd).WithError(err).Debug("unregister conn failed")
	}
	s.mod.Close(sess.conn)
}
