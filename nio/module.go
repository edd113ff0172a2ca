// File: nio/module.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Module is the explicit context for the connection layer: listen backlog,
// connection free-pool, syscall backend, logger and metrics.

package nio

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-nio/api"
	"github.com/momentics/hioload-nio/control"
	"github.com/momentics/hioload-nio/pool"
)

// DefaultBacklog is the listen backlog used when NewModule receives a
// non-positive value.
const DefaultBacklog = 1024

// AcceptTuning lists optional socket options applied to every accepted
// connection after TCP_NODELAY. Failures are logged and ignored.
type AcceptTuning struct {
	KeepAlive          bool
	Linger             bool
	LingerTimeout      int // seconds, used when Linger is set
	SendBuffer         int // 0 keeps the OS default
	RecvBuffer         int
	MaximizeSendBuffer bool
}

// Option customizes a Module.
type Option func(*Module)

// WithLogger sets the log entry every message is written through.
func WithLogger(log *logrus.Entry) Option {
	return func(m *Module) { m.log = log }
}

// WithSocketOps replaces the OS primitives used for accept, close and transfers.
func WithSocketOps(ops api.SocketOps) Option {
	return func(m *Module) { m.ops = ops }
}

// WithMetrics records activity into mt.
func WithMetrics(mt *control.Metrics) Option {
	return func(m *Module) { m.metrics = mt }
}

// WithAcceptTuning applies t to every accepted connection.
func WithAcceptTuning(t AcceptTuning) Option {
	return func(m *Module) { m.tuning = t }
}

// WithMaxLive caps the number of connections borrowed at once. 0 means unlimited.
func WithMaxLive(n int) Option {
	return func(m *Module) { m.maxLive = n }
}

// Module holds process-wide connection-layer state. Configure it before the
// first Listen and tear it down after every connection is closed.
type Module struct {
	backlog int
	ops     api.SocketOps
	log     *logrus.Entry
	metrics *control.Metrics
	tuning  AcceptTuning
	maxLive int

	mu   sync.RWMutex
	pool *pool.FreePool[*Conn]
}

// NewModule sets up the connection layer with the given listen backlog.
func NewModule(backlog int, opts ...Option) *Module {
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	m := &Module{
		backlog: backlog,
		ops:     defaultSocketOps(),
		log:     logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.WithField("module", "nio")

	m.log.WithField("backlog", m.backlog).Info("set up the nio module")
	return m
}

// Backlog returns the listen backlog.
func (m *Module) Backlog() int { return m.backlog }

// Logger returns the module's log entry.
func (m *Module) Logger() *logrus.Entry { return m.log }

// Teardown releases the module. A pool still in place is destroyed.
func (m *Module) Teardown() {
	m.log.Info("tear down the nio module")

	m.mu.RLock()
	p := m.pool
	m.mu.RUnlock()
	if p != nil && !p.Closed() {
		m.log.Warn("connection pool still alive at teardown, destroying")
		m.DestroyPool()
	}
}

// CreatePool installs a free-pool retaining up to capacity idle connections.
func (m *Module) CreatePool(capacity uint32) {
	m.log.WithField("max", capacity).Info("creating conn pool")

	p := pool.New(pool.Config{Capacity: capacity, MaxLive: m.maxLive},
		newConn,
		(*Conn).reset,
		nil,
	)

	m.mu.Lock()
	old := m.pool
	m.pool = p
	m.mu.Unlock()

	if old != nil && !old.Closed() {
		m.log.Warn("replacing live conn pool")
		old.Destroy()
	}

	m.metrics.RegisterGauge("nio_pool_free", func() float64 { return float64(m.PoolStats().Free) })
	m.metrics.RegisterGauge("nio_pool_live", func() float64 { return float64(m.PoolStats().Live) })
}

// DestroyPool frees every idle connection. Borrow fails afterwards.
func (m *Module) DestroyPool() {
	m.mu.RLock()
	p := m.pool
	m.mu.RUnlock()
	if p == nil {
		return
	}

	m.log.WithField("free", p.Free()).Info("destroying conn pool")
	p.Destroy()
}

// Borrow takes a reset Conn from the pool: no descriptor, zero counters,
// StateUninitialized.
func (m *Module) Borrow() (*Conn, error) {
	m.mu.RLock()
	p := m.pool
	m.mu.RUnlock()
	if p == nil {
		return nil, api.ErrPoolClosed
	}

	c, err := p.Borrow()
	if err != nil {
		m.log.WithError(err).Debug("borrow conn failed")
		return nil, err
	}
	m.debugf("borrow conn %p", c)
	return c, nil
}

// Return gives c back to the pool. c must not own a descriptor.
func (m *Module) Return(c *Conn) {
	assertf(c != nil, "return of nil conn")
	assertf(!c.state.HasDescriptor(), "return of conn with open descriptor")

	m.debugf("return conn %p", c)

	m.mu.RLock()
	p := m.pool
	m.mu.RUnlock()
	if p == nil {
		return
	}
	p.Return(c)
}

// PoolStats snapshots the pool counters. It is zero before CreatePool.
func (m *Module) PoolStats() pool.Stats {
	m.mu.RLock()
	p := m.pool
	m.mu.RUnlock()
	if p == nil {
		return pool.Stats{}
	}
	return p.Stats()
}

func (m *Module) debugf(format string, args ...any) {
	if m.log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		m.log.Debugf(format, args...)
	}
}

func (m *Module) tracef(fd int, format string, args ...any) {
	if m.log.Logger.IsLevelEnabled(logrus.TraceLevel) {
		m.log.WithField("sd", fd).Tracef(format, args...)
	}
}

// assertf guards caller contracts. Violations are programming errors.
func assertf(cond bool, msg string) {
	if !cond {
		panic("nio: " + msg)
	}
}
