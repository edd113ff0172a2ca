// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Connection-layer counters exported in Prometheus text format.
// All recording methods are safe to call on a nil *Metrics.

package control

import (
	"io"

	"github.com/VictoriaMetrics/metrics"
)

// Metrics holds the counters updated by the connection core.
type Metrics struct {
	set *metrics.Set

	listens       *metrics.Counter
	listenErrors  *metrics.Counter
	accepted      *metrics.Counter
	acceptErrors  *metrics.Counter
	closed        *metrics.Counter
	bytesReceived *metrics.Counter
	bytesSent     *metrics.Counter
	eof           *metrics.Counter
	wouldBlock    *metrics.Counter
	ioErrors      *metrics.Counter
}

// NewMetrics creates an isolated metric set whose names start with prefix.
func NewMetrics(prefix string) *Metrics {
	s := metrics.NewSet()
	return &Metrics{
		set:           s,
		listens:       s.NewCounter(prefix + "_listen_total"),
		listenErrors:  s.NewCounter(prefix + "_listen_errors_total"),
		accepted:      s.NewCounter(prefix + "_accepted_total"),
		acceptErrors:  s.NewCounter(prefix + "_accept_errors_total"),
		closed:        s.NewCounter(prefix + "_closed_total"),
		bytesReceived: s.NewCounter(prefix + "_received_bytes_total"),
		bytesSent:     s.NewCounter(prefix + "_sent_bytes_total"),
		eof:           s.NewCounter(prefix + "_eof_total"),
		wouldBlock:    s.NewCounter(prefix + "_would_block_total"),
		ioErrors:      s.NewCounter(prefix + "_io_errors_total"),
	}
}

// RegisterGauge exposes a value computed on every scrape.
func (m *Metrics) RegisterGauge(name string, fn func() float64) {
	if m == nil {
		return
	}
	m.set.GetOrCreateGauge(name, fn)
}

// WritePrometheus writes every metric in the set to w.
func (m *Metrics) WritePrometheus(w io.Writer) {
	if m == nil {
		return
	}
	m.set.WritePrometheus(w)
}

func (m *Metrics) Listened() {
	if m != nil {
		m.listens.Inc()
	}
}

func (m *Metrics) ListenFailed() {
	if m != nil {
		m.listenErrors.Inc()
	}
}

func (m *Metrics) Accepted() {
	if m != nil {
		m.accepted.Inc()
	}
}

func (m *Metrics) AcceptFailed() {
	if m != nil {
		m.acceptErrors.Inc()
	}
}

func (m *Metrics) Closed() {
	if m != nil {
		m.closed.Inc()
	}
}

func (m *Metrics) Received(n int) {
	if m != nil {
		m.bytesReceived.Add(n)
	}
}

func (m *Metrics) Sent(n int) {
	if m != nil {
		m.bytesSent.Add(n)
	}
}

func (m *Metrics) EOF() {
	if m != nil {
		m.eof.Inc()
	}
}

func (m *Metrics) WouldBlock() {
	if m != nil {
		m.wouldBlock.Inc()
	}
}

func (m *Metrics) IOError() {
	if m != nil {
		m.ioErrors.Inc()
	}
}

// Snapshot returns the current counter values keyed by short name.
func (m *Metrics) Snapshot() map[string]uint64 {
	if m == nil {
		return nil
	}
	return map[string]uint64{
		"listen":        m.listens.Get(),
		"listen_errors": m.listenErrors.Get(),
		"accepted":      m.accepted.Get(),
		"accept_errors": m.acceptErrors.Get(),
		"closed":        m.closed.Get(),
		"received":      m.bytesReceived.Get(),
		"sent":          m.bytesSent.Get(),
		"eof":           m.eof.Get(),
		"would_block":   m.wouldBlock.Get(),
		"io_errors":     m.ioErrors.Get(),
	}
}
