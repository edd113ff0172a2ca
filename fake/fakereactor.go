// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package fake

import (
	"sync"

	"github.com/momentics/hioload-nio/api"
	"github.com/momentics/hioload-nio/reactor"
)

// Reactor is a reactor.Reactor that never touches the kernel. Readiness is
// delivered by Fire; Poll only reports queued events.
type Reactor struct {
	mu        sync.Mutex
	callbacks map[int]reactor.Callback
	interest  map[int]reactor.EventType
	queued    []firing
	failNext  error
	closed    bool
}

type firing struct {
	fd int
	ev reactor.EventType
}

var _ reactor.Reactor = (*Reactor)(nil)

func NewReactor() *Reactor {
	return &Reactor{
		callbacks: make(map[int]reactor.Callback),
		interest:  make(map[int]reactor.EventType),
	}
}

// FailNextRegister makes the next Register return err.
func (r *Reactor) FailNextRegister(err error) {
	r.mu.Lock()
	r.failNext = err
	r.mu.Unlock()
}

func (r *Reactor) Register(fd int, events reactor.EventType, cb reactor.Callback) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failNext; err != nil {
		r.failNext = nil
		return err
	}
	if _, ok := r.callbacks[fd]; ok || cb == nil {
		return api.ErrInvalidArgument
	}
	r.callbacks[fd] = cb
	r.interest[fd] = events
	return nil
}

func (r *Reactor) Modify(fd int, events reactor.EventType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.callbacks[fd]; !ok {
		return api.ErrInvalidArgument
	}
	r.interest[fd] = events
	return nil
}

func (r *Reactor) Unregister(fd int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.callbacks[fd]; !ok {
		return api.ErrInvalidArgument
	}
	delete(r.callbacks, fd)
	delete(r.interest, fd)
	return nil
}

// Interest reports the registered interest set of fd.
func (r *Reactor) Interest(fd int) (reactor.EventType, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev, ok := r.interest[fd]
	return ev, ok
}

// Fire queues a readiness event for the next Poll. Poll drops the parts of
// ev outside the registered interest, as epoll would.
func (r *Reactor) Fire(fd int, ev reactor.EventType) {
	r.mu.Lock()
	r.queued = append(r.queued, firing{fd: fd, ev: ev})
	r.mu.Unlock()
}

func (r *Reactor) Poll(_ int) (int, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return 0, api.ErrServerClosed
	}
	queued := r.queued
	r.queued = nil
	r.mu.Unlock()

	n := 0
	for _, f := range queued {
		r.mu.Lock()
		cb, ok := r.callbacks[f.fd]
		ev := f.ev & (r.interest[f.fd] | reactor.EventError)
		r.mu.Unlock()
		if ok && ev != 0 {
			cb(f.fd, ev)
			n++
		}
	}
	return n, nil
}

func (r *Reactor) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.callbacks)
}

func (r *Reactor) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}
