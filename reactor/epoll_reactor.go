//go:build linux

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor - Linux epoll implementation.

package reactor

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-nio/api"
)

const maxEvents = 128

// epollReactor implements Reactor on top of a level-triggered epoll set.
type epollReactor struct {
	epfd      int
	callbacks *xsync.MapOf[int, Callback]
	events    [maxEvents]unix.EpollEvent
	closed    atomic.Bool
	log       *logrus.Entry
}

// New creates an epoll backed Reactor. A nil log disables callback panic
// reporting.
func New(log *logrus.Entry) (Reactor, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = logrus.NewEntry(l)
	}
	return &epollReactor{
		epfd:      epfd,
		callbacks: xsync.NewMapOf[int, Callback](),
		log:       log.WithField("module", "reactor"),
	}, nil
}

func toEpoll(events EventType) uint32 {
	var ev uint32
	if events&EventRead != 0 {
		ev |= unix.EPOLLIN | unix.EPOLLRDHUP
	}
	if events&EventWrite != 0 {
		ev |= unix.EPOLLOUT
	}
	return ev
}

func fromEpoll(ev uint32) EventType {
	var events EventType
	if ev&(unix.EPOLLIN|unix.EPOLLRDHUP) != 0 {
		events |= EventRead
	}
	if ev&unix.EPOLLOUT != 0 {
		events |= EventWrite
	}
	if ev&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
		events |= EventError
	}
	return events
}

// Register adds fd to the watch list.
func (r *epollReactor) Register(fd int, events EventType, cb Callback) error {
	if cb == nil || fd < 0 {
		return api.ErrInvalidArgument
	}
	if r.closed.Load() {
		return api.ErrServerClosed
	}
	ev := unix.EpollEvent{Events: toEpoll(events), Fd: int32(fd)}
	if _, loaded := r.callbacks.LoadOrStore(fd, cb); loaded {
		return fmt.Errorf("epoll ctl add: %w", unix.EEXIST)
	}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		r.callbacks.Delete(fd)
		return fmt.Errorf("epoll ctl add: %w", err)
	}
	return nil
}

// Modify changes the interest set of fd.
func (r *epollReactor) Modify(fd int, events EventType) error {
	if _, ok := r.callbacks.Load(fd); !ok {
		return api.ErrInvalidArgument
	}
	ev := unix.EpollEvent{Events: toEpoll(events), Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		return fmt.Errorf("epoll ctl mod: %w", err)
	}
	return nil
}

// Unregister removes fd from the watch list.
func (r *epollReactor) Unregister(fd int) error {
	if _, ok := r.callbacks.LoadAndDelete(fd); !ok {
		return api.ErrInvalidArgument
	}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("epoll ctl del: %w", err)
	}
	return nil
}

// Poll blocks for at most timeoutMs and dispatches callbacks.
func (r *epollReactor) Poll(timeoutMs int) (int, error) {
	if r.closed.Load() {
		return 0, api.ErrServerClosed
	}
	if timeoutMs < 0 {
		timeoutMs = -1
	}

	n, err := unix.EpollWait(r.epfd, r.events[:], timeoutMs)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return 0, nil
		}
		return 0, fmt.Errorf("epoll wait: %w", err)
	}

	handled := 0
	for i := 0; i < n; i++ {
		fd := int(r.events[i].Fd)
		// an earlier callback in this batch may have unregistered fd
		cb, ok := r.callbacks.Load(fd)
		if !ok {
			continue
		}
		r.dispatch(cb, fd, fromEpoll(r.events[i].Events))
		handled++
	}
	return handled, nil
}

// dispatch keeps the loop alive if a callback panics.
func (r *epollReactor) dispatch(cb Callback, fd int, events EventType) {
	defer func() {
		if v := recover(); v != nil {
			r.log.WithFields(logrus.Fields{"fd": fd, "events": events.String()}).
				Errorf("callback panic: %v", v)
		}
	}()
	cb(fd, events)
}

func (r *epollReactor) Len() int {
	return r.callbacks.Size()
}

// Close releases the epoll descriptor.
func (r *epollReactor) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	r.callbacks.Clear()
	return unix.Close(r.epfd)
}
