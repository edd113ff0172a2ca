// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake implementations for testing and development.
// Provides predictable, controllable behavior for the socket primitives.

package fake

import (
	"sync"
	"syscall"

	"github.com/momentics/hioload-nio/api"
)

// Step scripts the outcome of one OS call. For reads, Data is copied into
// the caller's buffer; otherwise N is returned as the byte count.
type Step struct {
	Data []byte
	N    int
	Err  error
}

// SocketOps is a scripted api.SocketOps. Each call consumes the next step of
// its queue. An empty read or accept queue reports EAGAIN; an empty write
// queue accepts the whole buffer.
type SocketOps struct {
	mu      sync.Mutex
	reads   []Step
	writes  []Step
	accepts []Step
	written []byte
	closed  []int
	calls   map[string]int
}

// NewSocketOps creates an empty script.
func NewSocketOps() *SocketOps {
	return &SocketOps{calls: make(map[string]int)}
}

// QueueRead appends a read outcome.
func (s *SocketOps) QueueRead(steps ...Step) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads = append(s.reads, steps...)
}

// QueueWrite appends a write outcome.
func (s *SocketOps) QueueWrite(steps ...Step) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = append(s.writes, steps...)
}

// QueueAccept appends an accept outcome; N is the returned descriptor.
func (s *SocketOps) QueueAccept(steps ...Step) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accepts = append(s.accepts, steps...)
}

// Calls returns how many times op was invoked.
func (s *SocketOps) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Closed returns the descriptors passed to Close, in order.
func (s *SocketOps) Closed() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.closed...)
}

// Written returns every byte accepted by Write and Writev.
func (s *SocketOps) Written() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.written...)
}

func (s *SocketOps) Read(_ int, p []byte) (int, error) {
	return s.read("read", [][]byte{p})
}

func (s *SocketOps) Readv(_ int, iovs [][]byte) (int, error) {
	return s.read("readv", iovs)
}

func (s *SocketOps) Write(_ int, p []byte) (int, error) {
	return s.write("write", [][]byte{p})
}

func (s *SocketOps) Writev(_ int, iovs [][]byte) (int, error) {
	return s.write("writev", iovs)
}

func (s *SocketOps) Accept(_ int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["accept"]++
	step, ok := pop(&s.accepts)
	if !ok {
		return -1, syscall.EAGAIN
	}
	if step.Err != nil {
		return -1, step.Err
	}
	return step.N, nil
}

func (s *SocketOps) Close(fd int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["close"]++
	s.closed = append(s.closed, fd)
	return nil
}

func (s *SocketOps) read(op string, iovs [][]byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[op]++
	step, ok := pop(&s.reads)
	if !ok {
		return -1, syscall.EAGAIN
	}
	if step.Err != nil {
		return -1, step.Err
	}
	if step.Data == nil {
		return step.N, nil
	}
	n, src := 0, step.Data
	for _, iov := range iovs {
		c := copy(iov, src)
		n += c
		src = src[c:]
		if len(src) == 0 {
			break
		}
	}
	return n, nil
}

func (s *SocketOps) write(op string, iovs [][]byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[op]++
	total := 0
	for _, iov := range iovs {
		total += len(iov)
	}
	n := total
	if step, ok := pop(&s.writes); ok {
		if step.Err != nil {
			return -1, step.Err
		}
		n = min(step.N, total)
	}
	left := n
	for _, iov := range iovs {
		c := min(left, len(iov))
		s.written = append(s.written, iov[:c]...)
		left -= c
	}
	return n, nil
}

func pop(q *[]Step) (Step, bool) {
	if len(*q) == 0 {
		return Step{}, false
	}
	st := (*q)[0]
	*q = (*q)[1:]
	return st, true
}

var _ api.SocketOps = (*SocketOps)(nil)
