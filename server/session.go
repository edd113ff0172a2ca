// File: server/session.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Per-connection outbound queue.

package server

import (
	"github.com/eapache/queue"

	"github.com/momentics/hioload-nio/nio"
	"github.com/momentics/hioload-nio/reactor"
)

// maxIov caps the segments handed to one vectored send.
const maxIov = 64

type session struct {
	conn    *nio.Conn
	out     *queue.Queue // [][]byte segments waiting for the socket
	head    int          // bytes of the first segment already sent
	pending  int
	interest reactor.EventType // as last registered with the reactor
}

func newSession(c *nio.Conn) *session {
	return &session{conn: c, out: queue.New(), interest: reactor.EventRead}
}

func (s *session) enqueue(segs [][]byte) {
	for _, seg := range segs {
		if len(seg) == 0 {
			continue
		}
		s.out.Add(seg)
		s.pending += len(seg)
	}
}

// iovecs lists the unsent part of the queue, at most maxIov segments.
func (s *session) iovecs(dst [][]byte) [][]byte {
	dst = dst[:0]
	n := min(s.out.Length(), maxIov)
	for i := 0; i < n; i++ {
		seg := s.out.Get(i).([]byte)
		if i == 0 {
			seg = seg[s.head:]
		}
		dst = append(dst, seg)
	}
	return dst
}

// consume drops n sent bytes from the front of the queue.
func (s *session) consume(n int) {
	s.pending -= n
	for n > 0 {
		left := len(s.out.Peek().([]byte)) - s.head
		if n < left {
			s.head += n
			return
		}
		n -= left
		s.out.Remove()
		s.head = 0
	}
}
