// File: nio/io_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Scalar and vectored non-blocking transfers. All four share one loop:
// EINTR is retried, EAGAIN becomes StatusWouldBlock, anything else is
// recorded on the Conn and reported as StatusError.

package nio

import (
	"errors"
	"os"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-nio/api"
)

type direction uint8

const (
	dirRecv direction = iota
	dirSend
)

// Recv reads at most len(buf) bytes with a single successful OS call.
// Callers re-invoke for the remainder. buf must not be empty.
func (m *Module) Recv(c *Conn, buf []byte) api.Result {
	assertf(len(buf) > 0, "recv with empty buffer")
	return m.transfer(c, dirRecv, "recv", len(buf), 1, func(fd int) (int, error) {
		return m.ops.Read(fd, buf)
	})
}

// RecvV scatters one read across segs. A zero-byte read means EOF, exactly
// as for Recv.
func (m *Module) RecvV(c *Conn, segs [][]byte) api.Result {
	assertf(len(segs) > 0, "recvv with no segments")
	nbyte := iovLen(segs)
	assertf(nbyte > 0, "recvv with zero total length")
	return m.transfer(c, dirRecv, "recvv", nbyte, len(segs), func(fd int) (int, error) {
		return m.ops.Readv(fd, segs)
	})
}

// Send writes at most len(buf) bytes with a single successful OS call.
// A short write is reported as is; callers resend the remainder.
func (m *Module) Send(c *Conn, buf []byte) api.Result {
	assertf(len(buf) > 0, "send with empty buffer")
	return m.transfer(c, dirSend, "send", len(buf), 1, func(fd int) (int, error) {
		return m.ops.Write(fd, buf)
	})
}

// SendV gathers segs into one write.
func (m *Module) SendV(c *Conn, segs [][]byte) api.Result {
	assertf(len(segs) > 0, "sendv with no segments")
	nbyte := iovLen(segs)
	assertf(nbyte > 0, "sendv with zero total length")
	return m.transfer(c, dirSend, "sendv", nbyte, len(segs), func(fd int) (int, error) {
		return m.ops.Writev(fd, segs)
	})
}

func (m *Module) transfer(c *Conn, dir direction, op string, nbyte, nsegs int, call func(fd int) (int, error)) api.Result {
	assertf(c != nil && c.fd >= 0 && c.state.HasDescriptor(), op+" on unbound connection")

	m.tracef(c.fd, "%s on sd %d, total %d bytes in %d buffers", op, c.fd, nbyte, nsegs)

	for {
		n, err := call(c.fd)
		if err == nil {
			m.tracef(c.fd, "%s on sd %d %d of %d", op, c.fd, n, nbyte)
			return m.transferred(c, dir, op, n)
		}

		switch {
		case errors.Is(err, unix.EINTR):
			m.tracef(c.fd, "%s on sd %d not ready - eintr", op, c.fd)
			continue
		case errors.Is(err, unix.EAGAIN):
			m.tracef(c.fd, "%s on sd %d not ready - eagain", op, c.fd)
			m.metrics.WouldBlock()
			return api.Result{Status: api.StatusWouldBlock}
		default:
			var errno syscall.Errno
			if errors.As(err, &errno) {
				c.err = errno
			}
			m.metrics.IOError()
			m.log.WithFields(logrus.Fields{"sd": c.fd, "nbyte": nbyte, "nsegs": nsegs}).
				WithError(err).Errorf("%s on sd %d failed", op, c.fd)
			return api.Result{Status: api.StatusError, Err: os.NewSyscallError(op, err)}
		}
	}
}

func (m *Module) transferred(c *Conn, dir direction, op string, n int) api.Result {
	if n > 0 {
		if dir == dirRecv {
			c.recvNbyte += uint64(n)
			m.metrics.Received(n)
		} else {
			c.sendNbyte += uint64(n)
			m.metrics.Sent(n)
		}
		return api.Result{N: n}
	}

	if dir == dirRecv {
		c.state = api.StateEOF
		m.metrics.EOF()
		m.log.WithFields(logrus.Fields{"sd": c.fd, "rb": c.recvNbyte, "sb": c.sendNbyte}).
			Infof("%s on sd %d eof", op, c.fd)
		return api.Result{Status: api.StatusEOF}
	}

	m.log.WithField("sd", c.fd).Warnf("%s on sd %d returned zero", op, c.fd)
	return api.Result{}
}

func iovLen(segs [][]byte) int {
	n := 0
	for _, s := range segs {
		n += len(s)
	}
	return n
}
