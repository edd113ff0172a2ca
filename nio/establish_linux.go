// File: nio/establish_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Listening, accepting, adopting and closing connections.

package nio

import (
	"errors"
	"net"

	"github.com/samber/oops"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-nio/api"
	"github.com/momentics/hioload-nio/internal/sockopt"
)

// Listen creates a non-blocking stream socket bound to addr and listening
// with the module backlog. On any failure the socket is closed and no Conn is
// handed out. The returned error matches the underlying errno with errors.Is.
func (m *Module) Listen(addr net.Addr) (*Conn, error) {
	sa, family, err := toSockaddr(addr)
	if err != nil {
		m.metrics.ListenFailed()
		return nil, oops.
			Code("INVALID_ADDRESS").
			In("nio").
			With("addr", addr).
			Wrapf(err, "listen")
	}

	sd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		m.metrics.ListenFailed()
		m.log.WithError(err).Error("socket failed")
		return nil, oops.
			Code("SOCKET_FAILED").
			In("nio").
			With("addr", addr.String()).
			Wrapf(err, "socket")
	}

	abort := func(code, step string, err error) (*Conn, error) {
		m.metrics.ListenFailed()
		m.log.WithFields(logrus.Fields{"sd": sd, "addr": addr.String()}).
			WithError(err).Errorf("%s on sd %d failed", step, sd)
		if cerr := unix.Close(sd); cerr != nil {
			m.log.WithField("sd", sd).WithError(cerr).Error("close failed, ignored")
		}
		return nil, oops.
			Code(code).
			In("nio").
			With("sd", sd).
			With("addr", addr.String()).
			Wrapf(err, "%s", step)
	}

	if err := sockopt.SetReuseAddr(sd); err != nil {
		return abort("REUSEADDR_FAILED", "reuseaddr", err)
	}
	if err := unix.Bind(sd, sa); err != nil {
		return abort("BIND_FAILED", "bind", err)
	}
	if err := unix.Listen(sd, m.backlog); err != nil {
		return abort("LISTEN_FAILED", "listen", err)
	}
	if err := sockopt.SetNonblocking(sd); err != nil {
		return abort("NONBLOCK_FAILED", "set nonblock", err)
	}

	c, err := m.Borrow()
	if err != nil {
		return abort("BORROW_FAILED", "borrow conn", err)
	}
	c.open(sd, family)

	m.metrics.Listened()
	m.log.WithFields(logrus.Fields{"sd": sd, "addr": addr.String()}).Info("server listen setup")
	return c, nil
}

// Accept takes one pending connection off the listening Conn l.
//
// It returns (nil, nil) when nothing is pending, without touching the pool.
// Other accept failures are logged and returned; they are not fatal for l.
// When no Conn can be borrowed the accepted descriptor is closed at once.
func (m *Module) Accept(l *Conn) (*Conn, error) {
	assertf(l != nil && l.fd >= 0 && l.state.HasDescriptor(), "accept on unbound connection")

	var sd int
	for {
		var err error
		sd, err = m.ops.Accept(l.fd)
		if err == nil {
			break
		}
		if errors.Is(err, unix.EINTR) {
			m.tracef(l.fd, "accept on sd %d not ready - eintr", l.fd)
			continue
		}
		if errors.Is(err, unix.EAGAIN) {
			m.tracef(l.fd, "accept on sd %d not ready - eagain", l.fd)
			return nil, nil
		}

		m.metrics.AcceptFailed()
		m.log.WithField("listen_sd", l.fd).WithError(err).Errorf("accept on sd %d failed", l.fd)
		return nil, oops.
			Code("ACCEPT_FAILED").
			In("nio").
			With("listen_sd", l.fd).
			Wrapf(err, "accept")
	}

	c, err := m.Borrow()
	if err != nil {
		m.metrics.AcceptFailed()
		m.log.WithFields(logrus.Fields{"sd": sd, "listen_sd": l.fd}).
			WithError(err).Error("accept failed: cannot get connection struct")
		if cerr := m.ops.Close(sd); cerr != nil {
			m.log.WithField("sd", sd).WithError(cerr).Error("close failed, ignored")
		}
		return nil, oops.
			Code("BORROW_FAILED").
			In("nio").
			With("sd", sd).
			With("listen_sd", l.fd).
			Wrapf(err, "accept")
	}
	c.open(sd, l.family)
	m.metrics.Accepted()

	if err := sockopt.SetNonblocking(sd); err != nil {
		m.log.WithField("sd", sd).WithError(err).Error("set nonblock failed, ignored")
		return c, nil
	}
	if l.family != unix.AF_UNIX {
		if err := sockopt.SetTCPNoDelay(sd); err != nil {
			m.log.WithField("sd", sd).WithError(err).Warn("set tcp nodelay failed, ignored")
		}
	}
	m.tune(c)

	m.log.WithFields(logrus.Fields{"sd": sd, "listen_sd": l.fd}).Info("accepted connection")
	return c, nil
}

func (m *Module) tune(c *Conn) {
	t := m.tuning
	warn := func(opt string, err error) {
		m.log.WithFields(logrus.Fields{"sd": c.fd, "option": opt}).WithError(err).Warn("socket option failed, ignored")
	}

	if t.KeepAlive {
		if err := sockopt.SetKeepalive(c.fd); err != nil {
			warn("keepalive", err)
		}
	}
	if t.Linger {
		if err := sockopt.SetLinger(c.fd, t.LingerTimeout); err != nil {
			warn("linger", err)
		}
	}
	if t.RecvBuffer > 0 {
		if err := sockopt.SetRecvBuffer(c.fd, t.RecvBuffer); err != nil {
			warn("rcvbuf", err)
		}
	}
	if t.SendBuffer > 0 {
		if err := sockopt.SetSendBuffer(c.fd, t.SendBuffer); err != nil {
			warn("sndbuf", err)
		}
	}
	if t.MaximizeSendBuffer {
		sockopt.MaximizeSendBuffer(c.fd)
	}
}

// Adopt wraps a descriptor created elsewhere, e.g. by connect or socketpair,
// in a pooled Conn. The caller keeps responsibility for its blocking mode;
// the descriptor is closed by Close like any other connection.
func (m *Module) Adopt(fd int) (*Conn, error) {
	assertf(fd >= 0, "adopt of invalid descriptor")

	c, err := m.Borrow()
	if err != nil {
		return nil, oops.
			Code("BORROW_FAILED").
			In("nio").
			With("sd", fd).
			Wrapf(err, "adopt")
	}
	family := 0
	if sa, err := unix.Getsockname(fd); err == nil {
		family = sockaddrFamily(sa)
	}
	c.open(fd, family)
	m.debugf("adopted sd %d", fd)
	return c, nil
}

// Close closes the descriptor and returns c to the pool. Calling Close twice
// on the same Conn is a caller error.
func (m *Module) Close(c *Conn) {
	assertf(c != nil && c.state.HasDescriptor(), "close of unbound connection")

	m.log.WithFields(logrus.Fields{
		"sd": c.fd,
		"rb": c.recvNbyte,
		"sb": c.sendNbyte,
	}).Info("returning conn")

	if err := m.ops.Close(c.fd); err != nil {
		m.log.WithField("sd", c.fd).WithError(err).Warn("close failed, ignored")
	}
	c.fd = -1
	c.state = api.StateClosed
	m.metrics.Closed()

	m.Return(c)
}

// LocalAddr returns the address the descriptor is bound to.
func (c *Conn) LocalAddr() (net.Addr, error) {
	if !c.state.HasDescriptor() {
		return nil, api.ErrInvalidArgument
	}
	sa, err := unix.Getsockname(c.fd)
	if err != nil {
		return nil, oops.In("nio").With("sd", c.fd).Wrapf(err, "getsockname")
	}
	return sockaddrToAddr(sa), nil
}

func toSockaddr(addr net.Addr) (unix.Sockaddr, int, error) {
	switch a := addr.(type) {
	case *net.TCPAddr:
		if a == nil {
			return nil, 0, api.ErrInvalidArgument
		}
		if a.IP == nil || a.IP.To4() != nil {
			sa := &unix.SockaddrInet4{Port: a.Port}
			if a.IP != nil {
				copy(sa.Addr[:], a.IP.To4())
			}
			return sa, unix.AF_INET, nil
		}
		ip6 := a.IP.To16()
		if ip6 == nil {
			return nil, 0, api.ErrInvalidArgument
		}
		sa := &unix.SockaddrInet6{Port: a.Port}
		copy(sa.Addr[:], ip6)
		if a.Zone != "" {
			ifi, err := net.InterfaceByName(a.Zone)
			if err != nil {
				return nil, 0, err
			}
			sa.ZoneId = uint32(ifi.Index)
		}
		return sa, unix.AF_INET6, nil
	case *net.UnixAddr:
		if a == nil {
			return nil, 0, api.ErrInvalidArgument
		}
		return &unix.SockaddrUnix{Name: a.Name}, unix.AF_UNIX, nil
	default:
		return nil, 0, api.ErrInvalidArgument
	}
}

func sockaddrFamily(sa unix.Sockaddr) int {
	switch sa.(type) {
	case *unix.SockaddrInet4:
		return unix.AF_INET
	case *unix.SockaddrInet6:
		return unix.AF_INET6
	case *unix.SockaddrUnix:
		return unix.AF_UNIX
	default:
		return 0
	}
}

func sockaddrToAddr(sa unix.Sockaddr) net.Addr {
	switch s := sa.(type) {
	case *unix.SockaddrInet4:
		ip := make(net.IP, net.IPv4len)
		copy(ip, s.Addr[:])
		return &net.TCPAddr{IP: ip, Port: s.Port}
	case *unix.SockaddrInet6:
		ip := make(net.IP, net.IPv6len)
		copy(ip, s.Addr[:])
		zone := ""
		if s.ZoneId != 0 {
			if ifi, err := net.InterfaceByIndex(int(s.ZoneId)); err == nil {
				zone = ifi.Name
			}
		}
		return &net.TCPAddr{IP: ip, Port: s.Port, Zone: zone}
	case *unix.SockaddrUnix:
		return &net.UnixAddr{Name: s.Name, Net: "unix"}
	default:
		return nil
	}
}
