package nio_test

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-nio/api"
	"github.com/momentics/hioload-nio/fake"
	"github.com/momentics/hioload-nio/internal/sockopt"
	"github.com/momentics/hioload-nio/nio"
)

func loopback(t *testing.T) net.Addr {
	t.Helper()
	addr, err := nio.ResolveAddr("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return addr
}

func openFds(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir("/proc/self/fd")
	require.NoError(t, err)
	return len(entries)
}

// acceptOne polls Accept until a connection shows up.
func acceptOne(t *testing.T, m *nio.Module, l *nio.Conn) *nio.Conn {
	t.Helper()
	var c *nio.Conn
	require.Eventually(t, func() bool {
		var err error
		c, err = m.Accept(l)
		require.NoError(t, err)
		return c != nil
	}, 2*time.Second, 5*time.Millisecond)
	return c
}

func TestListenAcceptTCP(t *testing.T) {
	m, _ := newModule(t)

	l, err := m.Listen(loopback(t))
	require.NoError(t, err)
	defer m.Close(l)
	assert.Equal(t, api.StateOpen, l.State())

	nb, err := sockopt.IsNonblocking(l.Fd())
	require.NoError(t, err)
	assert.True(t, nb, "listening socket must be non-blocking")

	laddr, err := l.LocalAddr()
	require.NoError(t, err)
	tcpAddr, ok := laddr.(*net.TCPAddr)
	require.True(t, ok)
	require.NotZero(t, tcpAddr.Port)

	client, err := net.Dial("tcp", laddr.String())
	require.NoError(t, err)
	defer client.Close()

	c := acceptOne(t, m, l)
	defer m.Close(c)
	assert.Equal(t, api.StateOpen, c.State())
	assert.Zero(t, c.BytesReceived())

	nb, err = sockopt.IsNonblocking(c.Fd())
	require.NoError(t, err)
	assert.True(t, nb)

	nodelay, err := unix.GetsockoptInt(c.Fd(), unix.IPPROTO_TCP, unix.TCP_NODELAY)
	require.NoError(t, err)
	assert.Equal(t, 1, nodelay)

	_, err = client.Write([]byte("get foo\r\n"))
	require.NoError(t, err)

	buf := make([]byte, 64)
	var res api.Result
	require.Eventually(t, func() bool {
		res = m.Recv(c, buf)
		return res.Status != api.StatusWouldBlock
	}, 2*time.Second, 5*time.Millisecond)
	require.True(t, res.OK(), res.String())
	assert.Equal(t, "get foo\r\n", string(buf[:res.N]))
	assert.Equal(t, uint64(res.N), c.BytesReceived())
}

func TestAcceptNothingPending(t *testing.T) {
	m, _ := newModule(t)

	l, err := m.Listen(loopback(t))
	require.NoError(t, err)
	defer m.Close(l)

	before := m.PoolStats()
	c, err := m.Accept(l)
	assert.NoError(t, err)
	assert.Nil(t, c)

	after := m.PoolStats()
	assert.Equal(t, before.Live, after.Live, "no borrow when nothing is pending")
	assert.Equal(t, before.Reused+before.Allocated, after.Reused+after.Allocated)
}

func TestListenAddressInUse(t *testing.T) {
	m, _ := newModule(t)

	first, err := m.Listen(loopback(t))
	require.NoError(t, err)
	defer m.Close(first)
	bound, err := first.LocalAddr()
	require.NoError(t, err)

	fds := openFds(t)
	live := m.PoolStats().Live

	second, err := m.Listen(bound)
	require.Error(t, err)
	assert.Nil(t, second)
	assert.ErrorIs(t, err, unix.EADDRINUSE)

	assert.Equal(t, fds, openFds(t), "failed listen must not leak a descriptor")
	assert.Equal(t, live, m.PoolStats().Live)
}

func TestListenInvalidAddress(t *testing.T) {
	m, _ := newModule(t)
	_, err := m.Listen(&net.IPAddr{IP: net.IPv4(127, 0, 0, 1)})
	assert.ErrorIs(t, err, api.ErrInvalidArgument)

	var tcp *net.TCPAddr
	var unixAddr *net.UnixAddr
	for _, addr := range []net.Addr{tcp, unixAddr} {
		assert.NotPanics(t, func() {
			_, err := m.Listen(addr)
			assert.ErrorIs(t, err, api.ErrInvalidArgument)
		})
	}
	assert.Zero(t, m.PoolStats().Live)
}

func TestListenAcceptUnix(t *testing.T) {
	m, _ := newModule(t)
	path := filepath.Join(t.TempDir(), "nio.sock")

	addr, err := nio.ResolveAddr("unix", path)
	require.NoError(t, err)
	l, err := m.Listen(addr)
	require.NoError(t, err)
	defer m.Close(l)

	laddr, err := l.LocalAddr()
	require.NoError(t, err)
	assert.Equal(t, path, laddr.String())

	client, err := net.Dial("unix", path)
	require.NoError(t, err)
	defer client.Close()

	c := acceptOne(t, m, l)
	defer m.Close(c)

	res := m.Send(c, []byte("pong"))
	require.True(t, res.OK(), res.String())

	buf := make([]byte, 4)
	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, err := client.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "pong", string(buf[:n]))
	assert.Equal(t, uint64(4), c.BytesSent())
}

func TestAcceptTuning(t *testing.T) {
	m, _ := newModule(t, nio.WithAcceptTuning(nio.AcceptTuning{
		KeepAlive:          true,
		Linger:             true,
		LingerTimeout:      2,
		RecvBuffer:         32 << 10,
		MaximizeSendBuffer: true,
	}))

	l, err := m.Listen(loopback(t))
	require.NoError(t, err)
	defer m.Close(l)
	laddr, err := l.LocalAddr()
	require.NoError(t, err)

	client, err := net.Dial("tcp", laddr.String())
	require.NoError(t, err)
	defer client.Close()

	c := acceptOne(t, m, l)
	defer m.Close(c)

	ka, err := unix.GetsockoptInt(c.Fd(), unix.SOL_SOCKET, unix.SO_KEEPALIVE)
	require.NoError(t, err)
	assert.Equal(t, 1, ka)

	on, timeout, err := sockopt.GetLinger(c.Fd())
	require.NoError(t, err)
	assert.True(t, on)
	assert.Equal(t, 2, timeout)

	rcv, err := sockopt.GetRecvBuffer(c.Fd())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, rcv, 32<<10)

	fresh, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	require.NoError(t, err)
	defer unix.Close(fresh)
	base, err := sockopt.GetSendBuffer(fresh)
	require.NoError(t, err)
	snd, err := sockopt.GetSendBuffer(c.Fd())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, snd, base, "maximized send buffer below the socket default")
}

func TestAcceptKeepsConnWhenNonblockFails(t *testing.T) {
	// no such descriptor, so fcntl fails with EBADF
	const unopenedFd = 900001

	ops := fake.NewSocketOps()
	m, hook := newModule(t, nio.WithSocketOps(ops))
	l, err := m.Adopt(fakeFd)
	require.NoError(t, err)
	ops.QueueAccept(fake.Step{N: unopenedFd})

	c, err := m.Accept(l)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, api.StateOpen, c.State())
	assert.Equal(t, unopenedFd, c.Fd())
	assert.Empty(t, ops.Closed(), "conn is handed out, not closed")

	logged := false
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.ErrorLevel && e.Message == "set nonblock failed, ignored" {
			logged = true
		}
	}
	assert.True(t, logged)

	m.Close(c)
	assert.Equal(t, []int{unopenedFd}, ops.Closed())
}

func TestAcceptRetriesInterruptThenNone(t *testing.T) {
	ops := fake.NewSocketOps()
	m, _ := newModule(t, nio.WithSocketOps(ops))
	l, err := m.Adopt(fakeFd)
	require.NoError(t, err)
	ops.QueueAccept(fake.Step{Err: unix.EINTR})

	live := m.PoolStats().Live
	c, err := m.Accept(l)
	assert.NoError(t, err)
	assert.Nil(t, c)
	assert.Equal(t, 2, ops.Calls("accept"))
	assert.Equal(t, live, m.PoolStats().Live)
}

func TestAcceptFailureIsReported(t *testing.T) {
	ops := fake.NewSocketOps()
	m, _ := newModule(t, nio.WithSocketOps(ops))
	l, err := m.Adopt(fakeFd)
	require.NoError(t, err)
	ops.QueueAccept(fake.Step{Err: unix.EMFILE})

	c, err := m.Accept(l)
	assert.Nil(t, c)
	assert.ErrorIs(t, err, unix.EMFILE)
	assert.Empty(t, ops.Closed())
}

func TestAcceptPoolExhaustedClosesDescriptor(t *testing.T) {
	ops := fake.NewSocketOps()
	m, _ := newModule(t, nio.WithSocketOps(ops), nio.WithMaxLive(1))
	l, err := m.Adopt(fakeFd)
	require.NoError(t, err)
	ops.QueueAccept(fake.Step{N: 77})

	c, err := m.Accept(l)
	assert.Nil(t, c)
	assert.ErrorIs(t, err, api.ErrResourceExhausted)
	assert.Equal(t, []int{77}, ops.Closed(), "accepted descriptor must not leak")
}

func TestAcceptOnUnboundPanics(t *testing.T) {
	m, _ := newModule(t)
	c, err := m.Borrow()
	require.NoError(t, err)
	assert.Panics(t, func() { _, _ = m.Accept(c) })
}
