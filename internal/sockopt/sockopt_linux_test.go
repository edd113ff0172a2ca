package sockopt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-nio/internal/sockopt"
)

func tcpSocket(t *testing.T) int {
	t.Helper()
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = unix.Close(fd) })
	return fd
}

func TestBlockingToggle(t *testing.T) {
	fd := tcpSocket(t)

	require.NoError(t, sockopt.SetNonblocking(fd))
	nb, err := sockopt.IsNonblocking(fd)
	require.NoError(t, err)
	assert.True(t, nb)

	require.NoError(t, sockopt.SetBlocking(fd))
	nb, err = sockopt.IsNonblocking(fd)
	require.NoError(t, err)
	assert.False(t, nb)
}

func TestBooleanOptions(t *testing.T) {
	fd := tcpSocket(t)

	require.NoError(t, sockopt.SetReuseAddr(fd))
	require.NoError(t, sockopt.SetTCPNoDelay(fd))
	require.NoError(t, sockopt.SetKeepalive(fd))

	for _, tc := range []struct {
		name       string
		level, opt int
	}{
		{"reuseaddr", unix.SOL_SOCKET, unix.SO_REUSEADDR},
		{"nodelay", unix.IPPROTO_TCP, unix.TCP_NODELAY},
		{"keepalive", unix.SOL_SOCKET, unix.SO_KEEPALIVE},
	} {
		v, err := unix.GetsockoptInt(fd, tc.level, tc.opt)
		require.NoError(t, err, tc.name)
		assert.NotZero(t, v, tc.name)
	}
}

func TestLinger(t *testing.T) {
	fd := tcpSocket(t)

	require.NoError(t, sockopt.SetLinger(fd, 5))
	on, timeout, err := sockopt.GetLinger(fd)
	require.NoError(t, err)
	assert.True(t, on)
	assert.Equal(t, 5, timeout)

	require.NoError(t, sockopt.UnsetLinger(fd))
	on, _, err = sockopt.GetLinger(fd)
	require.NoError(t, err)
	assert.False(t, on)
}

func TestBufferSizes(t *testing.T) {
	fd := tcpSocket(t)

	require.NoError(t, sockopt.SetSendBuffer(fd, 64<<10))
	require.NoError(t, sockopt.SetRecvBuffer(fd, 64<<10))

	// Linux doubles the requested value to account for bookkeeping overhead.
	snd, err := sockopt.GetSendBuffer(fd)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, snd, 64<<10)

	rcv, err := sockopt.GetRecvBuffer(fd)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, rcv, 64<<10)
}

func TestMaximizeSendBufferNeverShrinks(t *testing.T) {
	fd := tcpSocket(t)
	require.NoError(t, sockopt.SetSendBuffer(fd, 16<<10))

	before, err := sockopt.GetSendBuffer(fd)
	require.NoError(t, err)

	sockopt.MaximizeSendBuffer(fd)

	after, err := sockopt.GetSendBuffer(fd)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, after, before)
}

func TestGetSocketErrorClean(t *testing.T) {
	fd := tcpSocket(t)
	assert.NoError(t, sockopt.GetSocketError(fd))
}

func TestInvalidDescriptor(t *testing.T) {
	const bad = -1
	assert.ErrorIs(t, sockopt.SetNonblocking(bad), unix.EBADF)
	assert.ErrorIs(t, sockopt.SetReuseAddr(bad), unix.EBADF)
	_, err := sockopt.GetSendBuffer(bad)
	assert.ErrorIs(t, err, unix.EBADF)

	// Must not panic or loop on a descriptor it cannot query.
	sockopt.MaximizeSendBuffer(bad)
}
