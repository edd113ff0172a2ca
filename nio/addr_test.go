package nio_test

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-nio/api"
	"github.com/momentics/hioload-nio/nio"
)

func TestResolveAddr(t *testing.T) {
	a, err := nio.ResolveAddr("tcp", "127.0.0.1:11211")
	require.NoError(t, err)
	tcp, ok := a.(*net.TCPAddr)
	require.True(t, ok)
	assert.Equal(t, 11211, tcp.Port)

	a, err = nio.ResolveAddr("unix", "/tmp/cache.sock")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/cache.sock", a.String())

	_, err = nio.ResolveAddr("udp", "127.0.0.1:1")
	assert.ErrorIs(t, err, api.ErrInvalidArgument)

	_, err = nio.ResolveAddr("tcp", "not-a-port")
	assert.Error(t, err)
}
