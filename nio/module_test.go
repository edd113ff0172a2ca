package nio_test

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-nio/api"
	"github.com/momentics/hioload-nio/nio"
)

func TestNewModuleBacklog(t *testing.T) {
	log := logrus.NewEntry(logrus.New())
	assert.Equal(t, 128, nio.NewModule(128, nio.WithLogger(log)).Backlog())
	assert.Equal(t, nio.DefaultBacklog, nio.NewModule(0, nio.WithLogger(log)).Backlog())
}

func TestBorrowedConnIsReset(t *testing.T) {
	m, _ := newModule(t)

	c, err := m.Borrow()
	require.NoError(t, err)
	assert.Equal(t, -1, c.Fd())
	assert.Equal(t, api.StateUninitialized, c.State())
	assert.Zero(t, c.BytesReceived())
	assert.Zero(t, c.BytesSent())
	assert.Zero(t, c.LastError())
	assert.Zero(t, c.Mode)
	assert.Zero(t, c.Flags)

	c.Mode, c.Flags = 2, 0xff
	m.Return(c)

	again, err := m.Borrow()
	require.NoError(t, err)
	assert.Same(t, c, again)
	assert.Zero(t, again.Mode)
	assert.Zero(t, again.Flags)
}

func TestPoolReuseScenario(t *testing.T) {
	m := nio.NewModule(16, nio.WithLogger(logrus.NewEntry(logrus.New())))
	m.CreatePool(2)

	a, err := m.Borrow()
	require.NoError(t, err)
	b, err := m.Borrow()
	require.NoError(t, err)

	m.Return(a)
	again, err := m.Borrow()
	require.NoError(t, err)
	assert.Same(t, a, again, "pool must hand back the returned entity")
	assert.Equal(t, uint64(2), m.PoolStats().Allocated)

	m.Return(again)
	m.Return(b)
	assert.NotPanics(t, m.DestroyPool)
	m.Teardown()
}

func TestPoolOverflowDestroyed(t *testing.T) {
	m, _ := newModule(t)

	var conns []*nio.Conn
	for i := 0; i < testPoolCapacity+1; i++ {
		c, err := m.Borrow()
		require.NoError(t, err)
		conns = append(conns, c)
	}
	for _, c := range conns {
		m.Return(c)
	}
	st := m.PoolStats()
	assert.Equal(t, testPoolCapacity, st.Free)
	assert.Equal(t, uint64(1), st.Destroyed)
}

func TestBorrowWithoutPool(t *testing.T) {
	m := nio.NewModule(16, nio.WithLogger(logrus.NewEntry(logrus.New())))
	_, err := m.Borrow()
	assert.ErrorIs(t, err, api.ErrPoolClosed)

	m.CreatePool(1)
	m.DestroyPool()
	_, err = m.Borrow()
	assert.ErrorIs(t, err, api.ErrPoolClosed)
}

func TestMaxLive(t *testing.T) {
	m, _ := newModule(t, nio.WithMaxLive(1))

	c, err := m.Borrow()
	require.NoError(t, err)
	_, err = m.Borrow()
	assert.ErrorIs(t, err, api.ErrResourceExhausted)

	m.Return(c)
	_, err = m.Borrow()
	assert.NoError(t, err)
}

func TestTeardownDestroysLivePool(t *testing.T) {
	m, hook := newModule(t)
	_, err := m.Borrow()
	require.NoError(t, err)

	m.Teardown()
	_, err = m.Borrow()
	assert.ErrorIs(t, err, api.ErrPoolClosed)
	assert.Equal(t, 1, countLevel(hook, logrus.WarnLevel))
}
