package server

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-nio/fake"
	"github.com/momentics/hioload-nio/nio"
	"github.com/momentics/hioload-nio/reactor"
)

const (
	listenFd  = 1000
	sessionFd = 900002
)

// newScriptedServer wires a Server to fake socket ops and a fake reactor,
// with an adopted listener, so no kernel descriptors are involved.
func newScriptedServer(t *testing.T, opts ...Option) (*Server, *fake.Reactor, *fake.SocketOps, *logtest.Hook) {
	t.Helper()
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	ops := fake.NewSocketOps()
	m := nio.NewModule(64, nio.WithLogger(logrus.NewEntry(logger)), nio.WithSocketOps(ops))
	m.CreatePool(8)

	fr := fake.NewReactor()
	s, err := New(m, append([]Option{WithReactor(fr)}, opts...)...)
	require.NoError(t, err)

	l, err := m.Adopt(listenFd)
	require.NoError(t, err)
	s.listener = l
	require.NoError(t, fr.Register(l.Fd(), reactor.EventRead, s.onAccept))

	t.Cleanup(func() {
		s.Close()
		m.DestroyPool()
		m.Teardown()
	})
	return s, fr, ops, hook
}

func poll(t *testing.T, fr *fake.Reactor) int {
	t.Helper()
	n, err := fr.Poll(0)
	require.NoError(t, err)
	return n
}

func interest(t *testing.T, fr *fake.Reactor, fd int) reactor.EventType {
	t.Helper()
	ev, ok := fr.Interest(fd)
	require.True(t, ok, "fd %d not registered", fd)
	return ev
}

func TestAcceptErrorPausesListener(t *testing.T) {
	s, fr, ops, hook := newScriptedServer(t, WithPollInterval(time.Hour))
	ops.QueueAccept(fake.Step{Err: unix.EMFILE})

	fr.Fire(listenFd, reactor.EventRead)
	require.Equal(t, 1, poll(t, fr))
	assert.Equal(t, reactor.EventType(0), interest(t, fr, listenFd))
	assert.Equal(t, 1, ops.Calls("accept"))

	// still readable, but nothing is delivered while paused
	fr.Fire(listenFd, reactor.EventRead)
	assert.Zero(t, poll(t, fr))
	assert.Equal(t, 1, ops.Calls("accept"))

	warns := 0
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warns++
		}
	}
	assert.Equal(t, 1, warns)

	now := time.Now()
	s.resumeAccept(now)
	assert.Equal(t, reactor.EventType(0), interest(t, fr, listenFd), "pause lasts one poll interval")

	s.resumeAccept(now.Add(2 * time.Hour))
	assert.Equal(t, reactor.EventRead, interest(t, fr, listenFd))

	ops.QueueAccept(fake.Step{N: sessionFd})
	fr.Fire(listenFd, reactor.EventRead)
	require.Equal(t, 1, poll(t, fr))
	assert.Equal(t, 1, s.sessions.Size())
}

func TestOutputBacklogPausesReads(t *testing.T) {
	s, fr, ops, _ := newScriptedServer(t, WithMaxPending(8))
	ops.QueueAccept(fake.Step{N: sessionFd})
	fr.Fire(listenFd, reactor.EventRead)
	require.Equal(t, 1, poll(t, fr))
	require.Equal(t, reactor.EventRead, interest(t, fr, sessionFd))

	// a peer that sends but does not read: the echo cannot be written
	ops.QueueRead(fake.Step{Data: []byte("0123456789")})
	ops.QueueWrite(fake.Step{Err: unix.EAGAIN})
	fr.Fire(sessionFd, reactor.EventRead)
	require.Equal(t, 1, poll(t, fr))
	assert.Equal(t, reactor.EventWrite, interest(t, fr, sessionFd))

	sess, ok := s.sessions.Load(sessionFd)
	require.True(t, ok)
	assert.Equal(t, 10, sess.pending)

	fr.Fire(sessionFd, reactor.EventRead)
	assert.Zero(t, poll(t, fr))
	assert.Equal(t, 1, ops.Calls("read"))

	// writable again: the queue drains and reading resumes
	fr.Fire(sessionFd, reactor.EventWrite)
	require.Equal(t, 1, poll(t, fr))
	assert.Equal(t, reactor.EventRead, interest(t, fr, sessionFd))
	assert.Equal(t, "0123456789", string(ops.Written()))
	assert.Zero(t, sess.pending)

	// a small backlog keeps reading while waiting for writability
	ops.QueueRead(fake.Step{Data: []byte("abcd")})
	ops.QueueWrite(fake.Step{Err: unix.EAGAIN})
	fr.Fire(sessionFd, reactor.EventRead)
	require.Equal(t, 1, poll(t, fr))
	assert.Equal(t, reactor.EventRead|reactor.EventWrite, interest(t, fr, sessionFd))
}

func TestMaxPendingDefault(t *testing.T) {
	s, _, _, _ := newScriptedServer(t, WithReadBufferSize(1024))
	assert.Equal(t, defaultPendingFactor*1024, s.maxPending)
}
