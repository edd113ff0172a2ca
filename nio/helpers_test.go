package nio_test

import (
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/momentics/hioload-nio/nio"
)

const testPoolCapacity = 8

// newModule builds a Module with a pool and a captured logger.
func newModule(t *testing.T, opts ...nio.Option) (*nio.Module, *logtest.Hook) {
	t.Helper()
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.TraceLevel)

	all := append([]nio.Option{nio.WithLogger(logrus.NewEntry(logger))}, opts...)
	m := nio.NewModule(64, all...)
	m.CreatePool(testPoolCapacity)
	t.Cleanup(func() {
		m.DestroyPool()
		m.Teardown()
	})
	return m, hook
}

func countLevel(hook *logtest.Hook, lvl logrus.Level) int {
	n := 0
	for _, e := range hook.AllEntries() {
		if e.Level == lvl {
			n++
		}
	}
	return n
}
