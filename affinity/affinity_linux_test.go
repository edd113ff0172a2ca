package affinity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-nio/affinity"
)

func firstAllowedCPU(t *testing.T) (int, int) {
	t.Helper()
	var set unix.CPUSet
	require.NoError(t, unix.SchedGetaffinity(0, &set))
	for cpu := 0; cpu < 1024; cpu++ {
		if set.IsSet(cpu) {
			return cpu, set.Count()
		}
	}
	t.Fatal("empty affinity mask")
	return -1, 0
}

func TestPinAndRestore(t *testing.T) {
	cpu, before := firstAllowedCPU(t)

	unpin, err := affinity.Pin(cpu)
	require.NoError(t, err)

	var set unix.CPUSet
	require.NoError(t, unix.SchedGetaffinity(0, &set))
	assert.Equal(t, 1, set.Count())
	assert.True(t, set.IsSet(cpu))

	unpin()
	require.NoError(t, unix.SchedGetaffinity(0, &set))
	assert.Equal(t, before, set.Count())
}

func TestPinRejectsUnknownCPU(t *testing.T) {
	_, err := affinity.Pin(-1)
	assert.Error(t, err)
	_, err = affinity.Pin(1 << 20)
	assert.Error(t, err)
}
