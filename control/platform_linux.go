//go:build linux

// control/platform_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux kernel limits that bound backlog and socket buffer tuning.

package control

import (
	"os"
	"runtime"
	"strconv"
	"strings"
)

// RegisterPlatformProbes exposes CPU count and the kernel caps on listen
// backlog and socket buffers.
func RegisterPlatformProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
	dp.RegisterProbe("platform.somaxconn", func() any {
		return readSysctl("/proc/sys/net/core/somaxconn")
	})
	dp.RegisterProbe("platform.wmem_max", func() any {
		return readSysctl("/proc/sys/net/core/wmem_max")
	})
	dp.RegisterProbe("platform.rmem_max", func() any {
		return readSysctl("/proc/sys/net/core/rmem_max")
	})
}

// readSysctl returns -1 when the value is unavailable.
func readSysctl(path string) int {
	raw, err := os.ReadFile(path)
	if err != nil {
		return -1
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return -1
	}
	return v
}
