//go:build !linux

// File: affinity/affinity_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package affinity

import "github.com/momentics/hioload-nio/api"

func setAffinityPlatform(int) (func(), error) {
	return nil, api.ErrNotSupported
}
