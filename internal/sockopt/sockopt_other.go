//go:build !linux

// File: internal/sockopt/sockopt_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Stub implementation for unsupported platforms.

package sockopt

import "github.com/momentics/hioload-nio/api"

func SetBlocking(int) error { return api.ErrNotSupported }
func SetNonblocking(int) error { return api.ErrNotSupported }
func IsNonblocking(int) (bool, error) { return false, api.ErrNotSupported }
func SetReuseAddr(int) error { return api.ErrNotSupported }
func SetTCPNoDelay(int) error { return api.ErrNotSupported }
func SetKeepalive(int) error { return api.ErrNotSupported }
func SetLinger(int, int) error { return api.ErrNotSupported }
func UnsetLinger(int) error { return api.ErrNotSupported }
func GetLinger(int) (bool, int, error) { return false, 0, api.ErrNotSupported }
func SetSendBuffer(int, int) error { return api.ErrNotSupported }
func SetRecvBuffer(int, int) error { return api.ErrNotSupported }
func GetSendBuffer(int) (int, error) { return 0, api.ErrNotSupported }
func GetRecvBuffer(int) (int, error) { return 0, api.ErrNotSupported }
func GetSocketError(int) error { return api.ErrNotSupported }
func MaximizeSendBuffer(int) {}
