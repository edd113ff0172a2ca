//go:build !linux

// File: nio/nio_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Stub implementation for unsupported platforms.

package nio

import (
	"net"

	"github.com/momentics/hioload-nio/api"
)

type unsupportedOps struct{}

func defaultSocketOps() api.SocketOps { return unsupportedOps{} }

func (unsupportedOps) Read(int, []byte) (int, error) { return 0, api.ErrNotSupported }
func (unsupportedOps) Readv(int, [][]byte) (int, error) { return 0, api.ErrNotSupported }
func (unsupportedOps) Write(int, []byte) (int, error) { return 0, api.ErrNotSupported }
func (unsupportedOps) Writev(int, [][]byte) (int, error) { return 0, api.ErrNotSupported }
func (unsupportedOps) Accept(int) (int, error) { return -1, api.ErrNotSupported }
func (unsupportedOps) Close(int) error { return api.ErrNotSupported }

var unsupported = api.Result{Status: api.StatusError, Err: api.ErrNotSupported}

func (m *Module) Listen(net.Addr) (*Conn, error) { return nil, api.ErrNotSupported }
func (m *Module) Accept(*Conn) (*Conn, error) { return nil, api.ErrNotSupported }
func (m *Module) Adopt(int) (*Conn, error) { return nil, api.ErrNotSupported }
func (m *Module) Recv(*Conn, []byte) api.Result { return unsupported }
func (m *Module) RecvV(*Conn, [][]byte) api.Result { return unsupported }
func (m *Module) Send(*Conn, []byte) api.Result { return unsupported }
func (m *Module) SendV(*Conn, [][]byte) api.Result { return unsupported }
func (c *Conn) LocalAddr() (net.Addr, error) { return nil, api.ErrNotSupported }

// Close returns c to the pool; no descriptor can exist on this platform.
func (m *Module) Close(c *Conn) {
	c.fd = -1
	c.state = api.StateClosed
	m.Return(c)
}
