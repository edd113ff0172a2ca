// File: nio/ops_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Default single-call socket primitives on x/sys/unix.

package nio

import (
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-nio/api"
)

type unixOps struct{}

func defaultSocketOps() api.SocketOps { return unixOps{} }

func (unixOps) Read(fd int, p []byte) (int, error) { return unix.Read(fd, p) }
func (unixOps) Readv(fd int, iovs [][]byte) (int, error) { return unix.Readv(fd, iovs) }
func (unixOps) Write(fd int, p []byte) (int, error) { return unix.Write(fd, p) }
func (unixOps) Writev(fd int, iovs [][]byte) (int, error) { return unix.Writev(fd, iovs) }
func (unixOps) Close(fd int) error { return unix.Close(fd) }

// Accept leaves the new descriptor in blocking mode; the caller switches it.
func (unixOps) Accept(fd int) (int, error) {
	nfd, _, err := unix.Accept4(fd, unix.SOCK_CLOEXEC)
	return nfd, err
}
