// File: nio/conn.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package nio

import (
	"fmt"
	"syscall"

	"github.com/momentics/hioload-nio/api"
)

// Conn is one socket endpoint, listening or established.
//
// A Conn owns a valid descriptor exactly when its state is StateOpen or
// StateEOF. Byte counters grow monotonically and are zeroed when the Conn is
// borrowed from the pool.
type Conn struct {
	// Mode is a caller-defined role tag, e.g. client or server.
	Mode uint8
	// Flags is a caller-defined attribute set.
	Flags uint32

	fd        int
	family    int
	recvNbyte uint64
	sendNbyte uint64
	state     api.ConnState
	err       syscall.Errno
}

func newConn() (*Conn, error) {
	c := &Conn{}
	c.reset()
	return c, nil
}

func (c *Conn) reset() {
	*c = Conn{fd: -1}
}

// open binds c to a live descriptor.
func (c *Conn) open(fd, family int) {
	c.fd = fd
	c.family = family
	c.state = api.StateOpen
}

// Fd returns the descriptor, or -1 when the Conn is not bound.
func (c *Conn) Fd() int { return c.fd }

// State returns the lifecycle state.
func (c *Conn) State() api.ConnState { return c.state }

// BytesReceived returns the bytes received since the Conn was borrowed.
func (c *Conn) BytesReceived() uint64 { return c.recvNbyte }

// BytesSent returns the bytes sent since the Conn was borrowed.
func (c *Conn) BytesSent() uint64 { return c.sendNbyte }

// LastError returns the OS error recorded by the last fatal transfer, or 0.
func (c *Conn) LastError() syscall.Errno { return c.err }

func (c *Conn) String() string {
	return fmt.Sprintf("conn(sd=%d state=%s rb=%d sb=%d)", c.fd, c.state, c.recvNbyte, c.sendNbyte)
}
