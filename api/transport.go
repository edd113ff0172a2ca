// File: api/transport.go
// Author: momentics <momentics@gmail.com>
//
// Defines the single-call socket primitives the connection core is built on,
// so event loops and tests can substitute their own implementation.

package api

// SocketOps performs exactly one OS call per method and reports the raw
// outcome. Retry and classification belong to the caller.
type SocketOps interface {
	// Read reads into p once.
	Read(fd int, p []byte) (int, error)

	// Readv scatters one read across iovs.
	Readv(fd int, iovs [][]byte) (int, error)

	// Write writes p once.
	Write(fd int, p []byte) (int, error)

	// Writev gathers iovs into one write.
	Writev(fd int, iovs [][]byte) (int, error)

	// Accept takes one pending connection off a listening descriptor.
	Accept(fd int) (int, error)

	// Close releases a descriptor.
	Close(fd int) error
}
