// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Shared API-level type declarations and constants.

package api

// ConnState enumerates the lifecycle of a socket-backed connection.
type ConnState uint8

const (
	StateUninitialized ConnState = iota
	StateOpen
	StateEOF
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateEOF:
		return "eof"
	case StateClosed:
		return "closed"
	default:
		return "uninitialized"
	}
}

// HasDescriptor reports whether a connection in this state owns a live descriptor.
func (s ConnState) HasDescriptor() bool {
	return s == StateOpen || s == StateEOF
}
