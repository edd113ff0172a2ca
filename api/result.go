// Package api
// Author: momentics@gmail.com
//
// Normalized outcome of a single non-blocking transfer call.

package api

import "fmt"

// Status classifies the outcome of one send or receive attempt.
type Status uint8

const (
	// StatusOK means N bytes were transferred. N may be 0 only for a send
	// the OS accepted without moving data.
	StatusOK Status = iota
	// StatusWouldBlock means the descriptor has no data or space right now.
	// It is the steady-state signal under readiness-driven I/O, not a failure.
	StatusWouldBlock
	// StatusEOF means the peer closed its side of the stream (receive only).
	StatusEOF
	// StatusError means an OS-level failure. The connection must be closed.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusWouldBlock:
		return "would-block"
	case StatusEOF:
		return "eof"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Result wraps the byte count and classification of a transfer.
type Result struct {
	N      int
	Status Status
	Err    error // set only when Status == StatusError
}

// OK reports whether the transfer succeeded.
func (r Result) OK() bool { return r.Status == StatusOK }

func (r Result) String() string {
	if r.Err != nil {
		return fmt.Sprintf("%s(%d): %v", r.Status, r.N, r.Err)
	}
	return fmt.Sprintf("%s(%d)", r.Status, r.N)
}
