// File: internal/sockopt/doc.go
// Package sockopt
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Stateless helpers that configure a raw socket descriptor: blocking mode,
// address reuse, Nagle, keepalive, linger and kernel buffer sizes. Every
// helper reports the OS error instead of panicking. Implementations are split
// by build tag; non-Linux platforms get ErrNotSupported.
package sockopt

// MaxSendBuffer is the upper bound probed by MaximizeSendBuffer.
const MaxSendBuffer = 256 << 20
