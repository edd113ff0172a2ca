// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error values shared by the pool, the socket core and the server.

package api

import "errors"

// Common errors used across the library.
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrResourceExhausted = errors.New("resource exhausted")
	ErrNotSupported      = errors.New("operation not supported")
	ErrPoolClosed        = errors.New("connection pool is closed")
	ErrServerClosed      = errors.New("server is closed")
)
