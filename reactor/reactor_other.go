//go:build !linux

// File: reactor/reactor_other.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package reactor

import (
	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-nio/api"
)

// New returns api.ErrNotSupported outside Linux.
func New(_ *logrus.Entry) (Reactor, error) {
	return nil, api.ErrNotSupported
}
