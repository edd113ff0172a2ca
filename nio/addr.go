// File: nio/addr.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package nio

import (
	"net"

	"github.com/samber/oops"

	"github.com/momentics/hioload-nio/api"
)

// ResolveAddr turns a network/address pair into the net.Addr Listen expects.
// Supported networks are tcp, tcp4, tcp6 and unix.
func ResolveAddr(network, address string) (net.Addr, error) {
	switch network {
	case "tcp", "tcp4", "tcp6":
		a, err := net.ResolveTCPAddr(network, address)
		if err != nil {
			return nil, oops.
				Code("INVALID_ADDRESS").
				In("nio").
				With("network", network).
				With("address", address).
				Wrapf(err, "resolve tcp address")
		}
		return a, nil
	case "unix":
		return &net.UnixAddr{Name: address, Net: "unix"}, nil
	default:
		return nil, oops.
			Code("INVALID_ADDRESS").
			In("nio").
			With("network", network).
			Wrapf(api.ErrInvalidArgument, "unsupported network %q", network)
	}
}
