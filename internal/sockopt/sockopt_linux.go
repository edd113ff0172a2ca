// File: internal/sockopt/sockopt_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package sockopt

import (
	"os"

	"golang.org/x/sys/unix"
)

// SetBlocking clears O_NONBLOCK on fd.
func SetBlocking(fd int) error {
	return setFlag(fd, false)
}

// SetNonblocking sets O_NONBLOCK on fd.
func SetNonblocking(fd int) error {
	return setFlag(fd, true)
}

func setFlag(fd int, nonblock bool) error {
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
	if err != nil {
		return os.NewSyscallError("fcntl", err)
	}
	if nonblock {
		flags |= unix.O_NONBLOCK
	} else {
		flags &^= unix.O_NONBLOCK
	}
	if _, err := unix.FcntlInt(uintptr(fd), unix.F_SETFL, flags); err != nil {
		return os.NewSyscallError("fcntl", err)
	}
	return nil
}

// IsNonblocking reports whether O_NONBLOCK is set on fd.
func IsNonblocking(fd int) (bool, error) {
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
	if err != nil {
		return false, os.NewSyscallError("fcntl", err)
	}
	return flags&unix.O_NONBLOCK != 0, nil
}

// SetReuseAddr enables SO_REUSEADDR.
func SetReuseAddr(fd int) error {
	return setInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
}

// SetTCPNoDelay disables Nagle's algorithm. Small writes go out immediately,
// so callers should batch with vectored sends.
func SetTCPNoDelay(fd int) error {
	return setInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
}

// SetKeepalive enables SO_KEEPALIVE.
func SetKeepalive(fd int) error {
	return setInt(fd, unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1)
}

// SetLinger makes close block for up to timeout seconds while unsent data drains.
func SetLinger(fd int, timeout int) error {
	l := unix.Linger{Onoff: 1, Linger: int32(timeout)}
	return os.NewSyscallError("setsockopt", unix.SetsockoptLinger(fd, unix.SOL_SOCKET, unix.SO_LINGER, &l))
}

// UnsetLinger restores the default non-lingering close.
func UnsetLinger(fd int) error {
	l := unix.Linger{}
	return os.NewSyscallError("setsockopt", unix.SetsockoptLinger(fd, unix.SOL_SOCKET, unix.SO_LINGER, &l))
}

// GetLinger returns whether linger is enabled and its timeout in seconds.
func GetLinger(fd int) (bool, int, error) {
	l, err := unix.GetsockoptLinger(fd, unix.SOL_SOCKET, unix.SO_LINGER)
	if err != nil {
		return false, 0, os.NewSyscallError("getsockopt", err)
	}
	return l.Onoff != 0, int(l.Linger), nil
}

// SetSendBuffer requests an SO_SNDBUF of size bytes. The kernel may clamp it.
func SetSendBuffer(fd int, size int) error {
	return setInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF, size)
}

// SetRecvBuffer requests an SO_RCVBUF of size bytes. The kernel may clamp it.
func SetRecvBuffer(fd int, size int) error {
	return setInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, size)
}

// GetSendBuffer returns the current SO_SNDBUF.
func GetSendBuffer(fd int) (int, error) {
	return getInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF)
}

// GetRecvBuffer returns the current SO_RCVBUF.
func GetRecvBuffer(fd int) (int, error) {
	return getInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF)
}

// GetSocketError fetches and clears the pending SO_ERROR, typically the
// outcome of a non-blocking connect. A nil result means no pending error.
func GetSocketError(fd int) error {
	v, err := getInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return err
	}
	if v != 0 {
		return unix.Errno(v)
	}
	return nil
}

// MaximizeSendBuffer binary-searches the largest SO_SNDBUF the OS accepts,
// starting from the current size. Each probe applies its candidate, so the
// last successful probe, which is also the largest, is what remains set.
// Rejected probes are expected and ignored.
func MaximizeSendBuffer(fd int) {
	lo, err := GetSendBuffer(fd)
	if err != nil {
		return
	}
	hi := MaxSendBuffer

	for lo <= hi {
		mid := lo + (hi-lo)/2
		if err := SetSendBuffer(fd, mid); err != nil {
			hi = mid - 1
		} else {
			lo = mid + 1
		}
	}
}

func setInt(fd, level, opt, value int) error {
	return os.NewSyscallError("setsockopt", unix.SetsockoptInt(fd, level, opt, value))
}

func getInt(fd, level, opt int) (int, error) {
	v, err := unix.GetsockoptInt(fd, level, opt)
	if err != nil {
		return 0, os.NewSyscallError("getsockopt", err)
	}
	return v, nil
}
