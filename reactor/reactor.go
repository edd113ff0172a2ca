// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral event reactor interface.

package reactor

// EventType is a bitmask of readiness conditions.
type EventType uint8

const (
	EventRead EventType = 1 << iota
	EventWrite
	EventError
)

// Callback is invoked from Poll for every ready descriptor.
type Callback func(fd int, events EventType)

// Reactor multiplexes readiness notifications for a set of descriptors.
// All methods except Poll may be called from a callback.
type Reactor interface {
	// Register starts watching fd for events and binds cb to it.
	Register(fd int, events EventType, cb Callback) error

	// Modify replaces the interest set of a registered fd.
	Modify(fd int, events EventType) error

	// Unregister stops watching fd. The descriptor itself is left open.
	Unregister(fd int) error

	// Poll waits up to timeoutMs (negative blocks) and dispatches ready
	// callbacks. It returns the number of callbacks run. A signal
	// interruption is reported as zero events, not as an error.
	Poll(timeoutMs int) (int, error)

	// Len reports the number of registered descriptors.
	Len() int

	// Close releases the backend. Registered descriptors stay open.
	Close() error
}

func (e EventType) String() string {
	if e == 0 {
		return "none"
	}
	s := ""
	add := func(name string) {
		if s != "" {
			s += "|"
		}
		s += name
	}
	if e&EventRead != 0 {
		add("read")
	}
	if e&EventWrite != 0 {
		add("write")
	}
	if e&EventError != 0 {
		add("error")
	}
	return s
}
