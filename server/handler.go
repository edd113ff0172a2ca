// File: server/handler.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

// Handler turns received bytes into response segments. in is only valid for
// the duration of the call; returned segments are owned by the server until
// they have been sent.
type Handler interface {
	Handle(in []byte) [][]byte
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(in []byte) [][]byte

func (f HandlerFunc) Handle(in []byte) [][]byte { return f(in) }

// Echo returns a Handler that sends every received chunk back unchanged.
func Echo() Handler {
	return HandlerFunc(func(in []byte) [][]byte {
		out := make([]byte, len(in))
		copy(out, in)
		return [][]byte{out}
	})
}
