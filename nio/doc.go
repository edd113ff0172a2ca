// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package nio is the non-blocking connection layer of hioload-nio.
//
// It owns socket-backed Conn entities and their recycling through a bounded
// free-pool, establishes listening and accepted connections, and performs
// scalar and vectored send/receive that fold OS socket outcomes into four
// statuses: OK, WouldBlock, EOF and Error. Interrupted calls are retried
// internally and never surface.
//
// The package does not schedule anything. A readiness-driven caller (see the
// reactor and server packages) invokes Accept, Recv or Send once per ready
// event and treats WouldBlock as "wait for the next event". Each Conn must be
// driven by one flow of control at a time.
//
// All state lives in a Module created by NewModule; there is no package-level
// state.
package nio
