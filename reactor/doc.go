// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides a level-triggered readiness reactor used to drive
// non-blocking nio connections. Only the Linux epoll backend is implemented.
package reactor
