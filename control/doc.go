// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, runtime metrics and debug introspection for hioload-nio.
//
// Provides:
//   - Config loading from flags, NIO_* environment variables and .env files
//   - Prometheus-format counters for accepts, transfers and failures
//   - Named debug probes for pool and session state
package control
