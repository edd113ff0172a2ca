// File: cmd/nioserver/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// nioserver runs the non-blocking connection layer behind an echo server.

package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
