package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-nio/internal/sockopt"
)

var sndbufCmd = &cobra.Command{
	Use:   "sndbuf",
	Short: "Report how far SO_SNDBUF can be raised on this host",
	RunE: func(cmd *cobra.Command, _ []string) error {
		sd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
		if err != nil {
			return err
		}
		defer unix.Close(sd)

		before, err := sockopt.GetSendBuffer(sd)
		if err != nil {
			return err
		}
		sockopt.MaximizeSendBuffer(sd)
		after, err := sockopt.GetSendBuffer(sd)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "sndbuf: %d -> %d bytes (ceiling %d)\n", before, after, sockopt.MaxSendBuffer)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sndbufCmd)
}
