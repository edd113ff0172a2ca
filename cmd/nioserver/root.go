package main

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/momentics/hioload-nio/control"
)

const Version = "0.3.0"

var (
	rootCmd = &cobra.Command{
		Use:   "nioserver",
		Short: "non-blocking connection layer server",
		Long: fmt.Sprintf(`nioserver (v%s)

Listens on a TCP or unix socket and serves connections from a single
epoll event loop. Settings come from flags, NIO_* environment variables
and .env files.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of nioserver",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "nioserver v%s\n", Version)
		},
	}

	cfgViper = viper.New()
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String(control.KeyLogLevel, "info", "log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// initConfig loads .env files and enables NIO_* lookups.
func initConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	control.SetDefaults(cfgViper)
}

// newLogger builds the process logger for the configured level.
func newLogger(level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, err
	}
	logger := logrus.New()
	logger.SetLevel(lvl)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return logger, nil
}
