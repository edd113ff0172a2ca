package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/momentics/hioload-nio/control"
	"github.com/momentics/hioload-nio/nio"
	"github.com/momentics/hioload-nio/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the echo server",
	Long: `Start the echo server. Every flag can also be set through an environment
variable NIO_<FLAG> with dashes replaced by underscores (e.g. NIO_POOL_CAPACITY=4096).`,
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return cfgViper.BindPFlags(cmd.Flags())
	},
	RunE: runServe,
}

func init() {
	d := control.DefaultConfig()
	f := serveCmd.Flags()
	f.String(control.KeyNetwork, d.Network, "tcp, tcp4, tcp6 or unix")
	f.String(control.KeyEndpoint, d.Endpoint, "address or socket path to listen on")
	f.Int(control.KeyBacklog, d.Backlog, "listen backlog")
	f.Uint32(control.KeyPoolCapacity, d.PoolCapacity, "connections kept in the free-pool")
	f.Int(control.KeyMaxLive, d.MaxLive, "maximum live connections, 0 for unlimited")
	f.Int(control.KeyReadBufferSize, d.ReadBufferSize, "receive buffer size in bytes")
	f.Bool(control.KeyKeepAlive, d.KeepAlive, "enable SO_KEEPALIVE on accepted connections")
	f.Int(control.KeyLinger, d.Linger, "SO_LINGER timeout in seconds, negative to leave unset")
	f.Int(control.KeySendBuffer, d.SendBuffer, "SO_SNDBUF for accepted connections, 0 for OS default")
	f.Int(control.KeyRecvBuffer, d.RecvBuffer, "SO_RCVBUF for accepted connections, 0 for OS default")
	f.Bool(control.KeyMaximizeSendBuffer, d.MaximizeSendBuffer, "grow SO_SNDBUF as far as the kernel allows")
	f.String(control.KeyMetricsAddr, d.MetricsAddr, "address for /metrics and /debug/probes, empty to disable")
	f.Int(control.KeyCPU, d.CPU, "pin the event loop to this CPU, negative to leave unpinned")
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := cfgViper.BindPFlags(cmd.Root().PersistentFlags()); err != nil {
		return err
	}
	cfg, err := control.LoadConfig(cfgViper)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	log := logrus.NewEntry(logger)

	metrics := control.NewMetrics("nio")
	mod := nio.NewModule(cfg.Backlog,
		nio.WithLogger(log),
		nio.WithMetrics(metrics),
		nio.WithMaxLive(cfg.MaxLive),
		nio.WithAcceptTuning(nio.AcceptTuning{
			KeepAlive:          cfg.KeepAlive,
			Linger:             cfg.Linger >= 0,
			LingerTimeout:      max(cfg.Linger, 0),
			SendBuffer:         cfg.SendBuffer,
			RecvBuffer:         cfg.RecvBuffer,
			MaximizeSendBuffer: cfg.MaximizeSendBuffer,
		}),
	)
	defer mod.Teardown()
	mod.CreatePool(cfg.PoolCapacity)
	defer mod.DestroyPool()

	srv, err := server.New(mod,
		server.WithReadBufferSize(cfg.ReadBufferSize),
		server.WithCPU(cfg.CPU),
	)
	if err != nil {
		return err
	}
	control.RegisterPlatformProbes(srv.Probes())

	addr, err := nio.ResolveAddr(cfg.Network, cfg.Endpoint)
	if err != nil {
		srv.Close()
		return err
	}
	if err := srv.Listen(addr); err != nil {
		srv.Close()
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		hs := newAdminServer(cfg.MetricsAddr, metrics, srv.Probes())
		go func() {
			if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("admin endpoint failed")
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = hs.Shutdown(sctx)
		}()
		log.WithField("addr", cfg.MetricsAddr).Info("admin endpoint listening")
	}

	return srv.Run(ctx)
}

// newAdminServer serves Prometheus metrics and a JSON dump of debug probes.
func newAdminServer(addr string, metrics *control.Metrics, probes *control.DebugProbes) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		metrics.WritePrometheus(w)
	})
	mux.HandleFunc("/debug/probes", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(probes.DumpState())
	})
	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}
