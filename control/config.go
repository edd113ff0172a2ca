// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Server and connection-layer configuration, loaded from flags, environment
// and .env files through viper.

package control

import (
	"strings"

	"github.com/samber/oops"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Configuration keys shared by flags, environment variables and viper.
const (
	KeyNetwork            = "network"
	KeyEndpoint           = "endpoint"
	KeyBacklog            = "backlog"
	KeyPoolCapacity       = "pool-capacity"
	KeyMaxLive            = "max-live"
	KeyReadBufferSize     = "read-buffer-size"
	KeyKeepAlive          = "keepalive"
	KeyLinger             = "linger"
	KeySendBuffer         = "send-buffer"
	KeyRecvBuffer         = "recv-buffer"
	KeyMaximizeSendBuffer = "maximize-send-buffer"
	KeyLogLevel           = "log-level"
	KeyMetricsAddr        = "metrics-addr"
	KeyCPU                = "cpu"
)

// EnvPrefix is prepended to every environment variable, e.g. NIO_BACKLOG.
const EnvPrefix = "nio"

// Config holds everything needed to stand up a listening server.
type Config struct {
	Network  string // tcp, tcp4, tcp6 or unix
	Endpoint string

	Backlog      int
	PoolCapacity uint32
	MaxLive      int // 0 means unlimited live connections

	ReadBufferSize int

	// Options applied to every accepted connection.
	KeepAlive          bool
	Linger             int // seconds; negative leaves linger untouched
	SendBuffer         int // 0 keeps the OS default
	RecvBuffer         int
	MaximizeSendBuffer bool

	LogLevel    string
	MetricsAddr string // empty disables the /metrics endpoint
	CPU         int    // event loop CPU; negative leaves it unpinned
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Network:        "tcp",
		Endpoint:       "0.0.0.0:22122",
		Backlog:        1024,
		PoolCapacity:   1024,
		ReadBufferSize: 16 << 10,
		Linger:         -1,
		LogLevel:       "info",
		CPU:            -1,
	}
}

// SetDefaults registers DefaultConfig with v and enables NIO_* environment lookup.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault(KeyNetwork, d.Network)
	v.SetDefault(KeyEndpoint, d.Endpoint)
	v.SetDefault(KeyBacklog, d.Backlog)
	v.SetDefault(KeyPoolCapacity, d.PoolCapacity)
	v.SetDefault(KeyMaxLive, d.MaxLive)
	v.SetDefault(KeyReadBufferSize, d.ReadBufferSize)
	v.SetDefault(KeyKeepAlive, d.KeepAlive)
	v.SetDefault(KeyLinger, d.Linger)
	v.SetDefault(KeySendBuffer, d.SendBuffer)
	v.SetDefault(KeyRecvBuffer, d.RecvBuffer)
	v.SetDefault(KeyMaximizeSendBuffer, d.MaximizeSendBuffer)
	v.SetDefault(KeyLogLevel, d.LogLevel)
	v.SetDefault(KeyMetricsAddr, d.MetricsAddr)
	v.SetDefault(KeyCPU, d.CPU)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

// LoadConfig reads a Config out of v and validates it.
func LoadConfig(v *viper.Viper) (Config, error) {
	cfg := Config{
		Network:            v.GetString(KeyNetwork),
		Endpoint:           v.GetString(KeyEndpoint),
		Backlog:            v.GetInt(KeyBacklog),
		PoolCapacity:       v.GetUint32(KeyPoolCapacity),
		MaxLive:            v.GetInt(KeyMaxLive),
		ReadBufferSize:     v.GetInt(KeyReadBufferSize),
		KeepAlive:          v.GetBool(KeyKeepAlive),
		Linger:             v.GetInt(KeyLinger),
		SendBuffer:         v.GetInt(KeySendBuffer),
		RecvBuffer:         v.GetInt(KeyRecvBuffer),
		MaximizeSendBuffer: v.GetBool(KeyMaximizeSendBuffer),
		LogLevel:           v.GetString(KeyLogLevel),
		MetricsAddr:        v.GetString(KeyMetricsAddr),
		CPU:                v.GetInt(KeyCPU),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the connection layer cannot honour.
func (c Config) Validate() error {
	invalid := oops.Code("INVALID_CONFIG").In("control")

	switch c.Network {
	case "tcp", "tcp4", "tcp6", "unix":
	default:
		return invalid.With("network", c.Network).Errorf("unsupported network %q", c.Network)
	}
	if c.Endpoint == "" {
		return invalid.Errorf("endpoint is required")
	}
	if c.Backlog <= 0 {
		return invalid.With("backlog", c.Backlog).Errorf("backlog must be positive")
	}
	if c.MaxLive < 0 {
		return invalid.With("max_live", c.MaxLive).Errorf("max-live must not be negative")
	}
	if c.ReadBufferSize <= 0 {
		return invalid.With("read_buffer_size", c.ReadBufferSize).Errorf("read buffer size must be positive")
	}
	if c.SendBuffer < 0 || c.RecvBuffer < 0 {
		return invalid.
			With("send_buffer", c.SendBuffer).
			With("recv_buffer", c.RecvBuffer).
			Errorf("socket buffer sizes must not be negative")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (logrus.Level, error) {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return 0, oops.
			Code("INVALID_CONFIG").
			In("control").
			With("log_level", c.LogLevel).
			Wrapf(err, "invalid log level")
	}
	return lvl, nil
}
