package main

import (
	"errors"
	"time"

	"github.com/kelseyhightower/envconfig"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"

	"github.com/23skdu/smellsense/internal/limiter"
)

// envPrefix is prepended to every environment variable name.
const envPrefix = "SMELLSENSE"

// Config is the server configuration, read from SMELLSENSE_* variables
type Config struct {
	ListenAddr  string `envconfig:"LISTEN_ADDR" default:"0.0.0.0:3000"`
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:"0.0.0.0:8080"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:"0.0.0.0:9090"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	KeepAliveTime                time.Duration `envconfig:"KEEPALIVE_TIME" default:"2h"`
	KeepAliveTimeout             time.Duration `envconfig:"KEEPALIVE_TIMEOUT" default:"20s"`
	KeepAliveMinTime             time.Duration `envconfig:"KEEPALIVE_MIN_TIME" default:"5m"`
	KeepAlivePermitWithoutStream bool          `envconfig:"KEEPALIVE_PERMIT_WITHOUT_STREAM" default:"false"`

	GRPCMaxRecvMsgSize       int    `envconfig:"GRPC_MAX_RECV_MSG_SIZE" default:"4194304"`
	GRPCMaxSendMsgSize       int    `envconfig:"GRPC_MAX_SEND_MSG_SIZE" default:"4194304"`
	GRPCMaxConcurrentStreams uint32 `envconfig:"GRPC_MAX_CONCURRENT_STREAMS" default:"250"`

	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	// Rate limiting shared by the gRPC and HTTP listeners
	limiter.Config
}

// Config validation errors
var (
	ErrInvalidListenAddr      = errors.New("listen_addr cannot be empty")
	ErrInvalidHTTPAddr        = errors.New("http_addr cannot be empty")
	ErrInvalidMetricsAddr     = errors.New("metrics_addr cannot be empty")
	ErrInvalidLogFormat       = errors.New("log_format must be 'json' or 'console'")
	ErrInvalidLogLevel        = errors.New("log_level must be debug, info, warn, or error")
	ErrInvalidKeepAliveTime   = errors.New("keepalive_time must be positive")
	ErrInvalidShutdownTimeout = errors.New("shutdown_timeout must be positive")
	ErrInvalidRateLimit       = errors.New("rate_limit_rps and rate_limit_burst cannot be negative")
	ErrInvalidStreamLimit     = errors.New("grpc_max_concurrent_streams must be positive")
	ErrInvalidMessageSize     = errors.New("grpc_max_recv_msg_size and grpc_max_send_msg_size must be positive")
)

// LoadConfig reads the configuration from the environment and validates it
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return cfg, err
	}
	return cfg, ValidateConfig(&cfg)
}

// ValidateConfig validates the configuration and returns an error if invalid
func ValidateConfig(cfg *Config) error {
	if cfg.ListenAddr == "" {
		return ErrInvalidListenAddr
	}
	if cfg.HTTPAddr == "" {
		return ErrInvalidHTTPAddr
	}
	if cfg.MetricsAddr == "" {
		return ErrInvalidMetricsAddr
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return ErrInvalidLogFormat
	}
	if cfg.LogLevel != "debug" && cfg.LogLevel != "info" && cfg.LogLevel != "warn" && cfg.LogLevel != "error" {
		return ErrInvalidLogLevel
	}
	if cfg.KeepAliveTime <= 0 {
		return ErrInvalidKeepAliveTime
	}
	if cfg.ShutdownTimeout <= 0 {
		return ErrInvalidShutdownTimeout
	}
	if cfg.RPS < 0 || cfg.Burst < 0 {
		return ErrInvalidRateLimit
	}
	if cfg.GRPCMaxConcurrentStreams == 0 {
		return ErrInvalidStreamLimit
	}
	if cfg.GRPCMaxRecvMsgSize <= 0 || cfg.GRPCMaxSendMsgSize <= 0 {
		return ErrInvalidMessageSize
	}
	return nil
}

// ServerOptions maps the keepalive and message limits onto the Flight
// listener. Interceptors are added by the caller.
func (c *Config) ServerOptions() []grpc.ServerOption {
	return []grpc.ServerOption{
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    c.KeepAliveTime,
			Timeout: c.KeepAliveTimeout,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             c.KeepAliveMinTime,
			PermitWithoutStream: c.KeepAlivePermitWithoutStream,
		}),
		grpc.MaxConcurrentStreams(c.GRPCMaxConcurrentStreams),
		grpc.MaxRecvMsgSize(c.GRPCMaxRecvMsgSize),
		grpc.MaxSendMsgSize(c.GRPCMaxSendMsgSize),
	}
}

// DefaultConfig returns a Config with default values
func DefaultConfig() Config {
	return Config{
		ListenAddr:                   "0.0.0.0:3000",
		HTTPAddr:                     "0.0.0.0:8080",
		MetricsAddr:                  "0.0.0.0:9090",
		LogFormat:                    "json",
		LogLevel:                     "info",
		KeepAliveTime:                2 * time.Hour,
		KeepAliveTimeout:             20 * time.Second,
		KeepAliveMinTime:             5 * time.Minute,
		KeepAlivePermitWithoutStream: false,
		GRPCMaxRecvMsgSize:           4 << 20,
		GRPCMaxSendMsgSize:           4 << 20,
		GRPCMaxConcurrentStreams:     250,
		ShutdownTimeout:              10 * time.Second,
	}
}
