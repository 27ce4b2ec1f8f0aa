// Package config loads node configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/PDXostc/vehicle-signal-distribution/pkg/transport"
)

// TransportKind selects the transport adapter.
type TransportKind string

const (
	TransportMemory TransportKind = "memory"
	TransportTCP    TransportKind = "tcp"
	TransportRedis  TransportKind = "redis"
	TransportNATS   TransportKind = "nats"
)

// Configuration errors.
var (
	ErrInvalidTransport = errors.New("invalid transport kind")
	ErrInvalidLogLevel  = errors.New("invalid log level")
	ErrMissingSetting   = errors.New("missing setting")
)

// Config is the node configuration.
type Config struct {
	// ID is the peer token. Empty selects a random one.
	ID string `yaml:"id"`

	// Catalog is the path to a CSV or YAML signal catalog.
	Catalog string `yaml:"catalog"`

	Transport TransportConfig `yaml:"transport"`
	MDNS      MDNSConfig      `yaml:"mdns"`

	// MetricsAddr serves /metrics when set, for example ":9460".
	MetricsAddr string `yaml:"metrics_addr"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `yaml:"log_level"`

	// ProtocolLog captures wire traffic to a CBOR file when set.
	ProtocolLog string `yaml:"protocol_log"`

	// AutoPublish publishes a signal after every local Set.
	AutoPublish bool `yaml:"auto_publish"`
}

// TransportConfig holds the settings of every transport kind; only the
// section matching Kind is used.
type TransportConfig struct {
	Kind       TransportKind `yaml:"kind"`
	QueueLimit int           `yaml:"queue_limit"`
	TCP        TCPConfig     `yaml:"tcp"`
	Redis      RedisConfig   `yaml:"redis"`
	NATS       NATSConfig    `yaml:"nats"`
}

// TCPConfig configures transport.Node.
type TCPConfig struct {
	Listen string             `yaml:"listen"`
	Peers  []string           `yaml:"peers"`
	TLS    transport.TLSFiles `yaml:"tls"`

	MaxMessageSize   uint32        `yaml:"max_message_size"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	RedialMax        time.Duration `yaml:"redial_max"`
}

// RedisConfig configures redisbus.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// NATSConfig configures natsbus.
type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// MDNSConfig configures discovery.
type MDNSConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Interface string `yaml:"interface"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		LogLevel: "info",
		Transport: TransportConfig{
			Kind: TransportTCP,
			TCP: TCPConfig{
				Listen: ":7460",
			},
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "vsd:",
			},
			NATS: NATSConfig{
				URL:           "nats://127.0.0.1:4222",
				SubjectPrefix: "vsd",
			},
		},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the settings of the selected transport and the log level.
func (c *Config) Validate() error {
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.Transport.Kind {
	case TransportMemory:
	case TransportTCP:
		if c.Transport.TCP.Listen == "" && len(c.Transport.TCP.Peers) == 0 {
			return fmt.Errorf("%w: tcp needs listen or peers", ErrMissingSetting)
		}
	case TransportRedis:
		if c.Transport.Redis.Addr == "" {
			return fmt.Errorf("%w: redis.addr", ErrMissingSetting)
		}
	case TransportNATS:
		if c.Transport.NATS.URL == "" {
			return fmt.Errorf("%w: nats.url", ErrMissingSetting)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidTransport, c.Transport.Kind)
	}
	return nil
}

// ParseLevel maps a level name to slog.Level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, s)
	}
}
