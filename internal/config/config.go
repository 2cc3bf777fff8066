package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	Connection  ConnectionConfig  `mapstructure:"connection"`
	Diagnostics DiagnosticsConfig `mapstructure:"diagnostics"`
	Poll        PollConfig        `mapstructure:"poll"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Server      ServerConfig      `mapstructure:"server"`
	Publish     PublishConfig     `mapstructure:"publish"`
	Tracing     TracingConfig     `mapstructure:"tracing"`
}

// ConnectionConfig holds the bootstrap parameters for the seed member.
type ConnectionConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	Database  string `mapstructure:"database"` // empty means the server default
	Encrypted bool   `mapstructure:"encrypted"`

	// Advertised for a single instance, which has no overview to list them; 0 omits.
	HTTPPort  int `mapstructure:"http_port"`
	HTTPSPort int `mapstructure:"https_port"`
}

// Address returns the seed's bolt URI.
func (c ConnectionConfig) Address() string {
	return "bolt://" + net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// SeedAddresses lists every URI the seed is known to serve: bolt first, then
// http and https when their ports are set.
func (c ConnectionConfig) SeedAddresses() []string {
	out := []string{c.Address()}
	if c.HTTPPort > 0 {
		out = append(out, "http://"+net.JoinHostPort(c.Host, strconv.Itoa(c.HTTPPort)))
	}
	if c.HTTPSPort > 0 {
		out = append(out, "https://"+net.JoinHostPort(c.Host, strconv.Itoa(c.HTTPSPort)))
	}
	return out
}

// DiagnosticsConfig tunes the diagnostics fan-out.
type DiagnosticsConfig struct {
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"` // per remote call
}

// PollConfig tunes the observation poller.
type PollConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	HistorySize int           `mapstructure:"history_size"` // observations kept per member
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, file path
	TimeFormat string `mapstructure:"time_format"` // RFC3339, Unix, Kitchen
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// PublishConfig selects where diagnostics packages are shipped.
type PublishConfig struct {
	Type     string `mapstructure:"type"` // nats, redis, kafka, memory; empty disables
	URL      string `mapstructure:"url"`
	Subject  string `mapstructure:"subject"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`

	RedisDB      int      `mapstructure:"redis_db"`
	KafkaBrokers []string `mapstructure:"kafka_brokers"`
}

// TracingConfig toggles OpenTelemetry spans.
type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Connection.Validate(); err != nil {
		return fmt.Errorf("connection config: %w", err)
	}
	if err := c.Diagnostics.Validate(); err != nil {
		return fmt.Errorf("diagnostics config: %w", err)
	}
	if err := c.Poll.Validate(); err != nil {
		return fmt.Errorf("poll config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	if err := c.Publish.Validate(); err != nil {
		return fmt.Errorf("publish config: %w", err)
	}
	return nil
}

func (c *ConnectionConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	for name, p := range map[string]int{"http_port": c.HTTPPort, "https_port": c.HTTPSPort} {
		if p < 0 || p > 65535 {
			return fmt.Errorf("%s must be between 0 and 65535, got %d", name, p)
		}
	}
	return nil
}

func (c *DiagnosticsConfig) Validate() error {
	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("probe_timeout must be positive")
	}
	return nil
}

func (c *PollConfig) Validate() error {
	if c.Interval < time.Second {
		return fmt.Errorf("interval must be at least 1s, got %s", c.Interval)
	}
	if c.HistorySize < 0 {
		return fmt.Errorf("history_size must not be negative")
	}
	return nil
}

func (c *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	if c.Format != "json" && c.Format != "console" {
		return fmt.Errorf("logging.format must be 'json' or 'console'")
	}
	return nil
}

func (c *PublishConfig) Validate() error {
	switch c.Type {
	case "", "memory":
		return nil
	case "nats", "redis":
		if c.URL == "" {
			return fmt.Errorf("url is required for %s", c.Type)
		}
	case "kafka":
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("kafka_brokers is required for kafka")
		}
	default:
		return fmt.Errorf("unsupported publish type: %s (supported: nats, redis, kafka, memory)", c.Type)
	}
	return nil
}
