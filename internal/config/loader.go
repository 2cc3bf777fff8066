package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. HALIN_CONNECTION_HOST.
const EnvPrefix = "HALIN"

// Load reads configuration from configPath (or the default locations when
// empty), applies defaults and HALIN_* environment overrides, and validates.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("halin")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.config/halin")
		v.AddConfigPath("/etc/halin")
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return parseConfig(v)
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("connection.host", d.Connection.Host)
	v.SetDefault("connection.port", d.Connection.Port)
	v.SetDefault("connection.username", d.Connection.Username)
	v.SetDefault("connection.password", "")
	v.SetDefault("connection.database", "")
	v.SetDefault("connection.encrypted", d.Connection.Encrypted)
	v.SetDefault("connection.http_port", d.Connection.HTTPPort)
	v.SetDefault("connection.https_port", d.Connection.HTTPSPort)

	v.SetDefault("diagnostics.probe_timeout", d.Diagnostics.ProbeTimeout.String())

	v.SetDefault("poll.interval", d.Poll.Interval.String())
	v.SetDefault("poll.history_size", d.Poll.HistorySize)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output_path", d.Logging.OutputPath)
	v.SetDefault("logging.time_format", d.Logging.TimeFormat)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout.String())
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout.String())

	v.SetDefault("publish.type", "")
	v.SetDefault("publish.url", "")
	v.SetDefault("publish.subject", d.Publish.Subject)

	v.SetDefault("tracing.enabled", false)
}

func parseConfig(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Connection: ConnectionConfig{
			Host:      "localhost",
			Port:      7687,
			Username:  "neo4j",
			Encrypted: true,
			HTTPPort:  7474,
			HTTPSPort: 7473,
		},
		Diagnostics: DiagnosticsConfig{
			ProbeTimeout: 10 * time.Second,
		},
		Poll: PollConfig{
			Interval:    5 * time.Second,
			HistorySize: 60,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stderr",
			TimeFormat: "RFC3339",
		},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		Publish: PublishConfig{
			Subject: "halin.diagnostics",
		},
	}
}
