// Package config loads goredisd's server configuration from flags,
// environment variables, and an optional config file, in that
// precedence, using viper the way gofast-server's config layer does.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds every tunable the server reads at startup.
type Config struct {
	Addr         string `mapstructure:"addr"`
	SnapshotPath string `mapstructure:"snapshot_path"`
	LogLevel     string `mapstructure:"log_level"`
	LogFormat    string `mapstructure:"log_format"`
	MetricsAddr  string `mapstructure:"metrics_addr"`
}

// Default returns the Config used when no flag, environment variable,
// or config file overrides a setting.
func Default() *Config {
	return &Config{
		Addr:         "127.0.0.1:6379",
		SnapshotPath: "./REDIS.rdb",
		LogLevel:     "info",
		LogFormat:    "text",
		MetricsAddr:  "127.0.0.1:9121",
	}
}

// Load builds a Config from flags (already parsed into fs), the
// GOREDISD_-prefixed environment, and an optional goredisd.yaml config
// file on the current path or in /etc/goredisd/.
func Load(fs *pflag.FlagSet) (*Config, error) {
	def := Default()

	v := viper.New()
	v.SetConfigName("goredisd")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/goredisd/")

	v.SetEnvPrefix("GOREDISD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("addr", def.Addr)
	v.SetDefault("snapshot_path", def.SnapshotPath)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("log_format", def.LogFormat)
	v.SetDefault("metrics_addr", def.MetricsAddr)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	// Explicit flags take precedence over file/env/defaults. Bound
	// individually (rather than via viper.BindPFlags) since these
	// flags default to "", which would otherwise outrank viper's own
	// defaults in its precedence order.
	applyFlagOverride(fs, "addr", &cfg.Addr)
	applyFlagOverride(fs, "snapshot-path", &cfg.SnapshotPath)
	applyFlagOverride(fs, "log-level", &cfg.LogLevel)
	applyFlagOverride(fs, "log-format", &cfg.LogFormat)
	applyFlagOverride(fs, "metrics-addr", &cfg.MetricsAddr)

	return cfg, nil
}

func applyFlagOverride(fs *pflag.FlagSet, name string, dest *string) {
	if fs == nil {
		return
	}
	if f := fs.Lookup(name); f != nil && f.Changed {
		*dest = f.Value.String()
	}
}

// Validate rejects a Config with an unrecognized log level.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "trace", "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("config: invalid log_level %q", c.LogLevel)
	}
	return nil
}
