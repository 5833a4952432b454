// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads sdsprobe settings from defaults, an optional YAML
// file, SDSPROBE_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Thermoquad/sdsprobe/pkg/sds011"
)

// EnvPrefix is the prefix of environment overrides (SDSPROBE_SERIAL_PORT, ...)
const EnvPrefix = "SDSPROBE"

// SerialConfig describes the local serial line
type SerialConfig struct {
	Port        string        `mapstructure:"port"`
	Baud        int           `mapstructure:"baud"`
	ReadTimeout time.Duration `mapstructure:"readTimeout"`
}

// WebSocketConfig describes a serial-over-WebSocket bridge
type WebSocketConfig struct {
	URL         string `mapstructure:"url"`
	Username    string `mapstructure:"username"`
	NoSSLVerify bool   `mapstructure:"noSSLVerify"`
}

// SensorConfig selects the addressed sensor
type SensorConfig struct {
	// DeviceID in hex (0xA160) or decimal; empty or "broadcast" for any sensor
	DeviceID string `mapstructure:"deviceId"`
}

// RetryConfig mirrors sds011.RetryPolicy
type RetryConfig struct {
	Attempts   int           `mapstructure:"attempts"`
	Delay      time.Duration `mapstructure:"delay"`
	Multiplier float64       `mapstructure:"multiplier"`
	MaxDelay   time.Duration `mapstructure:"maxDelay"`
}

// LumberjackConfig configures the rotating log file
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge"`
	Compress   bool   `mapstructure:"compress"`
}

// LoggingConfig configures diagnostics output
type LoggingConfig struct {
	Level  string           `mapstructure:"level"`
	Format string           `mapstructure:"format"`
	File   LumberjackConfig `mapstructure:"file"`
}

// MetricsConfig configures the Prometheus endpoint (empty Listen = disabled)
type MetricsConfig struct {
	Listen string `mapstructure:"listen"`
	Path   string `mapstructure:"path"`
}

// MonitorConfig configures periodic polling
type MonitorConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Record   string        `mapstructure:"record"`
}

// Config is the top-level configuration
type Config struct {
	Serial    SerialConfig    `mapstructure:"serial"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Sensor    SensorConfig    `mapstructure:"sensor"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
}

// KeyAnnotation marks a command-local flag with the configuration key it
// overrides. Local flag names are only unique per command, so they are bound
// by annotation instead of through flagKeys.
const KeyAnnotation = "sdsprobe_config_key"

// BindFlag annotates the flag called name in flags with key
func BindFlag(flags *pflag.FlagSet, name, key string) error {
	return flags.SetAnnotation(name, KeyAnnotation, []string{key})
}

// flagKeys maps configuration keys to the global flags overriding them
var flagKeys = map[string]string{
	"serial.port":           "port",
	"serial.baud":           "baud",
	"serial.readTimeout":    "read-timeout",
	"websocket.url":         "url",
	"websocket.username":    "username",
	"websocket.noSSLVerify": "no-ssl-verify",
	"sensor.deviceId":       "device-id",
	"retry.attempts":        "retries",
	"retry.delay":           "retry-delay",
	"logging.level":         "log-level",
	"logging.format":        "log-format",
}

// Load reads the configuration. An empty path falls back to SDSPROBE_CONFIG,
// then to sdsprobe.yaml in the working directory or $HOME/.config/sdsprobe.
// A missing file is not an error. Flags in flags that were set on the command
// line take precedence over every other source.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "sdsprobe"))
		}
		v.SetConfigName("sdsprobe")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for key, name := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}

		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			keys := f.Annotations[KeyAnnotation]
			if len(keys) == 0 || bindErr != nil {
				return
			}
			if err := v.BindPFlag(keys[0], f); err != nil {
				bindErr = fmt.Errorf("bind flag %s: %w", f.Name, err)
			}
		})
		if bindErr != nil {
			return nil, bindErr
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("serial.port", "")
	v.SetDefault("serial.baud", sds011.DefaultBaudRate)
	v.SetDefault("serial.readTimeout", "1s")

	v.SetDefault("websocket.url", "")
	v.SetDefault("websocket.username", "")
	v.SetDefault("websocket.noSSLVerify", false)

	v.SetDefault("sensor.deviceId", "broadcast")

	v.SetDefault("retry.attempts", 1)
	v.SetDefault("retry.delay", "200ms")
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.maxDelay", "2s")

	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file.filename", "")
	v.SetDefault("logging.file.maxSize", 10)
	v.SetDefault("logging.file.maxBackups", 3)
	v.SetDefault("logging.file.maxAge", 28)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("metrics.listen", "")
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("monitor.interval", "5s")
	v.SetDefault("monitor.record", "")
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.Serial.Baud <= 0 {
		return fmt.Errorf("serial.baud must be positive, got %d", c.Serial.Baud)
	}
	if _, err := c.Sensor.ID(); err != nil {
		return err
	}
	if c.Retry.Attempts < 1 {
		return fmt.Errorf("retry.attempts must be at least 1, got %d", c.Retry.Attempts)
	}
	if c.Retry.Delay < 0 || c.Retry.MaxDelay < 0 {
		return fmt.Errorf("retry delays must not be negative")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown logging.level %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("unknown logging.format %q (use console or json)", c.Logging.Format)
	}
	if c.Monitor.Interval <= 0 {
		return fmt.Errorf("monitor.interval must be positive, got %s", c.Monitor.Interval)
	}
	return nil
}

// ID returns the configured device id
func (s SensorConfig) ID() (uint16, error) {
	return ParseDeviceID(s.DeviceID)
}

// ParseDeviceID parses a device id in hex with a 0x prefix (0xA160) or in
// decimal. Empty input and "broadcast" select sds011.DeviceIDBroadcast.
func ParseDeviceID(s string) (uint16, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "broadcast") {
		return sds011.DeviceIDBroadcast, nil
	}
	id, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid device id %q: must be 0-65535 or 0x0000-0xFFFF", s)
	}
	return uint16(id), nil
}

// Policy converts the retry settings to an sds011.RetryPolicy
func (r RetryConfig) Policy() sds011.RetryPolicy {
	return sds011.RetryPolicy{
		Attempts:   r.Attempts,
		Delay:      r.Delay,
		Multiplier: r.Multiplier,
		MaxDelay:   r.MaxDelay,
	}
}
