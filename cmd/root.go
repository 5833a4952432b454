// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Thermoquad/sdsprobe/internal/config"
	"github.com/Thermoquad/sdsprobe/internal/logging"
	"github.com/Thermoquad/sdsprobe/pkg/sds011"
)

var (
	cfgFile string

	// Loaded by the root command before any subcommand runs
	cfg    *config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "sdsprobe",
	Short: "SDS011 particulate sensor tool",
	Long: `sdsprobe - A CLI tool for querying, configuring and monitoring SDS011
laser particulate-matter sensors.

Commands that talk to the sensor use its query/reply protocol; sniff and
packet_test passively decode whatever the sensor sends in active reporting mode.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 9600]
  WebSocket: --url ws://host/path [--username user]

For WebSocket authentication, the password is read from the SDSPROBE_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.

Every flag can also be set in sdsprobe.yaml or through SDSPROBE_* environment
variables (for example SDSPROBE_SERIAL_PORT).`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (default ./sdsprobe.yaml or ~/.config/sdsprobe/sdsprobe.yaml)")

	// Serial connection flags
	flags.StringP("port", "p", "", "Serial port device")
	flags.IntP("baud", "b", sds011.DefaultBaudRate, "Baud rate (serial only)")
	flags.Duration("read-timeout", time.Second, "How long to wait for a sensor reply")

	// WebSocket connection flags
	flags.StringP("url", "u", "", "WebSocket URL (ws:// or wss://)")
	flags.String("username", "", "Username for HTTP Basic auth")
	flags.Bool("no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// Sensor flags
	flags.String("device-id", "broadcast", "Sensor id to address (hex 0xA160, decimal, or broadcast)")
	flags.Int("retries", 1, "Attempts per sensor operation (1 = no retry)")
	flags.Duration("retry-delay", 200*time.Millisecond, "Delay before the first retry; doubles on each further retry")

	// Diagnostics
	flags.String("log-level", "warn", "Log level (debug, info, warn, error)")
	flags.String("log-format", "console", "Log format (console or json)")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// ExitCode returns the process exit status for an error returned by Execute
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var e *exitError
	if errors.As(err, &e) {
		return e.code
	}
	return 1
}

// exitError carries an exit status for scripts (1 = no or invalid reply,
// 2 = connection error)
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func withExitCode(code int, err error) error {
	return &exitError{code: code, err: err}
}

func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	l, err := logging.New(c.Logging)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}

	cfg = c
	logger = l
	return nil
}

// newSensor wraps t in a Sensor configured from cfg and runs Begin
func newSensor(t sds011.Transport) (*sds011.Sensor, error) {
	id, err := cfg.Sensor.ID()
	if err != nil {
		return nil, err
	}

	sensor := sds011.New(t,
		sds011.WithDeviceID(id),
		sds011.WithLogger(logger.Named("sds011")),
		sds011.WithRetryPolicy(cfg.Retry.Policy()),
		sds011.WithReadTimeout(cfg.Serial.ReadTimeout),
	)
	if err := sensor.Begin(); err != nil {
		return nil, fmt.Errorf("prepare transport: %w", err)
	}
	return sensor, nil
}

// openSensor opens the configured connection and attaches a Sensor to it.
// Errors carry exit code 2.
func openSensor() (*sds011.Sensor, Connection, string, error) {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return nil, nil, "", withExitCode(2, err)
	}

	sensor, err := newSensor(conn)
	if err != nil {
		conn.Close()
		return nil, nil, "", withExitCode(2, err)
	}
	return sensor, conn, connInfo, nil
}

// formatDeviceID renders a device id the way the sensor label prints it
func formatDeviceID(id uint16) string {
	if id == sds011.DeviceIDBroadcast {
		return "FFFF (broadcast)"
	}
	return fmt.Sprintf("%04X", id)
}
