// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/sdsprobe/pkg/sds011"
)

// isolate keeps Load away from the developer's own configuration
func isolate(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SDSPROBE_CONFIG", "")
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sdsprobe.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, sds011.DefaultBaudRate, cfg.Serial.Baud)
	assert.Equal(t, time.Second, cfg.Serial.ReadTimeout)
	assert.Equal(t, 1, cfg.Retry.Attempts)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, 5*time.Second, cfg.Monitor.Interval)

	id, err := cfg.Sensor.ID()
	require.NoError(t, err)
	assert.Equal(t, uint16(sds011.DeviceIDBroadcast), id)
}

func TestLoad_File(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
serial:
  port: /dev/ttyUSB1
  readTimeout: 500ms
sensor:
  deviceId: "0xA160"
retry:
  attempts: 3
  delay: 50ms
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyUSB1", cfg.Serial.Port)
	assert.Equal(t, 500*time.Millisecond, cfg.Serial.ReadTimeout)
	assert.Equal(t, 3, cfg.Retry.Attempts)
	assert.Equal(t, "json", cfg.Logging.Format)

	id, err := cfg.Sensor.ID()
	require.NoError(t, err)
	assert.Equal(t, uint16(0xA160), id)

	policy := cfg.Retry.Policy()
	assert.Equal(t, 3, policy.Attempts)
	assert.Equal(t, 50*time.Millisecond, policy.Backoff(1))
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "serial:\n  port: /dev/ttyUSB1\n")
	t.Setenv("SDSPROBE_SERIAL_PORT", "/dev/ttyAMA0")
	t.Setenv("SDSPROBE_RETRY_ATTEMPTS", "5")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyAMA0", cfg.Serial.Port)
	assert.Equal(t, 5, cfg.Retry.Attempts)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	isolate(t)
	t.Setenv("SDSPROBE_SERIAL_PORT", "/dev/ttyAMA0")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.StringP("port", "p", "", "")
	flags.String("device-id", "", "")
	require.NoError(t, flags.Parse([]string{"-p", "/dev/ttyUSB2", "--device-id", "42"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB2", cfg.Serial.Port)

	id, err := cfg.Sensor.ID()
	require.NoError(t, err)
	assert.Equal(t, uint16(42), id)
}

func TestLoad_UnsetFlagKeepsDefault(t *testing.T) {
	isolate(t)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("baud", 115200, "")
	require.NoError(t, flags.Parse(nil))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, sds011.DefaultBaudRate, cfg.Serial.Baud)
}

func TestLoad_LocalFlagsNeedAnnotation(t *testing.T) {
	isolate(t)

	// Another command's --interval must not reach monitor.interval
	flags := pflag.NewFlagSet("ping", pflag.ContinueOnError)
	flags.Duration("interval", 100*time.Millisecond, "")
	require.NoError(t, flags.Parse([]string{"--interval", "0s"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Monitor.Interval)
}

func TestLoad_AnnotatedFlag(t *testing.T) {
	isolate(t)

	flags := pflag.NewFlagSet("monitor", pflag.ContinueOnError)
	flags.Duration("interval", 5*time.Second, "")
	flags.String("record", "", "")
	require.NoError(t, BindFlag(flags, "interval", "monitor.interval"))
	require.NoError(t, BindFlag(flags, "record", "monitor.record"))
	require.NoError(t, flags.Parse([]string{"--interval", "50ms", "--record", "pm.cbor"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, 50*time.Millisecond, cfg.Monitor.Interval)
	assert.Equal(t, "pm.cbor", cfg.Monitor.Record)
}

func TestBindFlag_Unknown(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	assert.Error(t, BindFlag(flags, "missing", "monitor.interval"))
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "device id too large", content: "sensor:\n  deviceId: \"0x10000\"\n"},
		{name: "device id garbage", content: "sensor:\n  deviceId: sensor-one\n"},
		{name: "zero attempts", content: "retry:\n  attempts: 0\n"},
		{name: "negative delay", content: "retry:\n  delay: -1s\n"},
		{name: "unknown log level", content: "logging:\n  level: verbose\n"},
		{name: "unknown log format", content: "logging:\n  format: xml\n"},
		{name: "zero baud", content: "serial:\n  baud: 0\n"},
		{name: "zero interval", content: "monitor:\n  interval: 0s\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			_, err := Load(writeConfig(t, tt.content), nil)
			assert.Error(t, err)
		})
	}
}

func TestParseDeviceID(t *testing.T) {
	tests := []struct {
		input    string
		expected uint16
		wantErr  bool
	}{
		{input: "", expected: 0xFFFF},
		{input: "broadcast", expected: 0xFFFF},
		{input: "BROADCAST", expected: 0xFFFF},
		{input: "0xA160", expected: 0xA160},
		{input: "0xa160", expected: 0xA160},
		{input: "41312", expected: 41312},
		{input: " 7 ", expected: 7},
		{input: "65536", wantErr: true},
		{input: "-1", wantErr: true},
		{input: "A160", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDeviceID(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}
