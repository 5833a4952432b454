// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sds011

import (
	"time"

	"go.uber.org/zap"
)

// Config holds the Sensor configuration.
type Config struct {
	// DeviceID is the target of every request (DeviceIDBroadcast for any sensor)
	DeviceID uint16

	// Logger receives exchange diagnostics. Defaults to a no-op logger.
	Logger *zap.Logger

	// Retry controls repetition of failed exchanges. Defaults to NoRetry.
	Retry RetryPolicy

	// ReadTimeout is applied by Begin to transports that support it
	ReadTimeout time.Duration

	sleep func(time.Duration)
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		DeviceID:    DeviceIDBroadcast,
		Logger:      zap.NewNop(),
		Retry:       NoRetry(),
		ReadTimeout: time.Second,
		sleep:       time.Sleep,
	}
}

// Option is a functional option for configuring a Sensor.
type Option func(*Config)

// WithDeviceID addresses a specific sensor instead of broadcasting.
//
// Example:
//
//	sensor := sds011.New(port, sds011.WithDeviceID(0xA160))
func WithDeviceID(id uint16) Option {
	return func(c *Config) {
		c.DeviceID = id
	}
}

// WithLogger sets the logger for exchange diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithRetryPolicy sets the retry policy for failed exchanges.
//
// Example:
//
//	sensor := sds011.New(port,
//	    sds011.WithRetryPolicy(sds011.ExponentialRetry(4, 100*time.Millisecond, time.Second)),
//	)
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(c *Config) {
		c.Retry = policy
	}
}

// WithReadTimeout sets the read timeout applied by Begin.
func WithReadTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.ReadTimeout = timeout
		}
	}
}
