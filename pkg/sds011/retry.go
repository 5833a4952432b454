// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sds011

import "time"

// RetryPolicy controls how often a failed exchange is repeated. Every attempt
// is a complete request/reply exchange; attempts never overlap.
type RetryPolicy struct {
	// Attempts is the total number of exchanges per operation (minimum 1)
	Attempts int

	// Delay is the pause before the first retry
	Delay time.Duration

	// Multiplier scales the delay after each retry. Values below 1 keep the
	// delay fixed.
	Multiplier float64

	// MaxDelay caps the delay (0 = uncapped)
	MaxDelay time.Duration
}

// NoRetry performs a single exchange per operation
func NoRetry() RetryPolicy {
	return RetryPolicy{Attempts: 1}
}

// FixedRetry performs up to attempts exchanges with a constant delay
func FixedRetry(attempts int, delay time.Duration) RetryPolicy {
	return RetryPolicy{
		Attempts:   attempts,
		Delay:      delay,
		Multiplier: 1,
	}
}

// ExponentialRetry performs up to attempts exchanges, doubling the delay
// after each retry up to maxDelay.
func ExponentialRetry(attempts int, base, maxDelay time.Duration) RetryPolicy {
	return RetryPolicy{
		Attempts:   attempts,
		Delay:      base,
		Multiplier: 2,
		MaxDelay:   maxDelay,
	}
}

// attempts returns the effective number of exchanges
func (r RetryPolicy) attempts() int {
	if r.Attempts < 1 {
		return 1
	}
	return r.Attempts
}

// Backoff returns the pause before the given retry (1 = first retry)
func (r RetryPolicy) Backoff(retry int) time.Duration {
	if retry < 1 || r.Delay <= 0 {
		return 0
	}

	multiplier := r.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}

	delay := float64(r.Delay)
	for i := 1; i < retry; i++ {
		delay *= multiplier
		if r.MaxDelay > 0 && delay >= float64(r.MaxDelay) {
			return r.MaxDelay
		}
	}

	if r.MaxDelay > 0 && time.Duration(delay) > r.MaxDelay {
		return r.MaxDelay
	}
	return time.Duration(delay)
}
