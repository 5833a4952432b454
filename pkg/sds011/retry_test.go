// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sds011

import (
	"testing"
	"time"
)

func TestRetryPolicy_Backoff(t *testing.T) {
	tests := []struct {
		name     string
		policy   RetryPolicy
		expected []time.Duration // retries 1..n
	}{
		{
			name:     "no retry",
			policy:   NoRetry(),
			expected: []time.Duration{0, 0},
		},
		{
			name:     "fixed",
			policy:   FixedRetry(4, 50*time.Millisecond),
			expected: []time.Duration{50 * time.Millisecond, 50 * time.Millisecond, 50 * time.Millisecond},
		},
		{
			name:   "exponential capped",
			policy: ExponentialRetry(6, 100*time.Millisecond, time.Second),
			expected: []time.Duration{
				100 * time.Millisecond,
				200 * time.Millisecond,
				400 * time.Millisecond,
				800 * time.Millisecond,
				time.Second,
			},
		},
		{
			name:     "exponential uncapped",
			policy:   ExponentialRetry(4, time.Second, 0),
			expected: []time.Duration{time.Second, 2 * time.Second, 4 * time.Second},
		},
		{
			name:     "multiplier below one is fixed",
			policy:   RetryPolicy{Attempts: 3, Delay: time.Second, Multiplier: 0.5},
			expected: []time.Duration{time.Second, time.Second},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i, want := range tt.expected {
				if got := tt.policy.Backoff(i + 1); got != want {
					t.Errorf("retry %d: expected %v, got %v", i+1, want, got)
				}
			}
		})
	}
}

func TestRetryPolicy_Attempts(t *testing.T) {
	tests := []struct {
		policy   RetryPolicy
		expected int
	}{
		{RetryPolicy{}, 1},
		{RetryPolicy{Attempts: -3}, 1},
		{NoRetry(), 1},
		{FixedRetry(5, time.Second), 5},
	}

	for _, tt := range tests {
		if got := tt.policy.attempts(); got != tt.expected {
			t.Errorf("%+v: expected %d attempts, got %d", tt.policy, tt.expected, got)
		}
	}

	if NoRetry().Backoff(0) != 0 {
		t.Error("backoff before the first retry should be zero")
	}
}
