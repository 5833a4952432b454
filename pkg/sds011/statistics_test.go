// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sds011

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		err      error
		expected Outcome
	}{
		{nil, OutcomeOK},
		{fmt.Errorf("%w: read 3 of 10 bytes", ErrShortFrame), OutcomeShortFrame},
		{fmt.Errorf("%w: tail", ErrFraming), OutcomeFraming},
		{fmt.Errorf("%w: 0x00", ErrChecksum), OutcomeChecksum},
		{fmt.Errorf("%w: sub-command", ErrUnexpectedReply), OutcomeMismatch},
		{fmt.Errorf("%w: closed", ErrWrite), OutcomeWriteError},
		{errors.New("something else"), OutcomeFraming},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ClassifyError(tt.err), "%v", tt.err)
	}
}

func TestStatistics_Update(t *testing.T) {
	s := NewStatistics()
	for _, o := range []Outcome{OutcomeOK, OutcomeOK, OutcomeShortFrame, OutcomeChecksum, OutcomeMismatch, OutcomeWriteError, OutcomeFraming} {
		s.Update(o)
	}

	assert.Equal(t, uint64(7), s.Total)
	assert.Equal(t, uint64(2), s.Valid)
	assert.Equal(t, uint64(5), s.Errors())

	out := s.String()
	for _, want := range []string{"Total:", "Valid:", "Short/Timeout:", "Checksum Errors:", "Mismatches:", "Write Errors:", "Framing Errors:"} {
		assert.True(t, strings.Contains(out, want), "missing %q in:\n%s", want, out)
	}
	assert.NotContains(t, out, "Retries:")
}

func TestStatistics_Reset(t *testing.T) {
	s := NewStatistics()
	s.Update(OutcomeChecksum)
	s.Retries = 4

	s.Reset()
	assert.Zero(t, s.Total)
	assert.Zero(t, s.ChecksumErrors)
	assert.Zero(t, s.Retries)
	assert.False(t, s.StartTime.IsZero())
}
