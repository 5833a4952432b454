// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sds011

import (
	"errors"
	"fmt"
	"time"
)

// Outcome classifies a single exchange or decoded frame
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeShortFrame
	OutcomeFraming
	OutcomeChecksum
	OutcomeMismatch
	OutcomeWriteError
)

// ClassifyError maps a failure cause to an Outcome. A nil error is
// OutcomeOK; unknown errors count as framing errors.
func ClassifyError(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrShortFrame):
		return OutcomeShortFrame
	case errors.Is(err, ErrChecksum):
		return OutcomeChecksum
	case errors.Is(err, ErrUnexpectedReply):
		return OutcomeMismatch
	case errors.Is(err, ErrWrite):
		return OutcomeWriteError
	default:
		return OutcomeFraming
	}
}

// Statistics tracks exchange counts and error rates
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	Total          uint64
	Valid          uint64
	ShortFrames    uint64 // timeouts and truncated frames
	FramingErrors  uint64
	ChecksumErrors uint64
	Mismatches     uint64
	WriteErrors    uint64
	Retries        uint64

	// Rates (calculated)
	FrameRate float64 // frames/sec
	ErrorRate float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Update records one outcome
func (s *Statistics) Update(o Outcome) {
	s.Total++

	switch o {
	case OutcomeOK:
		s.Valid++
	case OutcomeShortFrame:
		s.ShortFrames++
	case OutcomeFraming:
		s.FramingErrors++
	case OutcomeChecksum:
		s.ChecksumErrors++
	case OutcomeMismatch:
		s.Mismatches++
	case OutcomeWriteError:
		s.WriteErrors++
	}

	s.LastUpdateTime = time.Now()
}

// Errors returns the number of failed outcomes
func (s *Statistics) Errors() uint64 {
	return s.ShortFrames + s.FramingErrors + s.ChecksumErrors + s.Mismatches + s.WriteErrors
}

// CalculateRates calculates frame and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.Total) / elapsed
		s.ErrorRate = float64(s.Errors()) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	percent := func(n uint64) float64 {
		if s.Total == 0 {
			return 0
		}
		return float64(n) * 100.0 / float64(s.Total)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total:           %8d\n", s.Total)
	result += fmt.Sprintf("Valid:           %8d (%.1f%%)\n", s.Valid, percent(s.Valid))

	if s.ShortFrames > 0 {
		result += fmt.Sprintf("Short/Timeout:   %8d (%.1f%%)\n", s.ShortFrames, percent(s.ShortFrames))
	}
	if s.FramingErrors > 0 {
		result += fmt.Sprintf("Framing Errors:  %8d (%.1f%%)\n", s.FramingErrors, percent(s.FramingErrors))
	}
	if s.ChecksumErrors > 0 {
		result += fmt.Sprintf("Checksum Errors: %8d (%.1f%%)\n", s.ChecksumErrors, percent(s.ChecksumErrors))
	}
	if s.Mismatches > 0 {
		result += fmt.Sprintf("Mismatches:      %8d (%.1f%%)\n", s.Mismatches, percent(s.Mismatches))
	}
	if s.WriteErrors > 0 {
		result += fmt.Sprintf("Write Errors:    %8d (%.1f%%)\n", s.WriteErrors, percent(s.WriteErrors))
	}
	if s.Retries > 0 {
		result += fmt.Sprintf("Retries:         %8d\n", s.Retries)
	}

	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}
