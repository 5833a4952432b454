// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sds011

import "errors"

// Failure causes. Sensor operations collapse all of them into a false
// result; they are used for logging, statistics and by the reply decoders.
var (
	ErrShortFrame      = errors.New("short frame")
	ErrFraming         = errors.New("invalid framing bytes")
	ErrChecksum        = errors.New("checksum mismatch")
	ErrUnexpectedReply = errors.New("unexpected reply")
	ErrWrite           = errors.New("transport write failed")
)
