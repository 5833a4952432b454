// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sds011

import (
	"io"
	"time"
)

// Transport is the byte channel to the sensor. Read must block until data
// arrives or an implementation-defined timeout elapses; a timeout is reported
// as a read of zero bytes (the behaviour of go.bug.st/serial) or as an error.
type Transport interface {
	io.Reader
	io.Writer
}

// readTimeoutSetter is implemented by transports with a configurable read
// timeout, such as serial ports.
type readTimeoutSetter interface {
	SetReadTimeout(t time.Duration) error
}

// inputResetter is implemented by transports that can discard buffered input
type inputResetter interface {
	ResetInputBuffer() error
}

// readFrame reads up to n bytes. It stops early at the first read returning
// no data or an error, so a timed-out read yields a short slice.
func readFrame(t Transport, n int) ([]byte, error) {
	buf := make([]byte, n)
	got := 0
	for got < n {
		k, err := t.Read(buf[got:])
		got += k
		if err != nil {
			return buf[:got], err
		}
		if k == 0 {
			break
		}
	}
	return buf[:got], nil
}
