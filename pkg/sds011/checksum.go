// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sds011

// Checksum computes the SDS011 checksum: the 8-bit sum of all payload bytes,
// including the embedded device id. Overflow wraps naturally.
func Checksum(payload []byte) byte {
	var sum byte
	for _, b := range payload {
		sum += b
	}
	return sum
}
