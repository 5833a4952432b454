// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWorkingPeriod(t *testing.T) {
	tests := []struct {
		in      string
		want    uint8
		wantErr bool
	}{
		{in: "0", want: 0},
		{in: "1", want: 1},
		{in: "30", want: 30},
		{in: "31", wantErr: true},
		{in: "255", wantErr: true},
		{in: "-1", wantErr: true},
		{in: "", wantErr: true},
		{in: "five", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseWorkingPeriod(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseNewDeviceID(t *testing.T) {
	id, err := parseNewDeviceID("0xA160")
	require.NoError(t, err)
	assert.Equal(t, uint16(0xA160), id)

	id, err = parseNewDeviceID("1")
	require.NoError(t, err)
	assert.Equal(t, uint16(1), id)

	_, err = parseNewDeviceID("0xFFFF")
	assert.ErrorContains(t, err, "broadcast")

	_, err = parseNewDeviceID("broadcast")
	assert.Error(t, err)

	_, err = parseNewDeviceID("0x10000")
	assert.Error(t, err)
}
