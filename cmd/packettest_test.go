// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/sdsprobe/pkg/sds011"
)

func TestWaitForFrame(t *testing.T) {
	data := append([]byte{0x00, 0xFF}, measurementFrame(123, 456, 0xA160)...)

	result, err := waitForFrame(bytes.NewReader(data))
	require.NoError(t, err)
	require.NotNil(t, result.packet)
	assert.Equal(t, 2, result.invalidBytes)
	assert.Equal(t, uint8(sds011.CmdData), result.packet.CommandID())
	assert.Equal(t, uint16(0xA160), result.packet.DeviceID())
}

func TestWaitForFrame_SkipsBadFrames(t *testing.T) {
	bad := measurementFrame(1, 2, 0xA160)
	bad[8]++

	data := append(bad, firmwareFrame(15, 7, 10, 0x0001)...)
	result, err := waitForFrame(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, len(bad), result.invalidBytes)
	assert.Equal(t, byte(sds011.SubFirmware), result.packet.SubCommand())
}

func TestWaitForFrame_EOF(t *testing.T) {
	result, err := waitForFrame(bytes.NewReader([]byte{0x01, 0x02, 0x03}))
	assert.ErrorIs(t, err, io.EOF)
	assert.Nil(t, result.packet)
	assert.Equal(t, 3, result.invalidBytes)
}
