// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sds011

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMeasurement(t *testing.T) {
	raw := []byte{0xAA, 0xC0, 0xD4, 0x04, 0x3A, 0x0A, 0xA1, 0x60, 0x1D, 0xAB}

	m, err := DecodeMeasurement(ParsePacket(raw))
	require.NoError(t, err)

	want := Measurement{PM25: 1236, PM10: 2618, DeviceID: 0xA160}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Errorf("measurement mismatch (-want +got):\n%s", diff)
	}
	assert.InDelta(t, 123.6, m.PM25Microgram(), 0.001)
	assert.InDelta(t, 261.8, m.PM10Microgram(), 0.001)
}

func TestDecodeMeasurement_LongReply(t *testing.T) {
	// A full-length reply frame decodes from the same payload offsets
	payload := make([]byte, RequestPayloadSize)
	payload[0], payload[1] = 0x34, 0x12
	payload[2], payload[3] = 0x78, 0x56
	payload[13], payload[14] = 0xBE, 0xEF
	raw := buildReply(CmdData, payload...)
	require.Len(t, raw, RequestFrameSize)

	m, err := DecodeMeasurement(ParsePacket(raw))
	require.NoError(t, err)
	assert.Equal(t, Measurement{PM25: 0x1234, PM10: 0x5678, DeviceID: 0xBEEF}, m)
}

func TestDecodeFirmware(t *testing.T) {
	raw := []byte{0xAA, 0xC5, 0x07, 0x0F, 0x07, 0x0A, 0xA1, 0x60, 0x28, 0xAB}

	fw, err := DecodeFirmware(ParsePacket(raw))
	require.NoError(t, err)
	assert.Equal(t, FirmwareVersion{Year: 15, Month: 7, Day: 10}, fw)
	assert.Equal(t, "2015-07-10", fw.String())
}

func TestDecodeSettableReplies(t *testing.T) {
	mode, err := DecodeReportingMode(ParsePacket(buildReply(CmdReply, SubReportingMode, ActionSet, 0x01, 0x00, 0xA1, 0x60)))
	require.NoError(t, err)
	assert.Equal(t, ReportQuery, mode)

	state, err := DecodeWorkState(ParsePacket(buildReply(CmdReply, SubSleepWork, ActionQuery, 0x01, 0x00, 0xA1, 0x60)))
	require.NoError(t, err)
	assert.Equal(t, StateWork, state)

	period, err := DecodeWorkingPeriod(ParsePacket(buildReply(CmdReply, SubWorkingPeriod, ActionSet, 0x05, 0x00, 0xA1, 0x60)))
	require.NoError(t, err)
	assert.Equal(t, uint8(5), period)

	id, err := DecodeDeviceID(ParsePacket(buildReply(CmdReply, SubDeviceID, 0x00, 0x00, 0x00, 0xA0, 0x01)))
	require.NoError(t, err)
	assert.Equal(t, uint16(0xA001), id)
}

func TestCheckReply_Failures(t *testing.T) {
	good := buildReply(CmdReply, SubFirmware, 0x0F, 0x07, 0x0A, 0xA1, 0x60)

	corrupt := func(index int, value byte) []byte {
		out := append([]byte(nil), good...)
		out[index] = value
		return out
	}

	tests := []struct {
		name string
		raw  []byte
		sub  byte
		want error
	}{
		{name: "empty", raw: nil, sub: SubFirmware, want: ErrShortFrame},
		{name: "truncated", raw: good[:7], sub: SubFirmware, want: ErrShortFrame},
		{name: "bad head", raw: corrupt(0, 0x00), sub: SubFirmware, want: ErrFraming},
		{name: "bad tail", raw: corrupt(9, 0xAC), sub: SubFirmware, want: ErrFraming},
		{name: "bad checksum", raw: corrupt(8, 0x00), sub: SubFirmware, want: ErrChecksum},
		{name: "wrong sub-command", raw: good, sub: SubSleepWork, want: ErrUnexpectedReply},
		{name: "generic reply to data query", raw: good, sub: SubQueryData, want: ErrUnexpectedReply},
		{
			name: "data reply to generic query",
			raw:  buildReply(CmdData, 0xD4, 0x04, 0x3A, 0x0A, 0xA1, 0x60),
			sub:  SubFirmware,
			want: ErrUnexpectedReply,
		},
		{
			name: "request echoed back",
			raw:  NewFirmwareRequest(DeviceIDBroadcast).Bytes(),
			sub:  SubFirmware,
			want: ErrUnexpectedReply,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckReply(ParsePacket(tt.raw), tt.sub)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestCheckReply_Accepts(t *testing.T) {
	good := buildReply(CmdReply, SubFirmware, 0x0F, 0x07, 0x0A, 0xA1, 0x60)
	assert.NoError(t, CheckReply(ParsePacket(good), SubFirmware))

	data := buildReply(CmdData, 0xD4, 0x04, 0x3A, 0x0A, 0xA1, 0x60)
	assert.NoError(t, CheckReply(ParsePacket(data), SubQueryData))
}

func TestDecoders_ZeroOnFailure(t *testing.T) {
	bad := ParsePacket([]byte{0xAA, 0xC0, 0x00})

	m, err := DecodeMeasurement(bad)
	assert.Error(t, err)
	assert.Zero(t, m)

	fw, err := DecodeFirmware(bad)
	assert.Error(t, err)
	assert.Zero(t, fw)

	period, err := DecodeWorkingPeriod(bad)
	assert.Error(t, err)
	assert.Zero(t, period)
}
