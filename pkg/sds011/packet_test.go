// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sds011

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================
// Test Helpers
// ============================================================

// buildReply creates a raw reply frame with a correct checksum
func buildReply(cmd byte, payload ...byte) []byte {
	frame := []byte{HeadByte, cmd}
	frame = append(frame, payload...)
	frame = append(frame, Checksum(payload), TailByte)
	return frame
}

// ============================================================
// Checksum Tests
// ============================================================

func TestChecksum_KnownValues(t *testing.T) {
	tests := []struct {
		name     string
		payload  []byte
		expected byte
	}{
		{name: "empty", payload: []byte{}, expected: 0x00},
		{name: "single byte", payload: []byte{0x42}, expected: 0x42},
		{name: "wraps at 256", payload: []byte{0xFF, 0x02}, expected: 0x01},
		{
			name:     "query data request",
			payload:  []byte{0x04, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0xFF, 0xFF},
			expected: 0x02,
		},
		{
			name:     "measurement reply",
			payload:  []byte{0xD4, 0x04, 0x3A, 0x0A, 0xA1, 0x60},
			expected: 0x1D,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Checksum(tt.payload); got != tt.expected {
				t.Errorf("checksum mismatch: expected 0x%02X, got 0x%02X", tt.expected, got)
			}
		})
	}
}

// ============================================================
// Packet Construction Tests
// ============================================================

func TestNewPacket(t *testing.T) {
	p := NewPacket()

	assert.Equal(t, CmdNone, int(p.CommandID()))
	assert.Equal(t, RequestPayloadSize, p.PayloadLength())
	assert.Equal(t, make([]byte, RequestPayloadSize), p.Payload())
	assert.False(t, p.Timestamp().IsZero())
}

func TestBuild_StoresFramingBytes(t *testing.T) {
	p := NewPacket()
	p.SetCommandID(CmdRequest)
	p.SetPayloadByte(0, SubFirmware)
	p.SetDeviceID(0xA160)
	p.Build()

	raw := p.Bytes()
	require.Len(t, raw, RequestFrameSize)

	assert.Equal(t, HeadByte, int(raw[0]))
	assert.Equal(t, CmdRequest, int(raw[1]))
	assert.Equal(t, p.CalculateChecksum(), raw[2+RequestPayloadSize], "checksum at offset 2+L")
	assert.Equal(t, TailByte, int(raw[3+RequestPayloadSize]))
	assert.True(t, p.IsValid())
}

func TestBuild_RecomputesAfterModification(t *testing.T) {
	p := NewPacket()
	p.SetCommandID(CmdRequest)
	p.Build()
	before := p.Checksum()

	p.SetPayloadByte(3, 0x10)
	if p.IsValid() {
		t.Error("packet should be invalid after payload change without Build")
	}

	p.Build()
	if !p.IsValid() {
		t.Error("packet should be valid after Build")
	}
	if p.Checksum() != before+0x10 {
		t.Errorf("checksum should grow by 0x10: before 0x%02X, after 0x%02X", before, p.Checksum())
	}
}

func TestParsePacket_RoundTrip(t *testing.T) {
	p := NewFirmwareRequest(0x1234)
	raw := p.Bytes()

	parsed := ParsePacket(raw)
	if !parsed.IsValid() {
		t.Fatal("parsed packet should be valid")
	}
	if parsed.CommandID() != CmdRequest {
		t.Errorf("command id: expected 0x%02X, got 0x%02X", CmdRequest, parsed.CommandID())
	}
	if parsed.PayloadLength() != RequestPayloadSize {
		t.Errorf("payload length: expected %d, got %d", RequestPayloadSize, parsed.PayloadLength())
	}
	if parsed.DeviceID() != 0x1234 {
		t.Errorf("device id: expected 0x1234, got 0x%04X", parsed.DeviceID())
	}
	if !bytes.Equal(parsed.Bytes(), raw) {
		t.Errorf("bytes mismatch:\n  expected % X\n  got      % X", raw, parsed.Bytes())
	}
}

func TestParsePacket_ReplyLength(t *testing.T) {
	raw := []byte{0xAA, 0xC0, 0xD4, 0x04, 0x3A, 0x0A, 0xA1, 0x60, 0x1D, 0xAB}
	p := ParsePacket(raw)

	assert.True(t, p.IsValid())
	assert.Equal(t, ReplyPayloadSize, p.PayloadLength())
	assert.Equal(t, byte(0x1D), p.Checksum())
	assert.Equal(t, uint16(0xA160), p.DeviceID())
	assert.Equal(t, raw, p.Bytes())
}

func TestParsePacket_Truncated(t *testing.T) {
	for n := 0; n < MinFrameSize; n++ {
		data := []byte{HeadByte, CmdReply, 0x00, TailByte}[:n]
		p := ParsePacket(data)
		if p.IsValid() {
			t.Errorf("%d-byte input should be invalid", n)
		}
		if p.PayloadLength() != 0 {
			t.Errorf("%d-byte input: payload length should be 0, got %d", n, p.PayloadLength())
		}
		if p.Bytes() != nil {
			t.Errorf("%d-byte input: Bytes should be nil", n)
		}
	}
}

func TestParsePacket_TooLong(t *testing.T) {
	raw := append(NewQueryDataRequest(DeviceIDBroadcast).Bytes(), 0x00)
	p := ParsePacket(raw)
	assert.False(t, p.IsValid())
	assert.Zero(t, p.PayloadLength())
}

func TestParsePacket_MinimalFrame(t *testing.T) {
	p := ParsePacket([]byte{HeadByte, CmdReply, 0x07, 0x07, TailByte})
	assert.True(t, p.IsValid())
	assert.Equal(t, 1, p.PayloadLength())
	assert.Equal(t, byte(SubFirmware), p.SubCommand())
	assert.Zero(t, p.DeviceID(), "one payload byte cannot hold a device id")
}

func TestIsValid_Tamper(t *testing.T) {
	raw := NewWorkStateCommand(0xA160, StateSleep).Bytes()

	tests := []struct {
		name  string
		index int
	}{
		{name: "head", index: 0},
		{name: "payload first", index: 2},
		{name: "payload last", index: 2 + RequestPayloadSize - 1},
		{name: "checksum", index: 2 + RequestPayloadSize},
		{name: "tail", index: 3 + RequestPayloadSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tampered := append([]byte(nil), raw...)
			tampered[tt.index] ^= 0x01
			if ParsePacket(tampered).IsValid() {
				t.Errorf("flipping byte %d should invalidate the frame", tt.index)
			}
		})
	}
}

func TestIsValid_CommandIDNotCovered(t *testing.T) {
	// The checksum covers the payload only; a changed role byte still passes
	raw := buildReply(CmdReply, SubFirmware, 0x0F, 0x07, 0x0A, 0xA1, 0x60)
	raw[1] = CmdData
	assert.True(t, ParsePacket(raw).IsValid())
}

func TestDeviceID_AllValues(t *testing.T) {
	p := NewPacket()
	for id := 0; id <= 0xFFFF; id++ {
		p.SetDeviceID(uint16(id))
		if got := p.DeviceID(); got != uint16(id) {
			t.Fatalf("device id round trip: expected 0x%04X, got 0x%04X", id, got)
		}
	}
}

func TestDeviceID_BigEndian(t *testing.T) {
	p := NewPacket()
	p.SetDeviceID(0xA160)
	assert.Equal(t, byte(0xA1), p.PayloadByte(13))
	assert.Equal(t, byte(0x60), p.PayloadByte(14))
}

func TestPayload_ReturnsCopy(t *testing.T) {
	p := NewPacket()
	payload := p.Payload()
	payload[0] = 0xEE
	assert.Zero(t, p.PayloadByte(0))
}
