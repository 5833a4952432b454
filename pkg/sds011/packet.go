// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sds011

import "time"

// Packet is a single SDS011 frame, either a request built locally or a reply
// parsed from received bytes.
//
// Wire layout:
//
//	[HEAD][CMD][PAYLOAD (L bytes)][CHECKSUM][TAIL]
//
// The payload lives inside the frame buffer at offset 2, so building a
// packet only has to fill in the four framing bytes around it.
type Packet struct {
	head          byte
	tail          byte
	commandID     byte
	checksum      byte
	payloadLength int
	frame         [MaxFrameSize]byte
	timestamp     time.Time
}

// NewPacket creates an empty request-shaped packet: framing bytes set, no
// command id, RequestPayloadSize zeroed payload bytes.
func NewPacket() *Packet {
	return &Packet{
		head:          HeadByte,
		tail:          TailByte,
		commandID:     CmdNone,
		payloadLength: RequestPayloadSize,
		timestamp:     time.Now(),
	}
}

// ParsePacket creates a packet from raw received bytes. The payload length is
// derived from len(data).
//
// Input shorter than MinFrameSize (a truncated read or timeout) or longer than
// MaxFrameSize yields a packet whose head and tail are zero, so IsValid
// reports false. No other field is populated in that case.
func ParsePacket(data []byte) *Packet {
	p := &Packet{timestamp: time.Now()}

	n := len(data)
	if n < MinFrameSize || n > MaxFrameSize {
		return p
	}

	p.head = data[offsetHead]
	p.commandID = data[offsetCommandID]
	p.checksum = data[n-2]
	p.tail = data[n-1]
	p.payloadLength = n - FrameOverhead
	copy(p.frame[:], data)

	return p
}

// Build finalizes the packet for transmission. It recomputes the checksum
// over the current payload and stores head, command id, checksum and tail at
// their fixed frame offsets. IsValid reports true afterwards.
func (p *Packet) Build() {
	p.checksum = p.CalculateChecksum()
	p.frame[offsetHead] = p.head
	p.frame[offsetCommandID] = p.commandID
	p.frame[offsetPayload+p.payloadLength] = p.checksum
	p.frame[offsetPayload+p.payloadLength+1] = p.tail
}

// CommandID returns the frame's role byte
func (p *Packet) CommandID() byte {
	return p.commandID
}

// SetCommandID sets the frame's role byte
func (p *Packet) SetCommandID(id byte) {
	p.commandID = id
}

// PayloadLength returns the number of meaningful payload bytes
func (p *Packet) PayloadLength() int {
	return p.payloadLength
}

// PayloadByte returns the payload byte at index. The index must be below
// PayloadLength.
func (p *Packet) PayloadByte(index int) byte {
	return p.frame[offsetPayload+index]
}

// SetPayloadByte sets the payload byte at index. The index must be below
// PayloadLength.
func (p *Packet) SetPayloadByte(index int, value byte) {
	p.frame[offsetPayload+index] = value
}

// Payload returns a copy of the meaningful payload bytes
func (p *Packet) Payload() []byte {
	out := make([]byte, p.payloadLength)
	copy(out, p.payload())
	return out
}

func (p *Packet) payload() []byte {
	return p.frame[offsetPayload : offsetPayload+p.payloadLength]
}

// SubCommand returns payload byte 0, the operation selector
func (p *Packet) SubCommand() byte {
	if p.payloadLength == 0 {
		return 0
	}
	return p.PayloadByte(0)
}

// DeviceID returns the big-endian device id stored in the last two payload
// bytes.
func (p *Packet) DeviceID() uint16 {
	if p.payloadLength < 2 {
		return 0
	}
	high := p.PayloadByte(p.payloadLength - 2)
	low := p.PayloadByte(p.payloadLength - 1)
	return uint16(high)<<8 | uint16(low)
}

// SetDeviceID stores id big-endian in the last two payload bytes
func (p *Packet) SetDeviceID(id uint16) {
	if p.payloadLength < 2 {
		return
	}
	p.SetPayloadByte(p.payloadLength-2, byte(id>>8))
	p.SetPayloadByte(p.payloadLength-1, byte(id&0xFF))
}

// Checksum returns the stored checksum: the received one for parsed packets,
// the computed one after Build.
func (p *Packet) Checksum() byte {
	return p.checksum
}

// CalculateChecksum computes the checksum over the current payload without
// modifying the packet.
func (p *Packet) CalculateChecksum() byte {
	return Checksum(p.payload())
}

// IsValid reports whether head and tail carry the framing bytes and the
// stored checksum matches the payload.
func (p *Packet) IsValid() bool {
	if p.head != HeadByte {
		return false
	}
	if p.tail != TailByte {
		return false
	}
	return p.checksum == p.CalculateChecksum()
}

// Bytes returns the serialized frame (PayloadLength + 4 bytes). Packets
// rejected by ParsePacket have no frame and return nil.
func (p *Packet) Bytes() []byte {
	if p.payloadLength == 0 {
		return nil
	}
	out := make([]byte, p.payloadLength+FrameOverhead)
	copy(out, p.frame[:])
	return out
}

// Timestamp returns the time the packet was created or parsed
func (p *Packet) Timestamp() time.Time {
	return p.timestamp
}
