// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sds011

import "fmt"

// Decoder extracts frames from an unsolicited byte stream, such as the 0xC0
// frames a sensor emits in active reporting mode or traffic observed on a
// shared line. The frame size follows from the command id: requests are
// RequestFrameSize bytes, replies ReplyFrameSize bytes.
type Decoder struct {
	state    int
	expected int
	buffer   []byte
}

// NewDecoder creates a new frame decoder
func NewDecoder() *Decoder {
	return &Decoder{
		state:  stateIdle,
		buffer: make([]byte, 0, MaxFrameSize),
	}
}

// Reset discards any partial frame and waits for the next head byte
func (d *Decoder) Reset() {
	d.state = stateIdle
	d.expected = 0
	d.buffer = d.buffer[:0]
}

// RawBytes returns the bytes accumulated for the current partial frame
func (d *Decoder) RawBytes() []byte {
	return d.buffer
}

// DecodeByte processes a single byte.
// Returns a completed packet, or nil if the frame is incomplete.
// Returns an error wrapping ErrFraming or ErrChecksum if the frame is bad.
func (d *Decoder) DecodeByte(b byte) (*Packet, error) {
	switch d.state {
	case stateIdle:
		// Bytes outside a frame are skipped until the head byte
		if b == HeadByte {
			d.buffer = append(d.buffer[:0], b)
			d.state = stateFrame
		}
		return nil, nil

	case stateFrame:
		d.buffer = append(d.buffer, b)

		if len(d.buffer) == 2 {
			switch b {
			case CmdRequest:
				d.expected = RequestFrameSize
			case CmdReply, CmdData:
				d.expected = ReplyFrameSize
			case HeadByte:
				// Repeated head byte, treat the second one as the frame start
				d.buffer = d.buffer[:1]
				return nil, nil
			default:
				d.Reset()
				return nil, fmt.Errorf("%w: unknown command id 0x%02X", ErrFraming, b)
			}
			return nil, nil
		}

		if len(d.buffer) < d.expected {
			return nil, nil
		}

		frame := d.buffer
		d.Reset()

		if frame[len(frame)-1] != TailByte {
			return nil, fmt.Errorf("%w: tail byte 0x%02X", ErrFraming, frame[len(frame)-1])
		}

		packet := ParsePacket(frame)
		if !packet.IsValid() {
			return nil, fmt.Errorf("%w: received 0x%02X, calculated 0x%02X",
				ErrChecksum, packet.Checksum(), packet.CalculateChecksum())
		}
		return packet, nil

	default:
		d.Reset()
		return nil, fmt.Errorf("%w: invalid decoder state %d", ErrFraming, d.state)
	}
}

// Decode feeds data through DecodeByte and returns every complete packet.
// Decoding continues past bad frames; their errors are returned in order.
func (d *Decoder) Decode(data []byte) ([]*Packet, []error) {
	var packets []*Packet
	var errs []error
	for _, b := range data {
		packet, err := d.DecodeByte(b)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if packet != nil {
			packets = append(packets, packet)
		}
	}
	return packets, errs
}
