// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sds011

import "fmt"

// Reply layout (CmdReply, ReplyPayloadSize bytes):
//
//	[SUB][FLAG or value][value][value][ID_H][ID_L]
//
// Measurement replies (CmdData) carry no sub-command:
//
//	[PM25_L][PM25_H][PM10_L][PM10_H][ID_H][ID_L]
//
// Decoders only use offsets from the start of the payload and the last two
// bytes for the id, so longer payloads decode the same way.

// CheckReply verifies that p is a well-formed reply to a request with the
// given sub-command. commandId alone is ambiguous, so generic replies are
// matched on the sub-command byte as well.
func CheckReply(p *Packet, sub byte) error {
	if p.PayloadLength() < ReplyPayloadSize {
		return fmt.Errorf("%w: %d payload bytes, need %d", ErrShortFrame, p.PayloadLength(), ReplyPayloadSize)
	}
	if p.head != HeadByte || p.tail != TailByte {
		return fmt.Errorf("%w: head=0x%02X tail=0x%02X", ErrFraming, p.head, p.tail)
	}
	if p.checksum != p.CalculateChecksum() {
		return fmt.Errorf("%w: received 0x%02X, calculated 0x%02X", ErrChecksum, p.checksum, p.CalculateChecksum())
	}

	if sub == SubQueryData {
		if p.CommandID() != CmdData {
			return fmt.Errorf("%w: command id 0x%02X, expected 0x%02X", ErrUnexpectedReply, p.CommandID(), CmdData)
		}
		return nil
	}

	if p.CommandID() != CmdReply {
		return fmt.Errorf("%w: command id 0x%02X, expected 0x%02X", ErrUnexpectedReply, p.CommandID(), CmdReply)
	}
	if p.SubCommand() != sub {
		return fmt.Errorf("%w: sub-command 0x%02X, expected 0x%02X", ErrUnexpectedReply, p.SubCommand(), sub)
	}
	return nil
}

// DecodeMeasurement extracts PM2.5 and PM10 from a measurement reply
func DecodeMeasurement(p *Packet) (Measurement, error) {
	if err := CheckReply(p, SubQueryData); err != nil {
		return Measurement{}, err
	}
	return Measurement{
		PM25:     uint16(p.PayloadByte(1))<<8 | uint16(p.PayloadByte(0)),
		PM10:     uint16(p.PayloadByte(3))<<8 | uint16(p.PayloadByte(2)),
		DeviceID: p.DeviceID(),
	}, nil
}

// DecodeReportingMode extracts the reporting mode from a reporting-mode reply
func DecodeReportingMode(p *Packet) (ReportingMode, error) {
	if err := CheckReply(p, SubReportingMode); err != nil {
		return 0, err
	}
	return ReportingMode(p.PayloadByte(2)), nil
}

// DecodeWorkState extracts the sleep/work state from a sleep/work reply
func DecodeWorkState(p *Packet) (WorkState, error) {
	if err := CheckReply(p, SubSleepWork); err != nil {
		return 0, err
	}
	return WorkState(p.PayloadByte(2)), nil
}

// DecodeWorkingPeriod extracts the working period in minutes
func DecodeWorkingPeriod(p *Packet) (uint8, error) {
	if err := CheckReply(p, SubWorkingPeriod); err != nil {
		return 0, err
	}
	return p.PayloadByte(2), nil
}

// DecodeFirmware extracts the firmware release date
func DecodeFirmware(p *Packet) (FirmwareVersion, error) {
	if err := CheckReply(p, SubFirmware); err != nil {
		return FirmwareVersion{}, err
	}
	return FirmwareVersion{
		Year:  p.PayloadByte(1),
		Month: p.PayloadByte(2),
		Day:   p.PayloadByte(3),
	}, nil
}

// DecodeDeviceID extracts the id a sensor reports after a device id change.
// The reply is sent from the new id.
func DecodeDeviceID(p *Packet) (uint16, error) {
	if err := CheckReply(p, SubDeviceID); err != nil {
		return 0, err
	}
	return p.DeviceID(), nil
}
