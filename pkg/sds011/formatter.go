// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sds011

import (
	"fmt"
	"strings"
)

// FormatPacket formats a packet into a human-readable string
func FormatPacket(p *Packet) string {
	timestamp := p.timestamp.Format("15:04:05.000")
	cmd := FormatCommandID(p.CommandID())

	result := fmt.Sprintf("[%s] %s (0x%02X) id=%04X len=%d\n",
		timestamp, cmd, p.CommandID(), p.DeviceID(), p.PayloadLength())

	result += formatContents(p)
	return result
}

// FormatCommandID returns the human-readable name for a command id
func FormatCommandID(id byte) string {
	switch id {
	case CmdRequest:
		return "REQUEST"
	case CmdReply:
		return "REPLY"
	case CmdData:
		return "DATA"
	default:
		return "UNKNOWN"
	}
}

// FormatSubCommand returns the human-readable name for a sub-command
func FormatSubCommand(sub byte) string {
	switch sub {
	case SubReportingMode:
		return "REPORTING_MODE"
	case SubQueryData:
		return "QUERY_DATA"
	case SubDeviceID:
		return "DEVICE_ID"
	case SubSleepWork:
		return "SLEEP_WORK"
	case SubFirmware:
		return "FIRMWARE"
	case SubWorkingPeriod:
		return "WORKING_PERIOD"
	default:
		return "UNKNOWN"
	}
}

// FormatHex renders bytes as space separated hex pairs
func FormatHex(data []byte) string {
	parts := make([]string, len(data))
	for i, b := range data {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, " ")
}

// formatContents renders the decoded payload of a frame
func formatContents(p *Packet) string {
	if p.PayloadLength() == 0 {
		return "  (no payload)\n"
	}

	if p.CommandID() == CmdData {
		m, err := DecodeMeasurement(p)
		if err != nil {
			return fmt.Sprintf("  Raw: %s\n", FormatHex(p.Payload()))
		}
		return fmt.Sprintf("  PM2.5: %.1f µg/m³, PM10: %.1f µg/m³\n", m.PM25Microgram(), m.PM10Microgram())
	}

	sub := p.SubCommand()
	name := FormatSubCommand(sub)

	if p.CommandID() == CmdRequest {
		switch sub {
		case SubReportingMode, SubSleepWork, SubWorkingPeriod:
			if p.PayloadByte(1) == ActionSet {
				return fmt.Sprintf("  %s: set %s\n", name, formatValue(sub, p.PayloadByte(2)))
			}
			return fmt.Sprintf("  %s: query\n", name)
		case SubDeviceID:
			newID := uint16(p.PayloadByte(11))<<8 | uint16(p.PayloadByte(12))
			return fmt.Sprintf("  %s: set %04X\n", name, newID)
		default:
			return fmt.Sprintf("  %s\n", name)
		}
	}

	if p.PayloadLength() < ReplyPayloadSize {
		return fmt.Sprintf("  %s: Raw: %s\n", name, FormatHex(p.Payload()))
	}

	switch sub {
	case SubFirmware:
		fw := FirmwareVersion{Year: p.PayloadByte(1), Month: p.PayloadByte(2), Day: p.PayloadByte(3)}
		return fmt.Sprintf("  %s: %s\n", name, fw)
	case SubDeviceID:
		return fmt.Sprintf("  %s: %04X\n", name, p.DeviceID())
	case SubReportingMode, SubSleepWork, SubWorkingPeriod:
		action := "query"
		if p.PayloadByte(1) == ActionSet {
			action = "set"
		}
		return fmt.Sprintf("  %s (%s): %s\n", name, action, formatValue(sub, p.PayloadByte(2)))
	default:
		return fmt.Sprintf("  %s: Raw: %s\n", name, FormatHex(p.Payload()))
	}
}

// formatValue renders the value byte of a settable sub-command
func formatValue(sub, value byte) string {
	switch sub {
	case SubReportingMode:
		return ReportingMode(value).String()
	case SubSleepWork:
		return WorkState(value).String()
	case SubWorkingPeriod:
		if value == 0 {
			return "continuous"
		}
		return fmt.Sprintf("%d min", value)
	default:
		return fmt.Sprintf("0x%02X", value)
	}
}
