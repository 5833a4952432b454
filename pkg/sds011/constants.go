// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package sds011 implements the serial protocol spoken by SDS011 laser
// particulate-matter sensors.
//
// Every exchange is a fixed-format frame: a head byte, a command id, a
// payload whose first byte selects the operation, an 8-bit additive checksum
// and a tail byte. Requests always carry 15 payload bytes; the sensor answers
// with 6. This package provides the frame codec (Packet), request builders,
// reply decoders, a streaming decoder for active reporting mode and the
// command/response engine (Sensor) that drives a sensor over any Transport.
package sds011

// Protocol framing bytes
const (
	HeadByte = 0xAA
	TailByte = 0xAB
)

// Command ids. All requests share CmdRequest; replies share CmdReply, except
// for measurement data which uses CmdData.
const (
	CmdNone    = 0x00
	CmdRequest = 0xB4
	CmdReply   = 0xC5
	CmdData    = 0xC0
)

// Sub-commands (payload byte 0)
const (
	SubReportingMode = 0x02
	SubQueryData     = 0x04
	SubDeviceID      = 0x05
	SubSleepWork     = 0x06
	SubFirmware      = 0x07
	SubWorkingPeriod = 0x08
)

// Query/set flag (payload byte 1)
const (
	ActionQuery = 0x00
	ActionSet   = 0x01
)

// Frame size limits
const (
	FrameOverhead      = 4 // head, command id, checksum, tail
	RequestPayloadSize = 15
	ReplyPayloadSize   = 6
	MaxPayloadSize     = RequestPayloadSize
	RequestFrameSize   = RequestPayloadSize + FrameOverhead // 19
	ReplyFrameSize     = ReplyPayloadSize + FrameOverhead   // 10
	MaxFrameSize       = MaxPayloadSize + FrameOverhead
	MinFrameSize       = 5
)

// Frame offsets
const (
	offsetHead      = 0
	offsetCommandID = 1
	offsetPayload   = 2
)

// Device ids
const (
	DeviceIDBroadcast = 0xFFFF // Any sensor on the line
)

// Sensor limits
const (
	MaxWorkingPeriod = 30   // minutes; 0 means continuous
	MaxConcentration = 9999 // tenths of µg/m³ (999.9 µg/m³)
	DefaultBaudRate  = 9600
)

// Decoder states (internal)
const (
	stateIdle = iota
	stateFrame
)

// ReportingMode selects whether the sensor pushes data by itself or only
// answers queries.
type ReportingMode uint8

// Reporting mode values
const (
	ReportActive ReportingMode = 0x00
	ReportQuery  ReportingMode = 0x01
)

// WorkState is the fan/laser state controlled by sleep and wake commands.
type WorkState uint8

// Work state values
const (
	StateSleep WorkState = 0x00
	StateWork  WorkState = 0x01
)
