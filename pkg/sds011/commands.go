// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sds011

// Request builders return built packets ready for transmission. Every
// request carries CmdRequest, RequestPayloadSize payload bytes and the target
// device id in the last two payload bytes (DeviceIDBroadcast for any sensor).

// newRequest creates an unbuilt request for the given sub-command
func newRequest(deviceID uint16, sub byte) *Packet {
	p := NewPacket()
	p.SetCommandID(CmdRequest)
	p.SetPayloadByte(0, sub)
	p.SetDeviceID(deviceID)
	return p
}

// NewReportingModeQuery asks for the current data reporting mode
func NewReportingModeQuery(deviceID uint16) *Packet {
	p := newRequest(deviceID, SubReportingMode)
	p.SetPayloadByte(1, ActionQuery)
	p.Build()
	return p
}

// NewReportingModeCommand sets the data reporting mode. The setting survives
// power off.
func NewReportingModeCommand(deviceID uint16, mode ReportingMode) *Packet {
	p := newRequest(deviceID, SubReportingMode)
	p.SetPayloadByte(1, ActionSet)
	p.SetPayloadByte(2, byte(mode))
	p.Build()
	return p
}

// NewQueryDataRequest asks for a measurement. The sensor answers with a
// CmdData frame.
func NewQueryDataRequest(deviceID uint16) *Packet {
	p := newRequest(deviceID, SubQueryData)
	p.Build()
	return p
}

// NewSetDeviceIDRequest changes the id of the sensor addressed by deviceID.
// The new id occupies payload bytes 11 and 12, high byte first.
func NewSetDeviceIDRequest(deviceID, newID uint16) *Packet {
	p := newRequest(deviceID, SubDeviceID)
	p.SetPayloadByte(11, byte(newID>>8))
	p.SetPayloadByte(12, byte(newID&0xFF))
	p.Build()
	return p
}

// NewWorkStateQuery asks whether the sensor is sleeping or working
func NewWorkStateQuery(deviceID uint16) *Packet {
	p := newRequest(deviceID, SubSleepWork)
	p.SetPayloadByte(1, ActionQuery)
	p.Build()
	return p
}

// NewWorkStateCommand puts the sensor to sleep (fan and laser off) or wakes
// it up. The setting does not survive power off.
func NewWorkStateCommand(deviceID uint16, state WorkState) *Packet {
	p := newRequest(deviceID, SubSleepWork)
	p.SetPayloadByte(1, ActionSet)
	p.SetPayloadByte(2, byte(state))
	p.Build()
	return p
}

// NewWorkingPeriodQuery asks for the working period in minutes
func NewWorkingPeriodQuery(deviceID uint16) *Packet {
	p := newRequest(deviceID, SubWorkingPeriod)
	p.SetPayloadByte(1, ActionQuery)
	p.Build()
	return p
}

// NewWorkingPeriodCommand sets the working period. 0 selects continuous
// operation, 1-30 selects one measurement every n minutes.
func NewWorkingPeriodCommand(deviceID uint16, minutes uint8) *Packet {
	p := newRequest(deviceID, SubWorkingPeriod)
	p.SetPayloadByte(1, ActionSet)
	p.SetPayloadByte(2, minutes)
	p.Build()
	return p
}

// NewFirmwareRequest asks for the firmware release date
func NewFirmwareRequest(deviceID uint16) *Packet {
	p := newRequest(deviceID, SubFirmware)
	p.Build()
	return p
}
