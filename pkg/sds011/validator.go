// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sds011

import "fmt"

// AnomalyType represents different types of frame anomalies
type AnomalyType int

const (
	AnomalyLengthMismatch AnomalyType = iota
	AnomalyUnknownCommand
	AnomalyUnknownSubCommand
	AnomalyOutOfRange
	AnomalyInvalidValue
	AnomalyInvalidDate
)

// ValidationError represents a frame validation failure
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidatePacket checks a structurally valid frame for implausible contents.
// Returns a slice of validation errors (empty if nothing looks wrong).
func ValidatePacket(p *Packet) []ValidationError {
	switch p.CommandID() {
	case CmdData:
		return validateMeasurement(p)
	case CmdReply:
		return validateReply(p)
	case CmdRequest:
		return validateRequest(p)
	default:
		return []ValidationError{{
			Type:    AnomalyUnknownCommand,
			Message: fmt.Sprintf("Unknown command id 0x%02X", p.CommandID()),
			Details: map[string]interface{}{"command_id": p.CommandID()},
		}}
	}
}

// validateMeasurement validates a measurement reply
func validateMeasurement(p *Packet) []ValidationError {
	errors := []ValidationError{}

	if p.PayloadLength() < ReplyPayloadSize {
		return []ValidationError{lengthMismatch("measurement", p.PayloadLength(), ReplyPayloadSize)}
	}

	m, err := DecodeMeasurement(p)
	if err != nil {
		return errors
	}

	if m.PM25 > MaxConcentration || m.PM10 > MaxConcentration {
		errors = append(errors, ValidationError{
			Type: AnomalyOutOfRange,
			Message: fmt.Sprintf("Concentration out of range (PM2.5=%.1f, PM10=%.1f, max %.1f µg/m³)",
				m.PM25Microgram(), m.PM10Microgram(), float64(MaxConcentration)/10),
			Details: map[string]interface{}{"pm25": m.PM25, "pm10": m.PM10, "max": MaxConcentration},
		})
	}

	return errors
}

// validateReply validates a generic reply by sub-command
func validateReply(p *Packet) []ValidationError {
	errors := []ValidationError{}

	if p.PayloadLength() < ReplyPayloadSize {
		return []ValidationError{lengthMismatch("reply", p.PayloadLength(), ReplyPayloadSize)}
	}

	value := p.PayloadByte(2)

	switch p.SubCommand() {
	case SubReportingMode:
		if value != byte(ReportActive) && value != byte(ReportQuery) {
			errors = append(errors, invalidValue("reporting mode", value))
		}
	case SubSleepWork:
		if value != byte(StateSleep) && value != byte(StateWork) {
			errors = append(errors, invalidValue("work state", value))
		}
	case SubWorkingPeriod:
		if value > MaxWorkingPeriod {
			errors = append(errors, ValidationError{
				Type:    AnomalyOutOfRange,
				Message: fmt.Sprintf("Working period out of range (%d min, max %d)", value, MaxWorkingPeriod),
				Details: map[string]interface{}{"period": value, "max": MaxWorkingPeriod},
			})
		}
	case SubFirmware:
		month := p.PayloadByte(2)
		day := p.PayloadByte(3)
		if month < 1 || month > 12 || day < 1 || day > 31 {
			errors = append(errors, ValidationError{
				Type:    AnomalyInvalidDate,
				Message: fmt.Sprintf("Invalid firmware date (month=%d, day=%d)", month, day),
				Details: map[string]interface{}{"year": p.PayloadByte(1), "month": month, "day": day},
			})
		}
	case SubDeviceID:
		// Any id is valid
	default:
		errors = append(errors, unknownSubCommand(p.SubCommand()))
	}

	return errors
}

// validateRequest validates a request observed on the line
func validateRequest(p *Packet) []ValidationError {
	errors := []ValidationError{}

	if p.PayloadLength() != RequestPayloadSize {
		return []ValidationError{lengthMismatch("request", p.PayloadLength(), RequestPayloadSize)}
	}

	switch p.SubCommand() {
	case SubReportingMode, SubSleepWork, SubWorkingPeriod:
		action := p.PayloadByte(1)
		if action != ActionQuery && action != ActionSet {
			errors = append(errors, invalidValue("action flag", action))
		}
		if action == ActionSet && p.SubCommand() == SubWorkingPeriod && p.PayloadByte(2) > MaxWorkingPeriod {
			errors = append(errors, ValidationError{
				Type:    AnomalyOutOfRange,
				Message: fmt.Sprintf("Working period out of range (%d min, max %d)", p.PayloadByte(2), MaxWorkingPeriod),
				Details: map[string]interface{}{"period": p.PayloadByte(2), "max": MaxWorkingPeriod},
			})
		}
	case SubQueryData, SubDeviceID, SubFirmware:
	default:
		errors = append(errors, unknownSubCommand(p.SubCommand()))
	}

	return errors
}

func lengthMismatch(kind string, length, expected int) ValidationError {
	return ValidationError{
		Type:    AnomalyLengthMismatch,
		Message: fmt.Sprintf("%s payload length mismatch (%d bytes, expected %d)", kind, length, expected),
		Details: map[string]interface{}{"length": length, "expected": expected},
	}
}

func invalidValue(field string, value byte) ValidationError {
	return ValidationError{
		Type:    AnomalyInvalidValue,
		Message: fmt.Sprintf("Invalid %s value=0x%02X", field, value),
		Details: map[string]interface{}{"field": field, "value": value},
	}
}

func unknownSubCommand(sub byte) ValidationError {
	return ValidationError{
		Type:    AnomalyUnknownSubCommand,
		Message: fmt.Sprintf("Unknown sub-command 0x%02X", sub),
		Details: map[string]interface{}{"sub_command": sub},
	}
}
