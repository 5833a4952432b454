// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sds011

import (
	"fmt"
	"time"
)

// Measurement is one particulate reading. Concentrations are raw sensor
// values in tenths of a microgram per cubic metre.
type Measurement struct {
	PM25     uint16 // particles < 2.5 µm
	PM10     uint16 // particles 2.5 µm to 10 µm
	DeviceID uint16
}

// PM25Microgram returns the PM2.5 concentration in µg/m³
func (m Measurement) PM25Microgram() float64 {
	return float64(m.PM25) / 10
}

// PM10Microgram returns the PM10 concentration in µg/m³
func (m Measurement) PM10Microgram() float64 {
	return float64(m.PM10) / 10
}

func (m Measurement) String() string {
	return fmt.Sprintf("PM2.5=%.1f µg/m³ PM10=%.1f µg/m³ (id=%04X)",
		m.PM25Microgram(), m.PM10Microgram(), m.DeviceID)
}

// FirmwareVersion is the firmware release date reported by the sensor
type FirmwareVersion struct {
	Year  uint8 // last two digits
	Month uint8
	Day   uint8
}

func (f FirmwareVersion) String() string {
	return fmt.Sprintf("20%02d-%02d-%02d", f.Year, f.Month, f.Day)
}

// Date returns the release date as a time.Time in UTC
func (f FirmwareVersion) Date() time.Time {
	return time.Date(2000+int(f.Year), time.Month(f.Month), int(f.Day), 0, 0, 0, 0, time.UTC)
}

func (m ReportingMode) String() string {
	switch m {
	case ReportActive:
		return "active"
	case ReportQuery:
		return "query"
	default:
		return fmt.Sprintf("unknown(0x%02X)", uint8(m))
	}
}

// ParseReportingMode converts "active" or "query" to a ReportingMode
func ParseReportingMode(s string) (ReportingMode, error) {
	switch s {
	case "active":
		return ReportActive, nil
	case "query":
		return ReportQuery, nil
	default:
		return 0, fmt.Errorf("unknown reporting mode %q (use active or query)", s)
	}
}

func (s WorkState) String() string {
	switch s {
	case StateSleep:
		return "sleep"
	case StateWork:
		return "work"
	default:
		return fmt.Sprintf("unknown(0x%02X)", uint8(s))
	}
}
