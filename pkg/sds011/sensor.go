// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sds011

import (
	"fmt"

	"go.uber.org/zap"
)

// Sensor drives one SDS011 sensor over a Transport. Each operation builds a
// request, writes it, reads one ReplyFrameSize reply and decodes it.
//
// Operations report success as a bool and leave their outputs at the zero
// value on failure. Short reads, framing errors, checksum errors and replies
// to a different operation are not distinguished; the cause is logged and
// counted in Stats.
//
// A Sensor owns its transport exclusively and is not safe for concurrent use.
type Sensor struct {
	transport Transport
	config    Config
	logger    *zap.Logger
	deviceID  uint16
	stats     *Statistics
	lastReply []byte
}

// New creates a Sensor communicating over t.
//
// Example:
//
//	port, _ := serial.Open("/dev/ttyUSB0", &serial.Mode{BaudRate: sds011.DefaultBaudRate})
//	sensor := sds011.New(port, sds011.WithRetryPolicy(sds011.FixedRetry(3, 200*time.Millisecond)))
//	if err := sensor.Begin(); err != nil {
//	    log.Fatal(err)
//	}
//	m, ok := sensor.QueryData()
func New(t Transport, opts ...Option) *Sensor {
	if t == nil {
		panic("transport cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Sensor{
		transport: t,
		config:    cfg,
		logger:    cfg.Logger,
		deviceID:  cfg.DeviceID,
		stats:     NewStatistics(),
	}
}

// Begin performs one-time transport setup: it applies the read timeout and
// discards stale input when the transport supports it. The caller must have
// opened and configured the line beforehand.
func (s *Sensor) Begin() error {
	if t, ok := s.transport.(readTimeoutSetter); ok && s.config.ReadTimeout > 0 {
		if err := t.SetReadTimeout(s.config.ReadTimeout); err != nil {
			return fmt.Errorf("set read timeout: %w", err)
		}
	}
	if t, ok := s.transport.(inputResetter); ok {
		if err := t.ResetInputBuffer(); err != nil {
			return fmt.Errorf("reset input buffer: %w", err)
		}
	}

	s.logger.Debug("sensor ready",
		zap.String("device_id", fmt.Sprintf("%04X", s.deviceID)),
		zap.Duration("read_timeout", s.config.ReadTimeout),
		zap.Int("attempts", s.config.Retry.attempts()),
	)
	return nil
}

// DeviceID returns the id requests are addressed to
func (s *Sensor) DeviceID() uint16 {
	return s.deviceID
}

// Stats returns a snapshot of the exchange statistics
func (s *Sensor) Stats() Statistics {
	s.stats.CalculateRates()
	return *s.stats
}

// LastReply returns the raw bytes received by the most recent exchange
func (s *Sensor) LastReply() []byte {
	out := make([]byte, len(s.lastReply))
	copy(out, s.lastReply)
	return out
}

// QueryDataReportingMode reads the data reporting mode
func (s *Sensor) QueryDataReportingMode() (ReportingMode, bool) {
	var mode ReportingMode
	ok := s.exchange("query reporting mode", NewReportingModeQuery(s.deviceID), func(p *Packet) error {
		var err error
		mode, err = DecodeReportingMode(p)
		return err
	})
	if !ok {
		return 0, false
	}
	return mode, true
}

// SetDataReportingMode sets the data reporting mode. The sensor must echo the
// requested mode.
func (s *Sensor) SetDataReportingMode(mode ReportingMode) bool {
	return s.exchange("set reporting mode", NewReportingModeCommand(s.deviceID, mode), func(p *Packet) error {
		got, err := DecodeReportingMode(p)
		if err != nil {
			return err
		}
		if got != mode {
			return fmt.Errorf("%w: mode %s, requested %s", ErrUnexpectedReply, got, mode)
		}
		return nil
	})
}

// QueryData reads one PM2.5/PM10 measurement
func (s *Sensor) QueryData() (Measurement, bool) {
	var m Measurement
	ok := s.exchange("query data", NewQueryDataRequest(s.deviceID), func(p *Packet) error {
		var err error
		m, err = DecodeMeasurement(p)
		return err
	})
	if !ok {
		return Measurement{}, false
	}
	return m, true
}

// QueryFirmwareVersion reads the firmware release date
func (s *Sensor) QueryFirmwareVersion() (FirmwareVersion, bool) {
	var fw FirmwareVersion
	ok := s.exchange("query firmware", NewFirmwareRequest(s.deviceID), func(p *Packet) error {
		var err error
		fw, err = DecodeFirmware(p)
		return err
	})
	if !ok {
		return FirmwareVersion{}, false
	}
	return fw, true
}

// SetDeviceID changes the sensor's id. The setting survives power off. When
// this Sensor addresses a specific id, later requests follow the new id.
func (s *Sensor) SetDeviceID(id uint16) bool {
	ok := s.exchange("set device id", NewSetDeviceIDRequest(s.deviceID, id), func(p *Packet) error {
		got, err := DecodeDeviceID(p)
		if err != nil {
			return err
		}
		if got != id {
			return fmt.Errorf("%w: id %04X, requested %04X", ErrUnexpectedReply, got, id)
		}
		return nil
	})
	if ok && s.deviceID != DeviceIDBroadcast {
		s.deviceID = id
	}
	return ok
}

// SetSleep turns off fan and laser
func (s *Sensor) SetSleep() bool {
	return s.setWorkState(StateSleep)
}

// SetWork turns fan and laser back on. Readings need about 30 seconds to
// settle afterwards.
func (s *Sensor) SetWork() bool {
	return s.setWorkState(StateWork)
}

func (s *Sensor) setWorkState(state WorkState) bool {
	return s.exchange("set "+state.String(), NewWorkStateCommand(s.deviceID, state), func(p *Packet) error {
		got, err := DecodeWorkState(p)
		if err != nil {
			return err
		}
		if got != state {
			return fmt.Errorf("%w: state %s, requested %s", ErrUnexpectedReply, got, state)
		}
		return nil
	})
}

// QueryWorkState reads whether the sensor is sleeping or working
func (s *Sensor) QueryWorkState() (WorkState, bool) {
	var state WorkState
	ok := s.exchange("query work state", NewWorkStateQuery(s.deviceID), func(p *Packet) error {
		var err error
		state, err = DecodeWorkState(p)
		return err
	})
	if !ok {
		return 0, false
	}
	return state, true
}

// QueryWorkingPeriod reads the working period in minutes (0 = continuous)
func (s *Sensor) QueryWorkingPeriod() (uint8, bool) {
	var period uint8
	ok := s.exchange("query working period", NewWorkingPeriodQuery(s.deviceID), func(p *Packet) error {
		var err error
		period, err = DecodeWorkingPeriod(p)
		return err
	})
	if !ok {
		return 0, false
	}
	return period, true
}

// SetWorkingPeriod sets the working period in minutes. Values above
// MaxWorkingPeriod are rejected without contacting the sensor.
func (s *Sensor) SetWorkingPeriod(minutes uint8) bool {
	if minutes > MaxWorkingPeriod {
		s.logger.Debug("working period out of range",
			zap.Uint8("minutes", minutes),
			zap.Int("max", MaxWorkingPeriod),
		)
		return false
	}
	return s.exchange("set working period", NewWorkingPeriodCommand(s.deviceID, minutes), func(p *Packet) error {
		got, err := DecodeWorkingPeriod(p)
		if err != nil {
			return err
		}
		if got != minutes {
			return fmt.Errorf("%w: period %d, requested %d", ErrUnexpectedReply, got, minutes)
		}
		return nil
	})
}

// exchange runs request/reply round trips until decode succeeds or the
// retry policy is exhausted.
func (s *Sensor) exchange(op string, request *Packet, decode func(*Packet) error) bool {
	attempts := s.config.Retry.attempts()

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			s.stats.Retries++
			if delay := s.config.Retry.Backoff(attempt - 1); delay > 0 {
				s.config.sleep(delay)
			}
		}

		err := s.roundTrip(request, decode)
		s.stats.Update(ClassifyError(err))
		if err == nil {
			s.logger.Debug("exchange ok",
				zap.String("op", op),
				zap.Int("attempt", attempt),
			)
			return true
		}

		s.logger.Debug("exchange failed",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Binary("reply", s.lastReply),
			zap.Error(err),
		)
	}

	s.logger.Warn("operation failed",
		zap.String("op", op),
		zap.Int("attempts", attempts),
	)
	return false
}

// roundTrip writes request, reads one reply frame and decodes it. Input
// left over from an earlier exchange or from active reporting is discarded
// first, when the transport supports it.
func (s *Sensor) roundTrip(request *Packet, decode func(*Packet) error) error {
	s.lastReply = nil

	if t, ok := s.transport.(inputResetter); ok {
		if err := t.ResetInputBuffer(); err != nil {
			return fmt.Errorf("%w: reset input: %v", ErrWrite, err)
		}
	}

	if _, err := s.transport.Write(request.Bytes()); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}

	data, err := readFrame(s.transport, ReplyFrameSize)
	s.lastReply = data
	if err != nil && len(data) < ReplyFrameSize {
		return fmt.Errorf("%w: read %d of %d bytes: %v", ErrShortFrame, len(data), ReplyFrameSize, err)
	}

	return decode(ParsePacket(data))
}
