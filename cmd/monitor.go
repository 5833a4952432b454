// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Thermoquad/sdsprobe/internal/config"
	"github.com/Thermoquad/sdsprobe/internal/metrics"
	"github.com/Thermoquad/sdsprobe/internal/recordlog"
	"github.com/Thermoquad/sdsprobe/pkg/sds011"
)

var monitorTUI bool

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Poll the sensor and display readings",
	Long: `Query the sensor for a measurement at a fixed interval.

Features:
  - Live PM2.5/PM10 readings with exchange statistics
  - Sleep, wake and working period control (TUI keys s, w, p)
  - Measurement log in CBOR (--record FILE), readable with "history"
  - Prometheus metrics endpoint (--metrics-listen :9100)

The sensor should be in query reporting mode ("set mode query"); in active
mode its own data frames can be read in place of replies.

Supports both serial and WebSocket connections.`,
	Args: cobra.NoArgs,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().Duration("interval", 5*time.Second, "Polling interval")
	monitorCmd.Flags().String("record", "", "Append measurements to this CBOR log file")
	monitorCmd.Flags().String("metrics-listen", "", "Serve Prometheus metrics on this address (e.g. :9100)")
	monitorCmd.Flags().BoolVar(&monitorTUI, "tui", true, "Use terminal UI (false for text mode)")

	for name, key := range map[string]string{
		"interval":       "monitor.interval",
		"record":         "monitor.record",
		"metrics-listen": "metrics.listen",
	} {
		if err := config.BindFlag(monitorCmd.Flags(), name, key); err != nil {
			panic(err)
		}
	}
}

// pollerRequestKind selects an action for the poller goroutine
type pollerRequestKind int

const (
	requestQuery pollerRequestKind = iota
	requestSleep
	requestWake
	requestPeriod
)

type pollerRequest struct {
	kind   pollerRequestKind
	period uint8
}

// Messages emitted by the poller
type measurementMsg struct {
	at          time.Time
	measurement sds011.Measurement
	ok          bool
	stats       sds011.Statistics
}

type firmwareMsg struct {
	firmware sds011.FirmwareVersion
	deviceID uint16
}

type pollerEventMsg struct {
	message string
	isError bool
}

// poller owns the Sensor. Every exchange happens on its goroutine; the UI
// asks for actions through requests.
type poller struct {
	sensor   *sds011.Sensor
	interval time.Duration
	record   *recordlog.Writer      // optional
	metrics  *metrics.SensorMetrics // optional
	requests chan pollerRequest
	now      func() time.Time
}

func newPoller(sensor *sds011.Sensor, interval time.Duration) *poller {
	return &poller{
		sensor:   sensor,
		interval: interval,
		requests: make(chan pollerRequest, 4),
		now:      time.Now,
	}
}

// request queues an action without blocking the caller
func (p *poller) request(req pollerRequest) bool {
	select {
	case p.requests <- req:
		return true
	default:
		return false
	}
}

// run polls until ctx is cancelled, passing results to emit
func (p *poller) run(ctx context.Context, emit func(tea.Msg)) {
	p.identify(emit)
	p.poll(emit)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(emit)
		case req := <-p.requests:
			p.handle(req, emit)
		}
	}
}

// identify reads the firmware version once at startup
func (p *poller) identify(emit func(tea.Msg)) {
	fw, ok := p.sensor.QueryFirmwareVersion()
	if !ok {
		emit(pollerEventMsg{message: "Firmware query failed", isError: true})
		return
	}

	deviceID := sds011.ParsePacket(p.sensor.LastReply()).DeviceID()
	if p.metrics != nil {
		p.metrics.ObserveFirmware(fw, deviceID)
	}
	emit(firmwareMsg{firmware: fw, deviceID: deviceID})
}

// poll performs one measurement query
func (p *poller) poll(emit func(tea.Msg)) {
	at := p.now()
	m, ok := p.sensor.QueryData()

	if p.metrics != nil {
		if ok {
			p.metrics.ObserveMeasurement(m, at)
		} else {
			p.metrics.ObserveFailure()
		}
	}

	if p.record != nil {
		var err error
		if ok {
			err = p.record.Append(m, at)
		} else {
			err = p.record.AppendFailure(p.sensor.DeviceID(), at)
		}
		if err != nil {
			logger.Warn("record log write failed", zap.Error(err))
			emit(pollerEventMsg{message: fmt.Sprintf("Record log: %v", err), isError: true})
		}
	}

	emit(measurementMsg{at: at, measurement: m, ok: ok, stats: p.sensor.Stats()})
}

func (p *poller) handle(req pollerRequest, emit func(tea.Msg)) {
	switch req.kind {
	case requestQuery:
		p.poll(emit)

	case requestSleep:
		if p.sensor.SetSleep() {
			emit(pollerEventMsg{message: "Sensor sleeping"})
		} else {
			emit(pollerEventMsg{message: "Sleep command not confirmed", isError: true})
		}

	case requestWake:
		if p.sensor.SetWork() {
			emit(pollerEventMsg{message: "Sensor working"})
		} else {
			emit(pollerEventMsg{message: "Wake command not confirmed", isError: true})
		}

	case requestPeriod:
		if p.sensor.SetWorkingPeriod(req.period) {
			emit(pollerEventMsg{message: fmt.Sprintf("Working period set to %s", formatWorkingPeriod(req.period))})
		} else {
			emit(pollerEventMsg{message: fmt.Sprintf("Working period %d not confirmed", req.period), isError: true})
		}
	}
}

func runMonitor(cmd *cobra.Command, args []string) error {
	sensor, conn, connInfo, err := openSensor()
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := newPoller(sensor, cfg.Monitor.Interval)

	if path := cfg.Monitor.Record; path != "" {
		w, err := recordlog.Open(path)
		if err != nil {
			return err
		}
		defer w.Close()
		p.record = w
		logger.Info("recording measurements", zap.String("path", path), zap.String("run_id", w.RunID()))
	}

	if listen := cfg.Metrics.Listen; listen != "" {
		reg := metrics.NewRegistry()
		p.metrics = metrics.NewSensorMetrics(reg)
		go func() {
			if err := metrics.Serve(ctx, listen, cfg.Metrics.Path, reg); err != nil {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
		logger.Info("serving metrics", zap.String("listen", listen), zap.String("path", cfg.Metrics.Path))
	}

	if monitorTUI {
		return runMonitorTUI(ctx, p, connInfo)
	}
	return runMonitorText(ctx, p, connInfo, os.Stdout)
}

// runMonitorTUI runs the poller behind the bubbletea UI
func runMonitorTUI(ctx context.Context, p *poller, connInfo string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := initialMonitorModel(p, connInfo)
	prog := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	go p.run(ctx, prog.Send)

	if _, err := prog.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("TUI error: %v", err)
	}
	return nil
}

// runMonitorText prints one line per poll until ctx is cancelled
func runMonitorText(ctx context.Context, p *poller, connInfo string, out io.Writer) error {
	fmt.Fprintf(out, "sdsprobe - Monitor\n")
	fmt.Fprintf(out, "Connection: %s\n", connInfo)
	fmt.Fprintf(out, "Target: %s\n", formatDeviceID(p.sensor.DeviceID()))
	fmt.Fprintf(out, "Interval: %v\n", p.interval)
	if p.record != nil {
		fmt.Fprintf(out, "Recording run %s\n", p.record.RunID())
	}
	fmt.Fprintf(out, "Press Ctrl+C to exit\n\n")

	var last sds011.Statistics
	p.run(ctx, func(msg tea.Msg) {
		last = printMonitorEvent(out, msg, last)
	})

	fmt.Fprintln(out)
	fmt.Fprint(out, last.String())
	return nil
}

// printMonitorEvent writes a poller message as text and returns the latest
// statistics seen
func printMonitorEvent(out io.Writer, msg tea.Msg, last sds011.Statistics) sds011.Statistics {
	switch msg := msg.(type) {
	case firmwareMsg:
		fmt.Fprintf(out, "Sensor %04X, firmware %s\n\n", msg.deviceID, msg.firmware)

	case measurementMsg:
		timestamp := msg.at.Format("15:04:05")
		if msg.ok {
			fmt.Fprintf(out, "[%s] PM2.5=%6.1f µg/m³  PM10=%6.1f µg/m³\n",
				timestamp, msg.measurement.PM25Microgram(), msg.measurement.PM10Microgram())
		} else {
			fmt.Fprintf(out, "[%s] no valid reply (%d of %d exchanges failed)\n",
				timestamp, msg.stats.Errors(), msg.stats.Total)
		}
		return msg.stats

	case pollerEventMsg:
		prefix := "INFO"
		if msg.isError {
			prefix = "ERROR"
		}
		fmt.Fprintf(out, "[%s] %s: %s\n", time.Now().Format("15:04:05"), prefix, msg.message)
	}
	return last
}
