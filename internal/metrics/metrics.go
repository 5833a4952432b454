// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package metrics exposes sensor readings and exchange outcomes to Prometheus.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Thermoquad/sdsprobe/pkg/sds011"
)

// NewRegistry creates a registry with the Go and process collectors
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler returns the HTTP handler serving reg
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// SensorMetrics holds the sensor gauges and counters
type SensorMetrics struct {
	PM25          prometheus.Gauge
	PM10          prometheus.Gauge
	Exchanges     *prometheus.CounterVec // labels: result=ok|error
	LastSuccess   prometheus.Gauge
	FirmwareBuild *prometheus.GaugeVec // labels: version, device_id
}

// NewSensorMetrics registers and returns the sensor metrics
func NewSensorMetrics(reg prometheus.Registerer) *SensorMetrics {
	m := &SensorMetrics{
		PM25: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sds011_pm25_ugm3",
			Help: "Last PM2.5 concentration in micrograms per cubic metre.",
		}),
		PM10: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sds011_pm10_ugm3",
			Help: "Last PM10 concentration in micrograms per cubic metre.",
		}),
		Exchanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sds011_exchanges_total",
			Help: "Sensor queries by result.",
		}, []string{"result"}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sds011_last_success_timestamp_seconds",
			Help: "Unix time of the last successful measurement.",
		}),
		FirmwareBuild: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sds011_firmware_info",
			Help: "Firmware release date of the sensor (always 1).",
		}, []string{"version", "device_id"}),
	}
	reg.MustRegister(m.PM25, m.PM10, m.Exchanges, m.LastSuccess, m.FirmwareBuild)
	return m
}

// ObserveMeasurement records a successful measurement
func (m *SensorMetrics) ObserveMeasurement(meas sds011.Measurement, at time.Time) {
	m.PM25.Set(meas.PM25Microgram())
	m.PM10.Set(meas.PM10Microgram())
	m.Exchanges.WithLabelValues("ok").Inc()
	m.LastSuccess.Set(float64(at.Unix()))
}

// ObserveFailure records a failed query
func (m *SensorMetrics) ObserveFailure() {
	m.Exchanges.WithLabelValues("error").Inc()
}

// ObserveFirmware records the sensor's firmware version
func (m *SensorMetrics) ObserveFirmware(fw sds011.FirmwareVersion, deviceID uint16) {
	m.FirmwareBuild.Reset()
	m.FirmwareBuild.WithLabelValues(fw.String(), fmt.Sprintf("%04X", deviceID)).Set(1)
}

// Serve runs an HTTP server exposing reg at path until ctx is cancelled
func Serve(ctx context.Context, listen, path string, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle(path, Handler(reg))

	srv := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
