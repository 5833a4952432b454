// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/sdsprobe/pkg/sds011"
)

var queryJSON bool

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Read one PM2.5/PM10 measurement",
	Long: `Ask the sensor for a measurement and print the PM2.5 and PM10
concentrations in µg/m³.

The sensor must be awake. In active reporting mode it also pushes data on its
own, which may arrive in place of the reply; use "set mode query" first when
polling.

Exit codes:
  0 - Measurement received
  1 - No valid reply
  2 - Connection error`,
	Args: cobra.NoArgs,
	RunE: runQuery,
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show firmware version and current settings",
	Long: `Query the firmware version, reporting mode, work state and working
period of the sensor.

Exit codes:
  0 - Firmware version received
  1 - No valid reply
  2 - Connection error`,
	Args: cobra.NoArgs,
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(infoCmd)
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "Print the measurement as JSON")
}

// measurementJSON is the --json output of query
type measurementJSON struct {
	Time     time.Time `json:"time"`
	DeviceID string    `json:"device_id"`
	PM25     float64   `json:"pm25"`
	PM10     float64   `json:"pm10"`
}

func runQuery(cmd *cobra.Command, args []string) error {
	sensor, conn, _, err := openSensor()
	if err != nil {
		return err
	}
	defer conn.Close()

	m, ok := sensor.QueryData()
	if !ok {
		return withExitCode(1, fmt.Errorf("no valid reply from sensor %s", formatDeviceID(sensor.DeviceID())))
	}

	if queryJSON {
		return writeMeasurementJSON(os.Stdout, m, time.Now())
	}
	printMeasurement(os.Stdout, m)
	return nil
}

func writeMeasurementJSON(w io.Writer, m sds011.Measurement, at time.Time) error {
	enc := json.NewEncoder(w)
	return enc.Encode(measurementJSON{
		Time:     at.UTC(),
		DeviceID: fmt.Sprintf("%04X", m.DeviceID),
		PM25:     m.PM25Microgram(),
		PM10:     m.PM10Microgram(),
	})
}

func printMeasurement(w io.Writer, m sds011.Measurement) {
	fmt.Fprintf(w, "PM2.5:  %.1f µg/m³\n", m.PM25Microgram())
	fmt.Fprintf(w, "PM10:   %.1f µg/m³\n", m.PM10Microgram())
	fmt.Fprintf(w, "Device: %04X\n", m.DeviceID)
}

func runInfo(cmd *cobra.Command, args []string) error {
	sensor, conn, connInfo, err := openSensor()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("sdsprobe - Sensor Info\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Target: %s\n\n", formatDeviceID(sensor.DeviceID()))

	fw, ok := sensor.QueryFirmwareVersion()
	if !ok {
		return withExitCode(1, fmt.Errorf("no valid reply to firmware query"))
	}
	fmt.Printf("Firmware:        %s\n", fw)
	fmt.Printf("Device ID:       %04X\n", sds011.ParsePacket(sensor.LastReply()).DeviceID())

	if mode, ok := sensor.QueryDataReportingMode(); ok {
		fmt.Printf("Reporting mode:  %s\n", mode)
	} else {
		fmt.Printf("Reporting mode:  (no reply)\n")
	}

	if state, ok := sensor.QueryWorkState(); ok {
		fmt.Printf("Work state:      %s\n", state)
	} else {
		fmt.Printf("Work state:      (no reply)\n")
	}

	if period, ok := sensor.QueryWorkingPeriod(); ok {
		fmt.Printf("Working period:  %s\n", formatWorkingPeriod(period))
	} else {
		fmt.Printf("Working period:  (no reply)\n")
	}

	return nil
}

func formatWorkingPeriod(minutes uint8) string {
	switch minutes {
	case 0:
		return "continuous"
	case 1:
		return "1 minute"
	default:
		return fmt.Sprintf("%d minutes", minutes)
	}
}
