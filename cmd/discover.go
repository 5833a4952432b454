// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/sdsprobe/pkg/sds011"
)

var discoverTimeout int

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find the sensors on the line",
	Long: `Broadcast a firmware query and list every sensor that answers.

Each sensor replies from its own device id, so several sensors sharing a bus
show up as separate entries. Replies are collected until the timeout expires.

Examples:
  sdsprobe discover --port /dev/ttyUSB0
  sdsprobe discover --url ws://bridge.local/serial --timeout 3

Exit codes:
  0 - At least one sensor answered
  1 - No sensor answered before the timeout
  2 - Connection error`,
	Args: cobra.NoArgs,
	RunE: runDiscover,
}

func init() {
	rootCmd.AddCommand(discoverCmd)
	discoverCmd.Flags().IntVar(&discoverTimeout, "timeout", 2, "Timeout in seconds for discovery")
}

// discoveredSensor is a sensor that answered a broadcast firmware query
type discoveredSensor struct {
	deviceID uint16
	firmware sds011.FirmwareVersion
}

func runDiscover(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return withExitCode(2, err)
	}
	defer conn.Close()

	fmt.Printf("sdsprobe - Sensor Discovery\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n\n", discoverTimeout)

	// Short reads let the collector notice the deadline
	if err := conn.SetReadTimeout(100 * time.Millisecond); err != nil {
		return withExitCode(2, err)
	}
	if err := conn.ResetInputBuffer(); err != nil {
		return withExitCode(2, err)
	}

	request := sds011.NewFirmwareRequest(sds011.DeviceIDBroadcast)
	fmt.Printf("Sending firmware query (id=FFFF)...\n")
	if _, err := conn.Write(request.Bytes()); err != nil {
		return withExitCode(2, fmt.Errorf("send failed: %w", err))
	}

	sensors, err := collectDiscoveryReplies(conn, time.Duration(discoverTimeout)*time.Second, func(s discoveredSensor) {
		fmt.Printf("\nSensor found:\n")
		fmt.Printf("  Device ID: %04X\n", s.deviceID)
		fmt.Printf("  Firmware: %s\n", s.firmware)
	})
	if err != nil {
		return withExitCode(2, fmt.Errorf("read failed: %w", err))
	}

	fmt.Printf("\n--- Discovery summary ---\n")
	fmt.Printf("Sensors found: %d\n", len(sensors))

	if len(sensors) == 0 {
		fmt.Fprintf(os.Stderr, "No sensors answered. Check wiring, baud rate and that the sensor is awake.\n")
		return withExitCode(1, fmt.Errorf("no sensors discovered"))
	}
	return nil
}

// collectDiscoveryReplies decodes firmware replies from r until timeout
// elapses. Each device id is reported once. r must return from Read
// periodically, either with data or with a zero-length timeout read.
func collectDiscoveryReplies(r io.Reader, timeout time.Duration, found func(discoveredSensor)) ([]discoveredSensor, error) {
	decoder := sds011.NewDecoder()
	seen := make(map[uint16]bool)
	var sensors []discoveredSensor

	deadline := time.Now().Add(timeout)
	buf := make([]byte, 64)
	for time.Now().Before(deadline) {
		n, err := r.Read(buf)
		if err != nil {
			if err == io.EOF {
				break
			}
			return sensors, err
		}

		for i := 0; i < n; i++ {
			packet, decodeErr := decoder.DecodeByte(buf[i])
			if decodeErr != nil || packet == nil {
				continue
			}

			fw, err := sds011.DecodeFirmware(packet)
			if err != nil {
				// Active-mode data or another reply
				continue
			}

			id := packet.DeviceID()
			if seen[id] {
				continue
			}
			seen[id] = true

			s := discoveredSensor{deviceID: id, firmware: fw}
			sensors = append(sensors, s)
			if found != nil {
				found(s)
			}
		}
	}

	return sensors, nil
}
