// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	pingCount    int
	pingInterval time.Duration
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Test the link by sending firmware queries",
	Long: `Send firmware version queries to the sensor and report the round-trip
time of each reply.

A firmware query has no side effects and is answered in sleep mode too, which
makes it a safe probe for verifying:
  - Serial wiring and baud rate, or the WebSocket bridge and its credentials
  - The device id addressed with --device-id
  - Bidirectional frame flow

Exit codes:
  0 - All pings successful
  1 - One or more pings failed or timed out
  2 - Connection error`,
	Args: cobra.NoArgs,
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().IntVar(&pingCount, "count", 3, "Number of pings to send")
	pingCmd.Flags().DurationVar(&pingInterval, "interval", 100*time.Millisecond, "Delay between pings")
}

func runPing(cmd *cobra.Command, args []string) error {
	if pingCount < 1 {
		return fmt.Errorf("--count must be at least 1")
	}

	sensor, conn, connInfo, err := openSensor()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("sdsprobe - Ping Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Target: %s\n", formatDeviceID(sensor.DeviceID()))
	fmt.Printf("Timeout: %v per ping\n", cfg.Serial.ReadTimeout)
	fmt.Printf("Count: %d pings\n\n", pingCount)

	successCount := 0
	var totalRTT time.Duration

	for i := 1; i <= pingCount; i++ {
		fmt.Printf("Ping %d/%d: ", i, pingCount)

		start := time.Now()
		fw, ok := sensor.QueryFirmwareVersion()
		rtt := time.Since(start)

		if ok {
			successCount++
			totalRTT += rtt
			fmt.Printf("reply, firmware=%s, rtt=%v\n", fw, rtt.Round(time.Millisecond))
		} else if reply := sensor.LastReply(); len(reply) == 0 {
			fmt.Printf("TIMEOUT (no response in %v)\n", cfg.Serial.ReadTimeout)
		} else {
			fmt.Printf("INVALID REPLY: % X\n", reply)
		}

		if i < pingCount {
			time.Sleep(pingInterval)
		}
	}

	failCount := pingCount - successCount

	fmt.Printf("\n--- Ping statistics ---\n")
	fmt.Printf("%d pings sent, %d replies received, %.0f%% loss\n",
		pingCount, successCount, float64(failCount)/float64(pingCount)*100)
	if successCount > 0 {
		fmt.Printf("average rtt=%v\n", (totalRTT / time.Duration(successCount)).Round(time.Millisecond))
	}

	stats := sensor.Stats()
	if stats.Errors() > 0 {
		fmt.Printf("errors: short=%d framing=%d checksum=%d mismatch=%d write=%d\n",
			stats.ShortFrames, stats.FramingErrors, stats.ChecksumErrors, stats.Mismatches, stats.WriteErrors)
	}

	if failCount > 0 {
		return withExitCode(1, fmt.Errorf("%d of %d pings failed", failCount, pingCount))
	}
	return nil
}
