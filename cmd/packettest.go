// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/sdsprobe/pkg/sds011"
)

var packetTestTimeout int

var packetTestCmd = &cobra.Command{
	Use:   "packet_test",
	Short: "Test connection by waiting for a valid SDS011 frame",
	Long: `Wait for a valid SDS011 frame on the connection until timeout.

This command connects to a serial port or WebSocket and waits for any frame
with correct framing bytes and checksum, without sending anything. Invalid
bytes are ignored. A sensor in active reporting mode sends a measurement at
least once per working period.

Exit codes:
  0 - Frame received before timeout
  1 - Timeout reached without receiving a valid frame
  2 - Connection error`,
	Args: cobra.NoArgs,
	RunE: runPacketTest,
}

func init() {
	rootCmd.AddCommand(packetTestCmd)
	packetTestCmd.Flags().IntVar(&packetTestTimeout, "timeout", 10, "Timeout in seconds to wait for a frame")
}

// waitResult is what waitForFrame saw before returning
type waitResult struct {
	packet       *sds011.Packet
	invalidBytes int
}

// waitForFrame reads from r until a valid frame decodes or a read fails
func waitForFrame(r io.Reader) (waitResult, error) {
	decoder := sds011.NewDecoder()
	buf := make([]byte, 128)
	consumed := 0

	for {
		n, err := r.Read(buf)
		if err != nil {
			return waitResult{invalidBytes: consumed}, err
		}

		for i := 0; i < n; i++ {
			consumed++
			packet, decodeErr := decoder.DecodeByte(buf[i])
			if decodeErr != nil || packet == nil {
				continue
			}
			return waitResult{
				packet:       packet,
				invalidBytes: consumed - len(packet.Bytes()),
			}, nil
		}
	}
}

func runPacketTest(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return withExitCode(2, err)
	}
	defer conn.Close()

	fmt.Printf("sdsprobe - Packet Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n", packetTestTimeout)
	fmt.Printf("Waiting for valid SDS011 frame...\n\n")

	resultChan := make(chan waitResult, 1)
	errChan := make(chan error, 1)

	go func() {
		result, err := waitForFrame(conn)
		if err != nil {
			errChan <- err
			return
		}
		resultChan <- result
	}()

	select {
	case result := <-resultChan:
		if result.invalidBytes > 0 {
			fmt.Printf("(skipped %d invalid bytes before sync)\n", result.invalidBytes)
		}
		packet := result.packet
		fmt.Printf("SUCCESS: Received valid frame\n")
		fmt.Printf("  Command: %s (0x%02X)\n", sds011.FormatCommandID(packet.CommandID()), packet.CommandID())
		if packet.CommandID() != sds011.CmdData {
			fmt.Printf("  Sub-command: %s (0x%02X)\n", sds011.FormatSubCommand(packet.SubCommand()), packet.SubCommand())
		}
		fmt.Printf("  Device ID: %04X\n", packet.DeviceID())
		fmt.Printf("  Length: %d bytes\n", packet.PayloadLength())
		fmt.Printf("  Checksum: 0x%02X\n\n", packet.Checksum())
		fmt.Print(sds011.FormatPacket(packet))
		return nil

	case err := <-errChan:
		return withExitCode(2, fmt.Errorf("read error: %w", err))

	case <-time.After(time.Duration(packetTestTimeout) * time.Second):
		return withExitCode(1, fmt.Errorf("TIMEOUT: no valid frame received within %d seconds", packetTestTimeout))
	}
}
