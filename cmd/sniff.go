// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Thermoquad/sdsprobe/pkg/sds011"
)

var (
	sniffErrorsOnly   bool
	sniffRaw          bool
	sniffStatsSeconds int
)

var sniffCmd = &cobra.Command{
	Use:   "sniff",
	Short: "Decode and validate frames seen on the line",
	Long: `Continuously decode SDS011 frames as they arrive, without sending anything.

In active reporting mode the sensor pushes a measurement every second (or once
per working period). Sniffing a line shared with another host also shows the
requests it sends and the replies to them.

Each frame is printed with timestamp, command, device id and decoded contents,
then checked for:
  - Framing and checksum errors
  - Unknown commands and sub-commands
  - Out-of-range values (concentration, working period, firmware date)

Decode errors are ignored until the first valid frame, since a line joined
mid-frame always starts with garbage. Use --errors-only to print problems
only, and --stats-interval for periodic statistics.`,
	Args: cobra.NoArgs,
	RunE: runSniff,
}

func init() {
	rootCmd.AddCommand(sniffCmd)
	sniffCmd.Flags().BoolVar(&sniffErrorsOnly, "errors-only", false, "Only print frames with errors")
	sniffCmd.Flags().BoolVar(&sniffRaw, "raw", false, "Also print every received chunk in hex")
	sniffCmd.Flags().IntVar(&sniffStatsSeconds, "stats-interval", 0, "Statistics interval in seconds (0 disables)")
}

var (
	sniffErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	sniffWarnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	sniffOKStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	sniffDimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// sniffer decodes a byte stream and reports frames to out
type sniffer struct {
	out       io.Writer
	decoder   *sds011.Decoder
	stats     *sds011.Statistics
	showValid bool
	showRaw   bool

	// Sync tracking - decode errors are expected until the first valid frame
	synchronized bool
	preSync      int
}

func newSniffer(out io.Writer, showValid, showRaw bool) *sniffer {
	return &sniffer{
		out:       out,
		decoder:   sds011.NewDecoder(),
		stats:     sds011.NewStatistics(),
		showValid: showValid,
		showRaw:   showRaw,
	}
}

// feed processes one chunk read from the line
func (s *sniffer) feed(data []byte) {
	if s.showRaw && len(data) > 0 {
		fmt.Fprintf(s.out, "%s %s\n",
			sniffDimStyle.Render(time.Now().Format("15:04:05.000")),
			sniffDimStyle.Render(fmt.Sprintf("RAW %d bytes: %s", len(data), sds011.FormatHex(data))))
	}

	for _, b := range data {
		if !s.synchronized {
			s.preSync++
		}

		packet, err := s.decoder.DecodeByte(b)
		if err != nil {
			if s.synchronized {
				s.stats.Update(sds011.ClassifyError(err))
				s.printDecodeError(err)
			}
			continue
		}
		if packet == nil {
			continue
		}

		if !s.synchronized {
			s.synchronized = true
			skipped := s.preSync - len(packet.Bytes())
			if skipped > 0 {
				fmt.Fprintf(s.out, "[SYNC] Synchronized after skipping %d invalid bytes\n\n", skipped)
			} else {
				fmt.Fprintf(s.out, "[SYNC] Synchronized\n\n")
			}
		}

		s.stats.Update(sds011.OutcomeOK)

		issues := sds011.ValidatePacket(packet)
		if len(issues) > 0 {
			s.printValidationErrors(packet, issues)
		} else if s.showValid {
			fmt.Fprint(s.out, sds011.FormatPacket(packet))
		}
	}
}

func (s *sniffer) printDecodeError(err error) {
	timestamp := time.Now().Format("15:04:05.000")
	label := "DECODE ERROR:"
	if errors.Is(err, sds011.ErrChecksum) {
		label = "CHECKSUM ERROR:"
	}
	fmt.Fprintf(s.out, "[%s] %s %v\n", timestamp, sniffErrorStyle.Render(label), err)
	fmt.Fprintf(s.out, "  >>> FRAME DROPPED <<<\n\n")
}

func (s *sniffer) printValidationErrors(packet *sds011.Packet, issues []sds011.ValidationError) {
	timestamp := packet.Timestamp().Format("15:04:05.000")
	name := sds011.FormatCommandID(packet.CommandID())

	fmt.Fprintf(s.out, "[%s] %s %s (0x%02X) id=%04X\n",
		timestamp, sniffWarnStyle.Render("VALIDATION ERROR:"), name, packet.CommandID(), packet.DeviceID())
	fmt.Fprintf(s.out, "  Checksum: %s\n", sniffOKStyle.Render("OK"))

	for i, issue := range issues {
		style := sniffWarnStyle
		if issue.Type == sds011.AnomalyLengthMismatch || issue.Type == sds011.AnomalyUnknownCommand {
			style = sniffErrorStyle
		}
		fmt.Fprintf(s.out, "  Issue %d: %s\n", i+1, style.Render(issue.Message))
	}

	fmt.Fprintf(s.out, "  Frame: %s\n", sds011.FormatHex(packet.Bytes()))
	fmt.Fprintf(s.out, "  >>> FRAME REJECTED <<<\n\n")
}

func runSniff(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return withExitCode(2, err)
	}
	defer conn.Close()

	fmt.Printf("sdsprobe - Frame Sniffer\n")
	fmt.Printf("Connection: %s\n", connInfo)
	if sniffStatsSeconds > 0 {
		fmt.Printf("Statistics interval: %d seconds\n", sniffStatsSeconds)
	}
	if sniffErrorsOnly {
		fmt.Printf("Mode: Errors only\n")
	} else {
		fmt.Printf("Mode: All frames\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	s := newSniffer(os.Stdout, !sniffErrorsOnly, sniffRaw)

	// Non-blocking reads so statistics print on time
	chunks := make(chan []byte, 10)
	readErr := make(chan error, 1)
	go func() {
		buf := make([]byte, 128)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				if errors.Is(err, ErrConnectionClosed) || errors.Is(err, io.EOF) {
					readErr <- err
					return
				}
				logger.Warn("read error", zap.Error(err))
				time.Sleep(10 * time.Millisecond)
				continue
			}
			if n == 0 {
				continue
			}
			data := make([]byte, n)
			copy(data, buf[:n])
			chunks <- data
		}
	}()

	var statsTick <-chan time.Time
	if sniffStatsSeconds > 0 {
		ticker := time.NewTicker(time.Duration(sniffStatsSeconds) * time.Second)
		defer ticker.Stop()
		statsTick = ticker.C
	}

	for {
		select {
		case data := <-chunks:
			s.feed(data)

		case err := <-readErr:
			fmt.Printf("\nConnection closed: %v\n\n", err)
			fmt.Print(s.stats.String())
			return nil

		case <-statsTick:
			fmt.Println()
			fmt.Print(s.stats.String())
			fmt.Println()
		}
	}
}
