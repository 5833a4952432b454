// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/sdsprobe/internal/recordlog"
)

var historyRecords bool

var historyCmd = &cobra.Command{
	Use:   "history FILE",
	Short: "Summarise a measurement log written by monitor --record",
	Long: `Read a CBOR measurement log and print one summary per monitoring run:
time span, query count, failures, and mean and peak concentrations.

Use --records to list every record instead.`,
	Args: cobra.ExactArgs(1),
	// Works offline; no connection flags are needed
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().BoolVar(&historyRecords, "records", false, "List every record")
}

func runHistory(cmd *cobra.Command, args []string) error {
	records, err := recordlog.ReadFile(args[0])
	if err != nil && len(records) == 0 {
		return err
	}
	if err != nil {
		// Keep what decoded before a truncated tail
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	if historyRecords {
		printRecords(os.Stdout, records)
		return nil
	}
	printRunSummaries(os.Stdout, recordlog.Summarize(records))
	return nil
}

func printRecords(w io.Writer, records []recordlog.Record) {
	fmt.Fprintf(w, "%-19s  %-6s  %9s  %9s\n", "TIME", "DEVICE", "PM2.5", "PM10")
	for _, r := range records {
		timestamp := r.Time().Local().Format("2006-01-02 15:04:05")
		if !r.OK {
			fmt.Fprintf(w, "%-19s  %04X    %9s  %9s\n", timestamp, r.DeviceID, "-", "-")
			continue
		}
		m := r.Measurement()
		fmt.Fprintf(w, "%-19s  %04X    %9.1f  %9.1f\n", timestamp, r.DeviceID, m.PM25Microgram(), m.PM10Microgram())
	}
	fmt.Fprintf(w, "\n%d records\n", len(records))
}

func printRunSummaries(w io.Writer, runs []recordlog.RunSummary) {
	if len(runs) == 0 {
		fmt.Fprintf(w, "No records\n")
		return
	}

	for i, run := range runs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "Run %s\n", run.RunID)
		fmt.Fprintf(w, "  Period:   %s - %s (%s)\n",
			run.Start.Local().Format("2006-01-02 15:04:05"),
			run.End.Local().Format("2006-01-02 15:04:05"),
			formatUptime(uint64(run.End.Sub(run.Start)/time.Millisecond)))
		fmt.Fprintf(w, "  Queries:  %d (%d failed)\n", run.Total, run.Failed)
		if run.Total > run.Failed {
			fmt.Fprintf(w, "  PM2.5:    mean %.1f µg/m³, max %.1f µg/m³\n", run.MeanPM25, run.MaxPM25)
			fmt.Fprintf(w, "  PM10:     mean %.1f µg/m³, max %.1f µg/m³\n", run.MeanPM10, run.MaxPM10)
		}
	}
}
