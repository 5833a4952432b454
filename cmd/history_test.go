// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Thermoquad/sdsprobe/internal/recordlog"
)

func TestPrintRunSummaries(t *testing.T) {
	start := time.UnixMilli(1700000000000)
	runs := []recordlog.RunSummary{
		{
			RunID:    "run-a",
			Start:    start,
			End:      start.Add(90 * time.Second),
			Total:    3,
			Failed:   1,
			MeanPM25: 12.3,
			MaxPM25:  20,
			MeanPM10: 30,
			MaxPM10:  41.5,
		},
		{
			RunID:  "run-b",
			Start:  start.Add(time.Hour),
			End:    start.Add(time.Hour),
			Total:  2,
			Failed: 2,
		},
	}

	var buf bytes.Buffer
	printRunSummaries(&buf, runs)
	out := buf.String()

	assert.Contains(t, out, "Run run-a\n")
	assert.Contains(t, out, "(1 minute and 30 seconds)")
	assert.Contains(t, out, "Queries:  3 (1 failed)")
	assert.Contains(t, out, "PM2.5:    mean 12.3 µg/m³, max 20.0 µg/m³")
	assert.Contains(t, out, "PM10:     mean 30.0 µg/m³, max 41.5 µg/m³")

	// A run with only failures has no concentration lines
	assert.Contains(t, out, "Run run-b\n")
	assert.Contains(t, out, "Queries:  2 (2 failed)")
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("PM2.5:")))
}

func TestPrintRunSummaries_Empty(t *testing.T) {
	var buf bytes.Buffer
	printRunSummaries(&buf, nil)
	assert.Equal(t, "No records\n", buf.String())
}

func TestPrintRecords(t *testing.T) {
	at := time.UnixMilli(1700000000000)
	records := []recordlog.Record{
		{RunID: "r", UnixMs: at.UnixMilli(), DeviceID: 0xA160, PM25: 123, PM10: 456, OK: true},
		{RunID: "r", UnixMs: at.Add(time.Second).UnixMilli(), DeviceID: 0xA160},
	}

	var buf bytes.Buffer
	printRecords(&buf, records)
	out := buf.String()

	assert.Contains(t, out, "TIME")
	assert.Contains(t, out, "A160")
	assert.Contains(t, out, "12.3")
	assert.Contains(t, out, "45.6")
	assert.Contains(t, out, "\n2 records\n")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	failed := string(lines[2])
	assert.Contains(t, failed, "-")
	assert.NotContains(t, failed, ".")
}
