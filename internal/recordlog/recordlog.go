// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package recordlog stores measurements as a sequence of CBOR records in an
// append-only file. Every process appending to the file stamps its records
// with its own run id, so one file can hold several monitoring sessions.
package recordlog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/Thermoquad/sdsprobe/pkg/sds011"
)

// Record is one logged query. Keys are small integers to keep records compact.
type Record struct {
	RunID    string `cbor:"0,keyasint"`
	UnixMs   int64  `cbor:"1,keyasint"`
	DeviceID uint16 `cbor:"2,keyasint"`
	PM25     uint16 `cbor:"3,keyasint"`
	PM10     uint16 `cbor:"4,keyasint"`
	OK       bool   `cbor:"5,keyasint"`
}

// Time returns the record time
func (r Record) Time() time.Time {
	return time.UnixMilli(r.UnixMs)
}

// Measurement returns the recorded measurement
func (r Record) Measurement() sds011.Measurement {
	return sds011.Measurement{PM25: r.PM25, PM10: r.PM10, DeviceID: r.DeviceID}
}

// Writer appends records to a log file
type Writer struct {
	file  *os.File
	enc   *cbor.Encoder
	runID string
}

// Open opens path for appending, creating it if needed
func Open(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open record log: %w", err)
	}
	return &Writer{
		file:  f,
		enc:   cbor.NewEncoder(f),
		runID: uuid.NewString(),
	}, nil
}

// RunID returns the id stamped on records written by w
func (w *Writer) RunID() string {
	return w.runID
}

// Append logs a successful measurement
func (w *Writer) Append(m sds011.Measurement, at time.Time) error {
	return w.write(Record{
		RunID:    w.runID,
		UnixMs:   at.UnixMilli(),
		DeviceID: m.DeviceID,
		PM25:     m.PM25,
		PM10:     m.PM10,
		OK:       true,
	})
}

// AppendFailure logs a query that got no valid reply
func (w *Writer) AppendFailure(deviceID uint16, at time.Time) error {
	return w.write(Record{
		RunID:    w.runID,
		UnixMs:   at.UnixMilli(),
		DeviceID: deviceID,
	})
}

func (w *Writer) write(r Record) error {
	if err := w.enc.Encode(r); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// Close closes the log file
func (w *Writer) Close() error {
	return w.file.Close()
}

// Read decodes all records from r
func Read(r io.Reader) ([]Record, error) {
	dec := cbor.NewDecoder(r)

	var records []Record
	for {
		var rec Record
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return records, fmt.Errorf("record %d: %w", len(records), err)
		}
		records = append(records, rec)
	}
}

// ReadFile decodes all records from the file at path
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open record log: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// RunSummary aggregates the records of one run
type RunSummary struct {
	RunID    string
	Start    time.Time
	End      time.Time
	Total    int
	Failed   int
	MeanPM25 float64 // µg/m³ over successful records
	MeanPM10 float64
	MaxPM25  float64
	MaxPM10  float64
}

// Summarize groups records by run, ordered by first record time
func Summarize(records []Record) []RunSummary {
	byRun := make(map[string]*RunSummary)
	var order []string

	for _, r := range records {
		s, ok := byRun[r.RunID]
		if !ok {
			s = &RunSummary{RunID: r.RunID, Start: r.Time(), End: r.Time()}
			byRun[r.RunID] = s
			order = append(order, r.RunID)
		}

		t := r.Time()
		if t.Before(s.Start) {
			s.Start = t
		}
		if t.After(s.End) {
			s.End = t
		}

		s.Total++
		if !r.OK {
			s.Failed++
			continue
		}

		m := r.Measurement()
		n := float64(s.Total - s.Failed)
		s.MeanPM25 += (m.PM25Microgram() - s.MeanPM25) / n
		s.MeanPM10 += (m.PM10Microgram() - s.MeanPM10) / n
		if m.PM25Microgram() > s.MaxPM25 {
			s.MaxPM25 = m.PM25Microgram()
		}
		if m.PM10Microgram() > s.MaxPM10 {
			s.MaxPM10 = m.PM10Microgram()
		}
	}

	summaries := make([]RunSummary, 0, len(order))
	for _, id := range order {
		summaries = append(summaries, *byRun[id])
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].Start.Before(summaries[j].Start)
	})
	return summaries
}
