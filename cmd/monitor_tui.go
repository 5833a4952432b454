// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/sdsprobe/pkg/sds011"
)

// Event log entry
type errorLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for info
}

// reading is one successful measurement shown in the UI
type reading struct {
	at          time.Time
	measurement sds011.Measurement
}

// TUI model
type monitorModel struct {
	poller   *poller
	connInfo string
	started  time.Time

	firmware    *firmwareMsg
	last        *reading
	lastFailed  bool
	stats       sds011.Statistics
	pm25History []float64
	maxHistory  int

	errorLog      []errorLogEntry
	maxLogEntries int

	spinner       spinner.Model
	periodInput   textinput.Model
	editingPeriod bool

	width    int
	height   int
	quitting bool
}

type monitorTickMsg time.Time

// formatUptime formats a duration in milliseconds to a human-friendly string
func formatUptime(ms uint64) string {
	if ms == 0 {
		return "0 seconds"
	}

	seconds := ms / 1000
	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24

	seconds %= 60
	minutes %= 60
	hours %= 24

	plural := func(n uint64, unit string) string {
		if n == 1 {
			return "1 " + unit
		}
		return fmt.Sprintf("%d %ss", n, unit)
	}

	parts := []string{}
	if days > 0 {
		parts = append(parts, plural(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, plural(seconds, "second"))
	}

	// Join with commas and "and" for last item
	if len(parts) == 1 {
		return parts[0]
	}
	if len(parts) == 2 {
		return parts[0] + " and " + parts[1]
	}
	last := parts[len(parts)-1]
	rest := strings.Join(parts[:len(parts)-1], ", ")
	return rest + ", and " + last
}

// sparkline renders values as block characters scaled to the largest value
func sparkline(values []float64) string {
	const blocks = "▁▂▃▄▅▆▇█"
	levels := []rune(blocks)

	maxValue := 0.0
	for _, v := range values {
		if v > maxValue {
			maxValue = v
		}
	}

	var b strings.Builder
	for _, v := range values {
		idx := 0
		if maxValue > 0 {
			idx = int(v / maxValue * float64(len(levels)-1))
		}
		b.WriteRune(levels[idx])
	}
	return b.String()
}

func initialMonitorModel(p *poller, connInfo string) monitorModel {
	ti := textinput.New()
	ti.Placeholder = "0-30"
	ti.CharLimit = 2
	ti.Width = 6

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return monitorModel{
		poller:        p,
		connInfo:      connInfo,
		started:       time.Now(),
		stats:         *sds011.NewStatistics(),
		maxHistory:    40,
		errorLog:      make([]errorLogEntry, 0),
		maxLogEntries: 100,
		spinner:       sp,
		periodInput:   ti,
		width:         80,
		height:        24,
	}
}

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(monitorTickCmd(), m.spinner.Tick)
}

func monitorTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return monitorTickMsg(t)
	})
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case monitorTickMsg:
		return m, monitorTickCmd()

	case spinner.TickMsg:
		if m.last != nil {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case firmwareMsg:
		m.firmware = &msg
		m.addLogEntry(fmt.Sprintf("Sensor %04X, firmware %s", msg.deviceID, msg.firmware), false)

	case measurementMsg:
		m.stats = msg.stats
		m.lastFailed = !msg.ok
		if msg.ok {
			m.last = &reading{at: msg.at, measurement: msg.measurement}
			m.pm25History = append(m.pm25History, msg.measurement.PM25Microgram())
			if len(m.pm25History) > m.maxHistory {
				m.pm25History = m.pm25History[len(m.pm25History)-m.maxHistory:]
			}
		} else {
			m.addLogEntry("No valid reply to measurement query", true)
		}

	case pollerEventMsg:
		m.addLogEntry(msg.message, msg.isError)
	}

	return m, nil
}

func (m monitorModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.editingPeriod {
		switch msg.String() {
		case "esc":
			m.editingPeriod = false
			m.periodInput.Blur()
			return m, nil

		case "enter":
			m.editingPeriod = false
			m.periodInput.Blur()
			minutes, err := parseWorkingPeriod(m.periodInput.Value())
			if err != nil {
				m.addLogEntry(err.Error(), true)
				return m, nil
			}
			m.sendRequest(pollerRequest{kind: requestPeriod, period: minutes}, fmt.Sprintf("Setting working period to %s", formatWorkingPeriod(minutes)))
			return m, nil

		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

		var cmd tea.Cmd
		m.periodInput, cmd = m.periodInput.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "r":
		m.sendRequest(pollerRequest{kind: requestQuery}, "Querying")

	case "s":
		m.sendRequest(pollerRequest{kind: requestSleep}, "Sending sleep")

	case "w":
		m.sendRequest(pollerRequest{kind: requestWake}, "Sending wake")

	case "p":
		m.editingPeriod = true
		m.periodInput.SetValue("")
		return m, m.periodInput.Focus()
	}

	return m, nil
}

func (m *monitorModel) sendRequest(req pollerRequest, message string) {
	if !m.poller.request(req) {
		m.addLogEntry("Busy, request dropped", true)
		return
	}
	m.addLogEntry(message, false)
}

func (m *monitorModel) addLogEntry(message string, isError bool) {
	entry := errorLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.errorLog = append(m.errorLog, entry)

	// Keep only last N entries
	if len(m.errorLog) > m.maxLogEntries {
		m.errorLog = m.errorLog[len(m.errorLog)-m.maxLogEntries:]
	}
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	// Header
	var s strings.Builder
	s.WriteString(titleStyle.Render("SDSPROBE - MONITOR"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Target: %s | Every %v | Up %s",
		m.connInfo, formatDeviceID(m.poller.sensor.DeviceID()), m.poller.interval,
		formatUptime(uint64(time.Since(m.started).Milliseconds())))))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render("r: read now  s: sleep  w: wake  p: working period  q: quit"))
	s.WriteString("\n\n")

	// Readings
	readings := strings.Builder{}
	if m.last == nil {
		readings.WriteString(warningStyle.Render(m.spinner.View() + " Waiting for first measurement..."))
	} else {
		meas := m.last.measurement
		readings.WriteString(fmt.Sprintf("%s %s   %s %s\n",
			labelStyle.Render("PM2.5:"), valueStyle.Render(fmt.Sprintf("%.1f µg/m³", meas.PM25Microgram())),
			labelStyle.Render("PM10:"), valueStyle.Render(fmt.Sprintf("%.1f µg/m³", meas.PM10Microgram())),
		))
		readings.WriteString(fmt.Sprintf("%s %s",
			labelStyle.Render("Sampled:"), headerStyle.Render(m.last.at.Format("15:04:05")),
		))
		if m.lastFailed {
			readings.WriteString(" " + errorStyle.Render("(last query failed)"))
		}
		if len(m.pm25History) > 1 {
			readings.WriteString(fmt.Sprintf("\n%s %s",
				labelStyle.Render("PM2.5 trend:"), valueStyle.Render(sparkline(m.pm25History)),
			))
		}
	}
	if m.firmware != nil {
		readings.WriteString(fmt.Sprintf("\n%s %s   %s %04X",
			labelStyle.Render("Firmware:"), m.firmware.firmware,
			labelStyle.Render("Device:"), m.firmware.deviceID,
		))
	}
	s.WriteString(boxStyle.Render(readings.String()))
	s.WriteString("\n\n")

	// Statistics
	var validPercent, errorPercent float64
	if m.stats.Total > 0 {
		validPercent = float64(m.stats.Valid) * 100.0 / float64(m.stats.Total)
		errorPercent = float64(m.stats.Errors()) * 100.0 / float64(m.stats.Total)
	}

	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s",
		labelStyle.Render("Exchanges:"), valueStyle.Render(fmt.Sprintf("%d", m.stats.Total)),
		labelStyle.Render("Valid:"), valueStyle.Render(fmt.Sprintf("%d (%.1f%%)", m.stats.Valid, validPercent)),
		labelStyle.Render("Errors:"), errorStyle.Render(fmt.Sprintf("%d (%.1f%%)", m.stats.Errors(), errorPercent)),
	))
	if m.stats.Errors() > 0 {
		statsContent.WriteString(fmt.Sprintf("\n%s",
			headerStyle.Render(fmt.Sprintf("timeouts: %d, framing: %d, checksum: %d, mismatch: %d, write: %d",
				m.stats.ShortFrames, m.stats.FramingErrors, m.stats.ChecksumErrors, m.stats.Mismatches, m.stats.WriteErrors)),
		))
	}
	if m.stats.Retries > 0 {
		statsContent.WriteString(fmt.Sprintf("\n%s %s",
			labelStyle.Render("Retries:"), warningStyle.Render(fmt.Sprintf("%d", m.stats.Retries)),
		))
	}
	s.WriteString(boxStyle.Render(statsContent.String()))
	s.WriteString("\n\n")

	// Working period input
	if m.editingPeriod {
		s.WriteString(labelStyle.Render("Working period (minutes, enter to apply, esc to cancel): "))
		s.WriteString(m.periodInput.View())
		s.WriteString("\n\n")
	}

	// Event log
	s.WriteString(labelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	logHeight := m.height - 18 // Reserve space for header, readings and stats
	if logHeight < 5 {
		logHeight = 5
	}

	logContent := strings.Builder{}
	startIdx := len(m.errorLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.errorLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.errorLog); i++ {
			entry := m.errorLog[i]
			timestamp := entry.timestamp.Format("15:04:05")
			if entry.isError {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					errorStyle.Render("✗ "+entry.message),
				))
			} else {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					warningStyle.Render("ℹ "+entry.message),
				))
			}
		}
	}

	width := m.width - 4
	if width < 20 {
		width = 20
	}
	s.WriteString(boxStyle.Width(width).Render(logContent.String()))

	return s.String()
}
