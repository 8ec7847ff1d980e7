// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/ppmscope/pkg/ppm"
)

// Event log entry
type logEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for info
}

type keyMap struct {
	Quit  key.Binding
	Clear key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Clear: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "clear log"),
	),
}

// TUI model
type model struct {
	srcInfo       string
	cfg           ppm.Config
	statsInterval int
	monitor       *frameMonitor
	eventLog      []logEntry
	maxLogEntries int
	state         ppm.State
	lastFrame     ppm.Frame
	lastFrameAt   time.Time
	hasFrame      bool
	sourceDone    bool
	sourceErr     error
	bar           progress.Model
	width         int
	height        int
	quitting      bool
}

// Messages
type tickMsg time.Time
type decodeMsg decodeEvent
type sourceDoneMsg struct {
	err error
}

// formatUptime formats a duration as a short human-friendly string
func formatUptime(d time.Duration) string {
	seconds := int64(d / time.Second)
	units := []struct {
		name string
		size int64
	}{
		{"d", 86400},
		{"h", 3600},
		{"m", 60},
	}

	var parts []string
	for _, u := range units {
		if seconds >= u.size {
			parts = append(parts, fmt.Sprintf("%d%s", seconds/u.size, u.name))
			seconds %= u.size
		}
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%ds", seconds))
	}
	return strings.Join(parts, " ")
}

func initialModel(srcInfo string, cfg ppm.Config, statsInterval int, showAll bool) model {
	return model{
		srcInfo:       srcInfo,
		cfg:           cfg,
		statsInterval: statsInterval,
		monitor:       newFrameMonitor(cfg, showAll),
		eventLog:      make([]logEntry, 0),
		maxLogEntries: 100,
		state:         ppm.StateScanning,
		bar:           progress.New(progress.WithDefaultGradient(), progress.WithWidth(30), progress.WithoutPercentage()),
		width:         80,
		height:        24,
	}
}

func (m model) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Clear):
			m.eventLog = m.eventLog[:0]
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		// Update statistics rates
		m.monitor.stats.CalculateRates()
		return m, tickCmd()

	case decodeMsg:
		ev := decodeEvent(msg)
		m.state = ev.state
		for _, n := range m.monitor.observe(ev) {
			m.addLogEntry(ev.received, n.message, n.isError)
		}
		if ev.hasFrame {
			m.lastFrame = ev.frame
			m.lastFrameAt = ev.received
			m.hasFrame = true
		}

	case sourceDoneMsg:
		m.sourceDone = true
		m.sourceErr = msg.err
		if msg.err != nil {
			m.addLogEntry(time.Now(), fmt.Sprintf("Source failed: %v", msg.err), true)
		} else {
			m.addLogEntry(time.Now(), "Source ended", false)
		}
	}

	return m, nil
}

func (m *model) addLogEntry(ts time.Time, message string, isError bool) {
	m.eventLog = append(m.eventLog, logEntry{
		timestamp: ts,
		message:   message,
		isError:   isError,
	})

	// Keep only last N entries
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

func (m model) View() string {
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

	statsLabelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	statsValueStyle := lipgloss.NewStyle().
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
	s.WriteString(titleStyle.Render("PPMSCOPE - ERROR DETECTION"))
	s.WriteString("\n")
	mode := "Errors only"
	if m.monitor.showAll {
		mode = "All frames"
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("Source: %s | Mode: %s | %s | %s",
		m.srcInfo, mode, keys.Quit.Help().Key+" "+keys.Quit.Help().Desc, keys.Clear.Help().Key+" "+keys.Clear.Help().Desc)))
	s.WriteString("\n\n")

	// Sync status
	switch {
	case m.sourceDone:
		s.WriteString(warningStyle.Render("■ Source ended"))
	case m.state == ppm.StateSynced:
		s.WriteString(statsValueStyle.Render("✓ " + m.state.String()))
	default:
		s.WriteString(warningStyle.Render("⏳ " + m.state.String() + " for a sync gap..."))
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("  channel %d-%dµs, sync >= %dµs, min %d channels",
		m.cfg.MinChannelValue, m.cfg.MaxChannelValue, m.cfg.MinSyncWidth, m.cfg.MinChannels)))
	s.WriteString("\n\n")

	// Statistics
	st := m.monitor.stats
	st.CalculateRates()

	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s   %s %s\n",
		statsLabelStyle.Render("Uptime:"), statsValueStyle.Render(formatUptime(time.Since(st.StartTime))),
		statsLabelStyle.Render("Edges:"), statsValueStyle.Render(fmt.Sprintf("%d", st.Edges)),
		statsLabelStyle.Render("Frames:"), statsValueStyle.Render(fmt.Sprintf("%d (%.1f%%)", st.Frames, st.ValidPercent())),
		statsLabelStyle.Render("Errors:"), errorStyle.Render(fmt.Sprintf("%d", st.Errors())),
	))

	if st.ShortFrames > 0 || st.Corrupt > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s   %s %s\n",
			statsLabelStyle.Render("Short Frames:"), errorStyle.Render(fmt.Sprintf("%d", st.ShortFrames)),
			statsLabelStyle.Render("Resyncs:"), errorStyle.Render(fmt.Sprintf("%d", st.Corrupt)),
		))
	}

	if st.Dropped > 0 || st.ChannelCountChange > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s   %s %s\n",
			statsLabelStyle.Render("Dropped Chans:"), warningStyle.Render(fmt.Sprintf("%d", st.Dropped)),
			statsLabelStyle.Render("Count Changes:"), warningStyle.Render(fmt.Sprintf("%d", st.ChannelCountChange)),
		))
	}

	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s",
		statsLabelStyle.Render("Frame Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f frames/s", st.FrameRate)),
		statsLabelStyle.Render("Edge Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f edges/s", st.EdgeRate)),
		statsLabelStyle.Render("Error Rate:"), func() string {
			if st.ErrorRate > 0 {
				return errorStyle.Render(fmt.Sprintf("%.1f err/s", st.ErrorRate))
			}
			return statsValueStyle.Render(fmt.Sprintf("%.1f err/s", st.ErrorRate))
		}(),
	))

	s.WriteString(boxStyle.Render(statsContent.String()))
	s.WriteString("\n\n")

	// Channel section (only shown once a frame has been decoded)
	if m.hasFrame {
		s.WriteString(statsLabelStyle.Render(fmt.Sprintf("Latest Frame (%d channels, %s):",
			m.lastFrame.Len(), m.lastFrameAt.Format("15:04:05.000"))))
		s.WriteString("\n")
		s.WriteString(boxStyle.Render(m.renderChannels(statsLabelStyle, statsValueStyle)))
		s.WriteString("\n\n")
	}

	// Event log
	s.WriteString(statsLabelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	// Calculate how many log entries we can show
	logHeight := m.height - 15 - m.lastFrame.Len()
	if logHeight < 5 {
		logHeight = 5
	}

	logContent := strings.Builder{}
	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.eventLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
			timestamp := entry.timestamp.Format("01/02/06 15:04:05.000")
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

// renderChannels draws one bar per channel across the configured range
func (m model) renderChannels(labelStyle, valueStyle lipgloss.Style) string {
	var b strings.Builder
	for i := 0; i < m.lastFrame.Len(); i++ {
		v, _ := m.lastFrame.Channel(i)
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(fmt.Sprintf("%s %s %s",
			labelStyle.Render(fmt.Sprintf("CH%-2d", i+1)),
			m.bar.ViewAs(ppm.ChannelPercent(m.cfg, v)),
			valueStyle.Render(fmt.Sprintf("%4dµs", v)),
		))
	}
	return b.String()
}
