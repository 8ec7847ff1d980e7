// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/Thermoquad/ppmscope/pkg/ppm"
)

// monitorNote is a human-readable observation about the decoded stream
type monitorNote struct {
	message string
	isError bool
}

// frameMonitor turns pipeline events into statistics and notes.
// Counter deltas between events are reported, so a burst of errors inside
// one batch becomes a single note.
type frameMonitor struct {
	stats       *ppm.Statistics
	showAll     bool
	minChannels uint8
	synced      bool
	everSynced  bool
}

func newFrameMonitor(cfg ppm.Config, showAll bool) *frameMonitor {
	return &frameMonitor{
		stats:       ppm.NewStatistics(),
		showAll:     showAll,
		minChannels: cfg.MinChannels,
	}
}

func (m *frameMonitor) observe(ev decodeEvent) []monitorNote {
	var notes []monitorNote
	prev := m.stats.Counters

	if ev.gap != nil {
		notes = append(notes, monitorNote{fmt.Sprintf("Edges lost: %v", ev.gap), true})
	}

	c := ev.counters
	if d := c.Corrupt - prev.Corrupt; d > 0 {
		notes = append(notes, monitorNote{fmt.Sprintf("%d out-of-range pulse(s), resynchronizing", d), true})
	}
	if d := c.ShortFrames - prev.ShortFrames; d > 0 {
		notes = append(notes, monitorNote{fmt.Sprintf("%d short frame(s) rejected (< %d channels)", d, m.minChannels), true})
	}
	if d := c.Dropped - prev.Dropped; d > 0 {
		notes = append(notes, monitorNote{fmt.Sprintf("%d channel value(s) dropped beyond %d channels", d, ppm.MaxChannels), false})
	}
	if d := c.Overwritten - prev.Overwritten; d > 0 {
		notes = append(notes, monitorNote{fmt.Sprintf("%d frame(s) replaced before being read", d), false})
	}

	switch {
	case !m.synced && ev.state == ppm.StateSynced:
		m.synced = true
		if m.everSynced {
			notes = append(notes, monitorNote{"Resynchronized", false})
		} else {
			notes = append(notes, monitorNote{fmt.Sprintf("Synchronized after %d edges", c.Edges), false})
		}
		m.everSynced = true
	case m.synced && ev.state == ppm.StateScanning:
		m.synced = false
	}

	m.stats.Update(c)

	if ev.hasFrame {
		changes := m.stats.ChannelCountChange
		last := m.stats.LastChannelCount
		m.stats.RecordFrame(ev.frame)
		if m.stats.ChannelCountChange != changes {
			notes = append(notes, monitorNote{fmt.Sprintf("Channel count changed %d -> %d", last, ev.frame.Len()), false})
		}
		if m.showAll {
			notes = append(notes, monitorNote{fmt.Sprintf("FRAME ch=%d (valid)", ev.frame.Len()), false})
		}
	}

	return notes
}
